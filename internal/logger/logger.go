package logger

import (
	"log"
	"os"
	"strings"
)

// LogLevel constants
const (
	LogLevelError = "error"
	LogLevelWarn  = "warn"
	LogLevelInfo  = "info"
	LogLevelDebug = "debug"
	LogLevelTrace = "trace"
)

// levelOrder maps each level to its verbosity rank
var levelOrder = map[string]int{
	LogLevelError: 0,
	LogLevelWarn:  1,
	LogLevelInfo:  2,
	LogLevelDebug: 3,
	LogLevelTrace: 4,
}

// LoggingConfig represents the logging configuration
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// GlobalLogging is the configuration consulted by the package-level helpers.
// Until it is set only startup lines and errors are logged.
var GlobalLogging *LoggingConfig

// Init installs cfg as the global logging configuration and redirects the
// standard logger to cfg.File when one is given.
func Init(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = LogLevelInfo
	}
	cfg.Level = strings.ToLower(cfg.Level)

	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	if cfg.File != "" {
		// 0600: the log may contain broker hostnames and topic payloads
		output, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			log.Printf("Failed to open log file %s: %v", cfg.File, err)
		} else {
			log.SetOutput(output)
		}
	}

	GlobalLogging = cfg
}

// ValidLevel reports whether level is one of the known level names
func ValidLevel(level string) bool {
	_, ok := levelOrder[strings.ToLower(level)]
	return ok
}

// shouldLog checks if a message should be logged based on current level
func shouldLog(currentLevel, messageLevel string) bool {
	current, ok := levelOrder[currentLevel]
	if !ok {
		return true
	}
	return levelOrder[messageLevel] <= current
}

func enabled(messageLevel string) bool {
	if GlobalLogging == nil {
		return messageLevel == LogLevelError
	}
	return shouldLog(strings.ToLower(GlobalLogging.Level), messageLevel)
}

// LogStartup logs startup messages that should always be visible regardless of log level
func LogStartup(format string, args ...interface{}) {
	log.Printf("🔧 "+format, args...)
}

// LogError logs error messages
func LogError(format string, args ...interface{}) {
	if enabled(LogLevelError) {
		log.Printf("❌ "+format, args...)
	}
}

// LogWarn logs warning messages
func LogWarn(format string, args ...interface{}) {
	if enabled(LogLevelWarn) {
		log.Printf("⚠️ "+format, args...)
	}
}

// LogInfo logs info messages
func LogInfo(format string, args ...interface{}) {
	if enabled(LogLevelInfo) {
		log.Printf("ℹ️ "+format, args...)
	}
}

// LogDebug logs debug messages
func LogDebug(format string, args ...interface{}) {
	if enabled(LogLevelDebug) {
		log.Printf("🔧 "+format, args...)
	}
}

// LogTrace logs trace messages, used for per-cycle sensor detail
func LogTrace(format string, args ...interface{}) {
	if enabled(LogLevelTrace) {
		log.Printf("🔍 "+format, args...)
	}
}

// IsDebugEnabled checks if debug logging is enabled
func IsDebugEnabled() bool {
	return enabled(LogLevelDebug)
}
