package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorSeverity defines the severity level of an error
type ErrorSeverity int

const (
	SeverityInfo ErrorSeverity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

// String returns the string representation of the severity
func (s ErrorSeverity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Diagnostic codes carried by every DeviceError
const (
	CodeOK            = 0
	CodeConfig        = 1
	CodeSensorTimeout = 2
	CodeSensorRead    = 3
	CodeNetwork       = 4
	CodeBroker        = 5
	CodePublish       = 6
	CodeGeneric       = 99
)

// Transport-level causes wrapped by SensorReadError and SensorTimeoutError
var (
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrDeviceNotReady   = errors.New("device not ready")
	ErrLineContention   = errors.New("line contention")
	ErrEchoTimeout      = errors.New("echo timeout")
)

// DeviceError is the base error type for all device errors
type DeviceError struct {
	Op       string        // Operation that failed
	Err      error         // Underlying error
	Severity ErrorSeverity // Error severity
	Code     int           // Diagnostic code
}

// Error implements the error interface
func (e *DeviceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Severity, e.Op, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Severity, e.Op)
}

// Unwrap returns the underlying error
func (e *DeviceError) Unwrap() error {
	return e.Err
}

// SensorTimeoutError is raised when a bounded sensor wait expires.
// Recovered locally by the ranger as an absent reading.
type SensorTimeoutError struct {
	DeviceError
	Sensor  string
	Timeout time.Duration
}

// NewSensorTimeoutError creates a new sensor timeout error
func NewSensorTimeoutError(op string, sensor string, timeout time.Duration) *SensorTimeoutError {
	return &SensorTimeoutError{
		DeviceError: DeviceError{
			Op:       op,
			Err:      ErrEchoTimeout,
			Severity: SeverityWarning,
			Code:     CodeSensorTimeout,
		},
		Sensor:  sensor,
		Timeout: timeout,
	}
}

// Error implements the error interface
func (e *SensorTimeoutError) Error() string {
	return fmt.Sprintf("[%s] Sensor '%s': %s: no edge within %s",
		e.Severity, e.Sensor, e.Op, e.Timeout)
}

// SensorReadError represents a failed sensor transaction
type SensorReadError struct {
	DeviceError
	Sensor string
}

// NewSensorReadError creates a new sensor read error
func NewSensorReadError(op string, err error, sensor string) *SensorReadError {
	return &SensorReadError{
		DeviceError: DeviceError{
			Op:       op,
			Err:      err,
			Severity: SeverityWarning,
			Code:     CodeSensorRead,
		},
		Sensor: sensor,
	}
}

// Error implements the error interface
func (e *SensorReadError) Error() string {
	return fmt.Sprintf("[%s] Sensor '%s': %s: %v",
		e.Severity, e.Sensor, e.Op, e.Err)
}

// NetworkError represents a failed network attach
type NetworkError struct {
	DeviceError
	SSID     string
	Attempts int
}

// NewNetworkError creates a new network error
func NewNetworkError(op string, err error, ssid string) *NetworkError {
	return &NetworkError{
		DeviceError: DeviceError{
			Op:       op,
			Err:      err,
			Severity: SeverityError,
			Code:     CodeNetwork,
		},
		SSID: ssid,
	}
}

// Error implements the error interface
func (e *NetworkError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("[%s] Network '%s': %s (after %d attempts): %v",
			e.Severity, e.SSID, e.Op, e.Attempts, e.Err)
	}
	return fmt.Sprintf("[%s] Network '%s': %s: %v",
		e.Severity, e.SSID, e.Op, e.Err)
}

// BrokerError represents a failed broker connection or subscription
type BrokerError struct {
	DeviceError
	Broker string
	Topic  string
}

// NewBrokerError creates a new broker error
func NewBrokerError(op string, err error, broker string) *BrokerError {
	return &BrokerError{
		DeviceError: DeviceError{
			Op:       op,
			Err:      err,
			Severity: SeverityError,
			Code:     CodeBroker,
		},
		Broker: broker,
	}
}

// WithTopic records the topic the failed operation targeted
func (e *BrokerError) WithTopic(topic string) *BrokerError {
	e.Topic = topic
	return e
}

// Error implements the error interface
func (e *BrokerError) Error() string {
	if e.Topic != "" {
		return fmt.Sprintf("[%s] MQTT broker '%s' (topic: %s): %s: %v",
			e.Severity, e.Broker, e.Topic, e.Op, e.Err)
	}
	return fmt.Sprintf("[%s] MQTT broker '%s': %s: %v",
		e.Severity, e.Broker, e.Op, e.Err)
}

// PublishError represents a failed telemetry publish. Never retried.
type PublishError struct {
	DeviceError
	Topic string
}

// NewPublishError creates a new publish error
func NewPublishError(err error, topic string) *PublishError {
	return &PublishError{
		DeviceError: DeviceError{
			Op:       "publish",
			Err:      err,
			Severity: SeverityWarning,
			Code:     CodePublish,
		},
		Topic: topic,
	}
}

// Error implements the error interface
func (e *PublishError) Error() string {
	return fmt.Sprintf("[%s] Publish to '%s': %v", e.Severity, e.Topic, e.Err)
}

// ConfigError represents configuration errors
type ConfigError struct {
	DeviceError
	Field string
}

// NewConfigError creates a new configuration error
func NewConfigError(field string, format string, args ...interface{}) *ConfigError {
	return &ConfigError{
		DeviceError: DeviceError{
			Op:       "validate",
			Err:      fmt.Errorf(format, args...),
			Severity: SeverityCritical,
			Code:     CodeConfig,
		},
		Field: field,
	}
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] Configuration field '%s': %v", e.Severity, e.Field, e.Err)
	}
	return fmt.Sprintf("[%s] Configuration: %v", e.Severity, e.Err)
}
