package errors

import (
	"errors"

	"pico-monitor/internal/logger"
)

// ErrorRecorder receives the diagnostic code of every handled error
type ErrorRecorder interface {
	RecordError(code int)
}

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	recorder ErrorRecorder
	log      logger.ILogger
}

// NewErrorHandler creates a new error handler. recorder may be nil.
func NewErrorHandler(recorder ErrorRecorder, log logger.ILogger) *ErrorHandler {
	if log == nil {
		log = logger.NewStandardLogger()
	}
	return &ErrorHandler{
		recorder: recorder,
		log:      log,
	}
}

// Handle logs err according to its severity and records its code
func (h *ErrorHandler) Handle(err error) {
	if err == nil {
		return
	}

	switch severityOf(err) {
	case SeverityCritical:
		h.log.LogError("🔴 CRITICAL: %v", err)
	case SeverityError:
		h.log.LogError("%v", err)
	case SeverityWarning:
		h.log.LogWarn("%v", err)
	default:
		h.log.LogInfo("%v", err)
	}

	if h.recorder != nil {
		h.recorder.RecordError(GetDiagnosticCode(err))
	}
}

// severityOf extracts the severity from any DeviceError in the chain.
// Untyped errors are treated as SeverityError.
func severityOf(err error) ErrorSeverity {
	if base := asDeviceError(err); base != nil {
		return base.Severity
	}
	return SeverityError
}

// asDeviceError walks the chain looking for any of the typed errors
func asDeviceError(err error) *DeviceError {
	var (
		timeoutErr *SensorTimeoutError
		readErr    *SensorReadError
		netErr     *NetworkError
		brokerErr  *BrokerError
		pubErr     *PublishError
		cfgErr     *ConfigError
		baseErr    *DeviceError
	)
	switch {
	case errors.As(err, &timeoutErr):
		return &timeoutErr.DeviceError
	case errors.As(err, &readErr):
		return &readErr.DeviceError
	case errors.As(err, &netErr):
		return &netErr.DeviceError
	case errors.As(err, &brokerErr):
		return &brokerErr.DeviceError
	case errors.As(err, &pubErr):
		return &pubErr.DeviceError
	case errors.As(err, &cfgErr):
		return &cfgErr.DeviceError
	case errors.As(err, &baseErr):
		return baseErr
	default:
		return nil
	}
}

// IsRecoverable returns true if the error is recoverable
func IsRecoverable(err error) bool {
	if err == nil {
		return true
	}
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		return false
	}
	if base := asDeviceError(err); base != nil {
		return base.Severity != SeverityCritical
	}
	return true
}

// GetDiagnosticCode extracts the diagnostic code from an error
func GetDiagnosticCode(err error) int {
	if err == nil {
		return CodeOK
	}
	if base := asDeviceError(err); base != nil {
		return base.Code
	}
	return CodeGeneric
}
