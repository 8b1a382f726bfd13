package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Configuration errors. Raised while wiring providers or negotiating formats,
// surfaced to the caller immediately.
const (
	// ErrCodeUnsupportedDriver indicates no factory exists for the selected driver.
	ErrCodeUnsupportedDriver ErrorCode = "UNSUPPORTED_DRIVER"
	// ErrCodeUnsupportedFormat indicates an unknown response output format.
	ErrCodeUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"
	// ErrCodeMissingDependency indicates a driver option that must be a live handle is absent or of the wrong type.
	ErrCodeMissingDependency ErrorCode = "MISSING_DEPENDENCY"
	// ErrCodeInvalidConfig indicates configuration values that cannot be used.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
)

// Data errors
const (
	// ErrCodeDecoding indicates a response body could not be decoded strictly.
	ErrCodeDecoding ErrorCode = "DECODING_ERROR"
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Runtime errors
const (
	// ErrCodeListenerFailed indicates one or more event listeners returned an error.
	ErrCodeListenerFailed ErrorCode = "LISTENER_FAILED"
	// ErrCodeInternal indicates an unexpected failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var configurationCodes = map[ErrorCode]bool{
	ErrCodeUnsupportedDriver: true,
	ErrCodeUnsupportedFormat: true,
	ErrCodeMissingDependency: true,
	ErrCodeInvalidConfig:     true,
}

// IsConfigurationCode reports whether code belongs to the configuration class.
func IsConfigurationCode(code ErrorCode) bool {
	return configurationCodes[code]
}
