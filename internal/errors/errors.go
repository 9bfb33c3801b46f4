package errors

import (
	stderrors "errors"
	"fmt"
)

// HVError is the structured error type returned across hvsearch package boundaries.
type HVError struct {
	// Code is the stable error code (e.g. "ERR_205_INVALID_INDEX").
	Code string

	// Message is the human-readable message.
	Message string

	Category Category
	Severity Severity

	// Details carries extra context as key-value pairs.
	Details map[string]string

	// Cause is the wrapped error, if any.
	Cause error

	// Retryable is true when a later call may succeed.
	Retryable bool

	// Suggestion is an actionable hint for the operator.
	Suggestion string
}

// Error implements the error interface.
func (e *HVError) Error() string {
	if e.Cause != nil && e.Cause.Error() != e.Message {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *HVError) Unwrap() error {
	return e.Cause
}

// Is matches another *HVError by code, so the sentinels below work with errors.Is.
func (e *HVError) Is(target error) bool {
	if t, ok := target.(*HVError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail and returns the error for chaining.
func (e *HVError) WithDetail(key, value string) *HVError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion sets the operator hint and returns the error for chaining.
func (e *HVError) WithSuggestion(suggestion string) *HVError {
	e.Suggestion = suggestion
	return e
}

// New creates an HVError. Category, severity and the retryable flag derive from the code.
func New(code string, message string, cause error) *HVError {
	return &HVError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates an HVError from an existing error, reusing its message.
func Wrap(code string, err error) *HVError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// Sentinels for errors.Is checks. Only the code is compared.
var (
	ErrInvalidIndex     = &HVError{Code: ErrCodeInvalidIndex}
	ErrIndexNotFound    = &HVError{Code: ErrCodeIndexNotFound}
	ErrRemoteFetch      = &HVError{Code: ErrCodeRemoteFetch}
	ErrModelLoad        = &HVError{Code: ErrCodeModelLoad}
	ErrModelLoadTimeout = &HVError{Code: ErrCodeModelLoadTimeout}
	ErrEncoding         = &HVError{Code: ErrCodeEncoding}
	ErrInvalidInput     = &HVError{Code: ErrCodeInvalidInput}
	ErrNotReady         = &HVError{Code: ErrCodeNotReady}
	ErrConfigInvalid    = &HVError{Code: ErrCodeConfigInvalid}
)

// InvalidIndexError reports a persisted blob without a usable corpus table.
func InvalidIndexError(message string, cause error) *HVError {
	return New(ErrCodeInvalidIndex, message, cause).
		WithSuggestion("rebuild the index with 'hvsearch build'")
}

// IndexNotFoundError reports a local index path that does not exist.
func IndexNotFoundError(path string, cause error) *HVError {
	return New(ErrCodeIndexNotFound, "index not found: "+path, cause).
		WithDetail("path", path)
}

// RemoteFetchError reports a transport failure or a non-binary response.
func RemoteFetchError(locator, message string, cause error) *HVError {
	return New(ErrCodeRemoteFetch, message, cause).WithDetail("locator", locator)
}

// ModelLoadError reports a provider whose model failed to initialize.
func ModelLoadError(provider string, cause error) *HVError {
	return New(ErrCodeModelLoad, "model load failed for provider "+provider, cause).
		WithDetail("provider", provider)
}

// ModelLoadTimeout reports a caller that gave up waiting for a pending load.
func ModelLoadTimeout(provider string, cause error) *HVError {
	return New(ErrCodeModelLoadTimeout, "timed out waiting for provider "+provider+" to load", cause).
		WithDetail("provider", provider)
}

// EncodingError reports an encode call on a provider that is not loaded,
// or a model server response that cannot be turned into vectors.
func EncodingError(provider, message string, cause error) *HVError {
	return New(ErrCodeEncoding, message, cause).WithDetail("provider", provider)
}

// InvalidInputError reports a blank or otherwise unusable query.
func InvalidInputError(message string) *HVError {
	return New(ErrCodeInvalidInput, message, nil)
}

// NotReadyError reports a search issued before the index could be loaded.
func NotReadyError(cause error) *HVError {
	return New(ErrCodeNotReady, "index not loaded", cause)
}

// ConfigError creates a configuration error.
func ConfigError(message string, cause error) *HVError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *HVError {
	return New(ErrCodeInternal, message, cause)
}

// IsRetryable reports whether err carries the retryable flag anywhere in its chain.
func IsRetryable(err error) bool {
	var he *HVError
	if stderrors.As(err, &he) {
		return he.Retryable
	}
	return false
}

// GetCode extracts the code of the first HVError in the chain, or "".
func GetCode(err error) string {
	var he *HVError
	if stderrors.As(err, &he) {
		return he.Code
	}
	return ""
}
