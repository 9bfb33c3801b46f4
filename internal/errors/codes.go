// Package errors provides structured error handling for hvsearch.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Index I/O errors
//   - 3XX: Remote fetch and model load errors
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	CategoryConfig     Category = "CONFIG"
	CategoryIO         Category = "IO"
	CategoryNetwork    Category = "NETWORK"
	CategoryValidation Category = "VALIDATION"
	CategoryInternal   Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates the current operation must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates the operation failed but the process can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigInvalid = "ERR_101_CONFIG_INVALID"

	// Index I/O errors (200-299)
	ErrCodeIndexNotFound = "ERR_201_INDEX_NOT_FOUND"
	ErrCodeIndexWrite    = "ERR_202_INDEX_WRITE"
	ErrCodeCorpusInvalid = "ERR_203_CORPUS_INVALID"
	ErrCodeInvalidIndex  = "ERR_205_INVALID_INDEX"

	// Remote and model errors (300-399)
	ErrCodeRemoteFetch      = "ERR_301_REMOTE_FETCH"
	ErrCodeModelLoad        = "ERR_302_MODEL_LOAD"
	ErrCodeModelLoadTimeout = "ERR_303_MODEL_LOAD_TIMEOUT"

	// Validation errors (400-499)
	ErrCodeInvalidInput      = "ERR_401_INVALID_INPUT"
	ErrCodeDimensionMismatch = "ERR_402_DIMENSION_MISMATCH"

	// Internal errors (500-599)
	ErrCodeInternal = "ERR_501_INTERNAL"
	ErrCodeEncoding = "ERR_502_ENCODING"
	ErrCodeNotReady = "ERR_503_NOT_READY"
)

// categoryFromCode derives the category from the numeric part of a code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryNetwork
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeInvalidIndex, ErrCodeCorpusInvalid, ErrCodeEncoding:
		return SeverityFatal
	case ErrCodeModelLoad, ErrCodeRemoteFetch:
		return SeverityWarning
	}
	return SeverityError
}

// isRetryableCode reports whether a later call may succeed where this one failed.
// Nothing inside hvsearch retries on its own; the flag is advice for callers.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeRemoteFetch, ErrCodeModelLoadTimeout, ErrCodeNotReady:
		return true
	default:
		return false
	}
}
