package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Outcome is the user-visible reduction of any internal error.
type Outcome string

const (
	OutcomeNone         Outcome = ""
	OutcomeNotReady     Outcome = "not_ready"
	OutcomeInvalidInput Outcome = "invalid_input"
	OutcomeNoResults    Outcome = "no_results"
)

// Classify reduces err to a user-visible outcome. Anything that is not invalid
// input means the system could not answer, which users see as "not ready".
func Classify(err error) Outcome {
	if err == nil {
		return OutcomeNone
	}
	switch GetCode(err) {
	case ErrCodeInvalidInput:
		return OutcomeInvalidInput
	default:
		return OutcomeNotReady
	}
}

// UserMessage returns the message shown to end users for an outcome.
// Internal detail stays in the logs.
func UserMessage(o Outcome) string {
	switch o {
	case OutcomeNotReady:
		return "system not ready"
	case OutcomeInvalidInput:
		return "invalid input: query must not be blank"
	case OutcomeNoResults:
		return "no results"
	default:
		return ""
	}
}

// FormatForCLI formats an error for terminal display.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	var he *HVError
	if !stderrors.As(err, &he) {
		he = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Error: %s\n", he.Message))
	if he.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  Hint: %s\n", he.Suggestion))
	}
	sb.WriteString(fmt.Sprintf("  Code: %s\n", he.Code))
	return sb.String()
}
