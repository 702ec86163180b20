package workflow

import (
	"errors"
	"fmt"
)

// Kind is the closed set of failure categories a run can surface.
type Kind string

const (
	KindConfiguration Kind = "configuration"
	KindLLM           Kind = "llm"
	KindDatabase      Kind = "database"
	KindValidation    Kind = "validation"
	KindWorkflow      Kind = "workflow"
	KindInternal      Kind = "internal"
)

// Error tags a failure with its kind and the step it happened in.
// Transport-level status mapping is a pure function over Kind; the step
// name tells callers which node aborted the run.
type Error struct {
	Kind    Kind
	Step    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Step != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Step, e.Message, e.Err)
	case e.Step != "":
		return fmt.Sprintf("%s: %s", e.Step, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	default:
		return e.Message
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a tagged error. An empty step means the failure was
// not tied to a particular node.
func NewError(kind Kind, step, message string, err error) *Error {
	return &Error{Kind: kind, Step: step, Message: message, Err: err}
}

// KindOf extracts the error kind, defaulting to internal for untagged errors.
func KindOf(err error) Kind {
	var wfErr *Error
	if errors.As(err, &wfErr) {
		return wfErr.Kind
	}
	return KindInternal
}

// StepOf extracts the failing step name, if the error carries one.
func StepOf(err error) string {
	var wfErr *Error
	if errors.As(err, &wfErr) {
		return wfErr.Step
	}
	return ""
}
