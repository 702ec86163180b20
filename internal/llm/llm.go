package llm

import (
	"context"
	"errors"
	"fmt"
)

// Category classifies completion failures for callers that react
// differently to throttling, transport faults, and provider errors.
type Category string

const (
	CategoryRateLimited   Category = "rate_limited"
	CategoryConnection    Category = "connection_failed"
	CategoryProvider      Category = "provider_error"
	CategoryEmptyResponse Category = "empty_response"
)

// Request is a single completion call.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	Model        string
	Temperature  float64
}

// Client produces a text completion for a system/user prompt pair.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Error is a categorized completion failure. StatusCode is set for
// provider errors that carry an HTTP status.
type Error struct {
	Category   Category
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("llm %s: %s: %v", e.Category, e.Message, e.Err)
	}
	return fmt.Sprintf("llm %s: %s", e.Category, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CategoryOf reports the category of a completion error, or "" when the
// error did not come from this package.
func CategoryOf(err error) Category {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Category
	}
	return ""
}
