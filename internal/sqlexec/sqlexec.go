package sqlexec

import (
	"context"
	"errors"
	"fmt"
)

// Row is a single result record keyed by column name.
type Row = map[string]any

// Executor runs read queries against the analytics database. Ping backs
// the readiness probe.
type Executor interface {
	Query(ctx context.Context, sqlText string) ([]Row, error)
	Ping(ctx context.Context) error
}

// Error is a categorized query failure. Code carries the driver-specific
// error code (SQLSTATE for Postgres) when available.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("sql execution failed (%s): %s", e.Code, e.Message)
	}
	return fmt.Sprintf("sql execution failed: %s", e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf reports the driver error code, or "" for untagged errors.
func CodeOf(err error) string {
	var execErr *Error
	if errors.As(err, &execErr) {
		return execErr.Code
	}
	return ""
}
