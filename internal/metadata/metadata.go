// Package metadata serves the schema description documents the workflow
// feeds to the completion provider.
package metadata

import (
	"context"
	"errors"
)

// ErrNotFound reports that the named document does not exist.
var ErrNotFound = errors.New("metadata document not found")

// Provider loads a schema description document by name. An empty name
// selects the configured default document. Loading fails when the
// document is missing, unreadable, or empty.
type Provider interface {
	Load(ctx context.Context, name string) (string, error)
}
