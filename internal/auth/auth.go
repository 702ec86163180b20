// Package auth implements static API key authentication for the HTTP
// surface.
package auth

import (
	"context"
	"fmt"
	"strings"
)

// Identity names the authenticated caller.
type Identity struct {
	Name string
}

type APIKeyValidator interface {
	Validate(ctx context.Context, apiKey string) (Identity, bool)
}

// StaticAPIKeyValidator resolves keys from a configured list. The spec
// format is "key:name,key2:name2".
type StaticAPIKeyValidator struct {
	keys map[string]Identity
}

func NewStaticAPIKeyValidator(spec string) (*StaticAPIKeyValidator, error) {
	validator := &StaticAPIKeyValidator{keys: map[string]Identity{}}
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return validator, nil
	}

	for _, entry := range strings.Split(spec, ",") {
		parts := strings.Split(strings.TrimSpace(entry), ":")
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid static key entry %q: expected key:name", entry)
		}
		key := strings.TrimSpace(parts[0])
		name := strings.TrimSpace(parts[1])
		if key == "" || name == "" {
			return nil, fmt.Errorf("invalid static key entry %q: empty key/name", entry)
		}
		validator.keys[key] = Identity{Name: name}
	}

	return validator, nil
}

func (v *StaticAPIKeyValidator) Validate(_ context.Context, apiKey string) (Identity, bool) {
	identity, ok := v.keys[apiKey]
	return identity, ok
}
