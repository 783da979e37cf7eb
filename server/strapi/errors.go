package strapi

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a content type or item does not exist upstream.
var ErrNotFound = errors.New("not found")

// ConfigurationError means the operator did not configure a proxy credential
// for a role. This is never a user error; log it loudly.
type ConfigurationError struct {
	Role string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("No Strapi proxy credential configured for role '%v'", e.Role)
}

// AuthError is a failure to exchange a proxy credential for an upstream
// session token. Carries the upstream's message when one was extractable.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("Strapi authentication failed: %v", e.Message)
}

// UpstreamError is any non-2xx or transport-level failure from Strapi,
// normalized to a message and the upstream's own status code.
// StatusCode is 500 when the upstream gave us nothing usable.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("Strapi request failed (%v): %v", e.StatusCode, e.Message)
}

// SchemaError means the upstream schema is missing metadata that we refuse
// to guess (eg a content type with no declared plural name).
type SchemaError struct {
	Message string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("Strapi schema error: %v", e.Message)
}
