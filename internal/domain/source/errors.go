// internal/domain/source/errors.go

package source

import (
	"errors"
	"fmt"
)

// ErrAborted marks a load that ended because cancellation was requested.
// It is resolved silently and never surfaced to the host.
var ErrAborted = errors.New("load aborted")

// LoadError is a terminal network or decode failure. It is reported upward
// as a toast and the loader is marked finished-with-error.
type LoadError struct {
	SourceID string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("source %s: load failed: %v", e.SourceID, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// AuthError is a suspected stale-credential failure, detected heuristically
// by immediate-failure timing. It warrants exactly one retry with a
// force-refreshed token before being treated as a LoadError.
type AuthError struct {
	SourceID string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("source %s: suspected auth failure: %v", e.SourceID, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// ConfigError is a malformed source configuration, rejected before any
// loader starts.
type ConfigError struct {
	SourceID string
	Reason   string
}

func (e *ConfigError) Error() string {
	if e.SourceID == "" {
		return fmt.Sprintf("invalid source config: %s", e.Reason)
	}
	return fmt.Sprintf("invalid source config %s: %s", e.SourceID, e.Reason)
}
