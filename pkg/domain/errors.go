package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned when a session handle cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrTreeNotFound is returned when a tree name cannot be resolved by a TreeSource.
var ErrTreeNotFound = errors.New("tree not found")

// ErrInvalidInput marks stale or malformed client input (e.g. a choice index that no
// longer exists after filtering). Nodes wrap it; the executor reports it as a ProcessingError.
var ErrInvalidInput = errors.New("invalid client input")

// ConfigError signals a malformed tree or node configuration.
// It is fatal and must not be retried: the operator has to fix the definition.
type ConfigError struct {
	Tree   string
	NodeID string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	msg := "configuration error"
	if e.Tree != "" {
		msg += fmt.Sprintf(" in tree '%s'", e.Tree)
	}
	if e.NodeID != "" {
		msg += fmt.Sprintf(" at node '%s'", e.NodeID)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError is a shorthand for building a ConfigError.
func NewConfigError(tree, nodeID, format string, args ...any) *ConfigError {
	return &ConfigError{Tree: tree, NodeID: nodeID, Reason: fmt.Sprintf(format, args...)}
}

// ProcessingError wraps a failure raised by a node while handling a legitimate request.
// It aborts the whole evaluation; it is never mapped to a FALSE outcome.
type ProcessingError struct {
	Tree   string
	NodeID string
	Err    error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("node '%s' in tree '%s' failed: %v", e.NodeID, e.Tree, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// IsConfigError reports whether err carries a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsProcessingError reports whether err carries a ProcessingError.
func IsProcessingError(err error) bool {
	var pe *ProcessingError
	return errors.As(err, &pe)
}
