package ports

import (
	"context"

	"github.com/aretw0/authtree/pkg/domain"
)

// StateStore defines the interface for the server-side session vault.
// It holds the full TreeState of suspended evaluations, including the private node
// namespaces that never travel in the client-visible continuation.
type StateStore interface {
	// Save persists the state for a given session handle.
	Save(ctx context.Context, handle string, state *domain.TreeState) error

	// Load retrieves the state for a given session handle.
	// Returns domain.ErrSessionNotFound if the session does not exist or has expired.
	Load(ctx context.Context, handle string) (*domain.TreeState, error)

	// Delete removes the state for a given session handle.
	Delete(ctx context.Context, handle string) error

	// List returns the handles of all stored sessions.
	List(ctx context.Context) ([]string, error)
}
