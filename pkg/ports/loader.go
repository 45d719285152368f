package ports

import (
	"context"

	"github.com/aretw0/authtree/pkg/domain"
)

// TreeSource defines how the engine retrieves tree definitions.
// This allows the realm configuration storage (directory, memory) to be decoupled.
type TreeSource interface {
	// LoadTree builds the named tree.
	// Returns domain.ErrTreeNotFound if no definition exists.
	LoadTree(ctx context.Context, name string) (*domain.Tree, error)

	// ListTrees returns the names of all available trees.
	// This is used for introspection and tooling (e.g. 'authtree validate').
	ListTrees(ctx context.Context) ([]string, error)
}

// Watchable defines an interface for sources that can notify about backend changes.
// This is typically used to invalidate cached trees when realm configuration changes.
type Watchable interface {
	// Watch returns a channel that receives the name of a changed tree.
	// An empty name means the change could not be attributed and every tree is stale.
	Watch(ctx context.Context) (<-chan string, error)
}
