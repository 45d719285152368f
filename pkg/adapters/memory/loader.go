package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/authtree/pkg/domain"
)

// Loader implements ports.TreeSource using an in-memory map of built trees.
type Loader struct {
	mu    sync.RWMutex
	trees map[string]*domain.Tree
}

// NewLoader creates a new in-memory tree source serving trees by name.
func NewLoader(trees ...*domain.Tree) *Loader {
	l := &Loader{trees: make(map[string]*domain.Tree, len(trees))}
	for _, t := range trees {
		l.trees[t.Name()] = t
	}
	return l
}

// Put adds or replaces a tree.
func (l *Loader) Put(tree *domain.Tree) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.trees[tree.Name()] = tree
}

// LoadTree returns the named tree.
func (l *Loader) LoadTree(_ context.Context, name string) (*domain.Tree, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	tree, ok := l.trees[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrTreeNotFound, name)
	}
	return tree, nil
}

// ListTrees returns all available tree names.
func (l *Loader) ListTrees(_ context.Context) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	names := make([]string, 0, len(l.trees))
	for k := range l.trees {
		names = append(names, k)
	}
	sort.Strings(names) // Deterministic order
	return names, nil
}
