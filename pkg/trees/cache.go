// Package trees provides a build-once, read-many cache of validated trees.
package trees

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/aretw0/authtree/internal/logging"
	"github.com/aretw0/authtree/pkg/domain"
	"github.com/aretw0/authtree/pkg/ports"
	"golang.org/x/sync/singleflight"
)

// Validator checks a freshly loaded tree before it is cached.
type Validator interface {
	Validate(tree *domain.Tree) error
}

// Cache loads trees from a TreeSource once and serves them until invalidated.
// Concurrent misses for the same name share one load.
type Cache struct {
	source    ports.TreeSource
	validator Validator
	logger    *slog.Logger

	mu    sync.RWMutex
	trees map[string]*domain.Tree
	group singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithValidator rejects trees that fail v.Validate. Rejected trees are not cached.
func WithValidator(v Validator) Option {
	return func(c *Cache) {
		c.validator = v
	}
}

// WithLogger sets the cache logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// NewCache creates a cache in front of source.
func NewCache(source ports.TreeSource, opts ...Option) *Cache {
	c := &Cache{
		source: source,
		logger: logging.NewNop(),
		trees:  make(map[string]*domain.Tree),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the named tree, loading and validating it on first use.
func (c *Cache) Get(ctx context.Context, name string) (*domain.Tree, error) {
	c.mu.RLock()
	tree, ok := c.trees[name]
	c.mu.RUnlock()
	if ok {
		return tree, nil
	}

	v, err, _ := c.group.Do(name, func() (any, error) {
		tree, err := c.source.LoadTree(ctx, name)
		if err != nil {
			return nil, err
		}
		if c.validator != nil {
			if err := c.validator.Validate(tree); err != nil {
				return nil, err
			}
		}
		c.mu.Lock()
		c.trees[name] = tree
		c.mu.Unlock()
		c.logger.Debug("tree loaded", "tree", name)
		return tree, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Tree), nil
}

// Invalidate drops the named tree. An empty name drops every tree.
func (c *Cache) Invalidate(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if name == "" {
		c.trees = make(map[string]*domain.Tree)
		return
	}
	delete(c.trees, name)
}

// Cached lists the names currently held.
func (c *Cache) Cached() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.trees))
	for name := range c.trees {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Watch invalidates entries as the source reports changes. It blocks until ctx
// is done or the source closes its channel. Sources that cannot be watched
// return immediately with a nil error.
func (c *Cache) Watch(ctx context.Context) error {
	w, ok := c.source.(ports.Watchable)
	if !ok {
		return nil
	}
	events, err := w.Watch(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case name, ok := <-events:
			if !ok {
				return nil
			}
			c.Invalidate(name)
			c.logger.Info("tree invalidated", "tree", name)
		}
	}
}
