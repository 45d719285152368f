// Package realm serves tree definitions from a realm configuration directory.
//
// Every *.yaml, *.yml or *.json file in the directory defines one tree, named after
// the file. The identities file (identities.yaml) is reserved for user records and
// is not a tree.
package realm

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/authtree/internal/logging"
	"github.com/aretw0/authtree/pkg/domain"
	"github.com/fsnotify/fsnotify"
)

// IdentitiesFile is the base name (without extension) reserved for user records.
const IdentitiesFile = "identities"

var extensions = []string{".yaml", ".yml", ".json"}

// Loader implements ports.TreeSource and ports.Watchable over a directory.
type Loader struct {
	dir    string
	logger *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger used by the watcher.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// New creates a loader reading tree files from dir.
func New(dir string, opts ...Option) *Loader {
	l := &Loader{dir: dir, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Dir returns the realm directory.
func (l *Loader) Dir() string { return l.dir }

func treeName(filename string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range extensions {
		if ext == e {
			name := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
			return name, name != IdentitiesFile && !strings.HasPrefix(name, ".")
		}
	}
	return "", false
}

func (l *Loader) find(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == IdentitiesFile {
		return "", fmt.Errorf("%w: %s", domain.ErrTreeNotFound, name)
	}
	for _, ext := range extensions {
		path := filepath.Join(l.dir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s", domain.ErrTreeNotFound, name)
}

// LoadTree reads, decodes and builds the named tree.
// Decoding and graph problems are reported as *domain.ConfigError.
func (l *Loader) LoadTree(_ context.Context, name string) (*domain.Tree, error) {
	path, err := l.find(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tree %s: %w", name, err)
	}

	def, err := Parse(path, data)
	if err != nil {
		return nil, &domain.ConfigError{Tree: name, Reason: "invalid tree file " + filepath.Base(path), Err: err}
	}
	if def.Name == "" {
		def.Name = name
	}
	if def.Name != name {
		return nil, domain.NewConfigError(name, "", "file declares tree %q", def.Name)
	}
	return def.Build()
}

// ListTrees returns the names of all tree files in the directory.
func (l *Loader) ListTrees(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list trees: %w", err)
	}

	seen := make(map[string]bool)
	names := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if name, ok := treeName(entry.Name()); ok && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Watch implements ports.Watchable. It emits the name of each changed tree file and
// an empty name when the identities file changes.
func (l *Loader) Watch(ctx context.Context) (<-chan string, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(l.dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", l.dir, err)
	}

	ch := make(chan string, 1)

	go func() {
		defer close(ch)
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				l.logger.Warn("realm watcher error", "dir", l.dir, "err", err)
			case evt, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) &&
					!evt.Has(fsnotify.Remove) && !evt.Has(fsnotify.Rename) {
					continue
				}

				name, isTree := treeName(evt.Name)
				if !isTree {
					if name != IdentitiesFile {
						continue
					}
					name = ""
				}
				l.logger.Debug("realm changed", "file", filepath.Base(evt.Name), "op", evt.Op.String())

				// Pass the changed name up the chain, respecting context cancellation.
				select {
				case ch <- name:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, nil
}
