package dsl

import (
	"errors"
	"fmt"
	"sort"

	"github.com/aretw0/authtree/pkg/domain"
	"github.com/google/uuid"
)

// Terminal destinations, re-exported for fluent use.
const (
	Success = domain.SuccessNodeID
	Failure = domain.FailureNodeID
)

// Builder manages the tree construction.
type Builder struct {
	name  string
	entry string
	order []string
	nodes map[string]*NodeBuilder
}

// New creates a new tree builder.
func New(name string) *Builder {
	return &Builder{
		name:  name,
		nodes: make(map[string]*NodeBuilder),
	}
}

// Add creates a new node in the tree.
// If the node already exists, it returns the existing builder.
// The first node added becomes the entry node unless Entry says otherwise.
func (b *Builder) Add(id string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		decl:    domain.NodeDecl{ID: id},
		edges:   make(map[string]string),
		builder: b,
	}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Node adds a node of nodeType under a generated UUID, the way exported realm
// trees identify their nodes.
func (b *Builder) Node(nodeType string) *NodeBuilder {
	return b.Add(uuid.NewString()).Type(nodeType)
}

// Entry sets the node evaluation starts at.
func (b *Builder) Entry(id string) *Builder {
	b.entry = id
	return b
}

// Build validates the tree and compiles it into an immutable domain.Tree.
// All problems found are reported together in a single ConfigError.
func (b *Builder) Build() (*domain.Tree, error) {
	entry := b.entry
	if entry == "" && len(b.order) > 0 {
		entry = b.order[0]
	}

	var problems []error
	if b.name == "" {
		problems = append(problems, errors.New("tree has no name"))
	}
	if len(b.nodes) == 0 {
		problems = append(problems, errors.New("tree has no nodes"))
	} else if _, ok := b.nodes[entry]; !ok {
		problems = append(problems, fmt.Errorf("entry node '%s' is not declared", entry))
	}

	decls := make([]domain.NodeDecl, 0, len(b.nodes))
	connections := make(map[string]map[string]string, len(b.nodes))
	for _, id := range b.order {
		nb := b.nodes[id]
		if id == "" {
			problems = append(problems, errors.New("node with empty id"))
			continue
		}
		if domain.IsTerminal(id) {
			problems = append(problems, fmt.Errorf("node id '%s' collides with a terminal", id))
		}
		if nb.decl.Type == "" {
			problems = append(problems, fmt.Errorf("node '%s' has no type", id))
		}
		if len(nb.edges) == 0 {
			problems = append(problems, fmt.Errorf("node '%s' has no connections", id))
		}
		for _, outcome := range sortedKeys(nb.edges) {
			to := nb.edges[outcome]
			if domain.IsTerminal(to) {
				continue
			}
			if _, ok := b.nodes[to]; !ok {
				problems = append(problems, fmt.Errorf("node '%s' outcome '%s' points to undeclared node '%s'", id, outcome, to))
			}
		}
		decls = append(decls, nb.decl)
		connections[id] = nb.edges
	}

	if len(problems) > 0 {
		return nil, &domain.ConfigError{Tree: b.name, Reason: "invalid tree", Err: errors.Join(problems...)}
	}
	return domain.NewTree(b.name, entry, decls, connections), nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
