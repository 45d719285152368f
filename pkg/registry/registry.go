package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/authtree/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// ErrUnknownType is returned when a node declaration names a type nobody registered.
var ErrUnknownType = errors.New("unknown node type")

// Descriptor describes one node type.
type Descriptor struct {
	// Type is the tag node declarations refer to.
	Type string
	// New builds a node instance from its declaration. It is called on every
	// evaluation step, so implementations hold no per-session state.
	New func(decl domain.NodeDecl) (domain.Node, error)
	// Check validates a declaration's configuration without building a node or
	// touching its collaborators. Nil skips the check.
	Check func(decl domain.NodeDecl) error
	// Outcomes lists the outcomes a declaration can produce. Nil skips the wiring check.
	Outcomes func(decl domain.NodeDecl) ([]string, error)
	// LevelDelta reports the static auth level effect. Nil means unknown.
	LevelDelta func(decl domain.NodeDecl) (int, bool)
}

// Registry manages the available node types.
// It implements domain.NodeFactory and domain.LevelAnalyzer.
type Registry struct {
	mu    sync.RWMutex
	types map[string]Descriptor
}

// New creates a new empty registry.
func New() *Registry {
	return &Registry{
		types: make(map[string]Descriptor),
	}
}

// Register adds a node type to the registry.
// If a type with the same tag exists, it is overwritten.
func (r *Registry) Register(d Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[d.Type] = d
}

// Types returns the registered type tags, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.types))
	for t := range r.types {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func (r *Registry) lookup(nodeType string) (Descriptor, error) {
	r.mu.RLock()
	d, ok := r.types[nodeType]
	r.mu.RUnlock()
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %s", ErrUnknownType, nodeType)
	}
	return d, nil
}

// NewNode looks up the declaration's type and constructs a node.
func (r *Registry) NewNode(decl domain.NodeDecl) (domain.Node, error) {
	d, err := r.lookup(decl.Type)
	if err != nil {
		return nil, err
	}
	return d.New(decl)
}

// LevelDelta reports the static auth level effect of decl.
// Unknown types and types without an analyzer report known=false.
func (r *Registry) LevelDelta(decl domain.NodeDecl) (int, bool) {
	d, err := r.lookup(decl.Type)
	if err != nil || d.LevelDelta == nil {
		return 0, false
	}
	return d.LevelDelta(decl)
}

// Outcomes returns the outcomes decl can produce, or nil if the type does not say.
func (r *Registry) Outcomes(decl domain.NodeDecl) ([]string, error) {
	d, err := r.lookup(decl.Type)
	if err != nil {
		return nil, err
	}
	if d.Outcomes == nil {
		return nil, nil
	}
	return d.Outcomes(decl)
}

// Validate checks that every node of tree has a registered type, a valid
// configuration, and a connection for every outcome it can produce.
// No node is constructed: missing collaborators surface when the node runs.
func (r *Registry) Validate(tree *domain.Tree) error {
	var problems []error
	for _, id := range tree.NodeIDs() {
		decl, _ := tree.Node(id)
		d, err := r.lookup(decl.Type)
		if err != nil {
			problems = append(problems, fmt.Errorf("node '%s': %w", id, err))
			continue
		}
		if d.Check != nil {
			if err := d.Check(decl); err != nil {
				problems = append(problems, fmt.Errorf("node '%s': %w", id, err))
				continue
			}
		}
		outcomes, err := r.Outcomes(decl)
		if err != nil {
			problems = append(problems, fmt.Errorf("node '%s': %w", id, err))
			continue
		}
		edges := tree.Connections(id)
		for _, outcome := range outcomes {
			if _, ok := edges[outcome]; !ok {
				problems = append(problems, fmt.Errorf("node '%s' outcome '%s' is not connected", id, outcome))
			}
		}
	}
	if len(problems) > 0 {
		return &domain.ConfigError{Tree: tree.Name(), Reason: "tree does not match its node types", Err: errors.Join(problems...)}
	}
	return nil
}

// Decode decodes a raw node configuration into out. Values are weakly typed so YAML
// and JSON numbers both decode into ints; unknown keys are rejected.
func Decode(raw map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(raw)
}
