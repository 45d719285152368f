package realm

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/authtree/pkg/domain"
	"github.com/aretw0/authtree/pkg/dsl"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Terminal aliases accepted in connections. The terminal sentinel IDs are
// accepted as well.
const (
	AliasSuccess = "success"
	AliasFailure = "failure"
)

// TreeDefinition is the on-disk shape of one tree:
//
//	name: login
//	entry: user
//	nodes:
//	  user:
//	    type: UsernameCollector
//	    connections: {outcome: pass}
//	  pass:
//	    type: PasswordCollector
//	    connections: {outcome: check}
//	  check:
//	    type: DataStoreDecision
//	    connections: {"true": success, "false": failure}
type TreeDefinition struct {
	Name  string                    `json:"name"`
	Entry string                    `json:"entry"`
	Nodes map[string]NodeDefinition `json:"nodes"`
}

// NodeDefinition declares one node and its outgoing connections.
type NodeDefinition struct {
	Type        string            `json:"type"`
	DisplayName string            `json:"display_name"`
	Config      map[string]any    `json:"config"`
	Connections map[string]string `json:"connections"`
}

// Parse decodes a tree definition. The format is picked from the file extension
// (.json, otherwise YAML).
func Parse(filename string, data []byte) (*TreeDefinition, error) {
	var raw map[string]any
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse yaml: %w", err)
		}
	}

	var def TreeDefinition
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &def,
		TagName:          "json",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode tree definition: %w", err)
	}
	return &def, nil
}

// Build turns the definition into an immutable tree.
func (d *TreeDefinition) Build() (*domain.Tree, error) {
	// Map order is not stable, so the builder's first-node default cannot apply.
	if d.Entry == "" {
		return nil, domain.NewConfigError(d.Name, "", "entry is required")
	}
	for id := range d.Nodes {
		if id == AliasSuccess || id == AliasFailure {
			return nil, domain.NewConfigError(d.Name, id, "node id '%s' is reserved for a terminal", id)
		}
	}
	b := dsl.New(d.Name).Entry(d.Entry)

	ids := make([]string, 0, len(d.Nodes))
	for id := range d.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		def := d.Nodes[id]
		n := b.Add(id).Type(def.Type)
		if def.DisplayName != "" {
			n.Named(def.DisplayName)
		}
		for k, v := range def.Config {
			n.Config(k, v)
		}
		for outcome, target := range def.Connections {
			n.On(outcome, resolveAlias(target))
		}
	}
	return b.Build()
}

// Definition renders a built tree back into its on-disk shape.
func Definition(tree *domain.Tree) *TreeDefinition {
	def := &TreeDefinition{
		Name:  tree.Name(),
		Entry: tree.EntryNodeID(),
		Nodes: make(map[string]NodeDefinition),
	}
	for _, id := range tree.NodeIDs() {
		decl, _ := tree.Node(id)
		def.Nodes[id] = NodeDefinition{
			Type:        decl.Type,
			DisplayName: decl.DisplayName,
			Config:      domain.CloneDocument(decl.Config),
			Connections: aliasTerminals(tree.Connections(id)),
		}
	}
	return def
}

func resolveAlias(target string) string {
	switch target {
	case AliasSuccess:
		return domain.SuccessNodeID
	case AliasFailure:
		return domain.FailureNodeID
	}
	return target
}

func aliasTerminals(edges map[string]string) map[string]string {
	for outcome, target := range edges {
		switch target {
		case domain.SuccessNodeID:
			edges[outcome] = AliasSuccess
		case domain.FailureNodeID:
			edges[outcome] = AliasFailure
		}
	}
	return edges
}
