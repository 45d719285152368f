package domain

import (
	"fmt"
	"sort"
)

// Terminal sentinels. They are valid edge destinations but never resolve to a node.
const (
	SuccessNodeID = "70e691a5-1e33-4ac3-a356-e7b6d60d92e0"
	FailureNodeID = "e301438c-0bd0-429c-ab0c-66126501069a"
)

// IsTerminal reports whether id is one of the terminal sentinels.
func IsTerminal(id string) bool {
	return id == SuccessNodeID || id == FailureNodeID
}

// NodeDecl is the declaration of a node inside a tree: its identity, the registered
// type tag used to construct it, and its raw configuration.
type NodeDecl struct {
	ID          string         `json:"id" yaml:"id"`
	Type        string         `json:"type" yaml:"type"`
	DisplayName string         `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	Config      map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

// Tree is an immutable authentication flow: node declarations, outcome-keyed
// connections, and one entry node. Once built it is safe for concurrent reads.
type Tree struct {
	name        string
	entryNodeID string
	nodes       map[string]NodeDecl
	connections map[string]map[string]string
}

// NewTree assembles a tree from already-validated parts. The maps are copied.
// Most callers should use the dsl package, which validates before calling this.
func NewTree(name, entryNodeID string, nodes []NodeDecl, connections map[string]map[string]string) *Tree {
	t := &Tree{
		name:        name,
		entryNodeID: entryNodeID,
		nodes:       make(map[string]NodeDecl, len(nodes)),
		connections: make(map[string]map[string]string, len(connections)),
	}
	for _, n := range nodes {
		n.Config = CloneDocument(n.Config)
		t.nodes[n.ID] = n
	}
	for from, edges := range connections {
		copied := make(map[string]string, len(edges))
		for outcome, to := range edges {
			copied[outcome] = to
		}
		t.connections[from] = copied
	}
	return t
}

// Name returns the tree name.
func (t *Tree) Name() string { return t.name }

// EntryNodeID returns the node where evaluation starts.
func (t *Tree) EntryNodeID() string { return t.entryNodeID }

// Node returns the declaration for id.
func (t *Tree) Node(id string) (NodeDecl, bool) {
	n, ok := t.nodes[id]
	if !ok {
		return NodeDecl{}, false
	}
	n.Config = CloneDocument(n.Config)
	return n, true
}

// HasNode reports whether id is declared in the tree.
func (t *Tree) HasNode(id string) bool {
	_, ok := t.nodes[id]
	return ok
}

// NodeIDs returns the declared node IDs in a deterministic order.
func (t *Tree) NodeIDs() []string {
	ids := make([]string, 0, len(t.nodes))
	for id := range t.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Connections returns a copy of the outcome → destination map for nodeID.
func (t *Tree) Connections(nodeID string) map[string]string {
	edges := t.connections[nodeID]
	out := make(map[string]string, len(edges))
	for k, v := range edges {
		out[k] = v
	}
	return out
}

// Resolve maps (nodeID, outcome) to the next node ID or a terminal sentinel.
// An unknown node or an unmapped outcome is a ConfigError.
func (t *Tree) Resolve(nodeID, outcome string) (string, error) {
	if !t.HasNode(nodeID) {
		return "", NewConfigError(t.name, nodeID, "node is not declared")
	}
	next, ok := t.connections[nodeID][outcome]
	if !ok {
		return "", NewConfigError(t.name, nodeID, "outcome '%s' has no connection", outcome)
	}
	return next, nil
}

// Unreachable lists declared nodes that cannot be reached from the entry node.
func (t *Tree) Unreachable() []string {
	seen := map[string]bool{}
	queue := []string{t.entryNodeID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] || IsTerminal(id) {
			continue
		}
		seen[id] = true
		for _, to := range t.connections[id] {
			if !seen[to] {
				queue = append(queue, to)
			}
		}
	}

	var out []string
	for _, id := range t.NodeIDs() {
		if !seen[id] {
			out = append(out, id)
		}
	}
	return out
}

func (t *Tree) String() string {
	return fmt.Sprintf("Tree(%s, entry=%s, nodes=%d)", t.name, t.entryNodeID, len(t.nodes))
}
