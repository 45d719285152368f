package dsl

import "github.com/aretw0/authtree/pkg/domain"

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	decl    domain.NodeDecl
	edges   map[string]string
	builder *Builder
}

// ID returns the node ID (useful with generated IDs).
func (n *NodeBuilder) ID() string {
	return n.decl.ID
}

// Type sets the registered node type tag.
func (n *NodeBuilder) Type(nodeType string) *NodeBuilder {
	n.decl.Type = nodeType
	return n
}

// Named sets a human readable display name.
func (n *NodeBuilder) Named(name string) *NodeBuilder {
	n.decl.DisplayName = name
	return n
}

// Config sets one configuration value of the node.
func (n *NodeBuilder) Config(key string, value any) *NodeBuilder {
	if n.decl.Config == nil {
		n.decl.Config = make(map[string]any)
	}
	n.decl.Config[key] = value
	return n
}

// On connects outcome to the target node or terminal.
func (n *NodeBuilder) On(outcome, target string) *NodeBuilder {
	n.edges[outcome] = target
	return n
}

// To connects the single "outcome" outcome used by pass-through nodes.
func (n *NodeBuilder) To(target string) *NodeBuilder {
	return n.On("outcome", target)
}

// True connects the "true" outcome.
func (n *NodeBuilder) True(target string) *NodeBuilder {
	return n.On("true", target)
}

// False connects the "false" outcome.
func (n *NodeBuilder) False(target string) *NodeBuilder {
	return n.On("false", target)
}

// Builder returns the owning tree builder to continue chaining.
func (n *NodeBuilder) Builder() *Builder {
	return n.builder
}
