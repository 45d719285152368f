/*
Package dsl provides a Go DSL for programmatically constructing authentication trees.

It lets developers define flows with a fluent builder instead of YAML or JSON realm
files. This is particularly useful for embedding, unit testing and generated trees.

Example usage:

	b := dsl.New("login")

	b.Add("user").Type("UsernameCollector").To("pass")
	b.Add("pass").Type("PasswordCollector").To("check")
	b.Add("check").Type("DataStoreDecision").
		True(dsl.Success).
		False(dsl.Failure)

	tree, err := b.Build()

Build rejects dangling edges, a missing entry node and nodes without connections.
Whether every outcome a node can produce is connected depends on the node type and
is checked by the registry.
*/
package dsl
