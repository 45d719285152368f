/*
Package nodes implements the built-in node types.

Every node receives its collaborators explicitly through Deps; none of them reach for
global state. RegisterBuiltins wires all types into a registry:

	reg := registry.New()
	exec := runtime.NewExecutor(reg)
	nodes.RegisterBuiltins(reg, nodes.Deps{Trees: cache, Processor: exec})

Two node types carry the interesting engine semantics: ChoiceCollector prunes choices
whose branch can never reach success at the session's target auth level, and
InnerTreeEvaluator runs a whole tree as a single node.
*/
package nodes
