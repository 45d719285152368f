/*
Package domain contains the core domain models of the authentication tree engine.

It defines the graph (Tree, NodeDecl), the per-session execution snapshot
(TreeState), the node contract (Node, Action, Callback, Request) and the error
taxonomy. This package is kept pure and free of external dependencies like I/O or
persistence, following Hexagonal Architecture principles.

# Key Entities

  - Tree: An immutable graph of node declarations, outcome-keyed connections and one entry node.
  - TreeState: Shared (durable), transient (one pass) and private (per node) state plus the audit trail.
  - NodeState: The read-only, copied view a node receives.
  - Action: What a node returns: an outcome or callbacks, plus state mutations.
  - TreeResult: TRUE, FALSE or NEED_INPUT with the callbacks to relay.
*/
package domain
