package domain

import "fmt"

// Reserved shared state keys used by the inner tree evaluator to resume a
// suspended inner tree on the next outer request.
const (
	KeyInnerTreeNodeID      = "inner_tree_node_id"
	KeyInnerTreeSharedState = "inner_tree_shared_state"
)

// InnerTreeEnvelope is the typed form of the re-entry data an inner tree
// evaluator parks in the outer shared state while the inner tree is suspended.
type InnerTreeEnvelope struct {
	NodeID      string
	SharedState map[string]any
}

// ReadInnerTreeEnvelope extracts the envelope from a node view.
// found is false on first entry. A half-written or mistyped envelope is an error.
func ReadInnerTreeEnvelope(state NodeState) (env InnerTreeEnvelope, found bool, err error) {
	rawID, hasID := state.Shared(KeyInnerTreeNodeID)
	rawShared, hasShared := state.Shared(KeyInnerTreeSharedState)
	if !hasID && !hasShared {
		return InnerTreeEnvelope{}, false, nil
	}
	if !hasID || !hasShared {
		return InnerTreeEnvelope{}, false, fmt.Errorf("inner tree envelope is incomplete")
	}

	id, ok := rawID.(string)
	if !ok || id == "" {
		return InnerTreeEnvelope{}, false, fmt.Errorf("inner tree node id has type %T", rawID)
	}
	shared, ok := AsDocument(rawShared)
	if !ok {
		return InnerTreeEnvelope{}, false, fmt.Errorf("inner tree shared state has type %T", rawShared)
	}
	return InnerTreeEnvelope{NodeID: id, SharedState: CloneDocument(shared)}, true, nil
}

// Store writes the envelope onto an action.
func (e InnerTreeEnvelope) Store(a Action) Action {
	return a.
		WithShared(KeyInnerTreeNodeID, e.NodeID).
		WithShared(KeyInnerTreeSharedState, CloneDocument(e.SharedState))
}

// ClearInnerTreeEnvelope removes both reserved keys through the action.
func ClearInnerTreeEnvelope(a Action) Action {
	return a.WithoutShared(KeyInnerTreeNodeID, KeyInnerTreeSharedState)
}
