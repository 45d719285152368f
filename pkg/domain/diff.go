package domain

import (
	"reflect"
)

// StateDiff represents the changes one step made to a TreeState.
// It is attached to node events so audit sinks can record what each node did
// without holding on to whole documents.
type StateDiff struct {
	CurrentNodeID *string `json:"current_node_id,omitempty"`

	// Shared contains only changed, added or deleted keys.
	// For deletions, the key is present with a nil value.
	Shared map[string]any `json:"shared,omitempty"`

	// TransientKeys lists transient keys that changed. Values are withheld.
	TransientKeys []string `json:"transient_keys,omitempty"`

	// Visited contains nodes appended to the audit trail.
	Visited []string `json:"visited,omitempty"`

	Identity *string `json:"identity,omitempty"`
}

// Diff calculates the difference between oldState and newState.
// If oldState is nil, it returns a diff representing the entire newState.
func Diff(oldState, newState *TreeState) *StateDiff {
	if newState == nil {
		return nil
	}

	diff := &StateDiff{}

	if oldState == nil || oldState.CurrentNodeID != newState.CurrentNodeID {
		id := newState.CurrentNodeID
		diff.CurrentNodeID = &id
	}
	if (oldState == nil && newState.Identity != "") || (oldState != nil && oldState.Identity != newState.Identity) {
		id := newState.Identity
		diff.Identity = &id
	}

	var oldShared, oldTransient map[string]any
	var oldVisited []string
	if oldState != nil {
		oldShared = oldState.Shared
		oldTransient = oldState.Transient
		oldVisited = oldState.Visited
	}

	diff.Shared = diffDocument(oldShared, newState.Shared)
	for k := range diffDocument(oldTransient, newState.Transient) {
		diff.TransientKeys = append(diff.TransientKeys, k)
	}
	diff.Visited = diffVisited(oldVisited, newState.Visited)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffDocument(old, new map[string]any) map[string]any {
	delta := make(map[string]any)

	for k, newVal := range new {
		oldVal, exists := old[k]
		if !exists || !reflect.DeepEqual(oldVal, newVal) {
			delta[k] = newVal
		}
	}
	for k := range old {
		if _, exists := new[k]; !exists {
			delta[k] = nil
		}
	}

	if len(delta) == 0 {
		return nil
	}
	return delta
}

// diffVisited assumes the audit trail is append-only.
func diffVisited(old, new []string) []string {
	if len(new) > len(old) {
		return append([]string(nil), new[len(old):]...)
	}
	return nil
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *StateDiff) IsEmpty() bool {
	return d.CurrentNodeID == nil &&
		d.Identity == nil &&
		len(d.Shared) == 0 &&
		len(d.TransientKeys) == 0 &&
		len(d.Visited) == 0
}
