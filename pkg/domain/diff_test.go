package domain

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestDiff(t *testing.T) {
	tests := []struct {
		name     string
		old      *TreeState
		new      *TreeState
		wantDiff *StateDiff // nil means we expect no diff
	}{
		{
			name: "Initial Load (Old is Nil)",
			old:  nil,
			new: &TreeState{
				CurrentNodeID: "start",
				Shared:        map[string]any{"a": 1},
				Visited:       []string{"start"},
			},
			wantDiff: &StateDiff{
				CurrentNodeID: &[]string{"start"}[0],
				Shared:        map[string]any{"a": 1},
				Visited:       []string{"start"},
			},
		},
		{
			name: "No Changes",
			old: &TreeState{
				CurrentNodeID: "start",
				Shared:        map[string]any{"a": 1},
				Visited:       []string{"start"},
			},
			new: &TreeState{
				CurrentNodeID: "start",
				Shared:        map[string]any{"a": 1},
				Visited:       []string{"start"},
			},
			wantDiff: nil,
		},
		{
			name: "Shared Added & Modified",
			old: &TreeState{
				CurrentNodeID: "mid",
				Shared:        map[string]any{"a": 1, "b": "old"},
			},
			new: &TreeState{
				CurrentNodeID: "mid",
				Shared:        map[string]any{"a": 1, "b": "new", "c": true},
			},
			wantDiff: &StateDiff{
				Shared: map[string]any{"b": "new", "c": true},
			},
		},
		{
			name: "Visited Append",
			old: &TreeState{
				CurrentNodeID: "start",
				Visited:       []string{"start"},
			},
			new: &TreeState{
				CurrentNodeID: "next",
				Visited:       []string{"start", "next"},
			},
			wantDiff: &StateDiff{
				CurrentNodeID: &[]string{"next"}[0],
				Visited:       []string{"next"},
			},
		},
		{
			name: "Shared Deletion",
			old: &TreeState{
				Shared: map[string]any{"a": 1, "b": 2},
			},
			new: &TreeState{
				Shared: map[string]any{"a": 1},
			},
			wantDiff: &StateDiff{
				Shared: map[string]any{"b": nil},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.old, tt.new)
			if tt.wantDiff == nil {
				if got != nil {
					t.Errorf("Diff() = %v, want nil", got)
				}
				return
			}

			if got == nil {
				t.Fatalf("Diff() = nil, want %v", tt.wantDiff)
			}
			if !reflect.DeepEqual(got.Shared, tt.wantDiff.Shared) {
				t.Errorf("Diff().Shared = %v, want %v", got.Shared, tt.wantDiff.Shared)
			}
			if !reflect.DeepEqual(got.Visited, tt.wantDiff.Visited) {
				t.Errorf("Diff().Visited = %v, want %v", got.Visited, tt.wantDiff.Visited)
			}
			if !equalPtr(got.CurrentNodeID, tt.wantDiff.CurrentNodeID) {
				t.Errorf("Diff().CurrentNodeID = %v, want %v", got.CurrentNodeID, tt.wantDiff.CurrentNodeID)
			}
		})
	}
}

func TestDiff_TransientValuesWithheld(t *testing.T) {
	old := &TreeState{Transient: map[string]any{}}
	new := &TreeState{Transient: map[string]any{KeyPassword: "hunter2"}}

	diff := Diff(old, new)
	if diff == nil {
		t.Fatal("Expected diff, got nil")
	}
	if !reflect.DeepEqual(diff.TransientKeys, []string{KeyPassword}) {
		t.Errorf("TransientKeys = %v, want [%s]", diff.TransientKeys, KeyPassword)
	}

	bytes, _ := json.Marshal(diff)
	if strings.Contains(string(bytes), "hunter2") {
		t.Errorf("JSON must not contain transient values, got: %s", string(bytes))
	}
}

func TestDiffJSONSerialization(t *testing.T) {
	t.Run("Deletions as Null", func(t *testing.T) {
		s1 := &TreeState{Shared: map[string]any{"a": 1, "b": 2}}
		s2 := &TreeState{Shared: map[string]any{"a": 1}}
		diff := Diff(s1, s2)

		if diff == nil {
			t.Fatal("Expected diff, got nil")
		}

		bytes, _ := json.Marshal(diff)
		if !strings.Contains(string(bytes), `"b":null`) {
			t.Errorf("JSON should contain 'b':null for deletion, got: %s", string(bytes))
		}
	})
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}
