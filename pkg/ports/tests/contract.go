package tests

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/authtree/pkg/domain"
	"github.com/aretw0/authtree/pkg/ports"
)

// TreeSourceContractTest is a reusable test suite that verifies if an adapter complies with ports.TreeSource.
// want maps each tree name the source must serve to its expected entry node.
func TreeSourceContractTest(t *testing.T, source ports.TreeSource, want map[string]string) {
	t.Helper()
	ctx := context.Background()

	t.Run("LoadTree_Success", func(t *testing.T) {
		for name, entry := range want {
			tree, err := source.LoadTree(ctx, name)
			if err != nil {
				t.Fatalf("unexpected error loading tree %s: %v", name, err)
			}
			if tree.Name() != name {
				t.Errorf("name mismatch: got %q, want %q", tree.Name(), name)
			}
			if tree.EntryNodeID() != entry {
				t.Errorf("entry mismatch for %s: got %q, want %q", name, tree.EntryNodeID(), entry)
			}
		}
	})

	t.Run("LoadTree_NotFound", func(t *testing.T) {
		_, err := source.LoadTree(ctx, "non-existent-tree")
		if !errors.Is(err, domain.ErrTreeNotFound) {
			t.Errorf("expected ErrTreeNotFound, got %v", err)
		}
	})

	t.Run("ListTrees", func(t *testing.T) {
		names, err := source.ListTrees(ctx)
		if err != nil {
			t.Fatalf("unexpected error listing trees: %v", err)
		}
		listed := make(map[string]bool, len(names))
		for _, n := range names {
			listed[n] = true
		}
		for name := range want {
			if !listed[name] {
				t.Errorf("expected %s in ListTrees, got %v", name, names)
			}
		}
	})
}
