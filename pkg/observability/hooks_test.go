package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/aretw0/authtree/pkg/domain"
	"github.com/aretw0/authtree/pkg/observability"
	"github.com/stretchr/testify/assert"
)

func TestCompose_RunsInOrder(t *testing.T) {
	var calls []string
	mk := func(name string) domain.LifecycleHooks {
		return domain.LifecycleHooks{
			OnNodeEnter: func(context.Context, *domain.NodeEvent) { calls = append(calls, name+":enter") },
			OnTreeComplete: func(context.Context, *domain.TreeEvent) {
				calls = append(calls, name+":complete")
			},
		}
	}

	hooks := observability.Compose(mk("a"), domain.LifecycleHooks{}, mk("b"))
	assert.Nil(t, hooks.OnNodeLeave, "no consumer registered for node_leave")

	ctx := context.Background()
	hooks.OnNodeEnter(ctx, &domain.NodeEvent{})
	hooks.OnTreeComplete(ctx, &domain.TreeEvent{})
	assert.Equal(t, []string{"a:enter", "b:enter", "a:complete", "b:complete"}, calls)
}

func TestAuditHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	hooks := observability.AuditHooks(logger)
	ctx := context.Background()

	hooks.OnNodeLeave(ctx, &domain.NodeEvent{
		EventBase: domain.EventBase{Type: domain.EventNodeLeave, Tree: "login"},
		NodeID:    "pass",
		NodeType:  "PasswordCollector",
		Outcome:   "outcome",
		Diff: &domain.StateDiff{
			Shared:        map[string]any{"username": "bob"},
			TransientKeys: []string{"password"},
		},
	})
	hooks.OnTreeComplete(ctx, &domain.TreeEvent{
		EventBase: domain.EventBase{Type: domain.EventTreeComplete, Tree: "login"},
		Result:    domain.ResultTrue,
		Identity:  "bob",
	})

	out := buf.String()
	assert.Contains(t, out, "msg=node_leave")
	assert.Contains(t, out, "node_id=pass")
	assert.Contains(t, out, "changed=\"[password username]\"")
	assert.NotContains(t, out, "s3cret")
	assert.Contains(t, out, "msg=tree_complete")
	assert.Contains(t, out, "result=TRUE")
}

func TestRecorder(t *testing.T) {
	rec := observability.NewRecorder()
	hooks := rec.Hooks()
	ctx := context.Background()

	leave := func(id string, suspended bool) *domain.NodeEvent {
		return &domain.NodeEvent{EventBase: domain.EventBase{Type: domain.EventNodeLeave}, NodeID: id, Suspended: suspended}
	}
	hooks.OnNodeEnter(ctx, &domain.NodeEvent{EventBase: domain.EventBase{Type: domain.EventNodeEnter}, NodeID: "user"})
	hooks.OnNodeLeave(ctx, leave("user", true))
	hooks.OnNodeLeave(ctx, leave("user", false))
	hooks.OnNodeLeave(ctx, leave("pass", false))
	hooks.OnTreeComplete(ctx, &domain.TreeEvent{Result: domain.ResultFalse})

	assert.Len(t, rec.NodeEvents(), 4)
	assert.Equal(t, []string{"user", "pass"}, rec.Path())
	assert.Equal(t, domain.ResultFalse, rec.TreeEvents()[0].Result)
}
