package observability

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/aretw0/authtree/pkg/domain"
)

// Compose merges several hook sets into one. Callbacks run in argument order.
func Compose(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var enter, leave []func(context.Context, *domain.NodeEvent)
	var complete []func(context.Context, *domain.TreeEvent)
	for _, s := range sets {
		if s.OnNodeEnter != nil {
			enter = append(enter, s.OnNodeEnter)
		}
		if s.OnNodeLeave != nil {
			leave = append(leave, s.OnNodeLeave)
		}
		if s.OnTreeComplete != nil {
			complete = append(complete, s.OnTreeComplete)
		}
	}

	var out domain.LifecycleHooks
	if len(enter) > 0 {
		out.OnNodeEnter = func(ctx context.Context, e *domain.NodeEvent) {
			for _, fn := range enter {
				fn(ctx, e)
			}
		}
	}
	if len(leave) > 0 {
		out.OnNodeLeave = func(ctx context.Context, e *domain.NodeEvent) {
			for _, fn := range leave {
				fn(ctx, e)
			}
		}
	}
	if len(complete) > 0 {
		out.OnTreeComplete = func(ctx context.Context, e *domain.TreeEvent) {
			for _, fn := range complete {
				fn(ctx, e)
			}
		}
	}
	return out
}

// AuditHooks logs every transition. Node events go out at debug level, terminal
// results at info. State values are never logged, only the keys that changed.
func AuditHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_enter",
				"tree", e.Tree,
				"node_id", e.NodeID,
				"node_type", e.NodeType)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			attrs := []any{
				"tree", e.Tree,
				"node_id", e.NodeID,
				"node_type", e.NodeType,
			}
			if e.Suspended {
				attrs = append(attrs, "suspended", true)
			} else {
				attrs = append(attrs, "outcome", e.Outcome)
			}
			if keys := changedKeys(e.Diff); len(keys) > 0 {
				attrs = append(attrs, "changed", keys)
			}
			logger.DebugContext(ctx, "node_leave", attrs...)
		},
		OnTreeComplete: func(ctx context.Context, e *domain.TreeEvent) {
			logger.InfoContext(ctx, "tree_complete",
				"tree", e.Tree,
				"result", string(e.Result),
				"identity", e.Identity,
				"visited", e.Visited)
		},
	}
}

func changedKeys(diff *domain.StateDiff) []string {
	if diff == nil {
		return nil
	}
	keys := make([]string, 0, len(diff.Shared)+len(diff.TransientKeys))
	for k := range diff.Shared {
		keys = append(keys, k)
	}
	keys = append(keys, diff.TransientKeys...)
	sort.Strings(keys)
	return keys
}

// Recorder keeps every event it sees, in order.
type Recorder struct {
	mu    sync.Mutex
	nodes []domain.NodeEvent
	trees []domain.TreeEvent
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Hooks returns the callbacks feeding the recorder.
func (r *Recorder) Hooks() domain.LifecycleHooks {
	record := func(_ context.Context, e *domain.NodeEvent) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.nodes = append(r.nodes, *e)
	}
	return domain.LifecycleHooks{
		OnNodeEnter: record,
		OnNodeLeave: record,
		OnTreeComplete: func(_ context.Context, e *domain.TreeEvent) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.trees = append(r.trees, *e)
		},
	}
}

// NodeEvents returns a copy of the recorded node events.
func (r *Recorder) NodeEvents() []domain.NodeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.NodeEvent(nil), r.nodes...)
}

// TreeEvents returns a copy of the recorded terminal events.
func (r *Recorder) TreeEvents() []domain.TreeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.TreeEvent(nil), r.trees...)
}

// Path lists the node IDs that completed, in order.
func (r *Recorder) Path() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var path []string
	for _, e := range r.nodes {
		if e.Type == domain.EventNodeLeave && !e.Suspended {
			path = append(path, e.NodeID)
		}
	}
	return path
}
