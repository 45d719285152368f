package domain

import "context"

// Node is one pluggable step of an authentication flow.
// Implementations must not keep references to the state they are given: everything
// they want to change goes through the returned Action.
type Node interface {
	Process(ctx context.Context, req *Request, state NodeState) (Action, error)
}

// NodeFunc adapts a function to the Node interface.
type NodeFunc func(ctx context.Context, req *Request, state NodeState) (Action, error)

// Process calls f.
func (f NodeFunc) Process(ctx context.Context, req *Request, state NodeState) (Action, error) {
	return f(ctx, req, state)
}

// Input declares a state key a node expects an earlier node to have populated.
type Input struct {
	Key      string
	Required bool
}

// InputDeclarer is implemented by nodes that declare their inputs.
type InputDeclarer interface {
	Inputs() []Input
}

// HookRef names a node whose tree hook is pending. Tree is the tree that declares
// the node; it differs from the evaluated tree for hooks registered inside an
// inner tree.
type HookRef struct {
	Tree   string `json:"tree"`
	NodeID string `json:"node_id"`
}

type nestedKey struct{}

// NestedEvaluation marks ctx as belonging to a tree evaluated inside another one.
// Tree hooks of a nested evaluation are left to the enclosing evaluation.
func NestedEvaluation(ctx context.Context) context.Context {
	return context.WithValue(ctx, nestedKey{}, true)
}

// IsNestedEvaluation reports whether ctx was marked by NestedEvaluation.
func IsNestedEvaluation(ctx context.Context) bool {
	nested, _ := ctx.Value(nestedKey{}).(bool)
	return nested
}

// HookContext is passed to tree hooks once the overall evaluation has terminated.
// Tree and NodeID name the hook's node; Result and State are those of the
// outermost tree.
type HookContext struct {
	Tree   string
	NodeID string
	Result ResultKind
	State  *TreeState
}

// TreeHook is implemented by nodes that need a side effect only once the whole
// tree has reached a terminal (e.g. issue a cookie, link an account).
type TreeHook interface {
	OnTreeComplete(ctx context.Context, hc HookContext) error
}

// NodeFactory constructs node instances from their declarations.
// Whether instances are shared or per-evaluation is the factory's business.
type NodeFactory interface {
	NewNode(decl NodeDecl) (Node, error)
}

// LevelAnalyzer reports the static auth level effect of a declared node.
// known is false when the effect cannot be determined without running the node.
type LevelAnalyzer interface {
	LevelDelta(decl NodeDecl) (delta int, known bool)
}

// Request carries the inbound data of one Process call.
type Request struct {
	// Tree is the tree being evaluated. Nodes may inspect it read-only.
	Tree *Tree
	// NodeID is the node currently processing.
	NodeID string
	// Callbacks holds the user's answers. Only the first node of a Process call sees them.
	Callbacks []Callback

	Parameters map[string][]string
	Headers    map[string][]string
	ClientIP   string
}

// Callback returns the first answered callback of type t.
func (r *Request) Callback(t CallbackType) (Callback, bool) {
	if r == nil {
		return Callback{}, false
	}
	return FindCallback(r.Callbacks, t)
}

// HasCallbacks reports whether the request carries any answers.
func (r *Request) HasCallbacks() bool {
	return r != nil && len(r.Callbacks) > 0
}

// Parameter returns the first value of a request parameter.
func (r *Request) Parameter(name string) string {
	if r == nil {
		return ""
	}
	if vals := r.Parameters[name]; len(vals) > 0 {
		return vals[0]
	}
	return ""
}

// ResultKind is the coarse result the executor reports to its caller.
type ResultKind string

const (
	ResultTrue      ResultKind = "TRUE"
	ResultFalse     ResultKind = "FALSE"
	ResultNeedInput ResultKind = "NEED_INPUT"
)

// TreeResult is the outcome of one Process call.
type TreeResult struct {
	Kind      ResultKind
	Callbacks []Callback
	State     *TreeState
}

// IsTerminal reports whether the evaluation finished.
func (r *TreeResult) IsTerminal() bool {
	return r.Kind == ResultTrue || r.Kind == ResultFalse
}
