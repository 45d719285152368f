package domain

// TreeState is the snapshot of one in-progress tree evaluation.
// The executor never mutates a TreeState in place: each step produces a new value
// through Apply, so a caller holding a previous version can always retry from it.
type TreeState struct {
	// TreeName is the tree this state belongs to.
	TreeName string `json:"tree"`

	// CurrentNodeID is the node awaiting input, or empty before start and after a terminal.
	CurrentNodeID string `json:"current_node_id,omitempty"`

	// Shared is durable across the whole evaluation and round-trips in the continuation.
	Shared map[string]any `json:"shared"`

	// Transient lives for a single Process call. It is never serialized.
	Transient map[string]any `json:"-"`

	// Private holds one namespace per node ID. It survives suspension only through
	// the server-side vault, never through the client-visible continuation.
	Private map[string]map[string]any `json:"private,omitempty"`

	// Visited is the audit trail of nodes that completed with an outcome, in order.
	Visited []string `json:"visited,omitempty"`

	// Hooks lists the nodes whose tree hook runs once the overall evaluation
	// reaches a terminal, in registration order.
	Hooks []HookRef `json:"hooks,omitempty"`

	SessionProperties map[string]string `json:"session_properties,omitempty"`
	Identity          string            `json:"identity,omitempty"`

	// Version increases with every applied step.
	Version int `json:"version"`
}

// NewTreeState creates a clean state for treeName with no current node.
func NewTreeState(treeName string) *TreeState {
	return &TreeState{
		TreeName:  treeName,
		Shared:    make(map[string]any),
		Transient: make(map[string]any),
		Private:   make(map[string]map[string]any),
	}
}

// Clone deep-copies the state.
func (s *TreeState) Clone() *TreeState {
	if s == nil {
		return nil
	}
	next := *s
	next.Shared = CloneDocument(s.Shared)
	if next.Shared == nil {
		next.Shared = make(map[string]any)
	}
	next.Transient = CloneDocument(s.Transient)
	if next.Transient == nil {
		next.Transient = make(map[string]any)
	}
	next.Private = make(map[string]map[string]any, len(s.Private))
	for id, ns := range s.Private {
		next.Private[id] = CloneDocument(ns)
	}
	next.Visited = append([]string(nil), s.Visited...)
	next.Hooks = append([]HookRef(nil), s.Hooks...)
	if s.SessionProperties != nil {
		next.SessionProperties = make(map[string]string, len(s.SessionProperties))
		for k, v := range s.SessionProperties {
			next.SessionProperties[k] = v
		}
	}
	return &next
}

// View returns the scoped accessor a node sees: shared and transient state plus
// its own private namespace, all copied so the node cannot alias the tree state.
func (s *TreeState) View(nodeID string) NodeState {
	return NodeState{
		nodeID:    nodeID,
		shared:    CloneDocument(s.Shared),
		transient: CloneDocument(s.Transient),
		private:   CloneDocument(s.Private[nodeID]),
	}
}

// Apply returns the state that results from nodeID producing action.
// Outcome actions append nodeID to the audit trail; callback actions park the
// evaluation on nodeID. The receiver is left untouched.
func (s *TreeState) Apply(nodeID string, action Action) *TreeState {
	next := s.Clone()
	next.Version++

	if action.ReplaceShared != nil {
		next.Shared = CloneDocument(action.ReplaceShared)
	}
	for _, key := range action.SharedRemovals {
		delete(next.Shared, key)
	}
	for k, v := range action.SharedUpdates {
		next.Shared[k] = cloneValue(v)
	}
	for k, v := range action.TransientUpdates {
		next.Transient[k] = cloneValue(v)
	}
	if len(action.PrivateUpdates) > 0 || action.ClearPrivate {
		ns := next.Private[nodeID]
		if ns == nil || action.ClearPrivate {
			ns = make(map[string]any)
		}
		for k, v := range action.PrivateUpdates {
			ns[k] = cloneValue(v)
		}
		if len(ns) == 0 {
			delete(next.Private, nodeID)
		} else {
			next.Private[nodeID] = ns
		}
	}
	if len(action.SessionProperties) > 0 {
		if next.SessionProperties == nil {
			next.SessionProperties = make(map[string]string, len(action.SessionProperties))
		}
		for k, v := range action.SessionProperties {
			next.SessionProperties[k] = v
		}
	}
	if action.Identity != "" {
		next.Identity = action.Identity
	}
	next.Hooks = append(next.Hooks, action.InheritedHooks...)
	if action.TreeHook {
		next.Hooks = append(next.Hooks, HookRef{Tree: next.TreeName, NodeID: nodeID})
	}

	if action.IsSuspend() {
		next.CurrentNodeID = nodeID
	} else {
		next.Visited = append(next.Visited, nodeID)
	}
	return next
}

// AuthLevel reads the shared auth level, treating an absent key as zero.
func (s *TreeState) AuthLevel() int {
	level, _ := AsInt(s.Shared[KeyAuthLevel])
	return level
}

// NodeState is a node's read-only window onto the tree state.
// Mutations are expressed on the returned Action, never through this view.
type NodeState struct {
	nodeID    string
	shared    map[string]any
	transient map[string]any
	private   map[string]any
}

// NewNodeState builds a view directly; intended for tests of node implementations.
func NewNodeState(nodeID string, shared, transient, private map[string]any) NodeState {
	return NodeState{
		nodeID:    nodeID,
		shared:    CloneDocument(shared),
		transient: CloneDocument(transient),
		private:   CloneDocument(private),
	}
}

// NodeID returns the ID of the node this view is scoped to.
func (v NodeState) NodeID() string { return v.nodeID }

// Get looks the key up in transient state first, then in shared state.
func (v NodeState) Get(key string) (any, bool) {
	if val, ok := v.transient[key]; ok {
		return val, true
	}
	val, ok := v.shared[key]
	return val, ok
}

// Shared returns a shared state value.
func (v NodeState) Shared(key string) (any, bool) {
	val, ok := v.shared[key]
	return val, ok
}

// Transient returns a transient state value.
func (v NodeState) Transient(key string) (any, bool) {
	val, ok := v.transient[key]
	return val, ok
}

// Private returns a value from this node's private namespace.
func (v NodeState) Private(key string) (any, bool) {
	val, ok := v.private[key]
	return val, ok
}

// String returns the value for key (see Get) if it is a string.
func (v NodeState) String(key string) (string, bool) {
	val, ok := v.Get(key)
	if !ok {
		return "", false
	}
	s, ok := val.(string)
	return s, ok
}

// Int returns the value for key (see Get) converted to int.
func (v NodeState) Int(key string) (int, bool) {
	val, ok := v.Get(key)
	if !ok {
		return 0, false
	}
	return AsInt(val)
}

// SharedDocument returns a deep copy of the whole shared document.
func (v NodeState) SharedDocument() map[string]any {
	doc := CloneDocument(v.shared)
	if doc == nil {
		doc = make(map[string]any)
	}
	return doc
}

// TransientDocument returns a deep copy of the whole transient document.
func (v NodeState) TransientDocument() map[string]any {
	doc := CloneDocument(v.transient)
	if doc == nil {
		doc = make(map[string]any)
	}
	return doc
}
