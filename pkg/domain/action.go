package domain

import (
	"errors"
	"fmt"
)

// Action is what a node hands back to the executor after processing.
// Exactly one of Outcome or Callbacks is set: a node either completes with an
// outcome or suspends asking for more input.
//
// The With* helpers return modified copies so actions can be chained without aliasing:
//
//	return domain.Goto("true").WithShared(domain.KeyUsername, name).WithIdentity(name), nil
type Action struct {
	Outcome   string
	Callbacks []Callback

	// ReplaceShared, when non-nil, replaces the whole shared document before
	// SharedRemovals and SharedUpdates are applied.
	ReplaceShared  map[string]any
	SharedUpdates  map[string]any
	SharedRemovals []string

	TransientUpdates map[string]any

	// PrivateUpdates are written to the producing node's private namespace.
	// ClearPrivate drops the namespace first.
	PrivateUpdates map[string]any
	ClearPrivate   bool

	SessionProperties map[string]string
	Identity          string

	// TreeHook asks the executor to run the node's TreeHook once the tree terminates.
	TreeHook bool
	// InheritedHooks are pending hooks handed up from a finished inner tree.
	InheritedHooks []HookRef
}

// Goto builds an action that completes the node with outcome.
func Goto(outcome string) Action {
	return Action{Outcome: outcome}
}

// Send builds an action that suspends the evaluation with the given callbacks.
func Send(callbacks ...Callback) Action {
	return Action{Callbacks: callbacks}
}

// IsSuspend reports whether the action requests input.
func (a Action) IsSuspend() bool {
	return len(a.Callbacks) > 0
}

// Validate enforces the outcome/callbacks exclusivity.
func (a Action) Validate() error {
	hasOutcome := a.Outcome != ""
	hasCallbacks := len(a.Callbacks) > 0
	switch {
	case hasOutcome && hasCallbacks:
		return fmt.Errorf("action has both outcome '%s' and %d callbacks", a.Outcome, len(a.Callbacks))
	case !hasOutcome && !hasCallbacks:
		return errors.New("action has neither outcome nor callbacks")
	}
	return nil
}

// WithShared sets a shared state key.
func (a Action) WithShared(key string, value any) Action {
	a.SharedUpdates = copyWith(a.SharedUpdates, key, value)
	return a
}

// WithoutShared removes shared state keys.
func (a Action) WithoutShared(keys ...string) Action {
	a.SharedRemovals = append(append([]string(nil), a.SharedRemovals...), keys...)
	return a
}

// ReplacingShared replaces the entire shared document.
func (a Action) ReplacingShared(doc map[string]any) Action {
	a.ReplaceShared = CloneDocument(doc)
	if a.ReplaceShared == nil {
		a.ReplaceShared = make(map[string]any)
	}
	return a
}

// WithTransient sets a transient state key.
func (a Action) WithTransient(key string, value any) Action {
	a.TransientUpdates = copyWith(a.TransientUpdates, key, value)
	return a
}

// WithPrivate sets a key in the producing node's private namespace.
func (a Action) WithPrivate(key string, value any) Action {
	a.PrivateUpdates = copyWith(a.PrivateUpdates, key, value)
	return a
}

// WithoutPrivate clears the producing node's private namespace.
func (a Action) WithoutPrivate() Action {
	a.ClearPrivate = true
	a.PrivateUpdates = nil
	return a
}

// WithSessionProperty attaches a property to the session created on success.
func (a Action) WithSessionProperty(key, value string) Action {
	props := make(map[string]string, len(a.SessionProperties)+1)
	for k, v := range a.SessionProperties {
		props[k] = v
	}
	props[key] = value
	a.SessionProperties = props
	return a
}

// WithIdentity binds the identified principal.
func (a Action) WithIdentity(id string) Action {
	a.Identity = id
	return a
}

// WithTreeHook registers the node's TreeHook for the end of the evaluation.
func (a Action) WithTreeHook() Action {
	a.TreeHook = true
	return a
}

// WithInheritedHooks carries the pending hooks of a finished inner tree into the
// enclosing evaluation.
func (a Action) WithInheritedHooks(refs ...HookRef) Action {
	a.InheritedHooks = append(append([]HookRef(nil), a.InheritedHooks...), refs...)
	return a
}

func copyWith(src map[string]any, key string, value any) map[string]any {
	out := make(map[string]any, len(src)+1)
	for k, v := range src {
		out[k] = v
	}
	out[key] = value
	return out
}
