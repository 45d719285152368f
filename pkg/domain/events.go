package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeEnter    EventType = "node_enter"
	EventNodeLeave    EventType = "node_leave"
	EventTreeComplete EventType = "tree_complete"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Tree      string    `json:"tree"`
}

// NodeEvent represents entry into or exit from a node.
// Outcome is empty and Suspended is true when the node asked for input.
type NodeEvent struct {
	EventBase
	NodeID    string     `json:"node_id"`
	NodeType  string     `json:"node_type"`
	Outcome   string     `json:"outcome,omitempty"`
	Suspended bool       `json:"suspended,omitempty"`
	Diff      *StateDiff `json:"diff,omitempty"`
}

// TreeEvent is emitted once an evaluation reaches a terminal.
type TreeEvent struct {
	EventBase
	Result   ResultKind `json:"result"`
	Visited  []string   `json:"visited"`
	Identity string     `json:"identity,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnNodeEnter    func(context.Context, *NodeEvent)
	OnNodeLeave    func(context.Context, *NodeEvent)
	OnTreeComplete func(context.Context, *TreeEvent)
}
