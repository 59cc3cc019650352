// Package scheduler drives decomposition and solving over the task tree.
package scheduler

import (
	"sync/atomic"
	"time"
)

// EventType represents the type of scheduler event.
type EventType string

const (
	// EventNodeCreated indicates a new node was added to the tree.
	EventNodeCreated EventType = "node_created"
	// EventDecomposing indicates a decomposition call started.
	EventDecomposing EventType = "decomposing"
	// EventDecomposed indicates children were accepted for a node.
	EventDecomposed EventType = "decomposed"
	// EventSolving indicates a direct-solve call started.
	EventSolving EventType = "solving"
	// EventIntegrating indicates an integrate call started.
	EventIntegrating EventType = "integrating"
	// EventNodeSolved indicates a node received its solution.
	EventNodeSolved EventType = "node_solved"
	// EventNodeFailed indicates a node failed.
	EventNodeFailed EventType = "node_failed"
	// EventDependencySkipped indicates a dependency edge was dropped.
	EventDependencySkipped EventType = "dependency_skipped"
	// EventRunDone indicates the whole run finished.
	EventRunDone EventType = "run_done"
)

// Event is one scheduler occurrence, consumed by the CLI and TUI.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// NodeID is the ID of the related node, if applicable.
	NodeID string
	// Message provides additional context.
	Message string
	// Err contains error details for failure events.
	Err error
	// NodesCreated is the tree's node count at emission time.
	NodesCreated int
	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// EventEmitter is a thread-safe fan-in for scheduler events. A full
// buffer drops events rather than blocking the scheduler.
type EventEmitter struct {
	events  chan Event
	dropped atomic.Uint64
}

// NewEventEmitter creates an emitter with the given buffer size.
func NewEventEmitter(bufferSize int) *EventEmitter {
	return &EventEmitter{events: make(chan Event, bufferSize)}
}

// Emit sends an event, waiting briefly when the buffer is full before
// dropping it.
func (e *EventEmitter) Emit(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case e.events <- event:
		return
	default:
	}

	select {
	case e.events <- event:
	case <-time.After(100 * time.Millisecond):
		e.dropped.Add(1)
	}
}

// DroppedCount returns how many events were dropped.
func (e *EventEmitter) DroppedCount() uint64 {
	return e.dropped.Load()
}

// Events returns the read-only event channel for subscribers.
func (e *EventEmitter) Events() <-chan Event {
	return e.events
}

// Close closes the event channel once the run is over.
func (e *EventEmitter) Close() {
	close(e.events)
}
