// Package models defines the core data types for the arbor task tree.
package models

import "time"

// NodeKind classifies a node as decomposable or a leaf.
type NodeKind string

const (
	// KindComplex indicates the node may be decomposed into subtasks.
	KindComplex NodeKind = "complex"
	// KindSimple indicates a leaf node that must be solved directly
	// and is never decomposed, regardless of remaining budget.
	KindSimple NodeKind = "simple"
)

// Valid returns true if the kind is a known value.
func (k NodeKind) Valid() bool {
	return k == KindComplex || k == KindSimple
}

// NodeStatus represents the current state of a node.
type NodeStatus string

const (
	// StatusPending indicates the node has not started.
	StatusPending NodeStatus = "pending"
	// StatusDecomposing indicates a decomposition call is in flight.
	StatusDecomposing NodeStatus = "decomposing"
	// StatusAwaitingChildren indicates children exist and are being solved.
	StatusAwaitingChildren NodeStatus = "awaiting_children"
	// StatusSolving indicates a solve or integrate call is in flight.
	StatusSolving NodeStatus = "solving"
	// StatusSolved indicates the node has a solution.
	StatusSolved NodeStatus = "solved"
	// StatusFailed indicates the node could not be solved; the error
	// text stands in for its solution.
	StatusFailed NodeStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s NodeStatus) Valid() bool {
	switch s {
	case StatusPending, StatusDecomposing, StatusAwaitingChildren,
		StatusSolving, StatusSolved, StatusFailed:
		return true
	default:
		return false
	}
}

// Terminal returns true if the status is an end state.
func (s NodeStatus) Terminal() bool {
	return s == StatusSolved || s == StatusFailed
}

// Node is a unit of work in the task tree.
type Node struct {
	// ID is a stable path-like identifier (e.g. "root/sub2/sub1"),
	// unique within a tree. It also encodes ancestry.
	ID string `json:"id" yaml:"id"`
	// Description is the free-text problem statement.
	Description string `json:"description" yaml:"description"`
	// Kind is complex (may decompose) or simple (leaf).
	Kind NodeKind `json:"kind" yaml:"kind"`
	// Depth is the distance from the root; the root is 0.
	Depth int `json:"depth" yaml:"depth"`
	// Children lists child node IDs in declared subtask order.
	Children []string `json:"children,omitempty" yaml:"children,omitempty"`
	// Dependencies lists node IDs that must be solved before this node.
	// They may reference siblings or nodes outside the ancestor chain.
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	// Approach is the decomposition strategy the worker stated when this
	// node was decomposed. Children see it in their context.
	Approach string `json:"approach,omitempty" yaml:"approach,omitempty"`
	// Solution is the solved text, empty until solved. Write-once.
	Solution string `json:"solution,omitempty" yaml:"-"`
	// Status is the current state of the node.
	Status NodeStatus `json:"status" yaml:"status"`
	// Error holds the failure message when Status is Failed. It stands
	// in for the solution during the parent's integration.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
	// CreatedAt is when the node was created.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Result returns the text that represents this node in its parent's
// integration: the solution when solved, the failure message otherwise.
// Failures propagate as content, not as control flow.
func (n *Node) Result() string {
	if n.Status == StatusFailed {
		return "Error: " + n.Error
	}
	return n.Solution
}

// ParentID returns the ID of the node's parent, or "" for the root.
func (n *Node) ParentID() string {
	for i := len(n.ID) - 1; i >= 0; i-- {
		if n.ID[i] == '/' {
			return n.ID[:i]
		}
	}
	return ""
}

// IsRoot returns true if the node is the tree root.
func (n *Node) IsRoot() bool {
	return n.ParentID() == ""
}

// Name returns the last path segment of the node's ID.
func (n *Node) Name() string {
	for i := len(n.ID) - 1; i >= 0; i-- {
		if n.ID[i] == '/' {
			return n.ID[i+1:]
		}
	}
	return n.ID
}
