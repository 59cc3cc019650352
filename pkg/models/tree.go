package models

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Default budgets applied when a Tree is created with zero limits.
const (
	// DefaultMaxNodes caps the total number of nodes created per run.
	DefaultMaxNodes = 5
	// DefaultMaxDepth caps recursion depth; the root is depth 0.
	DefaultMaxDepth = 3
)

// Tree is the aggregate of all nodes in a run plus the global budget
// counters. All node creation goes through AddNode so the node budget
// is enforced in one place.
type Tree struct {
	// RootID is the ID of the root node, conventionally "root".
	RootID string
	// MaxNodes is the global cap on nodes created across the whole tree.
	MaxNodes int
	// MaxDepth is the per-branch recursion depth cap.
	MaxDepth int

	mu      sync.Mutex
	nodes   map[string]*Node
	created int
}

// NewTree creates a tree with a root node built from the given problem.
// Zero or negative budget values fall back to the defaults.
func NewTree(problem string, maxNodes, maxDepth int) *Tree {
	if maxNodes <= 0 {
		maxNodes = DefaultMaxNodes
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	t := &Tree{
		RootID:   "root",
		MaxNodes: maxNodes,
		MaxDepth: maxDepth,
		nodes:    make(map[string]*Node),
	}
	root := &Node{
		ID:          t.RootID,
		Description: problem,
		Kind:        KindComplex,
		Depth:       0,
		Status:      StatusPending,
		CreatedAt:   time.Now(),
	}
	t.nodes[root.ID] = root
	t.created = 1
	return t
}

// EmptyTree creates a tree with no nodes, for loading a persisted run.
func EmptyTree(maxNodes, maxDepth int) *Tree {
	if maxNodes <= 0 {
		maxNodes = DefaultMaxNodes
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Tree{
		RootID:   "root",
		MaxNodes: maxNodes,
		MaxDepth: maxDepth,
		nodes:    make(map[string]*Node),
	}
}

// Root returns the root node, or nil if the tree is empty.
func (t *Tree) Root() *Node {
	return t.Get(t.RootID)
}

// Get returns the node with the given ID, or nil if not found.
func (t *Tree) Get(id string) *Node {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nodes[id]
}

// AddNode creates a child node under the given parent and consumes one
// unit of node budget. Returns an error when the budget is exhausted,
// the parent is unknown, or the ID is already taken.
func (t *Tree) AddNode(parentID, name, description string, kind NodeKind) (*Node, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.created >= t.MaxNodes {
		return nil, fmt.Errorf("node budget exhausted (%d/%d)", t.created, t.MaxNodes)
	}
	parent, ok := t.nodes[parentID]
	if !ok {
		return nil, fmt.Errorf("unknown parent node %q", parentID)
	}
	id := parentID + "/" + name
	if _, exists := t.nodes[id]; exists {
		return nil, fmt.Errorf("node %q already exists", id)
	}

	node := &Node{
		ID:          id,
		Description: description,
		Kind:        kind,
		Depth:       parent.Depth + 1,
		Status:      StatusPending,
		CreatedAt:   time.Now(),
	}
	t.nodes[id] = node
	parent.Children = append(parent.Children, id)
	t.created++
	return node, nil
}

// Restore inserts a node loaded from a persisted store without consuming
// budget beyond tracking the count. Used by TaskStore.Load.
func (t *Tree) Restore(node *Node) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.nodes[node.ID]; !exists {
		t.created++
	}
	t.nodes[node.ID] = node
}

// TotalNodesCreated returns the number of nodes created so far,
// including the root.
func (t *Tree) TotalNodesCreated() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.created
}

// RemainingBudget returns how many more nodes may be created.
func (t *Tree) RemainingBudget() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.created >= t.MaxNodes {
		return 0
	}
	return t.MaxNodes - t.created
}

// Size returns the number of nodes currently in the tree.
func (t *Tree) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.nodes)
}

// IDs returns all node IDs sorted lexically. Sorting keeps output
// deterministic; path-encoded IDs sort parents before their children.
func (t *Tree) IDs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, 0, len(t.nodes))
	for id := range t.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SetSolution records a node's solution exactly once and marks it
// solved. A second write is an error.
func (t *Tree) SetSolution(id, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	node, ok := t.nodes[id]
	if !ok {
		return fmt.Errorf("unknown node %q", id)
	}
	// Guard on status, not solution text: an empty worker reply is
	// still a recorded solution.
	if node.Status == StatusSolved {
		return fmt.Errorf("node %q already has a solution", id)
	}
	node.Solution = text
	node.Status = StatusSolved
	return nil
}

// Leaves returns the IDs of all nodes with no children, in lexical order.
func (t *Tree) Leaves() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var leaves []string
	for id, node := range t.nodes {
		if len(node.Children) == 0 {
			leaves = append(leaves, id)
		}
	}
	sort.Strings(leaves)
	return leaves
}
