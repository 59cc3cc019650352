// Package graph resolves inter-node dependency ordering for the task
// tree. Dependencies may cross branches: a node can declare that any
// other node in the tree must be solved before it.
package graph

import (
	"fmt"
	"sync"

	"github.com/ShayCichocki/arbor/pkg/models"
)

// DependencyError reports a dependency edge that was skipped: an unknown
// target, a self-reference, or a back-edge that would close a cycle.
// Skipped edges are treated as satisfied so the scheduler never deadlocks.
type DependencyError struct {
	// NodeID is the node that declared the dependency.
	NodeID string
	// DepID is the dependency that was skipped.
	DepID string
	// Reason explains why the edge was dropped.
	Reason string
}

// Error implements the error interface.
func (e *DependencyError) Error() string {
	return fmt.Sprintf("dependency %s -> %s skipped: %s", e.NodeID, e.DepID, e.Reason)
}

// Resolver orders a node's direct dependencies for solving and detects
// cycles across the scheduler's recursive descent. The visiting set is
// shared, order-sensitive state, so it is mutex-protected.
type Resolver struct {
	mu       sync.Mutex
	visiting map[string]bool
}

// NewResolver creates an empty Resolver.
func NewResolver() *Resolver {
	return &Resolver{visiting: make(map[string]bool)}
}

// Enter marks a node as currently being solved. The scheduler calls this
// before descending into a node and Leave when done; any dependency edge
// pointing back into the set is a cycle and gets dropped.
func (r *Resolver) Enter(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.visiting[id] = true
}

// Leave removes a node from the visiting set.
func (r *Resolver) Leave(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.visiting, id)
}

// Order returns the node's direct dependencies in a valid solve order,
// along with any edges that were skipped. Only one hop is resolved per
// call; the scheduler recurses into each returned dependency, which
// resolves transitive dependencies in turn.
//
// Within the returned set, a dependency of another returned dependency
// sorts first. Edges that would reintroduce a node already on the
// solving stack are dropped rather than followed.
func (r *Resolver) Order(tree *models.Tree, node *models.Node) ([]string, []*DependencyError) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []*DependencyError
	skip := func(depID, reason string) {
		errs = append(errs, &DependencyError{NodeID: node.ID, DepID: depID, Reason: reason})
	}

	// Validate the direct edges first, preserving declared order.
	var direct []string
	seen := make(map[string]bool)
	for _, depID := range node.Dependencies {
		switch {
		case seen[depID]:
			// Duplicate declaration, drop silently.
		case depID == node.ID:
			skip(depID, "self-reference")
		case tree.Get(depID) == nil:
			skip(depID, "unknown node")
		case r.visiting[depID]:
			skip(depID, "cycle detected")
		default:
			direct = append(direct, depID)
		}
		seen[depID] = true
	}

	inSet := make(map[string]bool, len(direct))
	for _, id := range direct {
		inSet[id] = true
	}

	// Topological sort within the direct set: DFS with coloring,
	// following only edges that stay inside the set. A gray revisit is
	// a back edge; drop it and continue.
	const (
		white = 0
		gray  = 1
		black = 2
	)
	colors := make(map[string]int, len(direct))
	var ordered []string

	var visit func(id string)
	visit = func(id string) {
		colors[id] = gray
		dep := tree.Get(id)
		for _, next := range dep.Dependencies {
			if !inSet[next] {
				continue
			}
			switch colors[next] {
			case gray:
				skip(next, fmt.Sprintf("cycle through %s", id))
			case white:
				visit(next)
			}
		}
		colors[id] = black
		ordered = append(ordered, id)
	}

	for _, id := range direct {
		if colors[id] == white {
			visit(id)
		}
	}

	return ordered, errs
}
