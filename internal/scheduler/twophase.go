package scheduler

import (
	"context"
	"fmt"

	"github.com/ShayCichocki/arbor/pkg/models"
)

// Strategy B runs in two phases over the same tree model. Phase 1
// (DecomposeTree) builds and persists the full structure without solving
// anything; an operator may inspect or edit the workspace at the
// checkpoint. Phase 2 (ExecuteTree) solves bottom-up over whatever the
// store holds and is safe to re-run: solved nodes are skipped without a
// gateway call.

// DecomposeTree performs the decomposition-only walk and leaves a
// complete, self-describing snapshot in the store.
func (s *Scheduler) DecomposeTree(ctx context.Context) error {
	root := s.tree.Root()
	if root == nil {
		return fmt.Errorf("tree has no root node")
	}
	if err := s.store.Persist(s.tree); err != nil {
		return fmt.Errorf("persist root: %w", err)
	}

	s.decomposeWalk(ctx, root.ID)

	// Re-persist so counters and any failure states reach the store.
	if err := s.store.Persist(s.tree); err != nil {
		return fmt.Errorf("persist tree: %w", err)
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return nil
}

// decomposeWalk recursively decomposes one node. Nodes the governor
// rules out stay as leaves. All nodes are left pending for Phase 2,
// except decomposition-call failures which are failed outright.
func (s *Scheduler) decomposeWalk(ctx context.Context, id string) {
	node := s.tree.Get(id)
	if node == nil || node.Status.Terminal() || ctx.Err() != nil {
		return
	}
	if !s.governor.MayDecompose(s.tree, node) {
		return
	}

	result, err := s.requestDecomposition(ctx, node)
	if err != nil {
		if ctx.Err() != nil {
			s.interrupt(node)
			return
		}
		s.fail(node, err)
		return
	}

	node.Status = models.StatusPending
	if !result.Decomposed || s.createChildren(node, result) == 0 {
		s.save(node)
		return
	}
	s.save(node)

	for _, childID := range node.Children {
		s.decomposeWalk(ctx, childID)
	}
}

// ExecuteTree performs the bottom-up solving pass: leaves first, then
// each parent once all its children are terminal. Resuming over a
// partially solved store re-invokes the gateway only for unsolved nodes.
func (s *Scheduler) ExecuteTree(ctx context.Context) (string, error) {
	root := s.tree.Root()
	if root == nil {
		return "", fmt.Errorf("tree has no root node")
	}

	s.executeNode(ctx, root.ID)

	s.emit(Event{Type: EventRunDone, NodeID: root.ID, NodesCreated: s.tree.TotalNodesCreated()})
	if s.rootErr != nil {
		return root.Result(), s.rootErr
	}
	if ctx.Err() != nil && !root.Status.Terminal() {
		return "", ctx.Err()
	}
	return root.Result(), nil
}

// executeNode solves one node of the fixed tree: dependencies, then
// children in declared order, then the node itself (direct solve for
// leaves, integration otherwise).
func (s *Scheduler) executeNode(ctx context.Context, id string) {
	node := s.tree.Get(id)
	if node == nil || node.Status.Terminal() {
		return
	}
	if ctx.Err() != nil {
		return
	}

	s.resolver.Enter(id)
	defer s.resolver.Leave(id)

	s.solveDependencies(ctx, node, s.executeNode)

	if len(node.Children) == 0 {
		s.solveDirect(ctx, node)
		return
	}

	node.Status = models.StatusAwaitingChildren
	s.save(node)
	for _, childID := range node.Children {
		s.executeNode(ctx, childID)
	}
	if ctx.Err() != nil {
		// Children interrupted; don't integrate over a partial set.
		node.Status = models.StatusPending
		s.save(node)
		return
	}
	s.integrate(ctx, node)
}
