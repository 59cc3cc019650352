package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ShayCichocki/arbor/internal/decompose"
	"github.com/ShayCichocki/arbor/internal/graph"
	"github.com/ShayCichocki/arbor/internal/prompt"
	"github.com/ShayCichocki/arbor/internal/store"
	"github.com/ShayCichocki/arbor/internal/treectx"
	"github.com/ShayCichocki/arbor/internal/worker"
	"github.com/ShayCichocki/arbor/pkg/models"
)

// Scheduler walks the task tree, decides per node between decomposition
// and direct solving, and integrates child solutions bottom-up. One node
// is active at a time; each node's fields are owned by the call handling
// it, while the tree counter and resolver state carry their own locks.
type Scheduler struct {
	tree     *models.Tree
	store    *store.Store
	gateway  worker.Gateway
	resolver *graph.Resolver
	governor Governor
	builder  *treectx.Builder
	emitter  *EventEmitter
	timeout  time.Duration

	// rootErr records gateway unavailability at the root, the one
	// condition that propagates as a hard failure to the caller.
	rootErr error
}

// Options configures a Scheduler.
type Options struct {
	// Timeout is the per-gateway-call timeout; zero uses the worker
	// default.
	Timeout time.Duration
	// IncludeSnapshot attaches a rendered tree snapshot to each node's
	// context.
	IncludeSnapshot bool
	// Emitter receives scheduler events; nil disables emission.
	Emitter *EventEmitter
}

// New creates a Scheduler over the given tree, store, and gateway.
func New(tree *models.Tree, st *store.Store, gw worker.Gateway, opts Options) *Scheduler {
	return &Scheduler{
		tree:     tree,
		store:    st,
		gateway:  gw,
		resolver: graph.NewResolver(),
		builder:  &treectx.Builder{IncludeSnapshot: opts.IncludeSnapshot},
		emitter:  opts.Emitter,
		timeout:  opts.Timeout,
	}
}

// Run executes Strategy A: a single depth-first pass that decomposes and
// solves interleaved. Returns the root's result text. The error is
// non-nil only when the run could not produce anything at all: the root
// could not be persisted, or the worker was unreachable for the root.
func (s *Scheduler) Run(ctx context.Context) (string, error) {
	root := s.tree.Root()
	if root == nil {
		return "", fmt.Errorf("tree has no root node")
	}
	if err := s.store.Persist(s.tree); err != nil {
		return "", fmt.Errorf("persist root: %w", err)
	}

	s.solveNode(ctx, root.ID)

	s.emit(Event{Type: EventRunDone, NodeID: root.ID, NodesCreated: s.tree.TotalNodesCreated()})
	if s.rootErr != nil {
		return root.Result(), s.rootErr
	}
	if ctx.Err() != nil && !root.Status.Terminal() {
		return "", ctx.Err()
	}
	return root.Result(), nil
}

// solveNode drives one node through its full lifecycle: dependencies
// first, then decompose-recurse-integrate or direct solve.
func (s *Scheduler) solveNode(ctx context.Context, id string) {
	node := s.tree.Get(id)
	if node == nil || node.Status.Terminal() {
		return
	}
	// Cancellation stops scheduling new node work; the node stays
	// pending and the persisted tree remains resumable.
	if ctx.Err() != nil {
		return
	}

	s.resolver.Enter(id)
	defer s.resolver.Leave(id)

	s.solveDependencies(ctx, node, s.solveNode)

	if s.governor.MayDecompose(s.tree, node) {
		result, err := s.requestDecomposition(ctx, node)
		if err != nil {
			if ctx.Err() != nil {
				s.interrupt(node)
				return
			}
			s.fail(node, err)
			return
		}
		if result.Decomposed {
			if accepted := s.createChildren(node, result); accepted > 0 {
				node.Status = models.StatusAwaitingChildren
				s.save(node)
				for _, childID := range node.Children {
					s.solveNode(ctx, childID)
				}
				s.integrate(ctx, node)
				return
			}
		}
		// No decomposition, or nothing fit in the budget: solve
		// directly.
	}

	s.solveDirect(ctx, node)
}

// solveDependencies resolves and solves a node's declared dependencies
// before the node itself leaves pending. Skipped edges (unknown nodes,
// cycles) are logged and treated as satisfied.
func (s *Scheduler) solveDependencies(ctx context.Context, node *models.Node, recurse func(context.Context, string)) {
	if len(node.Dependencies) == 0 {
		return
	}

	ordered, depErrs := s.resolver.Order(s.tree, node)
	for _, derr := range depErrs {
		debugLog("[scheduler] %v", derr)
		s.emit(Event{Type: EventDependencySkipped, NodeID: node.ID, Message: derr.Error(), Err: derr})
	}
	for _, depID := range ordered {
		if dep := s.tree.Get(depID); dep != nil && !dep.Status.Terminal() {
			debugLog("[scheduler] %s waiting on dependency %s", node.ID, depID)
			recurse(ctx, depID)
		}
	}
}

// requestDecomposition asks the worker to break the node down and
// adapts the response to the canonical result. A malformed response is
// "no decomposition", never an error; only gateway failures are errors.
func (s *Scheduler) requestDecomposition(ctx context.Context, node *models.Node) (models.DecompositionResult, error) {
	node.Status = models.StatusDecomposing
	s.save(node)
	s.emit(Event{Type: EventDecomposing, NodeID: node.ID, NodesCreated: s.tree.TotalNodesCreated()})

	bctx := s.builder.Build(s.tree, node)
	text, err := worker.InvokeWithTimeout(ctx, s.gateway, prompt.Decompose(bctx, node.Description), s.store.NodeDir(node.ID), s.timeout)
	if err != nil {
		return models.DecompositionResult{}, fmt.Errorf("decompose %s: %w", node.ID, err)
	}

	result := decompose.ParseResponse(text)
	if !result.Decomposed {
		// Some workers decompose by writing subtask files instead of
		// answering with JSON.
		result = decompose.DiscoverChildren(s.store.NodeDir(node.ID))
	}
	return result, nil
}

// createChildren accepts proposed children up to the remaining node
// budget, in declared order. The remainder are dropped and never
// created. Returns the number accepted.
func (s *Scheduler) createChildren(node *models.Node, result models.DecompositionResult) int {
	specs := result.Children
	if remaining := s.tree.RemainingBudget(); len(specs) > remaining {
		debugLog("[scheduler] %s proposed %d children, budget leaves %d", node.ID, len(specs), remaining)
		specs = specs[:remaining]
	}

	// Children may declare dependencies on siblings by task text; map
	// them to node IDs once all accepted siblings are known.
	descToID := make(map[string]string, len(specs))
	accepted := make([]*models.Node, 0, len(specs))
	for i, spec := range specs {
		name := fmt.Sprintf("sub%d", i+1)
		child, err := s.tree.AddNode(node.ID, name, spec.Description, spec.Kind)
		if err != nil {
			debugLog("[scheduler] create child of %s: %v", node.ID, err)
			break
		}
		descToID[spec.Description] = child.ID
		accepted = append(accepted, child)
		s.emit(Event{Type: EventNodeCreated, NodeID: child.ID, Message: spec.Description, NodesCreated: s.tree.TotalNodesCreated()})
	}

	for i, child := range accepted {
		for _, depName := range specs[i].Dependencies {
			depID, ok := descToID[depName]
			if !ok {
				// Unresolved references surface later as
				// DependencyErrors and are skipped.
				depID = depName
			}
			child.Dependencies = append(child.Dependencies, depID)
		}
		s.save(child)
	}
	node.Approach = result.Approach
	s.save(node)

	s.emit(Event{Type: EventDecomposed, NodeID: node.ID,
		Message: fmt.Sprintf("%d subtasks (%s)", len(accepted), result.Approach),
		NodesCreated: s.tree.TotalNodesCreated()})
	return len(accepted)
}

// solveDirect sends the node's problem to the worker as a leaf task.
func (s *Scheduler) solveDirect(ctx context.Context, node *models.Node) {
	node.Status = models.StatusSolving
	s.save(node)
	s.emit(Event{Type: EventSolving, NodeID: node.ID, NodesCreated: s.tree.TotalNodesCreated()})

	bctx := s.builder.Build(s.tree, node)
	text, err := worker.InvokeWithTimeout(ctx, s.gateway, prompt.Solve(bctx, node.Description), s.store.NodeDir(node.ID), s.timeout)
	if err != nil {
		if ctx.Err() != nil {
			s.interrupt(node)
			return
		}
		s.fail(node, fmt.Errorf("solve %s: %w", node.ID, err))
		return
	}
	s.setSolution(node, text)
}

// integrate combines child results into the node's own solution. Failed
// children contribute their error text; the integration still runs, and
// the node is solved whenever the integrate call itself succeeds.
func (s *Scheduler) integrate(ctx context.Context, node *models.Node) {
	solutions := make([]prompt.Solution, 0, len(node.Children))
	for _, childID := range node.Children {
		child := s.tree.Get(childID)
		if child == nil {
			continue
		}
		solutions = append(solutions, prompt.Solution{Task: child.Description, Result: child.Result()})
	}

	node.Status = models.StatusSolving
	s.save(node)
	s.emit(Event{Type: EventIntegrating, NodeID: node.ID, NodesCreated: s.tree.TotalNodesCreated()})

	bctx := s.builder.Build(s.tree, node)
	text, err := worker.InvokeWithTimeout(ctx, s.gateway, prompt.Integrate(bctx, node.Description, solutions), s.store.NodeDir(node.ID), s.timeout)
	if err != nil {
		if ctx.Err() != nil {
			s.interrupt(node)
			return
		}
		s.fail(node, fmt.Errorf("integrate %s: %w", node.ID, err))
		return
	}
	s.setSolution(node, text)
}

// setSolution records the solution in the tree and the store. The write
// is once-only at both layers.
func (s *Scheduler) setSolution(node *models.Node, text string) {
	if err := s.tree.SetSolution(node.ID, text); err != nil {
		s.fail(node, err)
		return
	}
	if err := s.store.SetSolution(node.ID, text); err != nil && !errors.Is(err, store.ErrSolutionExists) {
		debugLog("[scheduler] persist solution for %s: %v", node.ID, err)
	}
	s.save(node)
	s.emit(Event{Type: EventNodeSolved, NodeID: node.ID, NodesCreated: s.tree.TotalNodesCreated()})
}

// interrupt returns a node to pending after its gateway call was cut
// short by run cancellation. No error is recorded; a resumed execution
// attempts the node again.
func (s *Scheduler) interrupt(node *models.Node) {
	node.Status = models.StatusPending
	node.Error = ""
	s.save(node)
	debugLog("[scheduler] node %s interrupted, left pending", node.ID)
}

// fail marks the node failed with the error text in place of a
// solution. Failures never halt sibling processing; they propagate as
// content into the parent's integration.
func (s *Scheduler) fail(node *models.Node, err error) {
	node.Status = models.StatusFailed
	node.Error = err.Error()
	s.save(node)
	s.emit(Event{Type: EventNodeFailed, NodeID: node.ID, Err: err, NodesCreated: s.tree.TotalNodesCreated()})
	debugLog("[scheduler] node %s failed: %v", node.ID, err)

	if node.IsRoot() && errors.Is(err, worker.ErrUnavailable) {
		s.rootErr = err
	}
}

// save persists a node's current state, logging rather than failing on
// store errors: the in-memory tree stays authoritative for the run.
func (s *Scheduler) save(node *models.Node) {
	if err := s.store.SaveNode(node); err != nil {
		debugLog("[scheduler] persist node %s: %v", node.ID, err)
	}
}

func (s *Scheduler) emit(event Event) {
	if s.emitter != nil {
		s.emitter.Emit(event)
	}
}
