package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/ShayCichocki/arbor/internal/store"
	"github.com/ShayCichocki/arbor/internal/worker"
	"github.com/ShayCichocki/arbor/pkg/models"
)

// gatewayFunc adapts a closure to the worker.Gateway interface.
type gatewayFunc func(ctx context.Context, prompt, workDir string) (string, error)

func (f gatewayFunc) Invoke(ctx context.Context, prompt, workDir string) (string, error) {
	return f(ctx, prompt, workDir)
}

// callKind classifies a prompt by the template that produced it.
func callKind(prompt string) string {
	switch {
	case strings.Contains(prompt, `{"decompose": false}`):
		return "decompose"
	case strings.Contains(prompt, "Sub-solutions:"):
		return "integrate"
	default:
		return "solve"
	}
}

// recordingGateway scripts decomposition answers per problem text and
// records every call it receives.
type recordingGateway struct {
	mu sync.Mutex
	// decompositions maps a problem substring to the JSON reply for its
	// decompose call. Problems not listed decline decomposition.
	decompositions map[string]string
	// failures maps a problem substring to an error for its solve call.
	failures map[string]error
	calls    []string
}

func (g *recordingGateway) Invoke(ctx context.Context, prompt, workDir string) (string, error) {
	kind := callKind(prompt)
	g.mu.Lock()
	g.calls = append(g.calls, kind)
	g.mu.Unlock()

	switch kind {
	case "decompose":
		for problem, reply := range g.decompositions {
			if strings.Contains(prompt, problem) {
				return reply, nil
			}
		}
		return `{"decompose": false}`, nil
	case "integrate":
		return "integrated: " + firstLine(prompt), nil
	default:
		for problem, err := range g.failures {
			if strings.Contains(prompt, problem) {
				return "", err
			}
		}
		return "solved: " + firstLine(prompt), nil
	}
}

func (g *recordingGateway) count(kind string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, c := range g.calls {
		if c == kind {
			n++
		}
	}
	return n
}

func (g *recordingGateway) total() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}

// subtaskJSON builds a decomposition reply with n simple subtasks named
// by the given prefix.
func subtaskJSON(prefix string, n int) string {
	var tasks []string
	for i := 1; i <= n; i++ {
		tasks = append(tasks, fmt.Sprintf(`{"task": "%s %d", "simple": true}`, prefix, i))
	}
	return fmt.Sprintf(`{"decompose": true, "approach": "split it", "subtasks": [%s]}`, strings.Join(tasks, ","))
}

func newTestScheduler(t *testing.T, tree *models.Tree, gw worker.Gateway) *Scheduler {
	t.Helper()
	return New(tree, store.New(t.TempDir()), gw, Options{})
}

func TestRun_SimpleProblemSolvedDirectly(t *testing.T) {
	gw := &recordingGateway{}
	tree := models.NewTree("trivial question", 5, 3)
	s := newTestScheduler(t, tree, gw)

	result, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.HasPrefix(result, "solved:") {
		t.Errorf("result = %q", result)
	}
	if tree.Root().Status != models.StatusSolved {
		t.Errorf("root status = %q, want solved", tree.Root().Status)
	}
	// One decompose attempt (declined), one direct solve.
	if gw.count("decompose") != 1 || gw.count("solve") != 1 {
		t.Errorf("calls = %v", gw.calls)
	}
}

func TestRun_DecomposeAndIntegrate(t *testing.T) {
	gw := &recordingGateway{decompositions: map[string]string{
		"big problem": subtaskJSON("part", 2),
	}}
	tree := models.NewTree("big problem", 5, 3)
	s := newTestScheduler(t, tree, gw)

	result, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.HasPrefix(result, "integrated:") {
		t.Errorf("result = %q", result)
	}

	root := tree.Root()
	if len(root.Children) != 2 {
		t.Fatalf("root children = %v", root.Children)
	}
	if root.Approach != "split it" {
		t.Errorf("root approach = %q", root.Approach)
	}
	for _, childID := range root.Children {
		child := tree.Get(childID)
		if child.Status != models.StatusSolved {
			t.Errorf("child %s status = %q, want solved", childID, child.Status)
		}
	}
	if gw.count("solve") != 2 || gw.count("integrate") != 1 {
		t.Errorf("calls = %v", gw.calls)
	}
}

func TestRun_NodeBudgetTruncatesChildren(t *testing.T) {
	// Ten proposed subtasks against a budget of five total nodes: the
	// root plus the first four proposals, in declared order.
	gw := &recordingGateway{decompositions: map[string]string{
		"big problem": subtaskJSON("part", 10),
	}}
	tree := models.NewTree("big problem", 5, 3)
	s := newTestScheduler(t, tree, gw)

	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if got := tree.TotalNodesCreated(); got != 5 {
		t.Errorf("TotalNodesCreated() = %d, want 5", got)
	}
	root := tree.Root()
	if len(root.Children) != 4 {
		t.Fatalf("root children = %d, want 4", len(root.Children))
	}
	for i, childID := range root.Children {
		child := tree.Get(childID)
		want := fmt.Sprintf("part %d", i+1)
		if child.Description != want {
			t.Errorf("child %d = %q, want %q (declared order)", i, child.Description, want)
		}
	}
}

func TestRun_DepthBudgetStopsRecursion(t *testing.T) {
	// Every decompose call proposes complex children; with maxDepth 1
	// only the root may decompose.
	complexChild := `{"decompose": true, "subtasks": [{"task": "nested work", "simple": false}]}`
	gw := &recordingGateway{decompositions: map[string]string{
		"big problem": complexChild,
		"nested work": complexChild,
	}}
	tree := models.NewTree("big problem", 10, 1)
	s := newTestScheduler(t, tree, gw)

	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if gw.count("decompose") != 1 {
		t.Errorf("decompose calls = %d, want 1 (child at depth cap)", gw.count("decompose"))
	}
	child := tree.Get("root/sub1")
	if child == nil {
		t.Fatal("child missing")
	}
	if len(child.Children) != 0 {
		t.Errorf("child at depth cap has children: %v", child.Children)
	}
	if child.Status != models.StatusSolved {
		t.Errorf("child status = %q, want solved directly", child.Status)
	}
}

func TestRun_SimpleLeafNeverDecomposed(t *testing.T) {
	gw := &recordingGateway{decompositions: map[string]string{
		"big problem": `{"decompose": true, "subtasks": [{"task": "leaf work", "simple": true}]}`,
		// If the leaf were asked to decompose, this would be the reply.
		"leaf work": subtaskJSON("bogus", 2),
	}}
	tree := models.NewTree("big problem", 10, 5)
	s := newTestScheduler(t, tree, gw)

	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if gw.count("decompose") != 1 {
		t.Errorf("decompose calls = %d, want 1 (simple leaf must not decompose)", gw.count("decompose"))
	}
	leaf := tree.Get("root/sub1")
	if len(leaf.Children) != 0 {
		t.Errorf("simple leaf has children: %v", leaf.Children)
	}
}

func TestRun_FailedChildDoesNotAbort(t *testing.T) {
	gw := &recordingGateway{
		decompositions: map[string]string{
			"big problem": subtaskJSON("part", 3),
		},
		failures: map[string]error{
			"part 2": worker.ErrTimeout,
		},
	}
	tree := models.NewTree("big problem", 10, 3)
	s := newTestScheduler(t, tree, gw)

	result, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run should not fail for a failed subtask: %v", err)
	}
	if !strings.HasPrefix(result, "integrated:") {
		t.Errorf("result = %q", result)
	}

	failed := tree.Get("root/sub2")
	if failed.Status != models.StatusFailed {
		t.Errorf("failed child status = %q", failed.Status)
	}
	if !strings.HasPrefix(failed.Result(), "Error:") {
		t.Errorf("failed child Result() = %q, want error text", failed.Result())
	}

	// Siblings are unaffected and the parent still integrates and solves.
	for _, id := range []string{"root/sub1", "root/sub3"} {
		if got := tree.Get(id).Status; got != models.StatusSolved {
			t.Errorf("%s status = %q, want solved", id, got)
		}
	}
	if tree.Root().Status != models.StatusSolved {
		t.Errorf("root status = %q, want solved", tree.Root().Status)
	}
}

func TestRun_RootWorkerUnavailable(t *testing.T) {
	gw := gatewayFunc(func(ctx context.Context, prompt, workDir string) (string, error) {
		return "", fmt.Errorf("spawn claude: %w", worker.ErrUnavailable)
	})
	tree := models.NewTree("p", 5, 3)
	s := newTestScheduler(t, tree, gw)

	_, err := s.Run(context.Background())
	if !errors.Is(err, worker.ErrUnavailable) {
		t.Fatalf("Run error = %v, want ErrUnavailable", err)
	}
	if tree.Root().Status != models.StatusFailed {
		t.Errorf("root status = %q, want failed", tree.Root().Status)
	}
}

func TestRun_DependencyOrderAcrossSiblings(t *testing.T) {
	// part C depends on part B which depends on part A. Solve order must
	// follow the chain regardless of declared sibling order.
	gw := &recordingGateway{decompositions: map[string]string{
		"big problem": `{"decompose": true, "subtasks": [
			{"task": "part C", "simple": true, "depends_on": ["part B"]},
			{"task": "part B", "simple": true, "depends_on": ["part A"]},
			{"task": "part A", "simple": true}
		]}`,
	}}

	var mu sync.Mutex
	var solved []string
	base := gw
	ordered := gatewayFunc(func(ctx context.Context, prompt, workDir string) (string, error) {
		text, err := base.Invoke(ctx, prompt, workDir)
		if err == nil && callKind(prompt) == "solve" {
			mu.Lock()
			for _, p := range []string{"part A", "part B", "part C"} {
				if strings.Contains(prompt, p) {
					solved = append(solved, p)
				}
			}
			mu.Unlock()
		}
		return text, err
	})

	tree := models.NewTree("big problem", 10, 3)
	s := newTestScheduler(t, tree, ordered)
	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := []string{"part A", "part B", "part C"}
	if len(solved) != 3 {
		t.Fatalf("solved = %v, want 3 entries", solved)
	}
	for i := range want {
		if solved[i] != want[i] {
			t.Errorf("solve order = %v, want %v", solved, want)
			break
		}
	}
}

func TestRun_UnknownDependencySkipped(t *testing.T) {
	gw := &recordingGateway{decompositions: map[string]string{
		"big problem": `{"decompose": true, "subtasks": [
			{"task": "part A", "simple": true, "depends_on": ["does not exist"]}
		]}`,
	}}
	tree := models.NewTree("big problem", 10, 3)

	emitter := NewEventEmitter(64)
	s := New(tree, store.New(t.TempDir()), gw, Options{Emitter: emitter})

	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	emitter.Close()

	if got := tree.Get("root/sub1").Status; got != models.StatusSolved {
		t.Errorf("node with unknown dependency status = %q, want solved", got)
	}

	var skipped bool
	for ev := range emitter.Events() {
		if ev.Type == EventDependencySkipped {
			skipped = true
		}
	}
	if !skipped {
		t.Error("expected a dependency_skipped event")
	}
}

func TestRun_MalformedDecompositionFallsBackToDirectSolve(t *testing.T) {
	gw := &recordingGateway{decompositions: map[string]string{
		"big problem": "I think we should probably split this somehow?",
	}}
	tree := models.NewTree("big problem", 10, 3)
	s := newTestScheduler(t, tree, gw)

	result, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !strings.HasPrefix(result, "solved:") {
		t.Errorf("result = %q, want direct solve", result)
	}
	if got := tree.TotalNodesCreated(); got != 1 {
		t.Errorf("TotalNodesCreated() = %d, want 1", got)
	}
}

func TestRun_CancellationDuringSolveLeavesNodePending(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gw := gatewayFunc(func(c context.Context, prompt, workDir string) (string, error) {
		if callKind(prompt) == "solve" {
			cancel()
			return "", c.Err()
		}
		return `{"decompose": false}`, nil
	})
	tree := models.NewTree("p", 5, 3)
	s := newTestScheduler(t, tree, gw)

	_, err := s.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	if got := tree.Root().Status; got != models.StatusPending {
		t.Errorf("root status = %q, want pending after mid-call cancellation", got)
	}
	if got := tree.Root().Error; got != "" {
		t.Errorf("root error = %q, want none recorded", got)
	}
}

func TestRun_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gw := &recordingGateway{}
	tree := models.NewTree("p", 5, 3)
	s := newTestScheduler(t, tree, gw)

	_, err := s.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
	if gw.total() != 0 {
		t.Errorf("gateway called %d times after cancellation", gw.total())
	}
	if tree.Root().Status.Terminal() {
		t.Errorf("root status = %q, should stay resumable", tree.Root().Status)
	}
}
