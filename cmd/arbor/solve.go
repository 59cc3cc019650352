package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/arbor/internal/config"
	"github.com/ShayCichocki/arbor/internal/scheduler"
	"github.com/ShayCichocki/arbor/internal/state"
	"github.com/ShayCichocki/arbor/internal/store"
	"github.com/ShayCichocki/arbor/internal/ui"
	"github.com/ShayCichocki/arbor/pkg/models"
)

var (
	solveMaxNodes  int
	solveMaxDepth  int
	solveWorkspace string
	solveTimeout   time.Duration
	solveModel     string
	solveHeadless  bool
	solveTwoPhase  bool
)

var solveCmd = &cobra.Command{
	Use:   "solve <problem>",
	Short: "Decompose and solve a problem",
	Long: `Solve a problem by growing a task tree.

The worker is asked to decompose the problem; complex subtasks recurse,
simple subtasks are solved directly, and the parent's solution is
integrated from child results bottom-up. Node and depth budgets bound
the tree: once a budget is hit, remaining tasks are solved directly.

By default decomposition and solving interleave in one depth-first
pass. With --two-phase the full tree is decomposed and persisted
first, then solved bottom-up; an interrupted two-phase run can be
resumed later with 'arbor execute'.

A failed subtask does not abort the run. Its error text is passed to
the parent's integration step so the worker can route around it. The
command exits non-zero only when the worker cannot be reached at all.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSolve,
}

func init() {
	solveCmd.Flags().IntVar(&solveMaxNodes, "max-nodes", 0, "Total node budget for the tree (default from config)")
	solveCmd.Flags().IntVar(&solveMaxDepth, "max-depth", 0, "Maximum tree depth, root is depth 0 (default from config)")
	solveCmd.Flags().StringVar(&solveWorkspace, "workspace", "", "Workspace directory (default: generated under workspace.base_dir)")
	solveCmd.Flags().DurationVar(&solveTimeout, "timeout", 0, "Per-worker-call timeout (default from config)")
	solveCmd.Flags().StringVar(&solveModel, "model", "", "Worker model override")
	solveCmd.Flags().BoolVar(&solveHeadless, "headless", false, "Run without TUI, print events as lines")
	solveCmd.Flags().BoolVar(&solveTwoPhase, "two-phase", false, "Decompose the full tree first, then solve bottom-up")
}

func runSolve(cmd *cobra.Command, args []string) error {
	problem := strings.Join(args, " ")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applySolveOverrides(cfg)

	gw, err := createGateway(cfg)
	if err != nil {
		return err
	}

	workspace := solveWorkspace
	if workspace == "" {
		workspace = store.WorkspacePath(cfg.Workspace.BaseDir, problem)
	}
	if err := os.MkdirAll(workspace, 0755); err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}

	logger := scheduler.NewDebugLoggerForWorkspace(workspace)
	defer logger.Close()
	scheduler.SetPackageLogger(logger)

	tree := models.NewTree(problem, cfg.Budgets.MaxNodes, cfg.Budgets.MaxDepth)
	st := store.New(workspace)
	emitter := scheduler.NewEventEmitter(64)
	sched := scheduler.New(tree, st, gw, scheduler.Options{
		Timeout:         cfg.Worker.Timeout,
		IncludeSnapshot: cfg.Workspace.Snapshot,
		Emitter:         emitter,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec := recordRunStart(problem, workspace, cfg)

	var result string
	var runErr error
	if solveHeadless {
		go printEvents(emitter.Events())
		result, runErr = runStrategy(ctx, sched)
		emitter.Close()
	} else {
		result, runErr = runWithTUI(ctx, emitter, problem, func(ctx context.Context) (string, error) {
			return runStrategy(ctx, sched)
		})
	}

	recordRunEnd(rec, runErr, tree.TotalNodesCreated())

	if runErr != nil {
		fmt.Fprintln(os.Stderr, ui.Errorf("solve failed: %v", runErr))
		return runErr
	}

	if err := st.WriteRunSummary(problem, result); err != nil {
		fmt.Fprintln(os.Stderr, ui.Errorf("write run summary: %v", err))
	}

	fmt.Println(ui.RenderTree(tree))
	fmt.Println(ui.Summary(tree))
	fmt.Printf("\nWorkspace: %s\n\n", workspace)
	fmt.Println(result)
	return nil
}

// runStrategy runs the selected execution strategy to completion.
func runStrategy(ctx context.Context, sched *scheduler.Scheduler) (string, error) {
	if solveTwoPhase {
		if err := sched.DecomposeTree(ctx); err != nil {
			return "", err
		}
		return sched.ExecuteTree(ctx)
	}
	return sched.Run(ctx)
}

// applySolveOverrides folds command-line flags into the loaded config.
func applySolveOverrides(cfg *config.Config) {
	if solveMaxNodes > 0 {
		cfg.Budgets.MaxNodes = solveMaxNodes
	}
	if solveMaxDepth > 0 {
		cfg.Budgets.MaxDepth = solveMaxDepth
	}
	if solveTimeout > 0 {
		cfg.Worker.Timeout = solveTimeout
	}
	if solveModel != "" {
		cfg.Worker.Model = solveModel
	}
}

// recordRunStart registers the run in the state database. The ledger is
// best-effort: a broken database never blocks solving.
func recordRunStart(problem, workspace string, cfg *config.Config) *runRecord {
	db, err := state.Open(state.DefaultPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: state database unavailable: %v\n", err)
		return nil
	}
	status := state.RunStatusExecuting
	if solveTwoPhase {
		status = state.RunStatusDecomposing
	}
	run, err := db.CreateRun(problem, workspace, cfg.Budgets.MaxNodes, cfg.Budgets.MaxDepth, status)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: record run: %v\n", err)
		db.Close()
		return nil
	}
	return &runRecord{db: db, run: run}
}

type runRecord struct {
	db  *state.DB
	run *state.Run
}

// recordRunEnd stamps the run's terminal status in the state database.
func recordRunEnd(rec *runRecord, runErr error, nodesCreated int) {
	if rec == nil {
		return
	}
	defer rec.db.Close()

	status := state.RunStatusDone
	if runErr != nil {
		status = state.RunStatusFailed
	}
	if err := rec.db.UpdateRun(rec.run.ID, status, nodesCreated); err != nil {
		fmt.Fprintf(os.Stderr, "warning: update run: %v\n", err)
	}
}

// printEvents writes scheduler events as plain lines for headless runs.
func printEvents(events <-chan scheduler.Event) {
	for ev := range events {
		switch ev.Type {
		case scheduler.EventNodeCreated:
			fmt.Printf("+ %s  %s\n", ev.NodeID, ev.Message)
		case scheduler.EventDecomposing:
			fmt.Printf("… decomposing %s\n", ev.NodeID)
		case scheduler.EventSolving:
			fmt.Printf("… solving %s\n", ev.NodeID)
		case scheduler.EventIntegrating:
			fmt.Printf("… integrating %s\n", ev.NodeID)
		case scheduler.EventNodeSolved:
			fmt.Printf("✓ %s\n", ev.NodeID)
		case scheduler.EventNodeFailed:
			fmt.Printf("✗ %s  %v\n", ev.NodeID, ev.Err)
		case scheduler.EventDependencySkipped:
			fmt.Printf("~ %s\n", ev.Message)
		}
	}
}
