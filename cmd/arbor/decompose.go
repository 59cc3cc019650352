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
	decomposeMaxNodes  int
	decomposeMaxDepth  int
	decomposeWorkspace string
	decomposeTimeout   time.Duration
	decomposeModel     string
)

var decomposeCmd = &cobra.Command{
	Use:   "decompose <problem>",
	Short: "Build the full task tree without solving",
	Long: `Decompose a problem into a complete task tree and persist it.

No task is solved: the worker is only asked to plan. The resulting
tree is written to the workspace, where every node is a directory with
a task.md describing the task, its kind, and its dependencies.

Review or edit the plan, then run 'arbor execute <workspace>' to solve
it bottom-up.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDecompose,
}

func init() {
	decomposeCmd.Flags().IntVar(&decomposeMaxNodes, "max-nodes", 0, "Total node budget for the tree (default from config)")
	decomposeCmd.Flags().IntVar(&decomposeMaxDepth, "max-depth", 0, "Maximum tree depth, root is depth 0 (default from config)")
	decomposeCmd.Flags().StringVar(&decomposeWorkspace, "workspace", "", "Workspace directory (default: generated under workspace.base_dir)")
	decomposeCmd.Flags().DurationVar(&decomposeTimeout, "timeout", 0, "Per-worker-call timeout (default from config)")
	decomposeCmd.Flags().StringVar(&decomposeModel, "model", "", "Worker model override")
}

func runDecompose(cmd *cobra.Command, args []string) error {
	problem := strings.Join(args, " ")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if decomposeMaxNodes > 0 {
		cfg.Budgets.MaxNodes = decomposeMaxNodes
	}
	if decomposeMaxDepth > 0 {
		cfg.Budgets.MaxDepth = decomposeMaxDepth
	}
	if decomposeTimeout > 0 {
		cfg.Worker.Timeout = decomposeTimeout
	}
	if decomposeModel != "" {
		cfg.Worker.Model = decomposeModel
	}

	gw, err := createGateway(cfg)
	if err != nil {
		return err
	}

	workspace := decomposeWorkspace
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
	sched := scheduler.New(tree, st, gw, scheduler.Options{
		Timeout:         cfg.Worker.Timeout,
		IncludeSnapshot: cfg.Workspace.Snapshot,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var rec *runRecord
	if db, err := state.Open(state.DefaultPath()); err == nil {
		if run, err := db.CreateRun(problem, workspace, cfg.Budgets.MaxNodes, cfg.Budgets.MaxDepth, state.RunStatusDecomposing); err == nil {
			rec = &runRecord{db: db, run: run}
		} else {
			db.Close()
		}
	}

	fmt.Printf("Decomposing: %s\n", problem)
	decErr := sched.DecomposeTree(ctx)

	if rec != nil {
		status := state.RunStatusDecomposed
		if decErr != nil {
			status = state.RunStatusFailed
		}
		if err := rec.db.UpdateRun(rec.run.ID, status, tree.TotalNodesCreated()); err != nil {
			fmt.Fprintf(os.Stderr, "warning: update run: %v\n", err)
		}
		rec.db.Close()
	}

	if decErr != nil {
		return decErr
	}

	fmt.Println(ui.RenderTree(tree))
	fmt.Printf("\nWorkspace: %s\n", workspace)
	fmt.Printf("Run 'arbor execute %s' to solve it.\n", workspace)
	return nil
}
