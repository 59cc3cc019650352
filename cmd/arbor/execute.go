package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/arbor/internal/config"
	"github.com/ShayCichocki/arbor/internal/scheduler"
	"github.com/ShayCichocki/arbor/internal/state"
	"github.com/ShayCichocki/arbor/internal/store"
	"github.com/ShayCichocki/arbor/internal/ui"
)

var (
	executeTimeout  time.Duration
	executeModel    string
	executeHeadless bool
)

var executeCmd = &cobra.Command{
	Use:   "execute <workspace>",
	Short: "Solve a decomposed workspace bottom-up",
	Long: `Execute a task tree previously built with 'arbor decompose'.

Leaves are solved first, then each parent integrates its children's
results, finishing at the root. Nodes that already hold a solution are
skipped, so an interrupted execution can be re-run and resumes where
it stopped.`,
	Args: cobra.ExactArgs(1),
	RunE: runExecute,
}

func init() {
	executeCmd.Flags().DurationVar(&executeTimeout, "timeout", 0, "Per-worker-call timeout (default from config)")
	executeCmd.Flags().StringVar(&executeModel, "model", "", "Worker model override")
	executeCmd.Flags().BoolVar(&executeHeadless, "headless", false, "Run without TUI, print events as lines")
}

func runExecute(cmd *cobra.Command, args []string) error {
	workspace := args[0]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if executeTimeout > 0 {
		cfg.Worker.Timeout = executeTimeout
	}
	if executeModel != "" {
		cfg.Worker.Model = executeModel
	}

	gw, err := createGateway(cfg)
	if err != nil {
		return err
	}

	st := store.New(workspace)
	tree, err := st.Load()
	if err != nil {
		return fmt.Errorf("load workspace %s: %w", workspace, err)
	}

	logger := scheduler.NewDebugLoggerForWorkspace(workspace)
	defer logger.Close()
	scheduler.SetPackageLogger(logger)

	emitter := scheduler.NewEventEmitter(64)
	sched := scheduler.New(tree, st, gw, scheduler.Options{
		Timeout:         cfg.Worker.Timeout,
		IncludeSnapshot: cfg.Workspace.Snapshot,
		Emitter:         emitter,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec := findRunRecord(workspace)
	if rec != nil {
		if err := rec.db.UpdateRun(rec.run.ID, state.RunStatusExecuting, tree.TotalNodesCreated()); err != nil {
			fmt.Fprintf(os.Stderr, "warning: update run: %v\n", err)
		}
	}

	var result string
	var runErr error
	if executeHeadless {
		go printEvents(emitter.Events())
		result, runErr = sched.ExecuteTree(ctx)
		emitter.Close()
	} else {
		problem := tree.Root().Description
		result, runErr = runWithTUI(ctx, emitter, problem, sched.ExecuteTree)
	}

	recordRunEnd(rec, runErr, tree.TotalNodesCreated())

	if runErr != nil {
		fmt.Fprintln(os.Stderr, ui.Errorf("execute failed: %v", runErr))
		return runErr
	}

	if err := st.WriteRunSummary(tree.Root().Description, result); err != nil {
		fmt.Fprintln(os.Stderr, ui.Errorf("write run summary: %v", err))
	}

	fmt.Println(ui.RenderTree(tree))
	fmt.Println(ui.Summary(tree))
	fmt.Println()
	fmt.Println(result)
	return nil
}

// findRunRecord looks up the workspace's run in the state database.
func findRunRecord(workspace string) *runRecord {
	db, err := state.Open(state.DefaultPath())
	if err != nil {
		return nil
	}
	run, err := db.FindByWorkspace(workspace)
	if err != nil || run == nil {
		db.Close()
		return nil
	}
	return &runRecord{db: db, run: run}
}
