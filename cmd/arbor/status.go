package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/arbor/internal/state"
	"github.com/ShayCichocki/arbor/internal/store"
	"github.com/ShayCichocki/arbor/internal/ui"
)

var statusFollow bool

var statusCmd = &cobra.Command{
	Use:   "status [workspace]",
	Short: "Show run history or a workspace's task tree",
	Long: `Without arguments, lists recent runs from the run ledger.

With a workspace path, renders that workspace's task tree with each
node's status. Pass --follow to keep watching the workspace and
re-render as another arbor process solves it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusFollow, "follow", false, "Watch the workspace and re-render on changes")
}

func runStatus(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return listRecentRuns()
	}

	workspace := args[0]
	if err := renderWorkspace(workspace); err != nil {
		return err
	}
	if statusFollow {
		return followWorkspace(workspace)
	}
	return nil
}

// listRecentRuns prints the run ledger, newest first.
func listRecentRuns() error {
	db, err := state.Open(state.DefaultPath())
	if err != nil {
		return fmt.Errorf("open state database: %w", err)
	}
	defer db.Close()

	runs, err := db.ListRuns()
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded. Run 'arbor solve <problem>' to start.")
		return nil
	}

	for _, run := range runs {
		problem := run.Problem
		if len(problem) > 50 {
			problem = problem[:47] + "..."
		}
		fmt.Printf("%-12s %-19s nodes=%-3d %s\n",
			run.Status, run.StartedAt.Format("2006-01-02 15:04:05"), run.NodesCreated, problem)
		fmt.Printf("             %s\n", run.Workspace)
	}
	return nil
}

// renderWorkspace loads and prints the workspace's task tree.
func renderWorkspace(workspace string) error {
	st := store.New(workspace)
	tree, err := st.Load()
	if err != nil {
		return fmt.Errorf("load workspace %s: %w", workspace, err)
	}

	fmt.Println(ui.RenderTree(tree))
	fmt.Println(ui.Summary(tree))
	return nil
}

// followWorkspace re-renders the tree whenever files in the workspace
// change. Node directories appear as the tree grows, so newly created
// directories are added to the watch as they show up.
func followWorkspace(workspace string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watchAllDirs(watcher, workspace); err != nil {
		return err
	}

	// Coalesce bursts of events into one redraw
	var pending <-chan time.Time

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					watcher.Add(event.Name)
				}
			}
			pending = time.After(200 * time.Millisecond)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "watch error: %v\n", err)

		case <-pending:
			pending = nil
			fmt.Print("\033[H\033[2J")
			if err := renderWorkspace(workspace); err != nil {
				fmt.Fprintf(os.Stderr, "render: %v\n", err)
			}
		}
	}
}

// watchAllDirs registers the workspace and every directory under it.
func watchAllDirs(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := watcher.Add(path); err != nil {
				return fmt.Errorf("watch %s: %w", path, err)
			}
		}
		return nil
	})
}
