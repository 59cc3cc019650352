package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "arbor",
	Short: "Recursive task-tree problem solver",
	Long: `Arbor solves problems by growing a task tree: a worker decomposes
complex tasks into subtasks, simple tasks are solved directly, and
parent solutions are integrated bottom-up from child results.

Global budgets cap the tree: a maximum number of nodes across the
whole run and a maximum depth. When a budget is reached, tasks are
solved directly instead of decomposed.

Core commands:
  solve      decompose and solve a problem in one pass
  decompose  plan only: build the full task tree without solving
  execute    solve a previously decomposed workspace (resumable)
  status     inspect a workspace or list recent runs`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(solveCmd)
	rootCmd.AddCommand(decomposeCmd)
	rootCmd.AddCommand(executeCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
