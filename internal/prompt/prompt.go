// Package prompt builds the three worker prompts: decompose, solve, and
// integrate. Each takes the node's ancestor context rendered by treectx.
package prompt

import (
	"fmt"
	"strings"

	"github.com/ShayCichocki/arbor/internal/treectx"
)

// decomposeTemplate asks the worker to either decline decomposition or
// enumerate subtasks tagged simple or complex, as a JSON object.
const decomposeTemplate = `%sAnalyze this problem and identify how it can break into sub-problems,
in what order they need to run, and what context each one needs.

Problem: %s

If this problem is simple enough to solve directly (single focused task),
respond with:
{"decompose": false}

If this problem needs breaking down, respond with subtasks and specify
whether each subtask will be simple or complex:
{"decompose": true, "approach": "high-level strategy", "subtasks": [
    {"task": "specific subtask 1", "simple": true},
    {"task": "specific subtask 2", "simple": false, "depends_on": ["specific subtask 1"]}
]}

IMPORTANT:
- A "simple": true subtask is a LEAF which cannot recurse further
- A "simple": false subtask may decompose further if needed
- Use "depends_on" to name subtasks that must complete first
- Each subtask should have clear, focused scope

Respond with ONLY valid JSON.`

// solveTemplate asks the worker for a direct solution to a leaf problem.
const solveTemplate = `%sSolve this problem:
%s

Provide a concrete solution with implementation details. Focus on solving
just this specific task; other tasks in the tree are handled separately.`

// integrateTemplate asks the worker to combine child solutions into one.
const integrateTemplate = `%sOriginal problem: %s

Sub-solutions:
%s

Integrate these sub-solutions into a complete solution for the original
problem. Resolve any overlap or inconsistency between them. If a
sub-solution reports an error, work around it where possible and note
the gap in the final result.`

// Decompose renders the decomposition prompt for a problem.
func Decompose(ctx treectx.Context, problem string) string {
	return fmt.Sprintf(decomposeTemplate, ctx.ToPrompt(), problem)
}

// Solve renders the direct-solve prompt for a problem.
func Solve(ctx treectx.Context, problem string) string {
	return fmt.Sprintf(solveTemplate, ctx.ToPrompt(), problem)
}

// Solution pairs a subtask description with its solution text for
// integration. Failed subtasks carry their error text as the solution.
type Solution struct {
	Task   string
	Result string
}

// Integrate renders the integration prompt over child solutions in
// declared order.
func Integrate(ctx treectx.Context, problem string, solutions []Solution) string {
	var b strings.Builder
	for i, s := range solutions {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "### %s\nSolution: %s", s.Task, s.Result)
	}
	return fmt.Sprintf(integrateTemplate, ctx.ToPrompt(), problem, b.String())
}
