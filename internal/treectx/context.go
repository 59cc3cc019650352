// Package treectx builds the ancestor and sibling context handed to a
// node's worker call. Context is a fixed-shape record constructed once
// per call and immutable afterwards.
package treectx

import (
	"fmt"
	"strings"

	"github.com/ShayCichocki/arbor/pkg/models"
)

// Context carries the information a node's worker needs about its place
// in the tree. A zero ParentTask means the node is the root and there is
// no ancestor block to render; that is a valid state, not an error.
type Context struct {
	// RootProblem is the root node's description.
	RootProblem string
	// ParentTask is the immediate parent's description, "" for the root.
	ParentTask string
	// ParentApproach is the parent's stated decomposition strategy.
	ParentApproach string
	// SiblingTasks lists sibling descriptions in declared order,
	// excluding the node itself.
	SiblingTasks []string
	// TreeSnapshot is an optional rendering of the whole tree with the
	// current node marked.
	TreeSnapshot string
}

// ToPrompt renders the context as a prompt preamble. Returns "" when
// there is no ancestor context (root node); callers append it directly
// in front of their own prompt text.
func (c Context) ToPrompt() string {
	if c.ParentTask == "" {
		return ""
	}

	var b strings.Builder
	b.WriteString("=== CONTEXT FROM ANCESTORS ===\n")
	fmt.Fprintf(&b, "Root Goal: %s\n", c.RootProblem)
	fmt.Fprintf(&b, "Parent Task: %s\n", c.ParentTask)
	fmt.Fprintf(&b, "Parent's Approach: %s\n", c.ParentApproach)
	b.WriteString("Sibling Tasks:\n")
	for _, task := range c.SiblingTasks {
		fmt.Fprintf(&b, "  - %s\n", task)
	}
	b.WriteString("===========================\n\n")

	if c.TreeSnapshot != "" {
		b.WriteString("Here's where your task fits in the overall structure:\n")
		b.WriteString(c.TreeSnapshot)
		b.WriteString("\n\n")
	}

	return b.String()
}

// Builder constructs Contexts from tree state. It holds no cache: the
// sibling list can grow while decomposition proceeds, so every build
// reads the tree fresh.
type Builder struct {
	// IncludeSnapshot controls whether the rendered tree snapshot is
	// attached to built contexts.
	IncludeSnapshot bool
}

// Build returns the context for the given node as a pure function of
// current tree state.
func (b *Builder) Build(tree *models.Tree, node *models.Node) Context {
	ctx := Context{}
	if root := tree.Root(); root != nil {
		ctx.RootProblem = root.Description
	}

	parent := tree.Get(node.ParentID())
	if parent != nil {
		ctx.ParentTask = parent.Description
		ctx.ParentApproach = parent.Approach
		for _, childID := range parent.Children {
			if childID == node.ID {
				continue
			}
			if sib := tree.Get(childID); sib != nil {
				ctx.SiblingTasks = append(ctx.SiblingTasks, sib.Description)
			}
		}
	}

	if b.IncludeSnapshot {
		ctx.TreeSnapshot = Snapshot(tree, node.ID)
	}

	return ctx
}

// Snapshot renders the whole tree as an indented outline with one-line
// summaries, marking the given node with [YOU ARE HERE].
func Snapshot(tree *models.Tree, currentID string) string {
	root := tree.Root()
	if root == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(root.ID + "/\n")
	writeSnapshot(&b, tree, root, "", currentID)
	return strings.TrimRight(b.String(), "\n")
}

func writeSnapshot(b *strings.Builder, tree *models.Tree, node *models.Node, prefix, currentID string) {
	for i, childID := range node.Children {
		child := tree.Get(childID)
		if child == nil {
			continue
		}
		last := i == len(node.Children)-1
		connector := "├── "
		extension := "│   "
		if last {
			connector = "└── "
			extension = "    "
		}

		marker := ""
		if child.ID == currentID {
			marker = " [YOU ARE HERE]"
		}
		fmt.Fprintf(b, "%s%s%s - %q%s\n", prefix, connector, child.Name(), summarize(child.Description), marker)
		writeSnapshot(b, tree, child, prefix+extension, currentID)
	}
}

// summarize truncates a description to a single short line.
func summarize(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	if len(s) > 60 {
		s = s[:57] + "..."
	}
	return s
}
