// Package ui renders the task tree and run status for the terminal.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"github.com/ShayCichocki/arbor/pkg/models"
)

var (
	idStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("69")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	solvedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// statusGlyph maps node statuses to a one-character marker.
func statusGlyph(status models.NodeStatus) string {
	switch status {
	case models.StatusSolved:
		return solvedStyle.Render("✓")
	case models.StatusFailed:
		return failedStyle.Render("✗")
	case models.StatusDecomposing, models.StatusSolving, models.StatusAwaitingChildren:
		return activeStyle.Render("●")
	default:
		return dimStyle.Render("○")
	}
}

// RenderTree draws the tree with box-drawing connectors, status glyphs,
// and truncated one-line descriptions.
func RenderTree(tree *models.Tree) string {
	root := tree.Root()
	if root == nil {
		return dimStyle.Render("(empty tree)")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s\n", statusGlyph(root.Status), idStyle.Render(root.ID), summarize(root.Description))
	renderChildren(&b, tree, root, "")
	return b.String()
}

func renderChildren(b *strings.Builder, tree *models.Tree, node *models.Node, prefix string) {
	for i, childID := range node.Children {
		child := tree.Get(childID)
		if child == nil {
			continue
		}
		connector := "├── "
		extension := "│   "
		if i == len(node.Children)-1 {
			connector = "└── "
			extension = "    "
		}

		label := summarize(child.Description)
		if len(child.Dependencies) > 0 {
			label += dimStyle.Render(fmt.Sprintf(" (after %s)", strings.Join(child.Dependencies, ", ")))
		}
		fmt.Fprintf(b, "%s%s%s %s %s\n", prefix, connector, statusGlyph(child.Status), idStyle.Render(child.Name()), label)
		renderChildren(b, tree, child, prefix+extension)
	}
}

func summarize(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		s = s[:idx]
	}
	if len(s) > 70 {
		s = s[:67] + "..."
	}
	return s
}

// Summary prints the end-of-run counters in one line.
func Summary(tree *models.Tree) string {
	var solved, failed int
	for _, id := range tree.IDs() {
		switch tree.Get(id).Status {
		case models.StatusSolved:
			solved++
		case models.StatusFailed:
			failed++
		}
	}
	return fmt.Sprintf("%d nodes created (budget %d), %s solved, %s failed",
		tree.TotalNodesCreated(), tree.MaxNodes,
		color.GreenString("%d", solved), color.RedString("%d", failed))
}

// Errorf prints an error line in red to stderr-style output.
func Errorf(format string, args ...interface{}) string {
	return color.RedString("error: "+format, args...)
}
