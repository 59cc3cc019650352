package scheduler

import "github.com/ShayCichocki/arbor/pkg/models"

// Governor answers whether a node may decompose further. It is a pure
// query; the node counter is consumed elsewhere, exactly once per node,
// when the scheduler creates it through Tree.AddNode.
type Governor struct{}

// MayDecompose returns false when the global node budget is exhausted,
// the node sits at the depth cutoff, or the node is a simple leaf.
// Simple nodes never decompose regardless of remaining budget: the leaf
// label is a contract, not a depth artifact.
func (Governor) MayDecompose(tree *models.Tree, node *models.Node) bool {
	if tree.TotalNodesCreated() >= tree.MaxNodes {
		return false
	}
	if node.Depth >= tree.MaxDepth {
		return false
	}
	if node.Kind == models.KindSimple {
		return false
	}
	return true
}
