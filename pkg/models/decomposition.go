package models

// ChildSpec describes one proposed subtask from a decomposition response.
type ChildSpec struct {
	// Description is the subtask problem statement.
	Description string `json:"task"`
	// Kind labels the subtask simple (leaf) or complex.
	Kind NodeKind `json:"-"`
	// Dependencies lists sibling names this subtask depends on.
	Dependencies []string `json:"depends_on,omitempty"`
}

// DecompositionResult is the canonical outcome of interpreting a worker's
// decomposition response, regardless of which wire convention produced it.
type DecompositionResult struct {
	// Decomposed is false when the worker chose to solve directly, or
	// when the response could not be interpreted at all.
	Decomposed bool
	// Approach is the worker's stated high-level strategy, may be empty.
	Approach string
	// Children lists the proposed subtasks in declared order. Empty
	// unless Decomposed is true.
	Children []ChildSpec
}

// NoDecomposition is the result used when the node should be solved
// directly, either by the worker's choice or as the malformed-response
// fallback.
func NoDecomposition() DecompositionResult {
	return DecompositionResult{}
}
