package models

import (
	"strings"
	"testing"
)

func TestNewTree(t *testing.T) {
	tree := NewTree("build a web scraper", 10, 4)

	root := tree.Root()
	if root == nil {
		t.Fatal("NewTree should create a root node")
	}
	if root.ID != "root" {
		t.Errorf("root ID = %q, want %q", root.ID, "root")
	}
	if root.Description != "build a web scraper" {
		t.Errorf("root description = %q", root.Description)
	}
	if root.Kind != KindComplex {
		t.Errorf("root kind = %q, want complex", root.Kind)
	}
	if root.Depth != 0 {
		t.Errorf("root depth = %d, want 0", root.Depth)
	}
	if got := tree.TotalNodesCreated(); got != 1 {
		t.Errorf("TotalNodesCreated() = %d, want 1", got)
	}
}

func TestNewTree_DefaultBudgets(t *testing.T) {
	tree := NewTree("p", 0, 0)
	if tree.MaxNodes != DefaultMaxNodes {
		t.Errorf("MaxNodes = %d, want %d", tree.MaxNodes, DefaultMaxNodes)
	}
	if tree.MaxDepth != DefaultMaxDepth {
		t.Errorf("MaxDepth = %d, want %d", tree.MaxDepth, DefaultMaxDepth)
	}
}

func TestAddNode(t *testing.T) {
	tree := NewTree("p", 10, 3)

	child, err := tree.AddNode("root", "sub1", "first subtask", KindSimple)
	if err != nil {
		t.Fatalf("AddNode failed: %v", err)
	}
	if child.ID != "root/sub1" {
		t.Errorf("child ID = %q, want %q", child.ID, "root/sub1")
	}
	if child.Depth != 1 {
		t.Errorf("child depth = %d, want 1", child.Depth)
	}
	if child.Status != StatusPending {
		t.Errorf("child status = %q, want pending", child.Status)
	}

	root := tree.Root()
	if len(root.Children) != 1 || root.Children[0] != "root/sub1" {
		t.Errorf("root children = %v, want [root/sub1]", root.Children)
	}
	if got := tree.TotalNodesCreated(); got != 2 {
		t.Errorf("TotalNodesCreated() = %d, want 2", got)
	}
}

func TestAddNode_BudgetExhausted(t *testing.T) {
	tree := NewTree("p", 2, 3)

	if _, err := tree.AddNode("root", "sub1", "fits", KindSimple); err != nil {
		t.Fatalf("first AddNode failed: %v", err)
	}

	_, err := tree.AddNode("root", "sub2", "over budget", KindSimple)
	if err == nil {
		t.Fatal("AddNode should fail once the budget is spent")
	}
	if !strings.Contains(err.Error(), "budget") {
		t.Errorf("error = %v, want budget message", err)
	}
	if got := tree.TotalNodesCreated(); got != 2 {
		t.Errorf("TotalNodesCreated() = %d, want 2 after rejection", got)
	}
}

func TestAddNode_UnknownParent(t *testing.T) {
	tree := NewTree("p", 5, 3)
	if _, err := tree.AddNode("root/missing", "sub1", "d", KindSimple); err == nil {
		t.Error("AddNode with unknown parent should fail")
	}
}

func TestAddNode_DuplicateID(t *testing.T) {
	tree := NewTree("p", 5, 3)
	if _, err := tree.AddNode("root", "sub1", "d", KindSimple); err != nil {
		t.Fatalf("AddNode failed: %v", err)
	}
	if _, err := tree.AddNode("root", "sub1", "again", KindSimple); err == nil {
		t.Error("AddNode with duplicate name should fail")
	}
}

func TestRemainingBudget(t *testing.T) {
	tree := NewTree("p", 3, 3)
	if got := tree.RemainingBudget(); got != 2 {
		t.Errorf("RemainingBudget() = %d, want 2", got)
	}

	tree.AddNode("root", "sub1", "d", KindSimple)
	tree.AddNode("root", "sub2", "d", KindSimple)
	if got := tree.RemainingBudget(); got != 0 {
		t.Errorf("RemainingBudget() = %d, want 0", got)
	}
}

func TestSetSolution_WriteOnce(t *testing.T) {
	tree := NewTree("p", 5, 3)

	if err := tree.SetSolution("root", "first"); err != nil {
		t.Fatalf("SetSolution failed: %v", err)
	}
	root := tree.Root()
	if root.Solution != "first" {
		t.Errorf("solution = %q, want %q", root.Solution, "first")
	}
	if root.Status != StatusSolved {
		t.Errorf("status = %q, want solved", root.Status)
	}

	if err := tree.SetSolution("root", "second"); err == nil {
		t.Fatal("second SetSolution should fail")
	}
	if root.Solution != "first" {
		t.Errorf("solution changed to %q after rejected write", root.Solution)
	}
}

func TestSetSolution_EmptyReplyStillWriteOnce(t *testing.T) {
	tree := NewTree("p", 5, 3)

	if err := tree.SetSolution("root", ""); err != nil {
		t.Fatalf("SetSolution failed: %v", err)
	}
	if tree.Root().Status != StatusSolved {
		t.Errorf("status = %q, want solved for an empty reply", tree.Root().Status)
	}
	if err := tree.SetSolution("root", "late"); err == nil {
		t.Error("second SetSolution should fail after an empty reply was recorded")
	}
}

func TestSetSolution_UnknownNode(t *testing.T) {
	tree := NewTree("p", 5, 3)
	if err := tree.SetSolution("root/nope", "x"); err == nil {
		t.Error("SetSolution on unknown node should fail")
	}
}

func TestIDs_SortedParentsFirst(t *testing.T) {
	tree := NewTree("p", 10, 3)
	tree.AddNode("root", "sub2", "b", KindComplex)
	tree.AddNode("root", "sub1", "a", KindComplex)
	tree.AddNode("root/sub1", "sub1", "a1", KindSimple)

	ids := tree.IDs()
	want := []string{"root", "root/sub1", "root/sub1/sub1", "root/sub2"}
	if len(ids) != len(want) {
		t.Fatalf("IDs() = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("IDs()[%d] = %q, want %q", i, ids[i], want[i])
		}
	}
}

func TestLeaves(t *testing.T) {
	tree := NewTree("p", 10, 3)
	tree.AddNode("root", "sub1", "a", KindComplex)
	tree.AddNode("root", "sub2", "b", KindSimple)
	tree.AddNode("root/sub1", "sub1", "a1", KindSimple)

	leaves := tree.Leaves()
	want := []string{"root/sub1/sub1", "root/sub2"}
	if len(leaves) != len(want) {
		t.Fatalf("Leaves() = %v, want %v", leaves, want)
	}
	for i := range want {
		if leaves[i] != want[i] {
			t.Errorf("Leaves()[%d] = %q, want %q", i, leaves[i], want[i])
		}
	}
}

func TestRestore(t *testing.T) {
	tree := EmptyTree(5, 3)
	tree.Restore(&Node{ID: "root", Description: "p", Kind: KindComplex})
	tree.Restore(&Node{ID: "root/sub1", Kind: KindSimple, Depth: 1})

	if got := tree.TotalNodesCreated(); got != 2 {
		t.Errorf("TotalNodesCreated() = %d, want 2", got)
	}

	// Restoring the same node again must not double-count.
	tree.Restore(&Node{ID: "root/sub1", Kind: KindSimple, Depth: 1})
	if got := tree.TotalNodesCreated(); got != 2 {
		t.Errorf("TotalNodesCreated() = %d after re-restore, want 2", got)
	}
}
