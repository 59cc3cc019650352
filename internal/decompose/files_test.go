package decompose

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ShayCichocki/arbor/pkg/models"
)

func writeSubtask(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestDiscoverChildren_NoDirectory(t *testing.T) {
	result := DiscoverChildren(t.TempDir())
	if result.Decomposed {
		t.Error("missing subtasks dir should yield no decomposition")
	}
}

func TestDiscoverChildren_SortedOrder(t *testing.T) {
	workDir := t.TempDir()
	dir := filepath.Join(workDir, SubtasksDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	writeSubtask(t, dir, "02_second.md", "# Second task")
	writeSubtask(t, dir, "01_first.md", "# First task")
	writeSubtask(t, dir, "notes.txt", "not a subtask")

	result := DiscoverChildren(workDir)
	if !result.Decomposed {
		t.Fatal("expected a decomposition")
	}
	if len(result.Children) != 2 {
		t.Fatalf("got %d children, want 2", len(result.Children))
	}
	if result.Children[0].Description != "First task" {
		t.Errorf("child 0 = %q, want %q", result.Children[0].Description, "First task")
	}
	if result.Children[1].Description != "Second task" {
		t.Errorf("child 1 = %q, want %q", result.Children[1].Description, "Second task")
	}
}

func TestDiscoverChildren_FrontMatter(t *testing.T) {
	workDir := t.TempDir()
	dir := filepath.Join(workDir, SubtasksDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	writeSubtask(t, dir, "01.md", `---
kind: complex
depends_on:
  - set up the database
---
Build the ingestion pipeline`)

	result := DiscoverChildren(workDir)
	if !result.Decomposed {
		t.Fatal("expected a decomposition")
	}
	child := result.Children[0]
	if child.Kind != models.KindComplex {
		t.Errorf("kind = %q, want complex", child.Kind)
	}
	if child.Description != "Build the ingestion pipeline" {
		t.Errorf("description = %q", child.Description)
	}
	if len(child.Dependencies) != 1 || child.Dependencies[0] != "set up the database" {
		t.Errorf("dependencies = %v", child.Dependencies)
	}
}

func TestDiscoverChildren_KindFromBody(t *testing.T) {
	tests := []struct {
		name string
		body string
		want models.NodeKind
	}{
		{"explicit complex", "This is a complex task needing further breakdown", models.KindComplex},
		{"explicit simple", "A simple lookup", models.KindSimple},
		{"no hint defaults simple", "Write the README", models.KindSimple},
		{"first occurrence wins", "simple on the surface but complex underneath", models.KindSimple},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			workDir := t.TempDir()
			dir := filepath.Join(workDir, SubtasksDirName)
			if err := os.MkdirAll(dir, 0755); err != nil {
				t.Fatal(err)
			}
			writeSubtask(t, dir, "01.md", tt.body)

			result := DiscoverChildren(workDir)
			if !result.Decomposed {
				t.Fatal("expected a decomposition")
			}
			if result.Children[0].Kind != tt.want {
				t.Errorf("kind = %q, want %q", result.Children[0].Kind, tt.want)
			}
		})
	}
}

func TestDiscoverChildren_EmptyFilesIgnored(t *testing.T) {
	workDir := t.TempDir()
	dir := filepath.Join(workDir, SubtasksDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	writeSubtask(t, dir, "01.md", "   \n")

	result := DiscoverChildren(workDir)
	if result.Decomposed {
		t.Error("only-empty subtask files should yield no decomposition")
	}
}
