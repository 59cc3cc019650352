package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// ProblemSlug derives a filesystem-safe name from a problem statement:
// the first five words, lowercased, joined with underscores, stripped of
// anything outside [a-z0-9_], capped at 50 bytes.
func ProblemSlug(problem string) string {
	words := strings.Fields(strings.ToLower(problem))
	if len(words) > 5 {
		words = words[:5]
	}
	name := strings.Join(words, "_")

	var b strings.Builder
	for _, r := range name {
		if r == '_' || unicode.IsLower(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	slug := b.String()
	if len(slug) > 50 {
		slug = slug[:50]
	}
	if slug == "" {
		slug = "problem"
	}
	return slug
}

// WriteRunSummary writes the workspace-level planning.md linking the
// problem to the solution tree, with a short excerpt of the final text.
func (s *Store) WriteRunSummary(problem, solution string) error {
	excerpt := solution
	if len(excerpt) > 500 {
		excerpt = excerpt[:500] + "..."
	}
	content := fmt.Sprintf(`# Arbor Run

## Problem
%s

## Final Solution Summary
%s

See root/ for the complete hierarchical breakdown.
`, problem, excerpt)

	path := filepath.Join(s.root, "planning.md")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("write run summary: %w", err)
	}
	return nil
}

// WorkspacePath builds a timestamped workspace directory path for a new
// run under baseDir, e.g. tmp/arbor_build_a_web_scraper_20240131_154502.
func WorkspacePath(baseDir, problem string) string {
	timestamp := time.Now().Format("20060102_150405")
	name := fmt.Sprintf("arbor_%s_%s", ProblemSlug(problem), timestamp)
	return filepath.Join(baseDir, name)
}
