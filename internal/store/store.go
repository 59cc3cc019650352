// Package store persists the task tree to the filesystem.
//
// Layout: one directory per node path under the workspace root. Each
// node directory holds task.md (YAML front matter plus the problem
// statement), solution.md once solved, and one subdirectory per child.
// The node ID equals its directory path relative to the workspace, so
// the store round-trips without any side index.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ShayCichocki/arbor/pkg/models"
)

// ErrSolutionExists indicates an attempt to overwrite a node's solution.
var ErrSolutionExists = errors.New("solution already exists")

// ErrNotFound indicates the requested node has no task.md on disk.
var ErrNotFound = errors.New("node not found")

const (
	taskFileName     = "task.md"
	solutionFileName = "solution.md"
	metaFileName     = "tree.yaml"
)

// taskMeta is the front matter of a task.md file.
type taskMeta struct {
	Kind         models.NodeKind   `yaml:"kind"`
	Status       models.NodeStatus `yaml:"status"`
	Depth        int               `yaml:"depth"`
	Children     []string          `yaml:"children,omitempty"`
	Dependencies []string          `yaml:"dependencies,omitempty"`
	Approach     string            `yaml:"approach,omitempty"`
	Error        string            `yaml:"error,omitempty"`
}

// treeMeta is the workspace-level tree.yaml, making the snapshot
// self-describing so Phase 2 can resume with no in-memory state.
type treeMeta struct {
	Root     string `yaml:"root"`
	MaxNodes int    `yaml:"max_nodes"`
	MaxDepth int    `yaml:"max_depth"`
	Created  int    `yaml:"nodes_created"`
}

// Store reads and writes a persisted task tree rooted at a workspace
// directory.
type Store struct {
	root string
}

// New creates a store over the given workspace directory.
func New(root string) *Store {
	return &Store{root: root}
}

// Root returns the workspace directory.
func (s *Store) Root() string {
	return s.root
}

// NodeDir returns the on-disk directory for a node ID.
func (s *Store) NodeDir(id string) string {
	return filepath.Join(s.root, filepath.FromSlash(id))
}

// SaveNode writes a node's task.md, creating its directory as needed.
// The solution is not written here; see SetSolution.
func (s *Store) SaveNode(node *models.Node) error {
	dir := s.NodeDir(node.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create node directory: %w", err)
	}

	// Children are stored by name; the full IDs are implied by the path.
	var childNames []string
	for _, childID := range node.Children {
		childNames = append(childNames, childID[strings.LastIndexByte(childID, '/')+1:])
	}

	meta := taskMeta{
		Kind:         node.Kind,
		Status:       node.Status,
		Depth:        node.Depth,
		Children:     childNames,
		Dependencies: node.Dependencies,
		Approach:     node.Approach,
		Error:        node.Error,
	}
	metaBytes, err := yaml.Marshal(&meta)
	if err != nil {
		return fmt.Errorf("marshal front matter: %w", err)
	}

	var b strings.Builder
	b.WriteString("---\n")
	b.Write(metaBytes)
	b.WriteString("---\n\n")
	b.WriteString(node.Description)
	b.WriteString("\n")

	path := filepath.Join(dir, taskFileName)
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// SetSolution writes a node's solution.md exactly once. An existing
// solution is never silently overwritten.
func (s *Store) SetSolution(id, text string) error {
	path := filepath.Join(s.NodeDir(id), solutionFileName)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrSolutionExists, id)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create node directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return fmt.Errorf("write solution: %w", err)
	}
	return nil
}

// GetSolution reads a node's solution.md, returning "" when unsolved.
func (s *Store) GetSolution(id string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.NodeDir(id), solutionFileName))
	if os.IsNotExist(err) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read solution: %w", err)
	}
	return string(data), nil
}

// GetNode reads a single node from disk.
func (s *Store) GetNode(id string) (*models.Node, error) {
	return s.readNode(id)
}

// ListChildren returns a node's child IDs in declared order.
func (s *Store) ListChildren(id string) ([]string, error) {
	node, err := s.readNode(id)
	if err != nil {
		return nil, err
	}
	return node.Children, nil
}

// Persist writes the whole tree: tree.yaml plus every node's task.md.
// Solutions already on disk are left alone.
func (s *Store) Persist(tree *models.Tree) error {
	meta := treeMeta{
		Root:     tree.RootID,
		MaxNodes: tree.MaxNodes,
		MaxDepth: tree.MaxDepth,
		Created:  tree.TotalNodesCreated(),
	}
	metaBytes, err := yaml.Marshal(&meta)
	if err != nil {
		return fmt.Errorf("marshal tree meta: %w", err)
	}
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return fmt.Errorf("create workspace: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.root, metaFileName), metaBytes, 0644); err != nil {
		return fmt.Errorf("write tree meta: %w", err)
	}

	for _, id := range tree.IDs() {
		if err := s.SaveNode(tree.Get(id)); err != nil {
			return err
		}
	}
	return nil
}

// Load reconstructs the full tree from disk, including solutions.
// Nodes with a solution.md are restored as solved so a resumed Phase 2
// skips them.
func (s *Store) Load() (*models.Tree, error) {
	metaBytes, err := os.ReadFile(filepath.Join(s.root, metaFileName))
	if err != nil {
		return nil, fmt.Errorf("read tree meta: %w", err)
	}
	var meta treeMeta
	if err := yaml.Unmarshal(metaBytes, &meta); err != nil {
		return nil, fmt.Errorf("parse tree meta: %w", err)
	}

	tree := models.EmptyTree(meta.MaxNodes, meta.MaxDepth)
	tree.RootID = meta.Root

	if err := s.loadSubtree(tree, meta.Root); err != nil {
		return nil, err
	}
	return tree, nil
}

// loadSubtree reads a node and recurses into its declared children.
// Children missing from disk are dropped from the declared order.
func (s *Store) loadSubtree(tree *models.Tree, id string) error {
	node, err := s.readNode(id)
	if err != nil {
		return err
	}

	var present []string
	for _, childID := range node.Children {
		if _, err := os.Stat(filepath.Join(s.NodeDir(childID), taskFileName)); err != nil {
			continue
		}
		present = append(present, childID)
	}
	node.Children = present

	tree.Restore(node)
	for _, childID := range present {
		if err := s.loadSubtree(tree, childID); err != nil {
			return err
		}
	}
	return nil
}

// readNode parses one task.md plus its solution.
func (s *Store) readNode(id string) (*models.Node, error) {
	path := filepath.Join(s.NodeDir(id), taskFileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	meta, body, err := splitFrontMatter(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	node := &models.Node{
		ID:           id,
		Description:  strings.TrimSpace(body),
		Kind:         meta.Kind,
		Status:       meta.Status,
		Depth:        meta.Depth,
		Dependencies: meta.Dependencies,
		Approach:     meta.Approach,
		Error:        meta.Error,
	}
	if !node.Kind.Valid() {
		node.Kind = models.KindSimple
	}
	if !node.Status.Valid() {
		node.Status = models.StatusPending
	}
	for _, name := range meta.Children {
		node.Children = append(node.Children, id+"/"+name)
	}

	// Solved-ness is carried by the file's existence, so an empty
	// solution.md still restores as solved.
	solution, err := os.ReadFile(filepath.Join(s.NodeDir(id), solutionFileName))
	switch {
	case err == nil:
		node.Solution = string(solution)
		node.Status = models.StatusSolved
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("read solution: %w", err)
	}
	return node, nil
}

// splitFrontMatter separates the YAML block from the task body.
func splitFrontMatter(content string) (taskMeta, string, error) {
	var meta taskMeta
	if !strings.HasPrefix(content, "---\n") {
		return meta, content, fmt.Errorf("missing front matter")
	}
	rest := content[4:]
	end := strings.Index(rest, "\n---")
	if end == -1 {
		return meta, content, fmt.Errorf("unterminated front matter")
	}
	if err := yaml.Unmarshal([]byte(rest[:end]), &meta); err != nil {
		return meta, content, err
	}
	return meta, rest[end+4:], nil
}
