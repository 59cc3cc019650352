package decompose

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ShayCichocki/arbor/pkg/models"
)

// SubtasksDirName is the directory a worker writes subtask files into
// when it decomposes via filesystem side effects instead of a JSON reply.
const SubtasksDirName = "subtasks"

// fileMeta is the optional YAML front matter of a subtask file.
type fileMeta struct {
	Kind      string   `yaml:"kind"`
	DependsOn []string `yaml:"depends_on"`
}

// DiscoverChildren looks for subtask files under workDir/subtasks and
// translates them into a DecompositionResult. Files are taken in sorted
// name order, which is the declared order under this convention.
// Returns NoDecomposition when the directory is absent or empty.
func DiscoverChildren(workDir string) models.DecompositionResult {
	dir := filepath.Join(workDir, SubtasksDirName)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return models.NoDecomposition()
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".md") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	var result models.DecompositionResult
	for _, name := range names {
		content, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		spec, err := parseSubtaskFile(string(content))
		if err != nil {
			continue
		}
		result.Children = append(result.Children, spec)
	}

	if len(result.Children) == 0 {
		return models.NoDecomposition()
	}
	result.Decomposed = true
	return result
}

// parseSubtaskFile reads one subtask markdown file. Front matter, when
// present, carries the kind and dependency names; otherwise the first
// occurrence of "simple" or "complex" in the body decides the kind,
// defaulting to simple.
func parseSubtaskFile(content string) (models.ChildSpec, error) {
	meta, body := splitFrontMatter(content)

	desc := strings.TrimSpace(body)
	desc = strings.TrimPrefix(desc, "#")
	desc = strings.TrimSpace(desc)
	if desc == "" {
		return models.ChildSpec{}, fmt.Errorf("empty subtask file")
	}

	spec := models.ChildSpec{Description: desc, Kind: models.KindSimple}
	if meta != nil {
		if kind := models.NodeKind(strings.ToLower(meta.Kind)); kind.Valid() {
			spec.Kind = kind
		}
		spec.Dependencies = meta.DependsOn
		return spec, nil
	}

	spec.Kind = kindFromBody(body)
	return spec, nil
}

// splitFrontMatter separates a leading "---" YAML block from the body.
// Returns a nil meta when there is no front matter or it does not parse.
func splitFrontMatter(content string) (*fileMeta, string) {
	if !strings.HasPrefix(content, "---\n") {
		return nil, content
	}
	rest := content[4:]
	end := strings.Index(rest, "\n---")
	if end == -1 {
		return nil, content
	}

	var meta fileMeta
	if err := yaml.Unmarshal([]byte(rest[:end]), &meta); err != nil {
		return nil, content
	}
	body := rest[end+4:]
	return &meta, strings.TrimLeft(body, "\n")
}

// kindFromBody picks the kind from whichever of "simple" or "complex"
// appears first in the text, defaulting to simple.
func kindFromBody(body string) models.NodeKind {
	lower := strings.ToLower(body)
	simpleIdx := strings.Index(lower, "simple")
	complexIdx := strings.Index(lower, "complex")

	if complexIdx != -1 && (simpleIdx == -1 || complexIdx < simpleIdx) {
		return models.KindComplex
	}
	return models.KindSimple
}
