// Package decompose interprets worker decomposition responses.
//
// Two wire conventions are in use: an embedded JSON object in the
// response text, and subtask files written into the node's working
// directory. Both are translated into the one canonical
// models.DecompositionResult so the scheduler never sees the difference.
package decompose

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/ShayCichocki/arbor/pkg/models"
)

// response is the JSON shape the worker is prompted to emit.
type response struct {
	Decompose bool   `json:"decompose"`
	Approach  string `json:"approach"`
	Subtasks  []struct {
		Task      string   `json:"task"`
		Simple    bool     `json:"simple"`
		DependsOn []string `json:"depends_on"`
	} `json:"subtasks"`
}

var fencedJSON = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ParseResponse interprets a worker's response text as a decomposition.
// A parse failure is never fatal: anything that cannot be read as the
// JSON protocol is treated as "no decomposition" and the node is solved
// directly.
func ParseResponse(text string) models.DecompositionResult {
	jsonStr, ok := extractJSON(text)
	if !ok {
		return models.NoDecomposition()
	}

	var resp response
	if err := json.Unmarshal([]byte(jsonStr), &resp); err != nil {
		return models.NoDecomposition()
	}
	if !resp.Decompose || len(resp.Subtasks) == 0 {
		return models.NoDecomposition()
	}

	result := models.DecompositionResult{
		Decomposed: true,
		Approach:   resp.Approach,
	}
	for _, st := range resp.Subtasks {
		task := strings.TrimSpace(st.Task)
		if task == "" {
			continue
		}
		kind := models.KindComplex
		if st.Simple {
			kind = models.KindSimple
		}
		result.Children = append(result.Children, models.ChildSpec{
			Description:  task,
			Kind:         kind,
			Dependencies: st.DependsOn,
		})
	}
	if len(result.Children) == 0 {
		return models.NoDecomposition()
	}
	return result
}

// extractJSON pulls a JSON object out of text that may wrap it in a
// fenced code block or surround it with prose.
func extractJSON(text string) (string, bool) {
	if m := fencedJSON.FindStringSubmatch(text); m != nil {
		return m[1], true
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}
