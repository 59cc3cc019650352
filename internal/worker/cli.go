package worker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// CLIGateway invokes the claude CLI as a subprocess with
// --output-format stream-json and collects the final result event.
type CLIGateway struct {
	// Binary is the executable name, "claude" by default.
	Binary string
	// Model overrides the CLI's default model when non-empty.
	Model string
}

// NewCLIGateway creates a gateway running the claude CLI.
func NewCLIGateway(model string) *CLIGateway {
	return &CLIGateway{Binary: "claude", Model: model}
}

// streamEvent is one line of the CLI's stream-json output. Only the
// fields the gateway needs are decoded.
type streamEvent struct {
	Type   string `json:"type"`
	Result string `json:"result"`
	Error  string `json:"error"`
}

// Invoke runs the CLI in workDir and returns the text of the first
// result event. Spawn failures map to ErrUnavailable; context
// cancellation and deadlines surface as the context's error.
func (g *CLIGateway) Invoke(ctx context.Context, prompt, workDir string) (string, error) {
	binary := g.Binary
	if binary == "" {
		binary = "claude"
	}

	args := []string{
		"--output-format", "stream-json",
		"--print",
		"--verbose",
		"--dangerously-skip-permissions",
	}
	if g.Model != "" {
		args = append(args, "--model", g.Model)
	}
	args = append(args, "-p", prompt)

	cmd := exec.CommandContext(ctx, binary, args...)
	if workDir != "" {
		cmd.Dir = workDir
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("%w: create stdout pipe: %v", ErrUnavailable, err)
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("%w: start %s: %v", ErrUnavailable, binary, err)
	}

	var result string
	var sawResult bool
	scanner := bufio.NewScanner(stdout)
	// Result events can carry whole documents.
	buf := make([]byte, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event streamEvent
		if err := json.Unmarshal(line, &event); err != nil {
			continue
		}
		// Only the first result event counts; later ones repeat
		// content from multi-turn conversations.
		if event.Type == "result" && !sawResult {
			result = event.Result
			sawResult = true
		}
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("%s exited: %s", binary, msg)
	}

	if !sawResult {
		return "", fmt.Errorf("no result event in %s output", binary)
	}
	return strings.TrimSpace(result), nil
}

// CheckCLI verifies the claude CLI is reachable in PATH.
func CheckCLI(binary string) error {
	if binary == "" {
		binary = "claude"
	}
	if _, err := exec.LookPath(binary); err != nil {
		return fmt.Errorf("%w: %s not found in PATH", ErrUnavailable, binary)
	}
	return nil
}
