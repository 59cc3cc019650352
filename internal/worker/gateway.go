// Package worker is the boundary to the external solving capability.
// A Gateway turns a prompt into text; everything beyond that contract
// (retry, quality, structure) is someone else's job.
package worker

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable indicates the worker could not be invoked at all,
// typically a process spawn failure or missing credentials.
var ErrUnavailable = errors.New("worker unavailable")

// ErrTimeout indicates the worker exceeded its allotted time.
var ErrTimeout = errors.New("worker timed out")

// DefaultTimeout is the per-call timeout applied when the caller does
// not specify one. Worker calls routinely take minutes.
const DefaultTimeout = 10 * time.Minute

// Gateway is the black-box interface to the external worker. Invoke
// blocks until the worker produces text or the context expires.
type Gateway interface {
	Invoke(ctx context.Context, prompt, workDir string) (string, error)
}

// InvokeWithTimeout wraps a gateway call with a deadline. A deadline
// that fires is reported as ErrTimeout so callers can record the
// distinct message without inspecting context errors themselves.
func InvokeWithTimeout(ctx context.Context, g Gateway, prompt, workDir string, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	text, err := g.Invoke(ctx, prompt, workDir)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", ErrTimeout
		}
		return "", err
	}
	return text, nil
}
