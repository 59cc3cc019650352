package main

import (
	"context"
	"fmt"
	"io"
	"log"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ShayCichocki/arbor/internal/scheduler"
	"github.com/ShayCichocki/arbor/internal/tui"
)

// runWithTUI runs a scheduler strategy behind a live progress TUI.
func runWithTUI(ctx context.Context, emitter *scheduler.EventEmitter, problem string, run func(context.Context) (string, error)) (result string, retErr error) {
	// Log output corrupts the alt-screen display
	originalOutput := log.Writer()
	log.SetOutput(io.Discard)
	defer log.SetOutput(originalOutput)

	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("panic in TUI run: %v", r)
		}
	}()

	program := tea.NewProgram(tui.New(problem))

	go func() {
		for ev := range emitter.Events() {
			program.Send(tui.EventMsg(ev))
		}
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer emitter.Close()
		result, retErr = run(ctx)
		program.Send(tui.DoneMsg{Result: result, Err: retErr})
	}()

	if _, err := program.Run(); err != nil {
		return "", fmt.Errorf("run TUI: %w", err)
	}

	// The user may quit the TUI before the scheduler finishes; wait so
	// the tree is fully persisted before returning.
	<-done
	return result, retErr
}
