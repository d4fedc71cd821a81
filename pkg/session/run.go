package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
)

// InputSource supplies user lines to a session.
type InputSource interface {
	// ReadLine blocks until a line is available. It returns io.EOF at the end
	// of the stream and ErrInterrupted when the user aborts the prompt.
	ReadLine(ctx context.Context) (string, error)

	// Interactive reports whether the source is a live terminal. A
	// non-interactive source is read exactly once.
	Interactive() bool
}

var exitCommands = map[string]struct{}{
	"exit": {},
	"quit": {},
	"bye":  {},
}

// IsExitCommand reports whether line asks to leave the conversation.
func IsExitCommand(line string) bool {
	_, ok := exitCommands[strings.ToLower(strings.TrimSpace(line))]
	return ok
}

// Run starts the session and drives it from src until it ends, yielding every
// event in order. Stopping the iteration early ends the session. After the
// sequence is exhausted, Err reports an input source failure, if any. Run on
// an engine that has already been started yields nothing.
func (e *Engine) Run(ctx context.Context, src InputSource) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		ev, err := e.Start()
		if err != nil {
			return
		}
		if !yield(ev) {
			e.Interrupt()
			return
		}

		if src.Interactive() {
			e.runInteractive(ctx, src, yield)
			return
		}
		e.runPiped(ctx, src, yield)
	}
}

func (e *Engine) runInteractive(ctx context.Context, src InputSource, yield func(Event) bool) {
	for {
		line, err := src.ReadLine(ctx)
		if err != nil {
			e.stopOnInput(err, yield)
			return
		}

		ev, err := e.Receive(line)
		if errors.Is(err, ErrEmptyInput) {
			continue
		}
		if err != nil {
			// Only possible if the session was ended from outside.
			return
		}
		if !yield(ev) {
			e.Interrupt()
			return
		}
		if ev.Type == EventSessionEnded {
			return
		}

		if !e.exchange(ctx, yield) {
			return
		}
	}
}

func (e *Engine) runPiped(ctx context.Context, src InputSource, yield func(Event) bool) {
	line, err := src.ReadLine(ctx)
	if errors.Is(err, io.EOF) {
		line, err = "", nil
	}
	if err != nil {
		e.stopOnInput(err, yield)
		return
	}

	if strings.TrimSpace(line) == "" {
		if !yield(Event{Type: EventNotice, Text: NoInputNotice}) {
			e.Interrupt()
			return
		}
		if ev, ok := e.finish(); ok {
			yield(ev)
		}
		return
	}

	ev, err := e.Receive(line)
	if err != nil {
		return
	}
	if !yield(ev) {
		e.Interrupt()
		return
	}
	if ev.Type == EventSessionEnded {
		return
	}

	if !e.exchange(ctx, yield) {
		return
	}
	if ev, ok := e.finish(); ok {
		yield(ev)
	}
}

// exchange runs one backend call and yields its outcome. It reports whether
// the caller should keep going.
func (e *Engine) exchange(ctx context.Context, yield func(Event) bool) bool {
	ev, err := e.Exchange(ctx)
	if err != nil {
		return false
	}
	if ev.Type == EventBackendError && ctx.Err() != nil {
		// The failure is the cancellation itself; end with a farewell instead.
		if ev, ok := e.Interrupt(); ok {
			yield(ev)
		}
		return false
	}
	if !yield(ev) {
		e.Interrupt()
		return false
	}
	return true
}

func (e *Engine) stopOnInput(err error, yield func(Event) bool) {
	if errors.Is(err, io.EOF) ||
		errors.Is(err, ErrInterrupted) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		if ev, ok := e.Interrupt(); ok {
			yield(ev)
		}
		return
	}
	yield(e.fail(fmt.Errorf("%w: %w", ErrInputSource, err)))
}
