// Package terminal connects a session to the user's terminal: it reads input
// lines and renders session events.
package terminal

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/aixgo-dev/therapist/pkg/session"
	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"
)

// DefaultPrompt is shown before each interactive line.
const DefaultPrompt = "You: "

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// prompter is the part of liner.State that LineSource drives.
type prompter interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
	Close() error
}

// LineSource reads interactive lines with editing and in-memory history.
// Call Close to restore the terminal.
type LineSource struct {
	state  prompter
	prompt string

	mu      sync.Mutex
	pending chan lineResult
}

// NewLineSource puts the terminal into line-editing mode.
func NewLineSource(prompt string) *LineSource {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	return newLineSource(state, prompt)
}

func newLineSource(state prompter, prompt string) *LineSource {
	if prompt == "" {
		prompt = DefaultPrompt
	}
	return &LineSource{state: state, prompt: prompt}
}

type lineResult struct {
	line string
	err  error
}

// ReadLine prompts for one line. Ctrl-C is reported as
// session.ErrInterrupted and Ctrl-D as io.EOF.
//
// liner cannot abandon a prompt, so a ReadLine canceled through ctx leaves
// the prompt waiting for input. The next ReadLine picks up that same prompt
// instead of starting a second one.
func (s *LineSource) ReadLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	ch := s.pending
	s.pending = nil
	if ch == nil {
		ch = make(chan lineResult, 1)
		go func() {
			line, err := s.state.Prompt(s.prompt)
			ch <- lineResult{line: line, err: err}
		}()
	}
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		s.mu.Lock()
		s.pending = ch
		s.mu.Unlock()
		return "", ctx.Err()
	case res := <-ch:
		if errors.Is(res.err, liner.ErrPromptAborted) {
			return "", session.ErrInterrupted
		}
		if res.err != nil {
			return "", res.err
		}
		if strings.TrimSpace(res.line) != "" {
			s.state.AppendHistory(res.line)
		}
		return res.line, nil
	}
}

// Interactive always reports true.
func (s *LineSource) Interactive() bool {
	return true
}

// Close restores the terminal mode. A prompt left behind by a canceled
// ReadLine is not waited for: it stays blocked on the terminal until the
// process exits and whatever it reads is discarded.
func (s *LineSource) Close() error {
	return s.state.Close()
}

// PipedSource delivers the whole of a non-interactive stream as one line.
type PipedSource struct {
	r    io.Reader
	mu   sync.Mutex
	done bool
}

// NewPipedSource reads from r, typically os.Stdin.
func NewPipedSource(r io.Reader) *PipedSource {
	return &PipedSource{r: r}
}

// ReadLine returns the entire stream on the first call and io.EOF afterwards.
// An empty stream yields io.EOF immediately.
func (s *PipedSource) ReadLine(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.done {
		return "", io.EOF
	}
	s.done = true

	data, err := io.ReadAll(s.r)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", io.EOF
	}
	return string(data), nil
}

// Interactive always reports false.
func (s *PipedSource) Interactive() bool {
	return false
}
