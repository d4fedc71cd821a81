package terminal

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aixgo-dev/therapist/pkg/session"
	"github.com/fatih/color"
	"github.com/peterh/liner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func TestPipedSource_ReadsWholeStreamOnce(t *testing.T) {
	src := NewPipedSource(strings.NewReader("first line\nsecond line\n"))
	assert.False(t, src.Interactive())

	line, err := src.ReadLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "first line\nsecond line\n", line)

	_, err = src.ReadLine(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

func TestPipedSource_EmptyStream(t *testing.T) {
	src := NewPipedSource(strings.NewReader(""))

	_, err := src.ReadLine(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func TestPipedSource_ReadError(t *testing.T) {
	src := NewPipedSource(failingReader{})

	_, err := src.ReadLine(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, io.EOF)
}

func TestPipedSource_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewPipedSource(strings.NewReader("hello")).ReadLine(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsTerminal_Pipe(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	assert.False(t, IsTerminal(r))
}

// fakePrompter hands out queued results the way liner would after a keypress.
type fakePrompter struct {
	results chan lineResult
	calls   atomic.Int32
	history []string
	closed  bool
}

func newFakePrompter() *fakePrompter {
	return &fakePrompter{results: make(chan lineResult, 4)}
}

func (f *fakePrompter) Prompt(string) (string, error) {
	f.calls.Add(1)
	res := <-f.results
	return res.line, res.err
}

func (f *fakePrompter) AppendHistory(item string) {
	f.history = append(f.history, item)
}

func (f *fakePrompter) Close() error {
	f.closed = true
	return nil
}

func TestLineSource_ReadLine(t *testing.T) {
	fake := newFakePrompter()
	src := newLineSource(fake, "")
	assert.True(t, src.Interactive())
	assert.Equal(t, DefaultPrompt, src.prompt)

	fake.results <- lineResult{line: "I feel anxious"}
	fake.results <- lineResult{line: "   "}
	fake.results <- lineResult{err: liner.ErrPromptAborted}
	fake.results <- lineResult{err: io.EOF}

	line, err := src.ReadLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "I feel anxious", line)

	line, err = src.ReadLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "   ", line)

	_, err = src.ReadLine(context.Background())
	assert.ErrorIs(t, err, session.ErrInterrupted)

	_, err = src.ReadLine(context.Background())
	assert.ErrorIs(t, err, io.EOF)

	assert.Equal(t, []string{"I feel anxious"}, fake.history)
	require.NoError(t, src.Close())
	assert.True(t, fake.closed)
}

func TestLineSource_CanceledReadKeepsPrompt(t *testing.T) {
	fake := newFakePrompter()
	src := newLineSource(fake, "> ")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := src.ReadLine(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	fake.results <- lineResult{line: "still here"}
	line, err := src.ReadLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "still here", line)
	assert.Equal(t, int32(1), fake.calls.Load())
}

func TestRenderer_Interactive(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRenderer(&out, &errOut, true)

	r.Banner("cbt", "ollama")
	r.Render(session.Event{Type: session.EventSessionStarted, Text: "Hello there."})
	r.Render(session.Event{Type: session.EventThinking})
	r.Render(session.Event{Type: session.EventReply, Text: "That sounds hard."})
	r.Render(session.Event{Type: session.EventSessionEnded, Text: session.Farewell, TurnCount: 1})

	assert.Contains(t, out.String(), "cbt mode")
	assert.Contains(t, out.String(), "Therapist: Hello there.")
	assert.Contains(t, out.String(), "Therapist: That sounds hard.")
	assert.Contains(t, out.String(), session.Farewell)
	assert.Contains(t, errOut.String(), "...")
}

func TestRenderer_PipedPrintsOnlyReply(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRenderer(&out, &errOut, false)

	r.Banner("cbt", "ollama")
	r.Render(session.Event{Type: session.EventSessionStarted, Text: "Hello there."})
	r.Render(session.Event{Type: session.EventThinking})
	r.Render(session.Event{Type: session.EventReply, Text: "That sounds hard."})
	r.Render(session.Event{Type: session.EventSessionEnded, TurnCount: 1})

	assert.Equal(t, "That sounds hard.\n", out.String())
	assert.Empty(t, errOut.String())
}

func TestRenderer_ErrorsAndNotices(t *testing.T) {
	var out, errOut bytes.Buffer
	r := NewRenderer(&out, &errOut, false)

	r.Render(session.Event{Type: session.EventNotice, Text: session.NoInputNotice})
	r.Render(session.Event{Type: session.EventBackendError, Text: "openai error: OPENAI_API_KEY is not set"})
	r.Render(session.Event{Type: session.EventSessionEnded, Err: errors.New("input source failed: eof")})

	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), session.NoInputNotice)
	assert.Contains(t, errOut.String(), "✗ openai error: OPENAI_API_KEY is not set")
	assert.Contains(t, errOut.String(), "✗ input source failed: eof")
}
