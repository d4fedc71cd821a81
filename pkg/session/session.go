package session

import (
	"context"
	"strings"
	"sync"

	"github.com/aixgo-dev/therapist/internal/llm/provider"
	metrics "github.com/aixgo-dev/therapist/pkg/observability"
	"github.com/aixgo-dev/therapist/pkg/persona"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Backend produces the next assistant reply for a conversation.
// *provider.Adapter satisfies it.
type Backend interface {
	GenerateReply(ctx context.Context, messages []provider.Message, kind provider.Kind, model string, verbose bool) (string, error)
}

// Engine drives a single conversation.
// Engine is safe for concurrent use, but it processes one turn at a time:
// input offered while a reply is pending is rejected with ErrBusy.
type Engine struct {
	id      string
	cfg     Config
	backend Backend
	logger  *zap.Logger
	persona string

	mu         sync.Mutex
	status     Status
	transcript *Transcript
	turns      int
	err        error
}

// New creates an idle engine whose transcript holds only the persona.
func New(cfg Config, backend Backend, opts ...Option) *Engine {
	e := &Engine{
		id:      uuid.New().String(),
		cfg:     cfg,
		backend: backend,
		logger:  zap.NewNop(),
		persona: persona.Resolve(string(cfg.Mode)),
		status:  StatusIdle,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.transcript = newTranscript(e.persona)
	e.logger = e.logger.With(zap.String("session_id", e.id))
	return e
}

// ID returns the session identifier.
func (e *Engine) ID() string {
	return e.id
}

// Config returns the session configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Status returns the current state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Transcript returns a copy of the conversation so far. It stays readable
// after the session ends.
func (e *Engine) Transcript() []provider.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.transcript.Messages()
}

// TurnCount returns the number of user messages sent to the backend,
// whether or not a reply came back.
func (e *Engine) TurnCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.turns
}

// Err returns the input failure that ended the session, if any.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Start opens the conversation and returns the opening line.
func (e *Engine) Start() (Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.status {
	case StatusIdle:
	case StatusEnded:
		return Event{}, ErrSessionEnded
	default:
		return Event{}, ErrAlreadyStarted
	}

	e.setStatusLocked(StatusAwaitingInput)
	metrics.RecordSessionStarted(string(persona.ParseMode(string(e.cfg.Mode))), string(e.cfg.Provider))

	return Event{
		Type: EventSessionStarted,
		Text: persona.OpeningLine(e.transcript.System()),
	}, nil
}

// Receive accepts one line of user input. An exit command ends the session
// without touching the transcript. Any other non-blank line is appended
// verbatim and the engine waits for Exchange.
func (e *Engine) Receive(line string) (Event, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.status {
	case StatusIdle:
		return Event{}, ErrNotStarted
	case StatusWaitingOnBackend:
		return Event{}, ErrBusy
	case StatusEnded:
		return Event{}, ErrSessionEnded
	}

	if IsExitCommand(line) {
		return e.endLocked(true), nil
	}
	if strings.TrimSpace(line) == "" {
		return Event{}, ErrEmptyInput
	}

	e.transcript.append(provider.RoleUser, line)
	e.turns++
	e.setStatusLocked(StatusWaitingOnBackend)

	return Event{Type: EventThinking, TurnCount: e.turns}, nil
}

// Exchange sends the transcript to the backend and records the outcome.
// A backend failure is reported as an EventBackendError with a nil error
// return: the user message stays in the transcript without a reply and the
// session goes back to awaiting input. If the session was interrupted while
// the call was in flight the result is dropped and ErrSessionEnded returned.
func (e *Engine) Exchange(ctx context.Context) (Event, error) {
	e.mu.Lock()
	switch e.status {
	case StatusEnded:
		e.mu.Unlock()
		return Event{}, ErrSessionEnded
	case StatusWaitingOnBackend:
	default:
		e.mu.Unlock()
		return Event{}, ErrNoPendingInput
	}
	messages := e.transcript.Messages()
	e.mu.Unlock()

	reply, err := e.backend.GenerateReply(ctx, messages, e.cfg.Provider, e.cfg.Model, e.cfg.Verbose)

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status == StatusEnded {
		return Event{}, ErrSessionEnded
	}
	e.setStatusLocked(StatusAwaitingInput)

	if err != nil {
		metrics.RecordTurn(string(e.cfg.Provider), metrics.OutcomeError)
		e.logger.Debug("backend call failed", zap.Int("turn", e.turns), zap.Error(err))
		return Event{Type: EventBackendError, Text: err.Error(), Err: err, TurnCount: e.turns}, nil
	}

	e.transcript.append(provider.RoleAssistant, reply)
	metrics.RecordTurn(string(e.cfg.Provider), metrics.OutcomeReply)
	return Event{Type: EventReply, Text: reply, TurnCount: e.turns}, nil
}

// Interrupt ends the session from any state. The returned event carries the
// farewell when the conversation was under way. It reports false if the
// session had already ended.
func (e *Engine) Interrupt() (Event, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status == StatusEnded {
		return Event{}, false
	}
	return e.endLocked(e.status != StatusIdle), true
}

// fail ends the session because the input stream broke.
func (e *Engine) fail(err error) Event {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.err = err
	if e.status == StatusEnded {
		return Event{Type: EventSessionEnded, Err: err, TurnCount: e.turns}
	}
	e.logger.Warn("input source failed", zap.Error(err))
	ev := e.endLocked(false)
	ev.Err = err
	return ev
}

// finish ends the session quietly, as after a piped exchange.
func (e *Engine) finish() (Event, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status == StatusEnded {
		return Event{}, false
	}
	return e.endLocked(false), true
}

func (e *Engine) endLocked(farewell bool) Event {
	if e.status != StatusIdle {
		metrics.RecordSessionEnded()
	}
	e.setStatusLocked(StatusEnded)

	ev := Event{Type: EventSessionEnded, TurnCount: e.turns}
	if farewell {
		ev.Text = Farewell
	}
	return ev
}

func (e *Engine) setStatusLocked(next Status) {
	e.logger.Debug("session transition",
		zap.Stringer("from", e.status),
		zap.Stringer("to", next),
		zap.Int("turns", e.turns),
	)
	e.status = next
}
