// Package session implements the conversation engine of the therapist CLI.
// An Engine owns one transcript and moves through a fixed set of states,
// producing an Event for every transition. Nothing in this package persists
// a conversation; the transcript lives only as long as the Engine.
package session

import "errors"

// Status is the lifecycle state of a session.
type Status int

const (
	// StatusIdle is the state before Start.
	StatusIdle Status = iota
	// StatusAwaitingInput means the engine is ready for the next user line.
	StatusAwaitingInput
	// StatusWaitingOnBackend means a user message is out for a reply.
	StatusWaitingOnBackend
	// StatusEnded is terminal.
	StatusEnded
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusAwaitingInput:
		return "awaiting_input"
	case StatusWaitingOnBackend:
		return "waiting_on_backend"
	case StatusEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// EventType identifies what happened in a session.
type EventType string

const (
	// EventSessionStarted carries the opening line in Text.
	EventSessionStarted EventType = "session_started"
	// EventThinking is emitted once a user message has been accepted.
	EventThinking EventType = "thinking"
	// EventReply carries the assistant reply in Text.
	EventReply EventType = "reply"
	// EventBackendError carries the failed call in Err. The session continues.
	EventBackendError EventType = "backend_error"
	// EventNotice is an informational line, such as NoInputNotice.
	EventNotice EventType = "notice"
	// EventSessionEnded carries the final TurnCount, a farewell in Text when
	// the user was still in the conversation, and Err when an input failure
	// forced the end.
	EventSessionEnded EventType = "session_ended"
)

// Event is one observable transition of a session.
type Event struct {
	Type      EventType
	Text      string
	Err       error
	TurnCount int
}

// Fixed user-facing lines.
const (
	Farewell      = "Take care of yourself. Goodbye."
	NoInputNotice = "No input received."
)

// Errors returned by Engine methods.
var (
	// ErrEmptyInput is returned by Receive for a blank line. State is unchanged.
	ErrEmptyInput = errors.New("empty input")
	// ErrBusy is returned by Receive while a backend call is in flight.
	ErrBusy = errors.New("session is waiting on the backend")
	// ErrNotStarted is returned when input arrives before Start.
	ErrNotStarted = errors.New("session not started")
	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("session already started")
	// ErrSessionEnded is returned by every operation after the session ended.
	ErrSessionEnded = errors.New("session ended")
	// ErrNoPendingInput is returned by Exchange when no user message is waiting.
	ErrNoPendingInput = errors.New("no user message awaiting a reply")
	// ErrInputSource wraps a failure of the input stream itself.
	ErrInputSource = errors.New("input source failed")
	// ErrInterrupted is returned by an InputSource when the user aborts the
	// prompt, for example with Ctrl-C.
	ErrInterrupted = errors.New("interrupted")
)
