package session

import (
	"github.com/aixgo-dev/therapist/internal/llm/provider"
	"github.com/aixgo-dev/therapist/pkg/persona"
	"go.uber.org/zap"
)

// Config is fixed for the lifetime of a session.
type Config struct {
	// Mode selects the persona. Unknown modes fall back to persona.DefaultMode.
	Mode persona.Mode

	// Provider selects the backend. It is not validated here; an unsupported
	// provider surfaces as a backend error on the first turn.
	Provider provider.Kind

	// Model overrides the backend's default model when non-empty.
	Model string

	// Verbose asks the backend adapter to log its traffic.
	Verbose bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for state transitions.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithPersona replaces the mode's built-in persona with custom text.
func WithPersona(text string) Option {
	return func(e *Engine) {
		e.persona = text
	}
}

// WithID sets the session identifier used in logs.
func WithID(id string) Option {
	return func(e *Engine) {
		if id != "" {
			e.id = id
		}
	}
}
