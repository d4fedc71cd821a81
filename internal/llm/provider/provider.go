package provider

import (
	"context"
	"strings"
)

// Provider is a text-generation backend. Implementations turn a conversation
// into one backend request and return the reply text.
type Provider interface {
	// GenerateReply sends the conversation and returns the trimmed reply.
	// An empty model selects the provider default.
	GenerateReply(ctx context.Context, messages []Message, model string) (string, error)

	// Name returns the provider name (e.g., "openai", "ollama")
	Name() string
}

// Role is the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a chat message
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Kind selects a backend.
type Kind string

const (
	KindOpenAI Kind = "openai"
	KindOllama Kind = "ollama"
)

// ParseKind normalises s into a Kind. It does not validate: unsupported kinds
// are reported when a reply is requested.
func ParseKind(s string) Kind {
	return Kind(strings.ToLower(strings.TrimSpace(s)))
}

// Supported reports whether k names a built-in backend.
func (k Kind) Supported() bool {
	return k == KindOpenAI || k == KindOllama
}

func (k Kind) String() string {
	return string(k)
}
