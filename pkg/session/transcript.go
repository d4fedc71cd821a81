package session

import (
	"slices"

	"github.com/aixgo-dev/therapist/internal/llm/provider"
)

// Transcript is the ordered message history of one session. The first
// message is always the system persona. Messages are only ever appended.
type Transcript struct {
	messages []provider.Message
}

func newTranscript(system string) *Transcript {
	return &Transcript{
		messages: []provider.Message{{Role: provider.RoleSystem, Content: system}},
	}
}

func (t *Transcript) append(role provider.Role, content string) {
	t.messages = append(t.messages, provider.Message{Role: role, Content: content})
}

// Messages returns a copy of the history.
func (t *Transcript) Messages() []provider.Message {
	return slices.Clone(t.messages)
}

// Len returns the number of messages, including the system message.
func (t *Transcript) Len() int {
	return len(t.messages)
}

// System returns the persona text.
func (t *Transcript) System() string {
	return t.messages[0].Content
}
