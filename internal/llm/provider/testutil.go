package provider

import (
	"context"
	"sync"

	"github.com/sashabaranov/go-openai"
)

// MockOpenAIClient is a mock implementation of ChatCompletionClient for testing
type MockOpenAIClient struct {
	responses []openai.ChatCompletionResponse
	errors    []error
	calls     []openai.ChatCompletionRequest
	callIndex int
	mu        sync.Mutex
}

// NewMockOpenAIClient creates a new mock OpenAI client
func NewMockOpenAIClient() *MockOpenAIClient {
	return &MockOpenAIClient{}
}

// CreateChatCompletion implements ChatCompletionClient
func (m *MockOpenAIClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, req)

	if m.callIndex >= len(m.responses) {
		return openai.ChatCompletionResponse{}, nil
	}

	resp := m.responses[m.callIndex]
	err := m.errors[m.callIndex]
	m.callIndex++
	return resp, err
}

// AddResponse queues a response to return from CreateChatCompletion
func (m *MockOpenAIClient) AddResponse(resp openai.ChatCompletionResponse, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.responses = append(m.responses, resp)
	m.errors = append(m.errors, err)
}

// AddReply queues a single-choice response with the given content
func (m *MockOpenAIClient) AddReply(content string) {
	m.AddResponse(openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}},
		},
	}, nil)
}

// GetCalls returns all recorded calls to CreateChatCompletion
func (m *MockOpenAIClient) GetCalls() []openai.ChatCompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]openai.ChatCompletionRequest, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// StubProvider is a Provider that returns canned replies in order and records
// the conversations it was given.
type StubProvider struct {
	ProviderName string
	Replies      []string
	Errs         []error

	mu    sync.Mutex
	calls [][]Message
}

// Name returns the configured name, "stub" by default
func (s *StubProvider) Name() string {
	if s.ProviderName == "" {
		return "stub"
	}
	return s.ProviderName
}

// GenerateReply returns the next queued reply or error
func (s *StubProvider) GenerateReply(ctx context.Context, messages []Message, model string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := len(s.calls)
	s.calls = append(s.calls, messages)

	if i < len(s.Errs) && s.Errs[i] != nil {
		return "", s.Errs[i]
	}
	if i < len(s.Replies) {
		return s.Replies[i], nil
	}
	return "", nil
}

// Calls returns the conversations received so far
func (s *StubProvider) Calls() [][]Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]Message(nil), s.calls...)
}
