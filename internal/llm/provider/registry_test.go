package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockProvider for testing dispatch
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) GenerateReply(ctx context.Context, messages []Message, model string) (string, error) {
	args := m.Called(ctx, messages, model)
	return args.String(0), args.Error(1)
}

func (m *MockProvider) Name() string {
	return "mock"
}

func TestNewAdapter_RegistersBuiltIns(t *testing.T) {
	a, err := NewAdapter(Settings{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []Kind{KindOllama, KindOpenAI}, a.Kinds())
}

func TestNewAdapter_InvalidOllamaURL(t *testing.T) {
	_, err := NewAdapter(Settings{OllamaURL: "http://203.0.113.7:11434"}, nil)
	assert.Error(t, err)
}

func TestAdapter_UnsupportedProvider(t *testing.T) {
	m := new(MockProvider)
	a := NewEmptyAdapter(zap.NewNop())
	a.Register(KindOllama, m)

	_, err := a.GenerateReply(context.Background(), testConversation(), Kind("anthropic"), "", false)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedProvider)
	assert.Contains(t, err.Error(), "anthropic")
	m.AssertNotCalled(t, "GenerateReply", mock.Anything, mock.Anything, mock.Anything)
}

func TestAdapter_DispatchesByKind(t *testing.T) {
	openaiMock := new(MockProvider)
	ollamaMock := new(MockProvider)
	ollamaMock.On("GenerateReply", mock.Anything, testConversation(), "llama3").Return("hi", nil).Once()

	a := NewEmptyAdapter(nil)
	a.Register(KindOpenAI, openaiMock)
	a.Register(KindOllama, ollamaMock)

	reply, err := a.GenerateReply(context.Background(), testConversation(), KindOllama, "llama3", true)
	require.NoError(t, err)
	assert.Equal(t, "hi", reply)

	ollamaMock.AssertExpectations(t)
	openaiMock.AssertNotCalled(t, "GenerateReply", mock.Anything, mock.Anything, mock.Anything)
}

func TestAdapter_DoesNotExposeCallerSlice(t *testing.T) {
	m := new(MockProvider)
	m.On("GenerateReply", mock.Anything, mock.Anything, "").
		Run(func(args mock.Arguments) {
			msgs := args.Get(1).([]Message)
			msgs[0].Content = "tampered"
		}).
		Return("ok", nil)

	a := NewEmptyAdapter(nil)
	a.Register(KindOpenAI, m)

	conversation := testConversation()
	_, err := a.GenerateReply(context.Background(), conversation, KindOpenAI, "", false)
	require.NoError(t, err)
	assert.Equal(t, "You are kind.", conversation[0].Content)
}

func TestAdapter_PropagatesErrorsWithoutRetry(t *testing.T) {
	backendErr := NewProviderError("mock", ErrBackendUnreachable, "down", errors.New("dial tcp: refused"))
	m := new(MockProvider)
	m.On("GenerateReply", mock.Anything, mock.Anything, mock.Anything).Return("", backendErr)

	a := NewEmptyAdapter(nil)
	a.Register(KindOllama, m)

	_, err := a.GenerateReply(context.Background(), testConversation(), KindOllama, "", true)
	assert.ErrorIs(t, err, ErrBackendUnreachable)
	m.AssertNumberOfCalls(t, "GenerateReply", 1)
}

func TestParseKind(t *testing.T) {
	assert.Equal(t, KindOpenAI, ParseKind(" OpenAI "))
	assert.Equal(t, KindOllama, ParseKind("ollama"))
	assert.True(t, ParseKind("OLLAMA").Supported())
	assert.False(t, ParseKind("bedrock").Supported())
	assert.Equal(t, "bedrock", ParseKind("bedrock").String())
}
