package provider

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
)

const (
	openaiBaseURL      = "https://api.openai.com/v1"
	openaiDefaultModel = openai.GPT4
	openaiTemperature  = 0.7
)

// ChatCompletionClient is the slice of the go-openai client the provider uses.
type ChatCompletionClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIProvider implements Provider for OpenAI-compatible chat completion APIs
type OpenAIProvider struct {
	apiKey  string
	baseURL string
	client  ChatCompletionClient
}

// NewOpenAIProvider creates a new OpenAI provider. An empty apiKey is accepted
// here and reported as ErrMissingCredential when a reply is requested.
func NewOpenAIProvider(apiKey, baseURL string) *OpenAIProvider {
	if baseURL == "" {
		baseURL = openaiBaseURL
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	cfg.HTTPClient = &http.Client{Timeout: 120 * time.Second}

	return &OpenAIProvider{
		apiKey:  apiKey,
		baseURL: cfg.BaseURL,
		client:  openai.NewClientWithConfig(cfg),
	}
}

// NewOpenAIProviderWithClient creates a provider around a custom client (useful for testing)
func NewOpenAIProviderWithClient(apiKey string, client ChatCompletionClient) *OpenAIProvider {
	return &OpenAIProvider{
		apiKey:  apiKey,
		baseURL: openaiBaseURL,
		client:  client,
	}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return string(KindOpenAI)
}

// HasCredential reports whether an API key was configured.
func (p *OpenAIProvider) HasCredential() bool {
	return p.apiKey != ""
}

// GenerateReply sends the conversation to the chat completions endpoint.
func (p *OpenAIProvider) GenerateReply(ctx context.Context, messages []Message, model string) (string, error) {
	if p.apiKey == "" {
		return "", NewProviderError(p.Name(), ErrMissingCredential, "OPENAI_API_KEY is not set", nil)
	}
	if model == "" {
		model = openaiDefaultModel
	}

	req := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    toOpenAIMessages(messages),
		Temperature: openaiTemperature,
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", p.mapError(err)
	}

	if len(resp.Choices) == 0 {
		return "", NewProviderError(p.Name(), ErrBackend, "no choices in response", nil)
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (p *OpenAIProvider) mapError(err error) error {
	endpoint := p.baseURL + "/chat/completions"

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return rejectedError(p.Name(), endpoint, apiErr.HTTPStatusCode, apiErr.Message, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return rejectedError(p.Name(), endpoint, reqErr.HTTPStatusCode, requestErrorMessage(reqErr), err)
	}

	return transportError(p.Name(), endpoint, err)
}

// requestErrorMessage recovers the server text from an error response that
// go-openai could not decode as an API error.
func requestErrorMessage(reqErr *openai.RequestError) string {
	if body := strings.TrimSpace(string(reqErr.Body)); body != "" {
		return body
	}
	if reqErr.Err != nil {
		return reqErr.Err.Error()
	}
	return http.StatusText(reqErr.HTTPStatusCode)
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		out[i] = openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content}
	}
	return out
}
