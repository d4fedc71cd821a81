package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOllamaProvider_Defaults(t *testing.T) {
	p, err := NewOllamaProvider("")
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())
	assert.Equal(t, "http://localhost:11434/api/chat", p.Endpoint())
}

func TestNewOllamaProvider_HostWithoutScheme(t *testing.T) {
	p, err := NewOllamaProvider("127.0.0.1:11434")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:11434/api/chat", p.Endpoint())
}

func TestNewOllamaProvider_Rejected(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{name: "remote host", url: "http://example.com:11434"},
		{name: "bad scheme", url: "ftp://localhost:11434"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOllamaProvider(tt.url)
			assert.Error(t, err)
		})
	}
}

func TestOllamaProvider_GenerateReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		var req ollamaChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "llama3", req.Model)
		assert.False(t, req.Stream)
		assert.Equal(t, testConversation(), req.Messages)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":   "llama3",
			"message": map[string]string{"role": "assistant", "content": "\n That sounds hard. "},
			"done":    true,
		})
	}))
	defer server.Close()

	p, err := NewOllamaProvider(server.URL)
	require.NoError(t, err)

	reply, err := p.GenerateReply(context.Background(), testConversation(), "")
	require.NoError(t, err)
	assert.Equal(t, "That sounds hard.", reply)
}

func TestOllamaProvider_StreamFieldAlwaysSent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		stream, present := raw["stream"]
		assert.True(t, present)
		assert.Equal(t, false, stream)
		assert.Equal(t, "mistral", raw["model"])
		_, _ = w.Write([]byte(`{"message":{"role":"assistant","content":"ok"},"done":true}`))
	}))
	defer server.Close()

	p, err := NewOllamaProvider(server.URL)
	require.NoError(t, err)

	_, err = p.GenerateReply(context.Background(), testConversation(), "mistral")
	require.NoError(t, err)
}

func TestOllamaProvider_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{
			name:    "json error body",
			status:  http.StatusNotFound,
			body:    `{"error":"model \"nope\" not found, try pulling it first"}`,
			wantMsg: `model "nope" not found, try pulling it first`,
		},
		{
			name:    "plain text body",
			status:  http.StatusInternalServerError,
			body:    "out of memory",
			wantMsg: "out of memory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			p, err := NewOllamaProvider(server.URL)
			require.NoError(t, err)

			_, err = p.GenerateReply(context.Background(), testConversation(), "nope")
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrBackendRejected)

			var perr *ProviderError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.status, perr.StatusCode)
			assert.Equal(t, tt.wantMsg, perr.Message)
		})
	}
}

func TestOllamaProvider_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	p, err := NewOllamaProvider(url)
	require.NoError(t, err)

	_, err = p.GenerateReply(context.Background(), testConversation(), "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackendUnreachable)
	assert.Contains(t, err.Error(), "ollama")
	assert.Contains(t, err.Error(), url+"/api/chat")
}

func TestOllamaProvider_BadJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	p, err := NewOllamaProvider(server.URL)
	require.NoError(t, err)

	_, err = p.GenerateReply(context.Background(), testConversation(), "")
	assert.ErrorIs(t, err, ErrBackend)
}

func TestOllamaProvider_AvailableAndHasModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[{"name":"llama3:latest"},{"name":"mistral:7b"}]}`))
	}))
	defer server.Close()

	p, err := NewOllamaProvider(server.URL)
	require.NoError(t, err)

	ctx := context.Background()
	assert.True(t, p.Available(ctx))
	assert.True(t, p.HasModel(ctx, ""))
	assert.True(t, p.HasModel(ctx, "llama3"))
	assert.True(t, p.HasModel(ctx, "mistral:7b"))
	assert.False(t, p.HasModel(ctx, "mistral"))
}

func TestOllamaProvider_NotAvailable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	p, err := NewOllamaProvider(url)
	require.NoError(t, err)
	assert.False(t, p.Available(context.Background()))
	assert.False(t, p.HasModel(context.Background(), "llama3"))
}
