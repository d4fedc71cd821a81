package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// OllamaDefaultURL is where a local Ollama server listens by default.
	OllamaDefaultURL = "http://localhost:11434"
	// OllamaDefaultModel is used when no model is configured.
	OllamaDefaultModel = "llama3"

	ollamaChatPath     = "/api/chat"
	ollamaTagsPath     = "/api/tags"
	ollamaMaxErrorBody = 64 * 1024
)

// allowedOllamaHosts is the list of allowed Ollama server hosts
var allowedOllamaHosts = []string{
	"localhost",
	"127.0.0.1",
	"::1",
	"ollama", // Docker service name
}

// OllamaProvider implements Provider for a local Ollama server.
type OllamaProvider struct {
	baseURL    string
	httpClient *http.Client
}

type ollamaChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

type ollamaChatResponse struct {
	Message Message `json:"message"`
	Done    bool    `json:"done"`
	Error   string  `json:"error,omitempty"`
}

// NewOllamaProvider creates an Ollama provider. Only local hosts are accepted.
func NewOllamaProvider(baseURL string) (*OllamaProvider, error) {
	if baseURL == "" {
		baseURL = OllamaDefaultURL
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama URL: %w", err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("invalid URL scheme: %s (only http/https allowed)", parsedURL.Scheme)
	}

	if err := validateOllamaHost(parsedURL.Hostname()); err != nil {
		return nil, err
	}

	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dialHost, _, err := net.SplitHostPort(addr)
			if err != nil {
				dialHost = addr
			}

			// Re-validate the host (in case of redirects or DNS rebinding)
			if err := validateOllamaHost(dialHost); err != nil {
				return nil, fmt.Errorf("connection blocked: %w", err)
			}

			dialer := &net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}
			return dialer.DialContext(ctx, network, addr)
		},
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &OllamaProvider{
		baseURL: strings.TrimSuffix(parsedURL.String(), "/"),
		httpClient: &http.Client{
			Timeout:   5 * time.Minute,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}, nil
}

// validateOllamaHost validates that a host is allowed
func validateOllamaHost(host string) error {
	hostAllowed := false
	for _, allowed := range allowedOllamaHosts {
		if strings.EqualFold(host, allowed) {
			hostAllowed = true
			break
		}
	}

	if !hostAllowed {
		return fmt.Errorf("ollama host not in allowlist: %s", host)
	}

	return validateOllamaIP(host)
}

// validateOllamaIP checks that an allowed host name resolves to loopback or,
// for the docker service name, to a private address.
func validateOllamaIP(host string) error {
	if strings.EqualFold(host, "localhost") {
		return nil
	}

	ips, err := net.LookupIP(host)
	if err != nil {
		// Docker network may not be available outside the container
		if strings.EqualFold(host, "ollama") {
			return nil
		}
		return err
	}

	for _, ip := range ips {
		if ip.IsLoopback() {
			continue
		}
		if ip.IsPrivate() && strings.EqualFold(host, "ollama") {
			continue
		}
		if ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() || ip.IsMulticast() {
			return fmt.Errorf("address not allowed for ollama host %s: %s", host, ip)
		}
		return fmt.Errorf("non-local address not allowed for ollama host %s: %s", host, ip)
	}

	return nil
}

// Name returns the provider name
func (p *OllamaProvider) Name() string {
	return string(KindOllama)
}

// Endpoint returns the chat endpoint the provider posts to.
func (p *OllamaProvider) Endpoint() string {
	return p.baseURL + ollamaChatPath
}

// GenerateReply posts the conversation to /api/chat with streaming disabled.
func (p *OllamaProvider) GenerateReply(ctx context.Context, messages []Message, model string) (string, error) {
	if model == "" {
		model = OllamaDefaultModel
	}

	reqBody, err := json.Marshal(ollamaChatRequest{
		Model:    model,
		Messages: messages,
		Stream:   false,
	})
	if err != nil {
		return "", NewProviderError(p.Name(), ErrBackend, fmt.Sprintf("marshal request: %v", err), err)
	}

	endpoint := p.Endpoint()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return "", NewProviderError(p.Name(), ErrBackend, fmt.Sprintf("create request: %v", err), err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return "", transportError(p.Name(), endpoint, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, ollamaMaxErrorBody))
		return "", rejectedError(p.Name(), endpoint, resp.StatusCode, ollamaErrorMessage(body), nil)
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", NewProviderError(p.Name(), ErrBackend, fmt.Sprintf("decode response: %v", err), err)
	}
	if chatResp.Error != "" {
		return "", NewProviderError(p.Name(), ErrBackend, chatResp.Error, nil)
	}

	return strings.TrimSpace(chatResp.Message.Content), nil
}

// ollamaErrorMessage prefers the {"error": "..."} body Ollama sends and falls
// back to the raw text.
func ollamaErrorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(body))
}

// Available checks if Ollama is available
func (p *OllamaProvider) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+ollamaTagsPath, nil)
	if err != nil {
		return false
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	return resp.StatusCode == http.StatusOK
}

// HasModel checks if a specific model has been pulled. Names without a tag
// match the ":latest" tag.
func (p *OllamaProvider) HasModel(ctx context.Context, model string) bool {
	if model == "" {
		model = OllamaDefaultModel
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+ollamaTagsPath, nil)
	if err != nil {
		return false
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var result struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false
	}

	for _, m := range result.Models {
		if m.Name == model || m.Name == model+":latest" {
			return true
		}
	}
	return false
}
