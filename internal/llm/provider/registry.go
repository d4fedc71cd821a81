package provider

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Settings carries the process configuration the built-in backends need.
// Values are passed in explicitly; nothing here reads the environment.
type Settings struct {
	OpenAIKey     string
	OpenAIBaseURL string
	OllamaURL     string
}

// Adapter dispatches reply requests to the backend selected by Kind.
type Adapter struct {
	providers map[Kind]Provider
	logger    *zap.Logger
	mu        sync.RWMutex
}

// NewAdapter builds an adapter with the OpenAI and Ollama backends registered,
// each wrapped in an InstrumentedProvider.
func NewAdapter(settings Settings, logger *zap.Logger) (*Adapter, error) {
	a := NewEmptyAdapter(logger)

	a.Register(KindOpenAI, NewInstrumentedProvider(NewOpenAIProvider(settings.OpenAIKey, settings.OpenAIBaseURL)))

	ollama, err := NewOllamaProvider(settings.OllamaURL)
	if err != nil {
		return nil, fmt.Errorf("configure ollama backend: %w", err)
	}
	a.Register(KindOllama, NewInstrumentedProvider(ollama))

	return a, nil
}

// NewEmptyAdapter creates an adapter with no backends registered
func NewEmptyAdapter(logger *zap.Logger) *Adapter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{
		providers: make(map[Kind]Provider),
		logger:    logger,
	}
}

// Register registers a provider
func (a *Adapter) Register(kind Kind, provider Provider) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.providers[kind] = provider
}

// Get retrieves a provider by kind
func (a *Adapter) Get(kind Kind) (Provider, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	provider, ok := a.providers[kind]
	if !ok {
		return nil, NewProviderError(string(kind), ErrUnsupportedProvider,
			fmt.Sprintf("unsupported provider %q (supported: %v)", kind, a.kindsLocked()), nil)
	}
	return provider, nil
}

// Kinds returns the registered provider kinds, sorted
func (a *Adapter) Kinds() []Kind {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.kindsLocked()
}

func (a *Adapter) kindsLocked() []Kind {
	kinds := make([]Kind, 0, len(a.providers))
	for k := range a.providers {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// GenerateReply sends the conversation to the backend named by kind. The
// messages slice is copied before it leaves the adapter; the caller's slice is
// never modified. Exactly one backend call is made, with no retries.
func (a *Adapter) GenerateReply(ctx context.Context, messages []Message, kind Kind, model string, verbose bool) (string, error) {
	p, err := a.Get(kind)
	if err != nil {
		return "", err
	}

	if verbose {
		a.logger.Info("sending conversation",
			zap.String("provider", p.Name()),
			zap.String("model", model),
			zap.Int("messages", len(messages)),
		)
	}

	reply, err := p.GenerateReply(ctx, slices.Clone(messages), model)
	if err != nil {
		if verbose {
			a.logger.Info("backend call failed", zap.String("provider", p.Name()), zap.Error(err))
		}
		return "", err
	}

	if verbose {
		a.logger.Info("received reply",
			zap.String("provider", p.Name()),
			zap.Int("reply_chars", len(reply)),
		)
	}
	return reply, nil
}
