package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aixgo-dev/therapist/internal/observability"
	metrics "github.com/aixgo-dev/therapist/pkg/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentedProvider wraps a Provider with a tracing span and backend
// request metrics for every call.
type InstrumentedProvider struct {
	provider Provider
}

// NewInstrumentedProvider wraps a provider with automatic observability
func NewInstrumentedProvider(provider Provider) *InstrumentedProvider {
	return &InstrumentedProvider{provider: provider}
}

// Name returns the wrapped provider's name
func (p *InstrumentedProvider) Name() string {
	return p.provider.Name()
}

// Unwrap returns the wrapped provider.
func (p *InstrumentedProvider) Unwrap() Provider {
	return p.provider
}

// GenerateReply calls the wrapped provider inside a span.
func (p *InstrumentedProvider) GenerateReply(ctx context.Context, messages []Message, model string) (string, error) {
	ctx, span := observability.StartSpan(ctx, fmt.Sprintf("llm.%s.reply", p.provider.Name()),
		trace.WithAttributes(
			attribute.String("llm.provider", p.provider.Name()),
			attribute.String("llm.model", model),
			attribute.Int("llm.messages_count", len(messages)),
		),
	)
	defer span.End()

	start := time.Now()
	reply, err := p.provider.GenerateReply(ctx, messages, model)
	duration := time.Since(start)

	span.SetAttributes(
		attribute.Int64("llm.duration_ms", duration.Milliseconds()),
		attribute.Bool("llm.success", err == nil),
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.RecordBackendRequest(p.provider.Name(), errorStatus(err), duration)
		return "", err
	}

	span.SetAttributes(attribute.Int("llm.reply_chars", len(reply)))
	metrics.RecordBackendRequest(p.provider.Name(), "ok", duration)
	return reply, nil
}

func errorStatus(err error) string {
	switch {
	case errors.Is(err, ErrMissingCredential):
		return "missing_credential"
	case errors.Is(err, ErrBackendUnreachable):
		return "unreachable"
	case errors.Is(err, ErrBackendRejected):
		return "rejected"
	default:
		return "error"
	}
}
