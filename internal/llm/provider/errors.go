package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
)

// Error kinds. Every error returned by this package is a *ProviderError that
// matches exactly one of these with errors.Is.
var (
	ErrUnsupportedProvider = errors.New("unsupported provider")
	ErrMissingCredential   = errors.New("missing credential")
	ErrBackendUnreachable  = errors.New("backend unreachable")
	ErrBackendRejected     = errors.New("backend rejected request")
	ErrBackend             = errors.New("backend error")
)

// ProviderError represents a provider-specific error
type ProviderError struct {
	Provider      string
	Kind          error
	Message       string
	StatusCode    int
	Endpoint      string
	OriginalError error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s error: status %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return e.Provider + " error: " + e.Message
}

// Unwrap exposes both the kind sentinel and the original cause.
func (e *ProviderError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.OriginalError != nil {
		errs = append(errs, e.OriginalError)
	}
	return errs
}

// Recoverable reports whether trying again on a later turn can succeed
// without a configuration change.
func (e *ProviderError) Recoverable() bool {
	return errors.Is(e.Kind, ErrBackendUnreachable) ||
		errors.Is(e.Kind, ErrBackendRejected) ||
		errors.Is(e.Kind, ErrBackend)
}

// NewProviderError creates a new provider error
func NewProviderError(provider string, kind error, message string, original error) *ProviderError {
	return &ProviderError{
		Provider:      provider,
		Kind:          kind,
		Message:       message,
		OriginalError: original,
	}
}

func rejectedError(provider, endpoint string, status int, message string, original error) *ProviderError {
	if message == "" {
		message = "request rejected"
	}
	return &ProviderError{
		Provider:      provider,
		Kind:          ErrBackendRejected,
		Message:       message,
		StatusCode:    status,
		Endpoint:      endpoint,
		OriginalError: original,
	}
}

// transportError classifies a failed round trip.
func transportError(provider, endpoint string, err error) *ProviderError {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &ProviderError{Provider: provider, Kind: ErrBackend, Message: err.Error(), Endpoint: endpoint, OriginalError: err}
	}
	if isConnectionFailure(err) {
		return &ProviderError{
			Provider:      provider,
			Kind:          ErrBackendUnreachable,
			Message:       fmt.Sprintf("cannot reach %s backend at %s: %v", provider, endpoint, err),
			Endpoint:      endpoint,
			OriginalError: err,
		}
	}
	return &ProviderError{Provider: provider, Kind: ErrBackend, Message: err.Error(), Endpoint: endpoint, OriginalError: err}
}

func isConnectionFailure(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTUNREACH) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
