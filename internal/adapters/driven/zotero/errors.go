package zotero

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/boomvriend/zotero2remarkable-bridge/internal/core/domain"
)

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 512

// APIError represents a Zotero API error response.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("zotero: API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// Unwrap maps the status code onto a domain sentinel.
func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusNotFound:
		return domain.ErrNotFound
	case e.StatusCode == http.StatusPreconditionFailed:
		return domain.ErrConflict
	case e.StatusCode == http.StatusTooManyRequests, e.StatusCode >= 500:
		return domain.ErrTransient
	case e.StatusCode == http.StatusBadRequest:
		return domain.ErrInvalidInput
	case e.StatusCode == http.StatusUnauthorized, e.StatusCode == http.StatusForbidden:
		return domain.ErrUnauthorized
	default:
		return nil
	}
}

// newAPIError builds an APIError from a failed response and drains its body.
func newAPIError(resp *http.Response) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: msg}
	if resp.Request != nil && resp.Request.URL != nil {
		apiErr.URL = resp.Request.URL.String()
	}
	return apiErr
}

// wrapTransportError classifies a failure to get any response at all.
func wrapTransportError(err error, operation string) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("zotero %s: %w", operation, err)
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return fmt.Errorf("zotero %s: %w: %w", operation, domain.ErrUnreachable, err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return fmt.Errorf("zotero %s: %w: %w", operation, domain.ErrUnreachable, err)
	}
	return fmt.Errorf("zotero %s: %w: %w", operation, domain.ErrTransient, err)
}
