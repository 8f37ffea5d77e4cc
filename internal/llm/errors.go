package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// Failure taxonomy shared by every adapter. Adapters wrap one of these with %w
// so callers can branch with errors.Is.
var (
	// ErrUnavailable means a required capability or credential is missing
	ErrUnavailable = errors.New("capability unavailable")

	// ErrMalformedResponse means model output could not be parsed into the expected shape
	ErrMalformedResponse = errors.New("malformed model response")

	// ErrCancelled means the caller cancelled the call
	ErrCancelled = errors.New("cancelled")

	// ErrTimeout means a bounded step (e.g., session init) ran out of time
	ErrTimeout = errors.New("timed out")

	// ErrNetworkOrQuota means a transport failure or a rate-limit/quota response
	ErrNetworkOrQuota = errors.New("network or quota failure")
)

// StatusError is a non-2xx HTTP response from a provider
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// Classify maps a raw provider error onto the taxonomy. Errors already in the
// taxonomy pass through unchanged.
func Classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{ErrUnavailable, ErrMalformedResponse, ErrCancelled, ErrTimeout, ErrNetworkOrQuota} {
		if errors.Is(err, known) {
			return err
		}
	}

	if errors.Is(err, context.Canceled) || (ctx != nil && errors.Is(ctx.Err(), context.Canceled)) {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return classifyStatus(statusErr.StatusCode, err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classifyStatus(reqErr.HTTPStatusCode, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %w", ErrTimeout, err)
		}
		return fmt.Errorf("%w: %w", ErrNetworkOrQuota, err)
	}

	lower := strings.ToLower(err.Error())
	if strings.Contains(lower, "quota") || strings.Contains(lower, "rate limit") {
		return fmt.Errorf("%w: %w", ErrNetworkOrQuota, err)
	}

	return err
}

func classifyStatus(code int, err error) error {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	case code == http.StatusTooManyRequests || code >= 500:
		return fmt.Errorf("%w: %w", ErrNetworkOrQuota, err)
	default:
		return err
	}
}

// Kind returns a short label for logging
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, ErrCancelled):
		return "cancelled"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrNetworkOrQuota):
		return "network_or_quota"
	default:
		return "error"
	}
}
