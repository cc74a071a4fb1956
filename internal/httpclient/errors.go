package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/dadosbr/agregador/internal/types"
)

// FetchError classifies a failed upstream call. Retryable errors are
// exhausted inside the client before being reported as terminal.
type FetchError struct {
	Type       types.ErrorType `json:"type"`
	Message    string          `json:"message"`
	Source     string          `json:"source,omitempty"`
	StatusCode int             `json:"status_code,omitempty"`
	Retryable  bool            `json:"retryable"`
	RetryAfter time.Duration   `json:"retry_after,omitempty"`
	Err        error           `json:"-"`
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("[%s] %s (HTTP %d)", e.Type, e.Message, e.StatusCode)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func (e *FetchError) IsRetryable() bool {
	return e.Retryable
}

// ClassifyHTTPStatus maps a non-2xx upstream status to a FetchError.
// The header is consulted for Retry-After on 429 responses.
func ClassifyHTTPStatus(statusCode int, header http.Header) *FetchError {
	switch {
	case statusCode == http.StatusTooManyRequests:
		return &FetchError{
			Type:       types.ErrorTypeRateLimited,
			Message:    "upstream rate limit hit",
			StatusCode: statusCode,
			Retryable:  true,
			RetryAfter: parseRetryAfter(header),
		}
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return &FetchError{
			Type:       types.ErrorTypeAuthRequired,
			Message:    "upstream rejected credentials",
			StatusCode: statusCode,
			Retryable:  false,
		}
	case statusCode >= 500:
		return &FetchError{
			Type:       types.ErrorTypeUpstreamServer,
			Message:    "upstream server error",
			StatusCode: statusCode,
			Retryable:  true,
		}
	case statusCode >= 400:
		return &FetchError{
			Type:       types.ErrorTypeUpstreamClient,
			Message:    "upstream rejected the request",
			StatusCode: statusCode,
			Retryable:  false,
		}
	default:
		return &FetchError{
			Type:       types.ErrorTypeUnknown,
			Message:    fmt.Sprintf("unexpected upstream status %d", statusCode),
			StatusCode: statusCode,
			Retryable:  false,
		}
	}
}

// ClassifyTransportError maps a transport-level failure to a FetchError.
func ClassifyTransportError(err error) *FetchError {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &FetchError{
			Type:      types.ErrorTypeTimeout,
			Message:   "request deadline exceeded",
			Retryable: true,
			Err:       err,
		}
	case errors.As(err, &netErr) && netErr.Timeout():
		return &FetchError{
			Type:      types.ErrorTypeTimeout,
			Message:   "network timeout",
			Retryable: true,
			Err:       err,
		}
	default:
		return &FetchError{
			Type:      types.ErrorTypeUpstreamServer,
			Message:   "connection failed",
			Retryable: true,
			Err:       err,
		}
	}
}

func parseRetryAfter(header http.Header) time.Duration {
	value := header.Get("Retry-After")
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if wait := time.Until(at); wait > 0 {
			return wait
		}
	}
	return 0
}
