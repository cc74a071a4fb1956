package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/dadosbr/agregador/internal/ratelimit"
	"github.com/dadosbr/agregador/internal/types"
)

// Request describes one logical GET against a source.
type Request struct {
	Source  string
	URL     string
	Query   url.Values
	Headers http.Header
}

// Response is the outcome of a successful call. Empty is set when the
// upstream answered 2xx with a non-JSON or empty body; Body is nil then.
type Response struct {
	StatusCode int
	Body       json.RawMessage
	Empty      bool
}

// Client executes single HTTP GETs against rate-limited, unreliable
// upstreams with retry and backoff. Retryable failures (429, 5xx,
// transport errors) consume attempts; terminal 4xx returns immediately.
type Client struct {
	http        *http.Client
	limiter     *ratelimit.SourceLimiter
	maxAttempts int
	backoffBase time.Duration
	logger      *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithMaxAttempts overrides the total attempt budget per call.
func WithMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxAttempts = n
		}
	}
}

// WithBackoffBase overrides the initial backoff duration for retries.
func WithBackoffBase(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.backoffBase = d
		}
	}
}

// WithLogger overrides the default logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient constructs a Client with sensible defaults.
func NewClient(limiter *ratelimit.SourceLimiter, opts ...Option) *Client {
	client := &Client{
		http:        &http.Client{Timeout: 30 * time.Second},
		limiter:     limiter,
		maxAttempts: 3,
		backoffBase: time.Second,
		logger:      log.New(os.Stdout, "httpclient ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Get executes the request, retrying transient failures until the attempt
// budget is exhausted. The rate limiter slot for the source is acquired
// before every attempt, retries included.
func (c *Client) Get(ctx context.Context, req Request) (*Response, error) {
	attempts := c.maxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr *FetchError
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			wait := c.backoffBase * time.Duration(1<<(attempt-1))
			if lastErr != nil && lastErr.RetryAfter > wait {
				wait = lastErr.RetryAfter
			}
			c.logger.Printf("retrying %s attempt %d/%d after %v: %v",
				req.Source, attempt+1, attempts, wait, lastErr)
			if err := sleepCtx(ctx, wait); err != nil {
				return nil, abortFetchError(req.Source, err, lastErr)
			}
		}

		if err := c.limiter.Acquire(ctx, req.Source); err != nil {
			return nil, abortFetchError(req.Source, err, lastErr)
		}

		resp, ferr := c.do(ctx, req)
		if ferr == nil {
			return resp, nil
		}
		lastErr = ferr
		if !ferr.Retryable {
			return nil, ferr
		}
	}

	return nil, &FetchError{
		Type:       lastErr.Type,
		Message:    fmt.Sprintf("%s failed after %d attempts: %s", req.Source, attempts, lastErr.Message),
		Source:     req.Source,
		StatusCode: lastErr.StatusCode,
		Retryable:  false,
		Err:        lastErr,
	}
}

// abortFetchError classifies a context expiry between attempts, in the
// backoff sleep or the rate limiter wait, so callers always receive a
// *FetchError. The last attempt's failure, when there was one, is kept
// as the cause.
func abortFetchError(source string, ctxErr error, lastErr *FetchError) *FetchError {
	cause := ctxErr
	if lastErr != nil {
		cause = lastErr
	}
	return &FetchError{
		Type:      types.ErrorTypeTimeout,
		Message:   fmt.Sprintf("aborted while waiting: %v", ctxErr),
		Source:    source,
		Retryable: false,
		Err:       cause,
	}
}

func (c *Client) do(ctx context.Context, req Request) (*Response, *FetchError) {
	target, ferr := buildURL(req)
	if ferr != nil {
		return nil, ferr
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &FetchError{
			Type:    types.ErrorTypeUpstreamClient,
			Message: fmt.Sprintf("invalid request: %v", err),
			Source:  req.Source,
			Err:     err,
		}
	}
	httpReq.Header.Set("Accept", "application/json")
	for key, values := range req.Headers {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, &FetchError{
				Type:      types.ErrorTypeTimeout,
				Message:   "request cancelled",
				Source:    req.Source,
				Retryable: false,
				Err:       err,
			}
		}
		ferr := ClassifyTransportError(err)
		ferr.Source = req.Source
		return nil, ferr
	}
	defer func() { _ = httpResp.Body.Close() }()

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(httpResp.Body, 4096))
		ferr := ClassifyHTTPStatus(httpResp.StatusCode, httpResp.Header)
		ferr.Source = req.Source
		return nil, ferr
	}

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		ferr := ClassifyTransportError(err)
		ferr.Source = req.Source
		return nil, ferr
	}

	if len(strings.TrimSpace(string(body))) == 0 || !isJSONContentType(httpResp.Header) {
		return &Response{StatusCode: httpResp.StatusCode, Empty: true}, nil
	}

	if !json.Valid(body) {
		return nil, &FetchError{
			Type:       types.ErrorTypeMalformedPayload,
			Message:    "upstream returned invalid JSON",
			Source:     req.Source,
			StatusCode: httpResp.StatusCode,
			Retryable:  false,
		}
	}

	return &Response{StatusCode: httpResp.StatusCode, Body: body}, nil
}

func buildURL(req Request) (string, *FetchError) {
	parsed, err := url.Parse(req.URL)
	if err != nil {
		return "", &FetchError{
			Type:    types.ErrorTypeUpstreamClient,
			Message: fmt.Sprintf("invalid URL %q: %v", req.URL, err),
			Source:  req.Source,
			Err:     err,
		}
	}
	if len(req.Query) > 0 {
		merged := parsed.Query()
		for key, values := range req.Query {
			for _, value := range values {
				merged.Set(key, value)
			}
		}
		parsed.RawQuery = merged.Encode()
	}
	return parsed.String(), nil
}

func isJSONContentType(header http.Header) bool {
	contentType := header.Get("Content-Type")
	if contentType == "" {
		// Several government endpoints omit the header; treat the body
		// as JSON and let validation decide.
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" ||
		strings.HasSuffix(mediaType, "+json") ||
		strings.HasPrefix(mediaType, "application/vnd.") && strings.Contains(mediaType, "json")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
