// Package fetcher issues single HTTP requests against the external data
// source and returns either a decoded response body or a typed error.
// Retry policy lives in the executor; the fetcher never retries.
package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/phamilton/collector-api/internal/config"
	"github.com/phamilton/collector-api/internal/domain"
)

// ErrorKind classifies a fetch failure.
type ErrorKind string

// Possible fetch error kinds
const (
	KindTimeout          ErrorKind = "timeout"
	KindConnectionFailed ErrorKind = "connection_failed"
	KindRateLimited      ErrorKind = "rate_limited"
	KindHTTPStatus       ErrorKind = "http_status"
	KindMalformedJSON    ErrorKind = "malformed_json"
	KindUnexpectedShape  ErrorKind = "unexpected_shape"
)

// Error is a typed fetch failure. StatusCode is set for http_status and
// rate_limited kinds; Body carries a bounded snippet of the response body
// for logging.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Body       string
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch failed (%s, status %d)", e.Kind, e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch failed (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("fetch failed (%s)", e.Kind)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// AddressResponse is the fixed shape of a successful source response.
// Anything that does not match it fails closed as unexpected_shape.
type AddressResponse struct {
	Status  string         `json:"status"`
	Address AddressPayload `json:"address"`
}

// AddressPayload carries the raw extracted fields before validation.
// Field tags follow the source API's capitalization.
type AddressPayload struct {
	Address   string `json:"Address"`
	Telephone string `json:"Telephone"`
	City      string `json:"City"`
	ZipCode   string `json:"Zip_Code"`
	State     string `json:"State"`
	StateFull string `json:"State_Full"`
}

// maxErrorBodyBytes bounds how much of an error response body is retained
// for logging.
const maxErrorBodyBytes = 512

// Fetcher performs one HTTP call per invocation, honoring the task's
// timeout and a client-side rate limit shared across all tasks.
type Fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// New creates a Fetcher from the crawler configuration.
func New(cfg config.CrawlerConfig) *Fetcher {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Fetcher{
		// The per-request deadline comes from the task's timeout, not a
		// client-wide setting.
		client:    &http.Client{Transport: transport},
		limiter:   rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		userAgent: cfg.UserAgent,
	}
}

// Fetch issues the task's HTTP request and decodes the expected response
// shape. It returns the raw address payload on success, or an *Error
// classifying the failure.
func (f *Fetcher) Fetch(ctx context.Context, task *domain.Task) (*AddressPayload, error) {
	ctx, cancel := context.WithTimeout(ctx, task.Timeout)
	defer cancel()

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, &Error{Kind: KindTimeout, Err: err}
	}

	var body io.Reader
	if task.Body != "" {
		body = strings.NewReader(task.Body)
	}

	req, err := http.NewRequestWithContext(ctx, task.Method, task.URL, body)
	if err != nil {
		return nil, &Error{Kind: KindConnectionFailed, Err: err}
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/json")
	for key, value := range task.Headers {
		req.Header.Set(key, value)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &Error{Kind: KindTimeout, Err: err}
		}
		return nil, &Error{Kind: KindConnectionFailed, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &Error{
			Kind:       KindRateLimited,
			StatusCode: resp.StatusCode,
			Body:       readBodySnippet(resp.Body),
		}
	case resp.StatusCode != http.StatusOK:
		return nil, &Error{
			Kind:       KindHTTPStatus,
			StatusCode: resp.StatusCode,
			Body:       readBodySnippet(resp.Body),
		}
	}

	var decoded AddressResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &Error{Kind: KindMalformedJSON, Err: err}
	}

	// Fail closed on any shape other than the documented success body.
	if decoded.Status != "ok" {
		return nil, &Error{
			Kind: KindUnexpectedShape,
			Err:  fmt.Errorf("response status %q, expected \"ok\"", decoded.Status),
		}
	}
	if decoded.Address == (AddressPayload{}) {
		return nil, &Error{
			Kind: KindUnexpectedShape,
			Err:  errors.New("response carries no address object"),
		}
	}

	return &decoded.Address, nil
}

// readBodySnippet drains at most maxErrorBodyBytes of a response body for
// inclusion in error context.
func readBodySnippet(r io.Reader) string {
	snippet, err := io.ReadAll(io.LimitReader(r, maxErrorBodyBytes))
	if err != nil {
		return ""
	}
	return string(snippet)
}
