package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/httptrace/otelhttptrace"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/chatrag/chatrag/internal"
)

const (
	DefaultHTTPTimeout      = 30 * time.Second
	DefaultMaxRetryAttempts = 3
	maxErrorBodyBytes       = 2048
)

var log = internal.GetLogger()

// NewRetryableHTTPClient returns a new retryable HTTP client with the given retryMax and timeout.
// The retryable HTTP transport is wrapped in an OpenTelemetry transport. Responses that exhaust
// retries are passed through unchanged so callers can inspect the final status code.
func NewRetryableHTTPClient(
	retryMax int,
	timeout time.Duration,
	checkRetry retryablehttp.CheckRetry,
) *http.Client {
	if checkRetry == nil {
		checkRetry = IgnoreBadRequestRetryPolicy
	}

	retryableHTTPClient := retryablehttp.NewClient()
	retryableHTTPClient.RetryMax = retryMax
	retryableHTTPClient.HTTPClient.Timeout = timeout
	retryableHTTPClient.Logger = internal.NewLeveledLogrus(log)
	retryableHTTPClient.Backoff = retryablehttp.DefaultBackoff
	retryableHTTPClient.CheckRetry = checkRetry
	retryableHTTPClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &http.Client{
		Transport: otelhttp.NewTransport(
			retryableHTTPClient.StandardClient().Transport,
			otelhttp.WithClientTrace(func(ctx context.Context) *httptrace.ClientTrace {
				return otelhttptrace.NewClientTrace(ctx)
			}),
		),
	}
}

// IgnoreBadRequestRetryPolicy is a retryablehttp.CheckRetry that never retries a 400
// or a cancelled context and otherwise defers to retryablehttp.DefaultRetryPolicy.
func IgnoreBadRequestRetryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	// do not retry on context.Canceled or context.DeadlineExceeded
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if resp != nil && resp.StatusCode == http.StatusBadRequest {
		return false, err
	}

	shouldRetry, _ := retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	return shouldRetry, nil
}

// StatusError is returned by JSONClient when the server answers with a non-2xx status.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %d %s: %s",
		e.Method, e.URL, e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// IsRetryable reports whether retryablehttp's default policy would retry the status
// (429 and most 5xx).
func (e *StatusError) IsRetryable() bool {
	return IsRetryableStatus(e.StatusCode)
}

// IsRetryableStatus applies retryablehttp.DefaultRetryPolicy to a bare status code.
func IsRetryableStatus(statusCode int) bool {
	retry, _ := retryablehttp.DefaultRetryPolicy(
		context.Background(), &http.Response{StatusCode: statusCode}, nil)
	return retry
}

// IsTransient classifies an error returned by JSONClient.Do. Status errors follow
// retryablehttp's default policy; transport errors such as timeouts and refused
// connections are transient. Cancellation by the caller never is.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.IsRetryable()
	}
	var reqErr *RequestError
	return errors.As(err, &reqErr)
}

// RequestError wraps a failure to reach the server at all.
type RequestError struct {
	URL string
	Err error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// JSONClient talks JSON to a single HTTP service.
type JSONClient struct {
	BaseURL string
	// APIKey is sent in APIKeyHeader. When APIKeyHeader is empty a Bearer
	// Authorization header is used.
	APIKey       string
	APIKeyHeader string
	HTTPClient   *http.Client
}

// NewJSONClient returns a JSONClient. retryMax of 0 leaves retrying to the caller.
func NewJSONClient(baseURL, apiKey string, retryMax int, timeout time.Duration) *JSONClient {
	if timeout == 0 {
		timeout = DefaultHTTPTimeout
	}
	return &JSONClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		HTTPClient: NewRetryableHTTPClient(retryMax, timeout, IgnoreBadRequestRetryPolicy),
	}
}

// Do sends payload (when non-nil) as the JSON body and decodes a JSON response into out
// (when non-nil).
func (c *JSONClient) Do(ctx context.Context, method, path string, payload, out any) error {
	url := c.BaseURL + path

	var body io.Reader = http.NoBody
	if payload != nil {
		p, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(p)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.APIKey != "" {
		if c.APIKeyHeader != "" {
			req.Header.Set(c.APIKeyHeader, c.APIKey)
		} else {
			req.Header.Set("Authorization", "Bearer "+c.APIKey)
		}
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &RequestError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return &StatusError{
			Method:     method,
			URL:        url,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(b)),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", url, err)
	}

	return nil
}
