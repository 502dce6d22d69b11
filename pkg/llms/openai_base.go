package llms

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/chatrag/chatrag/internal/httputil"
	"github.com/chatrag/chatrag/pkg/models"
)

const OpenAIAPIKeyNotSetError = "api key is not set for the openai compatible service" //nolint:gosec

// newOpenAIClient builds a go-openai client against any OpenAI compatible base URL.
// The transport does not retry; retries belong to the callers' policies.
func newOpenAIClient(apiKey, baseURL string, timeout time.Duration) (*openai.Client, error) {
	if apiKey == "" {
		return nil, errors.New(OpenAIAPIKeyNotSetError)
	}
	if timeout == 0 {
		timeout = httputil.DefaultHTTPTimeout
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = httputil.NewRetryableHTTPClient(0, timeout, nil)

	return openai.NewClientWithConfig(cfg), nil
}

// classifyOpenAIError marks rate limits, server errors and transport failures as transient.
func classifyOpenAIError(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if httputil.IsRetryableStatus(apiErr.HTTPStatusCode) {
			return models.NewTransientError(provider, err)
		}
		return err
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if httputil.IsRetryableStatus(reqErr.HTTPStatusCode) {
			return models.NewTransientError(provider, err)
		}
		return err
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) || errors.Is(err, context.DeadlineExceeded) {
		return models.NewTransientError(provider, err)
	}

	return err
}
