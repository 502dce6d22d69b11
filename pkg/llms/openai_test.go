package llms

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatrag/chatrag/config"
	"github.com/chatrag/chatrag/pkg/models"
)

func TestOpenAIEmbeddingProvider_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "mistral-embed", req.Model)
		assert.Equal(t, []string{"a", "b"}, req.Input)

		w.Header().Set("Content-Type", "application/json")
		// out of order on purpose
		_, _ = w.Write([]byte(`{"object":"list","model":"mistral-embed","data":[
			{"object":"embedding","index":1,"embedding":[0,1]},
			{"object":"embedding","index":0,"embedding":[1,0]}
		]}`))
	}))
	defer srv.Close()

	p, err := NewOpenAIEmbeddingProvider("test-key", srv.URL, "mistral-embed", 0, time.Second)
	require.NoError(t, err)

	out, err := p.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, []models.Embedding{{1, 0}, {0, 1}}, out)
}

func TestOpenAIEmbeddingProvider_ErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		transient bool
	}{
		{"rate limit", http.StatusTooManyRequests, true},
		{"server error", http.StatusBadGateway, true},
		{"unauthorized", http.StatusUnauthorized, false},
		{"bad request", http.StatusBadRequest, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"error","code":"x"}}`))
			}))
			defer srv.Close()

			p, err := NewOpenAIEmbeddingProvider("k", srv.URL, "m", 0, time.Second)
			require.NoError(t, err)

			_, err = p.Embed(context.Background(), []string{"a"})
			require.Error(t, err)
			assert.Equal(t, tc.transient, errorsIsTransient(err))
		})
	}
}

func TestNewOpenAIEmbeddingProvider_RequiresKey(t *testing.T) {
	_, err := NewOpenAIEmbeddingProvider("", "", "m", 0, time.Second)
	assert.EqualError(t, err, OpenAIAPIKeyNotSetError)
}

func TestLocalEmbeddingProvider_Embed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)

		var req localEmbeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		resp := localEmbeddingResponse{}
		for range req.Texts {
			resp.Embeddings = append(resp.Embeddings, []float32{0.5, 0.5})
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	p := NewLocalEmbeddingProvider(srv.URL, time.Second)
	out, err := p.Embed(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Len(t, out, 3)
	assert.Equal(t, models.Embedding{0.5, 0.5}, out[2])
}

func TestLocalEmbeddingProvider_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewLocalEmbeddingProvider(srv.URL, time.Second)
	_, err := p.Embed(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, models.ErrTransient)
}

func TestOpenAILLM_Complete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)

		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "be kind", req.Messages[0].Content)
		assert.Equal(t, "user", req.Messages[1].Role)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","model":"m","choices":[
			{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"an answer"}}
		]}`))
	}))
	defer srv.Close()

	llm, err := NewOpenAILLM("k", srv.URL, "m", 0.2, time.Second)
	require.NoError(t, err)

	answer, err := llm.Complete(context.Background(), "be kind", "Context:\nx\n\nQuestion: y")
	require.NoError(t, err)
	assert.Equal(t, "an answer", answer)
}

func TestOpenAILLM_ErrorNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	llm, err := NewOpenAILLM("k", srv.URL, "m", 0, time.Second)
	require.NoError(t, err)

	_, err = llm.Complete(context.Background(), "", "q")
	var llmErr *models.LLMError
	assert.ErrorAs(t, err, &llmErr)
	assert.Equal(t, 1, calls)
}

func TestFactories(t *testing.T) {
	cfg := &config.Config{
		Embeddings: config.EmbeddingsConfig{Service: "local", ServerURL: "http://localhost:1", RequestTimeoutS: 1},
		LLM:        config.LLM{Service: "openai", APIKey: "k", Model: "m", RequestTimeoutS: 1},
	}

	p, err := NewEmbeddingProvider(cfg)
	require.NoError(t, err)
	assert.IsType(t, &LocalEmbeddingProvider{}, p)

	llm, err := NewLLM(cfg)
	require.NoError(t, err)
	assert.IsType(t, &OpenAILLM{}, llm)

	cfg.Embeddings.Service = "cohere"
	_, err = NewEmbeddingProvider(cfg)
	assert.Error(t, err)
}

func errorsIsTransient(err error) bool {
	return errors.Is(err, models.ErrTransient)
}
