package llms

import (
	"context"
	"net/http"
	"time"

	"github.com/chatrag/chatrag/internal/httputil"
	"github.com/chatrag/chatrag/pkg/models"
)

var _ models.EmbeddingProvider = &LocalEmbeddingProvider{}

type localEmbeddingRequest struct {
	Texts []string `json:"texts"`
}

type localEmbeddingResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// LocalEmbeddingProvider posts texts to a self hosted embedding server at
// <ServerURL>/embeddings.
type LocalEmbeddingProvider struct {
	client *httputil.JSONClient
}

func NewLocalEmbeddingProvider(serverURL string, timeout time.Duration) *LocalEmbeddingProvider {
	return &LocalEmbeddingProvider{client: httputil.NewJSONClient(serverURL, "", 0, timeout)}
}

func (p *LocalEmbeddingProvider) Name() string {
	return "embeddings:local"
}

func (p *LocalEmbeddingProvider) Embed(ctx context.Context, texts []string) ([]models.Embedding, error) {
	var resp localEmbeddingResponse
	err := p.client.Do(ctx, http.MethodPost, "/embeddings", localEmbeddingRequest{Texts: texts}, &resp)
	if err != nil {
		if httputil.IsTransient(err) {
			return nil, models.NewTransientError(p.Name(), err)
		}
		return nil, err
	}

	out := make([]models.Embedding, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		out[i] = e
	}
	return out, nil
}
