package llms

import (
	"context"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/chatrag/chatrag/pkg/models"
)

var _ models.EmbeddingProvider = &OpenAIEmbeddingProvider{}

// OpenAIEmbeddingProvider calls the /embeddings endpoint of an OpenAI compatible
// API. Mistral is reached by pointing BaseURL at https://api.mistral.ai/v1.
type OpenAIEmbeddingProvider struct {
	client     *openai.Client
	model      string
	dimensions int
}

func NewOpenAIEmbeddingProvider(
	apiKey, baseURL, model string,
	dimensions int,
	timeout time.Duration,
) (*OpenAIEmbeddingProvider, error) {
	client, err := newOpenAIClient(apiKey, baseURL, timeout)
	if err != nil {
		return nil, err
	}
	return &OpenAIEmbeddingProvider{client: client, model: model, dimensions: dimensions}, nil
}

func (p *OpenAIEmbeddingProvider) Name() string {
	return "embeddings:" + p.model
}

func (p *OpenAIEmbeddingProvider) Embed(ctx context.Context, texts []string) ([]models.Embedding, error) {
	resp, err := p.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input:      texts,
		Model:      openai.EmbeddingModel(p.model),
		Dimensions: p.dimensions,
	})
	if err != nil {
		return nil, classifyOpenAIError(p.Name(), err)
	}

	out := make([]models.Embedding, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("%s returned embedding index %d for %d texts", p.Name(), d.Index, len(texts))
		}
		out[d.Index] = d.Embedding
	}
	for i, v := range out {
		if v == nil {
			return nil, fmt.Errorf("%s returned no embedding for text %d", p.Name(), i)
		}
	}

	return out, nil
}
