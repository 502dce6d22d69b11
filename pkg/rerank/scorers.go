package rerank

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/chatrag/chatrag/config"
	"github.com/chatrag/chatrag/internal/httputil"
	"github.com/chatrag/chatrag/pkg/models"
)

const (
	ServiceHTTP = "http"
	ServiceNone = "none"
)

var (
	_ models.RelevanceScorer = &HTTPScorer{}
	_ models.RelevanceScorer = PassthroughScorer{}
)

// NewScorer returns the scorer configured by cfg.Service.
func NewScorer(cfg config.RerankConfig) (models.RelevanceScorer, error) {
	switch cfg.Service {
	case ServiceHTTP:
		return NewHTTPScorer(cfg.URL, cfg.Model), nil
	case ServiceNone, "":
		return PassthroughScorer{}, nil
	default:
		return nil, fmt.Errorf("invalid rerank service: %s", cfg.Service)
	}
}

// HTTPScorer calls a text-embeddings-inference style /rerank endpoint serving a
// cross-encoder.
type HTTPScorer struct {
	client *httputil.JSONClient
	Model  string
}

func NewHTTPScorer(url, model string) *HTTPScorer {
	return &HTTPScorer{
		client: httputil.NewJSONClient(url, "", 0, 30*time.Second),
		Model:  model,
	}
}

type rerankRequest struct {
	Query string   `json:"query"`
	Texts []string `json:"texts"`
}

type rerankResult struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// Predict returns one score per candidate, in candidate order.
func (s *HTTPScorer) Predict(ctx context.Context, query string, candidates []string) ([]float64, error) {
	var results []rerankResult
	err := s.client.Do(ctx, http.MethodPost, "/rerank", rerankRequest{Query: query, Texts: candidates}, &results)
	if err != nil {
		if httputil.IsTransient(err) {
			return nil, models.NewTransientError("rerank:"+s.Model, err)
		}
		return nil, err
	}

	scores := make([]float64, len(candidates))
	seen := make([]bool, len(candidates))
	for _, r := range results {
		if r.Index < 0 || r.Index >= len(candidates) {
			return nil, fmt.Errorf("rerank result index %d out of range [0, %d)", r.Index, len(candidates))
		}
		scores[r.Index] = r.Score
		seen[r.Index] = true
	}
	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("rerank response is missing a score for candidate %d", i)
		}
	}
	return scores, nil
}

// PassthroughScorer keeps the incoming order by scoring candidates by position.
type PassthroughScorer struct{}

func (PassthroughScorer) Predict(_ context.Context, _ string, candidates []string) ([]float64, error) {
	scores := make([]float64, len(candidates))
	for i := range candidates {
		scores[i] = float64(len(candidates) - i)
	}
	return scores, nil
}
