package models

import "context"

// EmbeddingProvider turns texts into vectors, one per text and in order.
// Failures worth retrying must match ErrTransient.
type EmbeddingProvider interface {
	Embed(ctx context.Context, texts []string) ([]Embedding, error)
	Name() string
}

// VectorService is the narrow contract every vector backend implements.
// GetCollection returns a NotFoundError when the collection does not exist.
type VectorService interface {
	ListCollections(ctx context.Context) ([]Collection, error)
	GetCollection(ctx context.Context, name string) (*Collection, error)
	CreateCollection(ctx context.Context, name string, vectorSize int) error
	Upsert(ctx context.Context, collection string, points []IndexedPoint) error
	Search(ctx context.Context, collection string, vector Embedding, limit int) ([]ScoredHit, error)
	Ping(ctx context.Context) error
	Close() error
}

// RelevanceScorer scores each candidate against the query. The result has one
// score per candidate in input order.
type RelevanceScorer interface {
	Predict(ctx context.Context, query string, candidates []string) ([]float64, error)
}

// LLM completes a single system plus user exchange.
type LLM interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// TokenCounter counts tokens for context budgeting.
type TokenCounter interface {
	Encode(text string) []int
	Decode(tokens []int) string
}
