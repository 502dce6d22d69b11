package rag

import (
	"context"
	"strings"

	"github.com/chatrag/chatrag/pkg/chunker"
	"github.com/chatrag/chatrag/pkg/llms"
	"github.com/chatrag/chatrag/pkg/models"
	"github.com/chatrag/chatrag/pkg/rerank"
	"github.com/chatrag/chatrag/pkg/search"
	"github.com/chatrag/chatrag/pkg/synthesizer"
	"github.com/chatrag/chatrag/pkg/vectorstore"
)

// Answer is the result of a RAG query.
type Answer struct {
	Text    string             `json:"answer"`
	Context string             `json:"context"`
	Sources []models.ScoredHit `json:"sources"`
}

// Querier answers questions over an indexed collection.
type Querier struct {
	Embedder    *llms.EmbeddingClient
	Store       *vectorstore.Adapter
	Retriever   *search.MultiQueryRetriever
	Reranker    *rerank.Reranker
	Synthesizer *synthesizer.Synthesizer

	SystemPrompt string
	Probes       []string
	DefaultQuery string
	SearchLimit  int
	RAGLimit     int
}

// Search embeds text once and returns the nearest hits.
func (q *Querier) Search(ctx context.Context, collection, text string, limit int) ([]models.ScoredHit, error) {
	if strings.TrimSpace(text) == "" {
		return nil, models.NewPreconditionError("search text is empty")
	}
	if limit <= 0 {
		limit = q.SearchLimit
	}

	vector, err := q.Embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	return q.Store.Search(ctx, collection, vector, limit)
}

// Ask retrieves context for every probe, reranks and fuses it, and asks the
// LLM question. An empty question falls back to DefaultQuery. limit caps the
// hits per probe.
func (q *Querier) Ask(ctx context.Context, collection, question string, limit int) (*Answer, error) {
	if strings.TrimSpace(question) == "" {
		question = q.DefaultQuery
	}
	if limit <= 0 {
		limit = q.RAGLimit
	}
	probes := q.Probes
	if len(probes) == 0 {
		probes = []string{question}
	}

	perProbe, err := q.Retriever.Retrieve(ctx, collection, probes, limit)
	if err != nil {
		return nil, err
	}

	fused, err := q.Reranker.Fuse(ctx, search.Probes(perProbe), search.Candidates(perProbe))
	if err != nil {
		return nil, err
	}

	answer, err := q.Synthesizer.Generate(ctx, q.SystemPrompt, question, fused.Text)
	if err != nil {
		return nil, err
	}

	return &Answer{
		Text:    answer,
		Context: fused.Text,
		Sources: search.Sources(perProbe),
	}, nil
}

// Pipeline bundles the indexing and query sides built from one AppState.
type Pipeline struct {
	*Indexer
	*Querier
	Collections *vectorstore.Adapter
}

// NewPipeline wires every stage from appState. Empty prompt settings fall back
// to the built in defaults.
func NewPipeline(appState *models.AppState) (*Pipeline, error) {
	cfg := appState.Config

	c, err := chunker.New(cfg.Chunker)
	if err != nil {
		return nil, err
	}

	embedder := llms.NewEmbeddingClient(appState.Embedder, cfg.Embeddings)
	store := vectorstore.NewAdapter(
		appState.VectorService,
		cfg.VectorStore.UpsertBatchSize,
		cfg.Retrieval.SearchLimit,
	)

	querier := &Querier{
		Embedder:  embedder,
		Store:     store,
		Retriever: search.NewMultiQueryRetriever(embedder, store),
		Reranker:  rerank.NewReranker(appState.Scorer, cfg.Rerank),
		Synthesizer: synthesizer.NewSynthesizer(
			appState.LLM,
			appState.TokenCounter,
			cfg.LLM.MaxContextTokens,
			cfg.Prompts.UserTemplate,
		),
		SystemPrompt: withDefault(cfg.Prompts.System, DefaultSystemPrompt),
		Probes:       cfg.Prompts.Probes,
		DefaultQuery: withDefault(cfg.Prompts.DefaultQuery, DefaultQuery),
		SearchLimit:  cfg.Retrieval.SearchLimit,
		RAGLimit:     cfg.Retrieval.RAGLimit,
	}
	if len(querier.Probes) == 0 {
		querier.Probes = DefaultProbes
	}

	return &Pipeline{
		Indexer:     NewIndexer(c, embedder, store),
		Querier:     querier,
		Collections: store,
	}, nil
}

// ListCollections lists the collections of the configured backend.
func (p *Pipeline) ListCollections(ctx context.Context) ([]models.Collection, error) {
	return p.Collections.Collections(ctx)
}

// Ping checks that the vector backend is reachable.
func (p *Pipeline) Ping(ctx context.Context) error {
	return p.Collections.Ping(ctx)
}

func withDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
