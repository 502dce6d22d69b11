package rag

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatrag/chatrag/config"
	"github.com/chatrag/chatrag/pkg/chunker"
	"github.com/chatrag/chatrag/pkg/models"
	"github.com/chatrag/chatrag/pkg/rerank"
	"github.com/chatrag/chatrag/pkg/testutils"
	"github.com/chatrag/chatrag/pkg/vectorstore"
)

func testConfig() *config.Config {
	return &config.Config{
		Embeddings: config.EmbeddingsConfig{BatchSize: 2},
		Chunker:    config.ChunkerConfig{Strategy: "session", SessionGapMinutes: 20},
		VectorStore: config.VectorStoreConfig{
			Type:            "memory",
			UpsertBatchSize: 20,
		},
		Retrieval: config.RetrievalConfig{DefaultCollection: "chats", SearchLimit: 5, RAGLimit: 3},
		Rerank:    config.RerankConfig{Service: "none", Fusion: rerank.FusionBestPerProbe},
	}
}

type fixture struct {
	pipeline *Pipeline
	embedder *testutils.FakeEmbedder
	llm      *testutils.FakeLLM
	scorer   *testutils.FakeScorer
}

func newFixture(t *testing.T, cfg *config.Config) *fixture {
	t.Helper()
	f := &fixture{
		embedder: testutils.NewFakeEmbedder(32),
		llm:      &testutils.FakeLLM{Answer: "you argue about dishes"},
		scorer:   &testutils.FakeScorer{},
	}
	p, err := NewPipeline(&models.AppState{
		Embedder:      f.embedder,
		VectorService: vectorstore.NewMemoryService(),
		Scorer:        f.scorer,
		LLM:           f.llm,
		Config:        cfg,
	})
	require.NoError(t, err)
	f.pipeline = p
	return f
}

func TestIndexSessionTranscript(t *testing.T) {
	f := newFixture(t, testConfig())
	ctx := context.Background()

	res, err := f.pipeline.Index(ctx, "chats", testutils.Transcript, models.PointMetadata{Filename: "chat.txt"})
	require.NoError(t, err)
	assert.Equal(t, "chats", res.Collection)
	assert.Equal(t, 2, res.ChunksCount)
	assert.Len(t, res.IDs, 2)

	collections, err := f.pipeline.ListCollections(ctx)
	require.NoError(t, err)
	require.Len(t, collections, 1)
	assert.Equal(t, int64(2), collections[0].PointsCount)
	assert.Equal(t, 32, collections[0].VectorSize)

	hits, err := f.pipeline.Search(ctx, "chats", "[01/03/2019, 18:53:16] A: later", 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "[01/03/2019, 18:53:16] A: later", hits[0].Content)
	assert.Equal(t, "chat.txt", hits[0].Metadata.Filename)
	assert.Equal(t, 1, hits[0].Metadata.ChunkIndex)
}

func TestIndexFakeTranscriptInBatches(t *testing.T) {
	gofakeit.Seed(11)
	cfg := testConfig()
	cfg.VectorStore.UpsertBatchSize = 3
	f := newFixture(t, cfg)
	ctx := context.Background()

	transcript, msgs := testutils.FakeTranscript(60, 45)
	sessions := chunker.NewSessionSplitter(20 * time.Minute).Sessions(msgs)

	res, err := f.pipeline.Index(ctx, "fake", transcript, models.PointMetadata{ChatID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, len(sessions), res.ChunksCount)

	collections, err := f.pipeline.ListCollections(ctx)
	require.NoError(t, err)
	require.Len(t, collections, 1)
	assert.Equal(t, int64(len(sessions)), collections[0].PointsCount)
}

func TestIndexRejectsEmptyDocument(t *testing.T) {
	f := newFixture(t, testConfig())

	_, err := f.pipeline.Index(context.Background(), "chats", "not a chat line\n\n", models.PointMetadata{})
	assert.ErrorIs(t, err, models.ErrPrecondition)
	assert.Zero(t, f.embedder.CallCount())

	_, err = f.pipeline.Index(context.Background(), "", testutils.Transcript, models.PointMetadata{})
	assert.ErrorIs(t, err, models.ErrPrecondition)
}

func TestAskEndToEnd(t *testing.T) {
	cfg := testConfig()
	cfg.Rerank.Delimiter = "\n--\n"
	cfg.Prompts.Probes = []string{"dishes", "holiday"}
	cfg.Prompts.System = "be brief"
	f := newFixture(t, cfg)
	ctx := context.Background()

	transcript := strings.Join([]string{
		"[01/01/2020, 10:00:00] A: who does the dishes",
		"[01/01/2020, 10:01:00] B: not me",
		"[02/01/2020, 10:00:00] A: where do we go on holiday",
		"[02/01/2020, 10:05:00] B: the sea",
		"[05/01/2020, 10:00:00] A: good morning",
	}, "\n")
	_, err := f.pipeline.Index(ctx, "chats", transcript, models.PointMetadata{ChatID: "c1"})
	require.NoError(t, err)

	answer, err := f.pipeline.Ask(ctx, "chats", "", 3)
	require.NoError(t, err)
	assert.Equal(t, "you argue about dishes", answer.Text)

	dishes := "[01/01/2020, 10:00:00] A: who does the dishes\n[01/01/2020, 10:01:00] B: not me"
	holiday := "[02/01/2020, 10:00:00] A: where do we go on holiday\n[02/01/2020, 10:05:00] B: the sea"
	assert.Equal(t, dishes+"\n--\n"+holiday, answer.Context)
	assert.NotEmpty(t, answer.Sources)

	require.Equal(t, 1, f.llm.Calls())
	assert.Equal(t, "be brief", f.llm.System[0])
	assert.Contains(t, f.llm.User[0], "Question: "+DefaultQuery)
	assert.Contains(t, f.llm.User[0], "Context:\n"+dishes)
	assert.Equal(t, 2, f.scorer.Calls, "one scorer call per probe")
}

func TestAskUsesDefaults(t *testing.T) {
	f := newFixture(t, testConfig())
	ctx := context.Background()

	_, err := f.pipeline.Index(ctx, "chats", testutils.Transcript, models.PointMetadata{})
	require.NoError(t, err)

	_, err = f.pipeline.Ask(ctx, "chats", "why?", 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultSystemPrompt, f.llm.System[0])
	assert.True(t, strings.HasSuffix(f.llm.User[0], "Question: why?"))
	assert.Equal(t, len(DefaultProbes), f.scorer.Calls)
}

func TestAskErrors(t *testing.T) {
	f := newFixture(t, testConfig())
	ctx := context.Background()

	_, err := f.pipeline.Ask(ctx, "missing", "q", 3)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Zero(t, f.llm.Calls())

	_, err = f.pipeline.Index(ctx, "chats", testutils.Transcript, models.PointMetadata{})
	require.NoError(t, err)

	f.llm.Err = models.NewLLMError("llm down", errors.New("502"))
	_, err = f.pipeline.Ask(ctx, "chats", "q", 3)
	var llmErr *models.LLMError
	assert.ErrorAs(t, err, &llmErr)

	_, err = f.pipeline.Search(ctx, "chats", " ", 3)
	assert.ErrorIs(t, err, models.ErrPrecondition)
}

func TestNewPipelineRejectsUnknownChunker(t *testing.T) {
	cfg := testConfig()
	cfg.Chunker.Strategy = "sentences"
	_, err := NewPipeline(&models.AppState{
		Embedder:      testutils.NewFakeEmbedder(4),
		VectorService: vectorstore.NewMemoryService(),
		Scorer:        rerank.PassthroughScorer{},
		LLM:           &testutils.FakeLLM{},
		Config:        cfg,
	})
	assert.Error(t, err)
}
