package llms

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatrag/chatrag/config"
	"github.com/chatrag/chatrag/pkg/models"
	"github.com/chatrag/chatrag/pkg/testutils"
)

func fakeTexts(n int) []string {
	texts := make([]string, n)
	for i := range texts {
		texts[i] = fmt.Sprintf("%d %s", i, gofakeit.Sentence(8))
	}
	return texts
}

func TestEmbedBatch_BatchSizeInvariance(t *testing.T) {
	gofakeit.Seed(1)
	texts := fakeTexts(13)

	one := NewFakeClient(testutils.NewFakeEmbedder(16))
	five := NewFakeClient(testutils.NewFakeEmbedder(16))

	byOne, err := one.EmbedBatch(context.Background(), texts, 1)
	require.NoError(t, err)
	byFive, err := five.EmbedBatch(context.Background(), texts, 5)
	require.NoError(t, err)

	require.Len(t, byOne, len(texts))
	assert.Equal(t, byOne, byFive)
	for i, text := range texts {
		assert.Equal(t, testutils.FakeVector(text, 16), byFive[i])
	}

	assert.Equal(t, 13, one.Provider.(*testutils.FakeEmbedder).CallCount())
	calls := five.Provider.(*testutils.FakeEmbedder).Calls
	require.Len(t, calls, 3)
	assert.Equal(t, []int{5, 5, 3}, []int{len(calls[0]), len(calls[1]), len(calls[2])})
}

func TestEmbedBatch_Preconditions(t *testing.T) {
	c := NewFakeClient(testutils.NewFakeEmbedder(4))

	_, err := c.EmbedBatch(context.Background(), []string{"a"}, 0)
	assert.ErrorIs(t, err, models.ErrEmptyBatch)
	assert.ErrorIs(t, err, models.ErrPrecondition)

	out, err := c.EmbedBatch(context.Background(), nil, 5)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, 0, c.Provider.(*testutils.FakeEmbedder).CallCount())
}

type shortEmbedder struct{}

func (shortEmbedder) Name() string { return "short" }

func (shortEmbedder) Embed(_ context.Context, texts []string) ([]models.Embedding, error) {
	return make([]models.Embedding, len(texts)-1), nil
}

func TestEmbedBatch_WrongCount(t *testing.T) {
	c := NewFakeClient(shortEmbedder{})
	_, err := c.EmbedBatch(context.Background(), []string{"a", "b"}, 2)
	assert.ErrorIs(t, err, models.ErrPrecondition)
}

func TestEmbedBatch_RetriesTransient(t *testing.T) {
	flaky := &testutils.FlakyEmbedder{
		Next:     testutils.NewFakeEmbedder(8),
		Failures: 2,
		Err:      models.NewTransientError("flaky", errors.New("429 too many requests")),
	}
	c := NewFakeClient(flaky)

	out, err := c.EmbedBatch(context.Background(), []string{"a", "b", "c"}, 3)
	require.NoError(t, err)
	assert.Len(t, out, 3)
	assert.Equal(t, 3, flaky.Calls())
}

func TestEmbedBatch_ExhaustionAbortsCall(t *testing.T) {
	inner := testutils.NewFakeEmbedder(8)
	flaky := &testutils.FlakyEmbedder{
		Next:     inner,
		Failures: 100,
		Err:      models.NewTransientError("flaky", errors.New("503")),
	}
	c := NewFakeClient(flaky)

	out, err := c.EmbedBatch(context.Background(), fakeTexts(10), 2)
	assert.Nil(t, out)
	require.ErrorIs(t, err, models.ErrProviderUnavailable)
	// only the first batch is ever attempted
	assert.Equal(t, c.Retry.MaxAttempts, flaky.Calls())
	assert.Equal(t, 0, inner.CallCount())
}

func TestEmbedBatch_PermanentErrorNotRetried(t *testing.T) {
	flaky := &testutils.FlakyEmbedder{
		Next:     testutils.NewFakeEmbedder(8),
		Failures: 1,
		Err:      errors.New("invalid api key"),
	}
	c := NewFakeClient(flaky)

	_, err := c.EmbedBatch(context.Background(), []string{"a"}, 1)
	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrProviderUnavailable)
	assert.Equal(t, 1, flaky.Calls())
}

func TestEmbedBatch_Pacing(t *testing.T) {
	c := NewFakeClient(testutils.NewFakeEmbedder(4))
	c.BatchDelay = 20 * time.Millisecond

	start := time.Now()
	_, err := c.EmbedBatch(context.Background(), fakeTexts(4), 1)
	require.NoError(t, err)

	// three pauses between four batches
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestEmbedBatch_PacingHonoursCancel(t *testing.T) {
	c := NewFakeClient(testutils.NewFakeEmbedder(4))
	c.BatchDelay = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.EmbedBatch(ctx, fakeTexts(2), 1)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEmbedQuery(t *testing.T) {
	c := NewFakeClient(testutils.NewFakeEmbedder(4))
	v, err := c.EmbedQuery(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, testutils.FakeVector("hello", 4), v)
}

func TestNewEmbeddingClient_FromConfig(t *testing.T) {
	c := NewEmbeddingClient(testutils.NewFakeEmbedder(4), config.EmbeddingsConfig{
		BatchDelayMS: 2000,
		Retry:        config.RetryConfig{MaxAttempts: 5, BaseDelayMS: 4000, Multiplier: 2, MaxDelayMS: 60000},
	})
	assert.Equal(t, DefaultEmbeddingBatchSize, c.BatchSize)
	assert.Equal(t, DefaultEmbeddingBatchDelay, c.BatchDelay)
	assert.Equal(t, DefaultRetryPolicy(), c.Retry)
}

// NewFakeClient returns a client with millisecond backoff and no pacing.
func NewFakeClient(p models.EmbeddingProvider) *EmbeddingClient {
	return &EmbeddingClient{
		Provider:  p,
		Retry:     fastPolicy(4),
		BatchSize: DefaultEmbeddingBatchSize,
	}
}
