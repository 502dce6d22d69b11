package llms

import (
	"context"
	"time"

	"github.com/chatrag/chatrag/config"
	"github.com/chatrag/chatrag/pkg/models"
)

const (
	DefaultEmbeddingBatchSize  = 23
	DefaultEmbeddingBatchDelay = 2 * time.Second
)

// EmbeddingClient batches texts through an EmbeddingProvider. Each batch is retried
// under Retry and successful batches are paced BatchDelay apart.
type EmbeddingClient struct {
	Provider   models.EmbeddingProvider
	Retry      RetryPolicy
	BatchDelay time.Duration
	// BatchSize is used by callers that do not pick their own.
	BatchSize int
}

func NewEmbeddingClient(provider models.EmbeddingProvider, cfg config.EmbeddingsConfig) *EmbeddingClient {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultEmbeddingBatchSize
	}
	return &EmbeddingClient{
		Provider:   provider,
		Retry:      RetryPolicyFromConfig(cfg.Retry),
		BatchDelay: time.Duration(cfg.BatchDelayMS) * time.Millisecond,
		BatchSize:  batchSize,
	}
}

// EmbedBatch returns one embedding per text, in order. A batch that still fails after
// the retry policy gives up aborts the whole call; no text is ever skipped.
func (c *EmbeddingClient) EmbedBatch(
	ctx context.Context,
	texts []string,
	batchSize int,
) ([]models.Embedding, error) {
	if batchSize <= 0 {
		return nil, models.ErrEmptyBatch
	}
	if len(texts) == 0 {
		return []models.Embedding{}, nil
	}

	total := (len(texts) + batchSize - 1) / batchSize
	result := make([]models.Embedding, 0, len(texts))
	dims := 0

	for b := 0; b < total; b++ {
		if b > 0 && c.BatchDelay > 0 {
			if err := sleep(ctx, c.BatchDelay); err != nil {
				return nil, err
			}
		}

		start := b * batchSize
		end := min(start+batchSize, len(texts))
		batch := texts[start:end]

		log.Debugf("embedding batch %d/%d (%d texts)", b+1, total, len(batch))

		vectors, err := executeWithRetry(ctx, c.Retry, c.Provider.Name(),
			func(ctx context.Context) ([]models.Embedding, error) {
				return c.Provider.Embed(ctx, batch)
			},
		)
		if err != nil {
			return nil, err
		}

		if len(vectors) != len(batch) {
			return nil, models.NewPreconditionError(
				"%s returned %d embeddings for %d texts", c.Provider.Name(), len(vectors), len(batch),
			)
		}
		for _, v := range vectors {
			if dims == 0 {
				dims = len(v)
			}
			if len(v) == 0 || len(v) != dims {
				return nil, models.NewPreconditionError(
					"%s returned an embedding of width %d, expected %d", c.Provider.Name(), len(v), dims,
				)
			}
		}

		result = append(result, vectors...)
		log.Infof("embedded batch %d/%d", b+1, total)
	}

	return result, nil
}

// EmbedQuery embeds a single text without pacing.
func (c *EmbeddingClient) EmbedQuery(ctx context.Context, text string) (models.Embedding, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text}, 1)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
