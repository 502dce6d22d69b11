package vectorstore

import (
	"context"
	"errors"
	"fmt"

	"dario.cat/mergo"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/chatrag/chatrag/internal"
	"github.com/chatrag/chatrag/pkg/models"
)

var log = internal.GetLogger()

const (
	DefaultUpsertBatchSize = 20
	DefaultSearchLimit     = 5
)

// Adapter puts collection management and batched writes in front of a
// models.VectorService backend.
type Adapter struct {
	Service         models.VectorService
	UpsertBatchSize int
	SearchLimit     int
}

func NewAdapter(service models.VectorService, upsertBatchSize, searchLimit int) *Adapter {
	if upsertBatchSize <= 0 {
		upsertBatchSize = DefaultUpsertBatchSize
	}
	if searchLimit <= 0 {
		searchLimit = DefaultSearchLimit
	}
	return &Adapter{
		Service:         service,
		UpsertBatchSize: upsertBatchSize,
		SearchLimit:     searchLimit,
	}
}

// EnsureCollection creates a cosine collection of vectorSize when name does not
// exist yet. An existing collection of a different size is a DimensionMismatchError;
// it is never recreated.
func (a *Adapter) EnsureCollection(ctx context.Context, name string, vectorSize int) error {
	if name == "" {
		return models.NewPreconditionError("collection name is required")
	}
	if vectorSize <= 0 {
		return models.NewPreconditionError("vector size must be positive, got %d", vectorSize)
	}

	collections, err := a.Service.ListCollections(ctx)
	if err != nil {
		return models.NewStorageError("failed to list collections", err)
	}

	for _, c := range collections {
		if c.Name != name {
			continue
		}
		if c.VectorSize != vectorSize {
			return models.NewDimensionMismatchError(name, c.VectorSize, vectorSize)
		}
		return nil
	}

	log.Infof("creating collection %s (size %d, %s)", name, vectorSize, models.DistanceCosine)
	if err := a.Service.CreateCollection(ctx, name, vectorSize); err != nil {
		return models.NewStorageError(fmt.Sprintf("failed to create collection %s", name), err)
	}

	return nil
}

// Upsert writes one point per chunk in batches of UpsertBatchSize. Batches are
// committed in order; the first failing batch stops the upload with a
// PartialUploadError and nothing is retried. meta is merged into every payload
// and ChunkIndex is the chunk's position within this call.
func (a *Adapter) Upsert(
	ctx context.Context,
	collection string,
	chunks []models.Chunk,
	vectors []models.Embedding,
	meta models.PointMetadata,
) ([]string, error) {
	if len(chunks) != len(vectors) {
		return nil, models.NewPreconditionError(
			"got %d chunks but %d vectors", len(chunks), len(vectors),
		)
	}
	if len(chunks) == 0 {
		return []string{}, nil
	}

	size := len(vectors[0])
	for _, v := range vectors {
		if len(v) != size {
			return nil, models.NewDimensionMismatchError(collection, size, len(v))
		}
	}

	if err := a.EnsureCollection(ctx, collection, size); err != nil {
		return nil, err
	}

	meta.ChunkIndex = 0
	points := make([]models.IndexedPoint, len(chunks))
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		payloadMeta := models.PointMetadata{ChunkIndex: i}
		if err := mergo.Merge(&payloadMeta, meta); err != nil {
			return nil, fmt.Errorf("failed to merge point metadata: %w", err)
		}
		ids[i] = uuid.NewString()
		points[i] = models.IndexedPoint{
			ID:     ids[i],
			Vector: vectors[i],
			Payload: models.Payload{
				Content:  c.Text,
				Metadata: payloadMeta,
			},
		}
	}

	total := (len(points) + a.UpsertBatchSize - 1) / a.UpsertBatchSize
	for b := 0; b < total; b++ {
		start := b * a.UpsertBatchSize
		end := min(start+a.UpsertBatchSize, len(points))

		if err := a.Service.Upsert(ctx, collection, points[start:end]); err != nil {
			log.Errorf("upsert batch %d/%d to %s failed: %v", b+1, total, collection, err)
			return ids[:start], models.NewPartialUploadError(collection, b, b, total, err)
		}
		log.Debugf("upserted batch %d/%d to %s", b+1, total, collection)
	}

	log.Infof("upserted %s points to %s", humanize.Comma(int64(len(points))), collection)

	return ids, nil
}

// Search returns up to limit hits ordered by descending score. A limit of zero or
// less uses SearchLimit.
func (a *Adapter) Search(
	ctx context.Context,
	collection string,
	vector models.Embedding,
	limit int,
) ([]models.ScoredHit, error) {
	if limit <= 0 {
		limit = a.SearchLimit
	}
	if len(vector) == 0 {
		return nil, models.NewPreconditionError("query vector is empty")
	}

	c, err := a.Service.GetCollection(ctx, collection)
	if err != nil {
		return nil, err
	}
	if c.VectorSize != len(vector) {
		return nil, models.NewDimensionMismatchError(collection, c.VectorSize, len(vector))
	}

	hits, err := a.Service.Search(ctx, collection, vector, limit)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		return nil, models.NewStorageError(fmt.Sprintf("search in %s failed", collection), err)
	}

	SortHits(hits)
	if len(hits) > limit {
		hits = hits[:limit]
	}

	return hits, nil
}

// Collections lists every collection the backend knows about.
func (a *Adapter) Collections(ctx context.Context) ([]models.Collection, error) {
	collections, err := a.Service.ListCollections(ctx)
	if err != nil {
		return nil, models.NewStorageError("failed to list collections", err)
	}
	return collections, nil
}

func (a *Adapter) Ping(ctx context.Context) error {
	return a.Service.Ping(ctx)
}
