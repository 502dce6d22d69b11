package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oiime/logrusbun"
	"github.com/pgvector/pgvector-go"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/bun"

	"github.com/chatrag/chatrag/internal"
	"github.com/chatrag/chatrag/pkg/models"
)

var log = internal.GetLogger()

var _ models.VectorService = &VectorStore{}

// VectorStore keeps each collection in its own pgvector table and tracks them in
// the vector_collection registry.
type VectorStore struct {
	db   *bun.DB
	hnsw bool
}

// NewVectorStore prepares db for use: pgvector is enabled, the registry table is
// created and HNSW support is detected.
func NewVectorStore(ctx context.Context, db *bun.DB) (*VectorStore, error) {
	if err := enablePgVectorExtension(ctx, db); err != nil {
		return nil, err
	}
	if err := createRegistryTable(ctx, db); err != nil {
		return nil, err
	}
	hnsw, err := isHNSWAvailable(ctx, db)
	if err != nil {
		return nil, err
	}
	return &VectorStore{db: db, hnsw: hnsw}, nil
}

// EnableQueryLogging logs every query at debug level.
func EnableQueryLogging(db *bun.DB) {
	log.Info("enabling postgres query logging")
	db.AddQueryHook(logrusbun.NewQueryHook(logrusbun.QueryHookOptions{
		LogSlow:         time.Second,
		Logger:          log,
		QueryLevel:      logrus.DebugLevel,
		ErrorLevel:      logrus.ErrorLevel,
		SlowLevel:       logrus.WarnLevel,
		MessageTemplate: "{{.Operation}}[{{.Duration}}]: {{.Query}}",
		ErrorTemplate:   "{{.Operation}}[{{.Duration}}]: {{.Query}}: {{.Error}}",
	}))
}

func (s *VectorStore) ListCollections(ctx context.Context) ([]models.Collection, error) {
	var rows []CollectionSchema
	err := s.db.NewSelect().Model(&rows).Order("name ASC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}

	out := make([]models.Collection, len(rows))
	for i := range rows {
		out[i] = s.toCollection(ctx, &rows[i])
	}
	return out, nil
}

func (s *VectorStore) GetCollection(ctx context.Context, name string) (*models.Collection, error) {
	row, err := s.getCollection(ctx, name)
	if err != nil {
		return nil, err
	}
	c := s.toCollection(ctx, row)
	return &c, nil
}

func (s *VectorStore) CreateCollection(ctx context.Context, name string, vectorSize int) error {
	tableName, err := pointTableName(name, vectorSize)
	if err != nil {
		return models.NewPreconditionError("%s", err.Error())
	}

	row := &CollectionSchema{
		Name:       name,
		TableName:  tableName,
		VectorSize: vectorSize,
		Distance:   models.DistanceCosine,
		IsIndexed:  s.hnsw,
	}

	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := createPointTable(ctx, tx, tableName, vectorSize); err != nil {
			return err
		}
		if s.hnsw {
			if err := createHNSWIndex(ctx, tx, tableName, "embedding"); err != nil {
				return fmt.Errorf("error creating hnsw index: %w", err)
			}
		}
		_, err := tx.NewInsert().
			Model(row).
			On("CONFLICT (name) DO NOTHING").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to register collection %s: %w", name, err)
		}
		return nil
	})
}

// Upsert writes points in a single transaction. Existing IDs are overwritten.
func (s *VectorStore) Upsert(ctx context.Context, collection string, points []models.IndexedPoint) error {
	if len(points) == 0 {
		return nil
	}
	c, err := s.getCollection(ctx, collection)
	if err != nil {
		return err
	}

	rows := make([]PointRow, len(points))
	for i, p := range points {
		if len(p.Vector) != c.VectorSize {
			return models.NewDimensionMismatchError(collection, c.VectorSize, len(p.Vector))
		}
		id, err := uuid.Parse(p.ID)
		if err != nil {
			return models.NewPreconditionError("point id %q is not a uuid", p.ID)
		}
		rows[i] = PointRow{
			PointBase: PointBase{
				ID:         id,
				Content:    p.Payload.Content,
				Filename:   p.Payload.Metadata.Filename,
				DocumentID: p.Payload.Metadata.DocumentID,
				ChatID:     p.Payload.Metadata.ChatID,
				ChunkIndex: p.Payload.Metadata.ChunkIndex,
			},
			Embedding: pgvector.NewVector(p.Vector),
		}
	}

	return s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewInsert().
			Model(&rows).
			ModelTableExpr("?", bun.Ident(c.TableName)).
			On("CONFLICT (id) DO UPDATE").
			Set("content = EXCLUDED.content").
			Set("filename = EXCLUDED.filename").
			Set("document_id = EXCLUDED.document_id").
			Set("chat_id = EXCLUDED.chat_id").
			Set("chunk_index = EXCLUDED.chunk_index").
			Set("embedding = EXCLUDED.embedding").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to upsert points into %s: %w", c.TableName, err)
		}
		return nil
	})
}

type searchRow struct {
	ID         string  `bun:"id"`
	Content    string  `bun:"content"`
	Filename   string  `bun:"filename"`
	DocumentID string  `bun:"document_id"`
	ChatID     string  `bun:"chat_id"`
	ChunkIndex int     `bun:"chunk_index"`
	Score      float64 `bun:"score"`
}

// Search orders by the cosine distance operator so that the HNSW index is used.
func (s *VectorStore) Search(
	ctx context.Context,
	collection string,
	vector models.Embedding,
	limit int,
) ([]models.ScoredHit, error) {
	c, err := s.getCollection(ctx, collection)
	if err != nil {
		return nil, err
	}

	v := pgvector.NewVector(vector)
	var rows []searchRow
	err = s.db.NewSelect().
		TableExpr("? AS p", bun.Ident(c.TableName)).
		ColumnExpr("p.id, p.content, p.filename, p.document_id, p.chat_id, p.chunk_index").
		ColumnExpr("1 - (p.embedding <=> ?) AS score", v).
		OrderExpr("p.embedding <=> ?", v).
		Limit(limit).
		Scan(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", c.TableName, err)
	}

	hits := make([]models.ScoredHit, len(rows))
	for i, r := range rows {
		hits[i] = models.ScoredHit{
			ID:      r.ID,
			Content: r.Content,
			Score:   r.Score,
			Metadata: models.PointMetadata{
				Filename:   r.Filename,
				DocumentID: r.DocumentID,
				ChatID:     r.ChatID,
				ChunkIndex: r.ChunkIndex,
			},
		}
	}
	return hits, nil
}

func (s *VectorStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *VectorStore) Close() error {
	return s.db.Close()
}

func (s *VectorStore) getCollection(ctx context.Context, name string) (*CollectionSchema, error) {
	row := new(CollectionSchema)
	err := s.db.NewSelect().Model(row).Where("name = ?", name).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.NewNotFoundError("collection " + name)
		}
		return nil, fmt.Errorf("failed to get collection %s: %w", name, err)
	}
	return row, nil
}

// toCollection counts the points in row's table. The count is -1 when it fails.
func (s *VectorStore) toCollection(ctx context.Context, row *CollectionSchema) models.Collection {
	count, err := s.db.NewSelect().TableExpr("?", bun.Ident(row.TableName)).Count(ctx)
	if err != nil {
		log.Warnf("failed to count points in %s: %v", row.TableName, err)
		count = -1
	}
	return models.Collection{
		Name:        row.Name,
		VectorSize:  row.VectorSize,
		Distance:    row.Distance,
		PointsCount: int64(count),
	}
}
