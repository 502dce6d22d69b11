package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

const (
	registryTable    = "vector_collection"
	pointTablePrefix = "vecstore_"
	hnswIndexSuffix  = "_hnsw_idx"
	maxIdentLength   = 63
)

// CollectionSchema is a row of the collection registry. Each collection's points
// live in their own table, named by TableName.
type CollectionSchema struct {
	bun.BaseModel `bun:"table:vector_collection,alias:vc"`

	UUID       uuid.UUID `bun:",pk,type:uuid,default:gen_random_uuid()"`
	CreatedAt  time.Time `bun:"type:timestamptz,nullzero,notnull,default:current_timestamp"`
	UpdatedAt  time.Time `bun:"type:timestamptz,nullzero,default:current_timestamp"`
	Name       string    `bun:",notnull,unique"`
	TableName  string    `bun:",notnull"`
	VectorSize int       `bun:",notnull"`
	Distance   string    `bun:",notnull"`
	IsIndexed  bool      `bun:",notnull"`
}

var _ bun.BeforeAppendModelHook = (*CollectionSchema)(nil)

func (s *CollectionSchema) BeforeAppendModel(_ context.Context, query bun.Query) error {
	if _, ok := query.(*bun.UpdateQuery); ok {
		s.UpdatedAt = time.Now()
	}
	return nil
}

type PointBase struct {
	ID         uuid.UUID `bun:",pk,type:uuid"`
	CreatedAt  time.Time `bun:"type:timestamptz,nullzero,notnull,default:current_timestamp"`
	Content    string    `bun:",notnull"`
	Filename   string    `bun:","`
	DocumentID string    `bun:","`
	ChatID     string    `bun:","`
	ChunkIndex int       `bun:",notnull"`
}

// PointSchemaTemplate is used to create point tables. The embedding column is
// added by createPointTable so that it carries the collection's width.
type PointSchemaTemplate struct {
	bun.BaseModel `bun:"table:vecstore_point,alias:p"`
	PointBase
}

type PointRow struct {
	bun.BaseModel `bun:"table:vecstore_point,alias:p"`
	PointBase
	Embedding pgvector.Vector `bun:"type:vector"`
}

var nonIdentChars = regexp.MustCompile(`[^a-z0-9_]+`)

// pointTableName derives the point table for a collection. The slug keeps the
// table readable; the hash of the exact name keeps names that slug alike, such as
// "My-Chat" and "my_chat", in separate tables. Postgres identifiers are capped at
// 63 bytes, so long slugs are cut to leave room for the table's index name too.
func pointTableName(name string, dims int) (string, error) {
	if name == "" {
		return "", fmt.Errorf("collection name is empty")
	}
	if dims <= 0 {
		return "", fmt.Errorf("vector size must be positive, got %d", dims)
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(name))
	suffix := fmt.Sprintf("_%08x_%d", h.Sum32(), dims)

	slug := strings.Trim(nonIdentChars.ReplaceAllString(strings.ToLower(name), "_"), "_")
	room := maxIdentLength - len(pointTablePrefix) - len(suffix) - len(hnswIndexSuffix)
	if len(slug) > room {
		slug = strings.TrimRight(slug[:room], "_")
	}
	if slug == "" {
		slug = "c"
	}

	return pointTablePrefix + slug + suffix, nil
}

func createRegistryTable(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().
		Model((*CollectionSchema)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("error creating %s table: %w", registryTable, err)
	}
	return nil
}

func createPointTable(ctx context.Context, db bun.IDB, tableName string, dims int) error {
	_, err := db.NewCreateTable().
		Model((*PointSchemaTemplate)(nil)).
		ModelTableExpr("?", bun.Ident(tableName)).
		ColumnExpr("embedding vector(?)", dims).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("error creating point table %s: %w", tableName, err)
	}

	_, err = db.NewCreateIndex().
		Model((*PointSchemaTemplate)(nil)).
		ModelTableExpr("?", bun.Ident(tableName)).
		Index(tableName + "_chat_id_idx").
		Column("chat_id").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("error creating chat_id index on %s: %w", tableName, err)
	}

	return nil
}

// createHNSWIndex creates a cosine HNSW index on table.column with M=16 and
// ef_construction=64.
func createHNSWIndex(ctx context.Context, db bun.IDB, table, column string) error {
	const (
		m              = 16
		efConstruction = 64
	)

	idx := table + hnswIndexSuffix

	log.Infof("creating hnsw index on %s.%s if it does not exist", table, column)

	_, err := db.ExecContext(
		ctx,
		"CREATE INDEX IF NOT EXISTS ? ON ? USING hnsw (? vector_cosine_ops) WITH (M = ?, ef_construction = ?);",
		bun.Ident(idx),
		bun.Ident(table),
		bun.Ident(column),
		m,
		efConstruction,
	)
	return err
}

func enablePgVectorExtension(ctx context.Context, db bun.IDB) error {
	if _, err := db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("error creating pgvector extension: %w", err)
	}
	// no-op when the extension is current
	if _, err := db.ExecContext(ctx, "ALTER EXTENSION vector UPDATE"); err != nil {
		return fmt.Errorf("error updating pgvector extension: %w", err)
	}
	return nil
}

// isHNSWAvailable reports whether the installed pgvector is 0.5.0 or newer.
func isHNSWAvailable(ctx context.Context, db bun.IDB) (bool, error) {
	var version string
	err := db.NewSelect().
		Column("extversion").
		TableExpr("pg_extension").
		Where("extname = 'vector'").
		Scan(ctx, &version)
	if err != nil {
		if err == sql.ErrNoRows {
			log.Debug("vector extension not installed")
			return false, nil
		}
		return false, fmt.Errorf("error checking vector extension version: %w", err)
	}

	return versionSupportsHNSW(version)
}

func versionSupportsHNSW(version string) (bool, error) {
	const minVersion = "0.5.0"
	required := semver.MustParse(minVersion)

	v, err := semver.NewVersion(version)
	if err != nil {
		return false, fmt.Errorf("error parsing vector extension version: %w", err)
	}

	if required.GreaterThan(v) {
		log.Infof("vector extension version is < %s. hnsw indexing not available", minVersion)
		return false, nil
	}
	return true, nil
}

// NewPostgresConn opens a pooled bun.DB for dsn. The pool is sized from GOMAXPROCS.
func NewPostgresConn(dsn string) *bun.DB {
	maxOpenConns := 4 * runtime.GOMAXPROCS(0)

	// index builds can run long
	sqldb := sql.OpenDB(
		pgdriver.NewConnector(
			pgdriver.WithDSN(dsn),
			pgdriver.WithReadTimeout(10*time.Minute),
		),
	)
	sqldb.SetMaxOpenConns(maxOpenConns)
	sqldb.SetMaxIdleConns(maxOpenConns)

	return bun.NewDB(sqldb, pgdialect.New())
}
