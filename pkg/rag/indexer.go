package rag

import (
	"context"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/chatrag/chatrag/internal"
	"github.com/chatrag/chatrag/pkg/chunker"
	"github.com/chatrag/chatrag/pkg/llms"
	"github.com/chatrag/chatrag/pkg/models"
	"github.com/chatrag/chatrag/pkg/vectorstore"
)

var log = internal.GetLogger()

// IndexResult reports what an Index call stored.
type IndexResult struct {
	Collection  string   `json:"collection_name"`
	ChunksCount int      `json:"chunks_count"`
	IDs         []string `json:"-"`
}

// Indexer chunks a transcript, embeds the chunks and writes them to a collection.
type Indexer struct {
	Chunker   chunker.Chunker
	Embedder  *llms.EmbeddingClient
	Store     *vectorstore.Adapter
	BatchSize int
}

func NewIndexer(
	c chunker.Chunker,
	embedder *llms.EmbeddingClient,
	store *vectorstore.Adapter,
) *Indexer {
	return &Indexer{Chunker: c, Embedder: embedder, Store: store, BatchSize: embedder.BatchSize}
}

// Index runs text through the chunk, embed and upsert stages. Empty chunks are
// dropped before embedding. A document that yields no chunks is rejected.
func (ix *Indexer) Index(
	ctx context.Context,
	collection string,
	text string,
	meta models.PointMetadata,
) (*IndexResult, error) {
	if collection == "" {
		return nil, models.NewPreconditionError("collection name is required")
	}

	start := time.Now()

	chunks := nonEmpty(ix.Chunker.Split(text))
	if len(chunks) == 0 {
		return nil, models.NewPreconditionError("document %q produced no chunks", meta.Filename)
	}
	log.Infof(
		"split %s into %s chunks",
		humanize.Bytes(uint64(len(text))), humanize.Comma(int64(len(chunks))),
	)

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := ix.Embedder.EmbedBatch(ctx, texts, ix.BatchSize)
	if err != nil {
		return nil, err
	}

	ids, err := ix.Store.Upsert(ctx, collection, chunks, vectors, meta)
	if err != nil {
		return nil, err
	}

	log.Infof(
		"indexed %s chunks into %s in %s",
		humanize.Comma(int64(len(ids))), collection, time.Since(start).Round(time.Millisecond),
	)

	return &IndexResult{Collection: collection, ChunksCount: len(ids), IDs: ids}, nil
}

func nonEmpty(chunks []models.Chunk) []models.Chunk {
	out := chunks[:0:0]
	for _, c := range chunks {
		if strings.TrimSpace(c.Text) == "" {
			log.Debugf("dropping empty chunk %d", c.SourceIndex)
			continue
		}
		out = append(out, c)
	}
	return out
}
