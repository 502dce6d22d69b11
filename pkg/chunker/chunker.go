package chunker

import (
	"fmt"
	"time"

	"github.com/chatrag/chatrag/config"
	"github.com/chatrag/chatrag/internal"
	"github.com/chatrag/chatrag/pkg/models"
)

var log = internal.GetLogger()

const (
	StrategyRecursive = "recursive"
	StrategySession   = "session"
)

// Chunker splits a raw document into ordered chunks.
type Chunker interface {
	Split(text string) []models.Chunk
}

var (
	_ Chunker = &RecursiveSplitter{}
	_ Chunker = &SessionSplitter{}
)

// New returns the Chunker selected by cfg.Strategy.
func New(cfg config.ChunkerConfig) (Chunker, error) {
	switch cfg.Strategy {
	case StrategyRecursive:
		return NewRecursiveSplitter(cfg.ChunkSize, cfg.ChunkOverlap, nil)
	case StrategySession, "":
		return NewSessionSplitter(time.Duration(cfg.SessionGapMinutes) * time.Minute), nil
	default:
		return nil, fmt.Errorf("invalid chunker strategy: %s", cfg.Strategy)
	}
}

func toChunks(texts []string) []models.Chunk {
	chunks := make([]models.Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = models.Chunk{Text: t, SourceIndex: i}
	}
	return chunks
}
