package models

import (
	"github.com/chatrag/chatrag/config"
)

// AppState holds the long lived clients of the application.
// Use cmd.NewAppState to create a new instance.
type AppState struct {
	Embedder      EmbeddingProvider
	VectorService VectorService
	Scorer        RelevanceScorer
	LLM           LLM
	// TokenCounter may be nil when no context budget is configured.
	TokenCounter  TokenCounter
	Config        *config.Config
}
