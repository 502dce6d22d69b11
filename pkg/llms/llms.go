package llms

import (
	"fmt"
	"time"

	"github.com/chatrag/chatrag/config"
	"github.com/chatrag/chatrag/internal"
	"github.com/chatrag/chatrag/pkg/models"
)

var log = internal.GetLogger()

const (
	EmbeddingsServiceOpenAI = "openai"
	EmbeddingsServiceLocal  = "local"
	LLMServiceOpenAI        = "openai"
)

// NewEmbeddingProvider returns the provider selected by cfg.Embeddings.Service.
func NewEmbeddingProvider(cfg *config.Config) (models.EmbeddingProvider, error) {
	timeout := time.Duration(cfg.Embeddings.RequestTimeoutS) * time.Second

	switch cfg.Embeddings.Service {
	case EmbeddingsServiceOpenAI, "":
		return NewOpenAIEmbeddingProvider(
			cfg.Embeddings.APIKey,
			cfg.Embeddings.BaseURL,
			cfg.Embeddings.Model,
			cfg.Embeddings.Dimensions,
			timeout,
		)
	case EmbeddingsServiceLocal:
		return NewLocalEmbeddingProvider(cfg.Embeddings.ServerURL, timeout), nil
	default:
		return nil, fmt.Errorf("invalid embeddings service: %s", cfg.Embeddings.Service)
	}
}

// NewLLM returns the chat model selected by cfg.LLM.Service.
func NewLLM(cfg *config.Config) (models.LLM, error) {
	switch cfg.LLM.Service {
	case LLMServiceOpenAI, "":
		return NewOpenAILLM(
			cfg.LLM.APIKey,
			cfg.LLM.BaseURL,
			cfg.LLM.Model,
			cfg.LLM.Temperature,
			time.Duration(cfg.LLM.RequestTimeoutS)*time.Second,
		)
	default:
		return nil, fmt.Errorf("invalid LLM service: %s", cfg.LLM.Service)
	}
}
