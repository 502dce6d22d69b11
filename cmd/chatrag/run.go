package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/chatrag/chatrag/config"
	"github.com/chatrag/chatrag/pkg/llms"
	"github.com/chatrag/chatrag/pkg/models"
	"github.com/chatrag/chatrag/pkg/rag"
	"github.com/chatrag/chatrag/pkg/rerank"
	"github.com/chatrag/chatrag/pkg/server"
	"github.com/chatrag/chatrag/pkg/vectorstore"
	"github.com/chatrag/chatrag/pkg/vectorstore/bolt"
	"github.com/chatrag/chatrag/pkg/vectorstore/postgres"
	"github.com/chatrag/chatrag/pkg/vectorstore/qdrant"
)

const (
	VectorStoreQdrant   = "qdrant"
	VectorStorePostgres = "postgres"
	VectorStoreBolt     = "bolt"
	VectorStoreMemory   = "memory"
)

// run is the entrypoint for the chatrag server
func run() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("Error configuring chatrag: %s", err)
	}

	handleCLIOptions(cfg)

	log.Infof("Starting chatrag server version %s", config.VersionString)

	appState, err := NewAppState(context.Background(), cfg)
	if err != nil {
		log.Fatal(err)
	}
	setupSignalHandler(appState)

	pipeline, err := rag.NewPipeline(appState)
	if err != nil {
		log.Fatal(err)
	}

	srv := server.Create(cfg, pipeline)

	log.Infof("Listening on: %s", srv.Addr)
	err = srv.ListenAndServe()
	if err != nil {
		log.Fatal(err)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}
	config.SetLogLevel(cfg)
	return cfg, nil
}

// NewAppState builds the provider clients and the vector backend from the config
// file / ENV. The caller owns appState.VectorService and must Close it.
func NewAppState(ctx context.Context, cfg *config.Config) (*models.AppState, error) {
	embedder, err := llms.NewEmbeddingProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding provider: %w", err)
	}

	llm, err := llms.NewLLM(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	scorer, err := rerank.NewScorer(cfg.Rerank)
	if err != nil {
		return nil, fmt.Errorf("failed to create reranker: %w", err)
	}

	appState := &models.AppState{
		Embedder: embedder,
		LLM:      llm,
		Scorer:   scorer,
		Config:   cfg,
	}

	if cfg.LLM.MaxContextTokens > 0 {
		counter, err := llms.NewTiktokenCounter()
		if err != nil {
			return nil, fmt.Errorf("failed to load tokenizer: %w", err)
		}
		appState.TokenCounter = counter
	}

	service, err := newVectorService(ctx, cfg)
	if err != nil {
		return nil, err
	}
	appState.VectorService = service

	log.Info("Using vector store: ", cfg.VectorStore.Type)

	return appState, nil
}

// newVectorService opens the backend selected by vector_store.type.
func newVectorService(ctx context.Context, cfg *config.Config) (models.VectorService, error) {
	switch cfg.VectorStore.Type {
	case VectorStoreQdrant:
		return qdrant.NewClient(cfg.VectorStore.Qdrant), nil
	case VectorStorePostgres:
		if cfg.VectorStore.Postgres.DSN == "" {
			return nil, fmt.Errorf("vector_store.postgres.dsn must be set")
		}
		db := postgres.NewPostgresConn(cfg.VectorStore.Postgres.DSN)
		if cfg.Log.Level == "debug" {
			postgres.EnableQueryLogging(db)
		}
		store, err := postgres.NewVectorStore(ctx, db)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return store, nil
	case VectorStoreBolt:
		store, err := bolt.NewVectorStore(cfg.VectorStore.Bolt.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	case VectorStoreMemory:
		return vectorstore.NewMemoryService(), nil
	default:
		return nil, fmt.Errorf("vector_store.type (%s) is not supported", cfg.VectorStore.Type)
	}
}

// handleCLIOptions handles CLI options that don't require the server to run
func handleCLIOptions(cfg *config.Config) {
	if showVersion {
		fmt.Println(config.VersionString)
		os.Exit(0)
	}
	if dumpConfig {
		if err := writeConfig(os.Stdout, cfg, isTerminal(os.Stdout)); err != nil {
			log.Fatalf("Error dumping config: %v", err)
		}
		os.Exit(0)
	}
}

// setupSignalHandler closes the vector store connection on termination
func setupSignalHandler(appState *models.AppState) {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signalCh
		if err := appState.VectorService.Close(); err != nil {
			log.Errorf("Error closing vector store connection: %v", err)
		}
		os.Exit(0)
	}()
}
