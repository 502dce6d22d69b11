package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/chatrag/chatrag/config"
	"github.com/chatrag/chatrag/pkg/models"
	"github.com/chatrag/chatrag/pkg/rag"
)

// pipelineRunner runs one CLI operation against the configured pipeline.
type pipelineRunner struct {
	cfg      *config.Config
	pipeline *rag.Pipeline
}

func withPipeline(cmd *cobra.Command, fn func(p *pipelineRunner) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("error configuring chatrag: %w", err)
	}
	handleCLIOptions(cfg)

	appState, err := NewAppState(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := appState.VectorService.Close(); err != nil {
			log.Errorf("Error closing vector store connection: %v", err)
		}
	}()

	pipeline, err := rag.NewPipeline(appState)
	if err != nil {
		return err
	}

	return fn(&pipelineRunner{cfg: cfg, pipeline: pipeline})
}

func (p *pipelineRunner) collection() string {
	if collectionName != "" {
		return collectionName
	}
	return p.cfg.Retrieval.DefaultCollection
}

func (p *pipelineRunner) index(ctx context.Context, w io.Writer, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	meta := models.PointMetadata{
		Filename:   filename,
		DocumentID: documentID,
		ChatID:     chatID,
	}
	if meta.Filename == "" {
		meta.Filename = filepath.Base(path)
	}

	result, err := p.pipeline.Index(ctx, p.collection(), string(data), meta)
	if err != nil {
		return err
	}

	printIndexResult(w, result)
	return nil
}

func (p *pipelineRunner) ask(ctx context.Context, w io.Writer, question string) error {
	answer, err := p.pipeline.Ask(ctx, p.collection(), question, limit)
	if err != nil {
		return err
	}

	printAnswer(w, answer)
	return nil
}

func (p *pipelineRunner) search(ctx context.Context, w io.Writer, text string) error {
	hits, err := p.pipeline.Search(ctx, p.collection(), text, limit)
	if err != nil {
		return err
	}

	printHits(w, hits)
	return nil
}

func (p *pipelineRunner) collections(ctx context.Context, w io.Writer) error {
	collections, err := p.pipeline.ListCollections(ctx)
	if err != nil {
		return err
	}

	printCollections(w, collections)
	return nil
}
