package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/chroma/quick"
	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/chatrag/chatrag/config"
	"github.com/chatrag/chatrag/internal"
	"github.com/chatrag/chatrag/pkg/models"
	"github.com/chatrag/chatrag/pkg/rag"
)

const previewLength = 120

var (
	heading = color.New(color.FgCyan, color.Bold)
	faint   = color.New(color.Faint)
	score   = color.New(color.FgGreen)
)

func isTerminal(w io.Writer) bool {
	return w == os.Stdout && !color.NoColor
}

func printIndexResult(w io.Writer, result *rag.IndexResult) {
	heading.Fprint(w, "Indexed ")
	fmt.Fprintf(
		w,
		"%s chunks into %q\n",
		humanize.Comma(int64(result.ChunksCount)),
		result.Collection,
	)
}

func printAnswer(w io.Writer, answer *rag.Answer) {
	heading.Fprintln(w, "Answer")
	fmt.Fprintln(w, answer.Text)

	if len(answer.Sources) == 0 {
		return
	}
	fmt.Fprintln(w)
	heading.Fprintln(w, "Sources")
	printHits(w, answer.Sources)
}

func printHits(w io.Writer, hits []models.ScoredHit) {
	if len(hits) == 0 {
		faint.Fprintln(w, "no results")
		return
	}
	for i, hit := range hits {
		score.Fprintf(w, "%2d. %.4f ", i+1, hit.Score)
		if hit.Metadata.Filename != "" {
			faint.Fprintf(w, "[%s #%d] ", hit.Metadata.Filename, hit.Metadata.ChunkIndex)
		}
		fmt.Fprintln(w, preview(hit.Content))
	}
}

func printCollections(w io.Writer, collections []models.Collection) {
	if len(collections) == 0 {
		faint.Fprintln(w, "no collections")
		return
	}
	for _, c := range collections {
		heading.Fprint(w, c.Name)
		fmt.Fprintf(w, "  vectors=%s size=%d", humanize.Comma(c.PointsCount), c.VectorSize)
		if c.Distance != "" {
			fmt.Fprintf(w, " distance=%s", c.Distance)
		}
		fmt.Fprintln(w)
	}
}

func preview(text string) string {
	return internal.Truncate(strings.Join(strings.Fields(text), " "), previewLength)
}

// writeConfig renders cfg as YAML. Secrets are omitted through their json tags.
func writeConfig(w io.Writer, cfg *config.Config, highlight bool) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	var tree map[string]any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(tree); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}

	if !highlight {
		_, err = w.Write(buf.Bytes())
		return err
	}
	return highlightYAML(w, buf.String())
}

func highlightYAML(w io.Writer, source string) error {
	return quick.Highlight(w, source, "yaml", "terminal256", "monokai")
}
