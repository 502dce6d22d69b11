package search

import (
	"context"
	"strings"

	"github.com/chatrag/chatrag/internal"
	"github.com/chatrag/chatrag/pkg/models"
	"github.com/chatrag/chatrag/pkg/vectorstore"
)

var log = internal.GetLogger()

type QueryEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string, batchSize int) ([]models.Embedding, error)
}

type Searcher interface {
	Search(
		ctx context.Context,
		collection string,
		vector models.Embedding,
		limit int,
	) ([]models.ScoredHit, error)
}

// ProbeHits are the deduplicated hits for one probe query.
type ProbeHits struct {
	Probe string             `json:"probe"`
	Hits  []models.ScoredHit `json:"hits"`
}

// MultiQueryRetriever runs several probe queries against one collection and keeps
// each probe's hits apart so that they can be reranked per probe.
type MultiQueryRetriever struct {
	Embedder QueryEmbedder
	Searcher Searcher
}

func NewMultiQueryRetriever(embedder QueryEmbedder, searcher Searcher) *MultiQueryRetriever {
	return &MultiQueryRetriever{Embedder: embedder, Searcher: searcher}
}

// Retrieve embeds and searches each probe in turn. The result has one entry per
// probe, in probe order. Any error stops the run.
func (m *MultiQueryRetriever) Retrieve(
	ctx context.Context,
	collection string,
	probes []string,
	limit int,
) ([]ProbeHits, error) {
	for i, p := range probes {
		if strings.TrimSpace(p) == "" {
			return nil, models.NewPreconditionError("probe %d is empty", i)
		}
	}

	results := make([]ProbeHits, 0, len(probes))
	for i, probe := range probes {
		vectors, err := m.Embedder.EmbedBatch(ctx, []string{probe}, 1)
		if err != nil {
			return nil, err
		}
		if len(vectors) != 1 {
			return nil, models.NewPreconditionError(
				"expected one embedding for probe %d, got %d", i, len(vectors),
			)
		}

		hits, err := m.Searcher.Search(ctx, collection, vectors[0], limit)
		if err != nil {
			return nil, err
		}

		deduped := DedupByContent(hits)
		log.Debugf(
			"probe %d/%d %q: %d hits, %d unique",
			i+1, len(probes), internal.Truncate(probe, 60), len(hits), len(deduped),
		)
		results = append(results, ProbeHits{Probe: probe, Hits: deduped})
	}

	return results, nil
}

// DedupByContent keeps one hit per distinct content, the one with the highest
// score, and returns them by descending score.
func DedupByContent(hits []models.ScoredHit) []models.ScoredHit {
	index := make(map[string]int, len(hits))
	out := make([]models.ScoredHit, 0, len(hits))
	for _, h := range hits {
		if i, ok := index[h.Content]; ok {
			if h.Score > out[i].Score {
				out[i] = h
			}
			continue
		}
		index[h.Content] = len(out)
		out = append(out, h)
	}
	vectorstore.SortHits(out)
	return out
}

// Sources flattens every probe's hits into one deduplicated list for citing.
func Sources(perProbe []ProbeHits) []models.ScoredHit {
	var all []models.ScoredHit
	for _, p := range perProbe {
		all = append(all, p.Hits...)
	}
	return DedupByContent(all)
}

// Candidates returns the content of each probe's hits, ready for reranking.
func Candidates(perProbe []ProbeHits) [][]string {
	out := make([][]string, len(perProbe))
	for i, p := range perProbe {
		out[i] = make([]string, len(p.Hits))
		for j, h := range p.Hits {
			out[i][j] = h.Content
		}
	}
	return out
}

// Probes returns the probe text of each entry.
func Probes(perProbe []ProbeHits) []string {
	out := make([]string, len(perProbe))
	for i, p := range perProbe {
		out[i] = p.Probe
	}
	return out
}
