package rerank

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/chatrag/chatrag/config"
	"github.com/chatrag/chatrag/internal"
	"github.com/chatrag/chatrag/pkg/models"
)

var log = internal.GetLogger()

const (
	// FusionBestPerProbe keeps the top candidate of every probe.
	FusionBestPerProbe = "best_per_probe"
	// FusionAllCandidates keeps every candidate, probe by probe.
	FusionAllCandidates = "all_candidates"

	DefaultDelimiter = "\n-----------------------------------------------\n"
)

// FusedContext is the reranked context handed to the synthesizer.
type FusedContext struct {
	Snippets []string `json:"snippets"`
	Text     string   `json:"text"`
}

// Ranked is a candidate and its relevance score for one probe.
type Ranked struct {
	Text  string
	Score float64
}

type Reranker struct {
	Scorer    models.RelevanceScorer
	Fusion    string
	Delimiter string
}

func NewReranker(scorer models.RelevanceScorer, cfg config.RerankConfig) *Reranker {
	fusion := cfg.Fusion
	if fusion == "" {
		fusion = FusionBestPerProbe
	}
	delimiter := cfg.Delimiter
	if delimiter == "" {
		delimiter = DefaultDelimiter
	}
	return &Reranker{Scorer: scorer, Fusion: fusion, Delimiter: delimiter}
}

// Rank scores candidates against query and sorts them by descending score.
// Equal scores keep their input order.
func (r *Reranker) Rank(ctx context.Context, query string, candidates []string) ([]Ranked, error) {
	if len(candidates) == 0 {
		return []Ranked{}, nil
	}

	scores, err := r.Scorer.Predict(ctx, query, candidates)
	if err != nil {
		return nil, fmt.Errorf("failed to score candidates: %w", err)
	}
	if len(scores) != len(candidates) {
		return nil, models.NewPreconditionError(
			"scorer returned %d scores for %d candidates", len(scores), len(candidates),
		)
	}

	ranked := make([]Ranked, len(candidates))
	for i, c := range candidates {
		ranked[i] = Ranked{Text: c, Score: scores[i]}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked, nil
}

// RerankedContext is one probe's candidates ordered by relevance.
type RerankedContext struct {
	Probe    string   `json:"probe"`
	Contents []string `json:"contents"`
}

// RerankAll ranks each probe's candidates against that probe. Probes without
// candidates are kept with no contents and never reach the scorer.
func (r *Reranker) RerankAll(ctx context.Context, probes []string, candidates [][]string) ([]RerankedContext, error) {
	if len(probes) != len(candidates) {
		return nil, models.NewPreconditionError(
			"got %d probes but %d candidate lists", len(probes), len(candidates),
		)
	}

	out := make([]RerankedContext, len(probes))
	for i, probe := range probes {
		ranked, err := r.Rank(ctx, probe, candidates[i])
		if err != nil {
			return nil, err
		}
		contents := make([]string, len(ranked))
		for j, rc := range ranked {
			contents[j] = rc.Text
		}
		out[i] = RerankedContext{Probe: probe, Contents: contents}
	}
	return out, nil
}

// Fuse reranks each probe's candidates and merges them according to Fusion.
func (r *Reranker) Fuse(ctx context.Context, probes []string, candidates [][]string) (FusedContext, error) {
	reranked, err := r.RerankAll(ctx, probes, candidates)
	if err != nil {
		return FusedContext{}, err
	}
	return r.FuseContexts(reranked)
}

// FuseContexts merges reranked probes in probe order.
func (r *Reranker) FuseContexts(reranked []RerankedContext) (FusedContext, error) {
	var snippets []string
	for _, rc := range reranked {
		if len(rc.Contents) == 0 {
			continue
		}
		switch r.Fusion {
		case FusionAllCandidates:
			snippets = append(snippets, rc.Contents...)
		case FusionBestPerProbe:
			snippets = append(snippets, rc.Contents[0])
		default:
			return FusedContext{}, models.NewPreconditionError("unknown fusion policy %q", r.Fusion)
		}
	}

	log.Debugf("fused %d snippets from %d probes (%s)", len(snippets), len(reranked), r.Fusion)

	return FusedContext{
		Snippets: snippets,
		Text:     strings.Join(snippets, r.Delimiter),
	}, nil
}
