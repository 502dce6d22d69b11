package vectorstore

import (
	"sort"

	"github.com/viterin/vek/vek32"

	"github.com/chatrag/chatrag/pkg/models"
)

// RankByCosine scores every point against vector and returns the best limit hits.
// Used by the brute force backends.
func RankByCosine(points []models.IndexedPoint, vector models.Embedding, limit int) []models.ScoredHit {
	hits := make([]models.ScoredHit, 0, len(points))
	for _, p := range points {
		if len(p.Vector) != len(vector) {
			continue
		}
		hits = append(hits, models.ScoredHit{
			ID:       p.ID,
			Content:  p.Payload.Content,
			Score:    float64(cosine(p.Vector, vector)),
			Metadata: p.Payload.Metadata,
		})
	}

	SortHits(hits)
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits
}

// SortHits orders hits by descending score. Ties keep their order.
func SortHits(hits []models.ScoredHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
}

func cosine(a, b models.Embedding) float32 {
	if vek32.Norm(a) == 0 || vek32.Norm(b) == 0 {
		return 0
	}
	return vek32.CosineSimilarity(a, b)
}
