package retrieval

import (
	"math"
	"sort"

	"github.com/alex-lapipa/lawton-engine/internal/model"
)

const (
	// MinLimit and MaxLimit bound the number of results of one retrieval.
	MinLimit = 1
	MaxLimit = 50
)

// ClampLimit forces limit into [MinLimit, MaxLimit].
func ClampLimit(limit int) int {
	if limit < MinLimit {
		return MinLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

type scored struct {
	chunk *model.Chunk
	score float64
}

// Rank scores every candidate against query by cosine similarity and
// returns the best ClampLimit(limit) as results without vectors.
// Candidates with no embedding, a different dimension, or a zero-norm
// vector are skipped. Equal scores keep their input order.
func Rank(query []float32, candidates []*model.Chunk, limit int) []model.RetrievalResult {
	limit = ClampLimit(limit)

	ranked := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		if c == nil || len(c.Embedding) == 0 || len(c.Embedding) != len(query) {
			continue
		}
		score := Cosine(query, c.Embedding)
		if math.IsNaN(score) {
			continue
		}
		ranked = append(ranked, scored{chunk: c, score: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	results := make([]model.RetrievalResult, 0, len(ranked))
	for _, s := range ranked {
		results = append(results, model.NewRetrievalResult(s.chunk, s.score))
	}
	return results
}
