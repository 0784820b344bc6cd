package search

import (
	"fmt"
	"math"
	"sort"

	dompage "github.com/kailas-cloud/pagevec/internal/domain/page"
	"github.com/kailas-cloud/pagevec/internal/vecmath"
)

// Hit is a ranked record with its cosine similarity to the query.
type Hit struct {
	Record dompage.Record
	Score  float64
}

// rank scores candidates against query and returns the best limit of them.
// Order: score desc, then CreatedAt desc, then ID asc. Hits below minScore are dropped.
func rank(query []float32, candidates []dompage.Record, limit int, minScore float64) ([]Hit, error) {
	hits := make([]Hit, 0, len(candidates))
	for i := range candidates {
		score, err := vecmath.Cosine(query, candidates[i].Embedding())
		if err != nil {
			return nil, fmt.Errorf("score record %s: %w", candidates[i].ID(), err)
		}
		if score < minScore {
			continue
		}
		hits = append(hits, Hit{Record: candidates[i], Score: score})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		a, b := &hits[i], &hits[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.Record.CreatedAt().Equal(b.Record.CreatedAt()) {
			return a.Record.CreatedAt().After(b.Record.CreatedAt())
		}
		return a.Record.ID() < b.Record.ID()
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// knnEpsilon absorbs float32 rounding between the index's distance order and
// the float64 cosine used here.
const knnEpsilon = 1e-6

// cutoffSettled reports whether records outside candidates can no longer enter
// the top limit. It holds when the weakest candidate scores strictly below the
// limit-th score, or below minScore when fewer hits qualify.
func cutoffSettled(query []float32, candidates []dompage.Record, limit int, minScore float64) (bool, error) {
	scores := make([]float64, 0, len(candidates))
	floor := math.Inf(1)
	for i := range candidates {
		score, err := vecmath.Cosine(query, candidates[i].Embedding())
		if err != nil {
			return false, fmt.Errorf("score record %s: %w", candidates[i].ID(), err)
		}
		scores = append(scores, score)
		floor = math.Min(floor, score)
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(scores)))

	cutoff := minScore
	if len(scores) >= limit && scores[limit-1] > cutoff {
		cutoff = scores[limit-1]
	}
	return floor < cutoff-knnEpsilon, nil
}
