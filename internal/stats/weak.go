package stats

import (
	"sort"

	"github.com/elisaF/typing-classification/internal/model"
)

// SelectSlowChars selects the characters with the longest mean interval before an error.
// Characters without a recorded interval are never selected.
func SelectSlowChars(aggs []model.CharAggregate, top int) map[string]struct{} {
	slowSet := map[string]struct{}{}
	candidates := make([]model.CharAggregate, 0, len(aggs))
	for _, agg := range aggs {
		if agg.IKICount > 0 {
			candidates = append(candidates, agg)
		}
	}
	if len(candidates) == 0 {
		return slowSet
	}
	sort.Slice(candidates, func(i, j int) bool {
		mi := meanIKI(candidates[i])
		mj := meanIKI(candidates[j])
		if mi == mj {
			return candidates[i].Char < candidates[j].Char
		}
		return mi > mj
	})
	if top <= 0 || top > len(candidates) {
		top = len(candidates)
	}
	for i := 0; i < top; i++ {
		slowSet[candidates[i].Char] = struct{}{}
	}
	return slowSet
}

func meanIKI(agg model.CharAggregate) float64 {
	return Mean(agg.IKISum, agg.IKICount)
}
