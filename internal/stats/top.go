// Package stats contains statistics calculations and reporting.
package stats

import (
	"sort"

	"github.com/elisaF/typing-classification/internal/model"
)

// TopMistypedChars returns the top N characters by error count.
func TopMistypedChars(aggs []model.CharAggregate, n int) []model.CharAggregate {
	if n <= 0 || len(aggs) == 0 {
		return nil
	}
	items := make([]model.CharAggregate, len(aggs))
	copy(items, aggs)
	sort.Slice(items, func(i, j int) bool {
		if items[i].Errors == items[j].Errors {
			return items[i].Char < items[j].Char
		}
		return items[i].Errors > items[j].Errors
	})
	if n > len(items) {
		n = len(items)
	}
	return items[:n]
}
