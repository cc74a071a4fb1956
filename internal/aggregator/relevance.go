package aggregator

import (
	"strings"

	"github.com/dadosbr/agregador/internal/registry"
)

// Score rates how well a record's text answers the query, in [0, 1].
//
// A full containment of the query scores by occurrence density so short,
// on-topic records rank above long documents that mention the phrase once.
// Otherwise the score degrades to the fraction of query words present,
// halved, so partial matches never outrank a containment hit.
func Score(query, text string) float64 {
	foldedQuery := registry.Normalize(strings.TrimSpace(query))
	foldedText := registry.Normalize(text)
	if foldedQuery == "" || foldedText == "" {
		return 0
	}

	if strings.Contains(foldedText, foldedQuery) {
		occurrences := strings.Count(foldedText, foldedQuery)
		words := len(strings.Fields(foldedText))
		if words < 1 {
			words = 1
		}
		score := float64(occurrences) / float64(words) * 10
		if score > 1 {
			return 1
		}
		return score
	}

	queryWords := strings.Fields(foldedQuery)
	matched := 0
	for _, word := range queryWords {
		if strings.Contains(foldedText, word) {
			matched++
		}
	}
	if matched == 0 {
		return 0
	}
	return float64(matched) / float64(len(queryWords)) * 0.5
}
