// Package answer produces grounded answers for atomic questions and merges
// them into one response with deduplicated evidence.
package answer

import "github.com/atabot/atabot/internal/schema"

// FilterByScore keeps results whose score meets the floor. Pure and
// order-preserving; evidence below the floor never reaches the language
// model.
func FilterByScore(results []schema.SearchResult, minScore float64) []schema.SearchResult {
	if len(results) == 0 {
		return nil
	}
	kept := make([]schema.SearchResult, 0, len(results))
	for _, r := range results {
		if r.Score >= minScore {
			kept = append(kept, r)
		}
	}
	return kept
}
