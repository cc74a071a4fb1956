// Package sources implements the adapters for the upstream Brazilian
// government APIs. Each adapter satisfies registry.Adapter: it translates
// a resolved query into the source's request shape and flattens the
// source's response envelope back into raw records.
package sources

import "strings"

func containsAny(folded string, terms ...string) bool {
	for _, term := range terms {
		if strings.Contains(folded, term) {
			return true
		}
	}
	return false
}
