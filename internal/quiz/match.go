// internal/quiz/match.go
//
// Resolves a canonical key to at most one catalog champion.
// Matching is how keystroke-by-keystroke input becomes a guess: the caller
// normalizes the raw text and asks for the champion it denotes, if any.

package quiz

import "github.com/champquiz/go-server/internal/catalog"

// Match scans the catalog in its fixed display order and returns the first
// champion whose normalized id or normalized name equals key.
//
// An empty key never matches. Absence of a match is a normal outcome, not an
// error: partial and garbage input arrive on every keystroke. Ids and names
// are unique in practice, so first-wins is a defensive tie-break only.
func Match(key string, entities []catalog.Entity) (catalog.Entity, bool) {
	if key == "" {
		return catalog.Entity{}, false
	}
	for _, e := range entities {
		if Normalize(e.ID) == key || Normalize(e.Name) == key {
			return e, true
		}
	}
	return catalog.Entity{}, false
}
