// internal/quiz/hint.go
//
// Hint-target selection: picks which champion the oracle should hint about.

package quiz

import (
	"crypto/rand"
	"math/big"

	"github.com/champquiz/go-server/internal/catalog"
)

// SelectHintTarget picks one champion the session has not guessed yet,
// uniformly at random, or reports false when nothing is left to hint about.
//
// Every call draws a fresh sample over the currently-unguessed subset; there
// is no memoization and no repeat avoidance. Repeats across calls are fine
// because the unguessed set only shrinks as the game progresses.
func SelectHintTarget(s Session, entities []catalog.Entity) (catalog.Entity, bool) {
	unguessed := make([]catalog.Entity, 0, len(entities))
	for _, e := range entities {
		if _, ok := s.GuessedIDs[e.ID]; !ok {
			unguessed = append(unguessed, e)
		}
	}
	if len(unguessed) == 0 {
		return catalog.Entity{}, false
	}
	nBig, _ := rand.Int(rand.Reader, big.NewInt(int64(len(unguessed))))
	return unguessed[nBig.Int64()], true
}
