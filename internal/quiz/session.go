// internal/quiz/session.go
//
// Session state machine for a single quiz run.
// Responsibilities:
//   - Create new sessions (status=playing, fresh guess set, started timestamp).
//   - Apply guesses: normalize → match → record, with silent no-op semantics
//     for garbage, duplicates, and wrong-state calls.
//   - Track the single finishing transition: full completion or give-up.
//   - Derive completion percentage and elapsed time on demand.
//
// Notes:
//   - Operations return a new Session value instead of mutating the receiver;
//     the guess set is cloned on write. Callers swap the whole value, so rapid
//     input events never observe a half-applied transition.
//   - Nothing here returns an error: a quiz session must never crash or lock
//     up from malformed or mistimed input.
//   - randomID() is a compact hex identifier for correlating server state.

package quiz

import (
	"crypto/rand"
	"encoding/hex"
	"math"
	"time"

	"github.com/champquiz/go-server/internal/catalog"
)

// New constructs a fresh playing session.
// Restart is modeled as replacement: callers create a new Session and drop the
// old one rather than transitioning finished → playing.
func New(difficulty Difficulty) Session {
	return Session{
		ID:         randomID(),
		Status:     StatusPlaying,
		Difficulty: difficulty,
		GuessedIDs: map[string]struct{}{},
		StartedAt:  time.Now().UTC(),
	}
}

// SubmitGuess normalizes raw input, matches it against the catalog, and
// returns the session that results, plus the matched champion when the guess
// landed (matched=true only for a new, correct guess).
//
// No-op cases (session returned unchanged, matched=false):
//   - session is not playing (stray late events after finish)
//   - input normalizes to empty
//   - no catalog match
//   - champion already guessed
//
// If the new guess covers the whole catalog, the session finishes with
// GaveUp=false and EndedAt set at this moment.
func (s Session) SubmitGuess(raw string, entities []catalog.Entity) (Session, catalog.Entity, bool) {
	if s.Status != StatusPlaying {
		return s, catalog.Entity{}, false
	}
	key := Normalize(raw)
	if key == "" {
		return s, catalog.Entity{}, false
	}
	e, ok := Match(key, entities)
	if !ok {
		return s, catalog.Entity{}, false
	}
	if _, dup := s.GuessedIDs[e.ID]; dup {
		return s, catalog.Entity{}, false
	}

	next := s
	next.GuessedIDs = cloneSet(s.GuessedIDs)
	next.GuessedIDs[e.ID] = struct{}{}

	if len(next.GuessedIDs) == len(entities) {
		next.Status = StatusFinished
		next.EndedAt = time.Now().UTC()
	}
	return next, e, true
}

// GiveUp ends a playing session early. The guess set is kept exactly as it
// was: champions guessed before giving up stay guessed, not merely revealed.
// Calling GiveUp on a non-playing session is a no-op.
func (s Session) GiveUp() Session {
	if s.Status != StatusPlaying {
		return s
	}
	next := s
	next.Status = StatusFinished
	next.EndedAt = time.Now().UTC()
	next.GaveUp = true
	return next
}

// CompletionPercent reports the guessed share of the catalog, rounded to the
// nearest integer. Defined as 0 for an empty catalog (guards the division).
func (s Session) CompletionPercent(catalogSize int) int {
	if catalogSize <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(len(s.GuessedIDs)) / float64(catalogSize)))
}

// Elapsed derives the session's play time from its timestamps.
// While playing it is now − StartedAt; once finished it freezes at
// EndedAt − StartedAt. Zero before the session has started.
func (s Session) Elapsed(now time.Time) time.Duration {
	if s.StartedAt.IsZero() {
		return 0
	}
	end := now
	if s.Status == StatusFinished && !s.EndedAt.IsZero() {
		end = s.EndedAt
	}
	if end.Before(s.StartedAt) {
		return 0
	}
	return end.Sub(s.StartedAt)
}

// cloneSet copies a guess set so the previous session value stays intact.
func cloneSet(in map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(in)+1)
	for k := range in {
		out[k] = struct{}{}
	}
	return out
}

// randomID returns a compact 16-hex-char identifier.
// Collisions are extremely unlikely given crypto/rand entropy.
func randomID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
