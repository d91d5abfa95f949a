// internal/quiz/types.go
//
// Core type definitions for the quiz engine.
// Defines:
//   - Status: session lifecycle state (menu/playing/finished).
//   - Difficulty: reveal-gating mode (normal/hard).
//   - Session: state for a single quiz run.

package quiz

import "time"

// Status represents the lifecycle state of a quiz session.
// Transitions: menu → playing → finished. Finished is terminal; the only way
// back to playing is a brand-new Session.
type Status string

const (
	StatusMenu     Status = "menu"
	StatusPlaying         = "playing"
	StatusFinished        = "finished"
)

// Difficulty gates how much of an unguessed champion the board may reveal.
// Possible values:
//   - "normal": the first letter of the name is shown as a hint glyph.
//   - "hard":   nothing is shown until guessed.
type Difficulty string

const (
	DifficultyNormal Difficulty = "normal"
	DifficultyHard              = "hard"
)

// ParseDifficulty maps a raw string to a Difficulty, defaulting to normal.
func ParseDifficulty(s string) Difficulty {
	if s == string(DifficultyHard) {
		return DifficultyHard
	}
	return DifficultyNormal
}

// Session holds the state of a single quiz run.
//
// Sessions are values: every operation returns a new Session rather than
// mutating in place, so a transition is always observed whole or not at all.
type Session struct {
	ID         string              // Unique session identifier (random hex string).
	Status     Status              // menu | playing | finished.
	Difficulty Difficulty          // Reveal-gating mode chosen at start.
	GuessedIDs map[string]struct{} // Champion ids identified so far.
	StartedAt  time.Time           // Set when the session starts.
	EndedAt    time.Time           // Set exactly once, on the finishing transition.
	GaveUp     bool                // True if the session ended via give-up.
}
