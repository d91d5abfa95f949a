// internal/quiz/reveal.go
//
// Per-champion reveal policy, difficulty-gated.
// Computed here, consumed by whatever renders the board. Pure function of
// (champion, session); queried fresh on every render, holds no state.

package quiz

import "github.com/champquiz/go-server/internal/catalog"

// Reveal describes how one champion card may be presented for a session.
type Reveal struct {
	Revealed  bool   // guessed, or everything is exposed after give-up
	HintGlyph string // first letter of the name; only under normal difficulty
}

// RevealFor reports the reveal state of e under session s.
//
// A champion is revealed once guessed; giving up reveals the entire board.
// When not revealed, normal difficulty entitles the presentation layer to
// show the first character of the display name; hard difficulty shows nothing.
func RevealFor(e catalog.Entity, s Session) Reveal {
	if _, guessed := s.GuessedIDs[e.ID]; guessed || s.GaveUp {
		return Reveal{Revealed: true}
	}
	if s.Difficulty == DifficultyNormal && e.Name != "" {
		return Reveal{HintGlyph: string([]rune(e.Name)[:1])}
	}
	return Reveal{}
}
