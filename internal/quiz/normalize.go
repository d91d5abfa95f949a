// internal/quiz/normalize.go
//
// Text normalization for guess matching.
// Turns free-form player input into a canonical comparison key so that typed
// guesses match catalog names regardless of case, spaces, or punctuation
// (e.g. "Kha'Zix" and "khazix" normalize to the same key).

package quiz

import "strings"

// Normalize lowercases raw input and strips every character outside a-z0-9,
// preserving the order of what remains.
//
// It is pure, total, and idempotent. An empty result is valid and means
// "no meaningful input yet". Accented letters are not folded to ASCII;
// they are stripped like any other non-alphanumeric rune.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range strings.ToLower(raw) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
