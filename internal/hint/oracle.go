// internal/hint/oracle.go
//
// Hint oracle boundary: generates a human-readable clue for one champion.
// The quiz core never special-cases oracle failure — an Oracle always returns
// displayable text, falling back to a fixed string when the backend misbehaves.

package hint

import (
	"context"
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/champquiz/go-server/internal/catalog"
)

// Fallback is shown whenever hint generation fails (network, quota, malformed
// response). It is a normal, displayable result, never a propagated error.
const Fallback = "Os deuses da IA estão silentes agora. Tente novamente mais tarde ou pule este campeão."

// Oracle produces a clue for a champion. Implementations must be total:
// every call yields displayable text, even on backend failure.
type Oracle interface {
	Hint(ctx context.Context, e catalog.Entity) string
}

// NewFromEnv picks an oracle implementation from the environment:
// an LLM-backed oracle when ORACLE_API_KEY is set, otherwise the offline one.
func NewFromEnv() Oracle {
	key := os.Getenv("ORACLE_API_KEY")
	if key == "" {
		return Offline{}
	}
	o, err := NewLLMOracle(key, os.Getenv("ORACLE_MODEL"), os.Getenv("ORACLE_BASE_URL"))
	if err != nil {
		return Offline{}
	}
	return o
}

// Offline is a keyless oracle for local development. It hints with name
// length and the title's first letter, never echoing the name itself.
type Offline struct{}

// Hint implements Oracle.
func (Offline) Hint(ctx context.Context, e catalog.Entity) string {
	if e.Title == "" {
		return fmt.Sprintf("O nome deste campeão tem %d letras.", utf8.RuneCountInString(e.Name))
	}
	first := string([]rune(e.Title)[:1])
	return fmt.Sprintf("O nome deste campeão tem %d letras e seu título começa com %q.",
		utf8.RuneCountInString(e.Name), first)
}
