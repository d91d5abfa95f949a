// internal/catalog/catalog.go
//
// Provides the champion catalog for the quiz engine.
//
// Responsibilities:
//   - Load the champion list from an environment-provided JSON file or fall
//     back to the embedded default catalog.
//   - Keep a fixed display order (sorted by champion name) for deterministic
//     matching and board rendering.
//   - Supply lookup helpers: All, ByID, Size, Stats.
//
// Catalog entries:
//   - "id":    unique, stable, lowercase alphanumeric (e.g. "kaisa").
//   - "name":  display name, may contain punctuation (e.g. "Kai'Sa").
//   - "title": champion epithet shown on revealed cards.
//   - "blurb": optional lore snippet.
//
// Initialization behavior (Init):
//   1. If CHAMPIONS_FILE is set, load the catalog from that JSON file.
//   2. Otherwise fall back to the embedded default from assets/champions.json.
//
// Environment variables:
//   CHAMPIONS_FILE=/path/to/champions.json
//
// Constraints:
//   • Entries with an empty id or name are skipped.
//   • Duplicate ids are skipped (first occurrence wins).
//   • The catalog is immutable after Init; initialization runs once (sync.Once).

package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/champquiz/go-server/assets"
)

// Entity is a single catalog item the player must identify.
type Entity struct {
	ID    string `json:"id"`    // unique stable identifier
	Name  string `json:"name"`  // display name (punctuation allowed)
	Title string `json:"title"` // epithet, e.g. "A Filha do Vazio"
	Blurb string `json:"blurb,omitempty"`
}

var (
	initOnce   sync.Once
	entities   []Entity          // fixed display order (by name)
	byID       map[string]Entity // keyed by Entity.ID
	initialErr error
)

// Init loads the catalog exactly once.
// Returns an error if the resulting catalog is empty.
func Init() error {
	initOnce.Do(func() {
		var raw []byte
		var err error

		if path := os.Getenv("CHAMPIONS_FILE"); path != "" {
			raw, err = os.ReadFile(path)
			if err != nil {
				initialErr = fmt.Errorf("read %s: %w", path, err)
				return
			}
		} else {
			raw, err = assets.ChampionsJSON()
			if err != nil {
				initialErr = fmt.Errorf("embedded catalog: %w", err)
				return
			}
		}

		list, err := parse(raw)
		if err != nil {
			initialErr = err
			return
		}
		entities = list
		byID = make(map[string]Entity, len(list))
		for _, e := range list {
			byID[e.ID] = e
		}

		if len(entities) == 0 {
			initialErr = errors.New("catalog: champion list is empty")
		}
	})
	return initialErr
}

// parse decodes a JSON catalog, drops invalid entries, dedupes ids,
// and sorts by display name.
func parse(raw []byte) ([]Entity, error) {
	var in []Entity
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]Entity, 0, len(in))
	for _, e := range in {
		if e.ID == "" || e.Name == "" {
			continue
		}
		if _, dup := seen[e.ID]; dup {
			continue
		}
		seen[e.ID] = struct{}{}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// All returns the full catalog in display order.
// The returned slice must be treated as read-only.
func All() []Entity {
	return entities
}

// ByID looks up a champion by id.
func ByID(id string) (Entity, bool) {
	e, ok := byID[id]
	return e, ok
}

// Size returns the number of champions in the catalog.
func Size() int {
	return len(entities)
}

// Stats returns the loaded champion count (for diagnostics endpoints).
func Stats() int {
	return len(entities)
}
