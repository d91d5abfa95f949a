package assets

import "embed"

//go:embed champions.json
var FS embed.FS

// ChampionsJSON returns the embedded default champion catalog as raw JSON.
// Parsing and validation happen in the catalog package.
func ChampionsJSON() ([]byte, error) {
	return FS.ReadFile("champions.json")
}
