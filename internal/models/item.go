package models

import "strings"

// GenreSeparator delimits the genre_tags column of the catalog.
const GenreSeparator = ","

// Item is a game in the catalog.
type Item struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description_short,omitempty"`
	GenreTags   string `json:"genre_tags,omitempty"`
}

// Genres splits GenreTags into trimmed, non-empty, de-duplicated genre names.
// Names are case-sensitive; the first occurrence wins.
func (it Item) Genres() []string {
	return ParseGenres(it.GenreTags)
}

// ParseGenres tokenizes a comma-delimited genre list.
func ParseGenres(tags string) []string {
	if tags == "" {
		return []string{}
	}
	parts := strings.Split(tags, GenreSeparator)
	out := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		name := strings.TrimSpace(p)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}
