// ABOUTME: GenreSelector: mutually exclusive genre choice
// ABOUTME: Once a genre is chosen there is no way back to none

package workflow

import "strings"

// GenreSelector tracks one selected genre out of the offered list
type GenreSelector struct {
	genres   []string
	selected string
}

// NewGenreSelector creates a selector offering genres
func NewGenreSelector(genres []string) *GenreSelector {
	return &GenreSelector{genres: append([]string(nil), genres...)}
}

// SetGenres replaces the offered list. The selection always survives: it is
// re-cased to the offered spelling when present and kept as is otherwise.
func (g *GenreSelector) SetGenres(genres []string) {
	g.genres = append([]string(nil), genres...)

	if match, ok := g.lookup(g.selected); ok && g.selected != "" {
		g.selected = match
	}
}

// Select makes tag the only active genre. Matching is case-insensitive.
func (g *GenreSelector) Select(tag string) error {
	match, ok := g.lookup(tag)
	if !ok {
		return ErrUnknownGenre
	}

	g.selected = match

	return nil
}

// SelectAt selects the genre at index i of the offered list
func (g *GenreSelector) SelectAt(i int) error {
	if i < 0 || i >= len(g.genres) {
		return ErrUnknownGenre
	}

	g.selected = g.genres[i]

	return nil
}

// Selected returns the active genre
func (g *GenreSelector) Selected() (string, bool) {
	return g.selected, g.selected != ""
}

// Genres returns the offered list
func (g *GenreSelector) Genres() []string {
	return append([]string(nil), g.genres...)
}

func (g *GenreSelector) lookup(tag string) (string, bool) {
	tag = strings.TrimSpace(tag)

	for _, genre := range g.genres {
		if strings.EqualFold(genre, tag) {
			return genre, true
		}
	}

	return "", false
}
