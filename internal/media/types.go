// Package media defines the canonical description of a movie or series
// as returned by a metadata backend. Values are immutable once fetched.
package media

import "fmt"

// Season describes one season of a series.
type Season struct {
	Number       int `json:"number"`
	Year         int `json:"year,omitempty"`
	EpisodeCount int `json:"episodeCount,omitempty"`
}

// Item is a single entry from a metadata search.
type Item struct {
	ID            string `json:"id"`
	Source        string `json:"source"`
	Title         string `json:"title"`
	OriginalTitle string `json:"originalTitle,omitempty"`
	Year          int    `json:"year,omitempty"`
	PosterURL     string `json:"posterUrl,omitempty"`
	Series        bool   `json:"series"`
}

// Description is the full canonical request for a torrent search:
// an Item enriched with its overview and known seasons.
type Description struct {
	Item
	Overview string   `json:"overview,omitempty"`
	Seasons  []Season `json:"seasons,omitempty"`
}

// Label returns a short human-readable description, e.g. "Dune (2021)".
func (d *Description) Label() string {
	if d.Year > 0 {
		return fmt.Sprintf("%s (%d)", d.Title, d.Year)
	}
	return d.Title
}

// SeasonYear returns the year of the given season, or 0 when unknown.
func (d *Description) SeasonYear(number int) int {
	for _, s := range d.Seasons {
		if s.Number == number {
			return s.Year
		}
	}
	return 0
}

// SeasonNumbers returns the known season numbers in listed order.
func (d *Description) SeasonNumbers() []int {
	numbers := make([]int, 0, len(d.Seasons))
	for _, s := range d.Seasons {
		numbers = append(numbers, s.Number)
	}
	return numbers
}
