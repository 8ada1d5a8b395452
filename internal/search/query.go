package search

import (
	"fmt"
	"strings"

	"github.com/seekarr/seekarr/internal/media"
)

// maxQueryRunes is the practical query-length limit of the tracker
// search forms. Queries are degraded, never sent over-length verbatim.
const maxQueryRunes = 100

// BuildQueries produces the set of query strings to issue for one
// search. The primary title is always searched; a distinct original
// title adds its own variants. For a series season the season marker is
// emitted in several conventions so differently-formatted listings are
// still found; for movies a year qualifier disambiguates remakes.
func BuildQueries(desc *media.Description, season int) []string {
	var queries []string
	seen := make(map[string]bool)
	add := func(q string) {
		q = clampQuery(strings.TrimSpace(q))
		if q != "" && !seen[q] {
			seen[q] = true
			queries = append(queries, q)
		}
	}

	primary := CleanTitle(desc.Title)
	secondary := CleanTitle(desc.OriginalTitle)
	if secondary == primary {
		secondary = ""
	}
	titles := []string{primary}
	if secondary != "" {
		titles = append(titles, secondary)
	}

	switch {
	case desc.Series && season > 0:
		seasonYear := desc.SeasonYear(season)
		for _, title := range titles {
			add(fmt.Sprintf("%s сезон %d", title, season))
			if seasonYear > 0 {
				add(fmt.Sprintf("%s сезон %d %d", title, season, seasonYear))
			}
			add(fmt.Sprintf("%s season %d", title, season))
			add(fmt.Sprintf("%s S%02d", title, season))
		}
		if secondary != "" {
			add(combineTitles(primary, secondary, fmt.Sprintf("сезон %d", season), seasonYear))
		}

	case !desc.Series && desc.Year > 0:
		for _, title := range titles {
			add(fmt.Sprintf("%s %d", title, desc.Year))
			add(title)
		}
		if secondary != "" {
			add(combineTitles(primary, secondary, "", desc.Year))
		}

	default:
		for _, title := range titles {
			add(title)
		}
	}

	return queries
}

// combineTitles builds a single query searching both titles in one
// pass, degrading gracefully when the result would exceed the length
// limit: drop the year, then fall back to the primary title alone,
// then the secondary alone, then truncate the primary to fit.
func combineTitles(primary, secondary, marker string, year int) string {
	join := func(parts ...string) string {
		var kept []string
		for _, p := range parts {
			if p != "" {
				kept = append(kept, p)
			}
		}
		return strings.Join(kept, " ")
	}

	yearPart := ""
	if year > 0 {
		yearPart = fmt.Sprintf("%d", year)
	}
	both := primary + " / " + secondary

	candidates := []string{
		join(both, marker, yearPart),
		join(both, marker),
		join(primary, marker),
		join(secondary, marker),
	}
	for _, candidate := range candidates {
		if runeLen(candidate) <= maxQueryRunes {
			return candidate
		}
	}
	return truncateRunes(primary, maxQueryRunes)
}

// clampQuery enforces the length limit as a hard invariant.
func clampQuery(q string) string {
	if runeLen(q) <= maxQueryRunes {
		return q
	}
	return strings.TrimSpace(truncateRunes(q, maxQueryRunes))
}

func runeLen(s string) int {
	return len([]rune(s))
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
