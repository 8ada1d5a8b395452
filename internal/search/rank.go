package search

import (
	"sort"

	"github.com/seekarr/seekarr/internal/media"
	"github.com/seekarr/seekarr/internal/torrent"
)

// RankedResult is a raw provider item that survived filtering, enriched
// with its inferred quality tier and season match. Immutable once built.
type RankedResult struct {
	torrent.RawResult
	Quality Quality `json:"quality"`
	Season  int     `json:"season,omitempty"`
	Title   string  `json:"title,omitempty"`
}

// ResultSet is the final ordered result list for one completed search,
// cached as a single token-store entry so later interactions can page
// and re-enter it without re-searching. Never mutated after creation:
// a refresh re-runs the search and creates a new entry.
type ResultSet struct {
	Results        []RankedResult `json:"results"`
	Provider       string         `json:"provider"`
	RequestedLabel string         `json:"requestedLabel,omitempty"`
	BackToken      string         `json:"backToken,omitempty"`
}

// Rank merges raw results from all query variants into the final
// ordered candidate list:
//
//  1. drop items nobody seeds (not actionable),
//  2. deduplicate by provider id, first occurrence wins,
//  3. for season searches, drop items whose extractable season number
//     disagrees with the requested one (non-extractable items are kept),
//  4. drop items whose name matches none of the expected titles,
//  5. classify quality and keep only the best-seeded item per tier,
//  6. order by seeders descending, ties in stable input order.
func Rank(raw []torrent.RawResult, desc *media.Description, season int) []RankedResult {
	var expected []string
	canonical := ""
	if desc != nil {
		canonical = desc.Title
		for _, title := range []string{desc.Title, desc.OriginalTitle} {
			if title != "" {
				expected = append(expected, title)
			}
		}
	}

	seen := make(map[string]bool)
	var admitted []RankedResult
	for _, r := range raw {
		if r.Seeds <= 0 {
			continue
		}
		if seen[r.ID] {
			continue
		}
		seen[r.ID] = true

		if season > 0 && !SeasonMatches(r.Name, season) {
			continue
		}
		if !TitleMatches(r.Name, expected) {
			continue
		}

		ranked := RankedResult{
			RawResult: r,
			Quality:   ClassifyQuality(r.Name),
			Title:     canonical,
		}
		if number, ok := ExtractSeason(r.Name); ok {
			ranked.Season = number
		}
		admitted = append(admitted, ranked)
	}

	// A user choosing a quality tier wants the healthiest swarm at that
	// tier, not every near-duplicate release.
	bestByTier := make(map[Quality]int)
	kept := make([]RankedResult, 0, len(admitted))
	for _, candidate := range admitted {
		idx, ok := bestByTier[candidate.Quality]
		if !ok {
			bestByTier[candidate.Quality] = len(kept)
			kept = append(kept, candidate)
			continue
		}
		if candidate.Seeds > kept[idx].Seeds {
			kept[idx] = candidate
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Seeds > kept[j].Seeds
	})
	return kept
}
