package search

import (
	"regexp"
	"strconv"
)

// Recognized season-number conventions in raw torrent names. The "sNN"
// form is required to look like a season marker, not an arbitrary word.
var seasonPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)сезон[:\s]*(\d{1,2})`),
	regexp.MustCompile(`(?i)(\d{1,2})\s*сезон`),
	regexp.MustCompile(`(?i)season[:\s]*(\d{1,2})`),
	regexp.MustCompile(`(?i)(\d{1,2})\s*season`),
	regexp.MustCompile(`(?i)\bs(\d{1,2})(?:\b|e\d)`),
}

// ExtractSeason parses a season number embedded in a raw torrent name.
// The second return value is false when no recognized pattern matches.
func ExtractSeason(rawName string) (int, bool) {
	for _, pattern := range seasonPatterns {
		m := pattern.FindStringSubmatch(rawName)
		if m == nil {
			continue
		}
		number, err := strconv.Atoi(m[1])
		if err != nil || number == 0 {
			continue
		}
		return number, true
	}
	return 0, false
}

// SeasonMatches reports whether a raw torrent name is acceptable for
// the requested season. Names carrying an extractable season number
// must agree with it; names from which no season can be extracted are
// kept (ambiguous, not excluded).
func SeasonMatches(rawName string, requested int) bool {
	extracted, ok := ExtractSeason(rawName)
	if !ok {
		return true
	}
	return extracted == requested
}
