package search

import (
	"regexp"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

var (
	apostropheRegex    = regexp.MustCompile("['`‘’ʼ]")
	specialCharsRegex  = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
	multipleSpaceRegex = regexp.MustCompile(`\s+`)
)

// NormalizeTitle converts a title to a normalized form for comparison.
// It lowercases, strips apostrophes (within-word punctuation), replaces
// remaining special characters with spaces, and collapses whitespace.
// Unicode letters are kept, so Cyrillic titles normalize cleanly.
func NormalizeTitle(title string) string {
	normalized := strings.ToLower(title)
	normalized = apostropheRegex.ReplaceAllString(normalized, "")
	normalized = specialCharsRegex.ReplaceAllString(normalized, " ")
	normalized = multipleSpaceRegex.ReplaceAllString(normalized, " ")
	return strings.TrimSpace(normalized)
}

// CleanTitle strips punctuation from a title for use inside a provider
// query, preserving case. "Любовь и голуби: Special Edition" becomes
// "Любовь и голуби Special Edition".
func CleanTitle(title string) string {
	cleaned := specialCharsRegex.ReplaceAllString(title, " ")
	cleaned = multipleSpaceRegex.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// similarityThreshold is the minimum normalized similarity for a raw
// torrent name to be accepted against an expected title.
const similarityThreshold = 0.4

// Similarity returns a normalized similarity score in [0, 1] between
// two titles, computed as the Levenshtein ratio of their normalized
// forms. Identical titles score 1.0.
func Similarity(a, b string) float64 {
	na := NormalizeTitle(a)
	nb := NormalizeTitle(b)
	if na == nb {
		return 1.0
	}
	if na == "" || nb == "" {
		return 0.0
	}

	la := len([]rune(na))
	lb := len([]rune(nb))
	longest := la
	if lb > longest {
		longest = lb
	}

	distance := fuzzy.LevenshteinDistance(na, nb)
	return 1.0 - float64(distance)/float64(longest)
}

// TitleMatches reports whether a raw torrent name plausibly refers to
// one of the expected titles: either a cleaned expected title occurs as
// a substring of the cleaned name, or the normalized similarity exceeds
// the threshold. This tolerates transliteration and ordering noise
// while rejecting unrelated titles. An empty expectation matches all.
func TitleMatches(rawName string, expectedTitles []string) bool {
	if len(expectedTitles) == 0 {
		return true
	}

	nameNorm := NormalizeTitle(rawName)
	for _, expected := range expectedTitles {
		if expected == "" {
			continue
		}
		if strings.Contains(nameNorm, NormalizeTitle(expected)) {
			return true
		}
		if Similarity(expected, rawName) > similarityThreshold {
			return true
		}
	}
	return false
}
