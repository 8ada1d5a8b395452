package search

import "context"

// Validator is an optional second-opinion check applied to ranked
// results before they are shown. Implementations judge whether a raw
// torrent name really refers to the requested title, catching
// transliteration noise the fuzzy matcher lets through.
type Validator interface {
	// Validate reports whether the raw name plausibly matches the
	// expected title. Implementations must not mutate the result.
	Validate(ctx context.Context, rawName, expectedTitle string) (bool, error)
}
