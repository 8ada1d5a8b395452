package config

// Embedded API keys injected at build time via ldflags.
// These serve as defaults and can be overridden by environment
// variables or config file.
//
// Build with:
//   go build -ldflags "-X 'github.com/seekarr/seekarr/internal/config.EmbeddedKinopoiskKey=xxx' \
//                      -X 'github.com/seekarr/seekarr/internal/config.EmbeddedTMDBToken=yyy'"
var (
	EmbeddedKinopoiskKey string
	EmbeddedTMDBToken    string
)

// applyEmbeddedKeys fills in build-time keys where the loaded
// configuration left them blank.
func applyEmbeddedKeys(cfg *Config) {
	if cfg.Metadata.Kinopoisk.APIKey == "" {
		cfg.Metadata.Kinopoisk.APIKey = EmbeddedKinopoiskKey
	}
	if cfg.Metadata.TMDB.APIToken == "" {
		cfg.Metadata.TMDB.APIToken = EmbeddedTMDBToken
	}
}
