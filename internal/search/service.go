package search

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/seekarr/seekarr/internal/media"
	"github.com/seekarr/seekarr/internal/tokenstore"
	"github.com/seekarr/seekarr/internal/torrent"
)

const defaultQueryTimeout = 20 * time.Second

// Service coordinates a torrent search end to end: it expands the
// request into query variants, fans them out against the selected
// provider, ranks what comes back, and caches the resulting set in the
// token store for later callback-driven interactions.
type Service struct {
	registry     *torrent.Registry
	tokens       tokenstore.Store
	validator    Validator
	queryTimeout time.Duration
	logger       zerolog.Logger
}

// NewService creates a search service over the given provider registry
// and token store.
func NewService(registry *torrent.Registry, tokens tokenstore.Store, logger zerolog.Logger) *Service {
	return &Service{
		registry:     registry,
		tokens:       tokens,
		queryTimeout: defaultQueryTimeout,
		logger:       logger.With().Str("component", "search").Logger(),
	}
}

// SetValidator enables result validation. A nil validator disables it.
func (s *Service) SetValidator(v Validator) {
	s.validator = v
}

// SetQueryTimeout overrides the per-query-variant timeout.
func (s *Service) SetQueryTimeout(d time.Duration) {
	if d > 0 {
		s.queryTimeout = d
	}
}

// Request describes one search. Media drives query-variant generation
// when set; Query is an extra free-text variant searched as-is.
type Request struct {
	Query     string
	Media     *media.Description
	Season    int
	Provider  string
	Label     string
	BackToken string
}

// Search runs the full pipeline and returns the ranked result set plus
// the token under which it was cached. An empty outcome is reported as
// ErrNoResults; a provider where every variant failed as ErrUnavailable.
func (s *Service) Search(ctx context.Context, req Request) (*ResultSet, string, error) {
	provider, err := s.provider(req.Provider)
	if err != nil {
		return nil, "", err
	}

	queries := s.buildQueries(req)
	if len(queries) == 0 {
		return nil, "", torrent.NewConfigError("search request carries neither a query nor a media description")
	}

	s.logger.Debug().
		Str("provider", provider.Name()).
		Strs("queries", queries).
		Int("season", req.Season).
		Msg("Dispatching search")

	raw, err := s.fanout(ctx, provider, queries)
	if err != nil {
		return nil, "", err
	}

	ranked := Rank(raw, req.Media, req.Season)
	ranked = s.validate(ctx, ranked, req.Media)

	if len(ranked) == 0 {
		return nil, "", torrent.ErrNoResults
	}

	set := &ResultSet{
		Results:        ranked,
		Provider:       provider.Name(),
		RequestedLabel: req.Label,
		BackToken:      req.BackToken,
	}

	token, err := SaveResultSet(ctx, s.tokens, set)
	if err != nil {
		return nil, "", fmt.Errorf("caching result set: %w", err)
	}

	s.logger.Info().
		Str("provider", provider.Name()).
		Int("raw", len(raw)).
		Int("ranked", len(ranked)).
		Msg("Search completed")

	return set, token, nil
}

func (s *Service) provider(name string) (torrent.Provider, error) {
	if name != "" {
		return s.registry.Get(name)
	}
	return s.registry.Default()
}

func (s *Service) buildQueries(req Request) []string {
	var queries []string
	if req.Media != nil {
		queries = BuildQueries(req.Media, req.Season)
	}
	if q := clampQuery(req.Query); q != "" {
		for _, existing := range queries {
			if existing == q {
				return queries
			}
		}
		queries = append(queries, q)
	}
	return queries
}

// validate filters ranked results through the optional validator.
// Results the validator rejects or errors on are excluded, never
// shown on a guess.
func (s *Service) validate(ctx context.Context, ranked []RankedResult, desc *media.Description) []RankedResult {
	if s.validator == nil || desc == nil {
		return ranked
	}

	kept := ranked[:0]
	for _, result := range ranked {
		ok, err := s.validator.Validate(ctx, result.Name, desc.Title)
		if err != nil {
			s.logger.Warn().Err(err).Str("name", result.Name).Msg("Validation failed, excluding result")
			continue
		}
		if !ok {
			s.logger.Debug().Str("name", result.Name).Msg("Validator rejected result")
			continue
		}
		kept = append(kept, result)
	}
	return kept
}

// actionResultSet tags cached result-set payloads in the token store.
const actionResultSet = "torrent-results"

type resultSetPayload struct {
	Action string     `json:"action"`
	Set    *ResultSet `json:"set"`
}

// SaveResultSet caches a result set under a fresh token.
func SaveResultSet(ctx context.Context, store tokenstore.Store, set *ResultSet) (string, error) {
	return store.Save(ctx, resultSetPayload{Action: actionResultSet, Set: set})
}

// LoadResultSet retrieves a cached result set. Expired or unknown
// tokens yield tokenstore.ErrNotFound; a payload of the wrong shape is
// reported as an error too, so callers fall back to a fresh search
// instead of acting on garbage.
func LoadResultSet(ctx context.Context, store tokenstore.Store, token string) (*ResultSet, error) {
	var payload resultSetPayload
	if err := store.Get(ctx, token, &payload); err != nil {
		return nil, err
	}
	if payload.Action != actionResultSet || payload.Set == nil {
		return nil, fmt.Errorf("token %q: unexpected payload action %q", token, payload.Action)
	}
	return payload.Set, nil
}
