package search

import (
	"context"
	"errors"
	"sync"

	"github.com/seekarr/seekarr/internal/torrent"
)

type queryOutcome struct {
	query   string
	results []torrent.RawResult
	err     error
}

// fanout issues every query variant against the provider concurrently
// and merges the raw results in variant order, so downstream dedup and
// ranking see a deterministic sequence. Individual variant failures are
// tolerated; only when every variant fails does the whole fanout fail,
// as a transient provider-unavailable error.
func (s *Service) fanout(ctx context.Context, provider torrent.Provider, queries []string) ([]torrent.RawResult, error) {
	if len(queries) == 0 {
		return nil, nil
	}

	outcomes := make(chan queryOutcome, len(queries))
	var wg sync.WaitGroup

	for _, query := range queries {
		wg.Add(1)
		go func(query string) {
			defer wg.Done()

			queryCtx, cancel := context.WithTimeout(ctx, s.queryTimeout)
			defer cancel()

			results, err := provider.Search(queryCtx, query)
			outcomes <- queryOutcome{query: query, results: results, err: err}
		}(query)
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	byQuery := make(map[string]queryOutcome, len(queries))
	for outcome := range outcomes {
		if outcome.err != nil {
			s.logger.Warn().
				Str("provider", provider.Name()).
				Str("query", outcome.query).
				Err(outcome.err).
				Msg("Query variant failed")
		}
		byQuery[outcome.query] = outcome
	}

	var merged []torrent.RawResult
	var failures []error
	for _, query := range queries {
		outcome := byQuery[query]
		if outcome.err != nil {
			failures = append(failures, outcome.err)
			continue
		}
		merged = append(merged, outcome.results...)
	}

	if len(failures) == len(queries) {
		return nil, torrent.NewUnavailableError(provider.Name(), errors.Join(failures...))
	}
	return merged, nil
}
