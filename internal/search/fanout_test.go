package search

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seekarr/seekarr/internal/tokenstore"
	"github.com/seekarr/seekarr/internal/torrent"
)

type flakyProvider struct {
	results map[string][]torrent.RawResult
	fail    map[string]error
}

func (f *flakyProvider) Name() string { return "flaky" }

func (f *flakyProvider) Search(ctx context.Context, query string) ([]torrent.RawResult, error) {
	if err, ok := f.fail[query]; ok {
		return nil, err
	}
	return f.results[query], nil
}

func (f *flakyProvider) Detail(ctx context.Context, id string) (*torrent.Detail, error) {
	return nil, torrent.NewNotFoundError("flaky", "no detail")
}

func (f *flakyProvider) Download(ctx context.Context, id string) (*torrent.File, error) {
	return nil, torrent.NewNotFoundError("flaky", "no file")
}

func fanoutService(t *testing.T) *Service {
	t.Helper()
	store := tokenstore.NewMemory(time.Hour)
	t.Cleanup(store.Close)
	return NewService(torrent.NewRegistry(), store, zerolog.Nop())
}

func TestFanoutMergesInVariantOrder(t *testing.T) {
	provider := &flakyProvider{
		results: map[string][]torrent.RawResult{
			"first":  {{ID: "a", Name: "A", Seeds: 1}},
			"second": {{ID: "b", Name: "B", Seeds: 2}},
		},
	}
	svc := fanoutService(t)

	merged, err := svc.fanout(context.Background(), provider, []string{"first", "second"})
	require.NoError(t, err)
	require.Len(t, merged, 2)
	assert.Equal(t, "a", merged[0].ID)
	assert.Equal(t, "b", merged[1].ID)
}

func TestFanoutToleratesPartialFailure(t *testing.T) {
	cause := torrent.NewNetworkError("flaky", errors.New("timeout"))
	provider := &flakyProvider{
		results: map[string][]torrent.RawResult{
			"ok": {{ID: "a", Name: "A", Seeds: 1}},
		},
		fail: map[string]error{"broken": cause},
	}
	svc := fanoutService(t)

	merged, err := svc.fanout(context.Background(), provider, []string{"broken", "ok"})
	require.NoError(t, err)
	require.Len(t, merged, 1)
	assert.Equal(t, "a", merged[0].ID)
}

func TestFanoutAllFailed(t *testing.T) {
	cause := torrent.NewNetworkError("flaky", errors.New("timeout"))
	provider := &flakyProvider{
		fail: map[string]error{"one": cause, "two": cause},
	}
	svc := fanoutService(t)

	_, err := svc.fanout(context.Background(), provider, []string{"one", "two"})
	assert.ErrorIs(t, err, torrent.ErrUnavailable)
	assert.ErrorIs(t, err, torrent.ErrNetwork)
}

func TestFanoutNoQueries(t *testing.T) {
	svc := fanoutService(t)

	merged, err := svc.fanout(context.Background(), &flakyProvider{}, nil)
	require.NoError(t, err)
	assert.Empty(t, merged)
}
