// Package tmdb implements the metadata backend over the TMDB v3 API.
// Item IDs carry a "movie:" or "tv:" prefix because TMDB numbers the
// two catalogs independently.
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/seekarr/seekarr/internal/config"
	"github.com/seekarr/seekarr/internal/media"
)

var (
	ErrTokenMissing = errors.New("TMDB API token is not configured")
	ErrNotFound     = errors.New("title not found")
	ErrAPIError     = errors.New("TMDB API error")
	ErrRateLimited  = errors.New("TMDB API rate limited")
	ErrInvalidID    = errors.New("invalid TMDB media id")
)

// Client is a TMDB API client.
type Client struct {
	httpClient *http.Client
	config     config.TMDBConfig
	logger     zerolog.Logger
}

// NewClient creates a new TMDB client.
func NewClient(cfg config.TMDBConfig, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		config: cfg,
		logger: logger.With().Str("component", "tmdb").Logger(),
	}
}

// Name returns the backend name.
func (c *Client) Name() string {
	return "tmdb"
}

// IsConfigured returns true if the API token is set.
func (c *Client) IsConfigured() bool {
	return c.config.APIToken != ""
}

// Search finds movies and series matching a free-text query. Results
// are requested in Russian; TMDB falls back to the original language
// when no translation exists.
func (c *Client) Search(ctx context.Context, query string) ([]media.Item, error) {
	if !c.IsConfigured() {
		return nil, ErrTokenMissing
	}

	endpoint := fmt.Sprintf("%s/search/multi", c.config.BaseURL)
	params := url.Values{}
	params.Set("query", query)
	params.Set("language", "ru-RU")
	params.Set("include_adult", "false")

	var response searchResponse
	if err := c.doRequest(ctx, endpoint, params, &response); err != nil {
		return nil, err
	}

	items := make([]media.Item, 0, len(response.Results))
	for _, result := range response.Results {
		switch result.MediaType {
		case "movie":
			items = append(items, c.movieItem(result))
		case "tv":
			items = append(items, c.tvItem(result))
		}
	}

	c.logger.Debug().
		Str("query", query).
		Int("results", len(items)).
		Msg("Search completed")

	return items, nil
}

// Details fetches the full description for one prefixed item id.
func (c *Client) Details(ctx context.Context, id string) (*media.Description, error) {
	if !c.IsConfigured() {
		return nil, ErrTokenMissing
	}

	mediaType, tmdbID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("language", "ru-RU")

	switch mediaType {
	case "movie":
		endpoint := fmt.Sprintf("%s/movie/%d", c.config.BaseURL, tmdbID)
		var details movieDetails
		if err := c.doRequest(ctx, endpoint, params, &details); err != nil {
			return nil, err
		}
		return c.movieDescription(details), nil

	case "tv":
		endpoint := fmt.Sprintf("%s/tv/%d", c.config.BaseURL, tmdbID)
		var details tvDetails
		if err := c.doRequest(ctx, endpoint, params, &details); err != nil {
			return nil, err
		}
		return c.tvDescription(details), nil
	}

	return nil, fmt.Errorf("%w: %s", ErrInvalidID, id)
}

func (c *Client) movieItem(result searchResult) media.Item {
	return media.Item{
		ID:            fmt.Sprintf("movie:%d", result.ID),
		Source:        c.Name(),
		Title:         nonEmpty(result.Title, "Без названия"),
		OriginalTitle: result.OriginalTitle,
		Year:          yearFromDate(result.ReleaseDate),
		PosterURL:     c.imageURL(result.PosterPath),
		Series:        false,
	}
}

func (c *Client) tvItem(result searchResult) media.Item {
	return media.Item{
		ID:            fmt.Sprintf("tv:%d", result.ID),
		Source:        c.Name(),
		Title:         nonEmpty(result.Name, "Без названия"),
		OriginalTitle: result.OriginalName,
		Year:          yearFromDate(result.FirstAirDate),
		PosterURL:     c.imageURL(result.PosterPath),
		Series:        true,
	}
}

func (c *Client) movieDescription(details movieDetails) *media.Description {
	return &media.Description{
		Item: media.Item{
			ID:            fmt.Sprintf("movie:%d", details.ID),
			Source:        c.Name(),
			Title:         nonEmpty(details.Title, "Без названия"),
			OriginalTitle: details.OriginalTitle,
			Year:          yearFromDate(details.ReleaseDate),
			PosterURL:     c.imageURL(details.PosterPath),
			Series:        false,
		},
		Overview: details.Overview,
	}
}

func (c *Client) tvDescription(details tvDetails) *media.Description {
	// Season 0 is TMDB's specials bucket, not a searchable season.
	seasons := make([]media.Season, 0, len(details.Seasons))
	for _, s := range details.Seasons {
		if s.SeasonNumber <= 0 {
			continue
		}
		seasons = append(seasons, media.Season{
			Number:       s.SeasonNumber,
			Year:         yearFromDate(s.AirDate),
			EpisodeCount: s.EpisodeCount,
		})
	}

	return &media.Description{
		Item: media.Item{
			ID:            fmt.Sprintf("tv:%d", details.ID),
			Source:        c.Name(),
			Title:         nonEmpty(details.Name, "Без названия"),
			OriginalTitle: details.OriginalName,
			Year:          yearFromDate(details.FirstAirDate),
			PosterURL:     c.imageURL(details.PosterPath),
			Series:        true,
		},
		Overview: details.Overview,
		Seasons:  seasons,
	}
}

// doRequest performs an HTTP GET request and decodes the JSON response.
func (c *Client) doRequest(ctx context.Context, endpoint string, params url.Values, result interface{}) error {
	reqURL := endpoint
	if len(params) > 0 {
		reqURL = fmt.Sprintf("%s?%s", endpoint, params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("url", endpoint).Msg("HTTP request failed")
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
			c.logger.Error().
				Int("status", resp.StatusCode).
				Str("message", errResp.StatusMessage).
				Msg("TMDB API error")
		}

		switch resp.StatusCode {
		case http.StatusNotFound:
			return ErrNotFound
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: invalid API token", ErrAPIError)
		case http.StatusTooManyRequests:
			return ErrRateLimited
		default:
			return fmt.Errorf("%w: status %d", ErrAPIError, resp.StatusCode)
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

func (c *Client) imageURL(path *string) string {
	if path == nil || *path == "" {
		return ""
	}
	return c.config.ImageBaseURL + *path
}

// parseID splits a prefixed id like "movie:603" or "tv:1396".
func parseID(id string) (string, int, error) {
	mediaType, rawID, ok := strings.Cut(id, ":")
	if !ok {
		return "", 0, fmt.Errorf("%w: %s", ErrInvalidID, id)
	}
	numeric, err := strconv.Atoi(rawID)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %s", ErrInvalidID, id)
	}
	return mediaType, numeric, nil
}

func nonEmpty(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

func yearFromDate(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}
