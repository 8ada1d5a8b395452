// Package kinopoisk implements the metadata backend over the
// api.kinopoisk.dev HTTP API.
package kinopoisk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/seekarr/seekarr/internal/config"
	"github.com/seekarr/seekarr/internal/media"
)

var (
	ErrAPIKeyMissing = errors.New("Kinopoisk API key is not configured")
	ErrNotFound      = errors.New("title not found")
	ErrAPIError      = errors.New("Kinopoisk API error")
)

// seasonPageLimit caps one /season page. No known series exceeds it.
const seasonPageLimit = 50

// Client is a Kinopoisk API client.
type Client struct {
	httpClient *http.Client
	config     config.KinopoiskConfig
	logger     zerolog.Logger
}

// NewClient creates a new Kinopoisk client.
func NewClient(cfg config.KinopoiskConfig, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		config: cfg,
		logger: logger.With().Str("component", "kinopoisk").Logger(),
	}
}

// Name returns the backend name.
func (c *Client) Name() string {
	return "kinopoisk"
}

// IsConfigured returns true if the API key is set.
func (c *Client) IsConfigured() bool {
	return c.config.APIKey != ""
}

// Search finds titles matching a free-text query.
func (c *Client) Search(ctx context.Context, query string) ([]media.Item, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	limit := c.config.SearchLimit
	if limit <= 0 {
		limit = 10
	}

	endpoint := fmt.Sprintf("%s/movie/search", c.config.BaseURL)
	params := url.Values{}
	params.Set("query", query)
	params.Set("page", "1")
	params.Set("limit", strconv.Itoa(limit))

	var response searchResponse
	if err := c.doRequest(ctx, endpoint, params, &response); err != nil {
		return nil, err
	}

	items := make([]media.Item, 0, len(response.Docs))
	for _, doc := range response.Docs {
		items = append(items, c.toItem(doc))
	}

	c.logger.Debug().
		Str("query", query).
		Int("results", len(items)).
		Msg("Search completed")

	return items, nil
}

// Details fetches the full description for one title, including
// seasons when the title is a series.
func (c *Client) Details(ctx context.Context, id string) (*media.Description, error) {
	if !c.IsConfigured() {
		return nil, ErrAPIKeyMissing
	}

	endpoint := fmt.Sprintf("%s/movie/%s", c.config.BaseURL, url.PathEscape(id))

	var doc movieDoc
	if err := c.doRequest(ctx, endpoint, nil, &doc); err != nil {
		return nil, err
	}

	desc := &media.Description{
		Item:     c.toItem(doc),
		Overview: doc.Description,
	}
	if desc.Overview == "" {
		desc.Overview = doc.ShortDescription
	}

	if doc.IsSeries {
		seasons, err := c.seasons(ctx, id)
		if err != nil {
			return nil, err
		}
		desc.Seasons = seasons
	}

	c.logger.Debug().
		Str("id", id).
		Str("title", desc.Title).
		Int("seasons", len(desc.Seasons)).
		Msg("Got title details")

	return desc, nil
}

// seasons lists the known seasons of a series.
func (c *Client) seasons(ctx context.Context, id string) ([]media.Season, error) {
	endpoint := fmt.Sprintf("%s/season", c.config.BaseURL)
	params := url.Values{}
	params.Set("movieId", id)
	params.Set("page", "1")
	params.Set("limit", strconv.Itoa(seasonPageLimit))

	var response seasonListResponse
	if err := c.doRequest(ctx, endpoint, params, &response); err != nil {
		return nil, err
	}

	seasons := make([]media.Season, 0, len(response.Docs))
	for _, doc := range response.Docs {
		if doc.Number == nil || *doc.Number <= 0 {
			continue
		}
		seasons = append(seasons, media.Season{
			Number:       *doc.Number,
			Year:         yearFromDate(doc.AirDate),
			EpisodeCount: doc.EpisodesCount,
		})
	}
	return seasons, nil
}

func (c *Client) toItem(doc movieDoc) media.Item {
	originalTitle := doc.AlternativeName
	if originalTitle == "" {
		originalTitle = doc.EnName
	}

	title := doc.Name
	if title == "" {
		title = "Без названия"
	}

	item := media.Item{
		ID:            strconv.Itoa(doc.ID),
		Source:        c.Name(),
		Title:         title,
		OriginalTitle: originalTitle,
		Year:          doc.Year,
		Series:        doc.IsSeries,
	}
	if doc.Poster != nil {
		item.PosterURL = doc.Poster.PreviewURL
	}
	return item
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
	req.Header.Set("X-API-KEY", c.config.APIKey)

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
				Str("message", errResp.Message).
				Msg("Kinopoisk API error")
		}

		switch resp.StatusCode {
		case http.StatusNotFound:
			return ErrNotFound
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: invalid API key", ErrAPIError)
		default:
			return fmt.Errorf("%w: status %d", ErrAPIError, resp.StatusCode)
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// yearFromDate extracts the year from an ISO date like
// "2008-01-20T00:00:00.000Z". Returns 0 when absent or malformed.
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
