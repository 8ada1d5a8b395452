// Package rutracker implements the torrent provider for rutracker.org.
// Search requires an authenticated forum session, so the client logs in
// eagerly before the first search. Pages are served in windows-1251.
package rutracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"
	"golang.org/x/text/encoding/charmap"

	"github.com/seekarr/seekarr/internal/config"
	"github.com/seekarr/seekarr/internal/torrent"
)

const providerName = "rutracker"

// loginMarker is the submit value of the forum login form.
const loginMarker = "вход"

// Client is a rutracker.org scraping client.
type Client struct {
	httpClient  *http.Client
	config      config.TrackerConfig
	downloadDir string
	logger      zerolog.Logger

	loginMu  sync.Mutex
	loggedIn bool
}

// New creates a rutracker client.
func New(cfg config.TrackerConfig, downloadDir string, logger zerolog.Logger) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
			Jar:     jar,
			// The forum marks a successful login with a 302; following
			// it would hide the status from the caller.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		config:      cfg,
		downloadDir: downloadDir,
		logger:      logger.With().Str("component", providerName).Logger(),
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return providerName
}

// Search scrapes the tracker search page for one query.
func (c *Client) Search(ctx context.Context, query string) ([]torrent.RawResult, error) {
	if err := c.ensureLoggedIn(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("nm", query)

	reqURL := fmt.Sprintf("%s/tracker.php?%s", c.config.BaseURL, params.Encode())
	doc, err := c.fetchDocument(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	results := parseSearchResults(doc)

	c.logger.Debug().
		Str("query", query).
		Int("results", len(results)).
		Msg("Search completed")

	return results, nil
}

// Detail scrapes the topic page of one torrent. The forum exposes no
// structured film metadata, so only the topic title and poster image
// are filled in.
func (c *Client) Detail(ctx context.Context, id string) (*torrent.Detail, error) {
	reqURL := fmt.Sprintf("%s/viewtopic.php?t=%s", c.config.BaseURL, url.QueryEscape(id))
	doc, err := c.fetchDocument(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(doc.Find("h1.maintitle").First().Text())
	if name == "" {
		return nil, torrent.NewNotFoundError(providerName, "topic "+id+" not found")
	}

	detail := &torrent.Detail{Name: name}
	if src, ok := doc.Find("var.postImg").First().Attr("title"); ok {
		detail.ImageURL = src
	}
	return detail, nil
}

// Download fetches the .torrent file for one topic id.
func (c *Client) Download(ctx context.Context, id string) (*torrent.File, error) {
	if err := c.ensureLoggedIn(ctx); err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s/dl.php?t=%s", c.config.BaseURL, url.QueryEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, torrent.NewNetworkError(providerName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, torrent.NewNetworkError(providerName,
			fmt.Errorf("download request returned status %d", resp.StatusCode))
	}

	if !strings.Contains(resp.Header.Get("Content-Type"), "application/x-bittorrent") {
		return nil, torrent.NewAuthError(providerName,
			fmt.Errorf("account has no download access for topic %s", id))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, torrent.NewNetworkError(providerName, err)
	}

	if err := os.MkdirAll(c.downloadDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create download dir: %w", err)
	}

	name := id + ".torrent"
	path := filepath.Join(c.downloadDir, name)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write torrent file: %w", err)
	}

	c.logger.Info().
		Str("id", id).
		Str("path", path).
		Msg("Torrent file downloaded")

	return &torrent.File{Path: path, Name: name}, nil
}

// ensureLoggedIn performs the forum login once per client. Network
// errors are retried; a rejected login is authoritative and is not.
func (c *Client) ensureLoggedIn(ctx context.Context) error {
	c.loginMu.Lock()
	defer c.loginMu.Unlock()

	if c.loggedIn {
		return nil
	}
	if !c.config.Enabled() {
		return torrent.NewConfigError("rutracker credentials are not configured")
	}

	return retry.Do(
		func() error { return c.login(ctx) },
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(time.Second),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return errors.Is(err, torrent.ErrNetwork) }),
	)
}

func (c *Client) login(ctx context.Context) error {
	form := url.Values{}
	form.Set("login_username", c.config.Username)
	form.Set("login_password", c.config.Password)
	form.Set("login", loginMarker)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/login.php", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return torrent.NewNetworkError(providerName, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusFound {
		return torrent.NewAuthError(providerName,
			fmt.Errorf("login returned status %d", resp.StatusCode))
	}

	base, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return torrent.NewConfigError("invalid rutracker base url: " + c.config.BaseURL)
	}
	for _, cookie := range c.httpClient.Jar.Cookies(base) {
		if cookie.Name == "bb_session" {
			c.loggedIn = true
			c.logger.Debug().Msg("Logged in")
			return nil
		}
	}

	return torrent.NewAuthError(providerName,
		fmt.Errorf("login did not yield a session cookie"))
}

// fetchDocument GETs a page and parses it, transcoding from the
// forum's windows-1251 encoding.
func (c *Client) fetchDocument(ctx context.Context, reqURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, torrent.NewNetworkError(providerName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, torrent.NewNetworkError(providerName,
			fmt.Errorf("request returned status %d", resp.StatusCode))
	}

	var body io.Reader = resp.Body
	if !strings.Contains(resp.Header.Get("Content-Type"), "utf-8") {
		body = charmap.Windows1251.NewDecoder().Reader(resp.Body)
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, torrent.NewParseError(providerName, "failed to parse page", err)
	}
	return doc, nil
}

// parseSearchResults extracts raw results from a tracker search page.
func parseSearchResults(doc *goquery.Document) []torrent.RawResult {
	var results []torrent.RawResult

	doc.Find("tr.tCenter.hl-tr").Each(func(_ int, row *goquery.Selection) {
		link := row.Find("a.tLink").First()
		if link.Length() == 0 {
			return
		}

		href, _ := link.Attr("href")
		id := idFromHref(href)
		if id == "" {
			return
		}

		size := strings.TrimSpace(row.Find("a.tr-dl").First().Text())
		size = strings.TrimSuffix(size, " ↓")

		seeds := atoiSafe(row.Find("b.seedmed").First().Text())
		peers := atoiSafe(row.Find("td.leechmed").First().Text())

		results = append(results, torrent.RawResult{
			ID:    id,
			Name:  strings.TrimSpace(link.Text()),
			Size:  size,
			Seeds: seeds,
			Peers: peers,
		})
	})

	return results
}

func idFromHref(href string) string {
	_, id, ok := strings.Cut(href, "t=")
	if !ok {
		return ""
	}
	return id
}

func atoiSafe(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
