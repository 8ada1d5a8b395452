// Package kinozal implements the torrent provider for kinozal.tv.
// The site has no API; search, detail and download all go through the
// regular HTML pages, served in windows-1251.
package kinozal

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
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/avast/retry-go/v4"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"
	"golang.org/x/text/encoding/charmap"

	"github.com/seekarr/seekarr/internal/config"
	"github.com/seekarr/seekarr/internal/torrent"
)

const providerName = "kinozal"

// Client is a kinozal.tv scraping client. Search and Detail work
// anonymously; Download requires credentials and logs in lazily on
// first use, keeping the session cookies in the HTTP client's jar.
type Client struct {
	httpClient  *http.Client
	config      config.TrackerConfig
	downloadDir string
	logger      zerolog.Logger

	loginMu  sync.Mutex
	loggedIn bool
}

// New creates a kinozal client.
func New(cfg config.TrackerConfig, downloadDir string, logger zerolog.Logger) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
			Jar:     jar,
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

// Search scrapes the browse page for one query. The t and g parameters
// pin the site's sort and category the same way the web UI does for
// movie and series listings.
func (c *Client) Search(ctx context.Context, query string) ([]torrent.RawResult, error) {
	params := url.Values{}
	params.Set("s", query)
	params.Set("v", "0")
	params.Set("t", "1")
	params.Set("g", "3")

	reqURL := fmt.Sprintf("%s/browse.php?%s", c.config.BaseURL, params.Encode())
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

// Detail scrapes the detail page of one torrent.
func (c *Client) Detail(ctx context.Context, id string) (*torrent.Detail, error) {
	reqURL := fmt.Sprintf("%s/details.php?id=%s", c.config.BaseURL, url.QueryEscape(id))
	doc, err := c.fetchDocument(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	detail := parseDetail(doc, c.config.BaseURL)
	if detail.Name == "" {
		return nil, torrent.NewNotFoundError(providerName, "torrent "+id+" not found")
	}

	c.logger.Debug().
		Str("id", id).
		Str("name", detail.Name).
		Msg("Got torrent detail")

	return detail, nil
}

// Download fetches the .torrent file for one id into the download
// directory. The site answers download requests from accounts without
// download rights with a payment page instead of an error status.
func (c *Client) Download(ctx context.Context, id string) (*torrent.File, error) {
	if err := c.ensureLoggedIn(ctx); err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s/download.php?id=%s", c.config.BaseURL, url.QueryEscape(id))
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

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, torrent.NewNetworkError(providerName, err)
	}

	if !strings.Contains(resp.Header.Get("Content-Type"), "application/x-bittorrent") ||
		strings.Contains(string(body), "pay.php") {
		return nil, torrent.NewAuthError(providerName,
			fmt.Errorf("account has no download access for torrent %s", id))
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

// ensureLoggedIn performs the form login once per client. The site
// marks a successful login by setting uid and pass cookies. Network
// errors are retried; a rejected login is authoritative and is not.
func (c *Client) ensureLoggedIn(ctx context.Context) error {
	c.loginMu.Lock()
	defer c.loginMu.Unlock()

	if c.loggedIn {
		return nil
	}
	if !c.config.Enabled() {
		return torrent.NewConfigError("kinozal credentials are not configured")
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
	form.Set("username", c.config.Username)
	form.Set("password", c.config.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.config.BaseURL+"/takelogin.php", strings.NewReader(form.Encode()))
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

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusFound {
		return torrent.NewAuthError(providerName,
			fmt.Errorf("login returned status %d", resp.StatusCode))
	}

	base, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return torrent.NewConfigError("invalid kinozal base url: " + c.config.BaseURL)
	}
	for _, cookie := range c.httpClient.Jar.Cookies(base) {
		if cookie.Name == "uid" {
			c.loggedIn = true
			c.logger.Debug().Msg("Logged in")
			return nil
		}
	}

	return torrent.NewAuthError(providerName,
		fmt.Errorf("login did not yield a session cookie"))
}

// fetchDocument GETs a page and parses it, transcoding from the site's
// windows-1251 encoding.
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

// parseSearchResults extracts raw results from a browse page. Rows
// without a name cell are decoration and skipped.
func parseSearchResults(doc *goquery.Document) []torrent.RawResult {
	var results []torrent.RawResult

	doc.Find("tr.bg").Each(func(_ int, row *goquery.Selection) {
		link := row.Find("td.nam a").First()
		if link.Length() == 0 {
			return
		}

		href, _ := link.Attr("href")
		id := idFromHref(href)
		if id == "" {
			return
		}

		// The first td.s cell is the comment count, the second the size.
		size := strings.TrimSpace(row.Find("td.s").Eq(1).Text())
		seeds := atoiSafe(row.Find("td.sl_s").First().Text())
		peers := atoiSafe(row.Find("td.sl_p").First().Text())

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

// parseDetail extracts the detail page fields.
func parseDetail(doc *goquery.Document, baseURL string) *torrent.Detail {
	detail := &torrent.Detail{
		Name:     strings.TrimSpace(doc.Find("h1 a").First().Text()),
		Year:     labelText(doc, "Год выпуска:"),
		Director: labelSpanText(doc, "Режиссер:"),
		Genres:   splitList(labelSpanText(doc, "Жанр:")),
		Actors:   splitList(labelSpanText(doc, "В ролях:")),
	}

	if src, ok := doc.Find("img.p200").First().Attr("src"); ok {
		if strings.HasPrefix(src, "http") {
			detail.ImageURL = src
		} else {
			detail.ImageURL = baseURL + src
		}
	}

	detail.Ratings = torrent.Ratings{
		IMDB:      ratingText(doc, "imdb.com"),
		Kinopoisk: ratingText(doc, "kinopoisk.ru"),
	}

	doc.Find("div#tabs b").Each(func(_ int, b *goquery.Selection) {
		key := strings.TrimSpace(b.Text())
		if key == "" {
			return
		}
		detail.Attributes = append(detail.Attributes, torrent.Attribute{
			Key:   key,
			Value: nextText(b),
		})
	})

	return detail
}

// labelText finds a <b> tag containing the label and returns the text
// node that follows it.
func labelText(doc *goquery.Document, label string) string {
	var out string
	doc.Find("b").EachWithBreak(func(_ int, b *goquery.Selection) bool {
		if strings.Contains(b.Text(), label) {
			out = nextText(b)
			return false
		}
		return true
	})
	return out
}

// labelSpanText finds a <b> tag containing the label and returns the
// text of the <span> sibling that follows it.
func labelSpanText(doc *goquery.Document, label string) string {
	var out string
	doc.Find("b").EachWithBreak(func(_ int, b *goquery.Selection) bool {
		if strings.Contains(b.Text(), label) {
			out = strings.TrimSpace(b.NextFiltered("span").Text())
			return false
		}
		return true
	})
	return out
}

// ratingText returns the rating figure next to an external rating link.
func ratingText(doc *goquery.Document, host string) string {
	var out string
	doc.Find("a[href*='" + host + "']").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if text := strings.TrimSpace(a.Find("span").First().Text()); text != "" {
			out = text
			return false
		}
		return true
	})
	if out == "" {
		return "-"
	}
	return out
}

// nextText returns the trimmed text node immediately following the
// selection's first element.
func nextText(s *goquery.Selection) string {
	node := s.Get(0)
	if node == nil || node.NextSibling == nil || node.NextSibling.Type != html.TextNode {
		return ""
	}
	return strings.TrimSpace(node.NextSibling.Data)
}

func idFromHref(href string) string {
	_, id, ok := strings.Cut(href, "id=")
	if !ok {
		return ""
	}
	return id
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ", ")
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
	}
	return parts
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range strings.TrimSpace(s) {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
