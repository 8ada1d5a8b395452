package chat

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seekarr/seekarr/internal/downloader/qbittorrent"
	"github.com/seekarr/seekarr/internal/media"
	"github.com/seekarr/seekarr/internal/metadata"
	"github.com/seekarr/seekarr/internal/search"
	"github.com/seekarr/seekarr/internal/tokenstore"
	"github.com/seekarr/seekarr/internal/torrent"
)

type rendered struct {
	text     string
	keyboard Keyboard
}

type fakeTransport struct {
	mu      sync.Mutex
	history []rendered
	photos  []rendered
	answers []string
	nextID  int
}

func (f *fakeTransport) SendMessage(ctx context.Context, chatID int64, text string, keyboard Keyboard) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = append(f.history, rendered{text: text, keyboard: keyboard})
	f.nextID++
	return f.nextID, nil
}

func (f *fakeTransport) EditMessage(ctx context.Context, chatID int64, messageID int, text string, keyboard Keyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.history = append(f.history, rendered{text: text, keyboard: keyboard})
	return nil
}

func (f *fakeTransport) SendPhoto(ctx context.Context, chatID int64, photoURL, caption string, keyboard Keyboard) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.photos = append(f.photos, rendered{text: caption, keyboard: keyboard})
	f.nextID++
	return f.nextID, nil
}

func (f *fakeTransport) AnswerCallback(ctx context.Context, callbackID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers = append(f.answers, text)
	return nil
}

func (f *fakeTransport) last(t *testing.T) rendered {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.history, "no message rendered")
	return f.history[len(f.history)-1]
}

// button finds the first button whose caption contains label.
func (r rendered) button(t *testing.T, label string) Button {
	t.Helper()
	for _, row := range r.keyboard {
		for _, b := range row {
			if strings.Contains(b.Text, label) {
				return b
			}
		}
	}
	t.Fatalf("no button matching %q in keyboard %v", label, r.keyboard)
	return Button{}
}

type fakeMetadata struct {
	items   []media.Item
	details map[string]*media.Description
}

func (f *fakeMetadata) Name() string { return "fakemeta" }

func (f *fakeMetadata) Search(ctx context.Context, query string) ([]media.Item, error) {
	return f.items, nil
}

func (f *fakeMetadata) Details(ctx context.Context, id string) (*media.Description, error) {
	d, ok := f.details[id]
	if !ok {
		return nil, metadata.ErrUnknownBackend
	}
	return d, nil
}

type fakeTorrents struct {
	results    []torrent.RawResult
	detail     *torrent.Detail
	downloaded []string
}

func (f *fakeTorrents) Name() string { return "faketracker" }

func (f *fakeTorrents) Search(ctx context.Context, query string) ([]torrent.RawResult, error) {
	return f.results, nil
}

func (f *fakeTorrents) Detail(ctx context.Context, id string) (*torrent.Detail, error) {
	return f.detail, nil
}

func (f *fakeTorrents) Download(ctx context.Context, id string) (*torrent.File, error) {
	f.downloaded = append(f.downloaded, id)
	return &torrent.File{Path: "/tmp/" + id + ".torrent", Name: id + ".torrent"}, nil
}

type fakeDownloader struct {
	added    [][2]string
	statuses []qbittorrent.Status
}

func (f *fakeDownloader) Add(ctx context.Context, torrentPath, libraryName string) error {
	f.added = append(f.added, [2]string{torrentPath, libraryName})
	return nil
}

func (f *fakeDownloader) List(ctx context.Context) ([]qbittorrent.Status, error) {
	return f.statuses, nil
}

type fixture struct {
	flow      *Flow
	transport *fakeTransport
	torrents  *fakeTorrents
	downloads *fakeDownloader
	tokens    *tokenstore.Memory
}

func newFixture(t *testing.T, meta *fakeMetadata, tor *fakeTorrents) *fixture {
	t.Helper()

	tokens := tokenstore.NewMemory(time.Hour)
	t.Cleanup(tokens.Close)

	metaRegistry := metadata.NewRegistry()
	metaRegistry.Register(meta, true)

	torRegistry := torrent.NewRegistry()
	torRegistry.Register(tor, true)

	transport := &fakeTransport{}
	downloads := &fakeDownloader{}

	flow := NewFlow(FlowConfig{
		Transport: transport,
		Metadata:  metaRegistry,
		Search:    search.NewService(torRegistry, tokens, zerolog.Nop()),
		Torrents:  torRegistry,
		Downloads: downloads,
		Tokens:    tokens,
	}, zerolog.Nop())

	return &fixture{
		flow:      flow,
		transport: transport,
		torrents:  tor,
		downloads: downloads,
		tokens:    tokens,
	}
}

func press(f *fixture, ctx context.Context, token string) {
	f.flow.HandleCallback(ctx, Callback{
		ID:        "cb",
		ChatID:    1,
		UserID:    7,
		MessageID: 42,
		Token:     token,
	})
}

func TestFlowMovieWalkthrough(t *testing.T) {
	ctx := context.Background()

	meta := &fakeMetadata{
		items: []media.Item{
			{ID: "100", Source: "fakemeta", Title: "Дюна", Year: 2021},
		},
		details: map[string]*media.Description{
			"100": {
				Item:     media.Item{ID: "100", Source: "fakemeta", Title: "Дюна", OriginalTitle: "Dune", Year: 2021},
				Overview: "Пустынная планета.",
			},
		},
	}
	tor := &fakeTorrents{
		results: []torrent.RawResult{
			{ID: "t1", Name: "Дюна / Dune (2021) 2160p", Size: "40 GB", Seeds: 15, Peers: 3},
			{ID: "t2", Name: "Дюна / Dune (2021) 1080p", Size: "12 GB", Seeds: 50, Peers: 9},
		},
		detail: &torrent.Detail{Name: "Дюна / Dune (2021) 1080p", Year: "2021"},
	}
	fx := newFixture(t, meta, tor)

	// Free text resolves to a media hit list.
	fx.flow.HandleText(ctx, TextMessage{ChatID: 1, UserID: 7, Text: "дюна"})
	hits := fx.transport.last(t)
	assert.Contains(t, hits.text, "Результаты поиска для «дюна»")

	// Picking the movie skips season choice and searches torrents.
	press(fx, ctx, hits.button(t, "Дюна (2021)").Token)
	results := fx.transport.last(t)
	assert.Contains(t, results.text, "Выберите результат для «Дюна (2021)»")
	resultButton := results.button(t, "1080p")
	assert.Contains(t, resultButton.Text, "⬆️50")
	results.button(t, labelBack)

	// The detail page offers the download.
	press(fx, ctx, resultButton.Token)
	detail := fx.transport.last(t)
	assert.Contains(t, detail.text, "Дюна / Dune (2021) 1080p")

	// Downloading queues the file under the clean library name.
	press(fx, ctx, detail.button(t, labelDownload).Token)
	require.Len(t, fx.downloads.added, 1)
	assert.Equal(t, "/tmp/t2.torrent", fx.downloads.added[0][0])
	assert.Equal(t, "Дюна (2021)", fx.downloads.added[0][1])
	assert.Equal(t, []string{"t2"}, fx.torrents.downloaded)
	assert.Contains(t, fx.transport.last(t).text, msgQueued)
}

func TestFlowSeriesSeasonChoice(t *testing.T) {
	ctx := context.Background()

	meta := &fakeMetadata{
		items: []media.Item{
			{ID: "200", Source: "fakemeta", Title: "Во все тяжкие", Year: 2008, Series: true},
		},
		details: map[string]*media.Description{
			"200": {
				Item: media.Item{ID: "200", Source: "fakemeta", Title: "Во все тяжкие", OriginalTitle: "Breaking Bad", Year: 2008, Series: true},
				Seasons: []media.Season{
					{Number: 1, Year: 2008},
					{Number: 2, Year: 2009},
				},
			},
		},
	}
	tor := &fakeTorrents{
		results: []torrent.RawResult{
			{ID: "s1", Name: "Во все тяжкие / Breaking Bad [S01] 1080p", Size: "18 GB", Seeds: 31, Peers: 4},
		},
	}
	fx := newFixture(t, meta, tor)

	fx.flow.HandleText(ctx, TextMessage{ChatID: 1, UserID: 7, Text: "во все тяжкие"})
	press(fx, ctx, fx.transport.last(t).button(t, "Во все тяжкие").Token)

	seasons := fx.transport.last(t)
	assert.Contains(t, seasons.text, "Сериал: Во все тяжкие (2008)")
	assert.Contains(t, seasons.text, "Выберите сезон:")
	seasons.button(t, labelBackToSearch)

	press(fx, ctx, seasons.button(t, "Сезон 1 (2008)").Token)
	results := fx.transport.last(t)
	assert.Contains(t, results.text, "Выберите результат для «Во все тяжкие (сезон 1)»")
	results.button(t, "⬆️31")
}

func TestFlowNoTorrentResults(t *testing.T) {
	ctx := context.Background()

	meta := &fakeMetadata{
		items: []media.Item{{ID: "300", Source: "fakemeta", Title: "Нечто", Year: 1982}},
		details: map[string]*media.Description{
			"300": {Item: media.Item{ID: "300", Source: "fakemeta", Title: "Нечто", Year: 1982}},
		},
	}
	fx := newFixture(t, meta, &fakeTorrents{})

	fx.flow.HandleText(ctx, TextMessage{ChatID: 1, UserID: 7, Text: "нечто"})
	press(fx, ctx, fx.transport.last(t).button(t, "Нечто").Token)

	miss := fx.transport.last(t)
	assert.Equal(t, msgNothingFound, miss.text)
	// Back to the hit list stays available even on a miss.
	miss.button(t, labelBack)
}

func TestFlowExpiredToken(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, &fakeMetadata{}, &fakeTorrents{})

	press(fx, ctx, "no-such-token")

	require.NotEmpty(t, fx.transport.answers)
	assert.Equal(t, msgExpired, fx.transport.answers[0])
	assert.Empty(t, fx.transport.history)
}

func TestFlowDetailWithPoster(t *testing.T) {
	ctx := context.Background()

	meta := &fakeMetadata{
		items: []media.Item{{ID: "400", Source: "fakemeta", Title: "Дюна", Year: 2021}},
		details: map[string]*media.Description{
			"400": {Item: media.Item{ID: "400", Source: "fakemeta", Title: "Дюна", Year: 2021}},
		},
	}
	tor := &fakeTorrents{
		results: []torrent.RawResult{
			{ID: "p1", Name: "Дюна (2021) 1080p", Size: "12 GB", Seeds: 5, Peers: 1},
		},
		detail: &torrent.Detail{Name: "Дюна (2021) 1080p", ImageURL: "https://example.com/p.jpg"},
	}
	fx := newFixture(t, meta, tor)

	fx.flow.HandleText(ctx, TextMessage{ChatID: 1, UserID: 7, Text: "дюна"})
	press(fx, ctx, fx.transport.last(t).button(t, "Дюна").Token)
	press(fx, ctx, fx.transport.last(t).button(t, "1080p").Token)

	require.Len(t, fx.transport.photos, 1)
	photo := fx.transport.photos[0]
	assert.Contains(t, photo.text, "Дюна (2021) 1080p")
	photo.button(t, labelDownload)
	photo.button(t, labelBack)
}

func TestFlowQueueStatus(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, &fakeMetadata{}, &fakeTorrents{})
	fx.downloads.statuses = []qbittorrent.Status{
		{
			Name:       "Дюна (2021)",
			State:      "downloading",
			Progress:   0.5,
			Size:       12 * 1024 * 1024 * 1024,
			DlSpeed:    10 * 1024 * 1024,
			ETASeconds: 600,
		},
		{Name: "Нечто (1982)", State: "uploading", Progress: 1, Size: 8 * 1024 * 1024 * 1024},
	}

	fx.flow.HandleText(ctx, TextMessage{ChatID: 1, UserID: 7, Text: "/status"})

	queue := fx.transport.last(t)
	assert.Contains(t, queue.text, "Дюна (2021)")
	assert.Contains(t, queue.text, "50.0%")
	assert.Contains(t, queue.text, "10.00 MB/s")
	assert.Contains(t, queue.text, "0h 10m 0s left")
	// Completed torrents skip the speed line.
	assert.NotContains(t, queue.text, "uploading | 100.0%\n")
	refresh := queue.button(t, labelRefresh)

	press(fx, ctx, refresh.Token)
	assert.Contains(t, fx.transport.last(t).text, "Нечто (1982)")
}

func TestFlowGreeting(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t, &fakeMetadata{}, &fakeTorrents{})

	fx.flow.HandleText(ctx, TextMessage{ChatID: 1, UserID: 7, Text: "/start"})
	assert.Equal(t, msgGreeting, fx.transport.last(t).text)
}
