package kinopoisk

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/seekarr/seekarr/internal/config"
)

func newTestClient(server *httptest.Server) *Client {
	cfg := config.KinopoiskConfig{
		APIKey:      "test-api-key",
		BaseURL:     server.URL,
		SearchLimit: 10,
		Timeout:     5,
	}
	return NewClient(cfg, zerolog.Nop())
}

func TestClient_Name(t *testing.T) {
	client := NewClient(config.KinopoiskConfig{}, zerolog.Nop())
	if client.Name() != "kinopoisk" {
		t.Errorf("Name() = %q, want %q", client.Name(), "kinopoisk")
	}
}

func TestClient_SearchNotConfigured(t *testing.T) {
	client := NewClient(config.KinopoiskConfig{}, zerolog.Nop())
	_, err := client.Search(context.Background(), "дюна")
	if !errors.Is(err, ErrAPIKeyMissing) {
		t.Errorf("Search() error = %v, want ErrAPIKeyMissing", err)
	}
}

func TestClient_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movie/search" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("X-API-KEY"); got != "test-api-key" {
			t.Errorf("unexpected api key header: %s", got)
		}
		if got := r.URL.Query().Get("limit"); got != "10" {
			t.Errorf("unexpected limit: %s", got)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"docs": [
				{
					"id": 404900,
					"name": "Во все тяжкие",
					"alternativeName": "Breaking Bad",
					"year": 2008,
					"isSeries": true,
					"poster": {"url": "https://p/full.jpg", "previewUrl": "https://p/preview.jpg"}
				},
				{
					"id": 301,
					"name": "",
					"enName": "The Matrix",
					"year": 1999,
					"isSeries": false
				}
			]
		}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	items, err := client.Search(context.Background(), "во все тяжкие")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("Search() returned %d items, want 2", len(items))
	}

	first := items[0]
	if first.ID != "404900" || !first.Series || first.OriginalTitle != "Breaking Bad" {
		t.Errorf("unexpected first item: %+v", first)
	}
	if first.PosterURL != "https://p/preview.jpg" {
		t.Errorf("unexpected poster url: %s", first.PosterURL)
	}

	second := items[1]
	if second.Title != "Без названия" || second.OriginalTitle != "The Matrix" {
		t.Errorf("unexpected second item: %+v", second)
	}
}

func TestClient_DetailsSeries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/movie/404900":
			w.Write([]byte(`{
				"id": 404900,
				"name": "Во все тяжкие",
				"alternativeName": "Breaking Bad",
				"year": 2008,
				"isSeries": true,
				"description": "Школьный учитель химии..."
			}`))
		case "/season":
			if got := r.URL.Query().Get("movieId"); got != "404900" {
				t.Errorf("unexpected movieId: %s", got)
			}
			w.Write([]byte(`{
				"docs": [
					{"number": 1, "airDate": "2008-01-20T00:00:00.000Z", "episodesCount": 7},
					{"number": 2, "airDate": "2009-03-08T00:00:00.000Z", "episodesCount": 13},
					{"number": 0, "airDate": "2009-02-17T00:00:00.000Z", "episodesCount": 9},
					{"number": null, "airDate": ""}
				]
			}`))
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(server)
	desc, err := client.Details(context.Background(), "404900")
	if err != nil {
		t.Fatalf("Details() error = %v", err)
	}

	if desc.Title != "Во все тяжкие" || !desc.Series {
		t.Errorf("unexpected description: %+v", desc)
	}
	if desc.Overview != "Школьный учитель химии..." {
		t.Errorf("unexpected overview: %s", desc.Overview)
	}
	if len(desc.Seasons) != 2 {
		t.Fatalf("got %d seasons, want 2", len(desc.Seasons))
	}
	if got := desc.SeasonYear(1); got != 2008 {
		t.Errorf("SeasonYear(1) = %d, want 2008", got)
	}
}

func TestClient_DetailsMovieShortDescriptionFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/season" {
			t.Error("movies must not trigger a season request")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": 301,
			"name": "Матрица",
			"alternativeName": "The Matrix",
			"year": 1999,
			"isSeries": false,
			"shortDescription": "Хакер узнаёт правду."
		}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	desc, err := client.Details(context.Background(), "301")
	if err != nil {
		t.Fatalf("Details() error = %v", err)
	}

	if desc.Overview != "Хакер узнаёт правду." {
		t.Errorf("unexpected overview: %s", desc.Overview)
	}
	if len(desc.Seasons) != 0 {
		t.Errorf("movie has %d seasons, want 0", len(desc.Seasons))
	}
}

func TestClient_DetailsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message": "not found", "error": "Not Found"}`))
	}))
	defer server.Close()

	client := newTestClient(server)
	_, err := client.Details(context.Background(), "1")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Details() error = %v, want ErrNotFound", err)
	}
}
