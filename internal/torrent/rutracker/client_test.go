package rutracker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/seekarr/seekarr/internal/config"
	"github.com/seekarr/seekarr/internal/torrent"
)

const trackerPage = `<html><body><table>
<tr class="tCenter hl-tr">
  <td><a class="tLink" href="viewtopic.php?t=5551212">Во все тяжкие / Breaking Bad / Сезон: 1 [WEB-DL 1080p]</a></td>
  <td><a class="tr-dl" href="dl.php?t=5551212">18.5 GB ↓</a></td>
  <td><b class="seedmed">31</b></td>
  <td class="leechmed">4</td>
</tr>
<tr class="tCenter hl-tr"><td>no link row</td></tr>
</table></body></html>`

func login(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{Name: "bb_session", Value: "1-abc", Path: "/"})
	w.WriteHeader(http.StatusFound)
}

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	cfg := config.TrackerConfig{
		BaseURL:  server.URL,
		Username: "user",
		Password: "secret",
		Timeout:  5,
	}
	return New(cfg, t.TempDir(), zerolog.Nop())
}

func TestClient_Search(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login.php":
			if err := r.ParseForm(); err != nil {
				t.Fatalf("bad login form: %v", err)
			}
			if r.PostForm.Get("login_username") != "user" {
				t.Errorf("unexpected login form: %v", r.PostForm)
			}
			login(w)
		case "/tracker.php":
			if got := r.URL.Query().Get("nm"); got != "Во все тяжкие сезон 1" {
				t.Errorf("unexpected query: %s", got)
			}
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(trackerPage))
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server)
	results, err := client.Search(context.Background(), "Во все тяжкие сезон 1")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("Search() returned %d results, want 1", len(results))
	}
	got := results[0]
	if got.ID != "5551212" {
		t.Errorf("unexpected id: %s", got.ID)
	}
	if got.Size != "18.5 GB" {
		t.Errorf("unexpected size: %q", got.Size)
	}
	if got.Seeds != 31 || got.Peers != 4 {
		t.Errorf("unexpected swarm counts: seeds=%d peers=%d", got.Seeds, got.Peers)
	}
}

func TestClient_SearchLoginRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Failed forum logins re-render the form with a 200.
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.Search(context.Background(), "anything")
	if !errors.Is(err, torrent.ErrAuth) {
		t.Errorf("Search() error = %v, want ErrAuth", err)
	}
}

func TestClient_SearchWithoutCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected without credentials")
	}))
	defer server.Close()

	client := New(config.TrackerConfig{BaseURL: server.URL, Timeout: 5}, t.TempDir(), zerolog.Nop())
	_, err := client.Search(context.Background(), "anything")
	if !errors.Is(err, torrent.ErrConfiguration) {
		t.Errorf("Search() error = %v, want ErrConfiguration", err)
	}
}

func TestClient_Download(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login.php":
			login(w)
		case "/dl.php":
			if got := r.URL.Query().Get("t"); got != "5551212" {
				t.Errorf("unexpected topic id: %s", got)
			}
			w.Header().Set("Content-Type", "application/x-bittorrent")
			w.Write([]byte("d8:announce3:urle"))
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
	}))
	defer server.Close()

	client := newTestClient(t, server)
	file, err := client.Download(context.Background(), "5551212")
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if file.Name != "5551212.torrent" {
		t.Errorf("unexpected file name: %s", file.Name)
	}
}

func TestClient_DownloadNoAccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login.php":
			login(w)
		case "/dl.php":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte("<html>гостевой доступ запрещён</html>"))
		}
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.Download(context.Background(), "5551212")
	if !errors.Is(err, torrent.ErrAuth) {
		t.Errorf("Download() error = %v, want ErrAuth", err)
	}
}
