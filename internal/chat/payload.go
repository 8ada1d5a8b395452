package chat

import (
	"context"
	"fmt"

	"github.com/seekarr/seekarr/internal/media"
	"github.com/seekarr/seekarr/internal/tokenstore"
)

// Button payload actions. Every interactive button stores one of these
// payloads in the token store; the action field picks the handler when
// the button comes back.
const (
	actionMediaList    = "media-list"
	actionMediaSelect  = "media-select"
	actionSeasonSelect = "season-select"
	actionResultsList  = "results-list"
	actionResultDetail = "result-detail"
	actionDownload     = "download"
	actionQueueRefresh = "queue-refresh"
)

// mediaListPayload re-runs a metadata search, used by back buttons.
type mediaListPayload struct {
	Action string `json:"action"`
	Query  string `json:"query"`
}

// mediaSelectPayload carries one metadata search hit.
type mediaSelectPayload struct {
	Action string     `json:"action"`
	Item   media.Item `json:"item"`
	Query  string     `json:"query"`
}

// seasonSelectPayload carries the fully resolved media plus the chosen
// season, ready for the torrent search.
type seasonSelectPayload struct {
	Action string             `json:"action"`
	Media  *media.Description `json:"media"`
	Season int                `json:"season"`
	Query  string             `json:"query"`
}

// resultsListPayload re-renders a cached torrent result set.
type resultsListPayload struct {
	Action   string `json:"action"`
	SetToken string `json:"setToken"`
}

// resultDetailPayload opens the detail page of one torrent result.
type resultDetailPayload struct {
	Action   string `json:"action"`
	Provider string `json:"provider"`
	ID       string `json:"id"`
	// LibraryName is the clean name the payload is renamed to after the
	// download is queued.
	LibraryName string `json:"libraryName,omitempty"`
	SetToken    string `json:"setToken,omitempty"`
}

// downloadPayload queues one torrent for download.
type downloadPayload struct {
	Action      string `json:"action"`
	Provider    string `json:"provider"`
	ID          string `json:"id"`
	LibraryName string `json:"libraryName,omitempty"`
	SetToken    string `json:"setToken,omitempty"`
}

// queueRefreshPayload re-renders the download-queue status message.
type queueRefreshPayload struct {
	Action string `json:"action"`
}

// saveToken stores a button payload and returns its token.
func saveToken(ctx context.Context, store tokenstore.Store, payload any) (string, error) {
	token, err := store.Save(ctx, payload)
	if err != nil {
		return "", fmt.Errorf("saving button payload: %w", err)
	}
	return token, nil
}
