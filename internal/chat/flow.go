package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/seekarr/seekarr/internal/downloader/qbittorrent"
	"github.com/seekarr/seekarr/internal/media"
	"github.com/seekarr/seekarr/internal/metadata"
	"github.com/seekarr/seekarr/internal/search"
	"github.com/seekarr/seekarr/internal/tokenstore"
	"github.com/seekarr/seekarr/internal/torrent"
)

// maxMediaButtons caps the metadata hits offered per search.
const maxMediaButtons = 10

// User-facing strings and button labels, in the audience's language.
const (
	msgGreeting       = "Отправьте название фильма или сериала для поиска."
	msgNothingFound   = "По запросу ничего не найдено."
	msgSearchFailed   = "Не удалось выполнить поиск по торрентам."
	msgMetadataFailed = "Не удалось выполнить поиск. Попробуйте позже."
	msgExpired        = "Сессия истекла. Отправьте запрос заново."
	msgQueued         = "Торрент добавлен в загрузки."
	msgQueueFailed    = "Не удалось добавить торрент в загрузки."
	msgQueueEmpty     = "Загрузок нет."

	labelBack         = "Назад"
	labelBackToSearch = "Назад к результатам поиска"
	labelDownload     = "Скачать"
	labelRefresh      = "Обновить"
)

// Downloader is the slice of the download client the flow drives.
type Downloader interface {
	Add(ctx context.Context, torrentPath, libraryName string) error
	List(ctx context.Context) ([]qbittorrent.Status, error)
}

// FlowConfig carries the collaborators a Flow is built from. Downloads
// may be nil when no download client is configured.
type FlowConfig struct {
	Transport Transport
	Metadata  *metadata.Registry
	Search    *search.Service
	Torrents  *torrent.Registry
	Downloads Downloader
	Tokens    tokenstore.Store
}

// Flow is the conversation engine. It is stateless between updates:
// everything a button press needs is resolved from its token.
type Flow struct {
	transport Transport
	metadata  *metadata.Registry
	search    *search.Service
	torrents  *torrent.Registry
	downloads Downloader
	tokens    tokenstore.Store
	logger    zerolog.Logger
}

// NewFlow assembles the conversation engine.
func NewFlow(cfg FlowConfig, logger zerolog.Logger) *Flow {
	return &Flow{
		transport: cfg.Transport,
		metadata:  cfg.Metadata,
		search:    cfg.Search,
		torrents:  cfg.Torrents,
		downloads: cfg.Downloads,
		tokens:    cfg.Tokens,
		logger:    logger.With().Str("component", "chat").Logger(),
	}
}

// HandleText treats commands specially and everything else as a
// metadata search query.
func (f *Flow) HandleText(ctx context.Context, msg TextMessage) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	switch text {
	case "/start", "/help":
		f.send(ctx, msg.ChatID, msgGreeting, nil)
	case "/status", "/downloads":
		f.renderQueue(ctx, msg.ChatID, 0)
	default:
		f.renderMediaSearch(ctx, msg.ChatID, 0, text)
	}
}

// HandleCallback resolves a button token and dispatches on the stored
// action. Expired tokens flash a restart prompt instead of failing.
func (f *Flow) HandleCallback(ctx context.Context, cb Callback) {
	var envelope tokenstore.Envelope
	if err := f.tokens.Get(ctx, cb.Token, &envelope); err != nil {
		if errors.Is(err, tokenstore.ErrNotFound) {
			f.answer(ctx, cb.ID, msgExpired)
			return
		}
		f.logger.Error().Err(err).Msg("Failed to resolve callback token")
		f.answer(ctx, cb.ID, msgExpired)
		return
	}

	f.logger.Debug().
		Str("action", envelope.Action).
		Int64("user", cb.UserID).
		Msg("Handling callback")

	switch envelope.Action {
	case actionMediaList:
		var payload mediaListPayload
		if f.loadPayload(ctx, cb, &payload) {
			f.renderMediaSearch(ctx, cb.ChatID, cb.MessageID, payload.Query)
		}
	case actionMediaSelect:
		var payload mediaSelectPayload
		if f.loadPayload(ctx, cb, &payload) {
			f.handleMediaSelect(ctx, cb, payload)
		}
	case actionSeasonSelect:
		var payload seasonSelectPayload
		if f.loadPayload(ctx, cb, &payload) {
			f.searchTorrents(ctx, cb, payload.Media, payload.Season, payload.Query)
		}
	case actionResultsList:
		var payload resultsListPayload
		if f.loadPayload(ctx, cb, &payload) {
			f.handleResultsList(ctx, cb, payload)
		}
	case actionResultDetail:
		var payload resultDetailPayload
		if f.loadPayload(ctx, cb, &payload) {
			f.handleResultDetail(ctx, cb, payload)
		}
	case actionDownload:
		var payload downloadPayload
		if f.loadPayload(ctx, cb, &payload) {
			f.handleDownload(ctx, cb, payload)
		}
	case actionQueueRefresh:
		f.renderQueue(ctx, cb.ChatID, cb.MessageID)
	default:
		f.logger.Warn().Str("action", envelope.Action).Msg("Unknown callback action")
		f.answer(ctx, cb.ID, msgExpired)
		return
	}

	f.answer(ctx, cb.ID, "")
}

// renderMediaSearch resolves free text through the metadata backend and
// offers the hits as buttons.
func (f *Flow) renderMediaSearch(ctx context.Context, chatID int64, messageID int, query string) {
	provider, err := f.metadata.Default()
	if err != nil {
		f.logger.Error().Err(err).Msg("No metadata backend configured")
		f.render(ctx, chatID, messageID, msgMetadataFailed, nil)
		return
	}

	items, err := provider.Search(ctx, query)
	if err != nil {
		f.logger.Error().Err(err).Str("query", query).Msg("Metadata search failed")
		f.render(ctx, chatID, messageID, msgMetadataFailed, nil)
		return
	}
	if len(items) == 0 {
		f.render(ctx, chatID, messageID, msgNothingFound, nil)
		return
	}
	if len(items) > maxMediaButtons {
		items = items[:maxMediaButtons]
	}

	var keyboard Keyboard
	for _, item := range items {
		token, err := saveToken(ctx, f.tokens, mediaSelectPayload{
			Action: actionMediaSelect,
			Item:   item,
			Query:  query,
		})
		if err != nil {
			f.logger.Error().Err(err).Msg("Failed to cache media button")
			continue
		}
		keyboard = append(keyboard, Row(itemCaption(item), token))
	}

	text := fmt.Sprintf("Результаты поиска для «%s». Выберите подходящий вариант:", query)
	f.render(ctx, chatID, messageID, text, keyboard)
}

// handleMediaSelect fetches the full description of the picked item.
// Series branch into a season choice; movies go straight to the
// torrent search.
func (f *Flow) handleMediaSelect(ctx context.Context, cb Callback, payload mediaSelectPayload) {
	provider, err := f.metadataFor(payload.Item.Source)
	if err != nil {
		f.logger.Error().Err(err).Str("source", payload.Item.Source).Msg("No metadata backend for item")
		f.render(ctx, cb.ChatID, cb.MessageID, msgMetadataFailed, nil)
		return
	}

	desc, err := provider.Details(ctx, payload.Item.ID)
	if err != nil {
		f.logger.Error().Err(err).Str("id", payload.Item.ID).Msg("Failed to fetch media details")
		f.render(ctx, cb.ChatID, cb.MessageID, msgMetadataFailed, nil)
		return
	}

	if desc.Series && len(desc.Seasons) > 0 {
		f.renderSeasonChoice(ctx, cb, desc, payload.Query)
		return
	}
	f.searchTorrents(ctx, cb, desc, 0, payload.Query)
}

// renderSeasonChoice offers one button per known season.
func (f *Flow) renderSeasonChoice(ctx context.Context, cb Callback, desc *media.Description, query string) {
	var keyboard Keyboard
	for _, season := range desc.Seasons {
		token, err := saveToken(ctx, f.tokens, seasonSelectPayload{
			Action: actionSeasonSelect,
			Media:  desc,
			Season: season.Number,
			Query:  query,
		})
		if err != nil {
			f.logger.Error().Err(err).Msg("Failed to cache season button")
			continue
		}
		keyboard = append(keyboard, Row(SeasonLabel(season.Number, season.Year), token))
	}

	if backToken, err := saveToken(ctx, f.tokens, mediaListPayload{
		Action: actionMediaList,
		Query:  query,
	}); err == nil {
		keyboard = append(keyboard, Row(labelBackToSearch, backToken))
	}

	parts := []string{MediaCaption(desc)}
	if desc.Overview != "" {
		parts = append(parts, desc.Overview)
	}
	parts = append(parts, "Выберите сезон:")
	f.render(ctx, cb.ChatID, cb.MessageID, strings.Join(parts, "\n\n"), keyboard)
}

// searchTorrents runs the torrent search for a resolved media item and
// renders the ranked result set. Season 0 means a movie search.
func (f *Flow) searchTorrents(ctx context.Context, cb Callback, desc *media.Description, season int, query string) {
	label := desc.Label()
	if season > 0 {
		label = fmt.Sprintf("%s (сезон %d)", desc.Title, season)
	}

	// The back button on the result list re-enters the step that led
	// here: the season choice for series, the hit list otherwise.
	backToken, err := saveToken(ctx, f.tokens, mediaSelectPayload{
		Action: actionMediaSelect,
		Item:   desc.Item,
		Query:  query,
	})
	if err != nil {
		f.logger.Error().Err(err).Msg("Failed to cache back button")
		backToken = ""
	}

	set, setToken, err := f.search.Search(ctx, search.Request{
		Media:     desc,
		Season:    season,
		Label:     label,
		BackToken: backToken,
	})
	if err != nil {
		keyboard := backKeyboard(backToken)
		if errors.Is(err, torrent.ErrNoResults) {
			f.render(ctx, cb.ChatID, cb.MessageID, msgNothingFound, keyboard)
			return
		}
		f.logger.Error().Err(err).Str("label", label).Msg("Torrent search failed")
		f.render(ctx, cb.ChatID, cb.MessageID, msgSearchFailed, keyboard)
		return
	}

	f.renderResults(ctx, cb.ChatID, cb.MessageID, set, setToken)
}

// handleResultsList re-renders a cached result set, used by the back
// button on detail pages.
func (f *Flow) handleResultsList(ctx context.Context, cb Callback, payload resultsListPayload) {
	set, err := search.LoadResultSet(ctx, f.tokens, payload.SetToken)
	if err != nil {
		f.logger.Warn().Err(err).Msg("Cached result set gone")
		f.render(ctx, cb.ChatID, cb.MessageID, msgExpired, nil)
		return
	}
	f.renderResults(ctx, cb.ChatID, cb.MessageID, set, payload.SetToken)
}

// renderResults shows one button per ranked result plus the back
// button the set was created with.
func (f *Flow) renderResults(ctx context.Context, chatID int64, messageID int, set *search.ResultSet, setToken string) {
	var keyboard Keyboard
	for _, result := range set.Results {
		token, err := saveToken(ctx, f.tokens, resultDetailPayload{
			Action:      actionResultDetail,
			Provider:    set.Provider,
			ID:          result.ID,
			LibraryName: set.RequestedLabel,
			SetToken:    setToken,
		})
		if err != nil {
			f.logger.Error().Err(err).Msg("Failed to cache result button")
			continue
		}
		keyboard = append(keyboard, Row(ResultLabel(result), token))
	}
	if set.BackToken != "" {
		keyboard = append(keyboard, Row(labelBack, set.BackToken))
	}

	text := fmt.Sprintf("Выберите результат для «%s»:", set.RequestedLabel)
	f.render(ctx, chatID, messageID, text, keyboard)
}

// handleResultDetail fetches and shows the detail page of one result,
// with download and back buttons.
func (f *Flow) handleResultDetail(ctx context.Context, cb Callback, payload resultDetailPayload) {
	provider, err := f.torrents.Get(payload.Provider)
	if err != nil {
		f.logger.Error().Err(err).Str("provider", payload.Provider).Msg("Unknown torrent provider in payload")
		f.render(ctx, cb.ChatID, cb.MessageID, msgExpired, nil)
		return
	}

	detail, err := provider.Detail(ctx, payload.ID)
	if err != nil {
		f.logger.Error().Err(err).Str("id", payload.ID).Msg("Failed to fetch torrent detail")
		f.render(ctx, cb.ChatID, cb.MessageID, msgSearchFailed, nil)
		return
	}

	var keyboard Keyboard
	if token, err := saveToken(ctx, f.tokens, downloadPayload{
		Action:      actionDownload,
		Provider:    payload.Provider,
		ID:          payload.ID,
		LibraryName: payload.LibraryName,
		SetToken:    payload.SetToken,
	}); err == nil {
		keyboard = append(keyboard, Row(labelDownload, token))
	} else {
		f.logger.Error().Err(err).Msg("Failed to cache download button")
	}
	if payload.SetToken != "" {
		if token, err := saveToken(ctx, f.tokens, resultsListPayload{
			Action:   actionResultsList,
			SetToken: payload.SetToken,
		}); err == nil {
			keyboard = append(keyboard, Row(labelBack, token))
		}
	}

	text := DetailText(detail)
	if detail.ImageURL != "" {
		if _, err := f.transport.SendPhoto(ctx, cb.ChatID, detail.ImageURL, text, keyboard); err == nil {
			return
		}
		// Poster delivery is best effort; fall through to plain text.
	}
	f.render(ctx, cb.ChatID, cb.MessageID, text, keyboard)
}

// handleDownload fetches the torrent file and hands it to the download
// client under the clean library name.
func (f *Flow) handleDownload(ctx context.Context, cb Callback, payload downloadPayload) {
	if f.downloads == nil {
		f.render(ctx, cb.ChatID, 0, msgQueueFailed, nil)
		return
	}

	provider, err := f.torrents.Get(payload.Provider)
	if err != nil {
		f.logger.Error().Err(err).Str("provider", payload.Provider).Msg("Unknown torrent provider in payload")
		f.render(ctx, cb.ChatID, 0, msgQueueFailed, nil)
		return
	}

	file, err := provider.Download(ctx, payload.ID)
	if err != nil {
		f.logger.Error().Err(err).Str("id", payload.ID).Msg("Torrent file download failed")
		f.render(ctx, cb.ChatID, 0, msgQueueFailed, nil)
		return
	}

	if err := f.downloads.Add(ctx, file.Path, payload.LibraryName); err != nil {
		f.logger.Error().Err(err).Str("file", file.Path).Msg("Failed to queue torrent")
		f.render(ctx, cb.ChatID, 0, msgQueueFailed, nil)
		return
	}

	var keyboard Keyboard
	if token, err := saveToken(ctx, f.tokens, queueRefreshPayload{Action: actionQueueRefresh}); err == nil {
		keyboard = append(keyboard, Row(labelRefresh, token))
	}

	text := msgQueued
	if payload.LibraryName != "" {
		text = fmt.Sprintf("%s\n%s", msgQueued, payload.LibraryName)
	}
	f.render(ctx, cb.ChatID, 0, text, keyboard)
}

// renderQueue shows the state of every download in the configured
// category.
func (f *Flow) renderQueue(ctx context.Context, chatID int64, messageID int) {
	if f.downloads == nil {
		f.render(ctx, chatID, messageID, msgQueueEmpty, nil)
		return
	}

	statuses, err := f.downloads.List(ctx)
	if err != nil {
		f.logger.Error().Err(err).Msg("Failed to list downloads")
		f.render(ctx, chatID, messageID, msgQueueFailed, nil)
		return
	}

	var keyboard Keyboard
	if token, err := saveToken(ctx, f.tokens, queueRefreshPayload{Action: actionQueueRefresh}); err == nil {
		keyboard = append(keyboard, Row(labelRefresh, token))
	}

	if len(statuses) == 0 {
		f.render(ctx, chatID, messageID, msgQueueEmpty, keyboard)
		return
	}

	lines := make([]string, 0, len(statuses))
	for _, s := range statuses {
		line := fmt.Sprintf("%s\n%s | %s | %s",
			s.Name, s.State, FormatProgress(s.Progress), FormatSize(s.Size))
		if s.Progress < 1 {
			line += fmt.Sprintf("\n%s | %s",
				FormatSpeed(s.DlSpeed), FormatETA(time.Duration(s.ETASeconds)*time.Second))
		}
		lines = append(lines, line)
	}
	f.render(ctx, chatID, messageID, strings.Join(lines, "\n\n"), keyboard)
}

// loadPayload re-reads the callback token into its action-specific
// shape. A vanished token between the envelope read and this one is
// treated like an expired button.
func (f *Flow) loadPayload(ctx context.Context, cb Callback, out any) bool {
	if err := f.tokens.Get(ctx, cb.Token, out); err != nil {
		f.logger.Warn().Err(err).Msg("Callback payload gone")
		f.answer(ctx, cb.ID, msgExpired)
		return false
	}
	return true
}

func (f *Flow) metadataFor(source string) (metadata.Provider, error) {
	if source != "" {
		if p, err := f.metadata.Get(source); err == nil {
			return p, nil
		}
	}
	return f.metadata.Default()
}

// render edits messageID in place when possible and falls back to a
// fresh message. Photo messages cannot take a text edit.
func (f *Flow) render(ctx context.Context, chatID int64, messageID int, text string, keyboard Keyboard) {
	if messageID != 0 {
		if err := f.transport.EditMessage(ctx, chatID, messageID, text, keyboard); err == nil {
			return
		}
	}
	f.send(ctx, chatID, text, keyboard)
}

func (f *Flow) send(ctx context.Context, chatID int64, text string, keyboard Keyboard) {
	if _, err := f.transport.SendMessage(ctx, chatID, text, keyboard); err != nil {
		f.logger.Error().Err(err).Int64("chat", chatID).Msg("Failed to send message")
	}
}

func (f *Flow) answer(ctx context.Context, callbackID, text string) {
	if callbackID == "" {
		return
	}
	if err := f.transport.AnswerCallback(ctx, callbackID, text); err != nil {
		f.logger.Debug().Err(err).Msg("Failed to answer callback")
	}
}

func backKeyboard(backToken string) Keyboard {
	if backToken == "" {
		return nil
	}
	return Keyboard{Row(labelBack, backToken)}
}

func itemCaption(item media.Item) string {
	if item.Year > 0 {
		return fmt.Sprintf("%s (%d)", item.Title, item.Year)
	}
	return item.Title
}
