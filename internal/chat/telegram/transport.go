// Package telegram implements the chat transport over the Telegram Bot
// API using long polling. Only the slice of the API the flow needs is
// covered: messages, inline keyboards and callback queries.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/seekarr/seekarr/internal/chat"
	"github.com/seekarr/seekarr/internal/config"
)

const telegramAPIBase = "https://api.telegram.org/bot"

const defaultPollTimeout = 30 // seconds

// Bot is a chat.Transport backed by the Telegram Bot API.
type Bot struct {
	token       string
	apiBase     string
	pollTimeout int
	allowed     map[int64]bool
	httpClient  *http.Client
	logger      zerolog.Logger
}

// New creates a bot transport. An empty allowed-users list admits
// everyone.
func New(cfg config.TelegramConfig, logger zerolog.Logger) *Bot {
	pollTimeout := cfg.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = defaultPollTimeout
	}

	var allowed map[int64]bool
	if len(cfg.AllowedUsers) > 0 {
		allowed = make(map[int64]bool, len(cfg.AllowedUsers))
		for _, id := range cfg.AllowedUsers {
			allowed[id] = true
		}
	}

	return &Bot{
		token:       cfg.Token,
		apiBase:     telegramAPIBase,
		pollTimeout: pollTimeout,
		allowed:     allowed,
		httpClient: &http.Client{
			// Must outlive the long-poll window.
			Timeout: time.Duration(pollTimeout+10) * time.Second,
		},
		logger: logger.With().Str("component", "telegram").Logger(),
	}
}

type inlineKeyboardButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

type inlineKeyboardMarkup struct {
	InlineKeyboard [][]inlineKeyboardButton `json:"inline_keyboard"`
}

type apiChat struct {
	ID int64 `json:"id"`
}

type apiUser struct {
	ID int64 `json:"id"`
}

type apiMessage struct {
	MessageID int      `json:"message_id"`
	From      *apiUser `json:"from,omitempty"`
	Chat      apiChat  `json:"chat"`
	Text      string   `json:"text,omitempty"`
}

type apiCallbackQuery struct {
	ID      string      `json:"id"`
	From    apiUser     `json:"from"`
	Message *apiMessage `json:"message,omitempty"`
	Data    string      `json:"data,omitempty"`
}

type apiUpdate struct {
	UpdateID      int64             `json:"update_id"`
	Message       *apiMessage       `json:"message,omitempty"`
	CallbackQuery *apiCallbackQuery `json:"callback_query,omitempty"`
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	Description string          `json:"description,omitempty"`
}

// call posts a Bot API method and decodes its result into out when out
// is non-nil.
func (b *Bot) call(ctx context.Context, method string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", method, err)
	}

	url := b.apiBase + b.token + "/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	var apiResp apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	if !apiResp.OK {
		return fmt.Errorf("telegram API error on %s: %s", method, apiResp.Description)
	}
	if out != nil {
		if err := json.Unmarshal(apiResp.Result, out); err != nil {
			return fmt.Errorf("failed to decode %s result: %w", method, err)
		}
	}
	return nil
}

func markup(keyboard chat.Keyboard) *inlineKeyboardMarkup {
	if len(keyboard) == 0 {
		return nil
	}
	rows := make([][]inlineKeyboardButton, 0, len(keyboard))
	for _, row := range keyboard {
		buttons := make([]inlineKeyboardButton, 0, len(row))
		for _, b := range row {
			buttons = append(buttons, inlineKeyboardButton{Text: b.Text, CallbackData: b.Token})
		}
		rows = append(rows, buttons)
	}
	return &inlineKeyboardMarkup{InlineKeyboard: rows}
}

// SendMessage implements chat.Transport.
func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string, keyboard chat.Keyboard) (int, error) {
	payload := struct {
		ChatID      int64                 `json:"chat_id"`
		Text        string                `json:"text"`
		ReplyMarkup *inlineKeyboardMarkup `json:"reply_markup,omitempty"`
	}{ChatID: chatID, Text: text, ReplyMarkup: markup(keyboard)}

	var sent apiMessage
	if err := b.call(ctx, "sendMessage", payload, &sent); err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// EditMessage implements chat.Transport.
func (b *Bot) EditMessage(ctx context.Context, chatID int64, messageID int, text string, keyboard chat.Keyboard) error {
	payload := struct {
		ChatID      int64                 `json:"chat_id"`
		MessageID   int                   `json:"message_id"`
		Text        string                `json:"text"`
		ReplyMarkup *inlineKeyboardMarkup `json:"reply_markup,omitempty"`
	}{ChatID: chatID, MessageID: messageID, Text: text, ReplyMarkup: markup(keyboard)}

	return b.call(ctx, "editMessageText", payload, nil)
}

// SendPhoto implements chat.Transport.
func (b *Bot) SendPhoto(ctx context.Context, chatID int64, photoURL, caption string, keyboard chat.Keyboard) (int, error) {
	payload := struct {
		ChatID      int64                 `json:"chat_id"`
		Photo       string                `json:"photo"`
		Caption     string                `json:"caption,omitempty"`
		ReplyMarkup *inlineKeyboardMarkup `json:"reply_markup,omitempty"`
	}{ChatID: chatID, Photo: photoURL, Caption: caption, ReplyMarkup: markup(keyboard)}

	var sent apiMessage
	if err := b.call(ctx, "sendPhoto", payload, &sent); err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

// AnswerCallback implements chat.Transport.
func (b *Bot) AnswerCallback(ctx context.Context, callbackID, text string) error {
	payload := struct {
		CallbackQueryID string `json:"callback_query_id"`
		Text            string `json:"text,omitempty"`
	}{CallbackQueryID: callbackID, Text: text}

	return b.call(ctx, "answerCallbackQuery", payload, nil)
}

// Run long-polls for updates and dispatches them to handler until ctx
// is cancelled. Poll failures are logged and retried with a short
// backoff; the loop only ever exits through ctx.
func (b *Bot) Run(ctx context.Context, handler chat.Handler) error {
	b.logger.Info().Int("pollTimeout", b.pollTimeout).Msg("Starting update loop")

	var offset int64
	for {
		updates, err := b.getUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.logger.Error().Err(err).Msg("Failed to fetch updates")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(3 * time.Second):
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			b.dispatch(ctx, handler, update)
		}
	}
}

func (b *Bot) getUpdates(ctx context.Context, offset int64) ([]apiUpdate, error) {
	payload := struct {
		Offset         int64    `json:"offset,omitempty"`
		Timeout        int      `json:"timeout"`
		AllowedUpdates []string `json:"allowed_updates"`
	}{Offset: offset, Timeout: b.pollTimeout, AllowedUpdates: []string{"message", "callback_query"}}

	var updates []apiUpdate
	if err := b.call(ctx, "getUpdates", payload, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

func (b *Bot) dispatch(ctx context.Context, handler chat.Handler, update apiUpdate) {
	switch {
	case update.Message != nil && update.Message.From != nil:
		if !b.authorized(update.Message.From.ID) {
			b.logger.Warn().Int64("user", update.Message.From.ID).Msg("Ignoring message from unauthorized user")
			return
		}
		handler.HandleText(ctx, chat.TextMessage{
			ChatID: update.Message.Chat.ID,
			UserID: update.Message.From.ID,
			Text:   update.Message.Text,
		})
	case update.CallbackQuery != nil:
		cb := update.CallbackQuery
		if !b.authorized(cb.From.ID) {
			b.logger.Warn().Int64("user", cb.From.ID).Msg("Ignoring callback from unauthorized user")
			return
		}
		incoming := chat.Callback{
			ID:     cb.ID,
			UserID: cb.From.ID,
			Token:  cb.Data,
		}
		if cb.Message != nil {
			incoming.ChatID = cb.Message.Chat.ID
			incoming.MessageID = cb.Message.MessageID
		}
		handler.HandleCallback(ctx, incoming)
	}
}

func (b *Bot) authorized(userID int64) bool {
	if b.allowed == nil {
		return true
	}
	return b.allowed[userID]
}
