package telegram

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seekarr/seekarr/internal/chat"
	"github.com/seekarr/seekarr/internal/config"
)

func newTestBot(server *httptest.Server, allowed ...int64) *Bot {
	bot := New(config.TelegramConfig{
		Token:        "test-token",
		PollTimeout:  1,
		AllowedUsers: allowed,
	}, zerolog.Nop())
	bot.apiBase = server.URL + "/bot"
	return bot
}

func ok(w http.ResponseWriter, result string) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"ok": true, "result": ` + result + `}`))
}

func TestBot_SendMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottest-token/sendMessage" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.EqualValues(t, 42, payload["chat_id"])
		assert.Equal(t, "Выберите сезон:", payload["text"])

		keyboard := payload["reply_markup"].(map[string]any)["inline_keyboard"].([]any)
		require.Len(t, keyboard, 2)
		first := keyboard[0].([]any)[0].(map[string]any)
		assert.Equal(t, "Сезон 1 (2008)", first["text"])
		assert.Equal(t, "token-1", first["callback_data"])

		ok(w, `{"message_id": 7, "chat": {"id": 42}}`)
	}))
	defer server.Close()

	bot := newTestBot(server)
	id, err := bot.SendMessage(context.Background(), 42, "Выберите сезон:", chat.Keyboard{
		chat.Row("Сезон 1 (2008)", "token-1"),
		chat.Row("Назад", "token-2"),
	})
	require.NoError(t, err)
	assert.Equal(t, 7, id)
}

func TestBot_SendMessageAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ok": false, "description": "Bad Request: chat not found"}`))
	}))
	defer server.Close()

	bot := newTestBot(server)
	_, err := bot.SendMessage(context.Background(), 42, "hi", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat not found")
}

func TestBot_EditMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottest-token/editMessageText" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.EqualValues(t, 7, payload["message_id"])
		ok(w, `true`)
	}))
	defer server.Close()

	bot := newTestBot(server)
	err := bot.EditMessage(context.Background(), 42, 7, "updated", nil)
	assert.NoError(t, err)
}

func TestBot_AnswerCallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottest-token/answerCallbackQuery" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "cb-1", payload["callback_query_id"])
		ok(w, `true`)
	}))
	defer server.Close()

	bot := newTestBot(server)
	assert.NoError(t, bot.AnswerCallback(context.Background(), "cb-1", ""))
}

type recordingHandler struct {
	mu        sync.Mutex
	texts     []chat.TextMessage
	callbacks []chat.Callback
	seen      chan struct{}
}

func (h *recordingHandler) HandleText(ctx context.Context, msg chat.TextMessage) {
	h.mu.Lock()
	h.texts = append(h.texts, msg)
	h.mu.Unlock()
	h.seen <- struct{}{}
}

func (h *recordingHandler) HandleCallback(ctx context.Context, cb chat.Callback) {
	h.mu.Lock()
	h.callbacks = append(h.callbacks, cb)
	h.mu.Unlock()
	h.seen <- struct{}{}
}

func TestBot_RunDispatchesUpdates(t *testing.T) {
	var polls int
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/bottest-token/getUpdates" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}

		mu.Lock()
		polls++
		first := polls == 1
		mu.Unlock()

		if !first {
			var payload map[string]any
			json.NewDecoder(r.Body).Decode(&payload)
			// The second poll must acknowledge past the last update.
			if offset, _ := payload["offset"].(float64); offset != 3 {
				t.Errorf("unexpected offset: %v", offset)
			}
			ok(w, `[]`)
			return
		}

		ok(w, `[
			{"update_id": 1, "message": {"message_id": 10, "from": {"id": 7}, "chat": {"id": 42}, "text": "дюна"}},
			{"update_id": 2, "message": {"message_id": 11, "from": {"id": 666}, "chat": {"id": 43}, "text": "spam"}},
			{"update_id": 3, "callback_query": {"id": "cb-1", "from": {"id": 7}, "data": "token-1",
				"message": {"message_id": 10, "chat": {"id": 42}}}}
		]`)
	}))
	defer server.Close()

	bot := newTestBot(server, 7)
	handler := &recordingHandler{seen: make(chan struct{}, 10)}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bot.Run(ctx, handler) }()

	for range 2 {
		select {
		case <-handler.seen:
		case <-time.After(5 * time.Second):
			t.Fatal("handler never called")
		}
	}
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}

	handler.mu.Lock()
	defer handler.mu.Unlock()
	require.Len(t, handler.texts, 1, "unauthorized message must be dropped")
	assert.Equal(t, "дюна", handler.texts[0].Text)
	assert.Equal(t, int64(42), handler.texts[0].ChatID)

	require.Len(t, handler.callbacks, 1)
	assert.Equal(t, "token-1", handler.callbacks[0].Token)
	assert.Equal(t, 10, handler.callbacks[0].MessageID)
}
