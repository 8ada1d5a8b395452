// Package chat drives the conversational frontend: free-text queries
// turn into metadata lookups, button presses walk the user from a media
// pick through season choice and torrent results down to a queued
// download. All button state lives in the token store; a button carries
// only its token.
package chat

import "context"

// Button is one interactive keyboard button. Token resolves to the
// button's payload in the token store.
type Button struct {
	Text  string
	Token string
}

// Keyboard is a button grid, one inner slice per row.
type Keyboard [][]Button

// Row is a convenience constructor for a single-button row.
func Row(text, token string) []Button {
	return []Button{{Text: text, Token: token}}
}

// TextMessage is an incoming free-text message.
type TextMessage struct {
	ChatID int64
	UserID int64
	Text   string
}

// Callback is an incoming button press. MessageID identifies the
// message carrying the pressed keyboard; Token is the button payload.
type Callback struct {
	ID        string
	ChatID    int64
	UserID    int64
	MessageID int
	Token     string
}

// Transport abstracts the chat frontend. Implementations deliver
// outgoing messages and keyboards; incoming traffic reaches the flow
// through the Handler it was started with.
type Transport interface {
	// SendMessage posts a new message and returns its id.
	SendMessage(ctx context.Context, chatID int64, text string, keyboard Keyboard) (int, error)

	// EditMessage replaces the text and keyboard of an existing message.
	EditMessage(ctx context.Context, chatID int64, messageID int, text string, keyboard Keyboard) error

	// SendPhoto posts a new photo message with a caption and returns its id.
	SendPhoto(ctx context.Context, chatID int64, photoURL, caption string, keyboard Keyboard) (int, error)

	// AnswerCallback acknowledges a button press, optionally flashing a
	// short notice to the user.
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// Handler consumes incoming chat traffic. The transport calls it once
// per update; handlers are expected to be safe for concurrent calls.
type Handler interface {
	HandleText(ctx context.Context, msg TextMessage)
	HandleCallback(ctx context.Context, cb Callback)
}
