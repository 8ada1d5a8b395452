// Package tokenstore maps short opaque tokens to arbitrary JSON payloads
// with a fixed time-to-live. It is the only mechanism for carrying
// conversation state across chat turns: interactive-button payloads are
// limited to roughly 64 bytes, so structured state lives here and only
// the token travels on the wire.
package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// DefaultTTL is the absolute lifetime of a token, counted from the write.
// Reads do not refresh it.
const DefaultTTL = time.Hour

// ErrNotFound is returned by Get for an unknown or expired token.
// Callers must treat it as a recoverable condition (ask the user to
// restart the interaction), never as a crash.
var ErrNotFound = errors.New("tokenstore: token not found or expired")

// Store assigns fresh random tokens to payloads and resolves them until
// expiry. Tokens are write-once: entries are never updated in place.
type Store interface {
	// Save serializes payload to JSON and stores it under a fresh token.
	Save(ctx context.Context, payload any) (string, error)

	// Get unmarshals the payload stored under token into out.
	// Returns ErrNotFound for unknown or expired tokens.
	Get(ctx context.Context, token string, out any) error
}

// Envelope is the discriminator common to every stored payload. Callers
// decode into it first to learn which action-specific shape to expect.
type Envelope struct {
	Action string `json:"action"`
}

// newToken returns a fresh 128-bit random token. UUIDv4 text form is
// alphanumeric plus dashes, 36 bytes: safe to embed verbatim as a chat
// button payload.
func newToken() string {
	return uuid.NewString()
}

// marshal is shared by the store implementations.
func marshal(payload any) ([]byte, error) {
	return json.Marshal(payload)
}
