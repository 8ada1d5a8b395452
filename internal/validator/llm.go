// Package validator implements result validation through an
// OpenAI-compatible chat-completion API. The model acts as a second
// opinion on whether a raw tracker listing really is the requested
// title; anything it cannot confirm is excluded.
package validator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/seekarr/seekarr/internal/config"
)

var (
	ErrAPIKeyMissing = errors.New("validator API key is not configured")
	ErrAPIError      = errors.New("validator API error")
)

const systemPrompt = "You are validating torrent tracker search results. " +
	"Given a raw torrent listing name and the title the user requested, decide " +
	"whether the listing is a release of that exact title (translations and " +
	"transliterations count, different films or spin-offs do not). " +
	"Respond with JSON only: {\"is_valid\": true} or {\"is_valid\": false}."

// LLM validates ranked results through a chat-completion endpoint.
type LLM struct {
	httpClient *http.Client
	config     config.ValidatorConfig
	logger     zerolog.Logger
}

// New creates an LLM validator.
func New(cfg config.ValidatorConfig, logger zerolog.Logger) *LLM {
	return &LLM{
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		config: cfg,
		logger: logger.With().Str("component", "validator").Logger(),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type verdict struct {
	IsValid bool `json:"is_valid"`
}

// Validate asks the model whether rawName is a release of
// expectedTitle.
func (l *LLM) Validate(ctx context.Context, rawName, expectedTitle string) (bool, error) {
	if l.config.APIKey == "" {
		return false, ErrAPIKeyMissing
	}

	payload := chatRequest{
		Model: l.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{
				Role: "user",
				Content: fmt.Sprintf("Requested title: %s\nListing name: %s",
					expectedTitle, rawName),
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		l.config.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+l.config.APIKey)

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("validator request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("%w: status %d", ErrAPIError, resp.StatusCode)
	}

	var completion chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return false, fmt.Errorf("%w: empty completion", ErrAPIError)
	}

	var result verdict
	if err := json.Unmarshal([]byte(completion.Choices[0].Message.Content), &result); err != nil {
		return false, fmt.Errorf("%w: non-JSON verdict %q",
			ErrAPIError, completion.Choices[0].Message.Content)
	}

	l.logger.Debug().
		Str("name", rawName).
		Bool("valid", result.IsValid).
		Msg("Validated result")

	return result.IsValid, nil
}
