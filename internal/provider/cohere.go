package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/astanafx/fxbot/internal/chat"
)

// Cohere is an adapter for the Cohere chat API.
type Cohere struct {
	apiKey     string
	url        string
	model      string
	httpClient *http.Client
}

// NewCohere creates a Cohere adapter. An empty apiKey makes every call
// report ErrUnavailable.
func NewCohere(apiKey, url, model string, timeout time.Duration) *Cohere {
	return &Cohere{
		apiKey: apiKey,
		url:    url,
		model:  model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Cohere) Name() string { return "cohere" }

type cohereTurn struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

type cohereRequest struct {
	Model       string       `json:"model"`
	Message     string       `json:"message"`
	ChatHistory []cohereTurn `json:"chat_history,omitempty"`
	Preamble    string       `json:"preamble,omitempty"`
	Temperature float64      `json:"temperature"`
	MaxTokens   int          `json:"max_tokens,omitempty"`
}

type cohereResponse struct {
	Text string `json:"text"`
}

// formatOutbound maps the unified history onto Cohere's USER/CHATBOT
// vocabulary. Empty-content messages are skipped because the API rejects
// history entries without a message.
func (c *Cohere) formatOutbound(history []chat.Message) []cohereTurn {
	turns := make([]cohereTurn, 0, len(history))
	for _, m := range history {
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		role := "USER"
		switch m.Speaker {
		case chat.SpeakerAssistant:
			role = "CHATBOT"
		case chat.SpeakerUser:
			role = "USER"
		}
		turns = append(turns, cohereTurn{Role: role, Message: content})
	}
	return turns
}

// Complete sends the most recent user message as the prompt and the rest
// of the history as chat_history, with the system prompt as preamble.
func (c *Cohere) Complete(ctx context.Context, systemPrompt string, history []chat.Message, cfg chat.GenConfig) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%w: cohere api key is not configured", ErrUnavailable)
	}
	if len(history) == 0 {
		return "", fmt.Errorf("%w: cohere requires at least one message", ErrCallFailed)
	}

	last := history[len(history)-1]
	reqBody := cohereRequest{
		Model:       c.model,
		Message:     last.Content,
		ChatHistory: c.formatOutbound(history[:len(history)-1]),
		Preamble:    systemPrompt,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxOutputTokens,
	}

	status, raw, err := postJSON(ctx, c.httpClient, c.url, map[string]string{
		"Authorization": "Bearer " + c.apiKey,
	}, reqBody)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", classifyStatus("cohere", status, raw)
	}

	var parsed cohereResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("%w: parse cohere response: %s", ErrCallFailed, truncate(string(raw), 400))
	}

	text := strings.TrimSpace(parsed.Text)
	if text == "" {
		return FallbackReply, nil
	}
	return text, nil
}
