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

// OpenAI is an adapter for the OpenAI chat completions API.
type OpenAI struct {
	apiKey     string
	url        string
	model      string
	httpClient *http.Client
}

// NewOpenAI creates an OpenAI adapter. An empty apiKey is allowed; the
// adapter then reports ErrUnavailable on every call so fallback can skip
// it.
func NewOpenAI(apiKey, url, model string, timeout time.Duration) *OpenAI {
	return &OpenAI{
		apiKey: apiKey,
		url:    url,
		model:  model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (o *OpenAI) Name() string { return "openai" }

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type openaiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// formatOutbound maps the unified history onto OpenAI's role vocabulary.
// Unknown speakers are coerced to "user".
func (o *OpenAI) formatOutbound(systemPrompt string, history []chat.Message) []openaiMessage {
	messages := make([]openaiMessage, 0, len(history)+1)
	if systemPrompt != "" {
		messages = append(messages, openaiMessage{Role: "system", Content: systemPrompt})
	}
	for _, m := range history {
		role := "user"
		switch m.Speaker {
		case chat.SpeakerAssistant:
			role = "assistant"
		case chat.SpeakerUser:
			role = "user"
		}
		messages = append(messages, openaiMessage{Role: role, Content: m.Content})
	}
	return messages
}

func (o *OpenAI) Complete(ctx context.Context, systemPrompt string, history []chat.Message, cfg chat.GenConfig) (string, error) {
	if o.apiKey == "" {
		return "", fmt.Errorf("%w: openai api key is not configured", ErrUnavailable)
	}

	reqBody := openaiRequest{
		Model:       o.model,
		Messages:    o.formatOutbound(systemPrompt, history),
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxOutputTokens,
	}

	status, raw, err := postJSON(ctx, o.httpClient, o.url, map[string]string{
		"Authorization": "Bearer " + o.apiKey,
	}, reqBody)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		return "", classifyStatus("openai", status, raw)
	}

	var parsed openaiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("%w: parse openai response: %s", ErrCallFailed, truncate(string(raw), 400))
	}

	if len(parsed.Choices) == 0 {
		return FallbackReply, nil
	}
	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return FallbackReply, nil
	}
	return content, nil
}
