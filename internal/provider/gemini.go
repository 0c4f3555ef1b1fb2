package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/astanafx/fxbot/internal/chat"
)

// Gemini is an adapter for the Google Gemini generateContent API.
type Gemini struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewGemini creates a Gemini adapter. baseURL is the API root (e.g.
// "https://generativelanguage.googleapis.com/v1beta"); an empty apiKey
// makes every call report ErrUnavailable.
func NewGemini(apiKey, baseURL, model string, timeout time.Duration) *Gemini {
	return &Gemini{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (g *Gemini) Name() string { return "gemini" }

// errShapeRejected marks a 400 from Gemini whose error body names the
// systemInstruction field, meaning that request shape was not accepted.
// It wraps ErrCallFailed so an unrecovered rejection still reads as a
// failed call.
var errShapeRejected = fmt.Errorf("%w: request shape rejected", ErrCallFailed)

func isShapeRejection(err error) bool { return errors.Is(err, errShapeRejected) }

// mentionsSystemInstruction reports whether a 400 body complains about
// the systemInstruction field (the API spells it either way depending on
// the surface), as opposed to a problem with the request contents.
func mentionsSystemInstruction(body []byte) bool {
	s := string(body)
	return strings.Contains(s, "systemInstruction") || strings.Contains(s, "system_instruction")
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents          []geminiContent `json:"contents"`
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	GenerationConfig  struct {
		Temperature     float64 `json:"temperature"`
		MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// formatOutbound maps the unified history onto Gemini's role vocabulary
// (assistant becomes "model", anything else "user") and drops
// empty-content messages, which the API rejects.
func (g *Gemini) formatOutbound(history []chat.Message) []geminiContent {
	contents := make([]geminiContent, 0, len(history))
	for _, m := range history {
		if m.Content == "" {
			continue
		}
		role := "user"
		switch m.Speaker {
		case chat.SpeakerAssistant:
			role = "model"
		case chat.SpeakerUser:
			role = "user"
		}
		contents = append(contents, geminiContent{Role: role, Parts: []geminiPart{{Text: m.Content}}})
	}
	return contents
}

// Complete tries systemInstruction as a dedicated field first. If the API
// rejects that request shape it retries the same logical turn once with
// the system prompt prepended as a synthetic user message; the retry
// never goes back to the primary shape.
func (g *Gemini) Complete(ctx context.Context, systemPrompt string, history []chat.Message, cfg chat.GenConfig) (string, error) {
	if g.apiKey == "" {
		return "", fmt.Errorf("%w: gemini api key is not configured", ErrUnavailable)
	}

	contents := g.formatOutbound(history)

	req := geminiRequest{Contents: contents}
	req.GenerationConfig.Temperature = cfg.Temperature
	req.GenerationConfig.MaxOutputTokens = cfg.MaxOutputTokens
	if systemPrompt != "" {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: systemPrompt}}}
	}

	reply, err := g.generate(ctx, req)
	if err == nil {
		return reply, nil
	}
	if systemPrompt == "" || !isShapeRejection(err) {
		return "", err
	}

	// Older API surfaces reject systemInstruction; deliver the prompt as
	// the first user-role message instead.
	retry := geminiRequest{
		Contents: append(
			[]geminiContent{{Role: "user", Parts: []geminiPart{{Text: systemPrompt}}}},
			contents...,
		),
	}
	retry.GenerationConfig = req.GenerationConfig
	return g.generate(ctx, retry)
}

func (g *Gemini) generate(ctx context.Context, req geminiRequest) (string, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", g.baseURL, g.model, g.apiKey)

	status, raw, err := postJSON(ctx, g.httpClient, url, nil, req)
	if err != nil {
		return "", err
	}
	if status < 200 || status >= 300 {
		if status == http.StatusBadRequest && mentionsSystemInstruction(raw) {
			return "", fmt.Errorf("%w: gemini rejected request shape: %s", errShapeRejected, truncate(string(raw), 400))
		}
		return "", classifyStatus("gemini", status, raw)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("%w: parse gemini response: %s", ErrCallFailed, truncate(string(raw), 400))
	}

	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return FallbackReply, nil
	}
	text := strings.TrimSpace(parsed.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return FallbackReply, nil
	}
	return text, nil
}
