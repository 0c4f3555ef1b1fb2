package chat

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/astanafx/fxbot/internal/bridge"
)

// Options configures a Session.
type Options struct {
	TokenBudget     int
	Temperature     float64
	MaxOutputTokens int
	// PersistTimeout bounds every store operation issued by the session.
	PersistTimeout time.Duration
}

// DefaultOptions mirror the conversation defaults used across providers.
func DefaultOptions() Options {
	return Options{
		TokenBudget:     30000,
		Temperature:     0.2,
		MaxOutputTokens: 2000,
		PersistTimeout:  5 * time.Second,
	}
}

// Summary is a read-only snapshot of a session's state.
type Summary struct {
	MessageCount     int     `json:"total_messages"`
	SystemTokens     int     `json:"system_tokens"`
	HistoryTokens    int     `json:"history_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	MaxContextTokens int     `json:"max_context_tokens"`
	UsagePercent     float64 `json:"usage_percent"`
	Provider         string  `json:"provider"`
}

// Session owns one user's conversation for one role: the unified history,
// the token budget, and a binding to exactly one provider adapter at a
// time. Sessions are not safe for concurrent turns on the same key; the
// registry serializes access.
type Session struct {
	userID  int64
	role    string
	system  string
	history []Message
	adapter Adapter
	store   HistoryStore
	opts    Options
}

// NewSession creates a session bound to the given adapter. Call
// LoadHistory afterwards to hydrate from the store.
func NewSession(userID int64, role, systemPrompt string, adapter Adapter, st HistoryStore, opts Options) *Session {
	return &Session{
		userID:  userID,
		role:    role,
		system:  systemPrompt,
		adapter: adapter,
		store:   st,
		opts:    opts,
	}
}

// LoadHistory hydrates the in-memory history from the store. A store
// failure leaves the session usable with an empty history.
func (s *Session) LoadHistory() {
	err := bridge.Run(s.opts.PersistTimeout, func(ctx context.Context) error {
		msgs, err := s.store.GetHistory(ctx, s.userID, s.role)
		if err != nil {
			return err
		}
		s.history = msgs
		return nil
	})
	if err != nil {
		log.Printf("[session] failed to load history user=%d role=%s: %v", s.userID, s.role, err)
	}
}

// Bind rebinds the session to another provider adapter.
func (s *Session) Bind(adapter Adapter) { s.adapter = adapter }

// Provider returns the bound adapter's identifier.
func (s *Session) Provider() string { return s.adapter.Name() }

// Role returns the role the session was created for.
func (s *Session) Role() string { return s.role }

// ExecuteTurn runs one conversational turn: append the user message, trim
// to the token budget, call the bound provider, append the reply, persist.
// On a provider failure the appended user message is rolled back so the
// caller can retry the same turn against another provider without
// double-appending; messages already dropped by the trim stay dropped (a
// retry would trim them again identically). A persistence failure is
// logged and never fails the turn.
func (s *Session) ExecuteTurn(ctx context.Context, userMessage string) (string, error) {
	s.history = append(s.history, Message{Speaker: SpeakerUser, Content: userMessage})
	s.history = TrimHistory(s.history, s.system, s.opts.TokenBudget)

	reply, err := s.adapter.Complete(ctx, s.system, s.history, GenConfig{
		Temperature:     s.opts.Temperature,
		MaxOutputTokens: s.opts.MaxOutputTokens,
	})
	if err != nil {
		s.history = s.history[:len(s.history)-1]
		return "", fmt.Errorf("turn via %s: %w", s.adapter.Name(), err)
	}

	s.history = append(s.history, Message{Speaker: SpeakerAssistant, Content: reply})
	s.persist()
	return reply, nil
}

// persist rewrites the stored history from the in-memory state.
// Best-effort: the in-memory reply has already been produced and a
// durability gap is only logged.
func (s *Session) persist() {
	snapshot := make([]Message, len(s.history))
	copy(snapshot, s.history)
	err := bridge.Run(s.opts.PersistTimeout, func(ctx context.Context) error {
		return s.store.ReplaceAll(ctx, s.userID, s.role, snapshot)
	})
	if err != nil {
		log.Printf("[session] failed to persist history user=%d role=%s: %v", s.userID, s.role, err)
	}
}

// Clear empties the history and deletes the stored rows. The session
// stays usable for future turns.
func (s *Session) Clear() error {
	s.history = nil
	err := bridge.Run(s.opts.PersistTimeout, func(ctx context.Context) error {
		return s.store.Clear(ctx, s.userID, s.role)
	})
	if err != nil {
		return fmt.Errorf("clear stored history user=%d role=%s: %w", s.userID, s.role, err)
	}
	return nil
}

// Summary reports current usage statistics. UsagePercent may exceed 100:
// the budget is soft and a single oversized message is never trimmed away.
func (s *Session) Summary() Summary {
	systemTokens := EstimateTokens(s.system)
	historyTokens := HistoryTokens(s.history)
	total := systemTokens + historyTokens

	percent := 0.0
	if s.opts.TokenBudget > 0 {
		percent = math.Round(float64(total)/float64(s.opts.TokenBudget)*100*100) / 100
	}

	return Summary{
		MessageCount:     len(s.history),
		SystemTokens:     systemTokens,
		HistoryTokens:    historyTokens,
		TotalTokens:      total,
		MaxContextTokens: s.opts.TokenBudget,
		UsagePercent:     percent,
		Provider:         s.adapter.Name(),
	}
}
