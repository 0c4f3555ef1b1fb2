package chat

import (
	"context"
	"unicode/utf8"
)

// HistoryStore is the persistence capability a session needs: durable
// keyed storage of ordered message lists per (user, role).
type HistoryStore interface {
	// GetHistory returns the stored messages for (userID, role) in
	// insertion order. A missing key yields an empty slice, not an error.
	GetHistory(ctx context.Context, userID int64, role string) ([]Message, error)

	// Append adds one message to the end of (userID, role)'s history.
	Append(ctx context.Context, userID int64, role string, speaker Speaker, content string) error

	// ReplaceAll atomically replaces (userID, role)'s history with msgs.
	// Used by clear-then-rewrite on save.
	ReplaceAll(ctx context.Context, userID int64, role string, msgs []Message) error

	// Clear deletes (userID, role)'s history. An empty role deletes the
	// histories of all roles for that user.
	Clear(ctx context.Context, userID int64, role string) error

	// Count returns the number of stored messages for (userID, role).
	Count(ctx context.Context, userID int64, role string) (int, error)
}

// Speaker identifies who authored a message in the unified history.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// Message is a provider-agnostic chat message. Conversion to each remote
// provider's wire format happens only inside the adapters.
type Message struct {
	Speaker Speaker
	Content string
}

// EstimateTokens approximates the token count of text from its character
// length (1 token ≈ 4 characters). It is a heuristic shared by every
// provider, not a real tokenizer.
func EstimateTokens(text string) int {
	return utf8.RuneCountInString(text) / 4
}

// HistoryTokens returns the estimated token total of all message contents.
func HistoryTokens(history []Message) int {
	total := 0
	for _, m := range history {
		total += EstimateTokens(m.Content)
	}
	return total
}

// TrimHistory removes messages from the oldest end until the estimated
// total of system prompt plus history fits the budget, or only one message
// remains. The most recent message is always retained even when it alone
// exceeds the budget.
func TrimHistory(history []Message, systemPrompt string, budget int) []Message {
	if len(history) == 0 {
		return history
	}

	total := EstimateTokens(systemPrompt) + HistoryTokens(history)
	for total > budget && len(history) > 1 {
		total -= EstimateTokens(history[0].Content)
		history = history[1:]
	}
	return history
}
