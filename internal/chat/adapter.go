package chat

import "context"

// GenConfig carries per-turn generation settings handed to the bound
// adapter.
type GenConfig struct {
	Temperature     float64
	MaxOutputTokens int
}

// Adapter is the provider capability a session needs: translate the
// unified history into one remote provider's wire format and execute a
// single completion call. Implementations live in the provider package.
type Adapter interface {
	// Name is a stable short identifier used in statistics and logs.
	Name() string

	// Complete issues exactly one logical turn against the remote
	// provider and returns the completion text.
	Complete(ctx context.Context, systemPrompt string, history []Message, cfg GenConfig) (string, error)
}
