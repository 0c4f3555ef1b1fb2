// Package provider implements the chat.Adapter contract for each remote
// LLM provider: OpenAI, Gemini and Cohere.
package provider

import (
	"errors"

	"github.com/astanafx/fxbot/internal/chat"
)

// Common adapter failures. The registry's fallback loop distinguishes a
// provider that cannot be used at all (missing credential) from one whose
// remote call failed.
var (
	ErrUnavailable = errors.New("provider unavailable")
	ErrCallFailed  = errors.New("provider call failed")
)

// FallbackReply is returned when a provider answers successfully but with
// no usable text. An empty completion is not an error.
const FallbackReply = "Sorry, the model did not return a response."

var (
	_ chat.Adapter = (*OpenAI)(nil)
	_ chat.Adapter = (*Gemini)(nil)
	_ chat.Adapter = (*Cohere)(nil)
)
