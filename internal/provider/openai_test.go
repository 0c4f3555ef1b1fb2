package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/astanafx/fxbot/internal/chat"
)

func openaiReply(t *testing.T, content string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": content}},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}
}

func TestOpenAI_Complete(t *testing.T) {
	var captured openaiRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Error(err)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		openaiReply(t, "Hello!")(w, r)
	}))
	defer server.Close()

	adapter := NewOpenAI("test-key", server.URL, "test-model", 5*time.Second)
	history := []chat.Message{
		{Speaker: chat.SpeakerUser, Content: "question"},
		{Speaker: chat.SpeakerAssistant, Content: "answer"},
		{Speaker: chat.Speaker("tool"), Content: "weird role"},
	}
	reply, err := adapter.Complete(context.Background(), "be brief", history, chat.GenConfig{Temperature: 0.2, MaxOutputTokens: 100})
	if err != nil {
		t.Fatal(err)
	}
	if reply != "Hello!" {
		t.Errorf("expected 'Hello!', got %q", reply)
	}

	want := []openaiMessage{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "question"},
		{Role: "assistant", Content: "answer"},
		{Role: "user", Content: "weird role"}, // unknown speakers coerce to user
	}
	if len(captured.Messages) != len(want) {
		t.Fatalf("expected %d outbound messages, got %d", len(want), len(captured.Messages))
	}
	for i, m := range want {
		if captured.Messages[i] != m {
			t.Errorf("message %d: got %+v, want %+v", i, captured.Messages[i], m)
		}
	}
	if captured.MaxTokens != 100 {
		t.Errorf("expected max_tokens 100, got %d", captured.MaxTokens)
	}
}

func TestOpenAI_EmptyCompletionMapsToFallbackReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer server.Close()

	adapter := NewOpenAI("test-key", server.URL, "test-model", 5*time.Second)
	reply, err := adapter.Complete(context.Background(), "", []chat.Message{{Speaker: chat.SpeakerUser, Content: "hi"}}, chat.GenConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if reply != FallbackReply {
		t.Errorf("expected the fallback sentence, got %q", reply)
	}
}

func TestOpenAI_MissingKeyIsUnavailable(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	adapter := NewOpenAI("", server.URL, "test-model", 5*time.Second)
	_, err := adapter.Complete(context.Background(), "", []chat.Message{{Speaker: chat.SpeakerUser, Content: "hi"}}, chat.GenConfig{})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if called {
		t.Error("no network call may be issued without a credential")
	}
}

func TestOpenAI_ErrorClassification(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrUnavailable},
		{http.StatusForbidden, ErrUnavailable},
		{http.StatusInternalServerError, ErrCallFailed},
		{http.StatusTooManyRequests, ErrCallFailed},
	}
	for _, tc := range tests {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		adapter := NewOpenAI("test-key", server.URL, "test-model", 5*time.Second)
		_, err := adapter.Complete(context.Background(), "", []chat.Message{{Speaker: chat.SpeakerUser, Content: "hi"}}, chat.GenConfig{})
		if !errors.Is(err, tc.want) {
			t.Errorf("status %d: expected %v, got %v", tc.status, tc.want, err)
		}
		server.Close()
	}
}

func TestOpenAI_TransportErrorIsCallFailed(t *testing.T) {
	adapter := NewOpenAI("test-key", "http://127.0.0.1:1", "test-model", time.Second)
	_, err := adapter.Complete(context.Background(), "", []chat.Message{{Speaker: chat.SpeakerUser, Content: "hi"}}, chat.GenConfig{})
	if !errors.Is(err, ErrCallFailed) {
		t.Fatalf("expected ErrCallFailed, got %v", err)
	}
}
