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

func TestCohere_Complete(t *testing.T) {
	var captured cohereRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Error(err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"text": "Salem!"})
	}))
	defer server.Close()

	adapter := NewCohere("test-key", server.URL, "test-model", 5*time.Second)
	history := []chat.Message{
		{Speaker: chat.SpeakerUser, Content: "question"},
		{Speaker: chat.SpeakerAssistant, Content: "answer"},
		{Speaker: chat.SpeakerAssistant, Content: "   "}, // dropped: cohere rejects empty messages
		{Speaker: chat.SpeakerUser, Content: "latest"},
	}
	reply, err := adapter.Complete(context.Background(), "preamble text", history, chat.GenConfig{Temperature: 0.2, MaxOutputTokens: 64})
	if err != nil {
		t.Fatal(err)
	}
	if reply != "Salem!" {
		t.Errorf("expected 'Salem!', got %q", reply)
	}

	if captured.Message != "latest" {
		t.Errorf("the newest user message goes in the message field, got %q", captured.Message)
	}
	if captured.Preamble != "preamble text" {
		t.Errorf("expected preamble, got %q", captured.Preamble)
	}
	want := []cohereTurn{
		{Role: "USER", Message: "question"},
		{Role: "CHATBOT", Message: "answer"},
	}
	if len(captured.ChatHistory) != len(want) {
		t.Fatalf("expected %d history turns, got %d: %+v", len(want), len(captured.ChatHistory), captured.ChatHistory)
	}
	for i, turn := range want {
		if captured.ChatHistory[i] != turn {
			t.Errorf("turn %d: got %+v, want %+v", i, captured.ChatHistory[i], turn)
		}
	}
}

func TestCohere_UnknownSpeakerCoercesToUser(t *testing.T) {
	var captured cohereRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(map[string]any{"text": "ok"})
	}))
	defer server.Close()

	adapter := NewCohere("test-key", server.URL, "test-model", 5*time.Second)
	history := []chat.Message{
		{Speaker: chat.Speaker("system"), Content: "odd"},
		{Speaker: chat.SpeakerUser, Content: "latest"},
	}
	if _, err := adapter.Complete(context.Background(), "", history, chat.GenConfig{}); err != nil {
		t.Fatal(err)
	}
	if len(captured.ChatHistory) != 1 || captured.ChatHistory[0].Role != "USER" {
		t.Errorf("unknown speaker must map to USER, got %+v", captured.ChatHistory)
	}
}

func TestCohere_EmptyTextMapsToFallbackReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"text": ""})
	}))
	defer server.Close()

	adapter := NewCohere("test-key", server.URL, "test-model", 5*time.Second)
	reply, err := adapter.Complete(context.Background(), "", []chat.Message{{Speaker: chat.SpeakerUser, Content: "hi"}}, chat.GenConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if reply != FallbackReply {
		t.Errorf("expected the fallback sentence, got %q", reply)
	}
}

func TestCohere_MissingKeyIsUnavailable(t *testing.T) {
	adapter := NewCohere("", "http://unused", "test-model", time.Second)
	_, err := adapter.Complete(context.Background(), "", []chat.Message{{Speaker: chat.SpeakerUser, Content: "hi"}}, chat.GenConfig{})
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
