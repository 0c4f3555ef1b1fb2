package chat

import (
	"strings"
	"testing"
)

func TestEstimateTokens(t *testing.T) {
	if got := EstimateTokens(""); got != 0 {
		t.Errorf("expected 0 tokens for empty text, got %d", got)
	}
	if got := EstimateTokens("abcdefgh"); got != 2 {
		t.Errorf("expected 2 tokens for 8 chars, got %d", got)
	}
	// Counted in runes, not bytes.
	if got := EstimateTokens("привет мир!!"); got != 3 {
		t.Errorf("expected 3 tokens for 12 runes, got %d", got)
	}
}

func TestTrimHistory_UnderBudget(t *testing.T) {
	history := []Message{
		{Speaker: SpeakerUser, Content: "hello"},
		{Speaker: SpeakerAssistant, Content: "hi"},
	}
	got := TrimHistory(history, "prompt", 1000)
	if len(got) != 2 {
		t.Fatalf("expected history untouched, got %d messages", len(got))
	}
}

func TestTrimHistory_DropsOldestFirst(t *testing.T) {
	long := strings.Repeat("x", 400) // 100 tokens each
	history := []Message{
		{Speaker: SpeakerUser, Content: long},
		{Speaker: SpeakerAssistant, Content: long},
		{Speaker: SpeakerUser, Content: "latest"},
	}

	got := TrimHistory(history, "", 110)
	if len(got) != 2 {
		t.Fatalf("expected 2 messages after trim, got %d", len(got))
	}
	if got[len(got)-1].Content != "latest" {
		t.Errorf("most recent message must survive, got %q", got[len(got)-1].Content)
	}
	if got[0].Speaker != SpeakerAssistant {
		t.Errorf("expected oldest message dropped first")
	}
}

func TestTrimHistory_SystemPromptCountsAgainstBudget(t *testing.T) {
	prompt := strings.Repeat("p", 400) // 100 tokens
	history := []Message{
		{Speaker: SpeakerUser, Content: strings.Repeat("a", 40)},
		{Speaker: SpeakerUser, Content: strings.Repeat("b", 40)},
	}

	// Without the prompt both fit; with it only one does.
	got := TrimHistory(history, prompt, 115)
	if len(got) != 1 {
		t.Fatalf("expected 1 message, got %d", len(got))
	}
	if got[0].Content[0] != 'b' {
		t.Errorf("expected newest message kept")
	}
}

func TestTrimHistory_NeverDropsLastMessage(t *testing.T) {
	history := []Message{
		{Speaker: SpeakerUser, Content: strings.Repeat("y", 4000)},
	}
	got := TrimHistory(history, "", 10)
	if len(got) != 1 {
		t.Fatalf("single message must be retained even over budget, got %d", len(got))
	}
}

func TestTrimHistory_Invariant(t *testing.T) {
	// For any history and budget: len >= 1, and either the total fits or
	// exactly one message remains.
	long := strings.Repeat("z", 200)
	histories := [][]Message{
		{{Speaker: SpeakerUser, Content: "a"}},
		{
			{Speaker: SpeakerUser, Content: long},
			{Speaker: SpeakerAssistant, Content: long},
			{Speaker: SpeakerUser, Content: long},
			{Speaker: SpeakerAssistant, Content: long},
		},
	}
	for _, h := range histories {
		for _, budget := range []int{0, 10, 50, 100, 100000} {
			src := make([]Message, len(h))
			copy(src, h)
			got := TrimHistory(src, "sys", budget)
			if len(got) < 1 {
				t.Fatalf("budget=%d: trim emptied the history", budget)
			}
			total := EstimateTokens("sys") + HistoryTokens(got)
			if total > budget && len(got) != 1 {
				t.Errorf("budget=%d: %d tokens over budget with %d messages left", budget, total, len(got))
			}
		}
	}
}
