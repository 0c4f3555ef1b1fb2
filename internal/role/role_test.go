package role

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestIsValid(t *testing.T) {
	s := NewSource()
	for _, r := range []string{"user", "employee", "investor"} {
		if !s.IsValid(r) {
			t.Errorf("expected role %s to be valid", r)
		}
	}
	for _, r := range []string{"", "admin", "USER"} {
		if s.IsValid(r) {
			t.Errorf("expected role %q to be invalid", r)
		}
	}
}

func TestPrompt_UnknownRoleFallsBackToDefault(t *testing.T) {
	s := NewSource()
	if s.Prompt("admin") != s.Prompt(DefaultRole) {
		t.Error("unknown role should yield the default prompt")
	}
}

func TestPrompt_NotesMissingCurrencyData(t *testing.T) {
	s := NewSource()
	if !strings.Contains(s.Prompt("user"), "temporarily unavailable") {
		t.Error("prompt should note missing currency data")
	}
}

func TestPrompt_AppendsCurrencySnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.json")
	data := `{"date": "2026-08-28", "data": [{"bank": "alpha", "usd_buy": 538.5, "usd_sell": 541.0}]}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewSource(WithCurrencyFile(path))
	prompt := s.Prompt("investor")
	if !strings.Contains(prompt, "2026-08-28") {
		t.Error("prompt should include the snapshot date")
	}
	if !strings.Contains(prompt, "usd_buy") {
		t.Error("prompt should include the rate rows")
	}
}

func TestWithPromptFile_OverridesKnownRoles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	data := "investor: |\n  Custom analyst prompt.\nmystery: |\n  Ignored.\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewSource(WithPromptFile(path))
	if !strings.Contains(s.Prompt("investor"), "Custom analyst prompt.") {
		t.Error("expected the overridden investor prompt")
	}
	if s.IsValid("mystery") {
		t.Error("a prompt file must not introduce new roles")
	}
	if !strings.Contains(s.Prompt("user"), "financial assistant") {
		t.Error("roles not in the file keep their built-in prompt")
	}
}
