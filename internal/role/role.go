// Package role provides the system prompts for each supported audience
// and the currency-snapshot data woven into them.
package role

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultRole is substituted whenever an unknown or empty role is given.
const DefaultRole = "user"

var basePrompts = map[string]string{
	"user": `You are a financial assistant for retail clients.

Answer simply and warmly, without jargon. Use short phrases and the
occasional emoji. The goal is to help the person understand where the best
USD, EUR and RUB rates are today.

Terminology:
- currency_buy (usd_buy, eur_buy, rub_buy) is the rate at which the bank BUYS currency from clients
- currency_sell (usd_sell, eur_sell, rub_sell) is the rate at which the bank SELLS currency to clients

For the client:
- Best rate to sell currency = the maximum currency_sell
- Best rate to buy currency = the minimum currency_buy`,

	"employee": `You are a corporate financial assistant for bank staff.

Communicate formally and professionally; banking vocabulary is fine.
Beyond exchange rates, mention current bank products (deposits, bonds,
mutual funds) the employee can recommend to clients.

Terminology:
- currency_buy (usd_buy, eur_buy, rub_buy) is the rate at which the bank BUYS currency from clients
- currency_sell (usd_sell, eur_sell, rub_sell) is the rate at which the bank SELLS currency to clients

For the client:
- Best rate to sell currency = the maximum currency_sell
- Best rate to buy currency = the minimum currency_buy`,

	"investor": `You are an investment analyst.

Answer briefly, with figures and a risk assessment. Focus on attractive
instruments (bonds, gold, equities, FX deposits). Add recommendations
without long explanations; keep a terse analytical style.

Terminology:
- currency_buy (usd_buy, eur_buy, rub_buy) is the rate at which the bank BUYS currency from clients
- currency_sell (usd_sell, eur_sell, rub_sell) is the rate at which the bank SELLS currency to clients

For the client:
- Best rate to sell currency = the maximum currency_sell
- Best rate to buy currency = the minimum currency_buy`,
}

// Source resolves role identifiers to system prompts. Prompts are fixed
// at construction; the registry reads one per session build.
type Source struct {
	prompts      map[string]string
	currencyPath string
}

// Option configures a Source.
type Option func(*Source)

// WithPromptFile overlays prompt texts from a YAML file mapping role
// names to prompt bodies. Unknown role names in the file are ignored.
func WithPromptFile(path string) Option {
	return func(s *Source) {
		raw, err := os.ReadFile(path)
		if err != nil {
			return
		}
		var overrides map[string]string
		if err := yaml.Unmarshal(raw, &overrides); err != nil {
			return
		}
		for name, text := range overrides {
			if _, ok := s.prompts[name]; ok && text != "" {
				s.prompts[name] = text
			}
		}
	}
}

// WithCurrencyFile points the source at a parsed currency-snapshot JSON
// file whose contents are appended to every prompt.
func WithCurrencyFile(path string) Option {
	return func(s *Source) { s.currencyPath = path }
}

// NewSource builds a prompt source with the built-in role prompts.
func NewSource(opts ...Option) *Source {
	s := &Source{prompts: make(map[string]string, len(basePrompts))}
	for name, text := range basePrompts {
		s.prompts[name] = text
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsValid reports whether the role identifier is known.
func (s *Source) IsValid(role string) bool {
	_, ok := s.prompts[role]
	return ok
}

// Prompt returns the system prompt for the role, with the current
// currency snapshot appended. Unknown roles get the default role's
// prompt.
func (s *Source) Prompt(role string) string {
	base, ok := s.prompts[role]
	if !ok {
		base = s.prompts[DefaultRole]
	}
	return base + s.currencyData()
}

type currencySnapshot struct {
	Date string            `json:"date"`
	Data []json.RawMessage `json:"data"`
}

// currencyData formats the snapshot file for inclusion in a prompt. The
// prompt degrades to an unavailability note rather than failing.
func (s *Source) currencyData() string {
	if s.currencyPath == "" {
		return "\n\n(Currency rate data is temporarily unavailable)"
	}
	raw, err := os.ReadFile(s.currencyPath)
	if err != nil {
		return "\n\n(Currency rate data is temporarily unavailable)"
	}
	var snap currencySnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return fmt.Sprintf("\n\n(Failed to load currency rates: %v)", err)
	}

	date := snap.Date
	if date == "" {
		date = "unknown"
	}
	rows, err := json.MarshalIndent(snap.Data, "", "  ")
	if err != nil {
		return fmt.Sprintf("\n\n(Failed to load currency rates: %v)", err)
	}
	return fmt.Sprintf("\n\nCurrent currency rates (as of %s):\n%s", date, rows)
}
