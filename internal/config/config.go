package config

import (
	"os"
	"strconv"
	"strings"
)

// ServerConfig holds configuration for the chat server process.
type ServerConfig struct {
	ListenAddr string

	OpenAIAPIKey      string
	OpenAIChatCompURL string
	OpenAIModel       string

	GeminiAPIKey  string
	GeminiBaseURL string
	GeminiModel   string

	CohereAPIKey  string
	CohereChatURL string
	CohereModel   string

	// FallbackOrder is the comma-separated automatic try order.
	FallbackOrder string

	StoreDriver   string
	DBPath        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	TokenBudget            int
	Temperature            float64
	MaxOutputTokens        int
	ProviderTimeoutSeconds int
	PersistTimeoutSeconds  int

	PromptFile   string
	CurrencyFile string
}

// LoadServerConfig reads server configuration from environment variables.
// Provider API keys may be absent; a provider without a credential is
// skipped by fallback instead of failing startup.
func LoadServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddr: envOrDefault("FXBOT_LISTEN_ADDR", ":8080"),

		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIChatCompURL: envOrDefault("OPENAI_CHAT_COMPLETIONS_URL", "https://api.openai.com/v1/chat/completions"),
		OpenAIModel:       envOrDefault("GPT_MODEL", "gpt-4.1-mini"),

		GeminiAPIKey:  os.Getenv("GEMINI_API_KEY"),
		GeminiBaseURL: envOrDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiModel:   envOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),

		CohereAPIKey:  os.Getenv("COHERE_API_KEY"),
		CohereChatURL: envOrDefault("COHERE_CHAT_URL", "https://api.cohere.com/v1/chat"),
		CohereModel:   envOrDefault("COHERE_MODEL", "command-r-08-2024"),

		FallbackOrder: envOrDefault("FXBOT_FALLBACK_ORDER", "cohere,openai,gemini"),

		StoreDriver:   envOrDefault("FXBOT_STORE_DRIVER", "sqlite"),
		DBPath:        envOrDefault("FXBOT_DB_PATH", "/state/chat.db"),
		RedisAddr:     os.Getenv("FXBOT_REDIS_ADDR"),
		RedisPassword: os.Getenv("FXBOT_REDIS_PASSWORD"),
		RedisDB:       envIntOrDefault("FXBOT_REDIS_DB", 0),

		TokenBudget:            envIntOrDefault("FXBOT_TOKEN_BUDGET", 30000),
		Temperature:            envFloatOrDefault("FXBOT_TEMPERATURE", 0.2),
		MaxOutputTokens:        envIntOrDefault("FXBOT_MAX_OUTPUT_TOKENS", 2000),
		ProviderTimeoutSeconds: envIntOrDefault("FXBOT_PROVIDER_TIMEOUT_SECONDS", 60),
		PersistTimeoutSeconds:  envIntOrDefault("FXBOT_PERSIST_TIMEOUT_SECONDS", 5),

		PromptFile:   os.Getenv("FXBOT_PROMPT_FILE"),
		CurrencyFile: os.Getenv("FXBOT_CURRENCY_FILE"),
	}
}

// Fallback returns the configured fallback order as a cleaned name list.
func (c ServerConfig) Fallback() []string {
	parts := strings.Split(c.FallbackOrder, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if name := strings.TrimSpace(p); name != "" {
			names = append(names, name)
		}
	}
	return names
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOrDefault(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloatOrDefault(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
