package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/astanafx/fxbot/internal/chat"
	"github.com/astanafx/fxbot/internal/config"
	"github.com/astanafx/fxbot/internal/httpapi"
	"github.com/astanafx/fxbot/internal/provider"
	"github.com/astanafx/fxbot/internal/registry"
	"github.com/astanafx/fxbot/internal/role"
	"github.com/astanafx/fxbot/internal/store"
)

func main() {
	cfg := config.LoadServerConfig()

	listenAddr := pflag.String("listen", cfg.ListenAddr, "HTTP listen address")
	storeDriver := pflag.String("store", cfg.StoreDriver, "history store driver (memory|sqlite|redis)")
	dbPath := pflag.String("db", cfg.DBPath, "SQLite database path")
	pflag.Parse()
	cfg.ListenAddr = *listenAddr
	cfg.StoreDriver = *storeDriver
	cfg.DBPath = *dbPath

	st, err := store.New(store.Driver(cfg.StoreDriver), store.Config{
		Path:          cfg.DBPath,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
	})
	if err != nil {
		log.Fatalf("[server] %v", err)
	}
	defer st.Close()

	adapters, err := buildAdapters(cfg)
	if err != nil {
		log.Fatalf("[server] %v", err)
	}

	var roleOpts []role.Option
	if cfg.PromptFile != "" {
		roleOpts = append(roleOpts, role.WithPromptFile(cfg.PromptFile))
	}
	if cfg.CurrencyFile != "" {
		roleOpts = append(roleOpts, role.WithCurrencyFile(cfg.CurrencyFile))
	}
	prompts := role.NewSource(roleOpts...)

	reg := registry.New(st, prompts, adapters, chat.Options{
		TokenBudget:     cfg.TokenBudget,
		Temperature:     cfg.Temperature,
		MaxOutputTokens: cfg.MaxOutputTokens,
		PersistTimeout:  time.Duration(cfg.PersistTimeoutSeconds) * time.Second,
	})

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: httpapi.NewServer(reg),
	}

	go func() {
		log.Printf("[server] listening on %s store=%s providers=%v",
			cfg.ListenAddr, cfg.StoreDriver, reg.Providers())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[server] %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Printf("[server] shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[server] shutdown: %v", err)
	}
}

// buildAdapters constructs every known adapter and orders them by the
// configured fallback list. Adapters with missing credentials are still
// registered; they answer ErrUnavailable so automatic mode skips them.
func buildAdapters(cfg config.ServerConfig) ([]chat.Adapter, error) {
	timeout := time.Duration(cfg.ProviderTimeoutSeconds) * time.Second
	byName := map[string]chat.Adapter{
		"openai": provider.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIChatCompURL, cfg.OpenAIModel, timeout),
		"gemini": provider.NewGemini(cfg.GeminiAPIKey, cfg.GeminiBaseURL, cfg.GeminiModel, timeout),
		"cohere": provider.NewCohere(cfg.CohereAPIKey, cfg.CohereChatURL, cfg.CohereModel, timeout),
	}

	names := cfg.Fallback()
	adapters := make([]chat.Adapter, 0, len(names))
	for _, name := range names {
		adapter, ok := byName[name]
		if !ok {
			return nil, errors.New("unknown provider in fallback order: " + name)
		}
		adapters = append(adapters, adapter)
		if keyMissing(cfg, name) {
			log.Printf("[server] provider %s has no credential configured, fallback will skip it", name)
		}
	}
	if len(adapters) == 0 {
		return nil, errors.New("fallback order is empty")
	}
	return adapters, nil
}

func keyMissing(cfg config.ServerConfig, name string) bool {
	switch name {
	case "openai":
		return cfg.OpenAIAPIKey == ""
	case "gemini":
		return cfg.GeminiAPIKey == ""
	case "cohere":
		return cfg.CohereAPIKey == ""
	}
	return false
}
