package engine

import (
	"context"
	"fmt"
)

// Provider names accepted by New.
const (
	ProviderOllama     = "ollama"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
)

// Options selects and configures a backend.
type Options struct {
	Provider         string
	OllamaBaseURL    string
	OllamaModel      string
	GeminiAPIKey     string
	GeminiModel      string
	OpenRouterAPIKey string
	OpenRouterModel  string
}

// New returns the engine named by opts.Provider.
func New(ctx context.Context, opts Options) (Engine, error) {
	switch opts.Provider {
	case ProviderOllama, "":
		return NewOllamaEngine(opts.OllamaBaseURL, opts.OllamaModel), nil
	case ProviderGemini:
		return NewGeminiEngine(ctx, opts.GeminiAPIKey, opts.GeminiModel)
	case ProviderOpenRouter:
		if opts.OpenRouterAPIKey == "" {
			return nil, fmt.Errorf("openrouter api key is required")
		}
		return NewOpenRouterEngine(opts.OpenRouterAPIKey, opts.OpenRouterModel), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", opts.Provider)
	}
}
