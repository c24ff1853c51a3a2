package llm

import (
	"context"
	"fmt"
)

type ProviderConfig struct {
	Provider string
	APIKey   string
	Model    string
	BaseURL  string
}

// NewClient builds the client for cfg.Provider. A missing key is not an
// error here; the returned client reports ErrNotConfigured per request.
func NewClient(ctx context.Context, cfg ProviderConfig) (Client, error) {
	if cfg.APIKey == "" {
		switch cfg.Provider {
		case "", "gemini", "openai", "anthropic", "ollama":
			return unconfigured{}, nil
		}
	}
	switch cfg.Provider {
	case "", "gemini":
		return NewGeminiClient(ctx, cfg.APIKey, cfg.Model)
	case "anthropic":
		return NewAnthropicClient(cfg.APIKey, cfg.Model), nil
	case "openai":
		return NewOpenAIClient(cfg.APIKey, cfg.Model, ""), nil
	case "ollama":
		if cfg.Model == "" {
			cfg.Model = "llama3.1"
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434/v1"
		}
		return NewOpenAIClient("ollama", cfg.Model, baseURL), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Provider)
	}
}
