package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"LLM_PROVIDER", "DATABASE_DRIVER", "DATABASE_URL", "SELF_LABEL", "HTTP_ADDR", "LLM_TEMPERATURE", "AUTO_GENERATE_REPLIES", "DIGEST_CRON"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, "gemini", cfg.LLMProvider)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, "./wingman.db", cfg.DatabaseURL)
	assert.Equal(t, "Me", cfg.SelfLabel)
	assert.Equal(t, ":5000", cfg.HTTPAddr)
	assert.Equal(t, 0.7, cfg.LLMTemperature)
	assert.False(t, cfg.AutoGenerateReplies)
	assert.Equal(t, "0 9 * * *", cfg.DigestCron)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("LLM_TEMPERATURE", "0.25")
	t.Setenv("AUTO_GENERATE_REPLIES", "true")

	cfg := Load()
	assert.Equal(t, "openai", cfg.LLMProvider)
	assert.Equal(t, "sk-test", cfg.APIKey())
	assert.Equal(t, 0.25, cfg.LLMTemperature)
	assert.True(t, cfg.AutoGenerateReplies)
}

func TestLoad_BadNumbersFallBack(t *testing.T) {
	t.Setenv("LLM_TEMPERATURE", "warm")
	t.Setenv("AUTO_GENERATE_REPLIES", "sometimes")

	cfg := Load()
	assert.Equal(t, 0.7, cfg.LLMTemperature)
	assert.False(t, cfg.AutoGenerateReplies)
}

func TestAPIKey_PerProvider(t *testing.T) {
	cfg := &Config{GeminiKey: "g", OpenAIKey: "o", AnthropicKey: "a"}

	tests := []struct {
		provider string
		want     string
	}{
		{"gemini", "g"},
		{"", "g"},
		{"openai", "o"},
		{"anthropic", "a"},
		{"ollama", "ollama"},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			cfg.LLMProvider = tt.provider
			assert.Equal(t, tt.want, cfg.APIKey())
		})
	}
}
