package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	LLMProvider    string // gemini, openai, ollama, anthropic
	GeminiKey      string
	OpenAIKey      string
	AnthropicKey   string
	LLMModel       string
	OllamaBaseURL  string
	LLMTemperature float64

	DatabaseDriver string // sqlite, postgres, mysql
	DatabaseURL    string

	SelfID              string // operator's account id on the messaging platform
	SelfLabel           string // history label for operator-authored messages
	SelfName            string
	WebhookVerifyToken  string
	AutoGenerateReplies bool

	HTTPAddr string

	DiscordToken   string
	DiscordWebhook string
	DiscordUserID  string
	DigestCron     string

	LogLevel string
}

func Load() *Config {
	_ = godotenv.Load() // ignore error if no .env

	return &Config{
		LLMProvider:    envOr("LLM_PROVIDER", "gemini"),
		GeminiKey:      os.Getenv("GEMINI_API_KEY"),
		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		AnthropicKey:   os.Getenv("ANTHROPIC_API_KEY"),
		LLMModel:       os.Getenv("LLM_MODEL"),
		OllamaBaseURL:  envOr("OLLAMA_BASE_URL", "http://localhost:11434/v1"),
		LLMTemperature: envFloat("LLM_TEMPERATURE", 0.7),

		DatabaseDriver: envOr("DATABASE_DRIVER", "sqlite"),
		DatabaseURL:    envOr("DATABASE_URL", "./wingman.db"),

		SelfID:              os.Getenv("SELF_ID"),
		SelfLabel:           envOr("SELF_LABEL", "Me"),
		SelfName:            os.Getenv("SELF_NAME"),
		WebhookVerifyToken:  os.Getenv("WEBHOOK_VERIFY_TOKEN"),
		AutoGenerateReplies: envBool("AUTO_GENERATE_REPLIES", false),

		HTTPAddr: envOr("HTTP_ADDR", ":5000"),

		DiscordToken:   os.Getenv("DISCORD_BOT_TOKEN"),
		DiscordWebhook: os.Getenv("DISCORD_WEBHOOK_URL"),
		DiscordUserID:  os.Getenv("DISCORD_USER_ID"),
		DigestCron:     envOr("DIGEST_CRON", "0 9 * * *"),

		LogLevel: envOr("LOG_LEVEL", "info"),
	}
}

// APIKey returns the credential for the configured provider.
func (c *Config) APIKey() string {
	switch c.LLMProvider {
	case "openai":
		return c.OpenAIKey
	case "anthropic":
		return c.AnthropicKey
	case "ollama":
		return "ollama"
	default:
		return c.GeminiKey
	}
}

// Notifications reports whether any delivery channel is configured.
func (c *Config) Notifications() bool {
	return c.DiscordToken != "" || c.DiscordWebhook != ""
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func envFloat(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
