package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	PersonaQASupport         = "qa-support"
	PersonaTestCaseGenerator = "test-case-generator"

	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

type Config struct {
	HTTPPort    string `envconfig:"HTTP_PORT" default:"3000"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding string `envconfig:"LOG_ENCODING" default:"json"`

	// Base URL of the external test-generation service's story API.
	StoryAPIURL     string        `envconfig:"STORY_API_URL" default:"http://127.0.0.1:5000/api/stories"`
	UpstreamTimeout time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"30s"`

	LLMProvider  string        `envconfig:"LLM_PROVIDER" default:"gemini"`
	LLMModel     string        `envconfig:"LLM_MODEL"`
	LLMBaseURL   string        `envconfig:"LLM_BASE_URL"`
	LLMTimeout   time.Duration `envconfig:"LLM_TIMEOUT" default:"60s"`
	LLMMaxTokens int           `envconfig:"LLM_MAX_TOKENS" default:"2000"`

	GenerationPersona string `envconfig:"GENERATION_PERSONA" default:"qa-support"`

	// Shared in-memory database keeps chat transcripts for the process lifetime only.
	ChatDatabaseURL string `envconfig:"CHAT_DATABASE_URL" default:"file:chat_sessions?mode=memory&cache=shared"`

	// Secrets are read outside envconfig so they never show up in its usage output.
	GeminiAPIKey string `ignored:"true"`
	OpenAIAPIKey string `ignored:"true"`
}

// LoadConfig reads an optional .env file and then the process environment.
// A missing LLM API key is not an error: generation falls back to mock mode.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}
	return loadFromEnv()
}

func loadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	cfg.GeminiAPIKey = getEnv("GOOGLE_GENERATIVE_AI_API_KEY", "")
	cfg.OpenAIAPIKey = getEnv("OPENAI_API_KEY", "")

	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	cfg.GenerationPersona = strings.ToLower(strings.TrimSpace(cfg.GenerationPersona))

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.LLMModel == "" {
		cfg.LLMModel = defaultModel(cfg.LLMProvider)
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.GenerationPersona {
	case PersonaQASupport, PersonaTestCaseGenerator:
	default:
		return fmt.Errorf("unknown GENERATION_PERSONA %q", c.GenerationPersona)
	}
	switch c.LLMProvider {
	case ProviderGemini, ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}
	if c.LLMMaxTokens <= 0 {
		return fmt.Errorf("LLM_MAX_TOKENS must be positive, got %d", c.LLMMaxTokens)
	}
	return nil
}

// LLMAPIKey returns the key for the selected provider. Ollama needs none, so
// it reports a placeholder whenever a base URL is configured.
func (c *Config) LLMAPIKey() string {
	switch c.LLMProvider {
	case ProviderOpenAI:
		return c.OpenAIAPIKey
	case ProviderOllama:
		if c.LLMBaseURL != "" {
			return "ollama"
		}
		return ""
	default:
		return c.GeminiAPIKey
	}
}

func defaultModel(provider string) string {
	switch provider {
	case ProviderOpenAI:
		return "gpt-4o-mini"
	case ProviderOllama:
		return "llama3.1"
	default:
		return "gemini-1.5-flash"
	}
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
