package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// LLM providers accepted by llm.provider.
const (
	ProviderOllama     = "ollama"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
)

type Config struct {
	Server     ServerConfig
	LLM        LLMConfig
	Ollama     OllamaConfig
	Gemini     GeminiConfig
	OpenRouter OpenRouterConfig
	Jobs       JobsConfig
	Research   ResearchConfig
	Storage    StorageConfig
	Log        LogConfig
	Worker     WorkerConfig
}

type ServerConfig struct {
	Port int `validate:"min=1,max=65535"`
}

type LLMConfig struct {
	Provider string `validate:"oneof=ollama gemini openrouter"`
}

type OllamaConfig struct {
	BaseURL string `validate:"required,url"`
	Model   string `validate:"required"`
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type OpenRouterConfig struct {
	APIKey string
	Model  string
}

// JobsConfig selects where job postings come from. ProviderURLs are HTTP
// search endpoints; CatalogFile is a local JSON catalog. Both may be set.
type JobsConfig struct {
	ProviderURLs []string `validate:"dive,url"`
	CatalogFile  string
	TopN         int `validate:"min=1,max=50"`
}

type ResearchConfig struct {
	BaseURL string `validate:"required,url"`
}

type StorageConfig struct {
	DataDir string `validate:"required"`
}

type LogConfig struct {
	Level  string `validate:"oneof=debug info warn error"`
	Format string `validate:"oneof=console json"`
}

type WorkerConfig struct {
	PollInterval time.Duration `validate:"min=10ms"`
}

func defaults() Config {
	return Config{
		Server: ServerConfig{Port: 4100},
		LLM:    LLMConfig{Provider: ProviderOllama},
		Ollama: OllamaConfig{
			BaseURL: "http://localhost:11434",
			Model:   "llama3.1:8b",
		},
		Gemini:     GeminiConfig{Model: "gemini-2.5-flash"},
		OpenRouter: OpenRouterConfig{Model: "openai/gpt-4o-mini"},
		Jobs:       JobsConfig{TopN: 5},
		Research:   ResearchConfig{BaseURL: "https://en.wikipedia.org/wiki/"},
		Storage:    StorageConfig{DataDir: defaultDataDir()},
		Log:        LogConfig{Level: "info", Format: "console"},
		Worker:     WorkerConfig{PollInterval: 500 * time.Millisecond},
	}
}

// Load reads configuration in increasing precedence: built-in defaults, the
// YAML file at ConfigFilePath, a .env file in the working directory, and
// JOBPILOT_* environment variables. API keys are read from the environment
// only.
func Load() (Config, error) {
	return loadFromPath(ConfigFilePath(), ".env")
}

func loadFromPath(configPath, envFile string) (Config, error) {
	b, err := newYAMLBackend(configPath)
	if err != nil {
		return Config{}, err
	}
	if envFile != "" {
		// A missing .env is normal; existing variables are never overwritten.
		_ = godotenv.Load(envFile)
	}
	return loadWith(b)
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}
	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks value ranges and that the selected LLM provider has the
// credentials it needs.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s: failed %q (got %v)", keyFor(fe.StructNamespace()), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	switch c.LLM.Provider {
	case ProviderGemini:
		if c.Gemini.APIKey == "" {
			return missingSecret("Gemini API key", "gemini.api_key")
		}
	case ProviderOpenRouter:
		if c.OpenRouter.APIKey == "" {
			return missingSecret("OpenRouter API key", "openrouter.api_key")
		}
	}
	return nil
}

func missingSecret(what, key string) error {
	return fmt.Errorf("missing required config: %s. Set it via environment variable %s", what, envFor(key))
}
