package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// clearEnv blanks every JOBPILOT_* variable so the host environment cannot
// leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, s := range specs {
		t.Setenv(s.env, "")
	}
}

func TestDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "missing.yaml")

	cfg, err := loadFromPath(path, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 4100 {
		t.Errorf("Server.Port = %d, want 4100", cfg.Server.Port)
	}
	if cfg.LLM.Provider != ProviderOllama {
		t.Errorf("LLM.Provider = %q, want %q", cfg.LLM.Provider, ProviderOllama)
	}
	if cfg.Ollama.BaseURL != "http://localhost:11434" {
		t.Errorf("Ollama.BaseURL = %q, want %q", cfg.Ollama.BaseURL, "http://localhost:11434")
	}
	if cfg.Jobs.TopN != 5 {
		t.Errorf("Jobs.TopN = %d, want 5", cfg.Jobs.TopN)
	}
	if cfg.Worker.PollInterval != 500*time.Millisecond {
		t.Errorf("Worker.PollInterval = %v, want 500ms", cfg.Worker.PollInterval)
	}
	if cfg.Log.Format != "console" || cfg.Log.Level != "info" {
		t.Errorf("Log = %+v, want info/console", cfg.Log)
	}
}

func TestYAMLParsing(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, `
server:
  port: 5000
ollama:
  model: qwen2.5:7b
jobs:
  provider_urls:
    - https://jobs.example.com/search
    - https://board.example.org/api
  catalog_file: /tmp/catalog.json
  top_n: 10
log:
  level: DEBUG
  format: json
worker:
  poll_interval: 2s
`)

	cfg, err := loadFromPath(path, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 5000 {
		t.Errorf("Server.Port = %d, want 5000", cfg.Server.Port)
	}
	if cfg.Ollama.Model != "qwen2.5:7b" {
		t.Errorf("Ollama.Model = %q, want %q", cfg.Ollama.Model, "qwen2.5:7b")
	}
	if len(cfg.Jobs.ProviderURLs) != 2 || cfg.Jobs.ProviderURLs[1] != "https://board.example.org/api" {
		t.Errorf("Jobs.ProviderURLs = %v", cfg.Jobs.ProviderURLs)
	}
	if cfg.Jobs.CatalogFile != "/tmp/catalog.json" {
		t.Errorf("Jobs.CatalogFile = %q", cfg.Jobs.CatalogFile)
	}
	if cfg.Jobs.TopN != 10 {
		t.Errorf("Jobs.TopN = %d, want 10", cfg.Jobs.TopN)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v, want debug/json", cfg.Log)
	}
	if cfg.Worker.PollInterval != 2*time.Second {
		t.Errorf("Worker.PollInterval = %v, want 2s", cfg.Worker.PollInterval)
	}
	// Untouched keys keep their defaults.
	if cfg.Ollama.BaseURL != "http://localhost:11434" {
		t.Errorf("Ollama.BaseURL = %q, want default", cfg.Ollama.BaseURL)
	}
}

func TestEnvOverride(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, `
server:
  port: 5000
jobs:
  provider_urls: https://file.example.com/search
`)

	t.Setenv("JOBPILOT_SERVER_PORT", "6000")
	t.Setenv("JOBPILOT_JOBS_PROVIDER_URLS", "https://a.example.com, https://b.example.com")
	t.Setenv("JOBPILOT_WORKER_POLL_INTERVAL", "250ms")

	cfg, err := loadFromPath(path, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 6000 {
		t.Errorf("Server.Port = %d, want 6000 (env should override file)", cfg.Server.Port)
	}
	if len(cfg.Jobs.ProviderURLs) != 2 || cfg.Jobs.ProviderURLs[0] != "https://a.example.com" {
		t.Errorf("Jobs.ProviderURLs = %v", cfg.Jobs.ProviderURLs)
	}
	if cfg.Worker.PollInterval != 250*time.Millisecond {
		t.Errorf("Worker.PollInterval = %v, want 250ms", cfg.Worker.PollInterval)
	}
}

func TestInvalidEnvKeepsDefault(t *testing.T) {
	clearEnv(t)
	t.Setenv("JOBPILOT_SERVER_PORT", "not-a-number")

	cfg, err := loadFromPath(filepath.Join(t.TempDir(), "none.yaml"), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 4100 {
		t.Errorf("Server.Port = %d, want default 4100", cfg.Server.Port)
	}
}

func TestDotEnvFile(t *testing.T) {
	clearEnv(t)
	envFile := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(envFile, []byte("JOBPILOT_OLLAMA_MODEL=from-dotenv\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	// godotenv sets real process variables; restore them when done.
	t.Cleanup(func() { os.Unsetenv("JOBPILOT_OLLAMA_MODEL") })
	os.Unsetenv("JOBPILOT_OLLAMA_MODEL")

	cfg, err := loadFromPath(filepath.Join(t.TempDir(), "none.yaml"), envFile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Ollama.Model != "from-dotenv" {
		t.Errorf("Ollama.Model = %q, want %q", cfg.Ollama.Model, "from-dotenv")
	}
}

func TestMissingProviderSecret(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, "llm:\n  provider: gemini\n")

	_, err := loadFromPath(path, "")
	if err == nil {
		t.Fatal("expected error for missing Gemini API key")
	}
	if !strings.Contains(err.Error(), "JOBPILOT_GEMINI_API_KEY") {
		t.Errorf("error should name the env var, got: %v", err)
	}

	t.Setenv("JOBPILOT_GEMINI_API_KEY", "secret")
	cfg, err := loadFromPath(path, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Gemini.APIKey != "secret" {
		t.Errorf("Gemini.APIKey = %q, want %q", cfg.Gemini.APIKey, "secret")
	}
}

func TestSecretsIgnoredInFile(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, "llm:\n  provider: openrouter\nopenrouter:\n  api_key: from-file\n")

	if _, err := loadFromPath(path, ""); err == nil {
		t.Fatal("expected error: API keys must come from the environment")
	}
}

func TestValidationErrors(t *testing.T) {
	clearEnv(t)
	path := writeTempConfig(t, `
server:
  port: 70000
llm:
  provider: mystery
jobs:
  top_n: 0
`)

	_, err := loadFromPath(path, "")
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, key := range []string{"server.port", "llm.provider", "jobs.top_n"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error should mention %s, got: %v", key, err)
		}
	}
}

func TestInvalidProviderURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("JOBPILOT_JOBS_PROVIDER_URLS", "not a url")

	_, err := loadFromPath(filepath.Join(t.TempDir(), "none.yaml"), "")
	if err == nil || !strings.Contains(err.Error(), "jobs.provider_urls") {
		t.Fatalf("expected jobs.provider_urls error, got %v", err)
	}
}

func TestSetKeyRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	b, err := newYAMLBackend(path)
	if err != nil {
		t.Fatal(err)
	}

	if err := setKeyIn(b, "server.port", "4200"); err != nil {
		t.Fatalf("setKeyIn port: %v", err)
	}
	if err := setKeyIn(b, "jobs.provider_urls", "https://x.example.com,https://y.example.com"); err != nil {
		t.Fatalf("setKeyIn urls: %v", err)
	}
	if err := setKeyIn(b, "worker.poll_interval", "1s"); err != nil {
		t.Fatalf("setKeyIn poll: %v", err)
	}

	cfg, err := loadFromPath(path, "")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if cfg.Server.Port != 4200 {
		t.Errorf("Server.Port = %d, want 4200", cfg.Server.Port)
	}
	if len(cfg.Jobs.ProviderURLs) != 2 {
		t.Errorf("Jobs.ProviderURLs = %v", cfg.Jobs.ProviderURLs)
	}
	if cfg.Worker.PollInterval != time.Second {
		t.Errorf("Worker.PollInterval = %v, want 1s", cfg.Worker.PollInterval)
	}
}

func TestSetKeyRejects(t *testing.T) {
	b, err := newYAMLBackend(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatal(err)
	}

	if err := setKeyIn(b, "no.such_key", "x"); err == nil {
		t.Error("expected error for unknown key")
	}
	if err := setKeyIn(b, "gemini.api_key", "x"); err == nil {
		t.Error("expected error for secret key")
	}
	if err := setKeyIn(b, "server.port", "abc"); err == nil {
		t.Error("expected error for non-integer port")
	}
	if err := setKeyIn(b, "worker.poll_interval", "soon"); err == nil {
		t.Error("expected error for bad duration")
	}
}

func TestShowAllMasksSecrets(t *testing.T) {
	cfg := defaults()
	cfg.OpenRouter.APIKey = "sk-live"

	for _, info := range ShowAll(cfg) {
		if strings.Contains(info.Value, "sk-live") {
			t.Fatalf("secret leaked in %s", info.Key)
		}
		if info.Key == "openrouter.api_key" && info.Value != "(set)" {
			t.Errorf("openrouter.api_key = %q, want (set)", info.Value)
		}
		if info.Key == "gemini.api_key" && info.Value != "(unset)" {
			t.Errorf("gemini.api_key = %q, want (unset)", info.Value)
		}
	}
}

func TestValidKeysExcludeSecrets(t *testing.T) {
	for _, k := range ValidKeys() {
		if strings.HasSuffix(k, "api_key") {
			t.Errorf("ValidKeys should not include secret %s", k)
		}
	}
	if len(ValidKeys()) != len(specs)-2 {
		t.Errorf("ValidKeys() = %d keys, want %d", len(ValidKeys()), len(specs)-2)
	}
}
