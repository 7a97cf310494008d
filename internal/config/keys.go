package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kDuration
	kList
)

type keySpec struct {
	key     string
	field   string // struct namespace below Config, used in validation messages
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", field: "Server.Port", typ: kInt, env: "JOBPILOT_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "llm.provider", field: "LLM.Provider", typ: kString, env: "JOBPILOT_LLM_PROVIDER",
		apply:   func(cfg *Config, v any) { cfg.LLM.Provider = strings.ToLower(v.(string)) },
		extract: func(cfg Config) any { return cfg.LLM.Provider },
	},
	{
		key: "ollama.base_url", field: "Ollama.BaseURL", typ: kString, env: "JOBPILOT_OLLAMA_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.BaseURL },
	},
	{
		key: "ollama.model", field: "Ollama.Model", typ: kString, env: "JOBPILOT_OLLAMA_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Ollama.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Ollama.Model },
	},
	{
		key: "gemini.api_key", typ: kString, env: "JOBPILOT_GEMINI_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Gemini.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.APIKey },
	},
	{
		key: "gemini.model", field: "Gemini.Model", typ: kString, env: "JOBPILOT_GEMINI_MODEL",
		apply:   func(cfg *Config, v any) { cfg.Gemini.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.Gemini.Model },
	},
	{
		key: "openrouter.api_key", typ: kString, env: "JOBPILOT_OPENROUTER_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.OpenRouter.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenRouter.APIKey },
	},
	{
		key: "openrouter.model", field: "OpenRouter.Model", typ: kString, env: "JOBPILOT_OPENROUTER_MODEL",
		apply:   func(cfg *Config, v any) { cfg.OpenRouter.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.OpenRouter.Model },
	},
	{
		key: "jobs.provider_urls", field: "Jobs.ProviderURLs", typ: kList, env: "JOBPILOT_JOBS_PROVIDER_URLS",
		apply:   func(cfg *Config, v any) { cfg.Jobs.ProviderURLs = v.([]string) },
		extract: func(cfg Config) any { return strings.Join(cfg.Jobs.ProviderURLs, ",") },
	},
	{
		key: "jobs.catalog_file", field: "Jobs.CatalogFile", typ: kString, env: "JOBPILOT_JOBS_CATALOG_FILE",
		apply:   func(cfg *Config, v any) { cfg.Jobs.CatalogFile = v.(string) },
		extract: func(cfg Config) any { return cfg.Jobs.CatalogFile },
	},
	{
		key: "jobs.top_n", field: "Jobs.TopN", typ: kInt, env: "JOBPILOT_JOBS_TOP_N",
		apply:   func(cfg *Config, v any) { cfg.Jobs.TopN = v.(int) },
		extract: func(cfg Config) any { return cfg.Jobs.TopN },
	},
	{
		key: "research.base_url", field: "Research.BaseURL", typ: kString, env: "JOBPILOT_RESEARCH_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Research.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Research.BaseURL },
	},
	{
		key: "storage.data_dir", field: "Storage.DataDir", typ: kString, env: "JOBPILOT_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", field: "Log.Level", typ: kString, env: "JOBPILOT_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = strings.ToLower(v.(string)) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "log.format", field: "Log.Format", typ: kString, env: "JOBPILOT_LOG_FORMAT",
		apply:   func(cfg *Config, v any) { cfg.Log.Format = strings.ToLower(v.(string)) },
		extract: func(cfg Config) any { return cfg.Log.Format },
	},
	{
		key: "worker.poll_interval", field: "Worker.PollInterval", typ: kDuration, env: "JOBPILOT_WORKER_POLL_INTERVAL",
		apply:   func(cfg *Config, v any) { cfg.Worker.PollInterval = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Worker.PollInterval.String() },
	},
}

func lookupSpec(key string) (keySpec, bool) {
	for _, s := range specs {
		if s.key == key {
			return s, true
		}
	}
	return keySpec{}, false
}

func envFor(key string) string {
	if s, ok := lookupSpec(key); ok {
		return s.env
	}
	return ""
}

// keyFor maps a validator namespace such as "Config.Jobs.TopN" to its key.
func keyFor(namespace string) string {
	ns := strings.TrimPrefix(namespace, "Config.")
	if i := strings.IndexByte(ns, '['); i >= 0 {
		ns = ns[:i]
	}
	for _, s := range specs {
		if s.field == ns {
			return s.key
		}
	}
	return namespace
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kDuration:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok && v != "" {
				d, err := time.ParseDuration(v)
				if err != nil {
					return fmt.Errorf("invalid duration for %s: %w", s.key, err)
				}
				s.apply(cfg, d)
			}
		case kList:
			v, ok, err := b.GetStrings(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := strings.TrimSpace(os.Getenv(s.env))
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kDuration:
			if d, err := time.ParseDuration(raw); err == nil {
				s.apply(cfg, d)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse duration from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		case kList:
			s.apply(cfg, splitList(raw))
		}
	}
}
