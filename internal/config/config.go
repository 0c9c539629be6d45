package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port    string `yaml:"port"`
	DataDir string `yaml:"data_dir"`

	// Auth
	LanternAPIKey string `yaml:"-"`

	// Claude
	AnthropicAPIKey string        `yaml:"-"`
	AnthropicModel  string        `yaml:"anthropic_model"`
	LLMCooldown     time.Duration `yaml:"llm_cooldown"`
	LLMMaxOptions   int           `yaml:"llm_max_options"`
	PrinciplesFile  string        `yaml:"principles_file"`

	// Reference files sent with explore requests
	KnowledgeTokenBudget int `yaml:"knowledge_token_budget"`

	// Upload limits
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`

	// Sessions
	SessionIdleTTL time.Duration `yaml:"session_idle_ttl"`
	LabelMaxLen    int           `yaml:"label_max_len"`

	// PDF
	PDFFallbackPdftotext bool `yaml:"pdf_fallback_pdftotext"`
}

func defaults() Config {
	return Config{
		Port:                 "8090",
		DataDir:              "./sessions",
		AnthropicModel:       "claude-sonnet-4-5-20250929",
		LLMCooldown:          1 * time.Second,
		LLMMaxOptions:        3,
		KnowledgeTokenBudget: 6000,
		MaxUploadBytes:       20971520, // 20MB
		SessionIdleTTL:       1 * time.Hour,
		LabelMaxLen:          50,
		PDFFallbackPdftotext: true,
	}
}

// Load builds the configuration from defaults, the YAML file named by
// LANTERN_CONFIG if set, and environment variables, in increasing order of
// precedence. Secrets are only read from the environment.
func Load() (Config, error) {
	cfg := defaults()
	if path := os.Getenv("LANTERN_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.Port = envOr("PORT", cfg.Port)
	cfg.DataDir = envOr("DATA_DIR", cfg.DataDir)

	cfg.LanternAPIKey = os.Getenv("LANTERN_API_KEY")

	cfg.AnthropicAPIKey = os.Getenv("ANTHROPIC_API_KEY")
	cfg.AnthropicModel = envOr("ANTHROPIC_MODEL", cfg.AnthropicModel)
	cfg.LLMCooldown = envDuration("LLM_COOLDOWN", cfg.LLMCooldown)
	cfg.LLMMaxOptions = envInt("LLM_MAX_OPTIONS", cfg.LLMMaxOptions)
	cfg.PrinciplesFile = envOr("PRINCIPLES_FILE", cfg.PrinciplesFile)

	cfg.KnowledgeTokenBudget = envInt("KNOWLEDGE_TOKEN_BUDGET", cfg.KnowledgeTokenBudget)
	cfg.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)

	cfg.SessionIdleTTL = envDuration("SESSION_IDLE_TTL", cfg.SessionIdleTTL)
	cfg.LabelMaxLen = envInt("LABEL_MAX_LEN", cfg.LabelMaxLen)

	cfg.PDFFallbackPdftotext = envBool("PDF_FALLBACK_PDFTOTEXT", cfg.PDFFallbackPdftotext)

	def := defaults()
	if cfg.LLMCooldown < 0 {
		cfg.LLMCooldown = 0
	}
	if cfg.LLMMaxOptions <= 0 {
		cfg.LLMMaxOptions = def.LLMMaxOptions
	}
	if cfg.KnowledgeTokenBudget < 0 {
		cfg.KnowledgeTokenBudget = 0
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = def.MaxUploadBytes
	}
	if cfg.SessionIdleTTL <= 0 {
		cfg.SessionIdleTTL = def.SessionIdleTTL
	}
	if cfg.LabelMaxLen <= 0 {
		cfg.LabelMaxLen = def.LabelMaxLen
	}

	return cfg, nil
}

// Validate checks the required settings and that DATA_DIR is writable.
// ANTHROPIC_API_KEY is optional; without it the assistant is disabled.
func (c Config) Validate() error {
	if c.LanternAPIKey == "" {
		return fmt.Errorf("LANTERN_API_KEY is required")
	}
	if c.DataDir == "" {
		return fmt.Errorf("DATA_DIR is required")
	}
	if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
		return fmt.Errorf("DATA_DIR: %w", err)
	}
	f, err := os.CreateTemp(c.DataDir, ".probe-*")
	if err != nil {
		return fmt.Errorf("DATA_DIR is not writable: %w", err)
	}
	f.Close()
	os.Remove(f.Name())
	return nil
}

// AssistEnabled reports whether a model key is configured.
func (c Config) AssistEnabled() bool {
	return c.AnthropicAPIKey != ""
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
