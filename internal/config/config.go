package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Prompts are fmt templates. Correction receives (source, attempt, context);
// Merge receives (source, attempt, corrected, annotations JSON, rationale).
type Prompts struct {
	Correction string `toml:"correction"`
	Merge      string `toml:"merge"`
}

type LLMConfig struct {
	Provider  string `toml:"provider"`
	Model     string `toml:"model"`
	APIKey    string `toml:"api_key"`
	BaseURL   string `toml:"base_url"`
	MaxTokens int    `toml:"max_tokens"`
}

type MemgraphConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

type CorrectionConfig struct {
	ForceSimple            bool `toml:"force_simple"`
	AllowFallbackOnFailure bool `toml:"allow_fallback_on_failure"`
}

// RemoteConfig points at another correction backend. When BaseURL is set
// correction and merge are delegated to it instead of the local LLM.
type RemoteConfig struct {
	BaseURL        string `toml:"base_url"`
	DeviceID       string `toml:"device_id"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

type ConcurrencyConfig struct {
	SaveBatch int `toml:"save_batch"`
}

type ServerConfig struct {
	Port string `toml:"port"`
}

type Config struct {
	LLM         LLMConfig         `toml:"llm"`
	Memgraph    MemgraphConfig    `toml:"memgraph"`
	Prompts     Prompts           `toml:"prompts"`
	Correction  CorrectionConfig  `toml:"correction"`
	Remote      RemoteConfig      `toml:"remote"`
	Concurrency ConcurrencyConfig `toml:"concurrency"`
	Server      ServerConfig      `toml:"server"`
}

// Default returns a configuration that runs against a local Ollama and
// Memgraph with the built-in prompts.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: "ollama",
			Model:    "gpt-oss:latest",
			BaseURL:  "http://localhost:11434",
		},
		Memgraph: MemgraphConfig{
			URI: "bolt://localhost:7687",
		},
		Prompts: Prompts{
			Correction: DefaultCorrectionPrompt,
			Merge:      DefaultMergePrompt,
		},
		Remote:      RemoteConfig{TimeoutSeconds: 60},
		Concurrency: ConcurrencyConfig{SaveBatch: 4},
		Server:      ServerConfig{Port: "8080"},
	}
}

// Load reads a TOML file on top of Default. Keys missing from the file keep
// their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment. lookup is os.LookupEnv in
// production.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			switch strings.ToLower(v) {
			case "1", "true", "yes", "on":
				*dst = true
			case "0", "false", "no", "off":
				*dst = false
			}
		}
	}

	str("LLM_PROVIDER", &c.LLM.Provider)
	str("LLM_MODEL", &c.LLM.Model)
	str("LLM_API_KEY", &c.LLM.APIKey)
	str("LLM_BASE_URL", &c.LLM.BaseURL)
	if v, ok := lookup("LLM_MAX_TOKENS"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			c.LLM.MaxTokens = n
		}
	}

	str("MEMGRAPH_URI", &c.Memgraph.URI)
	str("MEMGRAPH_USER", &c.Memgraph.User)
	str("MEMGRAPH_PASSWORD", &c.Memgraph.Password)

	str("REMOTE_BASE_URL", &c.Remote.BaseURL)
	str("DEVICE_ID", &c.Remote.DeviceID)

	flag("FORCE_SIMPLE_CORRECT", &c.Correction.ForceSimple)
	flag("ALLOW_FALLBACK_ON_FAILURE", &c.Correction.AllowFallbackOnFailure)

	str("PORT", &c.Server.Port)
}
