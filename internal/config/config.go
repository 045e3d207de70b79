// Package config loads the engine's runtime configuration: which backend to
// connect to, the default tenant isolation policy, and LLM provider
// credentials and budgets. Precedence is defaults < file < environment; the
// OS keychain only fills in API keys that are still empty after that.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/coderisk/gkg/internal/tenant"
)

// Config holds every setting the engine needs to boot.
type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Tenant  TenantConfig  `yaml:"tenant"`
	LLM     LLMConfig     `yaml:"llm"`
	Budget  BudgetConfig  `yaml:"budget"`
}

// BackendConfig describes which graph.Store implementation to construct.
type BackendConfig struct {
	// Type selects the store: "memory" or "neo4j".
	Type string `yaml:"type"`

	Neo4jURI      string `yaml:"neo4j_uri"`
	Neo4jUsername string `yaml:"neo4j_username"`
	Neo4jPassword string `yaml:"neo4j_password"`
	Neo4jDatabase string `yaml:"neo4j_database"`

	// RegistryDSN is the tenant/audit SQL registry's connection string.
	// Empty means the bbolt registry is used instead.
	RegistryDSN string `yaml:"registry_dsn"`
	BoltPath    string `yaml:"bolt_path"`
}

// TenantConfig holds the configured default isolation policy. It is loaded
// and saved with the rest of the configuration; the tenant manager does not
// read it (Manager.Resolve falls back to PropertyScoped and "tenant create"
// defaults to property_scoped).
type TenantConfig struct {
	DefaultPolicy tenant.Policy `yaml:"default_policy"`
}

// LLMConfig holds provider selection, credentials, and model defaults.
type LLMConfig struct {
	Provider string `yaml:"provider"` // "openai", "anthropic", "gemini"

	OpenAIKey      string `yaml:"openai_key"`
	OpenAIModel    string `yaml:"openai_model"`
	AnthropicKey   string `yaml:"anthropic_key"`
	AnthropicModel string `yaml:"anthropic_model"`
	GeminiKey      string `yaml:"gemini_key"`
	GeminiModel    string `yaml:"gemini_model"`

	// UseKeychain fills in, from the OS keychain, whichever provider key is
	// still empty after the config file and environment variables are read.
	UseKeychain bool `yaml:"use_keychain"`

	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// BudgetConfig holds per-call and daily LLM spend ceilings. They are loaded
// and saved with the configuration; no connector reads or enforces them.
type BudgetConfig struct {
	PerCallCeilingUSD float64 `yaml:"per_call_ceiling_usd"`
	DailyCeilingUSD   float64 `yaml:"daily_ceiling_usd"`
}

// Default returns the configuration used when no file or environment
// variable overrides a setting.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Backend: BackendConfig{
			Type:     "memory",
			BoltPath: filepath.Join(homeDir, ".gkg", "tenants.db"),
		},
		Tenant: TenantConfig{
			DefaultPolicy: tenant.PropertyScoped,
		},
		LLM: LLMConfig{
			Provider:          "openai",
			OpenAIModel:       "gpt-4o-mini",
			AnthropicModel:    "claude-3-5-haiku-latest",
			GeminiModel:       "gemini-2.0-flash",
			RequestsPerMinute: 60,
		},
		Budget: BudgetConfig{
			PerCallCeilingUSD: 0.10,
			DailyCeilingUSD:   20.00,
		},
	}
}

// Load reads configuration from an optional YAML file, then overlays
// environment variables, then (for LLM keys only, when UseKeychain is set
// and neither the file nor an environment variable supplied a key) the OS
// keychain.
//
// path may be empty, in which case viper searches "./.gkg/config.yaml",
// "./config.yaml", and "$HOME/.gkg/config.yaml", in that order.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("GKG")
	v.AutomaticEnv()

	cfg := Default()
	v.SetDefault("backend", cfg.Backend)
	v.SetDefault("tenant", cfg.Tenant)
	v.SetDefault("llm", cfg.LLM)
	v.SetDefault("budget", cfg.Budget)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".gkg")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".gkg"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) { dc.TagName = "yaml" }); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)

	if cfg.LLM.UseKeychain {
		applyKeychainOverrides(cfg)
	}

	return cfg, nil
}

// loadEnvFiles loads .env files in order of precedence: a local override
// file first, then the main .env, then a per-user file under the home
// directory's config folder.
func loadEnvFiles() {
	for _, file := range []string{".env.local", ".env"} {
		if _, err := os.Stat(file); err == nil {
			_ = godotenv.Load(file)
		}
	}
	homeDir, _ := os.UserHomeDir()
	homeEnvFile := filepath.Join(homeDir, ".gkg", ".env")
	if _, err := os.Stat(homeEnvFile); err == nil {
		_ = godotenv.Load(homeEnvFile)
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("NEO4J_URI"); v != "" {
		cfg.Backend.Neo4jURI = v
		cfg.Backend.Type = "neo4j"
	}
	if v := os.Getenv("NEO4J_USERNAME"); v != "" {
		cfg.Backend.Neo4jUsername = v
	}
	if v := os.Getenv("NEO4J_PASSWORD"); v != "" {
		cfg.Backend.Neo4jPassword = v
	}
	if v := os.Getenv("REGISTRY_DSN"); v != "" {
		cfg.Backend.RegistryDSN = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.LLM.OpenAIKey = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.LLM.AnthropicKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.LLM.GeminiKey = v
	}
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
}

// Save writes the configuration to a YAML file, creating parent directories
// as needed.
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")
	v.Set("backend", c.Backend)
	v.Set("tenant", c.Tenant)
	v.Set("llm", c.LLM)
	v.Set("budget", c.Budget)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
