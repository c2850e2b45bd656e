package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAddr          = ":8000"
	DefaultStepDelay     = 200 * time.Millisecond
	DefaultStepTimeout   = 120 * time.Second
	DefaultMaxIdeaLength = 2000

	TogetherBaseURL = "https://api.together.xyz/v1"
	TogetherModel   = "lgai/exaone-3-5-32b-instruct"
)

type Config struct {
	App       AppConfig                 `json:"app" yaml:"app"`
	Server    ServerConfig              `json:"server" yaml:"server"`
	Gateways  map[string]GatewayConfig  `json:"gateways" yaml:"gateways"`
	Providers map[string]ProviderConfig `json:"providers" yaml:"providers"`
	Memory    MemoryConfig              `json:"memory" yaml:"memory"`
	LLM       LLMConfig                 `json:"llm" yaml:"llm"`
}

type AppConfig struct {
	Name       string `json:"name" yaml:"name"`
	PromptsDir string `json:"prompts_dir" yaml:"prompts_dir"`
	Dashboard  bool   `json:"dashboard" yaml:"dashboard"`
}

type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`
	// StepDelayMs is the pause after each streamed step. nil means the default, 0 disables it.
	StepDelayMs   *int              `json:"step_delay_ms,omitempty" yaml:"step_delay_ms,omitempty"`
	StepTimeoutMs int               `json:"step_timeout_ms" yaml:"step_timeout_ms"`
	MaxIdeaLength int               `json:"max_idea_length" yaml:"max_idea_length"`
	DenyPatterns  []string          `json:"deny_patterns" yaml:"deny_patterns"`
	AuthTokens    map[string]string `json:"auth_tokens" yaml:"auth_tokens"` // token -> user id
}

type GatewayConfig struct {
	Token   string `json:"token" yaml:"token"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
}

type ProviderConfig struct {
	APIKey    string `json:"api_key" yaml:"api_key"`
	Model     string `json:"model" yaml:"model"`
	BaseURL   string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	MaxTokens int    `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	Enabled   bool   `json:"enabled" yaml:"enabled"`
}

type MemoryConfig struct {
	Type string `json:"type" yaml:"type"` // memory, sqlite, postgres
	Path string `json:"path" yaml:"path"`
	DSN  string `json:"dsn" yaml:"dsn"`
}

type LLMConfig struct {
	CacheSize int `json:"cache_size" yaml:"cache_size"`
}

// LoadConfig reads a JSON or YAML config file and applies environment
// overrides. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to open config file: %w", err)
	default:
		if err := decode(path, data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return json.Unmarshal(data, cfg)
	}
}

func (c *Config) applyEnv() {
	if key := strings.TrimSpace(os.Getenv("TOGETHER_API_KEY")); key != "" {
		c.setProviderKey("together", key)
	}
	if key := strings.TrimSpace(os.Getenv("OPENAI_API_KEY")); key != "" {
		c.setProviderKey("openai", key)
	}
	if key := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); key != "" {
		c.setProviderKey("gemini", key)
	}
	if dsn := strings.TrimSpace(os.Getenv("DATABASE_URL")); dsn != "" {
		c.Memory.Type = "postgres"
		c.Memory.DSN = dsn
	}
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		if strings.HasPrefix(port, ":") {
			c.Server.Addr = port
		} else {
			c.Server.Addr = ":" + port
		}
	}
	if v := strings.TrimSpace(os.Getenv("STEP_DELAY_MS")); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms >= 0 {
			c.Server.StepDelayMs = &ms
		}
	}
	if token := strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")); token != "" {
		c.setGatewayToken("telegram", token)
	}
	if token := strings.TrimSpace(os.Getenv("DISCORD_TOKEN")); token != "" {
		c.setGatewayToken("discord", token)
	}
}

func (c *Config) setProviderKey(name, key string) {
	if c.Providers == nil {
		c.Providers = make(map[string]ProviderConfig)
	}
	p := c.Providers[name]
	p.APIKey = key
	p.Enabled = true
	c.Providers[name] = p
}

func (c *Config) setGatewayToken(name, token string) {
	if c.Gateways == nil {
		c.Gateways = make(map[string]GatewayConfig)
	}
	c.Gateways[name] = GatewayConfig{Token: token, Enabled: true}
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "blueprint"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.MaxIdeaLength == 0 {
		c.Server.MaxIdeaLength = DefaultMaxIdeaLength
	}
	if c.Memory.Type == "" {
		c.Memory.Type = "memory"
	}
	if c.Memory.Type == "sqlite" && c.Memory.Path == "" {
		c.Memory.Path = "blueprint.db"
	}
	if p, ok := c.Providers["together"]; ok {
		if p.BaseURL == "" {
			p.BaseURL = TogetherBaseURL
		}
		if p.Model == "" {
			p.Model = TogetherModel
		}
		c.Providers["together"] = p
	}
}

// StepDelay is the pacing delay between streamed steps.
func (c *Config) StepDelay() time.Duration {
	if c.Server.StepDelayMs == nil {
		return DefaultStepDelay
	}
	return time.Duration(*c.Server.StepDelayMs) * time.Millisecond
}

// StepTimeout is the deadline applied to every generation call.
func (c *Config) StepTimeout() time.Duration {
	switch {
	case c.Server.StepTimeoutMs < 0:
		return 0
	case c.Server.StepTimeoutMs == 0:
		return DefaultStepTimeout
	}
	return time.Duration(c.Server.StepTimeoutMs) * time.Millisecond
}

// GetDefaultProvider returns the first enabled provider in name order.
func (c *Config) GetDefaultProvider() (string, ProviderConfig) {
	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if p := c.Providers[name]; p.Enabled {
			return name, p
		}
	}
	return "", ProviderConfig{}
}

// GetGatewayConfig returns the named gateway config if enabled.
func (c *Config) GetGatewayConfig(name string) (GatewayConfig, bool) {
	g, ok := c.Gateways[name]
	if ok && g.Enabled && g.Token != "" {
		return g, true
	}
	return GatewayConfig{}, false
}
