package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{"TOGETHER_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY", "DATABASE_URL", "PORT", "STEP_DELAY_MS", "TELEGRAM_TOKEN", "DISCORD_TOKEN"} {
		t.Setenv(k, "")
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)

	assert.Equal(t, DefaultAddr, cfg.Server.Addr)
	assert.Equal(t, DefaultStepDelay, cfg.StepDelay())
	assert.Equal(t, DefaultStepTimeout, cfg.StepTimeout())
	assert.Equal(t, "memory", cfg.Memory.Type)
	name, _ := cfg.GetDefaultProvider()
	assert.Empty(t, name)
}

func TestLoadConfig_JSON(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"server": {"addr": ":9000", "step_delay_ms": 0, "step_timeout_ms": 5000, "auth_tokens": {"abc": "user-1"}},
		"providers": {"together": {"api_key": "k", "enabled": true}},
		"memory": {"type": "sqlite"}
	}`), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, time.Duration(0), cfg.StepDelay())
	assert.Equal(t, 5*time.Second, cfg.StepTimeout())
	assert.Equal(t, "user-1", cfg.Server.AuthTokens["abc"])
	assert.Equal(t, "blueprint.db", cfg.Memory.Path)

	name, p := cfg.GetDefaultProvider()
	assert.Equal(t, "together", name)
	assert.Equal(t, TogetherBaseURL, p.BaseURL)
	assert.Equal(t, TogetherModel, p.Model)
}

func TestLoadConfig_YAMLAndEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "7070")
	t.Setenv("DATABASE_URL", "postgres://localhost/blueprint")
	t.Setenv("TELEGRAM_TOKEN", "tg-token")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app:\n  name: test\nserver:\n  step_delay_ms: 50\n"), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.App.Name)
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, 50*time.Millisecond, cfg.StepDelay())
	assert.Equal(t, "postgres", cfg.Memory.Type)

	tg, ok := cfg.GetGatewayConfig("telegram")
	require.True(t, ok)
	assert.Equal(t, "tg-token", tg.Token)
	_, ok = cfg.GetGatewayConfig("discord")
	assert.False(t, ok)
}

func TestLoadConfig_BadJSON(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
