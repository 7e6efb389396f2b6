package core

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NotNil(t, cfg)
	assert.Equal(t, "", cfg.ContractMode)
	assert.False(t, cfg.StrictMode)
	assert.True(t, cfg.UseWorker)
	assert.Equal(t, 4, cfg.MaxDepth)
	assert.Equal(t, 10, cfg.MaxSpawns)
	assert.Equal(t, 10, cfg.ProofMaxAgeMin)
	assert.False(t, cfg.ForceSleep)
	assert.Equal(t, filepath.Join(".engine", "last-proof.json"), cfg.ProofPath)

	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "engine:run", cfg.Redis.Namespace)

	assert.False(t, cfg.Telemetry.Enabled)
	assert.Equal(t, "supervised-recursion-engine", cfg.Telemetry.ServiceName)
	assert.Equal(t, 1.0, cfg.Telemetry.SamplingRate)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)

	assert.False(t, cfg.AI.Enabled)
	assert.Equal(t, "mock", cfg.AI.Provider)
	assert.Equal(t, 30*time.Second, cfg.AI.Timeout)
}

func TestEffectiveContractMode(t *testing.T) {
	t.Run("explicit mode wins", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.ContractMode = "local"
		cfg.StrictMode = true
		assert.Equal(t, "local", cfg.EffectiveContractMode())
	})

	t.Run("strict implies agentic", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.StrictMode = true
		assert.Equal(t, "agentic", cfg.EffectiveContractMode())
	})

	t.Run("default is local", func(t *testing.T) {
		cfg := DefaultConfig()
		assert.Equal(t, "local", cfg.EffectiveContractMode())
	})
}

func TestLoadFromEnv(t *testing.T) {
	testEnv := map[string]string{
		"ENGINE_CONTRACT_MODE":     "agentic",
		"ENGINE_STRICT_MODE":       "true",
		"ENGINE_MAX_DEPTH":         "6",
		"ENGINE_MAX_SPAWNS":        "20",
		"ENGINE_PROOF_MAX_AGE_MIN": "15",
		"ENGINE_VERBOSE":           "true",
		"ENGINE_REDIS_URL":         "redis://test-redis:6379",
		"ENGINE_AI_PROVIDER":       "anthropic",
		"OPENAI_API_KEY":           "sk-test-key",
	}
	for k, v := range testEnv {
		require.NoError(t, os.Setenv(k, v))
		defer func(k string) { _ = os.Unsetenv(k) }(k)
	}

	cfg := DefaultConfig()
	err := cfg.LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "agentic", cfg.ContractMode)
	assert.True(t, cfg.StrictMode)
	assert.Equal(t, 6, cfg.MaxDepth)
	assert.Equal(t, 20, cfg.MaxSpawns)
	assert.Equal(t, 15, cfg.ProofMaxAgeMin)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, "redis://test-redis:6379", cfg.Redis.URL)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "anthropic", cfg.AI.Provider)
	assert.Equal(t, "sk-test-key", cfg.AI.APIKey)
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.json")

	configData := map[string]interface{}{
		"max_depth":  5,
		"max_spawns": 12,
		"redis": map[string]interface{}{
			"enabled": true,
			"url":     "redis://file-redis:6379",
		},
		"logging": map[string]interface{}{
			"level":  "debug",
			"format": "text",
		},
	}

	jsonData, err := json.MarshalIndent(configData, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(configFile, jsonData, 0o644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(configFile))

	assert.Equal(t, 5, cfg.MaxDepth)
	assert.Equal(t, 12, cfg.MaxSpawns)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis://file-redis:6379", cfg.Redis.URL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoadFromFile_MissingFileIsNotError(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.LoadFromFile(filepath.Join(t.TempDir(), "does-not-exist.json"))
	assert.NoError(t, err)
}

func TestLoadFromFile_RejectsUnsupportedExtension(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.LoadFromFile("config.toml")
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"negative max depth", func(c *Config) { c.MaxDepth = -1 }, true},
		{"negative max spawns", func(c *Config) { c.MaxSpawns = -1 }, true},
		{"zero proof max age", func(c *Config) { c.ProofMaxAgeMin = 0 }, true},
		{"bad contract mode", func(c *Config) { c.ContractMode = "bogus" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.setup(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfiguration)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFunctionalOptions(t *testing.T) {
	t.Run("WithMaxDepth", func(t *testing.T) {
		cfg, err := NewConfig(WithMaxDepth(7))
		require.NoError(t, err)
		assert.Equal(t, 7, cfg.MaxDepth)

		_, err = NewConfig(WithMaxDepth(-1))
		assert.ErrorIs(t, err, ErrInvalidConfiguration)
	})

	t.Run("WithMaxSpawns", func(t *testing.T) {
		cfg, err := NewConfig(WithMaxSpawns(3))
		require.NoError(t, err)
		assert.Equal(t, 3, cfg.MaxSpawns)
	})

	t.Run("WithStrictMode", func(t *testing.T) {
		cfg, err := NewConfig(WithStrictMode(true))
		require.NoError(t, err)
		assert.True(t, cfg.StrictMode)
	})

	t.Run("WithContractMode", func(t *testing.T) {
		cfg, err := NewConfig(WithContractMode("local"))
		require.NoError(t, err)
		assert.Equal(t, "local", cfg.ContractMode)

		_, err = NewConfig(WithContractMode("bogus"))
		assert.ErrorIs(t, err, ErrInvalidConfiguration)
	})

	t.Run("WithForceSleep", func(t *testing.T) {
		cfg, err := NewConfig(WithForceSleep(true))
		require.NoError(t, err)
		assert.True(t, cfg.ForceSleep)
	})

	t.Run("WithProofPath", func(t *testing.T) {
		cfg, err := NewConfig(WithProofPath("/tmp/proof.json"))
		require.NoError(t, err)
		assert.Equal(t, "/tmp/proof.json", cfg.ProofPath)
	})

	t.Run("WithRedisURL", func(t *testing.T) {
		cfg, err := NewConfig(WithRedisURL("redis://custom:6379"))
		require.NoError(t, err)
		assert.Equal(t, "redis://custom:6379", cfg.Redis.URL)
		assert.True(t, cfg.Redis.Enabled)
	})

	t.Run("WithTelemetry", func(t *testing.T) {
		cfg, err := NewConfig(WithTelemetry(true, "http://otel:4317"))
		require.NoError(t, err)
		assert.True(t, cfg.Telemetry.Enabled)
		assert.Equal(t, "http://otel:4317", cfg.Telemetry.OTLPEndpoint)
	})

	t.Run("WithLogLevel and WithLogFormat", func(t *testing.T) {
		cfg, err := NewConfig(WithLogLevel("debug"), WithLogFormat("text"))
		require.NoError(t, err)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, "text", cfg.Logging.Format)
	})
}

func TestConfigPriority(t *testing.T) {
	require.NoError(t, os.Setenv("ENGINE_MAX_DEPTH", "9"))
	defer func() { _ = os.Unsetenv("ENGINE_MAX_DEPTH") }()

	cfg, err := NewConfig(WithMaxDepth(2))
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.MaxDepth)
}

func TestConfigWithConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "test-config.json")

	configData := map[string]interface{}{
		"max_spawns": 2,
	}
	jsonData, err := json.MarshalIndent(configData, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(configFile, jsonData, 0o644))

	cfg, err := NewConfig(
		WithConfigFile(configFile),
		WithMaxDepth(8),
	)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.MaxSpawns)
	assert.Equal(t, 8, cfg.MaxDepth)
}

func TestParseBool(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"true", true},
		{"True", true},
		{"1", true},
		{"yes", true},
		{"YES", true},
		{"on", true},
		{"false", false},
		{"0", false},
		{"no", false},
		{"", false},
		{"invalid", false},
	}

	for _, tt := range tests {
		result := parseBool(tt.input)
		assert.Equal(t, tt.expected, result, "input: %s", tt.input)
	}
}

func BenchmarkNewConfig(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = NewConfig(
			WithMaxDepth(4),
			WithMaxSpawns(10),
			WithRedisURL("redis://localhost:6379"),
		)
	}
}

func BenchmarkValidate(b *testing.B) {
	cfg := DefaultConfig()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cfg.Validate()
	}
}
