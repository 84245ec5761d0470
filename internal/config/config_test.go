package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `listenAddr = ":9999"`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, "https://image.pollinations.ai", cfg.Generation.Endpoint)
	assert.Equal(t, 120*time.Second, cfg.Generation.RequestTimeout())
	assert.Equal(t, 200, cfg.Generation.ImageWidth)
	assert.Equal(t, 6, cfg.Generation.MaxVariations)
	assert.Equal(t, 48, cfg.Gallery.MaxRecords)
	assert.NoError(t, ValidateConfig(cfg))
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("MEALGEN_LISTEN_ADDR", ":7070")
	t.Setenv("MEALGEN_ENDPOINT", "http://localhost:1234")

	path := writeConfig(t, `listenAddr = ":9999"`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.ListenAddr)
	assert.Equal(t, "http://localhost:1234", cfg.Generation.Endpoint)
}

func TestLoadConfigStyles(t *testing.T) {
	path := writeConfig(t, `
[[styles]]
key = "realistic-photo"
phrase = "professional food photography"

[[styles]]
key = "sketch"
phrase = "pencil sketch on paper"
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, ValidateConfig(cfg))

	styles := cfg.StyleMap()
	require.Len(t, styles, 2)
	assert.Equal(t, "pencil sketch on paper", styles["sketch"])
}

func TestValidateConfigRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad endpoint", func(c *Config) { c.Generation.Endpoint = "not a url" }},
		{"zero timeout", func(c *Config) { c.Generation.RequestTimeoutSeconds = 0 }},
		{"variations too high", func(c *Config) { c.Generation.MaxVariations = 12 }},
		{"default above max", func(c *Config) { c.Generation.DefaultVariations = 7 }},
		{"style missing phrase", func(c *Config) { c.Styles = []StyleConfig{{Key: "x"}} }},
		{"negative retention", func(c *Config) { c.Gallery.MaxRecords = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, ValidateConfig(cfg))
		})
	}
}
