package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "test-key", cfg.GeminiAPIKey)
	assert.Equal(t, "gemini-2.5-flash", cfg.TextModel)
	assert.Equal(t, "gemini-2.5-flash-image", cfg.ImageModel)
	assert.Equal(t, "file:gmassist.db", cfg.DBPath)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "k")
	t.Setenv("GMASSIST_TEXT_MODEL", "gemini-experimental")
	t.Setenv("GMASSIST_DB", ":memory:")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "gemini-experimental", cfg.TextModel)
	assert.Equal(t, ":memory:", cfg.DBPath)
}
