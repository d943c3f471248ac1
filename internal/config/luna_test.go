package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutConfigFile(t *testing.T) {
	ws := t.TempDir()

	cfg, err := Load(ws)
	require.NoError(t, err)

	assert.Equal(t, "member", cfg.Role)
	assert.Equal(t, ResolverKeyword, cfg.Resolver)
	assert.Equal(t, "gemini-2.0-flash", cfg.GenAI.Model)
	assert.Equal(t, filepath.Join(ws, ".luna", "playbooks"), cfg.PlaybookDir)
	assert.Equal(t, filepath.Join(ws, ".luna", "history.db"), cfg.HistoryDB)
	assert.Equal(t, ":8470", cfg.Listen)
	assert.False(t, cfg.Debug)
}

func TestLoadReadsConfigFile(t *testing.T) {
	ws := t.TempDir()
	require.NoError(t, os.MkdirAll(Dir(ws), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(Dir(ws), "config.yaml"), []byte(`
role: manager
resolver: genai
genai:
  model: gemini-2.5-pro
  api_key: test-key
domain_url: http://localhost:9000
debug: true
`), 0644))

	cfg, err := Load(ws)
	require.NoError(t, err)

	assert.Equal(t, "manager", cfg.Role)
	assert.Equal(t, ResolverGenAI, cfg.Resolver)
	assert.Equal(t, "gemini-2.5-pro", cfg.GenAI.Model)
	assert.Equal(t, "test-key", cfg.GenAI.APIKey)
	assert.Equal(t, "http://localhost:9000", cfg.DomainURL)
	assert.True(t, cfg.Debug)
}

func TestEnvOverridesFile(t *testing.T) {
	ws := t.TempDir()
	require.NoError(t, os.MkdirAll(Dir(ws), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(Dir(ws), "config.yaml"), []byte("role: member\n"), 0644))

	t.Setenv("LUNA_ROLE", "admin")

	cfg, err := Load(ws)
	require.NoError(t, err)
	assert.Equal(t, "admin", cfg.Role)
}

func TestGeminiAPIKeyFallback(t *testing.T) {
	ws := t.TempDir()
	t.Setenv("GEMINI_API_KEY", "from-env")

	cfg, err := Load(ws)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.GenAI.APIKey)
}

func TestUnknownResolverRejected(t *testing.T) {
	ws := t.TempDir()
	require.NoError(t, os.MkdirAll(Dir(ws), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(Dir(ws), "config.yaml"), []byte("resolver: psychic\n"), 0644))

	_, err := Load(ws)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "psychic")
}
