package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coderisk/gkg/internal/tenant"
)

func TestDefaultHasMemoryBackendAndPropertyScopedPolicy(t *testing.T) {
	cfg := Default()
	require.Equal(t, "memory", cfg.Backend.Type)
	require.Equal(t, tenant.PropertyScoped, cfg.Tenant.DefaultPolicy)
	require.Equal(t, "gpt-4o-mini", cfg.LLM.OpenAIModel)
}

func TestLoadWithNoFileFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	oldwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer func() { require.NoError(t, os.Chdir(oldwd)) }()

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "memory", cfg.Backend.Type)
}

func TestLoadReadsYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend:
  type: neo4j
  neo4j_uri: bolt://localhost:7687
llm:
  provider: anthropic
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "neo4j", cfg.Backend.Type)
	require.Equal(t, "bolt://localhost:7687", cfg.Backend.Neo4jURI)
	require.Equal(t, "anthropic", cfg.LLM.Provider)
}

func TestLoadEnvironmentOverridesTakePrecedenceOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend:\n  type: memory\n"), 0o644))

	t.Setenv("NEO4J_URI", "bolt://override:7687")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "neo4j", cfg.Backend.Type)
	require.Equal(t, "bolt://override:7687", cfg.Backend.Neo4jURI)
}

func TestSaveWritesReadableYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := Default()
	cfg.LLM.Provider = "gemini"
	require.NoError(t, cfg.Save(path))

	reloaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "gemini", reloaded.LLM.Provider)
}

func TestMaskKey(t *testing.T) {
	require.Equal(t, "(not set)", MaskKey(""))
	require.Equal(t, "***", MaskKey("short"))
	require.Equal(t, "sk-proj...f00d", MaskKey("sk-projABCDEf00d"))
}
