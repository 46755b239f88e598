package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadYAMLKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "natvis.yaml", `
limits:
  max_depth: 8
diagnostics: verbose
sources:
  - stl.natvis
  - /abs/qt.natvis
watch: true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Limits.MaxDepth)
	assert.Equal(t, 250, cfg.Limits.MaxStringLength)
	assert.Equal(t, 10000, cfg.Limits.MaxChildren)
	assert.Equal(t, DiagnosticsVerbose, cfg.Diagnostics)
	assert.True(t, cfg.Watch)
	assert.Equal(t, []string{filepath.Join(filepath.Dir(path), "stl.natvis"), "/abs/qt.natvis"}, cfg.Sources)
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, "natvis.json", `{"limits": {"max_children": 20}, "diagnostics": "disabled"}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Limits.MaxChildren)
	assert.Equal(t, 50, cfg.Limits.MaxDepth)

	logger, err := cfg.Logger()
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestLoadRejectsInvalidLimits(t *testing.T) {
	path := writeConfig(t, "bad.yaml", "limits:\n  max_depth: 0\n")
	_, err := Load(path)
	assert.ErrorContains(t, err, "limits.max_depth")
}

func TestLoadRejectsUnknownDiagnostics(t *testing.T) {
	path := writeConfig(t, "bad.yaml", "diagnostics: loud\n")
	_, err := Load(path)
	assert.ErrorContains(t, err, "diagnostics")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "reading config")
}

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}
