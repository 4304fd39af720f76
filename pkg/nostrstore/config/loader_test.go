package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/nostrstore/pkg/nostrstore/config"
)

func TestFromYAML(t *testing.T) {
	cfg, err := config.FromYAML([]byte(`
path: events.db
busy_timeout: 10s
scratch_capacity: 8192
tracing: true
`))
	require.NoError(t, err)

	assert.Equal(t, "events.db", cfg.String("path", ":memory:"))
	assert.Equal(t, 10*time.Second, cfg.Duration("busy_timeout", time.Second))
	assert.Equal(t, 8192, cfg.Int("scratch_capacity", 0))
	assert.True(t, cfg.Bool("tracing", false))
}

func TestFromYAML_Invalid(t *testing.T) {
	_, err := config.FromYAML([]byte("path: [unclosed"))
	assert.Error(t, err)
}

func TestFromJSON(t *testing.T) {
	cfg, err := config.FromJSON([]byte(`{"path": "events.db", "scratch_capacity": 4096}`))
	require.NoError(t, err)

	assert.Equal(t, "events.db", cfg.String("path", ":memory:"))
	assert.Equal(t, 4096, cfg.Int("scratch_capacity", 0))
}

func TestFromJSON_Invalid(t *testing.T) {
	_, err := config.FromJSON([]byte(`{"path": `))
	assert.Error(t, err)
}

func TestFromFile(t *testing.T) {
	tmpDir := t.TempDir()

	yamlPath := filepath.Join(tmpDir, "store.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("path: from-yaml.db"), 0o644))

	jsonPath := filepath.Join(tmpDir, "store.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"path": "from-json.db"}`), 0o644))

	txtPath := filepath.Join(tmpDir, "store.txt")
	require.NoError(t, os.WriteFile(txtPath, []byte("path: nope"), 0o644))

	cfg, err := config.FromFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "from-yaml.db", cfg.String("path", ""))

	cfg, err = config.FromFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "from-json.db", cfg.String("path", ""))

	_, err = config.FromFile(txtPath)
	assert.Error(t, err, "unsupported extension")

	_, err = config.FromFile(filepath.Join(tmpDir, "missing.yaml"))
	assert.Error(t, err)
}
