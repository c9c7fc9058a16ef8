package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.DefaultProfile)
	assert.Empty(t, cfg.Profiles)
}

func TestInitConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	require.NoError(t, InitConfig(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	p, name, err := cfg.GetProfile("")
	require.NoError(t, err)
	assert.Equal(t, "local", name)
	assert.Equal(t, "http://localhost:18000", p.EvalAddr)
	assert.Equal(t, "http://localhost:9200", p.IndexAddr)

	p, _, err = cfg.GetProfile("compose")
	require.NoError(t, err)
	assert.Equal(t, "http://elasticsearch:9200", p.IndexAddr)
}

func TestGetProfile_Unknown(t *testing.T) {
	cfg := &Config{Profiles: map[string]Profile{}}
	_, _, err := cfg.GetProfile("staging")
	assert.Error(t, err)
}

func TestLoadConfig_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("profiles: [unterminated"), 0600))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
