package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 2, cfg.Channels.Count)
	assert.Equal(t, 1024, cfg.Channels.DefaultCapacity)
	assert.False(t, cfg.Policy.SingleWriter)
	assert.Zero(t, cfg.Policy.MaxOpeners)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("KANAL_CHANNEL_COUNT", "4")
	t.Setenv("KANAL_CHANNEL_CAPACITY", "4096")
	t.Setenv("KANAL_POLICY_SINGLE_WRITER", "true")
	t.Setenv("KANAL_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Channels.Count)
	assert.Equal(t, 4096, cfg.Channels.DefaultCapacity)
	assert.True(t, cfg.Policy.SingleWriter)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("KANAL_CHANNEL_COUNT", "0")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoadFileOverlay(t *testing.T) {
	t.Setenv("KANAL_CHANNEL_CAPACITY", "512")

	path := filepath.Join(t.TempDir(), "kanal.yaml")
	body := []byte("channels:\n  count: 8\npolicy:\n  max_openers: 3\n")
	require.NoError(t, os.WriteFile(path, body, 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Channels.Count)
	assert.Equal(t, 3, cfg.Policy.MaxOpeners)
	// Values absent from the file keep their env/default values.
	assert.Equal(t, 512, cfg.Channels.DefaultCapacity)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
