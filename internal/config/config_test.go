package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pagedb.yaml")
	yaml := "storage:\n  file: ./data/custom.db\n  pool_size: 16\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "./data/custom.db", cfg.Storage.File)
	require.Equal(t, 16, cfg.Storage.PoolSize)
}

func TestLoad_PartialConfigKeepsOtherDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pagedb.yaml")
	yaml := "storage:\n  pool_size: 8\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, Defaults().Storage.File, cfg.Storage.File)
	require.Equal(t, 8, cfg.Storage.PoolSize)
}

func TestLoad_MissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoad_RejectsZeroPoolSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pagedb.yaml")
	yaml := "storage:\n  pool_size: 0\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}
