package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	require.NoError(t, Defaults().Validate())
}

func TestLoad(t *testing.T) {
	r := require.New(t)

	path := filepath.Join(t.TempDir(), "framedrv.yml")
	r.NoError(os.WriteFile(path, []byte(
		"backend: badger\nimage: /tmp/frames\ncache_capacity: 8\nlog_level: debug\n",
	), 0644))

	cfg, err := Load(path)
	r.NoError(err)
	r.Equal("badger", cfg.Backend)
	r.Equal("/tmp/frames", cfg.Image)
	r.Equal(8, cfg.CacheCapacity)
	r.Equal("debug", cfg.LogLevel)
}

func TestLoadKeepsDefaultsForOmittedKeys(t *testing.T) {
	r := require.New(t)

	path := filepath.Join(t.TempDir(), "framedrv.yml")
	r.NoError(os.WriteFile(path, []byte("backend: mem\n"), 0644))

	cfg, err := Load(path)
	r.NoError(err)
	r.Equal("mem", cfg.Backend)
	r.Equal(Defaults().CacheCapacity, cfg.CacheCapacity)
	r.Equal(Defaults().LogLevel, cfg.LogLevel)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	r := require.New(t)

	cfg := Defaults()
	cfg.Backend = "floppy"
	r.Error(cfg.Validate())

	cfg = Defaults()
	cfg.Image = ""
	r.Error(cfg.Validate())

	cfg = Defaults()
	cfg.CacheCapacity = 0
	r.Error(cfg.Validate())

	cfg = Defaults()
	cfg.Backend = "mem"
	cfg.Image = ""
	r.NoError(cfg.Validate())
}
