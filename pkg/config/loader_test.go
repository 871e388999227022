package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beautydesk/backoffice/pkg/config"
)

type sweepConfig struct {
	Hour    int           `env:"TEST_SWEEP_HOUR" envDefault:"6"`
	Lease   time.Duration `env:"TEST_SWEEP_LEASE" envDefault:"30m"`
	Enabled bool          `env:"TEST_SWEEP_ENABLED"`
}

type requiredConfig struct {
	Token string `env:"TEST_REQUIRED_TOKEN,required"`
}

func TestParse(t *testing.T) {
	t.Setenv("TEST_SWEEP_HOUR", "4")
	t.Setenv("TEST_SWEEP_ENABLED", "true")

	cfg, err := config.Parse[sweepConfig]()
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Hour)
	assert.Equal(t, 30*time.Minute, cfg.Lease)
	assert.True(t, cfg.Enabled)
}

func TestParse_Required(t *testing.T) {
	_, err := config.Parse[requiredConfig]()
	assert.ErrorIs(t, err, config.ErrParsingConfig)
}

func TestLoad_Caches(t *testing.T) {
	config.ResetCache()
	t.Cleanup(config.ResetCache)
	t.Setenv("TEST_SWEEP_HOUR", "2")

	var first sweepConfig
	require.NoError(t, config.Load(&first))
	assert.Equal(t, 2, first.Hour)

	t.Setenv("TEST_SWEEP_HOUR", "9")
	var second sweepConfig
	require.NoError(t, config.Load(&second))
	assert.Equal(t, 2, second.Hour)

	config.ResetCache()
	var third sweepConfig
	require.NoError(t, config.Load(&third))
	assert.Equal(t, 9, third.Hour)
}

func TestLoad_Nil(t *testing.T) {
	var cfg *sweepConfig
	assert.ErrorIs(t, config.Load(cfg), config.ErrNilPointer)
	assert.Panics(t, func() { config.MustLoad(cfg) })
}

func TestLoadEnv(t *testing.T) {
	t.Cleanup(config.ResetCache)
	t.Setenv("TEST_REQUIRED_TOKEN", "")

	dir := t.TempDir()
	base := filepath.Join(dir, ".env")
	override := filepath.Join(dir, ".env.local")
	require.NoError(t, os.WriteFile(base, []byte("TEST_REQUIRED_TOKEN=base\n"), 0o600))
	require.NoError(t, os.WriteFile(override, []byte("TEST_REQUIRED_TOKEN=\"local\"\n"), 0o600))

	require.NoError(t, config.LoadEnv(base, override))

	var cfg requiredConfig
	require.NoError(t, config.Load(&cfg))
	assert.Equal(t, "local", cfg.Token)

	assert.ErrorIs(t, config.LoadEnv(filepath.Join(dir, "missing.env")), config.ErrEnvFile)
}
