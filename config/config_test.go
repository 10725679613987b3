package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"), nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadPrecedence(t *testing.T) {
	t.Setenv("BOMBARENA_TICK_RATE", "30")
	t.Setenv("BOMBARENA_ROUND_DELAY", "2s")

	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("BOMBARENA_SEED=7\nBOMBARENA_TICK_RATE=10\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("BOMBARENA_SEED") })

	cfg, err := Load(envFile, []string{"-addr", ":9000", "-settle-delay", "250ms"})
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, 30, cfg.TickRate, "process env wins over .env")
	assert.Equal(t, int64(7), cfg.Seed)
	assert.Equal(t, 2*time.Second, cfg.RoundDelay)
	assert.Equal(t, 250*time.Millisecond, cfg.SettleDelay)
}

func TestLoadRejectsBadValues(t *testing.T) {
	_, err := Load("", []string{"-tick-rate", "0"})
	assert.Error(t, err)

	_, err = Load("", []string{"-round-delay", "-1s"})
	assert.Error(t, err)

	t.Setenv("BOMBARENA_SETTLE_DELAY", "soon")
	_, err = Load("", nil)
	assert.Error(t, err)
}

func TestLoadUnknownFlag(t *testing.T) {
	_, err := Load("", []string{"-nope"})
	assert.Error(t, err)
}
