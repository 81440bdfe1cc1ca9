package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
[server]
motd = "Hello"

[network]
bind_address = "127.0.0.1:7000"
tick_rate = "100ms"

[houses]
rent_period = "168h"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Hello", cfg.Server.MOTD)
	assert.Equal(t, "OTGo", cfg.Server.Name, "default kept")
	assert.Equal(t, "127.0.0.1:7000", cfg.Network.BindAddress)
	assert.Equal(t, 100*time.Millisecond, cfg.Network.TickRate)
	assert.Equal(t, 7*24*time.Hour, cfg.Houses.RentPeriod)
	assert.Equal(t, time.Minute, cfg.Houses.RentInterval)
	assert.Equal(t, "data/yaml/items.yaml", cfg.Data.Items)
	assert.NotZero(t, cfg.Server.StartTime)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "[server\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "[network]\ntick_rate = \"0s\"\n"))
	assert.ErrorContains(t, err, "tick_rate")
}

func TestPath(t *testing.T) {
	t.Setenv(EnvPath, "")
	assert.Equal(t, DefaultPath, Path())
	t.Setenv(EnvPath, "/etc/otgo.toml")
	assert.Equal(t, "/etc/otgo.toml", Path())
}
