package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.hcl"))
	require.NoError(t, err)
	require.Equal(t, Default(), cfg)
	require.NoError(t, cfg.Validate())
}

func TestLoadDecodesHCLAndAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.hcl")
	contents := `
server {
  address = "0.0.0.0"
  port    = 9090
}

table {
  small_blind = 5
  big_blind   = 10
}

store {
  driver = "file"
  data_dir = "/var/lib/pokerforbots"
}
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0", cfg.Server.Address)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, 5, cfg.Table.SmallBlind)
	require.Equal(t, 10, cfg.Table.BigBlind)
	require.Equal(t, 6, cfg.Table.MaxPlayers) // unset, falls back to default
	require.Equal(t, "file", cfg.Store.Driver)
	require.Equal(t, "/var/lib/pokerforbots", cfg.Store.DataDir)
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadStakesAndPort(t *testing.T) {
	cfg := Default()
	cfg.Table.BigBlind = cfg.Table.SmallBlind
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Server.Port = 0
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Store.Driver = "s3"
	require.Error(t, cfg.Validate())
}

func TestAddressFormatsHostAndPort(t *testing.T) {
	cfg := Default()
	require.Equal(t, "localhost:8080", cfg.Address())
}
