// Package config loads the server's HCL configuration file: listen
// address/logging, the default room's table parameters, and storage
// location. Missing files fall back to Default rather than erroring,
// matching how the teacher's server starts with sane defaults when no file
// is supplied.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/pokerforbots-server/internal/engine"
)

// Config is the complete server configuration, decoded from an HCL file.
type Config struct {
	Server ServerSettings `hcl:"server,block"`
	Table  TableSettings  `hcl:"table,block"`
	Store  StoreSettings  `hcl:"store,block"`
}

// ServerSettings controls the listener and structured logging.
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// TableSettings seeds the default room every server instance starts with;
// spec.md's lobby lets clients create further rooms with their own stakes,
// but the server always brings up one room on its own.
type TableSettings struct {
	SmallBlind          int    `hcl:"small_blind,optional"`
	BigBlind            int    `hcl:"big_blind,optional"`
	MaxPlayers          int    `hcl:"max_players,optional"`
	StartingStack       int    `hcl:"starting_stack,optional"`
	ActionTimeoutMs     int    `hcl:"action_timeout_ms,optional"`
	HandDelayMs         int    `hcl:"hand_delay_ms,optional"`
	MinReadyPlayers     int    `hcl:"min_ready_players,optional"`
	SpectatorVisibility string `hcl:"spectator_visibility,optional"`
}

// StoreSettings selects and configures the persistence backend.
type StoreSettings struct {
	Driver  string `hcl:"driver,optional"` // "memory" or "file"
	DataDir string `hcl:"data_dir,optional"`
}

// ActionTimeout and HandDelay expose TableSettings' millisecond fields as
// time.Duration, since internal/activegame.Config wants durations.
func (t TableSettings) ActionTimeout() time.Duration {
	return time.Duration(t.ActionTimeoutMs) * time.Millisecond
}

func (t TableSettings) HandDelay() time.Duration {
	return time.Duration(t.HandDelayMs) * time.Millisecond
}

// Visibility parses SpectatorVisibility into its engine type, defaulting to
// immediate visibility for an empty or unrecognized value.
func (t TableSettings) Visibility() engine.SpectatorVisibility {
	switch engine.SpectatorVisibility(t.SpectatorVisibility) {
	case engine.VisibilityDelayed:
		return engine.VisibilityDelayed
	case engine.VisibilityShowdown:
		return engine.VisibilityShowdown
	default:
		return engine.VisibilityImmediate
	}
}

// Default returns the configuration a server starts with when no file is
// supplied, mirroring the teacher's DefaultServerConfig.
func Default() *Config {
	return &Config{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Table: TableSettings{
			SmallBlind:          1,
			BigBlind:            2,
			MaxPlayers:          6,
			StartingStack:       200,
			ActionTimeoutMs:     30000,
			HandDelayMs:         3000,
			MinReadyPlayers:     2,
			SpectatorVisibility: string(engine.VisibilityImmediate),
		},
		Store: StoreSettings{
			Driver:  "memory",
			DataDir: "./data",
		},
	}
}

// Load reads and decodes the HCL file at path, applying defaults for any
// field left unset. A missing file is not an error: it yields Default().
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("config: parsing %s: %s", path, diags.Error())
	}

	cfg := Default()
	diags = gohcl.DecodeBody(file.Body, nil, cfg)
	if diags.HasErrors() {
		return nil, fmt.Errorf("config: decoding %s: %s", path, diags.Error())
	}

	applyDefaults(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	defaults := Default()
	if cfg.Server.Address == "" {
		cfg.Server.Address = defaults.Server.Address
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaults.Server.Port
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = defaults.Server.LogLevel
	}
	if cfg.Table.MaxPlayers == 0 {
		cfg.Table.MaxPlayers = defaults.Table.MaxPlayers
	}
	if cfg.Table.StartingStack == 0 {
		cfg.Table.StartingStack = defaults.Table.StartingStack
	}
	if cfg.Table.ActionTimeoutMs == 0 {
		cfg.Table.ActionTimeoutMs = defaults.Table.ActionTimeoutMs
	}
	if cfg.Table.HandDelayMs == 0 {
		cfg.Table.HandDelayMs = defaults.Table.HandDelayMs
	}
	if cfg.Table.MinReadyPlayers == 0 {
		cfg.Table.MinReadyPlayers = defaults.Table.MinReadyPlayers
	}
	if cfg.Table.SpectatorVisibility == "" {
		cfg.Table.SpectatorVisibility = defaults.Table.SpectatorVisibility
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = defaults.Store.Driver
	}
	if cfg.Store.DataDir == "" {
		cfg.Store.DataDir = defaults.Store.DataDir
	}
}

// Validate checks the table stakes and player bounds, mirroring the
// teacher's ServerConfig.Validate.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Server.Port)
	}
	if c.Table.SmallBlind <= 0 {
		return fmt.Errorf("config: small blind must be positive")
	}
	if c.Table.BigBlind <= c.Table.SmallBlind {
		return fmt.Errorf("config: big blind must be greater than small blind")
	}
	if c.Table.MaxPlayers < 2 || c.Table.MaxPlayers > 10 {
		return fmt.Errorf("config: max players must be between 2 and 10")
	}
	if c.Table.MinReadyPlayers < 2 || c.Table.MinReadyPlayers > c.Table.MaxPlayers {
		return fmt.Errorf("config: min ready players must be between 2 and max players")
	}
	switch c.Store.Driver {
	case "memory", "file":
	default:
		return fmt.Errorf("config: unknown store driver %q", c.Store.Driver)
	}
	return nil
}

// Address returns the full listen address, e.g. "localhost:8080".
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}
