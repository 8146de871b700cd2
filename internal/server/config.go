package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/cardroomhq/tabled/internal/game"
)

// Config is the full daemon configuration: one server block plus one table
// block per table to open. Blind and buy-in amounts are whole chips.
type Config struct {
	Server ServerSettings `hcl:"server,block"`
	Tables []TableConfig  `hcl:"table,block"`
}

// ServerSettings contains server-level configuration.
type ServerSettings struct {
	Address     string `hcl:"address,optional"`
	Port        int    `hcl:"port,optional"`
	LogLevel    string `hcl:"log_level,optional"`
	TokenSecret string `hcl:"token_secret,optional"`
}

// TableConfig defines one table.
type TableConfig struct {
	Name               string `hcl:"name,label"`
	SmallBlind         int    `hcl:"small_blind"`
	BigBlind           int    `hcl:"big_blind"`
	RakePercent        *int   `hcl:"rake_percent,optional"`
	TurnTimeoutSeconds int    `hcl:"turn_timeout_seconds,optional"`
	MaxSeats           int    `hcl:"max_seats,optional"`
	AutoStart          bool   `hcl:"auto_start,optional"`
	BuyInMin           int    `hcl:"buy_in_min,optional"`
	BuyInMax           int    `hcl:"buy_in_max,optional"`
}

const (
	defaultRakePercent        = 3
	defaultTurnTimeoutSeconds = 30
	defaultMaxSeats           = 6
)

// DefaultConfig returns the configuration used when no file is present: one
// 6-max table at 1/2.
func DefaultConfig() *Config {
	cfg := &Config{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Tables: []TableConfig{
			{
				Name:       "main",
				SmallBlind: 1,
				BigBlind:   2,
				AutoStart:  true,
			},
		},
	}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig loads configuration from an HCL file, falling back to defaults
// when the file does not exist.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing %s: %s", filename, diags.Error())
	}

	var cfg Config
	if diags := gohcl.DecodeBody(file.Body, nil, &cfg); diags.HasErrors() {
		return nil, fmt.Errorf("decoding %s: %s", filename, diags.Error())
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = "localhost"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	for i := range c.Tables {
		t := &c.Tables[i]
		if t.RakePercent == nil {
			rake := defaultRakePercent
			t.RakePercent = &rake
		}
		if t.TurnTimeoutSeconds == 0 {
			t.TurnTimeoutSeconds = defaultTurnTimeoutSeconds
		}
		if t.MaxSeats == 0 {
			t.MaxSeats = defaultMaxSeats
		}
		if t.BuyInMin == 0 {
			t.BuyInMin = 50 * t.BigBlind
		}
		if t.BuyInMax == 0 {
			t.BuyInMax = 200 * t.BigBlind
		}
	}
}

// Validate rejects configurations a table could not play under.
func (c *Config) Validate() error {
	if len(c.Tables) == 0 {
		return fmt.Errorf("config: at least one table block is required")
	}
	seen := make(map[string]bool, len(c.Tables))
	for _, t := range c.Tables {
		if t.Name == "" {
			return fmt.Errorf("config: table name must not be empty")
		}
		if seen[t.Name] {
			return fmt.Errorf("config: duplicate table %q", t.Name)
		}
		seen[t.Name] = true
		if t.SmallBlind <= 0 {
			return fmt.Errorf("config: table %q: small_blind must be positive", t.Name)
		}
		if t.BigBlind < 2*t.SmallBlind {
			return fmt.Errorf("config: table %q: big_blind must be at least twice small_blind", t.Name)
		}
		if *t.RakePercent < 0 || *t.RakePercent > 100 {
			return fmt.Errorf("config: table %q: rake_percent must be within 0..100", t.Name)
		}
		if t.TurnTimeoutSeconds <= 0 {
			return fmt.Errorf("config: table %q: turn_timeout_seconds must be positive", t.Name)
		}
		if t.MaxSeats < 2 || t.MaxSeats > 10 {
			return fmt.Errorf("config: table %q: max_seats must be within 2..10", t.Name)
		}
		if t.BuyInMin > t.BuyInMax {
			return fmt.Errorf("config: table %q: buy_in_min exceeds buy_in_max", t.Name)
		}
		if t.BuyInMin < t.BigBlind {
			return fmt.Errorf("config: table %q: buy_in_min below one big blind", t.Name)
		}
	}
	return nil
}

// GameConfig converts a table block into the engine's configuration, whole
// chips becoming minor units.
func (t TableConfig) GameConfig() game.Config {
	return game.Config{
		TableID:     t.Name,
		SmallBlind:  game.FromWhole(int64(t.SmallBlind)),
		BigBlind:    game.FromWhole(int64(t.BigBlind)),
		RakePercent: *t.RakePercent,
		TurnTimeout: time.Duration(t.TurnTimeoutSeconds) * time.Second,
		MaxSeats:    t.MaxSeats,
	}
}

// BuyInBounds returns the allowed join stack range in minor units.
func (t TableConfig) BuyInBounds() (min, max game.Chips) {
	return game.FromWhole(int64(t.BuyInMin)), game.FromWhole(int64(t.BuyInMax))
}
