package server

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/vctt94/holdemtable/pkg/poker"
)

// Config holds the server settings. Zero values are replaced by the
// defaults from DefaultConfig when passed through WithDefaults.
type Config struct {
	DataDir     string `mapstructure:"datadir"`
	Listen      string `mapstructure:"listen"`
	GRPCListen  string `mapstructure:"grpclisten"`
	DBPath      string `mapstructure:"db"`
	DebugLevel  string `mapstructure:"debuglevel"`
	AdminSecret string `mapstructure:"adminsecret"`

	DeckAPIURL string `mapstructure:"deckapi"`
	Seed       int64  `mapstructure:"seed"`

	MaxSeats           int   `mapstructure:"maxseats"`
	StartingChips      int64 `mapstructure:"startingchips"`
	SmallBlind         int64 `mapstructure:"smallblind"`
	BigBlind           int64 `mapstructure:"bigblind"`
	MinBet             int64 `mapstructure:"minbet"`
	AutoIncreaseBlinds bool  `mapstructure:"autoincreaseblinds"`

	TurnTimeout    time.Duration `mapstructure:"turntimeout"`
	AutoStartDelay time.Duration `mapstructure:"autostartdelay"`
	DealRetryDelay time.Duration `mapstructure:"dealretrydelay"`

	SendQueue int `mapstructure:"sendqueue"`
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	tc := poker.DefaultTableConfig()
	return Config{
		Listen:         "127.0.0.1:3000",
		DebugLevel:     "info",
		MaxSeats:       tc.MaxSeats,
		StartingChips:  tc.StartingChips,
		SmallBlind:     tc.Blinds.SmallBlind,
		BigBlind:       tc.Blinds.BigBlind,
		MinBet:         tc.MinBet,
		TurnTimeout:    30 * time.Second,
		AutoStartDelay: 5 * time.Second,
		DealRetryDelay: 2 * time.Second,
		SendQueue:      32,
	}
}

// WithDefaults fills unset fields from DefaultConfig and derives DBPath
// from DataDir.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.DebugLevel == "" {
		c.DebugLevel = def.DebugLevel
	}
	if c.MaxSeats == 0 {
		c.MaxSeats = def.MaxSeats
	}
	if c.StartingChips == 0 {
		c.StartingChips = def.StartingChips
	}
	if c.SmallBlind == 0 {
		c.SmallBlind = def.SmallBlind
	}
	if c.BigBlind == 0 {
		c.BigBlind = def.BigBlind
	}
	if c.MinBet == 0 {
		c.MinBet = def.MinBet
	}
	if c.DealRetryDelay == 0 {
		c.DealRetryDelay = def.DealRetryDelay
	}
	if c.SendQueue == 0 {
		c.SendQueue = def.SendQueue
	}
	if c.DBPath == "" && c.DataDir != "" {
		c.DBPath = filepath.Join(c.DataDir, "records.sqlite")
	}
	return c
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.Listen == "":
		return errors.New("listen address is required")
	case c.DBPath == "":
		return errors.New("records database path is required (set datadir or db)")
	case c.AdminSecret == "":
		return errors.New("admin secret is required")
	case c.MaxSeats < 2 || c.MaxSeats > 10:
		return fmt.Errorf("maxseats must be between 2 and 10, got %d", c.MaxSeats)
	case c.StartingChips <= 0:
		return fmt.Errorf("startingchips must be positive, got %d", c.StartingChips)
	case c.SmallBlind <= 0 || c.BigBlind < c.SmallBlind:
		return fmt.Errorf("invalid blinds %d/%d", c.SmallBlind, c.BigBlind)
	case c.MinBet <= 0:
		return fmt.Errorf("minbet must be positive, got %d", c.MinBet)
	case c.TurnTimeout < 0 || c.AutoStartDelay < 0 || c.DealRetryDelay < 0:
		return errors.New("durations must not be negative")
	case c.SendQueue <= 0:
		return fmt.Errorf("sendqueue must be positive, got %d", c.SendQueue)
	}
	return nil
}

// TableConfig converts the table related settings.
func (c Config) TableConfig() poker.TableConfig {
	tc := poker.DefaultTableConfig()
	tc.MaxSeats = c.MaxSeats
	tc.StartingChips = c.StartingChips
	tc.MinBet = c.MinBet
	tc.Blinds.SmallBlind = c.SmallBlind
	tc.Blinds.BigBlind = c.BigBlind
	tc.AutoIncreaseBlinds = c.AutoIncreaseBlinds
	return tc
}
