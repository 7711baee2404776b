// Package config loads binary settings from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/hersh/tetriscore/internal/game"
)

// ErrInvalid is returned for settings that parse but cannot be used.
var ErrInvalid = errors.New("invalid configuration")

// Config is shared by every binary; each one reads the fields it needs.
type Config struct {
	Port      string        `env:"PORT"             envDefault:"8080"`
	Server    string        `env:"GOTRIS_SERVER"    envDefault:"ws://localhost:8080/ws"`
	DBPath    string        `env:"GOTRIS_DB"        envDefault:"gotris.db"`
	Preset    string        `env:"GOTRIS_PRESET"    envDefault:"modern"`
	Width     int           `env:"GOTRIS_WIDTH"     envDefault:"10"`
	Height    int           `env:"GOTRIS_HEIGHT"    envDefault:"20"`
	Preview   int           `env:"GOTRIS_PREVIEW"   envDefault:"5"`
	TickRate  time.Duration `env:"GOTRIS_TICK"      envDefault:"16ms"`
	Countdown time.Duration `env:"GOTRIS_COUNTDOWN" envDefault:"3s"`
}

// Load parses the environment and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values a game will be built from.
func (c Config) Validate() error {
	if _, err := game.Preset(c.Preset); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.Width < 4 || c.Height < 4 {
		return fmt.Errorf("%w: board %dx%d", ErrInvalid, c.Width, c.Height)
	}
	if err := c.Game(0).Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if c.Preview < 0 {
		return fmt.Errorf("%w: preview %d", ErrInvalid, c.Preview)
	}
	if c.TickRate <= 0 {
		return fmt.Errorf("%w: tick rate %s", ErrInvalid, c.TickRate)
	}
	return nil
}

// Engine builds the configured preset.
func (c Config) Engine() (*game.Engine, error) {
	return game.Preset(c.Preset)
}

// Game returns the game config for one match or session, starting at the
// preset's own level.
func (c Config) Game(seed int64) game.Config {
	cfg := game.DefaultConfig()
	if engine, err := c.Engine(); err == nil {
		cfg = engine.DefaultConfig()
	}
	cfg.Width = c.Width
	cfg.Height = c.Height
	cfg.Buffer = c.Height
	cfg.PreviewSize = c.Preview
	cfg.Seed = seed
	return cfg
}
