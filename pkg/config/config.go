// Package config loads zplanebank settings from a TOML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/james-see/zplanebank/pkg/bank"
	"github.com/james-see/zplanebank/pkg/zplane"
	"github.com/pelletier/go-toml/v2"
)

// Config is the full settings file
type Config struct {
	Bank   BankConfig   `toml:"bank"`
	Shapes ShapesConfig `toml:"shapes"`
	Decode DecodeConfig `toml:"decode"`
	Server ServerConfig `toml:"server"`
	Batch  BatchConfig  `toml:"batch"`
}

// BankConfig holds encoder settings
type BankConfig struct {
	Name string `toml:"name"`
}

// ShapesConfig holds the sample-rate transform defaults
type ShapesConfig struct {
	SourceRate int `toml:"source_rate"`
	DestRate   int `toml:"dest_rate"`
}

// DecodeConfig holds the recovery pass tunables
type DecodeConfig struct {
	MinString        int     `toml:"min_string"`
	MaxString        int     `toml:"max_string"`
	CoefficientLimit float64 `toml:"coefficient_limit"`
	MinCoefficients  int     `toml:"min_coefficients"`
	Alignments       []int   `toml:"alignments"`
}

// ServerConfig holds the HTTP server settings
type ServerConfig struct {
	Port int `toml:"port"`
}

// BatchConfig holds the batch worker settings
type BatchConfig struct {
	Workers int `toml:"workers"`
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		Bank: BankConfig{Name: "Z-Plane Bank"},
		Shapes: ShapesConfig{
			SourceRate: 48000,
			DestRate:   44100,
		},
		Decode: DecodeConfig{
			MinString:        bank.DefaultMinString,
			MaxString:        bank.DefaultMaxString,
			CoefficientLimit: bank.DefaultCoefficientLimit,
			MinCoefficients:  bank.DefaultMinCoefficients,
			Alignments:       append([]int(nil), bank.DefaultAlignments...),
		},
		Server: ServerConfig{Port: 8080},
		Batch:  BatchConfig{Workers: 4},
	}
}

// Load reads path over Default. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", filepath.Base(path), err)
	}
	return cfg, cfg.Validate()
}

// Save writes cfg as TOML
func Save(path string, cfg Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate rejects settings no component can run with
func (c Config) Validate() error {
	if _, err := zplane.Ratio(c.Shapes.SourceRate, c.Shapes.DestRate); err != nil {
		return fmt.Errorf("shapes: %w", err)
	}
	if c.Decode.MinString < 1 || c.Decode.MaxString < c.Decode.MinString {
		return fmt.Errorf("decode: invalid string length range [%d, %d]", c.Decode.MinString, c.Decode.MaxString)
	}
	if c.Decode.CoefficientLimit <= 0 {
		return fmt.Errorf("decode: coefficient_limit must be positive, got %v", c.Decode.CoefficientLimit)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server: invalid port %d", c.Server.Port)
	}
	if c.Batch.Workers < 1 {
		return fmt.Errorf("batch: workers must be at least 1, got %d", c.Batch.Workers)
	}
	return nil
}

// DecodeOptions turns the decode section into bank options
func (c Config) DecodeOptions() []bank.Option {
	opts := []bank.Option{
		bank.WithStringLength(c.Decode.MinString, c.Decode.MaxString),
		bank.WithCoefficientLimit(c.Decode.CoefficientLimit),
		bank.WithMinCoefficients(c.Decode.MinCoefficients),
	}
	if len(c.Decode.Alignments) > 0 {
		opts = append(opts, bank.WithAlignments(c.Decode.Alignments...))
	}
	return opts
}
