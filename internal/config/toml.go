// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Align    AlignConfig    `toml:"align"`
	Features FeaturesConfig `toml:"features"`
	Store    StoreConfig    `toml:"store"`
	Log      LogConfig      `toml:"log"`
}

// AlignConfig maps settings of the align command.
type AlignConfig struct {
	Language  *string `toml:"language"`
	Delimiter *string `toml:"delimiter"`
}

// FeaturesConfig maps settings of the features command.
type FeaturesConfig struct {
	LMFile     *string `toml:"lm-file"`
	SpaceToken *string `toml:"space-token"`
	Keyboard   *string `toml:"keyboard"`
	MaxDiff    *int    `toml:"max-diff"`
	CacheSize  *int    `toml:"cache-size"`
	Redis      *string `toml:"redis"`
	RedisTTL   *string `toml:"redis-ttl"`
}

// StoreConfig maps database settings.
type StoreConfig struct {
	Path *string `toml:"path"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	File  *string `toml:"file"`
	Level *string `toml:"level"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}
