// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file. A nil field means the
// value is not set and the built-in default applies.
type FileConfig struct {
	Extract ExtractConfig `toml:"extract"`
	Analyze AnalyzeConfig `toml:"analyze"`
	Log     LogConfig     `toml:"log"`
}

// ExtractConfig maps contour extraction settings. FFmpeg can also be set
// through a bare FFMPEG environment variable.
type ExtractConfig struct {
	InputSuffix  *string  `toml:"input-suffix" split_words:"true"`
	OutputSuffix *string  `toml:"output-suffix" split_words:"true"`
	ChunkSeconds *float64 `toml:"chunk-seconds" split_words:"true"`
	HopLength    *int     `toml:"hop" split_words:"true"`
	SampleRate   *int     `toml:"sample-rate" split_words:"true"`
	Estimator    *string  `toml:"estimator"`
	Device       *string  `toml:"device"`
	Threshold    *float64 `toml:"threshold"`
	Smoothing    *bool    `toml:"smoothing"`
	SkipExisting *bool    `toml:"skip-existing" split_words:"true"`
	FFmpeg       *string  `toml:"ffmpeg" envconfig:"FFMPEG"`
	Command      *string  `toml:"command"`
	CommandArgs  []string `toml:"command-args" split_words:"true"`
}

// AnalyzeConfig maps corpus analysis settings.
type AnalyzeConfig struct {
	Pattern     *string `toml:"pattern"`
	Persistence *int    `toml:"persistence"`
	Bins        *int    `toml:"bins"`
	NoStore     *bool   `toml:"no-store" split_words:"true"`
}

// LogConfig maps logger settings.
type LogConfig struct {
	Level  *string `toml:"level"`
	Format *string `toml:"format"`
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
		return FileConfig{}, fmt.Errorf("unknown config key %q in %s", undecoded[0].String(), path)
	}
	return cfg, nil
}

// Load reads the TOML file and then applies environment overrides.
func Load(path string) (FileConfig, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return FileConfig{}, err
	}
	if err := ApplyEnv(&cfg); err != nil {
		return FileConfig{}, err
	}
	return cfg, nil
}
