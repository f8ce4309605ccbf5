package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the lbl configuration file (~/.config/lbl/config.yaml).
// All fields are pointers so we can distinguish "not set" from zero values.
type Config struct {
	// Model
	WordDim     *int `yaml:"word_dim"`
	ContextSize *int `yaml:"context_size"`

	// Optimisation
	LearnRate       *float64 `yaml:"learn_rate"`
	RateUpdate      string   `yaml:"rate_update"`
	Epochs          *int     `yaml:"epochs"`
	BatchSize       *int     `yaml:"batch_size"`
	Seed            *int64   `yaml:"seed"`
	Patience        *int     `yaml:"patience"`
	PatienceIncr    *float64 `yaml:"patience_incr"`
	ImprovementThrs *float64 `yaml:"improvement_thrs"`
	ValidationFreq  *int     `yaml:"validation_freq"`

	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Server
	ServerAddress string `yaml:"server_address"`
}

func configPath(override string) string {
	if override != "" {
		return override
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "lbl", "config.yaml")
}

// LoadConfig reads the config file. A missing file yields a zero Config;
// a file that exists but does not parse is an error.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// applyTrainConfig applies config file defaults to the training flag
// variables when the corresponding CLI flag was not explicitly set. It
// reports whether a seed was provided by either source.
func applyTrainConfig(c *cli.Command, cfg Config) (seedSet bool) {
	setInt := func(name string, v *int, dst *int) {
		if v != nil && !c.IsSet(name) {
			*dst = *v
		}
	}
	setFloat := func(name string, v *float64, dst *float64) {
		if v != nil && !c.IsSet(name) {
			*dst = *v
		}
	}
	setInt("word-dim", cfg.WordDim, &wordDim)
	setInt("context-size", cfg.ContextSize, &contextSize)
	setFloat("learn-rate", cfg.LearnRate, &learnRate)
	if cfg.RateUpdate != "" && !c.IsSet("rate-update") {
		rateUpdate = cfg.RateUpdate
	}
	setInt("epochs", cfg.Epochs, &epochs)
	setInt("batch-size", cfg.BatchSize, &batchSize)
	setInt("patience", cfg.Patience, &patience)
	setFloat("patience-incr", cfg.PatienceIncr, &patienceIncr)
	setFloat("improvement-thrs", cfg.ImprovementThrs, &improvementThrs)
	setInt("validation-freq", cfg.ValidationFreq, &validationFreq)

	if c.IsSet("seed") {
		return true
	}
	if cfg.Seed != nil {
		seed = *cfg.Seed
		return true
	}
	return false
}

// applyLoggingConfig applies config file defaults to the logging flags.
func applyLoggingConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr *string) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
}
