package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/bardworks/bard/pkg/craft"
)

// Config represents the bard configuration file (~/.config/bard/config.yaml).
// Numeric fields are pointers so "not set" and zero stay distinct.
type Config struct {
	// Scene defaults
	Setting    string   `yaml:"setting"`
	Characters []string `yaml:"characters"`
	MaxTokens  *int64   `yaml:"max_tokens"`
	Seed       *int64   `yaml:"seed"`

	// Engine
	Engine      string `yaml:"engine"`
	MaxContext  *int64 `yaml:"max_context"`
	Hidden      *int64 `yaml:"hidden"`
	WeightsSeed *int64 `yaml:"weights_seed"`

	// Crafting
	CraftSeed     *int64              `yaml:"craft_seed"`
	CraftExamples []CraftExampleEntry `yaml:"craft_examples"`

	// Choice
	ChooseAttempts *int64 `yaml:"choose_attempts"`

	// Output
	StreamMode string `yaml:"stream_mode"`
	LogLevel   string `yaml:"log_level"`
	LogFormat  string `yaml:"log_format"`

	// Server
	ServerAddress string   `yaml:"server_address"`
	MaxConcurrent *int64   `yaml:"max_concurrent"`
	RateLimit     *float64 `yaml:"rate_limit"`
}

// CraftExampleEntry is one crafting example in the config file.
type CraftExampleEntry struct {
	Items  []string `yaml:"items"`
	Result string   `yaml:"result"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "bard", "config.yaml")
}

// applyEngineConfig applies config file defaults to the shared engine and
// logging variables when the corresponding CLI flag was not explicitly
// set.
func applyEngineConfig(c *cli.Command, cfg Config) {
	if cfg.Engine != "" && !c.IsSet("engine") {
		engineKind = cfg.Engine
	}
	if cfg.MaxContext != nil && !c.IsSet("max-context") {
		maxContext = *cfg.MaxContext
	}
	if cfg.Hidden != nil && !c.IsSet("hidden") {
		hiddenWidth = *cfg.Hidden
	}
	if cfg.WeightsSeed != nil && !c.IsSet("weights-seed") {
		weightsSeed = *cfg.WeightsSeed
	}
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyPlayConfig applies config file defaults to play command variables.
func applyPlayConfig(c *cli.Command, cfg Config,
	setting *string, characters *string, maxTokens *int64, seed *int64, streamMode *string,
) {
	if cfg.Setting != "" && !c.IsSet("setting") {
		*setting = cfg.Setting
	}
	if len(cfg.Characters) != 0 && !c.IsSet("characters") {
		*characters = strings.Join(cfg.Characters, ",")
	}
	if cfg.MaxTokens != nil && !c.IsSet("max-tokens") {
		*maxTokens = *cfg.MaxTokens
	}
	if cfg.Seed != nil && !c.IsSet("seed") {
		*seed = *cfg.Seed
	}
	if cfg.StreamMode != "" && !c.IsSet("stream-mode") {
		*streamMode = cfg.StreamMode
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr *string, maxConcurrent *int64, rateLimit *float64) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
	if cfg.MaxConcurrent != nil && !c.IsSet("max-concurrent") {
		*maxConcurrent = *cfg.MaxConcurrent
	}
	if cfg.RateLimit != nil && !c.IsSet("rate-limit") {
		*rateLimit = *cfg.RateLimit
	}
}

// LoadConfig reads the config file. Returns a zero Config if the file
// doesn't exist.
func LoadConfig() Config {
	return loadConfigFrom(configPath())
}

func loadConfigFrom(path string) Config {
	if path == "" {
		return Config{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}
	}
	return cfg
}

// craftPack returns the config example pack, or the built-in one when the
// config has none.
func craftPack(cfg Config) []craft.Example {
	if len(cfg.CraftExamples) == 0 {
		return defaultCraftExamples()
	}
	pack := make([]craft.Example, len(cfg.CraftExamples))
	for i, e := range cfg.CraftExamples {
		pack[i] = craft.Example{Items: e.Items, Result: e.Result}
	}
	return pack
}
