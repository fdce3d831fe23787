// Package config loads calculator settings from a YAML file and the
// environment. Command-line flags are applied on top by the caller.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// DefaultMaxInputLength is the maximum allowed length for a single expression.
const DefaultMaxInputLength = 400

// Config holds all settings. Precedence is flag > environment > file > default.
type Config struct {
	LogLevel       string `yaml:"log_level"`
	Trace          bool   `yaml:"trace"`       // log lexer transitions and parser rule entry
	Strict         bool   `yaml:"strict"`      // reject trailing tokens instead of ignoring them
	ShowTokens     bool   `yaml:"show_tokens"` // print the token dump before the result
	MaxInputLength int    `yaml:"max_input_length"`

	HTTP    HTTPConfig    `yaml:"http"`
	GRPC    GRPCConfig    `yaml:"grpc"`
	History HistoryConfig `yaml:"history"`
	REPL    REPLConfig    `yaml:"repl"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type GRPCConfig struct {
	Addr string `yaml:"addr"`
}

type HistoryConfig struct {
	Capacity int `yaml:"capacity"` // evaluations kept by the store; 0 keeps all
}

type REPLConfig struct {
	HistoryFile string `yaml:"history_file"`
	Prompt      string `yaml:"prompt"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		LogLevel:       "info",
		ShowTokens:     true,
		MaxInputLength: DefaultMaxInputLength,
		HTTP:           HTTPConfig{Addr: "0.0.0.0:8787"},
		GRPC:           GRPCConfig{Addr: "0.0.0.0:8788"},
		History:        HistoryConfig{Capacity: 1000},
		REPL:           REPLConfig{HistoryFile: ".intcalc_history", Prompt: "calc> "},
	}
}

// Load reads defaults, then path (if non-empty), then the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := cfg.Overlay(data); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Overlay overlays the YAML document in data on cfg.
func (c *Config) Overlay(data []byte) error {
	var raw yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid YAML: %w", err)
	}
	if len(raw.Content) == 0 {
		return nil
	}
	if raw.Content[0].Kind != yaml.MappingNode {
		return fmt.Errorf("config must be a YAML mapping")
	}
	if err := raw.Content[0].Decode(c); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// ApplyEnv overrides settings from INTCALC_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	envOrDefault := func(key, fallback string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return fallback
	}

	c.LogLevel = envOrDefault("INTCALC_LOG_LEVEL", c.LogLevel)
	c.HTTP.Addr = envOrDefault("INTCALC_HTTP_ADDR", c.HTTP.Addr)
	c.GRPC.Addr = envOrDefault("INTCALC_GRPC_ADDR", c.GRPC.Addr)
	c.REPL.HistoryFile = envOrDefault("INTCALC_REPL_HISTORY_FILE", c.REPL.HistoryFile)

	for key, dst := range map[string]*bool{
		"INTCALC_TRACE":       &c.Trace,
		"INTCALC_STRICT":      &c.Strict,
		"INTCALC_SHOW_TOKENS": &c.ShowTokens,
	} {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = b
	}

	for key, dst := range map[string]*int{
		"INTCALC_MAX_INPUT_LENGTH": &c.MaxInputLength,
		"INTCALC_HISTORY_CAPACITY": &c.History.Capacity,
	} {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = n
	}
	return nil
}

// Validate rejects settings no component can run with.
func (c *Config) Validate() error {
	if c.MaxInputLength <= 0 {
		return fmt.Errorf("max_input_length must be positive, got %d", c.MaxInputLength)
	}
	if c.History.Capacity < 0 {
		return fmt.Errorf("history.capacity must not be negative, got %d", c.History.Capacity)
	}
	return nil
}
