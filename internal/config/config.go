// Package config loads rxstore configuration files.
//
// A config file is YAML, decoded strictly (unknown keys are errors) over
// Default, then validated against an embedded CUE schema.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/rxstore/internal/engine"
	"github.com/roach88/rxstore/internal/todos"
)

// Config is the root of a config file.
type Config struct {
	Store StoreConfig `yaml:"store" json:"store"`
	Log   LogConfig   `yaml:"log" json:"log"`
	Todos TodosConfig `yaml:"todos" json:"todos"`
}

// StoreConfig configures the engine.Store.
type StoreConfig struct {
	Name       string `yaml:"name" json:"name"`
	MaxSteps   int    `yaml:"max_steps" json:"max_steps"`
	FlowTokens string `yaml:"flow_tokens" json:"flow_tokens"`
}

// LogConfig configures the slog handler.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// TodosConfig configures the todos command.
type TodosConfig struct {
	DB   string       `yaml:"db" json:"db"`
	User int          `yaml:"user" json:"user"`
	Seed []todos.Todo `yaml:"seed" json:"seed"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Name:       "rxstore",
			MaxSteps:   engine.DefaultMaxSteps,
			FlowTokens: "uuid",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Todos: TodosConfig{
			Seed: []todos.Todo{},
		},
	}
}

// Load reads and validates the config file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes data over Default and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Todos.Seed == nil {
		cfg.Todos.Seed = []todos.Todo{}
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// StoreOptions returns the engine options described by c.
func (c Config) StoreOptions() []engine.Option {
	opts := []engine.Option{
		engine.WithName(c.Store.Name),
		engine.WithMaxSteps(c.Store.MaxSteps),
	}
	if c.Store.FlowTokens == "sequence" {
		opts = append(opts, engine.WithFlowGenerator(engine.NewSequenceGenerator("flow")))
	}
	return opts
}

// SlogLevel returns the slog level for c.
func (c LogConfig) SlogLevel() slog.Level {
	switch c.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Handler returns a slog handler writing to w.
func (c LogConfig) Handler(w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if c.Format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
