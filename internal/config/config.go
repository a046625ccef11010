// Package config provides configuration loading for clinicd.
//
// Configuration is loaded from a YAML file and overridden by environment
// variables, with hardcoded defaults for anything left unset.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete clinicd configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Store      StoreConfig      `koanf:"store"`
	Embeddings EmbeddingsConfig `koanf:"embeddings"`
	Chat       ChatConfig       `koanf:"chat"`
	Log        LogConfig        `koanf:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// StoreConfig holds the medical record index configuration.
type StoreConfig struct {
	Path       string `koanf:"path"`
	Compress   bool   `koanf:"compress"`
	Collection string `koanf:"collection"`
	VectorSize int    `koanf:"vector_size"`
}

// EmbeddingsConfig holds embedding provider configuration.
type EmbeddingsConfig struct {
	// Provider selects the embedding backend: "fastembed" or "deterministic".
	Provider string `koanf:"provider"`
	Model    string `koanf:"model"`
	CacheDir string `koanf:"cache_dir"`
}

// ChatConfig holds chat service tunables.
type ChatConfig struct {
	QueryResults   int `koanf:"query_results"`
	ContextRecords int `koanf:"context_records"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `koanf:"level"`
	Development bool   `koanf:"development"`
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}

	if cfg.Store.Path == "" {
		cfg.Store.Path = "~/.config/clinicd/vectorstore"
	}
	if cfg.Store.Collection == "" {
		cfg.Store.Collection = "medical_records"
	}
	if cfg.Store.VectorSize == 0 {
		cfg.Store.VectorSize = 384 // bge-small-en-v1.5 dimensions
	}

	if cfg.Embeddings.Provider == "" {
		cfg.Embeddings.Provider = "deterministic"
	}
	if cfg.Embeddings.Model == "" {
		cfg.Embeddings.Model = "BAAI/bge-small-en-v1.5"
	}

	if cfg.Chat.QueryResults == 0 {
		cfg.Chat.QueryResults = 5
	}
	if cfg.Chat.ContextRecords == 0 {
		cfg.Chat.ContextRecords = 3
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	if c.Store.VectorSize <= 0 {
		return fmt.Errorf("invalid vector size: %d", c.Store.VectorSize)
	}

	switch c.Embeddings.Provider {
	case "fastembed", "deterministic":
	default:
		return fmt.Errorf("unknown embeddings provider: %q", c.Embeddings.Provider)
	}

	if c.Chat.QueryResults < 1 {
		return fmt.Errorf("chat query_results must be positive: %d", c.Chat.QueryResults)
	}
	if c.Chat.ContextRecords < 1 {
		return fmt.Errorf("chat context_records must be positive: %d", c.Chat.ContextRecords)
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Log.Level)
	}

	return nil
}
