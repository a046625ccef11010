package embeddings

import (
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/clinicd/internal/vectorstore"
)

// Sentinel errors for embedding operations.
var (
	// ErrInvalidConfig indicates invalid provider configuration.
	ErrInvalidConfig = errors.New("invalid embeddings configuration")

	// ErrEmptyInput indicates empty input text.
	ErrEmptyInput = errors.New("empty input")

	// ErrEmbeddingFailed indicates embedding generation failure.
	ErrEmbeddingFailed = errors.New("failed to generate embeddings")
)

// Provider is the interface for embedding providers.
type Provider interface {
	vectorstore.Embedder

	// Dimension returns the embedding dimension for the current model.
	Dimension() int

	// Close releases resources held by the provider.
	Close() error
}

// Config holds configuration for creating an embedding provider.
type Config struct {
	// Provider is the provider type: "fastembed" or "deterministic".
	// Default: "deterministic".
	Provider string

	// Model is the embedding model name (FastEmbed only).
	Model string

	// CacheDir is the model cache directory (FastEmbed only).
	CacheDir string

	// VectorSize is the embedding dimension for the deterministic provider.
	// Default: 384, matching bge-small so stores are interchangeable.
	VectorSize int
}

// NewProvider creates an embedding provider based on the configuration.
//
// The returned provider is instrumented with OTel metrics.
func NewProvider(cfg Config) (Provider, error) {
	var (
		provider Provider
		err      error
	)

	switch cfg.Provider {
	case "fastembed":
		provider, err = NewFastEmbedProvider(FastEmbedConfig{
			Model:    cfg.Model,
			CacheDir: cfg.CacheDir,
		})
	case "deterministic", "":
		size := cfg.VectorSize
		if size == 0 {
			size = 384
		}
		provider, err = NewDeterministicProvider(size)
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrInvalidConfig, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return newInstrumentedProvider(provider, cfg.Provider), nil
}
