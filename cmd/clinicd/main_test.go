package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/clinicd/internal/config"
)

func TestInitLogger(t *testing.T) {
	t.Run("production", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Log.Level = "info"

		logger, err := initLogger(cfg)
		require.NoError(t, err)
		assert.NotNil(t, logger)
	})

	t.Run("development debug", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Log.Level = "debug"
		cfg.Log.Development = true

		logger, err := initLogger(cfg)
		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(-1)) // zap.DebugLevel
	})

	t.Run("invalid level", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Log.Level = "shout"

		_, err := initLogger(cfg)
		require.Error(t, err)
	})
}

func TestRunRejectsBadConfigPath(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	err := run(context.Background(), "/nowhere/config.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}
