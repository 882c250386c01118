package config_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notecache/pkg/config"
)

type sample struct {
	Name  string `env:"PKGCONFIG_SAMPLE_NAME" env-default:"fallback"`
	Count int    `env:"PKGCONFIG_SAMPLE_COUNT" env-default:"3"`
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := config.Load[sample](context.Background(), "test")
		require.NoError(t, err)
		assert.Equal(t, "fallback", cfg.Name)
		assert.Equal(t, 3, cfg.Count)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("PKGCONFIG_SAMPLE_NAME", "custom")
		t.Setenv("PKGCONFIG_SAMPLE_COUNT", "7")

		cfg, err := config.Load[sample](context.Background(), "test")
		require.NoError(t, err)
		assert.Equal(t, "custom", cfg.Name)
		assert.Equal(t, 7, cfg.Count)
	})

	t.Run("invalid value", func(t *testing.T) {
		t.Setenv("PKGCONFIG_SAMPLE_COUNT", "many")

		cfg, err := config.Load[sample](context.Background(), "test")
		require.Error(t, err)
		assert.Nil(t, cfg)
	})
}
