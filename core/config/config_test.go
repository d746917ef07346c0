package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sessionguard/core/config"
)

type testConfig struct {
	Gap   time.Duration `env:"CONFIG_TEST_GAP" envDefault:"15s"`
	Max   int           `env:"CONFIG_TEST_MAX" envDefault:"180"`
	Label string        `env:"CONFIG_TEST_LABEL"`
}

type requiredConfig struct {
	URL string `env:"CONFIG_TEST_REQUIRED_URL,required"`
}

// Not parallel: tests mutate the process environment and the package cache.
func TestLoad(t *testing.T) {
	t.Cleanup(config.Reset)

	t.Run("defaults and overrides", func(t *testing.T) {
		config.Reset()
		t.Setenv("CONFIG_TEST_MAX", "2")
		t.Setenv("CONFIG_TEST_LABEL", "edge")

		var cfg testConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, 15*time.Second, cfg.Gap)
		assert.Equal(t, 2, cfg.Max)
		assert.Equal(t, "edge", cfg.Label)
	})

	t.Run("cached per type", func(t *testing.T) {
		config.Reset()
		t.Setenv("CONFIG_TEST_MAX", "7")

		var first testConfig
		require.NoError(t, config.Load(&first))

		t.Setenv("CONFIG_TEST_MAX", "9")
		var second testConfig
		require.NoError(t, config.Load(&second))
		assert.Equal(t, 7, second.Max)
	})

	t.Run("required variable missing", func(t *testing.T) {
		config.Reset()

		var cfg requiredConfig
		assert.Error(t, config.Load(&cfg))
		assert.Panics(t, func() { config.MustLoad(&cfg) })
	})

	t.Run("nil target", func(t *testing.T) {
		var cfg *testConfig
		assert.ErrorIs(t, config.Load(cfg), config.ErrNotPointer)
	})
}
