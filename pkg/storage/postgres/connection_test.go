package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionConfig_WithDefaults(t *testing.T) {
	t.Run("zero config", func(t *testing.T) {
		cfg := ConnectionConfig{}.withDefaults()
		assert.Equal(t, 20, cfg.MaxConns)
		assert.Equal(t, 2, cfg.MinConns)
		assert.Equal(t, 10*time.Second, cfg.Timeout)
		assert.Equal(t, 30*time.Minute, cfg.MaxLifetime)
		assert.Equal(t, 5*time.Minute, cfg.MaxIdleTime)
	})

	t.Run("min clamped to max", func(t *testing.T) {
		cfg := ConnectionConfig{MaxConns: 4, MinConns: 10}.withDefaults()
		assert.Equal(t, 4, cfg.MinConns)
	})

	t.Run("explicit values kept", func(t *testing.T) {
		cfg := ConnectionConfig{MaxConns: 50, MinConns: 5, Timeout: time.Second}.withDefaults()
		assert.Equal(t, 50, cfg.MaxConns)
		assert.Equal(t, 5, cfg.MinConns)
		assert.Equal(t, time.Second, cfg.Timeout)
	})
}

func TestConnect_RequiresURL(t *testing.T) {
	_, err := Connect(context.Background(), ConnectionConfig{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database URL is required")
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect(context.Background(), ConnectionConfig{
		URL:     "postgres://nobody@127.0.0.1:1/none?sslmode=disable&connect_timeout=1",
		Timeout: 2 * time.Second,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to ping database")
}
