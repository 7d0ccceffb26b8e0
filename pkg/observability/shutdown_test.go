package observability

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewShutdownManager_DefaultTimeout(t *testing.T) {
	sm := NewShutdownManager(NewNopLogger(), 0)
	assert.Equal(t, 30*time.Second, sm.timeout)
}

func TestShutdownManager_ReverseOrder(t *testing.T) {
	sm := NewShutdownManager(NewNopLogger(), time.Second)

	var order []string
	sm.RegisterShutdownFunc("database", func(ctx context.Context) error {
		order = append(order, "database")
		return nil
	})
	sm.RegisterShutdownFunc("redis", func(ctx context.Context) error {
		order = append(order, "redis")
		return nil
	})

	assert.NoError(t, sm.Shutdown())
	assert.Equal(t, []string{"redis", "database"}, order)
}

func TestShutdownManager_CollectsErrors(t *testing.T) {
	sm := NewShutdownManager(NewNopLogger(), time.Second)

	ran := false
	sm.RegisterShutdownFunc("first", func(ctx context.Context) error {
		ran = true
		return nil
	})
	sm.RegisterShutdownFunc("broken", func(ctx context.Context) error {
		return errors.New("close failed")
	})

	err := sm.Shutdown()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "broken: close failed")
	assert.True(t, ran)
}

func TestShutdownManager_WaitForShutdownOnContext(t *testing.T) {
	sm := NewShutdownManager(NewNopLogger(), time.Second)
	sm.AddServer(&http.Server{Addr: "127.0.0.1:0"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, sm.WaitForShutdown(ctx))
}
