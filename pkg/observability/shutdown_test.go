package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShutdown_RunsFuncsInOrder(t *testing.T) {
	sm := NewShutdownManager(NewLogger(ErrorLevel, nil), nil, time.Second)

	var order []string
	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		order = append(order, "server deps")
		return nil
	})
	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		order = append(order, "storage")
		return nil
	})

	require.NoError(t, sm.Shutdown(context.Background()))
	assert.Equal(t, []string{"server deps", "storage"}, order)
}

func TestShutdown_CollectsErrors(t *testing.T) {
	sm := NewShutdownManager(NewLogger(ErrorLevel, nil), nil, time.Second)

	var secondRan bool
	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		return errors.New("close failed")
	})
	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		secondRan = true
		return nil
	})

	err := sm.Shutdown(context.Background())
	assert.Error(t, err)
	assert.True(t, secondRan, "later shutdown funcs still run after a failure")
}

func TestShutdown_TimeoutSkipsRemaining(t *testing.T) {
	sm := NewShutdownManager(NewLogger(ErrorLevel, nil), nil, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		cancel()
		return nil
	})
	var secondRan bool
	sm.RegisterShutdownFunc(func(ctx context.Context) error {
		secondRan = true
		return nil
	})

	err := sm.Shutdown(ctx)
	assert.Error(t, err)
	assert.False(t, secondRan)
}

func TestMustRecover(t *testing.T) {
	assert.NoError(t, MustRecover(nil))

	err := func() (err error) {
		defer func() {
			err = MustRecover(recover())
		}()
		panic("boom")
	}()
	assert.ErrorContains(t, err, "boom")
}
