package async

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSafeGo_RunsFunction(t *testing.T) {
	done := make(chan struct{})

	SafeGo(context.Background(), time.Second, "test task", func(ctx context.Context) error {
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task never ran")
	}
}

func TestSafeGo_RecoversFromPanic(t *testing.T) {
	done := make(chan struct{})

	SafeGo(context.Background(), time.Second, "panicking task", func(ctx context.Context) error {
		defer close(done)
		panic("boom")
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task never ran")
	}
	// Reaching this point without the test process dying is the assertion.
}

func TestSafeGo_SurvivesParentCancellation(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	cancel()

	var sawCancel atomic.Bool
	done := make(chan struct{})

	SafeGo(parent, time.Second, "detached task", func(ctx context.Context) error {
		defer close(done)
		sawCancel.Store(ctx.Err() != nil)
		return nil
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task never ran")
	}
	assert.False(t, sawCancel.Load(), "task context should not inherit parent cancellation")
}

func TestSafeGo_LogsErrorWithoutCrashing(t *testing.T) {
	done := make(chan struct{})

	SafeGo(context.Background(), time.Second, "failing task", func(ctx context.Context) error {
		defer close(done)
		return errors.New("tracking failed")
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task never ran")
	}
}

func TestSafeGoNoError(t *testing.T) {
	done := make(chan struct{})

	SafeGoNoError(context.Background(), time.Second, "void task", func(ctx context.Context) {
		close(done)
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task never ran")
	}
}
