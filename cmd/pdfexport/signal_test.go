package main

// Notes:
// - Only observable behavior is tested: stop() and parent cancellation.
//   Real signal delivery is platform specific and non-deterministic.

import (
	"context"
	"testing"
)

func TestNotifyContext(t *testing.T) {
	t.Parallel()

	t.Run("starts live", func(t *testing.T) {
		t.Parallel()
		ctx, stop := notifyContext(context.Background())
		defer stop()
		if ctx.Err() != nil {
			t.Fatal("context canceled before any signal")
		}
	})

	t.Run("stop cancels", func(t *testing.T) {
		t.Parallel()
		ctx, stop := notifyContext(context.Background())
		stop()
		if ctx.Err() == nil {
			t.Fatal("context still live after stop()")
		}
	})

	t.Run("parent cancellation propagates", func(t *testing.T) {
		t.Parallel()
		parent, cancel := context.WithCancel(context.Background())
		ctx, stop := notifyContext(parent)
		defer stop()
		cancel()
		<-ctx.Done()
	})
}
