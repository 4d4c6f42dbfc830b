package reactive

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOwnerBindContext(t *testing.T) {
	t.Run("canceling the context disposes the owner", func(t *testing.T) {
		rt, err := NewRuntime()
		assert.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		owner := rt.NewOwner()
		owner.BindContext(ctx)

		cleaned := make(chan struct{})
		owner.OnCleanup(func() { close(cleaned) })

		cancel()

		select {
		case <-cleaned:
		case <-time.After(time.Second):
			t.Fatal("owner was not disposed after context cancellation")
		}
	})

	t.Run("owner disposing itself does not leak the watcher goroutine", func(t *testing.T) {
		rt, err := NewRuntime()
		assert.NoError(t, err)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		owner := rt.NewOwner()
		owner.BindContext(ctx)
		owner.Dispose() // must not block waiting on ctx.Done()
	})
}
