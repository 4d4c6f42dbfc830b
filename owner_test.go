package reactive

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOwner(t *testing.T) {
	t.Run("dispose tears down owned effects and runs cleanups", func(t *testing.T) {
		rt, err := NewRuntime()
		assert.NoError(t, err)

		count := NewSignalOn(rt, 0, nil)
		runs := 0
		cleaned := false

		owner := rt.NewOwner()
		owner.Run(func() {
			NewEffectOn(rt, func() Cleanup {
				count.Read()
				runs++
				return func() { cleaned = true }
			}, nil)
		})

		assert.Equal(t, 1, runs)

		owner.Dispose()
		assert.True(t, cleaned)

		count.Write(1) // disposed effect must not run again
		assert.Equal(t, 1, runs)
	})

	t.Run("nested owners dispose depth first", func(t *testing.T) {
		rt, err := NewRuntime()
		assert.NoError(t, err)

		var order []string
		parent := rt.NewOwner()
		parent.Run(func() {
			parent.OnCleanup(func() { order = append(order, "parent") })

			child := rt.NewOwner()
			child.Run(func() {
				child.OnCleanup(func() { order = append(order, "child") })
			})
		})

		parent.Dispose()
		assert.Equal(t, []string{"child", "parent"}, order)
	})

	t.Run("OnError catches panics raised under Run", func(t *testing.T) {
		rt, err := NewRuntime()
		assert.NoError(t, err)

		owner := rt.NewOwner()
		var caught any
		owner.OnError(func(r any) { caught = r })

		owner.Run(func() {
			panic("boom")
		})

		assert.Equal(t, "boom", caught)
	})
}
