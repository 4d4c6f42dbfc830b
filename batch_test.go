package reactive

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBatch(t *testing.T) {
	t.Run("coalesces multiple writes into one effect run", func(t *testing.T) {
		rt, err := NewRuntime()
		assert.NoError(t, err)

		a := NewSignalOn(rt, 1, nil)
		b := NewSignalOn(rt, 2, nil)

		runs := 0
		var lastSum int
		NewEffectOn(rt, func() Cleanup {
			runs++
			lastSum = a.Read() + b.Read()
			return nil
		}, nil)
		assert.Equal(t, 1, runs)

		rt.Batch(func() {
			a.Write(10)
			b.Write(20)
		})

		assert.Equal(t, 2, runs, "both writes should settle in a single effect run")
		assert.Equal(t, 30, lastSum)
	})

	t.Run("net no-op batch suppresses the effect entirely", func(t *testing.T) {
		rt, err := NewRuntime()
		assert.NoError(t, err)

		count := NewSignalOn(rt, 5, nil)
		runs := 0
		NewEffectOn(rt, func() Cleanup {
			count.Read()
			runs++
			return nil
		}, nil)
		assert.Equal(t, 1, runs)

		rt.Batch(func() {
			count.Write(100)
			count.Write(5) // back to the original value before the batch closes
		})

		assert.Equal(t, 1, runs, "batch net effect was a no-op, effect must not rerun")
	})

	t.Run("nested batches flush once, at the outermost", func(t *testing.T) {
		rt, err := NewRuntime()
		assert.NoError(t, err)

		count := NewSignalOn(rt, 0, nil)
		runs := 0
		NewEffectOn(rt, func() Cleanup {
			count.Read()
			runs++
			return nil
		}, nil)
		assert.Equal(t, 1, runs)

		rt.Batch(func() {
			count.Write(1)
			rt.Batch(func() {
				count.Write(2)
			})
			count.Write(3)
		})

		assert.Equal(t, 2, runs)
	})
}
