package reactive

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOnSettled(t *testing.T) {
	t.Run("fires after the effects from a write finish running", func(t *testing.T) {
		rt, err := NewRuntime()
		assert.NoError(t, err)

		count := NewSignalOn(rt, 0, nil)
		var order []string
		NewEffectOn(rt, func() Cleanup {
			count.Read()
			order = append(order, "effect")
			return nil
		}, nil)

		rt.OnSettled(func() { order = append(order, "settled") })
		count.Write(1)

		assert.Equal(t, []string{"effect", "effect", "settled"}, order)
	})

	t.Run("fires once even for a batch touching multiple signals", func(t *testing.T) {
		rt, err := NewRuntime()
		assert.NoError(t, err)

		a := NewSignalOn(rt, 1, nil)
		b := NewSignalOn(rt, 1, nil)
		NewEffectOn(rt, func() Cleanup {
			a.Read()
			b.Read()
			return nil
		}, nil)

		settledCount := 0
		rt.OnSettled(func() { settledCount++ })

		rt.Batch(func() {
			a.Write(2)
			b.Write(2)
		})

		assert.Equal(t, 1, settledCount)
	})
}
