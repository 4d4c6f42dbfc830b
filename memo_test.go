package reactive

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemo(t *testing.T) {
	t.Run("lazy and cached", func(t *testing.T) {
		rt, err := NewRuntime()
		assert.NoError(t, err)

		count := NewSignalOn(rt, 1, nil)
		computes := 0
		double := NewMemoOn(rt, func() int {
			computes++
			return count.Read() * 2
		})

		assert.Equal(t, 0, computes, "not yet read")
		assert.Equal(t, 2, double.Read())
		assert.Equal(t, 1, computes)

		double.Read()
		assert.Equal(t, 1, computes, "cached, no source change")

		count.Write(10)
		assert.Equal(t, 1, computes, "Memo is lazy: no recompute until read")
		assert.Equal(t, 20, double.Read())
		assert.Equal(t, 2, computes)
	})

	t.Run("diamond dependency recomputes once per pass", func(t *testing.T) {
		rt, err := NewRuntime()
		assert.NoError(t, err)

		source := NewSignalOn(rt, 1, nil)
		left := NewMemoOn(rt, func() int { return source.Read() + 1 })
		right := NewMemoOn(rt, func() int { return source.Read() + 2 })

		sumComputes := 0
		sum := NewMemoOn(rt, func() int {
			sumComputes++
			return left.Read() + right.Read()
		})

		assert.Equal(t, 5, sum.Read())
		assert.Equal(t, 1, sumComputes)

		source.Write(10)
		assert.Equal(t, 23, sum.Read())
		assert.Equal(t, 2, sumComputes, "sum should only recompute once despite two changed sources")
	})

	t.Run("equality short-circuits downstream propagation", func(t *testing.T) {
		rt, err := NewRuntime()
		assert.NoError(t, err)

		n := NewSignalOn(rt, 4, nil)
		parity := NewMemoOn(rt, func() string {
			if n.Read()%2 == 0 {
				return "even"
			}
			return "odd"
		})

		runs := 0
		NewEffectOn(rt, func() Cleanup {
			parity.Read()
			runs++
			return nil
		}, nil)
		assert.Equal(t, 1, runs)

		n.Write(6) // still even
		assert.Equal(t, 1, runs)

		n.Write(7) // now odd
		assert.Equal(t, 2, runs)
	})

	t.Run("fallible compute caches its error until a source changes", func(t *testing.T) {
		rt := Default()
		fail := NewSignalOn(rt, true, nil)
		m := NewFallibleMemo(func() (int, error) {
			if fail.Read() {
				return 0, fmt.Errorf("boom")
			}
			return 42, nil
		})

		_, err := m.TryRead()
		assert.EqualError(t, err, "boom")

		_, err = m.TryRead()
		assert.EqualError(t, err, "boom", "cached, compute not rerun")

		fail.Write(false)
		v, err := m.TryRead()
		assert.NoError(t, err)
		assert.Equal(t, 42, v)
	})
}
