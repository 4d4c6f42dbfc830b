package reactive

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignal(t *testing.T) {
	t.Run("read and write", func(t *testing.T) {
		rt, err := NewRuntime()
		assert.NoError(t, err)

		count := NewSignalOn(rt, 0, nil)
		assert.Equal(t, 0, count.Read())

		count.Write(10)
		assert.Equal(t, 10, count.Read())
	})

	t.Run("concurrent read/write", func(t *testing.T) {
		rt, err := NewRuntime()
		assert.NoError(t, err)

		var wg sync.WaitGroup
		count := NewSignalOn(rt, 0, nil)

		wg.Add(1)
		go func() {
			defer wg.Done()
			count.Write(count.Read() + 1)
		}()
		wg.Wait()

		assert.Equal(t, 1, count.Read())
	})

	t.Run("zero values", func(t *testing.T) {
		rt, err := NewRuntime()
		assert.NoError(t, err)

		errSignal := NewSignalOn[error](rt, nil, nil)
		assert.Nil(t, errSignal.Read())

		errSignal.Write(errors.New("oops"))
		assert.EqualError(t, errSignal.Read(), "oops")

		errSignal.Write(nil)
		assert.Nil(t, errSignal.Read())
	})

	t.Run("equal write is a no-op", func(t *testing.T) {
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

		count.Write(5)
		assert.Equal(t, 1, runs)

		count.Write(6)
		assert.Equal(t, 2, runs)
	})

	t.Run("custom equality", func(t *testing.T) {
		rt, err := NewRuntime()
		assert.NoError(t, err)

		type point struct{ x, y int }
		p := NewSignalOn(rt, point{1, 1}, func(a, b point) bool { return a.x == b.x })

		runs := 0
		NewEffectOn(rt, func() Cleanup {
			p.Read()
			runs++
			return nil
		}, nil)
		assert.Equal(t, 1, runs)

		p.Write(point{1, 99}) // x unchanged, y ignored by equal
		assert.Equal(t, 1, runs)

		p.Write(point{2, 99})
		assert.Equal(t, 2, runs)
	})
}
