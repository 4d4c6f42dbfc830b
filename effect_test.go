package reactive

import (
	"fmt"
	"testing"

	"github.com/reactivecore/runtime/internal"
	"github.com/stretchr/testify/assert"
)

func TestEffect(t *testing.T) {
	t.Run("runs on signal change with cleanup", func(t *testing.T) {
		rt, err := NewRuntime()
		assert.NoError(t, err)

		var log []string
		count := NewSignalOn(rt, 0, nil)

		NewEffectOn(rt, func() Cleanup {
			v := count.Read()
			log = append(log, fmt.Sprintf("run %d", v))
			return func() { log = append(log, fmt.Sprintf("cleanup %d", v)) }
		}, nil)

		assert.Equal(t, []string{"run 0"}, log)

		count.Write(1)
		assert.Equal(t, []string{"run 0", "cleanup 0", "run 1"}, log)

		count.Write(2)
		assert.Equal(t, []string{"run 0", "cleanup 0", "run 1", "cleanup 1", "run 2"}, log)
	})

	t.Run("dynamic dependencies: unread sources stop triggering reruns", func(t *testing.T) {
		rt, err := NewRuntime()
		assert.NoError(t, err)

		cond := NewSignalOn(rt, true, nil)
		a := NewSignalOn(rt, "a", nil)
		b := NewSignalOn(rt, "b", nil)

		runs := 0
		var seen string
		NewEffectOn(rt, func() Cleanup {
			runs++
			if cond.Read() {
				seen = a.Read()
			} else {
				seen = b.Read()
			}
			return nil
		}, nil)
		assert.Equal(t, 1, runs)
		assert.Equal(t, "a", seen)

		b.Write("b2") // not currently subscribed to
		assert.Equal(t, 1, runs)

		cond.Write(false)
		assert.Equal(t, 2, runs)
		assert.Equal(t, "b2", seen)

		a.Write("a2") // no longer subscribed to
		assert.Equal(t, 2, runs)
	})

	t.Run("panic is routed to the error sink, effect stays subscribed", func(t *testing.T) {
		rt, err := NewRuntime()
		assert.NoError(t, err)

		count := NewSignalOn(rt, 0, nil)
		var gotErr error
		NewEffectOn(rt, func() Cleanup {
			v := count.Read()
			if v == 1 {
				panic("boom")
			}
			return nil
		}, func(id internal.NodeId, err error) { gotErr = err })

		count.Write(1)
		assert.Error(t, gotErr)

		gotErr = nil
		count.Write(2) // effect must still be subscribed after a failing run
		assert.NoError(t, gotErr)
	})
}
