package reactive

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUntrack(t *testing.T) {
	rt, err := NewRuntime()
	assert.NoError(t, err)

	tracked := NewSignalOn(rt, 1, nil)
	untracked := NewSignalOn(rt, 100, nil)

	runs := 0
	var lastSum int
	NewEffectOn(rt, func() Cleanup {
		runs++
		var u int
		rt.Untrack(func() { u = untracked.Read() })
		lastSum = tracked.Read() + u
		return nil
	}, nil)
	assert.Equal(t, 1, runs)
	assert.Equal(t, 101, lastSum)

	untracked.Write(200) // read inside Untrack, must not resubscribe
	assert.Equal(t, 1, runs)

	tracked.Write(2)
	assert.Equal(t, 2, runs)
	assert.Equal(t, 202, lastSum)
}
