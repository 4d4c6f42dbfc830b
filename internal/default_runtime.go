package internal

import "sync"

// DefaultRuntime lazily constructs a single package-level Runtime the first
// time it's called and returns the same instance on every subsequent call.
// This replaces the teacher's per-goroutine GetRuntime() (one Runtime keyed
// by goid.Get() per goroutine, separately for default and wasm builds):
// a Runtime here is already safe to share across goroutines, so there is
// exactly one implicit graph for callers who don't want to construct their
// own via NewRuntime.
func DefaultRuntime() *Runtime {
	defaultRuntimeOnce.Do(func() {
		rt, err := NewRuntime()
		if err != nil {
			// zero-value RuntimeOptions always passes validation.
			panic(err)
		}
		defaultRuntime = rt
	})
	return defaultRuntime
}

var (
	defaultRuntimeOnce sync.Once
	defaultRuntime     *Runtime
)
