package internal

import gocontext "context"

// BindContext ties an Owner's lifetime to a standard context.Context: if
// ctx is canceled before the owner disposes on its own, the owner (and
// everything created under it -- typically one Effect) is disposed
// immediately. This is how a host hands a request-scoped or
// shutdown-scoped context.Context to a long-lived Effect, the same
// pattern the teacher reaches for at its I/O boundaries even though the
// reactive core itself has no network or blocking calls of its own.
func (rt *Runtime) BindContext(ctx gocontext.Context, o *OwnerHandle) {
	if ctx.Done() == nil {
		return
	}
	go func() {
		select {
		case <-ctx.Done():
			o.o.dispose(rt)
		case <-o.o.disposedSignal():
		}
	}()
}
