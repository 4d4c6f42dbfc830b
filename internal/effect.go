package internal

// NewEffect creates an eager node: run is invoked once immediately (to
// establish its initial dependency set) and again every time any of its
// sources is reconciled and found actually changed. run may return a
// Cleanup, invoked right before the next run and when the effect is
// disposed. errSink receives any panic recovered from run, or error it
// returns, on every run, and the effect stays subscribed afterward (an
// Effect failure is never fatal to the graph, unlike a Memo's cached
// failure). With a nil errSink, failures go to the Runtime's ErrorSink.
func (rt *Runtime) NewEffect(run func() (Cleanup, error), o *OwnerHandle, errSink func(NodeId, error)) *Handle {
	n := &node{
		rt:    rt,
		kind:  effectNode,
		state: Dirty,
		equal: func(any, any) bool { return false }, // effects always "changed"
	}
	n.runFn = run
	if errSink != nil {
		n.runFn = func() (cleanup Cleanup, err error) {
			defer func() {
				if r := recover(); r != nil {
					err = &UserCallbackFailureError{Node: n.id, Cause: r}
				}
				if err != nil {
					errSink(n.id, err)
				}
				err = nil
			}()
			return run()
		}
	}
	rt.register(n)

	if o != nil {
		o.o.own(n)
		n.owner = o.o
	}

	rt.runEffectNow(n, rt.errSink)
	return newHandle(rt, n)
}

// markEffectReady enqueues n into the Runtime's effect queue if it isn't
// already pending, stamping it with the next FIFO sequence number.
func (rt *Runtime) markEffectReady(n *node) {
	rt.effects.push(n)
}

// runEffectNow reconciles and, if the effect turns out to actually need
// running, executes it synchronously: running the previous Cleanup (if
// any), then run_fn under dependency tracking, then caching the new
// Cleanup. Cycle and Disposed reconciliation errors are swallowed (an
// effect that became unreachable mid-pass is simply skipped).
func (rt *Runtime) runEffectNow(n *node, errSink func(NodeId, error)) {
	n.mu.Lock()
	if n.state == Disposed {
		n.mu.Unlock()
		return
	}
	state := n.state
	n.mu.Unlock()

	if state == Check {
		dirty, err := rt.sourcesChanged(n)
		if err != nil {
			return
		}
		if !dirty {
			n.mu.Lock()
			if n.state == Check {
				n.state = Clean
			}
			n.mu.Unlock()
			return
		}
	}
	if state == Clean {
		return
	}

	n.mu.Lock()
	n.state = Running
	prevCleanup := n.cleanup
	prevScope := n.scope
	n.mu.Unlock()

	if prevCleanup != nil {
		runProtected(prevCleanup)
	}

	n.clearSources()
	if prevScope != nil {
		prevScope.dispose(rt)
	}
	scope := newOwner(n.owner)

	var (
		cleanup Cleanup
		err     error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = &UserCallbackFailureError{Node: n.id, Cause: r}
			}
		}()
		rt.tracker.runWithComputation(n, scope, func() {
			cleanup, err = n.runFn()
		})
	}()

	n.mu.Lock()
	if n.state != Running {
		n.mu.Unlock()
		scope.dispose(rt)
		return
	}
	n.scope = scope
	n.cleanup = cleanup
	n.version++
	n.state = Clean
	n.mu.Unlock()

	if err != nil && errSink != nil {
		errSink(n.id, err)
	}
}
