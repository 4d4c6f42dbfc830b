package internal

import "golang.org/x/sync/singleflight"

// NewMemo creates a lazy, cached derived node. compute is called to
// produce the value the first time the Memo is read, and again whenever
// a read finds it Dirty after reconciliation. It must be side-effect
// free other than reading other Signals/Memos.
func (rt *Runtime) NewMemo(compute func() (any, error), equal EqualFunc, o *OwnerHandle) *Handle {
	if equal == nil {
		equal = defaultEqual
	}

	n := &node{
		rt:        rt,
		kind:      memoNode,
		state:     Dirty, // never evaluated; first read must compute
		equal:     equal,
		computeFn: compute,
	}
	rt.register(n)

	if o != nil {
		o.o.own(n)
		n.owner = o.o
	}

	return newHandle(rt, n)
}

// ReadMemo reconciles h's node (recomputing it if it turns out Dirty)
// and returns its current value, linking it as a dependency of whichever
// computation is in progress on the calling goroutine.
func (rt *Runtime) ReadMemo(h *Handle) (any, error) {
	if h.rt != rt {
		return nil, &WrongRuntimeError{Node: h.id}
	}
	n := h.n
	if err := rt.reconcile(n); err != nil {
		return nil, err
	}

	n.mu.RLock()
	v, err := n.value, n.err
	n.mu.RUnlock()

	rt.tracker.track(n)
	return v, err
}

// reconcile brings a Check or Dirty Memo/Effect node up to date, doing
// nothing if it is already Clean. A Check node is only actually
// recomputed if reconciling its sources first (recursively) reveals at
// least one source whose version changed since this node last read it;
// otherwise the push that marked it Check turned out not to matter, and
// it is demoted straight back to Clean (P4: glitch freedom).
func (rt *Runtime) reconcile(n *node) error {
	n.mu.Lock()
	state := n.state
	n.mu.Unlock()

	switch state {
	case Clean:
		return nil
	case Disposed:
		return &DisposedError{Node: n.id}
	case Running:
		return &CycleError{Node: n.id}
	case Check:
		dirty, err := rt.sourcesChanged(n)
		if err != nil {
			return err
		}
		if !dirty {
			n.mu.Lock()
			if n.state == Check {
				n.state = Clean
			}
			n.mu.Unlock()
			return nil
		}
	}

	return rt.recomputeMemo(n)
}

// sourcesChanged reconciles every source of n and reports whether any of
// them actually produced a new version since n last evaluated.
func (rt *Runtime) sourcesChanged(n *node) (bool, error) {
	n.mu.RLock()
	var edges []*edge
	n.forEachSource(func(e *edge) { edges = append(edges, e) })
	n.mu.RUnlock()

	changed := false
	for _, e := range edges {
		src := e.source
		if src.kind != signalNode {
			if err := rt.reconcile(src); err != nil {
				return false, err
			}
		}
		src.mu.RLock()
		v := src.version
		src.mu.RUnlock()
		if v != e.sourceVersionSeen {
			changed = true
		}
	}

	return changed, nil
}

// group dedups concurrent recomputations of the same Memo: if two
// goroutines both observe n as Dirty and race to reconcile it, only one
// actually runs compute_fn, and both return its result.
var group singleflight.Group

func (rt *Runtime) recomputeMemo(n *node) error {
	key := memoKey(n)
	_, err, _ := group.Do(key, func() (any, error) {
		rt.evaluate(n)
		return nil, nil
	})
	if err != nil {
		return err
	}

	n.mu.RLock()
	cached := n.err
	n.mu.RUnlock()
	return cached
}

func memoKey(n *node) string {
	var b [8]byte
	id := uint64(n.id)
	for i := range b {
		b[i] = byte(id >> (8 * i))
	}
	return string(n.rt.id[:]) + string(b[:])
}

// evaluate runs n's compute_fn, relinking its dependency set from
// scratch, and updates n's cached value/version/state. It never returns
// an error directly: failures are cached on n.err (a recovered panic
// wrapped as UserCallbackFailureError, or the error compute returned) per
// the spec's retry-on-next-upstream-change semantics, and surfaced to
// callers of ReadMemo/reconcile.
func (rt *Runtime) evaluate(n *node) {
	n.mu.Lock()
	if n.state == Disposed {
		n.mu.Unlock()
		return
	}
	n.state = Running
	oldValue := n.value
	firstRun := n.scope == nil
	prevScope := n.scope
	n.mu.Unlock()

	n.clearSources()
	if prevScope != nil {
		prevScope.dispose(rt)
	}
	scope := newOwner(n.owner)

	var (
		newValue any
		err      error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = &UserCallbackFailureError{Node: n.id, Cause: r}
			}
		}()
		rt.tracker.runWithComputation(n, scope, func() {
			newValue, err = n.computeFn()
		})
	}()

	n.mu.Lock()
	if n.state != Running {
		// disposed mid-evaluation; discard the result entirely.
		n.mu.Unlock()
		scope.dispose(rt)
		return
	}
	n.scope = scope

	changed := false
	if err != nil {
		n.err = err
		n.version++
		n.state = Clean
		changed = true // a failing memo always notifies its subscribers
	} else {
		n.err = nil
		changed = firstRun || !n.equal(oldValue, newValue)
		n.value = newValue
		if changed {
			n.version++
		}
		n.state = Clean
	}
	n.mu.Unlock()

	if changed && !firstRun {
		rt.markSubscribersDirty(n)
	}
}
