package internal

// NewSignal creates a leaf node holding a mutable value. equal defaults
// to defaultEqual when nil. If o is non-nil the node is owned by it and
// released when o disposes.
func (rt *Runtime) NewSignal(initial any, equal EqualFunc, o *OwnerHandle) *Handle {
	if equal == nil {
		equal = defaultEqual
	}

	n := &node{
		rt:    rt,
		kind:  signalNode,
		value: initial,
		state: Clean,
		equal: equal,
	}
	rt.register(n)

	if o != nil {
		o.o.own(n)
		n.owner = o.o
	}

	return newHandle(rt, n)
}

// ReadSignal returns h's current value and, if called while a Memo or
// Effect is being evaluated on the calling goroutine, links it as one of
// its dependencies.
func (rt *Runtime) ReadSignal(h *Handle) (any, error) {
	if h.rt != rt {
		return nil, &WrongRuntimeError{Node: h.id}
	}
	n := h.n
	n.mu.RLock()
	disposed := n.state == Disposed
	v := n.value
	n.mu.RUnlock()

	if disposed {
		return nil, &DisposedError{Node: n.id}
	}

	rt.tracker.track(n)
	return v, nil
}

// WriteSignal stores v on h's node if it differs from its current value
// under equal (P1: equality-gated writes never bump version or
// propagate), bumps its version, and pushes Check marks to its
// subscribers (see markSubscribersDirty). If a Batch is open on the
// Runtime (from any goroutine) the write's net
// effect is still subject to closing equality-gating (P7); the eager
// push still happens so that reads of downstream Memos inside the batch
// observe Check state and reconcile correctly if read before the batch
// closes.
func (rt *Runtime) WriteSignal(h *Handle, v any) error {
	if h.rt != rt {
		return &WrongRuntimeError{Node: h.id}
	}
	n := h.n
	n.mu.Lock()
	if n.state == Disposed {
		n.mu.Unlock()
		return &DisposedError{Node: n.id}
	}

	old := n.value
	oldVersion := n.version
	if n.equal(old, v) {
		n.mu.Unlock()
		return nil
	}

	n.value = v
	n.version++
	n.mu.Unlock()

	rt.batcher.recordPreBatchValue(n, old, oldVersion)
	rt.markSubscribersDirty(n)
	rt.scheduler.requestSchedule()

	if !rt.batcher.isBatching() {
		return rt.flush()
	}
	return nil
}

// markSubscribersDirty walks n's subscribers, marking Clean Memos and
// Effects Check (a Memo may turn out unaffected once it actually
// recomputes). Marking continues through each newly marked Memo to its own
// subscribers; only Effects are enqueued into the pending queue, so no
// Memo is recomputed until something reads it.
func (rt *Runtime) markSubscribersDirty(n *node) {
	n.mu.RLock()
	var subs []*node
	n.forEachSubscriber(func(e *edge) { subs = append(subs, e.subscriber) })
	n.mu.RUnlock()

	var ready []*node
	for _, sub := range subs {
		sub.mu.Lock()
		marked := sub.state == Clean
		if marked {
			sub.state = Check
		}
		sub.mu.Unlock()
		if !marked {
			continue
		}
		if sub.kind == memoNode {
			rt.markSubscribersDirty(sub)
		} else {
			ready = append(ready, sub)
		}
	}
	rt.pending.insertAll(ready)
}
