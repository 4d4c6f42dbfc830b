package internal

import (
	"iter"
	"sync"
)

// owner is a node in the disposal tree: a scope that Signals, Memos and
// Effects can be created under, and child owners can nest under. Disposing
// an owner cascades depth-first into children first, then runs its own
// cleanups and disposes its owned nodes, mirroring the
// teacher's Owner tree (internal/owner.go) but adding a mutex since a
// Runtime is now shared across goroutines instead of one-per-goroutine.
type owner struct {
	mu sync.Mutex

	cleanups []func()
	catchers []func(any)

	nodes []*node // nodes created directly under this owner's scope

	disposed bool
	done     chan struct{} // lazily created; closed when dispose runs

	parent       *owner
	prevSibling  *owner
	nextSibling  *owner
	childrenHead *owner
}

func newOwner(parent *owner) *owner {
	o := &owner{parent: parent}
	if parent != nil {
		parent.addChild(o)
	}
	return o
}

func (parent *owner) addChild(child *owner) {
	parent.mu.Lock()
	defer parent.mu.Unlock()

	child.prevSibling = nil
	child.nextSibling = parent.childrenHead
	if parent.childrenHead != nil {
		parent.childrenHead.prevSibling = child
	}
	parent.childrenHead = child
}

func (n *owner) children() iter.Seq[*owner] {
	return func(yield func(*owner) bool) {
		child := n.childrenHead
		for child != nil {
			next := child.nextSibling
			if !yield(child) {
				return
			}
			child = next
		}
	}
}

// own registers a node as created under this owner's scope. The node is
// disposed when the owner disposes, whatever Handles still point to it.
func (n *owner) own(nd *node) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nodes = append(n.nodes, nd)
}

// dispose tears this owner and its whole subtree down: children first
// (depth-first, so a child's cleanups never observe a parent already
// torn down), then this owner's own cleanups in reverse registration
// order, then disposes every node created in its scope.
func (n *owner) dispose(rt *Runtime) {
	n.mu.Lock()
	if n.disposed {
		n.mu.Unlock()
		return
	}
	n.disposed = true
	children := n.childrenHead
	n.childrenHead = nil
	cleanups := n.cleanups
	n.cleanups = nil
	nodes := n.nodes
	n.nodes = nil
	done := n.done
	n.mu.Unlock()

	if done != nil {
		close(done)
	}

	for child := children; child != nil; {
		next := child.nextSibling
		child.dispose(rt)
		child = next
	}

	for i := len(cleanups) - 1; i >= 0; i-- {
		runProtected(cleanups[i])
	}

	for _, nd := range nodes {
		rt.disposeNode(nd)
	}
}

// disposedSignal returns a channel closed once this owner disposes,
// creating it lazily on first use.
func (n *owner) disposedSignal() <-chan struct{} {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.disposed {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	if n.done == nil {
		n.done = make(chan struct{})
	}
	return n.done
}

func (n *owner) onCleanup(fn func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cleanups = append(n.cleanups, fn)
}

func (n *owner) onError(fn func(any)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.catchers = append(n.catchers, fn)
}

// recoverInto runs fn, routing any panic to this owner's error catchers
// (walking up to parents if this owner registered none), and re-panicking
// if no ancestor claims it.
func (n *owner) recoverInto(fn func()) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		for o := n; o != nil; o = o.parent {
			o.mu.Lock()
			catchers := o.catchers
			o.mu.Unlock()
			if len(catchers) == 0 {
				continue
			}
			for _, c := range catchers {
				c(r)
			}
			return
		}
		panic(r)
	}()
	fn()
}

func runProtected(fn func()) {
	defer func() { recover() }()
	fn()
}

// OwnerHandle is the public handle to a disposal scope: a Signal, Memo
// or Effect created while an OwnerHandle is current gets torn down when
// the OwnerHandle disposes.
type OwnerHandle struct {
	rt *Runtime
	o  *owner
}

// NewOwner creates a root owner scope with no parent, or a child scope
// of parent if parent is non-nil.
func (rt *Runtime) NewOwner(parent *OwnerHandle) *OwnerHandle {
	var p *owner
	if parent != nil {
		p = parent.o
	}
	return &OwnerHandle{rt: rt, o: newOwner(p)}
}

func (h *OwnerHandle) OnCleanup(fn func()) { h.o.onCleanup(fn) }
func (h *OwnerHandle) OnError(fn func(any)) { h.o.onError(fn) }
func (h *OwnerHandle) Dispose()            { h.o.dispose(h.rt) }

// Run evaluates fn with this owner current on the calling goroutine, so
// that Signal/Memo/Effect constructors called inside fn against this
// owner's Runtime are owned by it and any panic is routed to its error
// catchers.
func (h *OwnerHandle) Run(fn func()) {
	h.o.recoverInto(func() {
		h.rt.tracker.runWithOwner(h.o, fn)
	})
}
