package internal

import (
	"sync"

	"github.com/petermattis/goid"
)

// frame is one goroutine's reactive call stack: which node (if any) is
// currently being evaluated, for dependency linking, which owner scope is
// current, for OnCleanup/OnError registration, and whether Untrack has
// suppressed tracking. A Runtime is shared across goroutines (unlike the
// teacher's one-runtime-per-goroutine model), so this state, which must
// stay goroutine-local, is keyed by goroutine id instead of living
// directly on the Runtime.
type frame struct {
	node      *node
	owner     *owner
	untracked bool
}

// Tracker holds one frame per goroutine currently inside the Runtime,
// keyed by goid. It is the sole piece of goroutine-local state in the
// engine; everything else (the node graph, the scheduler queue) is
// shared and protected by its own locks.
type Tracker struct {
	mu     sync.Mutex
	frames map[int64]*frame
}

func newTracker() *Tracker {
	return &Tracker{frames: make(map[int64]*frame)}
}

func (t *Tracker) frameFor(gid int64) *frame {
	t.mu.Lock()
	defer t.mu.Unlock()
	f, ok := t.frames[gid]
	if !ok {
		f = &frame{}
		t.frames[gid] = f
	}
	return f
}

func (t *Tracker) current() *frame {
	return t.frameFor(goid.Get())
}

// runWithComputation evaluates fn with n as the current computation
// (for dependency linking) and n's owner as the current owner (for
// nested Effect/Memo creation and OnCleanup registration), restoring the
// calling goroutine's previous frame afterward.
func (t *Tracker) runWithComputation(n *node, owner *owner, fn func()) {
	f := t.current()
	prevNode, prevOwner := f.node, f.owner
	f.node, f.owner = n, owner
	defer func() { f.node, f.owner = prevNode, prevOwner }()
	fn()
}

func (t *Tracker) runWithOwner(o *owner, fn func()) {
	f := t.current()
	prevOwner := f.owner
	f.owner = o
	defer func() { f.owner = prevOwner }()
	fn()
}

func (t *Tracker) runUntracked(fn func()) {
	f := t.current()
	prev := f.untracked
	f.untracked = true
	defer func() { f.untracked = prev }()
	fn()
}

func (t *Tracker) shouldTrack() bool {
	f := t.current()
	return f.node != nil && !f.untracked
}

// track links source as a dependency of the current goroutine's
// in-progress computation, if any, and if Untrack hasn't suppressed it.
func (t *Tracker) track(source *node) {
	f := t.current()
	if f.node != nil && !f.untracked {
		link(source, f.node)
	}
}

func (t *Tracker) currentOwner() *owner {
	return t.current().owner
}

func (t *Tracker) currentComputation() *node {
	return t.current().node
}
