package internal

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// NodeId is an opaque, monotonically assigned identifier for a graph node
// within a single Runtime. It is never reused during the Runtime's lifetime.
type NodeId uint64

// RuntimeId distinguishes handles minted by one Runtime from those minted
// by another, so a Handle can never be mistakenly resolved against the
// wrong Runtime's registry.
type RuntimeId = uuid.UUID

// idAllocator hands out monotonically increasing NodeIds for one Runtime.
type idAllocator struct {
	counter uint64
}

func (a *idAllocator) next() NodeId {
	return NodeId(atomic.AddUint64(&a.counter, 1))
}

func newRuntimeId() RuntimeId {
	return uuid.New()
}
