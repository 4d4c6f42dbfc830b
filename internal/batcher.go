package internal

import "sync"

// batcher coalesces writes across nested Batch calls: each nested call
// only increments depth, and propagation (the effect-running part of a
// Flush) is deferred until the outermost Batch returns. preBatch records
// each written node's value as of the moment the outermost batch began,
// so that closeOutermost can apply equality gating against the batch's
// net effect rather than against every intermediate write. Batching is
// a property of the Runtime as a whole, not of one goroutine -- a batch
// opened on one goroutine defers every write from any goroutine until it
// closes, matching the teacher's single shared Batcher/Scheduler depth
// counter (a natural fit once Batcher scales from one-runtime-per-
// goroutine up to one shared Runtime).
type preBatchSnapshot struct {
	value   any
	version uint64
}

type batcher struct {
	mu       sync.Mutex
	depth    int
	preBatch map[*node]preBatchSnapshot
}

func newBatcher() *batcher {
	return &batcher{preBatch: make(map[*node]preBatchSnapshot)}
}

func (b *batcher) isBatching() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.depth > 0
}

func (b *batcher) enter() {
	b.mu.Lock()
	b.depth++
	b.mu.Unlock()
}

// exit decrements the depth and reports whether this was the outermost
// batch closing.
func (b *batcher) exit() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.depth--
	return b.depth == 0
}

// recordPreBatchValue remembers n's value and version the first time it
// is written during the current outermost batch. Later writes to the
// same node within the same batch do not overwrite this snapshot.
func (b *batcher) recordPreBatchValue(n *node, v any, version uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.depth == 0 {
		return
	}
	if _, ok := b.preBatch[n]; !ok {
		b.preBatch[n] = preBatchSnapshot{value: v, version: version}
	}
}

// closeOutermost returns the preBatch snapshot map and resets it, to be
// compared by the caller against each node's post-batch value.
func (b *batcher) closeOutermost() map[*node]preBatchSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	snapshot := b.preBatch
	b.preBatch = make(map[*node]preBatchSnapshot)
	return snapshot
}
