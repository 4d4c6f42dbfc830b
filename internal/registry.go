package internal

import (
	"sync"

	"github.com/cespare/xxhash/v2"
	mapset "github.com/deckarep/golang-set/v2"
)

const defaultShardCount = 16

// registryShard is one lock-striped slice of the Runtime's node table.
// Sharding the registry (rather than one RWMutex guarding one big map)
// is what lets unrelated Signal/Memo/Effect registrations and lookups on
// different goroutines proceed without contending on a single lock --
// the per-node RWMutex still serializes access to any one node's state.
type registryShard struct {
	mu    sync.RWMutex
	nodes map[NodeId]*node
}

// registry is the Runtime's NodeId -> node table, sharded by an xxhash
// of the id modulo the shard count so that lookup, insert and delete are all
// O(1) and independent of total node count.
type registry struct {
	shards []*registryShard
}

func newRegistry(shardCount int) *registry {
	if shardCount <= 0 {
		shardCount = defaultShardCount
	}
	shards := make([]*registryShard, shardCount)
	for i := range shards {
		shards[i] = &registryShard{nodes: make(map[NodeId]*node)}
	}
	return &registry{shards: shards}
}

func (r *registry) shardFor(id NodeId) *registryShard {
	var buf [8]byte
	for i := range buf {
		buf[i] = byte(id >> (8 * i))
	}
	h := xxhash.Sum64(buf[:])
	return r.shards[h%uint64(len(r.shards))]
}

func (r *registry) insert(n *node) {
	s := r.shardFor(n.id)
	s.mu.Lock()
	s.nodes[n.id] = n
	s.mu.Unlock()
}

func (r *registry) lookup(id NodeId) (*node, bool) {
	s := r.shardFor(id)
	s.mu.RLock()
	n, ok := s.nodes[id]
	s.mu.RUnlock()
	return n, ok
}

func (r *registry) remove(id NodeId) {
	s := r.shardFor(id)
	s.mu.Lock()
	delete(s.nodes, id)
	s.mu.Unlock()
}

// reclaimCandidates returns every registered node with zero strong
// references remaining, across all shards, as a golang-set set (so a
// node is listed once); Runtime.reclaim disposes each of them.
func (r *registry) reclaimCandidates() mapset.Set[*node] {
	out := mapset.NewThreadUnsafeSet[*node]()
	for _, s := range r.shards {
		s.mu.RLock()
		for _, n := range s.nodes {
			if n.refs() <= 0 {
				out.Add(n)
			}
		}
		s.mu.RUnlock()
	}
	return out
}

func (r *registry) size() int {
	total := 0
	for _, s := range r.shards {
		s.mu.RLock()
		total += len(s.nodes)
		s.mu.RUnlock()
	}
	return total
}
