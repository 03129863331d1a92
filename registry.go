package main

import (
	"iter"
	"slices"
	"sync"
)

// registry is the set of open connections. All access goes through its
// methods, which share one mutex.
type registry struct {
	mu     sync.Mutex
	nextID int
	conns  map[*connection]int
}

func newRegistry() *registry {
	return &registry{conns: make(map[*connection]int)}
}

// register assigns c the next id, marks it open and adds it to the live set.
func (r *registry) register(c *connection) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	c.open(r.nextID)
	r.conns[c] = c.id
	return c.id
}

// unregister removes c and marks it closed. It reports whether c was a
// member; calling it again is a no-op.
func (r *registry) unregister(c *connection) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[c]; !ok {
		return false
	}
	delete(r.conns, c)
	c.setState(stateClosed)
	return true
}

// allExcept yields every registered connection other than excluded, in
// registration order. Each range takes a fresh snapshot and yields without
// holding the lock.
func (r *registry) allExcept(excluded *connection) iter.Seq[*connection] {
	return func(yield func(*connection) bool) {
		for _, c := range r.snapshot(excluded) {
			if !yield(c) {
				return
			}
		}
	}
}

func (r *registry) snapshot(excluded *connection) []*connection {
	r.mu.Lock()
	out := make([]*connection, 0, len(r.conns))
	for c := range r.conns {
		if c != excluded {
			out = append(out, c)
		}
	}
	r.mu.Unlock()

	// ids are monotonic, so id order is registration order.
	slices.SortFunc(out, func(a, b *connection) int { return a.id - b.id })
	return out
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}
