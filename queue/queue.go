// Package queue implements the small FIFO structures the event loop
// drains from: the inbound message queue, the peer status-change queue,
// and the synced-hash latch. Each is guarded by its own mutex, matching
// the "single per-structure mutual-exclusion lock, never held across a
// TCP call" discipline the rest of this tree follows.
package queue

import (
	"sync"

	"github.com/Goxoy/goxoy-litep2p/membership"
	"github.com/Goxoy/goxoy-litep2p/wire"
)

// Messages is the ordered FIFO of inbound Message values. Ingress
// handlers push; the event loop is the single consumer.
type Messages struct {
	mu    sync.Mutex
	items []wire.Message
}

func (q *Messages) Push(m wire.Message) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, m)
}

// Peek returns the head of the queue without removing it.
func (q *Messages) Peek() (wire.Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return wire.Message{}, false
	}
	return q.items[0], true
}

// Pop removes and returns the head of the queue.
func (q *Messages) Pop() (wire.Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return wire.Message{}, false
	}
	m := q.items[0]
	q.items = q.items[1:]
	return m, true
}

func (q *Messages) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// StatusChange is one status-delta emitted by the prober.
type StatusChange struct {
	Addr   string
	Status membership.Status
}

// StatusChanges is the ordered FIFO of peer status deltas. The prober is
// the single producer; the event loop is the single consumer.
type StatusChanges struct {
	mu    sync.Mutex
	items []StatusChange
}

func (q *StatusChanges) Push(c StatusChange) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, c)
}

func (q *StatusChanges) Pop() (StatusChange, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return StatusChange{}, false
	}
	c := q.items[0]
	q.items = q.items[1:]
	return c, true
}

func (q *StatusChanges) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// SyncedLatch holds the last hash at which all Online peers were
// observed to agree, plus a flag marking whether that fact has yet been
// surfaced to the application via OnNodesSynced.
type SyncedLatch struct {
	mu      sync.Mutex
	hash    string
	updated bool
}

// Set records a new converged hash and raises the updated flag if it
// differs from the currently latched one. Returns whether it changed.
func (l *SyncedLatch) Set(hash string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if hash == l.hash {
		return false
	}
	l.hash = hash
	l.updated = true
	return true
}

// TakeIfUpdated clears the updated flag and returns the latched hash, if
// the flag was set and the hash is non-empty.
func (l *SyncedLatch) TakeIfUpdated() (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.updated || l.hash == "" {
		return "", false
	}
	l.updated = false
	return l.hash, true
}
