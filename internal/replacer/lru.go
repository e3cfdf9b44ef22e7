// Package replacer tracks which resident buffer-pool frames are
// currently evictable and picks a victim using least-recently-unpinned
// ordering.
package replacer

import (
	"container/list"
	"sync"
)

// LRU is a set of evictable frame ids ordered oldest-unpinned-first. It
// tracks only evictability, never residency or pin state — the
// BufferPool is the source of truth for both.
type LRU struct {
	mu    sync.Mutex
	order *list.List
	elems map[int]*list.Element
}

// New returns an empty LRU replacer.
func New() *LRU {
	return &LRU{
		order: list.New(),
		elems: make(map[int]*list.Element),
	}
}

// Pin removes frameID from the evictable set. No-op if it is not
// present — called when a frame transitions back to in-use.
func (l *LRU) Pin(frameID int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if e, ok := l.elems[frameID]; ok {
		l.order.Remove(e)
		delete(l.elems, frameID)
	}
}

// Unpin marks frameID evictable, placing it at the most-recently-unpinned
// end. No-op if already present.
func (l *LRU) Unpin(frameID int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.elems[frameID]; ok {
		return
	}
	l.elems[frameID] = l.order.PushBack(frameID)
}

// Victim removes and returns the least-recently-unpinned frame id, or
// ok=false if the evictable set is empty.
func (l *LRU) Victim() (frameID int, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	front := l.order.Front()
	if front == nil {
		return 0, false
	}
	l.order.Remove(front)
	id := front.Value.(int)
	delete(l.elems, id)
	return id, true
}

// Len reports the number of evictable frames.
func (l *LRU) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.order.Len()
}
