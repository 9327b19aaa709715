// Package realtime wakes data-store subscribers when a related path changes.
package realtime

import (
	"sync"

	"github.com/dmitrijs2005/workoutlog/internal/server/tree"
)

// Hub fans change notifications out to local subscriptions.
type Hub struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscription]struct{})}
}

// Subscription receives a signal on C after any change related to its path.
// Signals coalesce: C holds at most one pending signal, so a slow reader
// sees one wake-up for a burst of writes and then reads the latest state.
type Subscription struct {
	C    chan struct{}
	path string
	hub  *Hub
	once sync.Once
}

func (h *Hub) Subscribe(path string) *Subscription {
	s := &Subscription{C: make(chan struct{}, 1), path: path, hub: h}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

// Close detaches s from the hub. It is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s)
		s.hub.mu.Unlock()
	})
}

func (s *Subscription) Path() string { return s.path }

// Publish signals every subscription whose path is related to path.
func (h *Hub) Publish(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		if !tree.Related(s.path, path) {
			continue
		}
		select {
		case s.C <- struct{}{}:
		default:
		}
	}
}

// Len reports the number of open subscriptions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
