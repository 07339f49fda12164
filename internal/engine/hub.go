package engine

import "sync"

// Hub fans session change notifications out to live surfaces (SSE streams, TUIs).
type Hub struct {
	mu   sync.Mutex
	subs map[chan struct{}]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: map[chan struct{}]struct{}{}}
}

func (h *Hub) Subscribe() (ch <-chan struct{}, cancel func()) {
	c := make(chan struct{}, 8)
	h.mu.Lock()
	h.subs[c] = struct{}{}
	h.mu.Unlock()
	var once sync.Once
	return c, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, c)
			h.mu.Unlock()
			close(c)
		})
	}
}

// Broadcast never blocks; a subscriber with a full buffer already has a pending wakeup.
func (h *Hub) Broadcast() {
	h.mu.Lock()
	for c := range h.subs {
		select {
		case c <- struct{}{}:
		default:
		}
	}
	h.mu.Unlock()
}
