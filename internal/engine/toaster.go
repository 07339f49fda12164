package engine

import (
	"sync"
	"time"
)

const DefaultToastDuration = 1800 * time.Millisecond

// Toaster shows one transient message at a time. A new message restarts the
// dismissal timer; a timer that fires for an older message is ignored.
type Toaster struct {
	mu      sync.Mutex
	msg     string
	visible bool
	seq     uint64
	timer   *time.Timer

	ttl      time.Duration
	onExpire func()
}

func NewToaster(ttl time.Duration, onExpire func()) *Toaster {
	if ttl <= 0 {
		ttl = DefaultToastDuration
	}
	return &Toaster{ttl: ttl, onExpire: onExpire}
}

func (t *Toaster) Show(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	seq := t.seq
	t.msg = msg
	t.visible = true
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.ttl, func() { t.expire(seq) })
}

func (t *Toaster) Current() (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.msg, t.visible
}

func (t *Toaster) expire(seq uint64) {
	t.mu.Lock()
	if seq != t.seq || !t.visible {
		t.mu.Unlock()
		return
	}
	t.visible = false
	t.timer = nil
	cb := t.onExpire
	t.mu.Unlock()
	if cb != nil {
		cb()
	}
}

// Clear hides the toast immediately without notifying.
func (t *Toaster) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seq++
	t.visible = false
	t.msg = ""
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
