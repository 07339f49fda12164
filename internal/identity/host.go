package identity

import (
	"fmt"
	"strings"
	"sync"
)

// ScriptHost records host setup calls as a browser script to be executed in the
// page that owns the platform's WebApp object.
type ScriptHost struct {
	mu    sync.Mutex
	lines []string
}

func (h *ScriptHost) Ready()  { h.add("tg.ready();") }
func (h *ScriptHost) Expand() { h.add("tg.expand();") }

func (h *ScriptHost) SetHeaderColor(color string) {
	h.add(fmt.Sprintf("tg.setHeaderColor && tg.setHeaderColor(%q);", color))
}

func (h *ScriptHost) SetBackgroundColor(color string) {
	h.add(fmt.Sprintf("tg.setBackgroundColor && tg.setBackgroundColor(%q);", color))
}

func (h *ScriptHost) add(line string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, l := range h.lines {
		if l == line {
			return
		}
	}
	h.lines = append(h.lines, line)
}

// Script returns the recorded calls guarded on the WebApp object being present.
// Empty when nothing was recorded.
func (h *ScriptHost) Script() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.lines) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("(function(){var tg=window.Telegram&&window.Telegram.WebApp;if(!tg)return;")
	for _, l := range h.lines {
		b.WriteString(l)
	}
	b.WriteString("})();")
	return b.String()
}
