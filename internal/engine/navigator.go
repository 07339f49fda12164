package engine

import (
	"strings"
	"sync"

	"mentor-miniapp/internal/render"
)

// Navigator holds the active top-level view. It is purely local.
type Navigator struct {
	mu     sync.Mutex
	active render.Tab
}

func NewNavigator() *Navigator {
	return &Navigator{active: render.TabDashboard}
}

func (n *Navigator) Active() render.Tab {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.active
}

// Show activates the named tab. Unknown names leave the navigator unchanged.
func (n *Navigator) Show(name string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, t := range render.Tabs {
		if string(t.Tab) == name {
			n.mu.Lock()
			n.active = t.Tab
			n.mu.Unlock()
			return nil
		}
	}
	return &ValidationError{Field: "tab", Message: "Unknown view: " + name}
}

func (n *Navigator) reset() {
	n.mu.Lock()
	n.active = render.TabDashboard
	n.mu.Unlock()
}
