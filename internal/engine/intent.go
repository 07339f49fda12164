package engine

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Surface is a named UI region that emits intents.
type Surface string

const (
	SurfaceRefresh        Surface = "refresh"
	SurfaceTodayPlan      Surface = "today-plan"
	SurfaceTaskForm       Surface = "task-form"
	SurfaceQuickTaskForm  Surface = "quick-task-form"
	SurfaceTasksList      Surface = "tasks-list"
	SurfaceHabitForm      Surface = "habit-form"
	SurfaceHabitsList     Surface = "habits-list"
	SurfaceMentorForm     Surface = "mentor-form"
	SurfaceChatForm       Surface = "chat-form"
	SurfaceLearningForm   Surface = "learning-form"
	SurfaceSuggestForm    Surface = "suggest-form"
	SurfaceLearningList   Surface = "learning-list"
	SurfacePlaylistForm   Surface = "playlist-form"
	SurfacePlaylistList   Surface = "playlist-list"
	SurfaceTrackForm      Surface = "track-form"
	SurfaceAIPerms        Surface = "ai-perms"
	SurfaceCleanupHistory Surface = "cleanup-history"
	SurfaceDeleteProfile  Surface = "delete-profile"
	SurfaceNav            Surface = "nav"
)

type EventKind string

const (
	EventSubmit EventKind = "submit"
	EventClick  EventKind = "click"
	EventChange EventKind = "change"
	EventDelete EventKind = "delete"
)

// Intent is one user action.
type Intent struct {
	Surface Surface
	Event   EventKind
	Values  url.Values
}

func NewIntent(surface Surface, event EventKind, kv ...string) Intent {
	in := Intent{Surface: surface, Event: event, Values: url.Values{}}
	for i := 0; i+1 < len(kv); i += 2 {
		in.Values.Set(kv[i], kv[i+1])
	}
	return in
}

func (in Intent) Get(key string) string {
	if in.Values == nil {
		return ""
	}
	return strings.TrimSpace(in.Values.Get(key))
}

// Optional returns nil for a blank value.
func (in Intent) Optional(key string) *string {
	v := in.Get(key)
	if v == "" {
		return nil
	}
	return &v
}

func (in Intent) ID(key string) (int64, error) {
	raw := in.Get(key)
	if raw == "" {
		return 0, required(key, key)
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, &ValidationError{Field: key, Message: "Invalid " + key + ": " + raw}
	}
	return n, nil
}

// Outcome tells the dispatcher what to do after a successful handler.
type Outcome struct {
	Toast            string
	Reload           bool
	RefreshSelection bool
	Reset            bool
}

type Handler func(ctx context.Context, s *Session, in Intent) (Outcome, error)

type bindingKey struct {
	surface Surface
	event   EventKind
}

// Binding is one row of the dispatch table.
type Binding struct {
	Surface Surface
	Event   EventKind
	Handler Handler
	// Summary is a short human description (listed by the CLI).
	Summary string
}

type Table struct {
	rows map[bindingKey]Binding
}

func NewTable(bindings ...Binding) *Table {
	t := &Table{rows: map[bindingKey]Binding{}}
	for _, b := range bindings {
		t.rows[bindingKey{b.Surface, b.Event}] = b
	}
	return t
}

func (t *Table) Lookup(surface Surface, event EventKind) (Binding, bool) {
	b, ok := t.rows[bindingKey{surface, event}]
	return b, ok
}

// Bindings returns every row sorted by surface then event.
func (t *Table) Bindings() []Binding {
	out := make([]Binding, 0, len(t.rows))
	for _, b := range t.rows {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Surface != out[j].Surface {
			return out[i].Surface < out[j].Surface
		}
		return out[i].Event < out[j].Event
	})
	return out
}
