package render

import (
	"html/template"
	"math"
	"net/url"
	"slices"
	"strings"

	"mentor-miniapp/internal/model"
)

const (
	dashboardTaskCap   = 8
	dashboardAchievCap = 24

	DefaultMentorName = "Iron Mentor"
	defaultPersona    = "goggins"
)

// PermissionKeys is the fixed, ordered list of AI permission toggles.
var PermissionKeys = []struct {
	Key   string
	Label string
}{
	{"read_tasks", "Read tasks"},
	{"read_habits", "Read habits"},
	{"read_journal", "Read journal"},
	{"read_stats", "Read stats"},
	{"create_tasks", "Create tasks"},
	{"modify_tasks", "Modify tasks"},
	{"read_resources", "Read learning"},
}

func IsPermissionKey(key string) bool {
	for _, p := range PermissionKeys {
		if p.Key == key {
			return true
		}
	}
	return false
}

var personas = []struct {
	Value string
	Label string
}{
	{"strict", "Strict"},
	{"soft", "Soft"},
	{"adaptive", "Adaptive"},
	{"goggins", "Goggins"},
}

func PriorityBadge(p model.Priority) string {
	switch p {
	case model.PriorityLow:
		return "🟢"
	case model.PriorityMedium:
		return "🟡"
	case model.PriorityHigh:
		return "🟠"
	case model.PriorityCritical:
		return "🔴"
	default:
		return "🟡"
	}
}

func StatusBadge(t model.Task) string {
	if t.Done() {
		return "✅"
	}
	return "⬜"
}

// SortTasks orders not-done tasks before done ones, keeping source order within each group.
func SortTasks(in []model.Task) []model.Task {
	out := slices.Clone(in)
	slices.SortStableFunc(out, func(a, b model.Task) int {
		switch {
		case a.Done() == b.Done():
			return 0
		case a.Done():
			return 1
		default:
			return -1
		}
	})
	return out
}

// ActiveTasks and DoneTasks are the dashboard projections (source order, capped).
func ActiveTasks(in []model.Task) []model.Task {
	return capped(filterTasks(in, false), dashboardTaskCap)
}

func DoneTasks(in []model.Task) []model.Task {
	return capped(filterTasks(in, true), dashboardTaskCap)
}

func filterTasks(in []model.Task, done bool) []model.Task {
	var out []model.Task
	for _, t := range in {
		if t.Done() == done {
			out = append(out, t)
		}
	}
	return out
}

func capped[T any](in []T, n int) []T {
	if len(in) > n {
		return in[:n]
	}
	return in
}

// SafeLink returns raw if it is an absolute http(s) URL, "" otherwise.
func SafeLink(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return raw
	}
	return ""
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "—"
	}
	return s
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

type headerVM struct {
	ID         string
	Loaded     bool
	Caption    string
	MentorName string
	Subtitle   string
}

func buildHeader(v View) headerVM {
	vm := headerVM{ID: RegionHeader.DOMID(), MentorName: DefaultMentorName}
	u := v.Snapshot.User
	if u == nil {
		return vm
	}
	vm.Loaded = true
	vm.Caption = u.DisplayName + " · @" + orDefault(model.Deref(u.Username), "user")
	vm.MentorName = orDefault(u.Settings.MentorName, DefaultMentorName)
	vm.Subtitle = "mode: " + orDefault(u.Settings.MentorPersona, u.AIMode)
	return vm
}

type statsVM struct {
	ID         string
	Loaded     bool
	Level      int
	XP         int
	Discipline int
	Growth     int
}

func buildStats(v View) statsVM {
	vm := statsVM{ID: RegionStats.DOMID()}
	u := v.Snapshot.User
	if u == nil {
		return vm
	}
	vm.Loaded = true
	vm.Level = u.Level
	vm.XP = u.TotalXPEarned
	vm.Discipline = int(math.Round(u.DisciplineScore))
	vm.Growth = int(math.Round(u.GrowthScore))
	return vm
}

type lineVM struct {
	Badge string
	Text  string
}

type listVM struct {
	ID    string
	Items []lineVM
	Empty string
}

func buildTodo(v View) listVM {
	vm := listVM{ID: RegionTodo.DOMID(), Empty: "Nothing here"}
	for _, t := range ActiveTasks(v.Snapshot.Tasks) {
		vm.Items = append(vm.Items, lineVM{Badge: StatusBadge(t), Text: t.Title})
	}
	return vm
}

func buildDone(v View) listVM {
	vm := listVM{ID: RegionDone.DOMID(), Empty: "None yet"}
	for _, t := range DoneTasks(v.Snapshot.Tasks) {
		vm.Items = append(vm.Items, lineVM{Badge: StatusBadge(t), Text: t.Title})
	}
	return vm
}

func buildAchievements(v View) listVM {
	vm := listVM{ID: RegionAchievements.DOMID(), Empty: "No achievements yet"}
	for _, a := range capped(v.Snapshot.Achievements, dashboardAchievCap) {
		vm.Items = append(vm.Items, lineVM{Badge: a.Emoji, Text: a.Name})
	}
	return vm
}

type taskRowVM struct {
	ID         int64
	Badge      string
	Title      string
	Status     string
	Done       bool
	Deadline   string
	Recurrence string
	Reminder   string
}

type tasksVM struct {
	ID    string
	Rows  []taskRowVM
	Empty string
}

func buildTasks(v View) tasksVM {
	vm := tasksVM{ID: RegionTasks.DOMID(), Empty: "No tasks yet"}
	for _, t := range SortTasks(v.Snapshot.Tasks) {
		vm.Rows = append(vm.Rows, taskRowVM{
			ID:         t.ID,
			Badge:      PriorityBadge(t.Priority),
			Title:      t.Title,
			Status:     StatusBadge(t),
			Done:       t.Done(),
			Deadline:   orDash(model.Deref(t.Deadline)),
			Recurrence: orDefault(model.Deref(t.RecurrenceType), "none"),
			Reminder:   orDash(model.Deref(t.RemindTime)),
		})
	}
	return vm
}

type habitRowVM struct {
	ID       int64
	Emoji    string
	Name     string
	Streak   int
	Reminder string
}

type habitsVM struct {
	ID    string
	Rows  []habitRowVM
	Empty string
}

func buildHabits(v View) habitsVM {
	vm := habitsVM{ID: RegionHabits.DOMID(), Empty: "No habits yet"}
	for _, h := range v.Snapshot.Habits {
		reminder := "off"
		if h.RemindEnabled {
			reminder = orDefault(model.Deref(h.RemindTime), "on")
		}
		vm.Rows = append(vm.Rows, habitRowVM{
			ID:       h.ID,
			Emoji:    h.Emoji,
			Name:     h.Name,
			Streak:   h.CurrentStreak,
			Reminder: reminder,
		})
	}
	return vm
}

type permRowVM struct {
	Key     string
	Label   string
	Checked bool
}

type permissionsVM struct {
	ID   string
	Rows []permRowVM
}

func buildPermissions(v View) permissionsVM {
	vm := permissionsVM{ID: RegionPermissions.DOMID()}
	var settings model.Settings
	if v.Snapshot.User != nil {
		settings = v.Snapshot.User.Settings
	}
	for _, p := range PermissionKeys {
		vm.Rows = append(vm.Rows, permRowVM{Key: p.Key, Label: p.Label, Checked: settings.Permission(p.Key)})
	}
	return vm
}

type personaVM struct {
	Value    string
	Label    string
	Selected bool
}

type mentorFormVM struct {
	ID       string
	Name     string
	Personas []personaVM
}

func buildMentorForm(v View) mentorFormVM {
	vm := mentorFormVM{ID: RegionMentorForm.DOMID()}
	current := defaultPersona
	if u := v.Snapshot.User; u != nil {
		vm.Name = u.Settings.MentorName
		current = orDefault(u.Settings.MentorPersona, defaultPersona)
	}
	for _, p := range personas {
		vm.Personas = append(vm.Personas, personaVM{Value: p.Value, Label: p.Label, Selected: p.Value == current})
	}
	return vm
}

type resourceRowVM struct {
	ID        int64
	Marker    string
	Title     string
	Type      string
	Topic     string
	URL       string
	Completed bool
}

type learningVM struct {
	ID    string
	Rows  []resourceRowVM
	Empty string
}

func buildLearning(v View) learningVM {
	vm := learningVM{ID: RegionLearning.DOMID(), Empty: "No materials yet"}
	for _, r := range v.Snapshot.Resources {
		marker := "📌"
		if r.IsCompleted {
			marker = "✅"
		}
		vm.Rows = append(vm.Rows, resourceRowVM{
			ID:        r.ID,
			Marker:    marker,
			Title:     r.Title,
			Type:      string(r.ResourceType),
			Topic:     orDefault(model.Deref(r.Topic), "no topic"),
			URL:       SafeLink(model.Deref(r.URL)),
			Completed: r.IsCompleted,
		})
	}
	return vm
}

type suggestionRowVM struct {
	Title       string
	Type        string
	Description string
	URL         string
}

type suggestionsVM struct {
	ID      string
	Queried bool
	Rows    []suggestionRowVM
	Empty   string
}

func buildSuggestions(v View) suggestionsVM {
	vm := suggestionsVM{ID: RegionSuggestions.DOMID(), Queried: v.HasSuggestions, Empty: "No suggestions for this topic"}
	for _, s := range v.Suggestions {
		vm.Rows = append(vm.Rows, suggestionRowVM{
			Title:       s.Title,
			Type:        string(s.ResourceType),
			Description: s.Description,
			URL:         SafeLink(s.URL),
		})
	}
	return vm
}

type playlistRowVM struct {
	ID       int64
	Emoji    string
	Name     string
	Selected bool
}

type playlistsVM struct {
	ID    string
	Rows  []playlistRowVM
	Empty string
}

func buildPlaylists(v View) playlistsVM {
	vm := playlistsVM{ID: RegionPlaylists.DOMID(), Empty: "No playlists yet"}
	for _, p := range v.Snapshot.Playlists {
		vm.Rows = append(vm.Rows, playlistRowVM{
			ID:       p.ID,
			Emoji:    p.Emoji,
			Name:     p.Name,
			Selected: p.ID == v.Snapshot.SelectedPlaylistID,
		})
	}
	return vm
}

type trackRowVM struct {
	Title     string
	Position  int
	Performer string
	URL       string
	Stored    bool
}

type tracksVM struct {
	ID    string
	Rows  []trackRowVM
	Empty string
}

func buildTracks(v View) tracksVM {
	vm := tracksVM{ID: RegionTracks.DOMID()}
	if !v.Snapshot.HasSelection() {
		vm.Empty = "Pick a playlist"
		return vm
	}
	vm.Empty = "This playlist has no tracks yet"
	for _, t := range v.Snapshot.SelectedTracks {
		ref := model.Deref(t.FileID)
		link := SafeLink(ref)
		vm.Rows = append(vm.Rows, trackRowVM{
			Title:     orDefault(model.Deref(t.Title), "Untitled"),
			Position:  t.Position,
			Performer: orDefault(model.Deref(t.Performer), "Unknown artist"),
			URL:       link,
			Stored:    link == "" && strings.TrimSpace(ref) != "",
		})
	}
	return vm
}

type chatLineVM struct {
	Role string
	HTML template.HTML
}

type chatVM struct {
	ID    string
	Lines []chatLineVM
}

func buildChat(v View) chatVM {
	vm := chatVM{ID: RegionChat.DOMID()}
	for _, l := range v.Transcript {
		line := chatLineVM{Role: string(l.Role)}
		if l.Role == ChatBot {
			line.HTML = MarkdownHTML(l.Text)
		} else {
			line.HTML = template.HTML(template.HTMLEscapeString(l.Text))
		}
		vm.Lines = append(vm.Lines, line)
	}
	return vm
}

type todayPlanVM struct {
	ID      string
	Visible bool
	HTML    template.HTML
}

func buildTodayPlan(v View) todayPlanVM {
	vm := todayPlanVM{ID: RegionTodayPlan.DOMID(), Visible: v.HasTodayPlan}
	if v.HasTodayPlan {
		vm.HTML = MarkdownHTML(orDefault(v.TodayPlan, "No data"))
	}
	return vm
}

type navTabVM struct {
	Tab    string
	Label  string
	Icon   string
	Active bool
}

type navVM struct {
	ID   string
	Tabs []navTabVM
}

func buildNav(v View) navVM {
	active := v.Tab
	if active == "" {
		active = TabDashboard
	}
	vm := navVM{ID: RegionNav.DOMID()}
	for _, t := range Tabs {
		vm.Tabs = append(vm.Tabs, navTabVM{Tab: string(t.Tab), Label: t.Label, Icon: t.Icon, Active: t.Tab == active})
	}
	return vm
}

type toastVM struct {
	ID      string
	Text    string
	Visible bool
}

func buildToast(v View) toastVM {
	return toastVM{ID: RegionToast.DOMID(), Text: v.Toast, Visible: v.ToastVisible && v.Toast != ""}
}

var builders = map[Region]func(View) any{
	RegionHeader:       func(v View) any { return buildHeader(v) },
	RegionStats:        func(v View) any { return buildStats(v) },
	RegionTodo:         func(v View) any { return buildTodo(v) },
	RegionDone:         func(v View) any { return buildDone(v) },
	RegionAchievements: func(v View) any { return buildAchievements(v) },
	RegionTasks:        func(v View) any { return buildTasks(v) },
	RegionHabits:       func(v View) any { return buildHabits(v) },
	RegionPermissions:  func(v View) any { return buildPermissions(v) },
	RegionMentorForm:   func(v View) any { return buildMentorForm(v) },
	RegionLearning:     func(v View) any { return buildLearning(v) },
	RegionSuggestions:  func(v View) any { return buildSuggestions(v) },
	RegionPlaylists:    func(v View) any { return buildPlaylists(v) },
	RegionTracks:       func(v View) any { return buildTracks(v) },
	RegionChat:         func(v View) any { return buildChat(v) },
	RegionTodayPlan:    func(v View) any { return buildTodayPlan(v) },
	RegionNav:          func(v View) any { return buildNav(v) },
	RegionToast:        func(v View) any { return buildToast(v) },
}
