package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"mentor-miniapp/internal/api"
	"mentor-miniapp/internal/model"
	"mentor-miniapp/internal/render"
)

func startSession(t *testing.T, be *fakeBackend, mutate func(*Options)) (*Session, *staticIdentity) {
	t.Helper()
	ids := &staticIdentity{id: model.Identity{ID: 7, FirstName: "Ann"}}
	opts := Options{
		Backend:    be,
		Identity:   ids,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		ResetDelay: 10 * time.Millisecond,
	}
	if mutate != nil {
		mutate(&opts)
	}
	s, err := NewSession(opts)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	t.Cleanup(s.Close)
	if err := s.Start(context.Background(), nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return s, ids
}

func dispatch(t *testing.T, s *Session, surface Surface, event EventKind, kv ...string) error {
	t.Helper()
	return s.Dispatch(context.Background(), NewIntent(surface, event, kv...))
}

func contains(html, sub string) bool { return strings.Contains(html, sub) }

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

func toast(s *Session) string {
	msg, _ := s.Toaster().Current()
	return msg
}

func TestDefaultTableBindsEverySurface(t *testing.T) {
	table := DefaultTable()
	rows := table.Bindings()
	if len(rows) != 20 {
		t.Fatalf("expected 20 bindings, got %d", len(rows))
	}
	seen := map[Surface]bool{}
	for _, b := range rows {
		if b.Handler == nil {
			t.Fatalf("binding %s/%s has no handler", b.Surface, b.Event)
		}
		seen[b.Surface] = true
	}
	for _, s := range []Surface{
		SurfaceRefresh, SurfaceTodayPlan, SurfaceTaskForm, SurfaceQuickTaskForm, SurfaceTasksList,
		SurfaceHabitForm, SurfaceHabitsList, SurfaceMentorForm, SurfaceChatForm, SurfaceLearningForm,
		SurfaceSuggestForm, SurfaceLearningList, SurfacePlaylistForm, SurfacePlaylistList,
		SurfaceTrackForm, SurfaceAIPerms, SurfaceCleanupHistory, SurfaceDeleteProfile, SurfaceNav,
	} {
		if !seen[s] {
			t.Fatalf("surface %s has no binding", s)
		}
	}
	if _, ok := table.Lookup(SurfacePlaylistList, EventDelete); !ok {
		t.Fatalf("expected playlist delete binding")
	}
	if _, ok := table.Lookup(SurfaceTasksList, EventDelete); ok {
		t.Fatalf("unexpected tasks-list delete binding")
	}
}

func TestStartSeedsGreetingAndLoads(t *testing.T) {
	be := newFakeBackend()
	s, _ := startSession(t, be, nil)

	snap := s.Store().Snapshot()
	if !snap.Loaded || snap.User == nil || snap.User.DisplayName != "Ann" {
		t.Fatalf("unexpected snapshot after start: %+v", snap)
	}
	want := []render.ChatLine{{Role: render.ChatBot, Text: Greeting}}
	if diff := cmp.Diff(want, s.Transcript()); diff != "" {
		t.Fatalf("transcript mismatch (-want +got):\n%s", diff)
	}
	if s.Identity().ID != 7 {
		t.Fatalf("expected identity 7, got %d", s.Identity().ID)
	}
}

func TestQuickTaskReloadsAndToastsXP(t *testing.T) {
	be := newFakeBackend()
	s, _ := startSession(t, be, nil)
	before := be.bootstrapCount()

	if err := dispatch(t, s, SurfaceQuickTaskForm, EventSubmit, "title", "  Write report "); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if got := toast(s); got != "+15 XP" {
		t.Fatalf("expected +15 XP toast, got %q", got)
	}
	if be.bootstrapCount() != before+1 {
		t.Fatalf("expected exactly one reload, got %d", be.bootstrapCount()-before)
	}
	snap := s.Store().Snapshot()
	if len(snap.Tasks) != 1 || snap.Tasks[0].Title != "Write report" {
		t.Fatalf("expected the new task after reload, got %+v", snap.Tasks)
	}
	html, err := render.Must().Render(render.RegionTodo, s.View())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !contains(html, "Write report") {
		t.Fatalf("todo region does not show the new task:\n%s", html)
	}
}

func TestFailedMutationSkipsReload(t *testing.T) {
	be := newFakeBackend()
	s, _ := startSession(t, be, nil)
	before := be.bootstrapCount()

	be.failNext = &api.RequestError{Status: 422, Message: "Title too long"}
	err := dispatch(t, s, SurfaceTaskForm, EventSubmit, "title", "x")
	var re *api.RequestError
	if !errors.As(err, &re) {
		t.Fatalf("expected RequestError, got %v", err)
	}
	if got := toast(s); got != "Title too long" {
		t.Fatalf("expected server message toast, got %q", got)
	}
	if be.bootstrapCount() != before {
		t.Fatalf("failed mutation must not reload")
	}
}

func TestValidationStopsBeforeBackend(t *testing.T) {
	be := newFakeBackend()
	s, _ := startSession(t, be, nil)

	cases := []struct {
		surface Surface
		event   EventKind
		kv      []string
		toast   string
	}{
		{SurfaceTaskForm, EventSubmit, []string{"title", "   "}, "Title is required"},
		{SurfaceQuickTaskForm, EventSubmit, nil, "Title is required"},
		{SurfaceHabitForm, EventSubmit, nil, "Name is required"},
		{SurfacePlaylistForm, EventSubmit, nil, "Name is required"},
		{SurfaceLearningForm, EventSubmit, nil, "Title is required"},
		{SurfaceTasksList, EventClick, []string{"id", "abc"}, "Invalid id: abc"},
		{SurfaceAIPerms, EventChange, []string{"key", "launch_rockets", "value", "true"}, "Unknown permission: launch_rockets"},
		{SurfaceCleanupHistory, EventClick, []string{"period", "decade"}, "Unknown period: decade"},
	}
	for _, tc := range cases {
		t.Run(string(tc.surface), func(t *testing.T) {
			before := be.bootstrapCount()
			err := dispatch(t, s, tc.surface, tc.event, tc.kv...)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if got := toast(s); got != tc.toast {
				t.Fatalf("toast = %q, want %q", got, tc.toast)
			}
			if be.bootstrapCount() != before {
				t.Fatalf("validation failure must not reload")
			}
		})
	}
	if be.lastTask.Title != "" || be.lastHabit.Name != "" {
		t.Fatalf("backend was called: %+v %+v", be.lastTask, be.lastHabit)
	}
}

func TestCreateTaskOptionalFields(t *testing.T) {
	be := newFakeBackend()
	s, _ := startSession(t, be, nil)

	err := dispatch(t, s, SurfaceTaskForm, EventSubmit,
		"title", "Gym", "recurrence_type", "weekly", "remind_time", "07:30", "deadline", "")
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	got := be.lastTask
	if got.Priority != DefaultPriority {
		t.Fatalf("expected default priority, got %q", got.Priority)
	}
	if !got.IsRecurring || model.Deref(got.RecurrenceType) != "weekly" {
		t.Fatalf("recurrence not carried: %+v", got)
	}
	if !got.RemindEnabled || model.Deref(got.RemindTime) != "07:30" {
		t.Fatalf("reminder not carried: %+v", got)
	}
	if got.Deadline != nil {
		t.Fatalf("blank deadline must be null, got %q", *got.Deadline)
	}
	if toast(s) != "Task created" {
		t.Fatalf("unexpected toast %q", toast(s))
	}
}

func TestServerErrorFieldWinsOverSuccessToast(t *testing.T) {
	be := newFakeBackend()
	s, _ := startSession(t, be, nil)

	if err := dispatch(t, s, SurfaceTasksList, EventClick, "id", "999"); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if got := toast(s); got != "Task not found" {
		t.Fatalf("expected server error toast, got %q", got)
	}
}

func TestHabitCheckIncrementsStreak(t *testing.T) {
	be := newFakeBackend()
	be.habits = []model.Habit{{ID: 5, Name: "Read", Emoji: "📚", CurrentStreak: 2}}
	s, _ := startSession(t, be, nil)

	if err := dispatch(t, s, SurfaceHabitsList, EventClick, "id", "5"); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if toast(s) != "Checked" {
		t.Fatalf("unexpected toast %q", toast(s))
	}
	if got := s.Store().Snapshot().Habits[0].CurrentStreak; got != 3 {
		t.Fatalf("expected streak 3 after reload, got %d", got)
	}
}

func TestChatTranscript(t *testing.T) {
	be := newFakeBackend()
	s, _ := startSession(t, be, nil)

	if err := dispatch(t, s, SurfaceChatForm, EventSubmit, "message", "   "); err != nil {
		t.Fatalf("empty chat: %v", err)
	}
	if len(s.Transcript()) != 1 {
		t.Fatalf("empty message must not be appended")
	}

	be.chatReply = "Do **one** thing."
	if err := dispatch(t, s, SurfaceChatForm, EventSubmit, "message", "help"); err != nil {
		t.Fatalf("chat: %v", err)
	}
	be.chatReply = " "
	if err := dispatch(t, s, SurfaceChatForm, EventSubmit, "message", "again"); err != nil {
		t.Fatalf("chat: %v", err)
	}
	want := []render.ChatLine{
		{Role: render.ChatBot, Text: Greeting},
		{Role: render.ChatUser, Text: "help"},
		{Role: render.ChatBot, Text: "Do **one** thing."},
		{Role: render.ChatUser, Text: "again"},
		{Role: render.ChatBot, Text: "(empty)"},
	}
	if diff := cmp.Diff(want, s.Transcript()); diff != "" {
		t.Fatalf("transcript mismatch (-want +got):\n%s", diff)
	}
}

func TestChatFailureKeepsUserLine(t *testing.T) {
	be := newFakeBackend()
	s, _ := startSession(t, be, nil)

	be.failNext = &api.RequestError{Status: 503}
	if err := dispatch(t, s, SurfaceChatForm, EventSubmit, "message", "hi"); err == nil {
		t.Fatalf("expected error")
	}
	lines := s.Transcript()
	if len(lines) != 2 || lines[1].Role != render.ChatUser {
		t.Fatalf("expected the user line to stay, got %+v", lines)
	}
	if toast(s) != "request failed" {
		t.Fatalf("expected generic toast, got %q", toast(s))
	}
}

func TestTodayPlanAndSuggestionsLandInView(t *testing.T) {
	be := newFakeBackend()
	be.plan = "1. Gym\n2. Read"
	s, _ := startSession(t, be, nil)

	if err := dispatch(t, s, SurfaceTodayPlan, EventClick); err != nil {
		t.Fatalf("plan: %v", err)
	}
	if err := dispatch(t, s, SurfaceSuggestForm, EventSubmit, "topic", ""); err != nil {
		t.Fatalf("empty suggest: %v", err)
	}
	if v := s.View(); v.HasSuggestions {
		t.Fatalf("empty topic must not query")
	}
	if err := dispatch(t, s, SurfaceSuggestForm, EventSubmit, "topic", "go"); err != nil {
		t.Fatalf("suggest: %v", err)
	}
	v := s.View()
	if !v.HasTodayPlan || v.TodayPlan != be.plan {
		t.Fatalf("plan not stored: %+v", v)
	}
	if !v.HasSuggestions || len(v.Suggestions) != 1 || v.Suggestions[0].Title != "Intro to go" {
		t.Fatalf("suggestions not stored: %+v", v.Suggestions)
	}
	if toast(s) != "Plan ready" {
		t.Fatalf("unexpected toast %q", toast(s))
	}
}

func TestTrackFormRequiresSelection(t *testing.T) {
	be := newFakeBackend()
	s, _ := startSession(t, be, nil)
	before := be.bootstrapCount()

	if err := dispatch(t, s, SurfaceTrackForm, EventSubmit, "title", "Song"); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if toast(s) != "Select a playlist first" {
		t.Fatalf("unexpected toast %q", toast(s))
	}
	if be.bootstrapCount() != before || len(be.tracks) != 0 {
		t.Fatalf("no backend call expected")
	}
}

func TestPlaylistFlow(t *testing.T) {
	be := newFakeBackend()
	s, _ := startSession(t, be, nil)
	ctx := context.Background()

	if err := dispatch(t, s, SurfacePlaylistForm, EventSubmit, "name", "Focus"); err != nil {
		t.Fatalf("create playlist: %v", err)
	}
	snap := s.Store().Snapshot()
	if len(snap.Playlists) != 1 || snap.Playlists[0].Emoji != DefaultPlaylistEmoji {
		t.Fatalf("unexpected playlists %+v", snap.Playlists)
	}
	pid := snap.Playlists[0].ID

	if err := s.Dispatch(ctx, NewIntent(SurfacePlaylistList, EventClick, "id", itoa(pid))); err != nil {
		t.Fatalf("select: %v", err)
	}
	snap = s.Store().Snapshot()
	if snap.SelectedPlaylistID != pid || snap.SelectedTracks == nil || len(snap.SelectedTracks) != 0 {
		t.Fatalf("expected empty selection, got %+v", snap)
	}
	html, err := render.Must().Render(render.RegionTracks, s.View())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !contains(html, "This playlist has no tracks yet") {
		t.Fatalf("expected empty-playlist placeholder:\n%s", html)
	}

	if err := dispatch(t, s, SurfaceTrackForm, EventSubmit, "title", "Song", "performer", "Band"); err != nil {
		t.Fatalf("add track: %v", err)
	}
	snap = s.Store().Snapshot()
	if len(snap.SelectedTracks) != 1 || model.Deref(snap.SelectedTracks[0].Title) != "Song" {
		t.Fatalf("selection not refreshed: %+v", snap.SelectedTracks)
	}

	if err := s.Dispatch(ctx, NewIntent(SurfacePlaylistList, EventDelete, "id", itoa(pid))); err != nil {
		t.Fatalf("delete: %v", err)
	}
	snap = s.Store().Snapshot()
	if len(snap.Playlists) != 0 || snap.HasSelection() || snap.SelectedTracks != nil {
		t.Fatalf("deleted playlist must clear selection: %+v", snap)
	}
	if toast(s) != "Playlist deleted" {
		t.Fatalf("unexpected toast %q", toast(s))
	}
}

func TestPermissionToggleSendsExactPatch(t *testing.T) {
	be := newFakeBackend()
	s, _ := startSession(t, be, nil)

	if err := dispatch(t, s, SurfaceAIPerms, EventChange, "key", "create_tasks", "value", "true"); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	want := api.SettingsPatch{
		TelegramID: 7,
		Patch:      map[string]any{"ai_permissions": map[string]bool{"create_tasks": true}},
	}
	if diff := cmp.Diff(want, be.lastPatch); diff != "" {
		t.Fatalf("patch mismatch (-want +got):\n%s", diff)
	}
	snap := s.Store().Snapshot()
	if !snap.User.Settings.Permission("create_tasks") || snap.User.Settings.Permission("read_tasks") {
		t.Fatalf("unexpected permissions %+v", snap.User.Settings.AIPermissions)
	}
	if toast(s) != "Permissions updated" {
		t.Fatalf("unexpected toast %q", toast(s))
	}
}

func TestParseToggle(t *testing.T) {
	cases := map[string]bool{"on": true, "YES": true, "1": true, "true": true, "": false, "off": false, "0": false, "false": false}
	for in, want := range cases {
		got, err := parseToggle(in)
		if err != nil || got != want {
			t.Fatalf("parseToggle(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := parseToggle("maybe"); err == nil {
		t.Fatalf("expected error for maybe")
	}
}

func TestCleanupHistoryDefaultsToWeek(t *testing.T) {
	be := newFakeBackend()
	s, _ := startSession(t, be, nil)

	if err := dispatch(t, s, SurfaceCleanupHistory, EventClick); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if be.lastPeriod != "week" {
		t.Fatalf("expected week, got %q", be.lastPeriod)
	}
	if toast(s) != "History cleared (week)" {
		t.Fatalf("unexpected toast %q", toast(s))
	}
	if err := dispatch(t, s, SurfaceCleanupHistory, EventClick, "period", "ALL"); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if be.lastPeriod != "all" {
		t.Fatalf("expected all, got %q", be.lastPeriod)
	}
}

func TestMentorFormDefaultsPersona(t *testing.T) {
	be := newFakeBackend()
	s, _ := startSession(t, be, nil)

	if err := dispatch(t, s, SurfaceMentorForm, EventSubmit, "mentor_name", "Coach"); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	u := s.Store().Snapshot().User
	if u.Settings.MentorName != "Coach" || u.Settings.MentorPersona != DefaultPersona {
		t.Fatalf("unexpected settings %+v", u.Settings)
	}
}

func TestDeleteProfileRequiresConfirmation(t *testing.T) {
	be := newFakeBackend()
	be.tasks = []model.Task{{ID: 1, Title: "Old", Status: model.TaskStatusOpen}}
	s, ids := startSession(t, be, nil)

	if err := dispatch(t, s, SurfaceDeleteProfile, EventClick); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if be.deleted {
		t.Fatalf("profile deleted without confirmation")
	}

	if err := s.Navigator().Show("settings"); err != nil {
		t.Fatalf("show: %v", err)
	}
	if err := dispatch(t, s, SurfaceDeleteProfile, EventClick, "confirmed", "1"); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !be.deleted {
		t.Fatalf("profile not deleted")
	}
	if toast(s) != "Profile deleted" {
		t.Fatalf("unexpected toast %q", toast(s))
	}

	deadline := time.Now().Add(2 * time.Second)
	for ids.resolveCount() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("session was not restarted")
		}
		time.Sleep(5 * time.Millisecond)
	}
	// Start finishes its reload before broadcasting; wait for it.
	for !s.Store().Snapshot().Loaded {
		if time.Now().After(deadline) {
			t.Fatalf("session did not reload after restart")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if s.Navigator().Active() != render.TabDashboard {
		t.Fatalf("navigator not reset")
	}
	if len(s.Store().Snapshot().Tasks) != 0 {
		t.Fatalf("expected empty tasks after restart")
	}
	if lines := s.Transcript(); len(lines) != 1 || lines[0].Text != Greeting {
		t.Fatalf("transcript not reset: %+v", lines)
	}
}

type refusingConfirmer struct{ prompts []string }

func (r *refusingConfirmer) Confirm(_ context.Context, prompt string, _ Intent) (bool, error) {
	r.prompts = append(r.prompts, prompt)
	return false, nil
}

func TestDeleteProfileUsesConfirmer(t *testing.T) {
	be := newFakeBackend()
	c := &refusingConfirmer{}
	s, _ := startSession(t, be, func(o *Options) { o.Confirmer = c })

	if err := dispatch(t, s, SurfaceDeleteProfile, EventClick, "confirmed", "1"); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if be.deleted {
		t.Fatalf("confirmer refused, profile must stay")
	}
	if len(c.prompts) != 1 || c.prompts[0] != deleteProfilePrompt {
		t.Fatalf("unexpected prompts %q", c.prompts)
	}
}

func TestNavSwitchesTab(t *testing.T) {
	be := newFakeBackend()
	s, _ := startSession(t, be, nil)
	before := be.bootstrapCount()

	if err := dispatch(t, s, SurfaceNav, EventClick, "tab", "Music"); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if s.View().Tab != render.TabMusic {
		t.Fatalf("expected music tab, got %q", s.View().Tab)
	}
	if err := dispatch(t, s, SurfaceNav, EventClick, "tab", "nowhere"); err == nil {
		t.Fatalf("expected error for unknown tab")
	}
	if s.Navigator().Active() != render.TabMusic {
		t.Fatalf("unknown tab must keep the active view")
	}
	if be.bootstrapCount() != before {
		t.Fatalf("navigation must not reach the backend")
	}
}

func TestDispatchErrors(t *testing.T) {
	be := newFakeBackend()
	s, err := NewSession(Options{Backend: be, Identity: &staticIdentity{id: model.Identity{ID: 7}}, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer s.Close()

	if err := s.Dispatch(context.Background(), NewIntent(SurfaceRefresh, EventClick)); err == nil {
		t.Fatalf("expected error before start")
	}
	if err := s.Dispatch(context.Background(), NewIntent(SurfaceNav, EventDelete)); err == nil {
		t.Fatalf("expected error for unbound intent")
	}
	if _, err := NewSession(Options{Identity: &staticIdentity{}}); err == nil {
		t.Fatalf("expected error without backend")
	}
}

func TestReloadFailureKeepsSnapshot(t *testing.T) {
	be := newFakeBackend()
	be.tasks = []model.Task{{ID: 1, Title: "Keep", Status: model.TaskStatusOpen}}
	s, _ := startSession(t, be, nil)

	be.failNext = errors.New("connection refused")
	if err := dispatch(t, s, SurfaceRefresh, EventClick); err == nil {
		t.Fatalf("expected error")
	}
	if got := s.Store().Snapshot().Tasks; len(got) != 1 || got[0].Title != "Keep" {
		t.Fatalf("snapshot lost on failed reload: %+v", got)
	}
	if toast(s) != "connection refused" {
		t.Fatalf("unexpected toast %q", toast(s))
	}
}

func TestToasterIgnoresStaleExpiry(t *testing.T) {
	fired := 0
	tt := NewToaster(time.Hour, func() { fired++ })
	defer tt.Clear()

	tt.Show("first")
	tt.mu.Lock()
	first := tt.seq
	tt.mu.Unlock()
	tt.Show("second")

	tt.expire(first)
	if msg, visible := tt.Current(); !visible || msg != "second" {
		t.Fatalf("stale timer hid the newer toast: %q %v", msg, visible)
	}
	if fired != 0 {
		t.Fatalf("stale expiry must not notify")
	}

	tt.mu.Lock()
	current := tt.seq
	tt.mu.Unlock()
	tt.expire(current)
	if _, visible := tt.Current(); visible {
		t.Fatalf("expected toast hidden")
	}
	if fired != 1 {
		t.Fatalf("expected one notification, got %d", fired)
	}
}

func TestToasterTimerHides(t *testing.T) {
	done := make(chan struct{})
	tt := NewToaster(5*time.Millisecond, func() { close(done) })
	tt.Show("hi")
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("toast never expired")
	}
	if _, visible := tt.Current(); visible {
		t.Fatalf("expected hidden toast")
	}
}

func TestHubBroadcastCoalesces(t *testing.T) {
	h := NewHub()
	ch, cancel := h.Subscribe()
	for i := 0; i < 20; i++ {
		h.Broadcast()
	}
	n := 0
	for {
		select {
		case <-ch:
			n++
			continue
		default:
		}
		break
	}
	if n == 0 || n > 8 {
		t.Fatalf("expected between 1 and 8 wakeups, got %d", n)
	}
	cancel()
	cancel()
	h.Broadcast()
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel after cancel")
	}
}

func TestIntentHelpers(t *testing.T) {
	in := NewIntent(SurfaceTaskForm, EventSubmit, "title", "  a ", "deadline", " ", "dangling")
	if in.Get("title") != "a" {
		t.Fatalf("Get should trim")
	}
	if in.Optional("deadline") != nil {
		t.Fatalf("blank optional must be nil")
	}
	if in.Values.Has("dangling") {
		t.Fatalf("odd key must be ignored")
	}
	if _, err := in.ID("id"); err == nil {
		t.Fatalf("missing id must fail")
	}
	if _, err := NewIntent(SurfaceTasksList, EventClick, "id", "-3").ID("id"); err == nil {
		t.Fatalf("negative id must fail")
	}
	if UserMessage(errors.New("  ")) != "Something went wrong" {
		t.Fatalf("blank error text must use the fallback")
	}
}
