package engine

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"mentor-miniapp/internal/api"
	"mentor-miniapp/internal/render"
)

const (
	DefaultPriority      = "medium"
	DefaultDifficulty    = "medium"
	DefaultHabitEmoji    = "✅"
	DefaultHabitRemind   = "21:00"
	DefaultResourceType  = "article"
	DefaultPlaylistEmoji = "🎵"
	DefaultPersona       = "goggins"
	DefaultCleanupPeriod = "week"

	deleteProfilePrompt = "Delete the profile completely? This cannot be undone."
)

// CleanupPeriods are the history windows the backend accepts.
var CleanupPeriods = []string{"day", "week", "month", "year", "all"}

// DefaultTable is the full intent binding table.
func DefaultTable() *Table {
	return NewTable(
		Binding{SurfaceRefresh, EventClick, handleRefresh, "reload everything"},
		Binding{SurfaceTodayPlan, EventClick, handleTodayPlan, "fetch today's plan"},
		Binding{SurfaceTaskForm, EventSubmit, handleCreateTask, "create a task (title, priority, deadline, recurrence_type, recurrence_date, remind_time, remind_text)"},
		Binding{SurfaceQuickTaskForm, EventSubmit, handleQuickTask, "create a quick task (title, difficulty)"},
		Binding{SurfaceTasksList, EventClick, handleCompleteTask, "complete a task (id)"},
		Binding{SurfaceHabitForm, EventSubmit, handleCreateHabit, "create a habit (name, emoji, remind_time, remind_text)"},
		Binding{SurfaceHabitsList, EventClick, handleCheckHabit, "check a habit for today (id)"},
		Binding{SurfaceMentorForm, EventSubmit, handleMentorForm, "update mentor (mentor_name, mentor_persona)"},
		Binding{SurfaceChatForm, EventSubmit, handleChat, "send a chat message (message)"},
		Binding{SurfaceLearningForm, EventSubmit, handleCreateResource, "add a learning resource (title, resource_type, topic, url)"},
		Binding{SurfaceSuggestForm, EventSubmit, handleSuggest, "suggest resources (topic)"},
		Binding{SurfaceLearningList, EventClick, handleCompleteResource, "mark a resource done (id)"},
		Binding{SurfacePlaylistForm, EventSubmit, handleCreatePlaylist, "create a playlist (name, emoji)"},
		Binding{SurfacePlaylistList, EventClick, handleSelectPlaylist, "open a playlist (id)"},
		Binding{SurfacePlaylistList, EventDelete, handleDeletePlaylist, "delete a playlist (id)"},
		Binding{SurfaceTrackForm, EventSubmit, handleAddTrack, "add a track to the open playlist (title, performer, url)"},
		Binding{SurfaceAIPerms, EventChange, handleTogglePermission, "set an AI permission (key, value)"},
		Binding{SurfaceCleanupHistory, EventClick, handleCleanupHistory, "clear history (period)"},
		Binding{SurfaceDeleteProfile, EventClick, handleDeleteProfile, "delete the profile"},
		Binding{SurfaceNav, EventClick, handleNav, "switch view (tab)"},
	)
}

// orServerError prefers the error the backend put into a 200 body.
func orServerError(ack api.Ack, success string) string {
	if msg := strings.TrimSpace(ack.Error); msg != "" {
		return msg
	}
	return success
}

func handleRefresh(ctx context.Context, s *Session, in Intent) (Outcome, error) {
	return Outcome{Reload: true, Toast: "Refreshed"}, nil
}

func handleTodayPlan(ctx context.Context, s *Session, in Intent) (Outcome, error) {
	reply, err := s.backend.TodayPlan(ctx, s.Identity().ID)
	if err != nil {
		return Outcome{}, fmt.Errorf("today plan: %w", err)
	}
	s.setTodayPlan(reply)
	return Outcome{Toast: "Plan ready"}, nil
}

func handleCreateTask(ctx context.Context, s *Session, in Intent) (Outcome, error) {
	title := in.Get("title")
	if title == "" {
		return Outcome{}, required("title", "Title")
	}
	priority := in.Get("priority")
	if priority == "" {
		priority = DefaultPriority
	}
	recurrence := in.Optional("recurrence_type")
	remindTime := in.Optional("remind_time")
	ack, err := s.backend.CreateTask(ctx, api.NewTask{
		TelegramID:     s.Identity().ID,
		Title:          title,
		Priority:       priority,
		Deadline:       in.Optional("deadline"),
		IsRecurring:    recurrence != nil,
		RecurrenceType: recurrence,
		RecurrenceDate: in.Optional("recurrence_date"),
		RemindEnabled:  remindTime != nil,
		RemindTime:     remindTime,
		RemindText:     in.Optional("remind_text"),
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("create task: %w", err)
	}
	return Outcome{Reload: true, Toast: orServerError(ack, "Task created")}, nil
}

func handleQuickTask(ctx context.Context, s *Session, in Intent) (Outcome, error) {
	title := in.Get("title")
	if title == "" {
		return Outcome{}, required("title", "Title")
	}
	difficulty := in.Get("difficulty")
	if difficulty == "" {
		difficulty = DefaultDifficulty
	}
	res, err := s.backend.CreateQuickTask(ctx, api.QuickTask{
		TelegramID: s.Identity().ID,
		Title:      title,
		Difficulty: difficulty,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("quick task: %w", err)
	}
	return Outcome{Reload: true, Toast: orServerError(res.Ack, fmt.Sprintf("+%d XP", res.XPEarned))}, nil
}

func handleCompleteTask(ctx context.Context, s *Session, in Intent) (Outcome, error) {
	id, err := in.ID("id")
	if err != nil {
		return Outcome{}, err
	}
	res, err := s.backend.CompleteTask(ctx, s.Identity().ID, id)
	if err != nil {
		return Outcome{}, fmt.Errorf("complete task: %w", err)
	}
	return Outcome{Reload: true, Toast: orServerError(res.Ack, "Task closed")}, nil
}

func handleCreateHabit(ctx context.Context, s *Session, in Intent) (Outcome, error) {
	name := in.Get("name")
	if name == "" {
		return Outcome{}, required("name", "Name")
	}
	emoji := in.Get("emoji")
	if emoji == "" {
		emoji = DefaultHabitEmoji
	}
	remind := in.Get("remind_time")
	if remind == "" {
		remind = DefaultHabitRemind
	}
	ack, err := s.backend.CreateHabit(ctx, api.NewHabit{
		TelegramID:    s.Identity().ID,
		Name:          name,
		Emoji:         emoji,
		RemindTime:    remind,
		RemindEnabled: true,
		RemindText:    in.Optional("remind_text"),
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("create habit: %w", err)
	}
	return Outcome{Reload: true, Toast: orServerError(ack, "Habit created")}, nil
}

func handleCheckHabit(ctx context.Context, s *Session, in Intent) (Outcome, error) {
	id, err := in.ID("id")
	if err != nil {
		return Outcome{}, err
	}
	res, err := s.backend.CheckHabit(ctx, s.Identity().ID, id)
	if err != nil {
		return Outcome{}, fmt.Errorf("check habit: %w", err)
	}
	msg := "Checked"
	if res.AlreadyLogged {
		msg = "Already checked today"
	}
	return Outcome{Reload: true, Toast: orServerError(res.Ack, msg)}, nil
}

func handleMentorForm(ctx context.Context, s *Session, in Intent) (Outcome, error) {
	persona := in.Get("mentor_persona")
	if persona == "" {
		persona = DefaultPersona
	}
	ack, err := s.backend.UpdateProfile(ctx, api.ProfileUpdate{
		TelegramID:    s.Identity().ID,
		MentorName:    in.Get("mentor_name"),
		MentorPersona: persona,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("update mentor: %w", err)
	}
	return Outcome{Reload: true, Toast: orServerError(ack, "Mentor updated")}, nil
}

func handleChat(ctx context.Context, s *Session, in Intent) (Outcome, error) {
	text := in.Get("message")
	if text == "" {
		return Outcome{}, nil
	}
	s.appendChat(render.ChatUser, text)
	reply, err := s.backend.Chat(ctx, s.Identity().ID, text)
	if err != nil {
		return Outcome{}, fmt.Errorf("chat: %w", err)
	}
	if strings.TrimSpace(reply) == "" {
		reply = "(empty)"
	}
	s.appendChat(render.ChatBot, reply)
	return Outcome{}, nil
}

func handleCreateResource(ctx context.Context, s *Session, in Intent) (Outcome, error) {
	title := in.Get("title")
	if title == "" {
		return Outcome{}, required("title", "Title")
	}
	kind := in.Get("resource_type")
	if kind == "" {
		kind = DefaultResourceType
	}
	ack, err := s.backend.CreateResource(ctx, api.NewResource{
		TelegramID:   s.Identity().ID,
		ResourceType: kind,
		Title:        title,
		Topic:        in.Optional("topic"),
		URL:          in.Optional("url"),
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("add resource: %w", err)
	}
	return Outcome{Reload: true, Toast: orServerError(ack, "Resource added")}, nil
}

func handleSuggest(ctx context.Context, s *Session, in Intent) (Outcome, error) {
	topic := in.Get("topic")
	if topic == "" {
		return Outcome{}, nil
	}
	items, err := s.backend.Suggest(ctx, topic)
	if err != nil {
		return Outcome{}, fmt.Errorf("suggest: %w", err)
	}
	s.setSuggestions(items)
	return Outcome{}, nil
}

func handleCompleteResource(ctx context.Context, s *Session, in Intent) (Outcome, error) {
	id, err := in.ID("id")
	if err != nil {
		return Outcome{}, err
	}
	ack, err := s.backend.CompleteResource(ctx, s.Identity().ID, id)
	if err != nil {
		return Outcome{}, fmt.Errorf("complete resource: %w", err)
	}
	return Outcome{Reload: true, Toast: orServerError(ack, "Marked as done")}, nil
}

func handleCreatePlaylist(ctx context.Context, s *Session, in Intent) (Outcome, error) {
	name := in.Get("name")
	if name == "" {
		return Outcome{}, required("name", "Name")
	}
	emoji := in.Get("emoji")
	if emoji == "" {
		emoji = DefaultPlaylistEmoji
	}
	ack, err := s.backend.CreatePlaylist(ctx, api.NewPlaylist{
		TelegramID: s.Identity().ID,
		Name:       name,
		Emoji:      emoji,
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("create playlist: %w", err)
	}
	return Outcome{Reload: true, Toast: orServerError(ack, "Playlist created")}, nil
}

func handleSelectPlaylist(ctx context.Context, s *Session, in Intent) (Outcome, error) {
	id, err := in.ID("id")
	if err != nil {
		return Outcome{}, err
	}
	if err := s.store.SelectPlaylist(ctx, s.Identity(), id); err != nil {
		return Outcome{}, fmt.Errorf("open playlist: %w", err)
	}
	return Outcome{}, nil
}

func handleDeletePlaylist(ctx context.Context, s *Session, in Intent) (Outcome, error) {
	id, err := in.ID("id")
	if err != nil {
		return Outcome{}, err
	}
	ack, err := s.backend.DeletePlaylist(ctx, s.Identity().ID, id)
	if err != nil {
		return Outcome{}, fmt.Errorf("delete playlist: %w", err)
	}
	return Outcome{Reload: true, Toast: orServerError(ack, "Playlist deleted")}, nil
}

func handleAddTrack(ctx context.Context, s *Session, in Intent) (Outcome, error) {
	snap := s.store.Snapshot()
	if !snap.HasSelection() {
		return Outcome{Toast: "Select a playlist first"}, nil
	}
	title := in.Get("title")
	if title == "" {
		return Outcome{}, required("title", "Title")
	}
	ack, err := s.backend.AddTrack(ctx, snap.SelectedPlaylistID, api.NewTrack{
		TelegramID: s.Identity().ID,
		Title:      title,
		Performer:  in.Optional("performer"),
		URL:        in.Optional("url"),
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("add track: %w", err)
	}
	return Outcome{RefreshSelection: true, Reload: true, Toast: orServerError(ack, "Track added")}, nil
}

func handleTogglePermission(ctx context.Context, s *Session, in Intent) (Outcome, error) {
	key := in.Get("key")
	if !render.IsPermissionKey(key) {
		return Outcome{}, &ValidationError{Field: "key", Message: "Unknown permission: " + key}
	}
	value, err := parseToggle(in.Get("value"))
	if err != nil {
		return Outcome{}, err
	}
	res, err := s.backend.PatchSettings(ctx, api.PermissionPatch(s.Identity().ID, key, value))
	if err != nil {
		return Outcome{}, fmt.Errorf("update permissions: %w", err)
	}
	return Outcome{Reload: true, Toast: orServerError(res.Ack, "Permissions updated")}, nil
}

func parseToggle(raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "on", "yes":
		return true, nil
	case "", "off", "no":
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, &ValidationError{Field: "value", Message: "Invalid toggle value: " + raw}
	}
	return v, nil
}

func handleCleanupHistory(ctx context.Context, s *Session, in Intent) (Outcome, error) {
	period := strings.ToLower(in.Get("period"))
	if period == "" {
		period = DefaultCleanupPeriod
	}
	if !slices.Contains(CleanupPeriods, period) {
		return Outcome{}, &ValidationError{Field: "period", Message: "Unknown period: " + period}
	}
	res, err := s.backend.CleanupHistory(ctx, s.Identity().ID, period)
	if err != nil {
		return Outcome{}, fmt.Errorf("clear history: %w", err)
	}
	return Outcome{Reload: true, Toast: orServerError(res.Ack, fmt.Sprintf("History cleared (%s)", period))}, nil
}

func handleDeleteProfile(ctx context.Context, s *Session, in Intent) (Outcome, error) {
	ok, err := s.confirmer.Confirm(ctx, deleteProfilePrompt, in)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		return Outcome{}, nil
	}
	res, err := s.backend.DeleteProfile(ctx, s.Identity().ID)
	if err != nil {
		return Outcome{}, fmt.Errorf("delete profile: %w", err)
	}
	if msg := strings.TrimSpace(res.Error); msg != "" {
		return Outcome{Toast: msg}, nil
	}
	return Outcome{Reset: true, Toast: "Profile deleted"}, nil
}

func handleNav(ctx context.Context, s *Session, in Intent) (Outcome, error) {
	if err := s.nav.Show(in.Get("tab")); err != nil {
		return Outcome{}, err
	}
	return Outcome{}, nil
}
