package engine

import (
	"context"
	"sync"

	"mentor-miniapp/internal/api"
	"mentor-miniapp/internal/identity"
	"mentor-miniapp/internal/model"
)

// fakeBackend is a tiny in-memory backend with the same observable rules the
// real one has for the flows the tests exercise.
type fakeBackend struct {
	mu sync.Mutex

	user      model.User
	tasks     []model.Task
	habits    []model.Habit
	playlists []model.Playlist
	tracks    map[int64][]model.Track
	resources []model.LearningResource

	nextID int64

	bootstraps int
	lastPatch  api.SettingsPatch
	lastTask   api.NewTask
	lastHabit  api.NewHabit
	lastPeriod string
	deleted    bool

	failNext error
	chatReply string
	plan      string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		user:   model.User{ID: 1, TelegramID: 7, DisplayName: "Ann", Settings: model.Settings{AIPermissions: map[string]bool{}}},
		tracks: map[int64][]model.Track{},
		nextID: 100,
	}
}

func (f *fakeBackend) takeFailure() error {
	err := f.failNext
	f.failNext = nil
	return err
}

func (f *fakeBackend) id() int64 {
	f.nextID++
	return f.nextID
}

func (f *fakeBackend) Bootstrap(ctx context.Context, id model.Identity) (model.Bootstrap, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return model.Bootstrap{}, err
	}
	f.bootstraps++
	u := f.user
	perms := map[string]bool{}
	for k, v := range f.user.Settings.AIPermissions {
		perms[k] = v
	}
	u.Settings.AIPermissions = perms
	return model.Bootstrap{
		User:      &u,
		Tasks:     append([]model.Task(nil), f.tasks...),
		Habits:    append([]model.Habit(nil), f.habits...),
		Resources: append([]model.LearningResource(nil), f.resources...),
		Playlists: append([]model.Playlist(nil), f.playlists...),
	}, nil
}

func (f *fakeBackend) Playlist(ctx context.Context, telegramID, playlistID int64) (model.PlaylistDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return model.PlaylistDetail{}, err
	}
	return model.PlaylistDetail{Tracks: append([]model.Track{}, f.tracks[playlistID]...)}, nil
}

func (f *fakeBackend) TodayPlan(ctx context.Context, telegramID int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.plan, f.takeFailure()
}

func (f *fakeBackend) Chat(ctx context.Context, telegramID int64, message string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chatReply, f.takeFailure()
}

func (f *fakeBackend) CreateTask(ctx context.Context, t api.NewTask) (api.Ack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return api.Ack{}, err
	}
	f.lastTask = t
	f.tasks = append(f.tasks, model.Task{ID: f.id(), Title: t.Title, Status: model.TaskStatusOpen, Priority: model.Priority(t.Priority)})
	return api.Ack{}, nil
}

func (f *fakeBackend) CreateQuickTask(ctx context.Context, t api.QuickTask) (api.QuickTaskResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return api.QuickTaskResult{}, err
	}
	f.tasks = append(f.tasks, model.Task{ID: f.id(), Title: t.Title, Status: model.TaskStatusOpen})
	return api.QuickTaskResult{XPEarned: 15}, nil
}

func (f *fakeBackend) CompleteTask(ctx context.Context, telegramID, taskID int64) (api.TaskCompletion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return api.TaskCompletion{}, err
	}
	for i := range f.tasks {
		if f.tasks[i].ID == taskID {
			f.tasks[i].Status = model.TaskStatusDone
			return api.TaskCompletion{Title: f.tasks[i].Title, XPEarned: 10}, nil
		}
	}
	return api.TaskCompletion{Ack: api.Ack{Error: "Task not found"}}, nil
}

func (f *fakeBackend) CreateHabit(ctx context.Context, h api.NewHabit) (api.Ack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastHabit = h
	f.habits = append(f.habits, model.Habit{ID: f.id(), Name: h.Name, Emoji: h.Emoji})
	return api.Ack{}, f.takeFailure()
}

func (f *fakeBackend) CheckHabit(ctx context.Context, telegramID, habitID int64) (api.HabitCheck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.habits {
		if f.habits[i].ID == habitID {
			f.habits[i].CurrentStreak++
			return api.HabitCheck{Streak: f.habits[i].CurrentStreak}, nil
		}
	}
	return api.HabitCheck{Ack: api.Ack{Error: "Habit not found"}}, nil
}

func (f *fakeBackend) UpdateProfile(ctx context.Context, p api.ProfileUpdate) (api.Ack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.user.Settings.MentorName = p.MentorName
	f.user.Settings.MentorPersona = p.MentorPersona
	return api.Ack{}, nil
}

func (f *fakeBackend) PatchSettings(ctx context.Context, p api.SettingsPatch) (api.SettingsResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return api.SettingsResult{}, err
	}
	f.lastPatch = p
	if perms, ok := p.Patch["ai_permissions"].(map[string]bool); ok {
		for k, v := range perms {
			f.user.Settings.AIPermissions[k] = v
		}
	}
	return api.SettingsResult{Settings: f.user.Settings}, nil
}

func (f *fakeBackend) CreateResource(ctx context.Context, r api.NewResource) (api.Ack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resources = append(f.resources, model.LearningResource{ID: f.id(), Title: r.Title, ResourceType: model.ResourceType(r.ResourceType)})
	return api.Ack{}, nil
}

func (f *fakeBackend) Suggest(ctx context.Context, topic string) ([]model.Suggestion, error) {
	return []model.Suggestion{{Title: "Intro to " + topic, ResourceType: model.ResourceCourse}}, nil
}

func (f *fakeBackend) CompleteResource(ctx context.Context, telegramID, resourceID int64) (api.Ack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.resources {
		if f.resources[i].ID == resourceID {
			f.resources[i].IsCompleted = true
		}
	}
	return api.Ack{}, nil
}

func (f *fakeBackend) CreatePlaylist(ctx context.Context, p api.NewPlaylist) (api.Ack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playlists = append(f.playlists, model.Playlist{ID: f.id(), Name: p.Name, Emoji: p.Emoji})
	return api.Ack{}, nil
}

func (f *fakeBackend) AddTrack(ctx context.Context, playlistID int64, t api.NewTrack) (api.Ack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	title := t.Title
	f.tracks[playlistID] = append(f.tracks[playlistID], model.Track{ID: f.id(), Title: &title, Position: len(f.tracks[playlistID]) + 1})
	return api.Ack{}, nil
}

func (f *fakeBackend) DeletePlaylist(ctx context.Context, telegramID, playlistID int64) (api.Ack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.playlists[:0]
	for _, p := range f.playlists {
		if p.ID != playlistID {
			out = append(out, p)
		}
	}
	f.playlists = out
	delete(f.tracks, playlistID)
	return api.Ack{}, nil
}

func (f *fakeBackend) CleanupHistory(ctx context.Context, telegramID int64, period string) (api.CleanupResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastPeriod = period
	return api.CleanupResult{Period: period}, nil
}

func (f *fakeBackend) DeleteProfile(ctx context.Context, telegramID int64) (api.CleanupResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = true
	f.tasks, f.habits, f.playlists, f.resources = nil, nil, nil, nil
	return api.CleanupResult{Deleted: true}, nil
}

func (f *fakeBackend) bootstrapCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bootstraps
}

type staticIdentity struct {
	id    model.Identity
	calls int
	mu    sync.Mutex
}

func (s *staticIdentity) Resolve(ctx context.Context, host identity.Host, hc identity.HostContext) (model.Identity, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if hc.HasUser {
		return hc.User, nil
	}
	return s.id, nil
}

func (s *staticIdentity) resolveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
