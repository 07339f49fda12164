package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"mentor-miniapp/internal/api"
	"mentor-miniapp/internal/identity"
	"mentor-miniapp/internal/model"
	"mentor-miniapp/internal/render"
	"mentor-miniapp/internal/state"
)

const (
	Greeting          = "Ready to work. Tell me your goal or ask for today's plan."
	DefaultResetDelay = 500 * time.Millisecond
)

// Backend is the slice of the API gateway the dispatcher drives.
type Backend interface {
	state.Fetcher
	TodayPlan(ctx context.Context, telegramID int64) (string, error)
	Chat(ctx context.Context, telegramID int64, message string) (string, error)
	CreateTask(ctx context.Context, t api.NewTask) (api.Ack, error)
	CreateQuickTask(ctx context.Context, t api.QuickTask) (api.QuickTaskResult, error)
	CompleteTask(ctx context.Context, telegramID, taskID int64) (api.TaskCompletion, error)
	CreateHabit(ctx context.Context, h api.NewHabit) (api.Ack, error)
	CheckHabit(ctx context.Context, telegramID, habitID int64) (api.HabitCheck, error)
	UpdateProfile(ctx context.Context, p api.ProfileUpdate) (api.Ack, error)
	PatchSettings(ctx context.Context, p api.SettingsPatch) (api.SettingsResult, error)
	CreateResource(ctx context.Context, r api.NewResource) (api.Ack, error)
	Suggest(ctx context.Context, topic string) ([]model.Suggestion, error)
	CompleteResource(ctx context.Context, telegramID, resourceID int64) (api.Ack, error)
	CreatePlaylist(ctx context.Context, p api.NewPlaylist) (api.Ack, error)
	AddTrack(ctx context.Context, playlistID int64, t api.NewTrack) (api.Ack, error)
	DeletePlaylist(ctx context.Context, telegramID, playlistID int64) (api.Ack, error)
	CleanupHistory(ctx context.Context, telegramID int64, period string) (api.CleanupResult, error)
	DeleteProfile(ctx context.Context, telegramID int64) (api.CleanupResult, error)
}

// IdentitySource resolves the acting user.
type IdentitySource interface {
	Resolve(ctx context.Context, host identity.Host, hc identity.HostContext) (model.Identity, error)
}

// Confirmer asks the human to approve a destructive intent.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string, in Intent) (bool, error)
}

// IntentConfirmer approves when the intent itself carries confirmed=1|true|yes
// (the page asks before posting).
type IntentConfirmer struct{}

func (IntentConfirmer) Confirm(_ context.Context, _ string, in Intent) (bool, error) {
	switch in.Get("confirmed") {
	case "1", "true", "yes", "on":
		return true, nil
	}
	return false, nil
}

type Options struct {
	Backend    Backend
	Identity   IdentitySource
	HostCtx    identity.HostContext
	Confirmer  Confirmer
	Table      *Table
	Logger     *slog.Logger
	ToastTTL   time.Duration
	ResetDelay time.Duration
}

// Session is one user's engine instance: the state store plus the client-local
// parts of the view (navigator, toast, chat transcript, transient query results).
type Session struct {
	backend    Backend
	ids        IdentitySource
	hostCtx    identity.HostContext
	confirmer  Confirmer
	table      *Table
	log        *slog.Logger
	resetDelay time.Duration

	store   *state.Store
	nav     *Navigator
	toaster *Toaster
	hub     *Hub

	mu             sync.Mutex
	identity       model.Identity
	transcript     []render.ChatLine
	todayPlan      string
	hasTodayPlan   bool
	suggestions    []model.Suggestion
	hasSuggestions bool
	resetTimer     *time.Timer
}

func NewSession(opts Options) (*Session, error) {
	if opts.Backend == nil {
		return nil, errors.New("engine: backend is nil")
	}
	if opts.Identity == nil {
		return nil, errors.New("engine: identity source is nil")
	}
	s := &Session{
		backend:    opts.Backend,
		ids:        opts.Identity,
		hostCtx:    opts.HostCtx,
		confirmer:  opts.Confirmer,
		table:      opts.Table,
		log:        opts.Logger,
		resetDelay: opts.ResetDelay,
		store:      state.New(opts.Backend),
		nav:        NewNavigator(),
		hub:        NewHub(),
	}
	if s.confirmer == nil {
		s.confirmer = IntentConfirmer{}
	}
	if s.table == nil {
		s.table = DefaultTable()
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.resetDelay <= 0 {
		s.resetDelay = DefaultResetDelay
	}
	s.toaster = NewToaster(opts.ToastTTL, s.hub.Broadcast)
	return s, nil
}

func (s *Session) Store() *state.Store { return s.store }
func (s *Session) Navigator() *Navigator { return s.nav }
func (s *Session) Toaster() *Toaster { return s.toaster }
func (s *Session) Hub() *Hub { return s.hub }
func (s *Session) Table() *Table { return s.table }

func (s *Session) Identity() model.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// SetHostContext replaces the host context used by later identity resolutions.
func (s *Session) SetHostContext(hc identity.HostContext) {
	s.mu.Lock()
	s.hostCtx = hc
	s.mu.Unlock()
}

// Start resolves identity (once per session), seeds the greeting and runs the
// first reload. host receives the setup calls on every start.
func (s *Session) Start(ctx context.Context, host identity.Host) error {
	s.mu.Lock()
	hc := s.hostCtx
	s.mu.Unlock()

	id, err := s.ids.Resolve(ctx, host, hc)
	if err != nil {
		return s.fail(fmt.Errorf("resolve identity: %w", err))
	}

	s.mu.Lock()
	if s.identity.IsZero() {
		s.identity = id
	}
	id = s.identity
	if len(s.transcript) == 0 {
		s.transcript = append(s.transcript, render.ChatLine{Role: render.ChatBot, Text: Greeting})
	}
	s.mu.Unlock()

	if err := s.store.ReloadAll(ctx, id); err != nil {
		return s.fail(err)
	}
	s.hub.Broadcast()
	return nil
}

// Dispatch runs one intent through the table: handler, then (on success) the
// requested resync, then toast and notification. Errors are already surfaced
// to the user when returned.
func (s *Session) Dispatch(ctx context.Context, in Intent) error {
	b, ok := s.table.Lookup(in.Surface, in.Event)
	if !ok {
		return s.fail(fmt.Errorf("no binding for %s/%s", in.Surface, in.Event))
	}
	if s.Identity().IsZero() {
		return s.fail(errors.New("session not started"))
	}
	s.log.Debug("dispatch", "surface", in.Surface, "event", in.Event)

	out, err := b.Handler(ctx, s, in)
	if err != nil {
		return s.fail(err)
	}
	if out.Reset {
		if out.Toast != "" {
			s.toaster.Show(out.Toast)
		}
		s.scheduleReset()
		s.hub.Broadcast()
		return nil
	}

	id := s.Identity()
	if out.RefreshSelection {
		if snap := s.store.Snapshot(); snap.HasSelection() {
			if err := s.store.SelectPlaylist(ctx, id, snap.SelectedPlaylistID); err != nil {
				return s.fail(err)
			}
		}
	}
	if out.Reload {
		if err := s.store.ReloadAll(ctx, id); err != nil {
			return s.fail(err)
		}
	}
	if out.Toast != "" {
		s.toaster.Show(out.Toast)
	}
	s.hub.Broadcast()
	return nil
}

// fail is the single top-level error handler: log, toast, notify.
func (s *Session) fail(err error) error {
	var ve *ValidationError
	if errors.As(err, &ve) {
		s.log.Info("intent rejected", "field", ve.Field, "err", err)
	} else {
		s.log.Error("intent failed", "err", err)
	}
	s.toaster.Show(UserMessage(err))
	s.hub.Broadcast()
	return err
}

func (s *Session) scheduleReset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resetTimer != nil {
		s.resetTimer.Stop()
	}
	s.resetTimer = time.AfterFunc(s.resetDelay, func() {
		_ = s.Reset(context.Background())
	})
}

// Reset restarts the session from scratch: empty store, cleared client-local
// regions, identity resolved again and a first reload.
func (s *Session) Reset(ctx context.Context) error {
	s.store.Reset()
	s.nav.reset()
	s.mu.Lock()
	s.identity = model.Identity{}
	s.transcript = nil
	s.todayPlan, s.hasTodayPlan = "", false
	s.suggestions, s.hasSuggestions = nil, false
	s.resetTimer = nil
	s.mu.Unlock()
	s.hub.Broadcast()
	return s.Start(ctx, nil)
}

// Close stops pending timers.
func (s *Session) Close() {
	s.toaster.Clear()
	s.mu.Lock()
	if s.resetTimer != nil {
		s.resetTimer.Stop()
		s.resetTimer = nil
	}
	s.mu.Unlock()
}

func (s *Session) appendChat(role render.ChatRole, text string) {
	s.mu.Lock()
	s.transcript = append(s.transcript, render.ChatLine{Role: role, Text: text})
	s.mu.Unlock()
	s.hub.Broadcast()
}

func (s *Session) Transcript() []render.ChatLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.transcript)
}

func (s *Session) setTodayPlan(reply string) {
	s.mu.Lock()
	s.todayPlan, s.hasTodayPlan = reply, true
	s.mu.Unlock()
}

func (s *Session) TodayPlan() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.todayPlan, s.hasTodayPlan
}

func (s *Session) setSuggestions(items []model.Suggestion) {
	s.mu.Lock()
	s.suggestions, s.hasSuggestions = slices.Clone(items), true
	s.mu.Unlock()
}

// View assembles everything the render engine needs.
func (s *Session) View() render.View {
	v := render.View{
		Snapshot: s.store.Snapshot(),
		Tab:      s.nav.Active(),
	}
	v.Toast, v.ToastVisible = s.toaster.Current()
	s.mu.Lock()
	v.Transcript = slices.Clone(s.transcript)
	v.TodayPlan, v.HasTodayPlan = s.todayPlan, s.hasTodayPlan
	v.Suggestions, v.HasSuggestions = slices.Clone(s.suggestions), s.hasSuggestions
	s.mu.Unlock()
	return v
}
