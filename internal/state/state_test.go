package state

import (
	"context"
	"errors"
	"sync"
	"testing"

	"mentor-miniapp/internal/model"

	"github.com/google/go-cmp/cmp"
)

type fakeFetcher struct {
	mu        sync.Mutex
	bootstrap model.Bootstrap
	tracks    map[int64][]model.Track
	err       error

	// gate, when set, blocks the next Bootstrap call until released.
	gate chan struct{}
	// playlistGate does the same for the next Playlist call.
	playlistGate chan struct{}
}

func (f *fakeFetcher) Bootstrap(ctx context.Context, id model.Identity) (model.Bootstrap, error) {
	f.mu.Lock()
	gate := f.gate
	f.gate = nil
	b, err := f.bootstrap, f.err
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return b, err
}

func (f *fakeFetcher) Playlist(ctx context.Context, telegramID, playlistID int64) (model.PlaylistDetail, error) {
	f.mu.Lock()
	gate := f.playlistGate
	f.playlistGate = nil
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return model.PlaylistDetail{}, f.err
	}
	return model.PlaylistDetail{Tracks: f.tracks[playlistID]}, nil
}

func (f *fakeFetcher) set(b model.Bootstrap) {
	f.mu.Lock()
	f.bootstrap = b
	f.mu.Unlock()
}

var me = model.Identity{ID: 7}

func TestReloadAll_ReplacesEverything(t *testing.T) {
	f := &fakeFetcher{bootstrap: model.Bootstrap{
		User:  &model.User{DisplayName: "Ann"},
		Tasks: []model.Task{{ID: 1, Title: "a"}},
	}}
	s := New(f)
	if s.Snapshot().Loaded {
		t.Fatalf("new store must be empty")
	}
	if err := s.ReloadAll(context.Background(), me); err != nil {
		t.Fatalf("reload: %v", err)
	}
	snap := s.Snapshot()
	if !snap.Loaded || snap.User.DisplayName != "Ann" || len(snap.Tasks) != 1 {
		t.Fatalf("snapshot: %+v", snap)
	}
	if snap.Habits == nil || snap.Playlists == nil {
		t.Fatalf("missing collections should be empty, not nil")
	}

	f.set(model.Bootstrap{User: &model.User{DisplayName: "Bob"}})
	if err := s.ReloadAll(context.Background(), me); err != nil {
		t.Fatalf("reload: %v", err)
	}
	snap = s.Snapshot()
	if snap.User.DisplayName != "Bob" || len(snap.Tasks) != 0 {
		t.Fatalf("expected total replacement, got %+v", snap)
	}
}

func TestReloadAll_FailureKeepsPriorSnapshot(t *testing.T) {
	f := &fakeFetcher{bootstrap: model.Bootstrap{Tasks: []model.Task{{ID: 1}}}}
	s := New(f)
	_ = s.ReloadAll(context.Background(), me)
	before := s.Snapshot()

	f.err = errors.New("down")
	if err := s.ReloadAll(context.Background(), me); err == nil {
		t.Fatalf("expected error")
	}
	if diff := cmp.Diff(before, s.Snapshot()); diff != "" {
		t.Fatalf("snapshot changed on failure (-before +after):\n%s", diff)
	}
}

func TestReloadAll_RequiresIdentity(t *testing.T) {
	if err := New(&fakeFetcher{}).ReloadAll(context.Background(), model.Identity{}); err == nil {
		t.Fatalf("expected error without identity")
	}
}

func TestSnapshot_IsACopy(t *testing.T) {
	f := &fakeFetcher{bootstrap: model.Bootstrap{
		User:  &model.User{Settings: model.Settings{AIPermissions: map[string]bool{"read_tasks": true}}},
		Tasks: []model.Task{{ID: 1, Title: "a"}},
	}}
	s := New(f)
	_ = s.ReloadAll(context.Background(), me)

	snap := s.Snapshot()
	snap.Tasks[0].Title = "mutated"
	snap.User.Settings.AIPermissions["read_tasks"] = false

	again := s.Snapshot()
	if again.Tasks[0].Title != "a" || !again.User.Settings.Permission("read_tasks") {
		t.Fatalf("store shares memory with callers: %+v", again)
	}
}

func TestSelectPlaylist_SetsPairTogether(t *testing.T) {
	f := &fakeFetcher{
		bootstrap: model.Bootstrap{Playlists: []model.Playlist{{ID: 1}, {ID: 2}}},
		tracks: map[int64][]model.Track{
			1: {{ID: 10, Position: 1}},
		},
	}
	s := New(f)
	ctx := context.Background()
	_ = s.ReloadAll(ctx, me)

	if err := s.SelectPlaylist(ctx, me, 1); err != nil {
		t.Fatalf("select: %v", err)
	}
	snap := s.Snapshot()
	if snap.SelectedPlaylistID != 1 || len(snap.SelectedTracks) != 1 || snap.SelectedTracks[0].ID != 10 {
		t.Fatalf("selection: %+v", snap)
	}

	// An empty playlist yields an empty (not stale) track list.
	if err := s.SelectPlaylist(ctx, me, 2); err != nil {
		t.Fatalf("select: %v", err)
	}
	snap = s.Snapshot()
	if snap.SelectedPlaylistID != 2 || snap.SelectedTracks == nil || len(snap.SelectedTracks) != 0 {
		t.Fatalf("empty selection: %+v", snap)
	}

	// A failed fetch leaves the previous pair.
	f.err = errors.New("down")
	if err := s.SelectPlaylist(ctx, me, 1); err == nil {
		t.Fatalf("expected error")
	}
	if got := s.Snapshot().SelectedPlaylistID; got != 2 {
		t.Fatalf("selection changed on failure: %d", got)
	}
}

func TestReloadAll_ClearsVanishedSelection(t *testing.T) {
	f := &fakeFetcher{
		bootstrap: model.Bootstrap{Playlists: []model.Playlist{{ID: 1}}},
		tracks:    map[int64][]model.Track{1: {{ID: 10}}},
	}
	s := New(f)
	ctx := context.Background()
	_ = s.ReloadAll(ctx, me)
	_ = s.SelectPlaylist(ctx, me, 1)

	_ = s.ReloadAll(ctx, me)
	if s.Snapshot().SelectedPlaylistID != 1 {
		t.Fatalf("selection should survive a reload that keeps the playlist")
	}

	f.set(model.Bootstrap{})
	_ = s.ReloadAll(ctx, me)
	snap := s.Snapshot()
	if snap.HasSelection() || snap.SelectedTracks != nil {
		t.Fatalf("expected selection cleared together, got %+v", snap)
	}
}

func TestReloadAll_DiscardsStaleResponse(t *testing.T) {
	f := &fakeFetcher{bootstrap: model.Bootstrap{Tasks: []model.Task{{ID: 1, Title: "old"}}}}
	s := New(f)
	ctx := context.Background()

	gate := make(chan struct{})
	f.gate = gate
	done := make(chan error, 1)
	go func() { done <- s.ReloadAll(ctx, me) }()

	// Wait until the slow reload has taken its snapshot of the fake's data.
	for {
		f.mu.Lock()
		taken := f.gate == nil
		f.mu.Unlock()
		if taken {
			break
		}
	}

	f.set(model.Bootstrap{Tasks: []model.Task{{ID: 1, Title: "new"}}})
	if err := s.ReloadAll(ctx, me); err != nil {
		t.Fatalf("fast reload: %v", err)
	}
	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("slow reload: %v", err)
	}

	if got := s.Snapshot().Tasks[0].Title; got != "new" {
		t.Fatalf("stale response overwrote newer one: %q", got)
	}
}

func TestReset_EmptiesAndDropsInFlight(t *testing.T) {
	f := &fakeFetcher{bootstrap: model.Bootstrap{Tasks: []model.Task{{ID: 1}}}}
	s := New(f)
	ctx := context.Background()
	_ = s.ReloadAll(ctx, me)

	gate := make(chan struct{})
	f.gate = gate
	done := make(chan error, 1)
	go func() { done <- s.ReloadAll(ctx, me) }()
	for {
		f.mu.Lock()
		taken := f.gate == nil
		f.mu.Unlock()
		if taken {
			break
		}
	}
	s.Reset()
	close(gate)
	<-done

	snap := s.Snapshot()
	if snap.Loaded || len(snap.Tasks) != 0 {
		t.Fatalf("expected empty store after reset, got %+v", snap)
	}
	if err := s.ReloadAll(ctx, me); err != nil || !s.Snapshot().Loaded {
		t.Fatalf("reload after reset: %v", err)
	}
}

func TestSelectPlaylist_DroppedByLaterReload(t *testing.T) {
	f := &fakeFetcher{
		bootstrap: model.Bootstrap{Playlists: []model.Playlist{{ID: 1}}},
		tracks:    map[int64][]model.Track{1: {{ID: 10}}},
	}
	s := New(f)
	ctx := context.Background()
	_ = s.ReloadAll(ctx, me)

	gate := make(chan struct{})
	f.playlistGate = gate
	done := make(chan error, 1)
	go func() { done <- s.SelectPlaylist(ctx, me, 1) }()
	for {
		f.mu.Lock()
		taken := f.playlistGate == nil
		f.mu.Unlock()
		if taken {
			break
		}
	}

	f.set(model.Bootstrap{})
	if err := s.ReloadAll(ctx, me); err != nil {
		t.Fatalf("reload: %v", err)
	}
	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("select: %v", err)
	}

	snap := s.Snapshot()
	if snap.HasSelection() || snap.SelectedTracks != nil {
		t.Fatalf("selection of a vanished playlist applied: %+v", snap)
	}
}
