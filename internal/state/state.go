package state

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"

	"mentor-miniapp/internal/model"
)

// Fetcher is the read side of the backend the store resyncs from.
type Fetcher interface {
	Bootstrap(ctx context.Context, id model.Identity) (model.Bootstrap, error)
	Playlist(ctx context.Context, telegramID, playlistID int64) (model.PlaylistDetail, error)
}

// Snapshot is the whole client-side aggregate. Every field is replaced together
// by a reload; the selection pair is replaced together by a selection.
type Snapshot struct {
	Loaded bool

	User         *model.User
	Tasks        []model.Task
	Habits       []model.Habit
	Achievements []model.Achievement
	Resources    []model.LearningResource
	Playlists    []model.Playlist

	// SelectedPlaylistID is 0 when nothing is selected; SelectedTracks is only
	// meaningful while it is set.
	SelectedPlaylistID int64
	SelectedTracks     []model.Track

	// Version increases on every applied change.
	Version uint64
}

func (s Snapshot) HasSelection() bool { return s.SelectedPlaylistID != 0 }

// SelectedPlaylist returns the selected playlist from the current list, if present.
func (s Snapshot) SelectedPlaylist() (model.Playlist, bool) {
	if !s.HasSelection() {
		return model.Playlist{}, false
	}
	for _, p := range s.Playlists {
		if p.ID == s.SelectedPlaylistID {
			return p, true
		}
	}
	return model.Playlist{}, false
}

// Clone returns a deep copy so callers never share backing arrays or maps with the store.
func (s Snapshot) Clone() Snapshot {
	out := s
	if s.User != nil {
		u := *s.User
		u.Settings.AIPermissions = maps.Clone(s.User.Settings.AIPermissions)
		u.Settings.Extra = maps.Clone(s.User.Settings.Extra)
		u.Username = clonePtr(s.User.Username)
		out.User = &u
	}
	out.Tasks = slices.Clone(s.Tasks)
	for i := range out.Tasks {
		out.Tasks[i].Tags = slices.Clone(out.Tasks[i].Tags)
	}
	out.Habits = slices.Clone(s.Habits)
	out.Achievements = slices.Clone(s.Achievements)
	out.Resources = slices.Clone(s.Resources)
	out.Playlists = slices.Clone(s.Playlists)
	out.SelectedTracks = slices.Clone(s.SelectedTracks)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

type Store struct {
	fetch Fetcher

	mu   sync.Mutex
	snap Snapshot

	// Sequence numbers: a response is applied only if it was issued after the
	// last applied one of the same kind.
	issued        uint64
	reloadApplied uint64
	selectApplied uint64
}

func New(f Fetcher) *Store {
	return &Store{fetch: f}
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Clone()
}

func (s *Store) next() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return s.issued
}

// ReloadAll fetches the bootstrap payload and replaces every field at once.
// A selection whose playlist no longer exists is cleared with its tracks.
// On error the previous snapshot stays in place.
func (s *Store) ReloadAll(ctx context.Context, id model.Identity) error {
	if id.IsZero() {
		return errors.New("state: reload without identity")
	}
	seq := s.next()
	b, err := s.fetch.Bootstrap(ctx, id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq <= s.reloadApplied {
		return nil
	}
	s.reloadApplied = seq

	next := Snapshot{
		Loaded:             true,
		User:               b.User,
		Tasks:              nonNil(b.Tasks),
		Habits:             nonNil(b.Habits),
		Achievements:       nonNil(b.Achievements),
		Resources:          nonNil(b.Resources),
		Playlists:          nonNil(b.Playlists),
		SelectedPlaylistID: s.snap.SelectedPlaylistID,
		SelectedTracks:     s.snap.SelectedTracks,
		Version:            s.snap.Version + 1,
	}
	if next.HasSelection() {
		if _, ok := next.SelectedPlaylist(); !ok {
			next.SelectedPlaylistID = 0
			next.SelectedTracks = nil
		}
	}
	s.snap = next.Clone()
	return nil
}

// SelectPlaylist fetches playlistID's tracks and sets the selection pair together.
func (s *Store) SelectPlaylist(ctx context.Context, id model.Identity, playlistID int64) error {
	if id.IsZero() {
		return errors.New("state: select without identity")
	}
	if playlistID <= 0 {
		return errors.New("state: invalid playlist id")
	}
	seq := s.next()
	detail, err := s.fetch.Playlist(ctx, id.ID, playlistID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq <= s.selectApplied {
		return nil
	}
	s.selectApplied = seq
	if s.snap.Loaded && !hasPlaylist(s.snap.Playlists, playlistID) {
		// A reload applied meanwhile dropped the playlist.
		return nil
	}
	s.snap.SelectedPlaylistID = playlistID
	s.snap.SelectedTracks = slices.Clone(nonNil(detail.Tracks))
	s.snap.Version++
	return nil
}

// Reset empties the aggregate. Responses issued before the reset are discarded.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.snap.Version
	s.snap = Snapshot{Version: v + 1}
	s.reloadApplied = s.issued
	s.selectApplied = s.issued
}

func hasPlaylist(pls []model.Playlist, id int64) bool {
	for _, p := range pls {
		if p.ID == id {
			return true
		}
	}
	return false
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
