package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"mentor-miniapp/internal/model"
)

// Ack is the loose acknowledgement most mutations answer with. The backend
// reports some domain failures (not found, not yours) as a 200 with an error field.
type Ack struct {
	Error string `json:"error,omitempty"`
}

type QuickTaskResult struct {
	Ack
	XPEarned int `json:"xp_earned"`
}

type TaskCompletion struct {
	Ack
	Title     string `json:"title"`
	XPEarned  int    `json:"xp_earned"`
	LeveledUp bool   `json:"leveled_up"`
	NewLevel  int    `json:"new_level"`
}

type HabitCheck struct {
	Ack
	AlreadyLogged bool `json:"already_logged"`
	Streak        int  `json:"streak"`
	BestStreak    int  `json:"best_streak"`
	XPEarned      int  `json:"xp_earned"`
}

type SettingsResult struct {
	Ack
	Settings model.Settings `json:"settings"`
}

type CleanupResult struct {
	Ack
	Deleted bool   `json:"deleted"`
	Period  string `json:"period"`
}

type reply struct {
	Reply string `json:"reply"`
}

type identityBody struct {
	TelegramID int64 `json:"telegram_id"`
}

type BootstrapRequest struct {
	TelegramID int64   `json:"telegram_id"`
	Username   *string `json:"username"`
	FirstName  string  `json:"first_name"`
	LastName   *string `json:"last_name"`
}

// BootstrapRequestFor builds the bootstrap body; blank names become null and
// a blank first name falls back to "User".
func BootstrapRequestFor(id model.Identity) BootstrapRequest {
	first := strings.TrimSpace(id.FirstName)
	if first == "" {
		first = "User"
	}
	return BootstrapRequest{
		TelegramID: id.ID,
		Username:   nullable(id.Username),
		FirstName:  first,
		LastName:   nullable(id.LastName),
	}
}

type NewTask struct {
	TelegramID     int64   `json:"telegram_id"`
	Title          string  `json:"title"`
	Priority       string  `json:"priority"`
	Deadline       *string `json:"deadline"`
	IsRecurring    bool    `json:"is_recurring"`
	RecurrenceType *string `json:"recurrence_type"`
	RecurrenceDate *string `json:"recurrence_date"`
	RemindEnabled  bool    `json:"remind_enabled"`
	RemindTime     *string `json:"remind_time"`
	RemindText     *string `json:"remind_text"`
}

type QuickTask struct {
	TelegramID int64  `json:"telegram_id"`
	Title      string `json:"title"`
	Difficulty string `json:"difficulty"`
}

type NewHabit struct {
	TelegramID    int64   `json:"telegram_id"`
	Name          string  `json:"name"`
	Emoji         string  `json:"emoji"`
	RemindTime    string  `json:"remind_time"`
	RemindEnabled bool    `json:"remind_enabled"`
	RemindText    *string `json:"remind_text"`
}

type ProfileUpdate struct {
	TelegramID    int64  `json:"telegram_id"`
	MentorName    string `json:"mentor_name"`
	MentorPersona string `json:"mentor_persona"`
}

type SettingsPatch struct {
	TelegramID int64          `json:"telegram_id"`
	Patch      map[string]any `json:"patch"`
}

// PermissionPatch is the exact settings patch for one AI permission flag.
func PermissionPatch(telegramID int64, key string, value bool) SettingsPatch {
	return SettingsPatch{
		TelegramID: telegramID,
		Patch: map[string]any{
			"ai_permissions": map[string]bool{key: value},
		},
	}
}

type NewResource struct {
	TelegramID   int64   `json:"telegram_id"`
	ResourceType string  `json:"resource_type"`
	Title        string  `json:"title"`
	Topic        *string `json:"topic"`
	URL          *string `json:"url"`
}

type NewPlaylist struct {
	TelegramID int64  `json:"telegram_id"`
	Name       string `json:"name"`
	Emoji      string `json:"emoji"`
}

type NewTrack struct {
	TelegramID int64   `json:"telegram_id"`
	Title      string  `json:"title"`
	Performer  *string `json:"performer"`
	URL        *string `json:"url"`
}

func (c *Client) Bootstrap(ctx context.Context, id model.Identity) (model.Bootstrap, error) {
	var out model.Bootstrap
	err := c.Do(ctx, http.MethodPost, "bootstrap", BootstrapRequestFor(id), &out)
	return out, err
}

func (c *Client) TodayPlan(ctx context.Context, telegramID int64) (string, error) {
	var out reply
	err := c.Do(ctx, http.MethodGet, "mentor/today-plan?"+telegramQuery(telegramID), nil, &out)
	return out.Reply, err
}

func (c *Client) Chat(ctx context.Context, telegramID int64, message string) (string, error) {
	body := struct {
		TelegramID int64  `json:"telegram_id"`
		Message    string `json:"message"`
	}{telegramID, message}
	var out reply
	err := c.Do(ctx, http.MethodPost, "mentor/chat", body, &out)
	return out.Reply, err
}

func (c *Client) CreateTask(ctx context.Context, t NewTask) (Ack, error) {
	var out Ack
	err := c.Do(ctx, http.MethodPost, "tasks", t, &out)
	return out, err
}

func (c *Client) CreateQuickTask(ctx context.Context, t QuickTask) (QuickTaskResult, error) {
	var out QuickTaskResult
	err := c.Do(ctx, http.MethodPost, "tasks/quick", t, &out)
	return out, err
}

func (c *Client) CompleteTask(ctx context.Context, telegramID, taskID int64) (TaskCompletion, error) {
	var out TaskCompletion
	err := c.Do(ctx, http.MethodPost, fmt.Sprintf("tasks/%d/complete", taskID), identityBody{telegramID}, &out)
	return out, err
}

func (c *Client) CreateHabit(ctx context.Context, h NewHabit) (Ack, error) {
	var out Ack
	err := c.Do(ctx, http.MethodPost, "habits", h, &out)
	return out, err
}

func (c *Client) CheckHabit(ctx context.Context, telegramID, habitID int64) (HabitCheck, error) {
	var out HabitCheck
	err := c.Do(ctx, http.MethodPost, fmt.Sprintf("habits/%d/check", habitID), identityBody{telegramID}, &out)
	return out, err
}

func (c *Client) UpdateProfile(ctx context.Context, p ProfileUpdate) (Ack, error) {
	var out Ack
	err := c.Do(ctx, http.MethodPatch, "profile", p, &out)
	return out, err
}

func (c *Client) PatchSettings(ctx context.Context, p SettingsPatch) (SettingsResult, error) {
	var out SettingsResult
	err := c.Do(ctx, http.MethodPatch, "settings", p, &out)
	return out, err
}

func (c *Client) CreateResource(ctx context.Context, r NewResource) (Ack, error) {
	var out Ack
	err := c.Do(ctx, http.MethodPost, "learning", r, &out)
	return out, err
}

func (c *Client) Suggest(ctx context.Context, topic string) ([]model.Suggestion, error) {
	var out struct {
		Suggestions []model.Suggestion `json:"suggestions"`
	}
	q := url.Values{"topic": []string{topic}}
	err := c.Do(ctx, http.MethodGet, "learning/suggest?"+q.Encode(), nil, &out)
	return out.Suggestions, err
}

func (c *Client) CompleteResource(ctx context.Context, telegramID, resourceID int64) (Ack, error) {
	var out Ack
	err := c.Do(ctx, http.MethodPost, fmt.Sprintf("learning/%d/done", resourceID), identityBody{telegramID}, &out)
	return out, err
}

func (c *Client) CreatePlaylist(ctx context.Context, p NewPlaylist) (Ack, error) {
	var out Ack
	err := c.Do(ctx, http.MethodPost, "playlists", p, &out)
	return out, err
}

func (c *Client) Playlist(ctx context.Context, telegramID, playlistID int64) (model.PlaylistDetail, error) {
	var out model.PlaylistDetail
	err := c.Do(ctx, http.MethodGet, fmt.Sprintf("playlists/%d?%s", playlistID, telegramQuery(telegramID)), nil, &out)
	return out, err
}

func (c *Client) AddTrack(ctx context.Context, playlistID int64, t NewTrack) (Ack, error) {
	var out Ack
	err := c.Do(ctx, http.MethodPost, fmt.Sprintf("playlists/%d/tracks", playlistID), t, &out)
	return out, err
}

func (c *Client) DeletePlaylist(ctx context.Context, telegramID, playlistID int64) (Ack, error) {
	var out Ack
	err := c.Do(ctx, http.MethodDelete, fmt.Sprintf("playlists/%d?%s", playlistID, telegramQuery(telegramID)), nil, &out)
	return out, err
}

func (c *Client) CleanupHistory(ctx context.Context, telegramID int64, period string) (CleanupResult, error) {
	body := struct {
		TelegramID int64  `json:"telegram_id"`
		Period     string `json:"period"`
	}{telegramID, period}
	var out CleanupResult
	err := c.Do(ctx, http.MethodPost, "cleanup/history", body, &out)
	return out, err
}

func (c *Client) DeleteProfile(ctx context.Context, telegramID int64) (CleanupResult, error) {
	var out CleanupResult
	err := c.Do(ctx, http.MethodPost, "cleanup/profile", identityBody{telegramID}, &out)
	return out, err
}

func telegramQuery(id int64) string {
	return "telegram_id=" + strconv.FormatInt(id, 10)
}

func nullable(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
