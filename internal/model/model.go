package model

import "encoding/json"

type Identity struct {
	ID        int64  `json:"id"`
	Username  string `json:"username,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

func (i Identity) IsZero() bool { return i.ID == 0 }

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

type TaskStatus string

const (
	TaskStatusOpen TaskStatus = "open"
	TaskStatusDone TaskStatus = "done"
)

type Settings struct {
	MentorName    string          `json:"mentor_name,omitempty"`
	MentorPersona string          `json:"mentor_persona,omitempty"`
	AIPermissions map[string]bool `json:"ai_permissions,omitempty"`

	// Extra keeps settings the client does not model (notifications, ...).
	Extra map[string]json.RawMessage `json:"-"`
}

func (s *Settings) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*s = Settings{}
	for k, v := range raw {
		switch k {
		case "mentor_name":
			_ = json.Unmarshal(v, &s.MentorName)
		case "mentor_persona":
			_ = json.Unmarshal(v, &s.MentorPersona)
		case "ai_permissions":
			_ = json.Unmarshal(v, &s.AIPermissions)
		default:
			if s.Extra == nil {
				s.Extra = map[string]json.RawMessage{}
			}
			s.Extra[k] = v
		}
	}
	return nil
}

// Permission reports a single AI permission flag; missing keys are false.
func (s Settings) Permission(key string) bool {
	if s.AIPermissions == nil {
		return false
	}
	return s.AIPermissions[key]
}

type User struct {
	ID              int64    `json:"id"`
	TelegramID      int64    `json:"telegram_id"`
	Username        *string  `json:"username"`
	DisplayName     string   `json:"display_name"`
	FirstName       string   `json:"first_name"`
	Level           int      `json:"level"`
	XP              int      `json:"xp"`
	TotalXPEarned   int      `json:"total_xp_earned"`
	AIMode          string   `json:"ai_mode"`
	Timezone        string   `json:"timezone"`
	DisciplineScore float64  `json:"discipline_score"`
	GrowthScore     float64  `json:"growth_score"`
	Settings        Settings `json:"settings"`
}

type Task struct {
	ID             int64      `json:"id"`
	Title          string     `json:"title"`
	Description    *string    `json:"description"`
	Status         TaskStatus `json:"status"`
	Priority       Priority   `json:"priority"`
	Tags           []string   `json:"tags"`
	Deadline       *string    `json:"deadline"`
	IsRecurring    bool       `json:"is_recurring"`
	RecurrenceType *string    `json:"recurrence_type"`
	RecurrenceDate *string    `json:"recurrence_date"`
	RemindEnabled  bool       `json:"remind_enabled"`
	RemindTime     *string    `json:"remind_time"`
	RemindText     *string    `json:"remind_text"`
}

// Done reports whether the task is closed. Statuses other than "done" count as open.
func (t Task) Done() bool { return t.Status == TaskStatusDone }

type Habit struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	Emoji            string  `json:"emoji"`
	CurrentStreak    int     `json:"current_streak"`
	BestStreak       int     `json:"best_streak"`
	TotalCompletions int     `json:"total_completions"`
	RemindEnabled    bool    `json:"remind_enabled"`
	RemindTime       *string `json:"remind_time"`
	RemindText       *string `json:"remind_text"`
}

type Achievement struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Emoji       string `json:"emoji"`
	XPReward    int    `json:"xp_reward"`
}

type ResourceType string

const (
	ResourceArticle ResourceType = "article"
	ResourceVideo   ResourceType = "video"
	ResourceCourse  ResourceType = "course"
	ResourceBook    ResourceType = "book"
	ResourceOther   ResourceType = "other"
)

type LearningResource struct {
	ID           int64        `json:"id"`
	ResourceType ResourceType `json:"resource_type"`
	Title        string       `json:"title"`
	URL          *string      `json:"url"`
	Description  *string      `json:"description"`
	Topic        *string      `json:"topic"`
	IsCompleted  bool         `json:"is_completed"`
}

type Playlist struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Emoji string `json:"emoji"`
}

type Track struct {
	ID        int64   `json:"id"`
	Title     *string `json:"title"`
	Performer *string `json:"performer"`
	FileID    *string `json:"file_id"`
	Duration  *int    `json:"duration"`
	Position  int     `json:"position"`
}

type Suggestion struct {
	Title        string       `json:"title"`
	ResourceType ResourceType `json:"resource_type"`
	Description  string       `json:"description"`
	URL          string       `json:"url"`
}

// Bootstrap is the consolidated payload returned by the bootstrap endpoint.
type Bootstrap struct {
	User         *User              `json:"user"`
	Tasks        []Task             `json:"tasks"`
	Habits       []Habit            `json:"habits"`
	Achievements []Achievement      `json:"achievements"`
	Resources    []LearningResource `json:"resources"`
	Playlists    []Playlist         `json:"playlists"`
}

type PlaylistDetail struct {
	Playlist *Playlist `json:"playlist"`
	Tracks   []Track   `json:"tracks"`
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
