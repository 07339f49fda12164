package render

import (
	"mentor-miniapp/internal/model"
	"mentor-miniapp/internal/state"
)

// Region is one independently re-rendered part of the page.
type Region string

const (
	RegionHeader       Region = "header"
	RegionStats        Region = "stats"
	RegionTodo         Region = "todo"
	RegionDone         Region = "done"
	RegionAchievements Region = "achievements"
	RegionTasks        Region = "tasks"
	RegionHabits       Region = "habits"
	RegionPermissions  Region = "permissions"
	RegionMentorForm   Region = "mentor-form"
	RegionLearning     Region = "learning"
	RegionSuggestions  Region = "suggestions"
	RegionPlaylists    Region = "playlists"
	RegionTracks       Region = "tracks"
	RegionChat         Region = "chat"
	RegionTodayPlan    Region = "today-plan"
	RegionNav          Region = "nav"
	RegionToast        Region = "toast"
)

// Regions lists every region in page order.
var Regions = []Region{
	RegionHeader,
	RegionNav,
	RegionStats,
	RegionTodo,
	RegionDone,
	RegionAchievements,
	RegionTodayPlan,
	RegionTasks,
	RegionHabits,
	RegionChat,
	RegionMentorForm,
	RegionLearning,
	RegionSuggestions,
	RegionPlaylists,
	RegionTracks,
	RegionPermissions,
	RegionToast,
}

var domIDs = map[Region]string{
	RegionHeader:       "header",
	RegionStats:        "stats",
	RegionTodo:         "todoToday",
	RegionDone:         "doneToday",
	RegionAchievements: "achievements",
	RegionTasks:        "tasksList",
	RegionHabits:       "habitsList",
	RegionPermissions:  "aiPerms",
	RegionMentorForm:   "mentorForm",
	RegionLearning:     "learningList",
	RegionSuggestions:  "suggestions",
	RegionPlaylists:    "playlistList",
	RegionTracks:       "trackList",
	RegionChat:         "chatLog",
	RegionTodayPlan:    "todayPlan",
	RegionNav:          "nav",
	RegionToast:        "toast",
}

// DOMID is the id carried by the region fragment's root element.
func (r Region) DOMID() string { return domIDs[r] }

func (r Region) Valid() bool {
	_, ok := domIDs[r]
	return ok
}

type Tab string

const (
	TabDashboard Tab = "dashboard"
	TabTasks     Tab = "tasks"
	TabHabits    Tab = "habits"
	TabMentor    Tab = "mentor"
	TabLearning  Tab = "learning"
	TabMusic     Tab = "music"
	TabSettings  Tab = "settings"
)

type TabInfo struct {
	Tab   Tab
	Label string
	Icon  string
}

// Tabs is the fixed, ordered set of top-level views.
var Tabs = []TabInfo{
	{TabDashboard, "Today", "🏠"},
	{TabTasks, "Tasks", "✅"},
	{TabHabits, "Habits", "🔥"},
	{TabMentor, "Mentor", "🧠"},
	{TabLearning, "Learning", "📚"},
	{TabMusic, "Music", "🎵"},
	{TabSettings, "Settings", "⚙️"},
}

type ChatRole string

const (
	ChatUser ChatRole = "user"
	ChatBot  ChatRole = "bot"
)

type ChatLine struct {
	Role ChatRole
	Text string
}

// View is everything a render needs: the state snapshot plus the client-local
// parts (navigator, toast, chat transcript, query results) that never reach the store.
type View struct {
	Snapshot state.Snapshot

	Tab          Tab
	Toast        string
	ToastVisible bool
	Transcript   []ChatLine

	TodayPlan    string
	HasTodayPlan bool

	Suggestions    []model.Suggestion
	HasSuggestions bool
}

type Fragment struct {
	Region Region
	ID     string
	HTML   string
}
