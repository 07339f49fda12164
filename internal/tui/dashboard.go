package tui

import (
	"fmt"
	"strings"

	"mentor-miniapp/internal/model"
	"mentor-miniapp/internal/render"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

const minDashboardWidth = 32

// RenderDashboard renders the Today tab as terminal text: header, stat cards,
// the optional day plan, open and done tasks, habits and the current toast.
func RenderDashboard(v render.View, width int) string {
	if width < minDashboardWidth {
		width = minDashboardWidth
	}

	var sections []string
	sections = append(sections, dashboardHeader(v, width))
	if !v.Snapshot.Loaded {
		sections = append(sections, styleMuted().Render("Loading…"))
		return strings.Join(sections, "\n\n")
	}

	sections = append(sections, dashboardStats(v.Snapshot.User, width))
	if v.HasTodayPlan {
		sections = append(sections, styleTitle().Render("Today's plan")+"\n"+RenderMarkdown(v.TodayPlan, width))
	}

	var open []string
	for _, t := range render.ActiveTasks(v.Snapshot.Tasks) {
		open = append(open, render.PriorityBadge(t.Priority)+" "+clean(t.Title))
	}
	sections = append(sections, dashboardList("Tasks", open, "No open tasks", width))

	var done []string
	for _, t := range render.DoneTasks(v.Snapshot.Tasks) {
		done = append(done, render.StatusBadge(t)+" "+clean(t.Title))
	}
	sections = append(sections, dashboardList("Done", done, "Nothing finished yet", width))

	var habits []string
	for _, h := range v.Snapshot.Habits {
		habits = append(habits, habitLine(h))
	}
	sections = append(sections, dashboardList("Habits", habits, "No habits", width))

	if v.ToastVisible && strings.TrimSpace(v.Toast) != "" {
		sections = append(sections, styleCard().BorderForeground(colorAccent).Render(clean(v.Toast)))
	}
	return strings.Join(sections, "\n\n")
}

func dashboardHeader(v render.View, width int) string {
	name := render.DefaultMentorName
	caption := ""
	if u := v.Snapshot.User; u != nil {
		if n := strings.TrimSpace(u.Settings.MentorName); n != "" {
			name = n
		}
		caption = u.DisplayName
		if u.Username != nil && strings.TrimSpace(*u.Username) != "" {
			caption += " · @" + *u.Username
		}
	}
	out := styleTitle().Render(truncate(clean(name), width))
	if caption != "" {
		out += "\n" + styleMuted().Render(truncate(clean(caption), width))
	}
	return out
}

func dashboardStats(u *model.User, width int) string {
	if u == nil {
		return ""
	}
	cards := []struct {
		label string
		value string
	}{
		{"LVL", fmt.Sprint(u.Level)},
		{"XP", fmt.Sprint(u.TotalXPEarned)},
		{"Discipline", fmt.Sprintf("%.0f", u.DisciplineScore)},
		{"Growth", fmt.Sprintf("%.0f", u.GrowthScore)},
	}
	boxes := make([]string, 0, len(cards))
	for _, c := range cards {
		boxes = append(boxes, styleCard().Render(styleMuted().Render(c.label)+"\n"+lipgloss.NewStyle().Bold(true).Render(c.value)))
	}
	row := lipgloss.JoinHorizontal(lipgloss.Top, boxes...)
	if lipgloss.Width(row) <= width {
		return row
	}
	// Too narrow for one row: stack in pairs.
	top := lipgloss.JoinHorizontal(lipgloss.Top, boxes[0], boxes[1])
	bottom := lipgloss.JoinHorizontal(lipgloss.Top, boxes[2], boxes[3])
	return lipgloss.JoinVertical(lipgloss.Left, top, bottom)
}

func dashboardList(title string, lines []string, empty string, width int) string {
	var b strings.Builder
	b.WriteString(styleTitle().Render(title))
	if len(lines) == 0 {
		b.WriteString("\n")
		b.WriteString(styleMuted().Render(empty))
		return b.String()
	}
	for _, l := range lines {
		b.WriteString("\n")
		b.WriteString(truncate(l, width))
	}
	return b.String()
}

func habitLine(h model.Habit) string {
	emoji := strings.TrimSpace(h.Emoji)
	if emoji == "" {
		emoji = "🔥"
	}
	return fmt.Sprintf("%s %s · %d🔥 (best %d)", clean(emoji), clean(h.Name), h.CurrentStreak, h.BestStreak)
}

// clean drops escape sequences and control characters from server text.
func clean(s string) string {
	s = xansi.Strip(s)
	return strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return ' '
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}

func truncate(s string, w int) string {
	if w <= 0 {
		return ""
	}
	if xansi.StringWidth(s) <= w {
		return s
	}
	if w == 1 {
		return "…"
	}
	return xansi.Cut(s, 0, w-1) + "…"
}
