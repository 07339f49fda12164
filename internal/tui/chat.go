package tui

import (
	"context"
	"strings"

	"mentor-miniapp/internal/engine"
	"mentor-miniapp/internal/render"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

// ChatSession is the part of an engine session the chat screen drives.
type ChatSession interface {
	Dispatch(ctx context.Context, in engine.Intent) error
	View() render.View
	Hub() *engine.Hub
}

type chatChangedMsg struct{}

type chatSentMsg struct{ err error }

type chatModel struct {
	ctx  context.Context
	sess ChatSession

	changes <-chan struct{}
	cancel  func()

	input textinput.Model
	vp    viewport.Model

	width  int
	height int

	pending bool
	status  string
}

func newChatModel(ctx context.Context, sess ChatSession) chatModel {
	ch, cancel := sess.Hub().Subscribe()
	in := textinput.New()
	in.Placeholder = "Message your mentor"
	in.Prompt = "› "
	in.CharLimit = 2000
	in.Focus()

	m := chatModel{
		ctx:     ctx,
		sess:    sess,
		changes: ch,
		cancel:  cancel,
		input:   in,
		vp:      viewport.New(80, 20),
		width:   80,
		height:  24,
	}
	m.refresh()
	return m
}

// RunChat opens the full-screen chat against sess until esc or ctrl+c.
func RunChat(ctx context.Context, sess ChatSession) error {
	m := newChatModel(ctx, sess)
	defer m.cancel()
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

func (m chatModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForChange(m.changes))
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return chatChangedMsg{}
	}
}

func (m chatModel) send(text string) tea.Cmd {
	ctx, sess := m.ctx, m.sess
	return func() tea.Msg {
		err := sess.Dispatch(ctx, engine.NewIntent(engine.SurfaceChatForm, engine.EventSubmit, "message", text))
		return chatSentMsg{err: err}
	}
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.refresh()
		return m, nil

	case chatChangedMsg:
		m.refresh()
		return m, waitForChange(m.changes)

	case chatSentMsg:
		m.pending = false
		m.status = ""
		if msg.err != nil {
			m.status = engine.UserMessage(msg.err)
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.cancel()
			return m, tea.Quit
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			if text == "" || m.pending {
				return m, nil
			}
			m.input.Reset()
			m.pending = true
			m.status = "…"
			return m, m.send(text)
		case "pgup", "pgdown":
			var cmd tea.Cmd
			m.vp, cmd = m.vp.Update(msg)
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *chatModel) refresh() {
	w := m.width - 2
	if w < 20 {
		w = 20
	}
	h := m.height - 4
	if h < 3 {
		h = 3
	}
	m.vp.Width = w
	m.vp.Height = h
	m.input.Width = w - 4
	m.vp.SetContent(renderTranscript(m.sess.View(), w))
	m.vp.GotoBottom()
}

func (m chatModel) View() string {
	footer := m.status
	if footer == "" {
		footer = "enter: send  pgup/pgdown: scroll  esc: quit"
	}
	return strings.Join([]string{
		m.vp.View(),
		m.input.View(),
		lipgloss.NewStyle().Faint(true).Render(footer),
	}, "\n")
}

func renderTranscript(v render.View, width int) string {
	mentor := render.DefaultMentorName
	if u := v.Snapshot.User; u != nil && strings.TrimSpace(u.Settings.MentorName) != "" {
		mentor = u.Settings.MentorName
	}

	blocks := make([]string, 0, len(v.Transcript)+1)
	for _, line := range v.Transcript {
		switch line.Role {
		case render.ChatUser:
			blocks = append(blocks, styleTitle().Render("you")+"\n"+lipgloss.NewStyle().Width(width).Render(clean(line.Text)))
		default:
			blocks = append(blocks, styleMuted().Render(clean(mentor))+"\n"+RenderMarkdown(xansi.Strip(line.Text), width))
		}
	}
	if v.ToastVisible && strings.TrimSpace(v.Toast) != "" {
		blocks = append(blocks, styleError().Render(clean(v.Toast)))
	}
	return strings.Join(blocks, "\n\n")
}
