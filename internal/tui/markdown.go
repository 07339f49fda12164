package tui

import (
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	gansi "github.com/charmbracelet/glamour/ansi"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	mdRendererMu sync.Mutex
	// Renderers are cached per style and wrap width. WithAutoStyle is not used:
	// it queries the terminal.
	mdRenderers = map[string]*glamour.TermRenderer{}
)

func markdownStyle() string {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("MENTOR_MD_STYLE"))) {
	case "light":
		return styles.LightStyle
	case "dark":
		return styles.DarkStyle
	case "notty", "plain":
		return styles.NoTTYStyle
	}
	if strings.TrimSpace(os.Getenv("NO_COLOR")) != "" || lipgloss.ColorProfile() == termenv.Ascii {
		return styles.NoTTYStyle
	}
	if !lipgloss.HasDarkBackground() {
		return styles.LightStyle
	}
	return styles.DarkStyle
}

// RenderMarkdown renders mentor replies for the terminal. It falls back to the
// raw text when glamour fails.
func RenderMarkdown(md string, width int) string {
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}
	if width < 10 {
		width = 10
	}

	style := markdownStyle()
	key := style + ":" + strconv.Itoa(width)

	mdRendererMu.Lock()
	r := mdRenderers[key]
	if r == nil {
		zero := uint(0)
		cfg := styleConfig(style)
		cfg.Document.Margin = &zero
		rr, err := glamour.NewTermRenderer(
			glamour.WithStyles(cfg),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			mdRendererMu.Unlock()
			return md
		}
		mdRenderers[key] = rr
		r = rr
	}
	mdRendererMu.Unlock()

	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.Trim(out, "\n")
}

func styleConfig(name string) gansi.StyleConfig {
	switch name {
	case styles.NoTTYStyle:
		return styles.NoTTYStyleConfig
	case styles.LightStyle:
		return styles.LightStyleConfig
	default:
		return styles.DarkStyleConfig
	}
}
