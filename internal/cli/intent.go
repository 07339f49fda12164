package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"mentor-miniapp/internal/engine"
	"mentor-miniapp/internal/format"
	"mentor-miniapp/internal/model"
	"mentor-miniapp/internal/render"
	"mentor-miniapp/internal/state"

	"github.com/spf13/cobra"
)

type intentView struct {
	Tab              string             `json:"tab"`
	SelectedPlaylist int64              `json:"selected_playlist,omitempty"`
	Plan             *string            `json:"plan,omitempty"`
	Suggestions      []model.Suggestion `json:"suggestions,omitempty"`
	Reply            string             `json:"reply,omitempty"`
}

type intentResult struct {
	Toast  string         `json:"toast"`
	View   intentView     `json:"view"`
	Counts map[string]int `json:"counts"`
}

func newIntentCmd(app *App) *cobra.Command {
	var yes bool
	var selectID int64

	cmd := &cobra.Command{
		Use:   "intent <surface> <event> [key=value ...]",
		Short: "Dispatch one user action",
		Long: strings.TrimSpace(`
Dispatch one user action through the same table the page uses, then print the
toast and a summary of the resulting view.

Destructive actions ask for confirmation on stdin unless --yes is given.
Run "mentor bindings list" for the accepted surface/event pairs.
`),
		Example: strings.TrimSpace(`
mentor intent quick-task-form submit title="Read 10 pages" difficulty=easy
mentor intent tasks-list click id=42
mentor intent --select 7 track-form submit title="Intro" performer="Band"
mentor intent delete-profile click --yes
`),
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseKeyValues(args[2:])
			if err != nil {
				return writeErr(cmd, err)
			}
			in := engine.Intent{
				Surface: engine.Surface(strings.TrimSpace(args[0])),
				Event:   engine.EventKind(strings.TrimSpace(args[1])),
				Values:  values,
			}
			if _, ok := engine.DefaultTable().Lookup(in.Surface, in.Event); !ok {
				return writeErr(cmd, fmt.Errorf("unknown intent %s/%s (see: mentor bindings list)", in.Surface, in.Event))
			}

			confirmer := &promptConfirmer{in: cmd.InOrStdin(), out: cmd.ErrOrStderr(), yes: yes}
			sess, closeFn, err := app.startSession(cmd.Context(), confirmer)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeFn()

			if selectID > 0 {
				sel := engine.NewIntent(engine.SurfacePlaylistList, engine.EventClick, "id", fmt.Sprint(selectID))
				if err := sess.Dispatch(cmd.Context(), sel); err != nil {
					return writeErr(cmd, err)
				}
			}
			if err := sess.Dispatch(cmd.Context(), in); err != nil {
				return writeErr(cmd, err)
			}
			if confirmer.declined {
				return writeErr(cmd, cancelledError{what: string(in.Surface)})
			}

			return writeOut(cmd, app, format.Envelope{Data: summarize(sess.View())})
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Answer yes to confirmation prompts")
	cmd.Flags().Int64Var(&selectID, "select", 0, "Open this playlist before dispatching (track-form needs one)")
	return cmd
}

// parseKeyValues reads key=value arguments; a repeated key keeps every value.
func parseKeyValues(args []string) (url.Values, error) {
	out := url.Values{}
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("expected key=value, got %q", a)
		}
		out.Add(k, v)
	}
	return out, nil
}

func summarize(v render.View) intentResult {
	res := intentResult{
		View: intentView{
			Tab:              string(v.Tab),
			SelectedPlaylist: v.Snapshot.SelectedPlaylistID,
		},
		Counts: snapshotCounts(v.Snapshot),
	}
	if v.ToastVisible {
		res.Toast = v.Toast
	}
	if v.HasTodayPlan {
		plan := v.TodayPlan
		res.View.Plan = &plan
	}
	if v.HasSuggestions {
		res.View.Suggestions = v.Suggestions
	}
	if n := len(v.Transcript); n > 1 && v.Transcript[n-1].Role == render.ChatBot {
		res.View.Reply = v.Transcript[n-1].Text
	}
	return res
}

func snapshotCounts(s state.Snapshot) map[string]int {
	open := 0
	for _, t := range s.Tasks {
		if !t.Done() {
			open++
		}
	}
	counts := map[string]int{
		"tasks":        len(s.Tasks),
		"open_tasks":   open,
		"habits":       len(s.Habits),
		"achievements": len(s.Achievements),
		"resources":    len(s.Resources),
		"playlists":    len(s.Playlists),
	}
	if s.HasSelection() {
		counts["tracks"] = len(s.SelectedTracks)
	}
	return counts
}

// promptConfirmer asks on the terminal. An intent that already carries
// confirmed=1 (as the page sends it) skips the prompt.
type promptConfirmer struct {
	in  io.Reader
	out io.Writer
	yes bool

	declined bool
}

func (c *promptConfirmer) Confirm(ctx context.Context, prompt string, in engine.Intent) (bool, error) {
	if c.yes {
		return true, nil
	}
	if ok, _ := (engine.IntentConfirmer{}).Confirm(ctx, prompt, in); ok {
		return true, nil
	}
	fmt.Fprintf(c.out, "%s [y/N]: ", prompt)
	line, err := bufio.NewReader(c.in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	c.declined = true
	return false, nil
}
