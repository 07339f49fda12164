package cli

import (
	"fmt"

	"mentor-miniapp/internal/engine"
	"mentor-miniapp/internal/tui"

	"github.com/spf13/cobra"
)

func newPlanCmd(app *App) *cobra.Command {
	var width int
	var raw bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Ask the mentor for today's plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, closeFn, err := app.startSession(cmd.Context(), nil)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeFn()

			if err := sess.Dispatch(cmd.Context(), engine.NewIntent(engine.SurfaceTodayPlan, engine.EventClick)); err != nil {
				return writeErr(cmd, err)
			}
			plan, _ := sess.TodayPlan()
			if raw {
				return writeOut(cmd, app, map[string]any{"data": map[string]any{"plan": plan}})
			}
			tui.ApplyColorProfile()
			fmt.Fprintln(cmd.OutOrStdout(), tui.RenderMarkdown(plan, width))
			return nil
		},
	}

	cmd.Flags().IntVar(&width, "width", 80, "Wrap width")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the plan text in the output envelope instead of rendering it")
	return cmd
}
