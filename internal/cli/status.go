package cli

import (
	"fmt"

	"mentor-miniapp/internal/tui"

	"github.com/spf13/cobra"
)

func newStatusCmd(app *App) *cobra.Command {
	var width int
	var data bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show today's dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, closeFn, err := app.startSession(cmd.Context(), nil)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeFn()

			v := sess.View()
			if data {
				return writeOut(cmd, app, map[string]any{
					"data": map[string]any{
						"identity": sess.Identity(),
						"user":     v.Snapshot.User,
						"counts":   snapshotCounts(v.Snapshot),
					},
				})
			}

			tui.ApplyColorProfile()
			fmt.Fprintln(cmd.OutOrStdout(), tui.RenderDashboard(v, width))
			return nil
		},
	}

	cmd.Flags().IntVar(&width, "width", 80, "Render width")
	cmd.Flags().BoolVar(&data, "data", false, "Print the user and collection counts instead of the dashboard")
	return cmd
}
