package cli

import (
	"mentor-miniapp/internal/tui"

	"github.com/spf13/cobra"
)

func newChatCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Chat with the mentor (interactive)",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, closeFn, err := app.startSession(cmd.Context(), nil)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer closeFn()

			tui.ApplyColorProfile()
			if err := tui.RunChat(cmd.Context(), sess); err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}
}
