package cli

import (
	"mentor-miniapp/internal/engine"

	"github.com/spf13/cobra"
)

type bindingRow struct {
	Surface string `json:"surface"`
	Event   string `json:"event"`
	Summary string `json:"summary"`
}

func newBindingsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bindings",
		Short: "Inspect the intent dispatch table",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List every surface/event pair the dispatcher accepts",
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := []bindingRow{}
			for _, b := range engine.DefaultTable().Bindings() {
				rows = append(rows, bindingRow{Surface: string(b.Surface), Event: string(b.Event), Summary: b.Summary})
			}
			return writeOut(cmd, app, map[string]any{
				"data":   rows,
				"_hints": []string{"mentor intent <surface> <event> key=value ..."},
			})
		},
	})
	return cmd
}
