package cli

import (
	"mentor-miniapp/internal/format"
	"mentor-miniapp/internal/identity"

	"github.com/spf13/cobra"
)

func newIdentityCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identity",
		Short: "Inspect or forget the local fallback identity",
	}
	cmd.AddCommand(newIdentityShowCmd(app))
	cmd.AddCommand(newIdentityResetCmd(app))
	return cmd
}

func newIdentityShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the identity this host acts as",
		RunE: func(cmd *cobra.Command, args []string) error {
			hc, err := identity.ParseInitData(app.InitData)
			if err != nil {
				return writeErr(cmd, err)
			}
			kv, err := app.openKV(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			defer kv.Close()

			stored, ok, err := app.resolver(kv).Stored(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}

			data := map[string]any{
				"source": "none",
				"store":  kv.Path(),
			}
			var hints []string
			switch {
			case hc.HasUser:
				data["source"] = "host"
				data["identity"] = hc.User
			case ok:
				data["source"] = "fallback"
				data["identity"] = stored
			default:
				hints = append(hints, "mentor status (creates a fallback identity)")
			}
			if ok {
				data["fallback"] = stored
			}
			return writeOut(cmd, app, format.Envelope{Data: data, Hints: hints})
		},
	}
}

func newIdentityResetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Forget the persisted fallback identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			kv, err := app.openKV(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			defer kv.Close()

			if err := app.resolver(kv).Reset(cmd.Context()); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"reset": true}})
		},
	}
}
