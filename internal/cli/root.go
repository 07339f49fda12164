package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"mentor-miniapp/internal/api"
	"mentor-miniapp/internal/config"
	"mentor-miniapp/internal/engine"
	"mentor-miniapp/internal/format"
	"mentor-miniapp/internal/identity"
	"mentor-miniapp/internal/logging"
	"mentor-miniapp/internal/store"

	"github.com/spf13/cobra"
)

type App struct {
	ConfigPath string
	APIURL     string
	DataDir    string
	LogLevel   string
	LogFormat  string
	PrettyJSON bool
	Format     string
	InitData   string

	cfg *config.Config
	log *slog.Logger
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:           "mentor",
		Short:         "Mentor mini-app host and terminal client",
		SilenceUsage:  true,
		SilenceErrors: true,
		Example: strings.TrimSpace(`
  # Serve the mini-app page for the platform webview
  mentor serve --addr 127.0.0.1:3340

  # Today's dashboard in the terminal
  mentor status

  # Run one user action through the dispatcher
  mentor intent quick-task-form submit title="Push-ups" difficulty=hard

  # Talk to the mentor
  mentor chat
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return app.load(cmd)
	}

	cmd.PersistentFlags().StringVar(&app.ConfigPath, "config", envOr("MENTOR_CONFIG", ""), "Path to config.yaml (default: $MENTOR_CONFIG_DIR/config.yaml or ~/.mentor/config.yaml)")
	cmd.PersistentFlags().StringVar(&app.APIURL, "api-url", envOr("MENTOR_API_URL", ""), "Backend base URL (overrides api.base_url)")
	cmd.PersistentFlags().StringVar(&app.DataDir, "data-dir", envOr("MENTOR_DATA_DIR", ""), "Directory for local.sqlite and the web signing key (overrides storage.dir)")
	cmd.PersistentFlags().StringVar(&app.LogLevel, "log-level", envOr("MENTOR_LOG_LEVEL", ""), "Log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&app.LogFormat, "log-format", envOr("MENTOR_LOG_FORMAT", ""), "Log format (text|json)")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("MENTOR_FORMAT", "json"), "Output format (json|edn)")
	cmd.PersistentFlags().StringVar(&app.InitData, "init-data", envOr("MENTOR_INIT_DATA", ""), "Platform launch data (user=<json>&...) to act as that user")

	cmd.AddCommand(newServeCmd(app))
	cmd.AddCommand(newStatusCmd(app))
	cmd.AddCommand(newPlanCmd(app))
	cmd.AddCommand(newChatCmd(app))
	cmd.AddCommand(newIntentCmd(app))
	cmd.AddCommand(newIdentityCmd(app))
	cmd.AddCommand(newBindingsCmd(app))
	cmd.AddCommand(newDocsCmd(app))

	return cmd
}

// load reads the config file and applies flag and env overrides on top.
func (app *App) load(cmd *cobra.Command) error {
	if !format.Valid(app.Format) {
		return writeErr(cmd, fmt.Errorf("unknown format: %s", app.Format))
	}

	cfg, err := config.Load(app.ConfigPath)
	if err != nil {
		return writeErr(cmd, err)
	}
	if v := strings.TrimSpace(app.APIURL); v != "" {
		cfg.API.BaseURL = v
	}
	if v := strings.TrimSpace(app.DataDir); v != "" {
		cfg.Storage.Dir = v
	}
	if v := strings.TrimSpace(app.LogLevel); v != "" {
		cfg.Logging.Level = v
	}
	if v := strings.TrimSpace(app.LogFormat); v != "" {
		cfg.Logging.Format = v
	}
	if err := cfg.Validate(); err != nil {
		return writeErr(cmd, err)
	}
	if strings.TrimSpace(cfg.Storage.Dir) == "" {
		return writeErr(cmd, errors.New("no data dir; set storage.dir or pass --data-dir"))
	}

	app.cfg = cfg
	app.log = logging.New(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr())
	return nil
}

func (app *App) apiClient() (*api.Client, error) {
	return api.New(app.cfg.API.BaseURL,
		api.WithPrefix(app.cfg.API.Prefix),
		api.WithLogger(app.log),
	)
}

func (app *App) resolver(kv identity.KV) *identity.Resolver {
	return identity.NewResolver(kv,
		identity.WithColors(identity.Colors{
			Header:     app.cfg.Host.HeaderColor,
			Background: app.cfg.Host.BackgroundColor,
		}),
		identity.WithLogger(app.log),
	)
}

func (app *App) openKV(ctx context.Context) (*store.KV, error) {
	if err := os.MkdirAll(app.cfg.Storage.Dir, 0o755); err != nil {
		return nil, err
	}
	return store.OpenKV(ctx, app.cfg.Storage.Dir)
}

// startSession builds a started engine session for one terminal command. The
// returned close func releases the session and the local store.
func (app *App) startSession(ctx context.Context, confirmer engine.Confirmer) (*engine.Session, func(), error) {
	hc, err := identity.ParseInitData(app.InitData)
	if err != nil {
		return nil, nil, err
	}
	client, err := app.apiClient()
	if err != nil {
		return nil, nil, err
	}
	kv, err := app.openKV(ctx)
	if err != nil {
		return nil, nil, err
	}
	sess, err := engine.NewSession(engine.Options{
		Backend:    client,
		Identity:   app.resolver(kv),
		HostCtx:    hc,
		Confirmer:  confirmer,
		Logger:     app.log,
		ToastTTL:   app.cfg.Web.ToastDuration,
		ResetDelay: app.cfg.Web.ResetDelay,
	})
	if err != nil {
		_ = kv.Close()
		return nil, nil, err
	}
	closeFn := func() {
		sess.Close()
		_ = kv.Close()
	}
	if err := sess.Start(ctx, nil); err != nil {
		closeFn()
		return nil, nil, err
	}
	return sess, closeFn, nil
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	if Reported(err) {
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return reportedError{err}
}
