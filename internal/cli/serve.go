package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"mentor-miniapp/internal/engine"
	"mentor-miniapp/internal/web"

	"github.com/spf13/cobra"
)

func newServeCmd(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the mini-app page (datastar + SSE)",
		Long: strings.TrimSpace(`
Serve the mini-app page from a local HTTP server.

The platform webview opens the page; every user action is posted back and
answered with server-sent patches of the re-rendered regions. Each browser
gets its own engine session, keyed by a signed cookie.
`),
		Example: strings.TrimSpace(`
# Serve on the configured address
mentor serve

# Serve on all interfaces, port 3340
mentor serve --addr :3340
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			listenAddr := strings.TrimSpace(addr)
			if listenAddr == "" {
				listenAddr = app.cfg.Web.Addr
			}
			if listenAddr == "" {
				return writeErr(cmd, errors.New("serve: missing --addr"))
			}

			client, err := app.apiClient()
			if err != nil {
				return writeErr(cmd, err)
			}
			kv, err := app.openKV(cmd.Context())
			if err != nil {
				return writeErr(cmd, err)
			}
			defer kv.Close()
			// One resolver for every browser: without platform launch data they
			// all share this host's fallback identity.
			ids := app.resolver(kv)

			factory := func() (*engine.Session, error) {
				return engine.NewSession(engine.Options{
					Backend:    client,
					Identity:   ids,
					Logger:     app.log,
					ToastTTL:   app.cfg.Web.ToastDuration,
					ResetDelay: app.cfg.Web.ResetDelay,
				})
			}

			srv, err := web.NewServer(web.ServerConfig{
				Addr:        listenAddr,
				StateDir:    app.cfg.Storage.Dir,
				DatastarURL: app.cfg.Web.DatastarURL,
				Logger:      app.log,
			}, factory)
			if err != nil {
				return writeErr(cmd, err)
			}

			ln, err := net.Listen("tcp", listenAddr)
			if err != nil {
				return writeErr(cmd, err)
			}

			actualAddr := ln.Addr().String()
			url := "http://" + actualAddr + "/"
			_ = writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"addr":      actualAddr,
					"url":       url,
					"api":       client.BaseURL(),
					"dataDir":   app.cfg.Storage.Dir,
					"startedAt": time.Now().UTC().Format(time.RFC3339Nano),
				},
				"_hints": []string{"open " + url},
			})
			fmt.Fprintf(cmd.ErrOrStderr(), "Mentor running at %s (api=%s)\n", url, client.BaseURL())

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := srv.Serve(ctx, ln); err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Bind address (host:port or :port; default web.addr)")
	return cmd
}
