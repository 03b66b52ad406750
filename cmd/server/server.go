// Package server implements the serve command.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oar-cd/skiff/app"
	"github.com/oar-cd/skiff/cmd/utils"
	"github.com/oar-cd/skiff/server"
	"github.com/oar-cd/skiff/watcher"
)

// NewCmdServe creates the command running the HTTP API
func NewCmdServe(rt *utils.Runtime) *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve the deploy pipeline over HTTP until interrupted.

POST /api/deploy accepts {"repo_url": "...", "branch": "..."} or {"path": "..."}.
When watch.interval is set, Git projects are redeployed whenever their branch moves.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rt.GetApp()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("host") {
				host = a.Config.HTTPHost
			}
			if !cmd.Flags().Changed("port") {
				port = a.Config.HTTPPort
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, a, net.JoinHostPort(host, strconv.Itoa(port)))
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Address to listen on (defaults to http.host)")
	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (defaults to http.port)")
	return cmd
}

func runServe(ctx context.Context, a *app.App, addr string) error {
	p, err := a.Pipeline()
	if err != nil {
		return utils.CommandError("preparing deployment pipeline", err)
	}

	handlers := server.NewHandlers(p, a.Projects, a.Deployments, a.Containers, app.Version)

	ctx, cancel := context.WithCancel(ctx)
	watcherDone := make(chan struct{})
	defer func() {
		// The watcher may be mid-deploy; wait before the database is closed
		cancel()
		<-watcherDone
	}()

	if interval := a.Config.WatchInterval; interval > 0 {
		w := watcher.NewWatcherService(a.Projects, a.Containers, a.Git, p, interval)
		go func() {
			defer close(watcherDone)
			if err := w.Start(ctx); err != nil {
				slog.Error("Watcher stopped", "layer", "cmd", "error", err)
			}
		}()
	} else {
		close(watcherDone)
	}

	slog.Info("Starting Skiff server", "layer", "cmd", "address", addr, "version", app.Version)
	if err := server.Serve(ctx, addr, server.NewRouter(handlers)); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}
