package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ahearne/cellring/internal/kv"
	"github.com/ahearne/cellring/internal/server"
	"github.com/ahearne/cellring/internal/starred"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Addr     string
	Database string
	Search   string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the simulation to a rendering layer",
		Long: `Serve the simulation state over HTTP and WebSocket. The rendering
layer reads snapshots, drives the start/stop/reset/config controls and
manages starred configurations.

If --search carries any recognized parameter the simulation starts
immediately; otherwise it waits at generation 0.

Example:
  cellring serve --addr :8473 --db ./cellring.db
  cellring serve --search "?r=110&w=200&g=300"`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "127.0.0.1:8473", "listen address")
	cmd.Flags().StringVar(&opts.Database, "db", "cellring.db", "path to the SQLite store")
	cmd.Flags().StringVar(&opts.Search, "search", "", "initial shareable query string")

	return cmd
}

func runServer(opts *ServeOptions, cmd *cobra.Command) error {
	db, err := kv.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open store", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing store", "error", closeErr)
		}
	}()

	srv := server.New(server.Options{
		Search: opts.Search,
		Store:  starred.NewStore(db),
	})

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := srv.Run(ctx, opts.Addr); err != nil && err != context.Canceled {
		return WrapExitError(ExitFailure, "server error", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}
