package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/example/go-german-cv/internal/phonemizer"
	"github.com/example/go-german-cv/internal/server"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the phonemizer HTTP server",
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			srv := server.New(cfg, phonemizer.New(phonemizer.WithLogger(slog.Default())))

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			slog.Info("serving", slog.String("addr", cfg.Server.ListenAddr), slog.Int("workers", cfg.Server.Workers))
			return srv.Start(ctx)
		},
	}

	return cmd
}
