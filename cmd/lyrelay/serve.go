package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"karolbroda.com/lyrelay/internal/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "run the relay without a viewer",
	Long: `polls the playback source, resolves and annotates lyrics on every track
change, and serves the state as json on /api/state and as a websocket push
on /api/state/ws.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := initLogger(cfg, true); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		r, err := newRelay(ctx, cfg)
		if err != nil {
			return err
		}
		defer r.close()

		if err := r.run(ctx, true); err != nil {
			return err
		}
		logger.Info("relay stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
