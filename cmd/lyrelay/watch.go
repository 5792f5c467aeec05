package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"karolbroda.com/lyrelay/internal/logger"
	"karolbroda.com/lyrelay/internal/server"
	"karolbroda.com/lyrelay/internal/ui"
)

var watchPoll bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "view a running relay",
	Long: `attaches the terminal viewer to a relay started elsewhere with 'lyrelay
serve'. state is pushed over a websocket; if that is not available the
viewer polls /api/state instead.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := initLogger(cfg, false); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
		defer stop()

		client, err := server.NewClient(cfg.ServerURL, cfg.HTTPTimeout)
		if err != nil {
			return err
		}

		var feed ui.Feed = client
		if !watchPoll {
			updates, err := client.Stream(ctx)
			if err != nil {
				logger.Warn("state stream unavailable, polling instead", logger.ErrorField(err))
			} else {
				feed = ui.NewStreamFeed(updates, client)
			}
		}

		return runProgram(ctx, cfg, feed)
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().BoolVar(&watchPoll, "poll", false, "poll the state endpoint instead of streaming")
}
