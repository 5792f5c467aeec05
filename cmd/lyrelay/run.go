package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"karolbroda.com/lyrelay/internal/config"
	"karolbroda.com/lyrelay/internal/logger"
	"karolbroda.com/lyrelay/internal/ui"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "start the relay and the interactive lyrics viewer",
	Long: `starts the relay in this process and shows it in the terminal viewer. the
http endpoint stays up, so other viewers can attach with 'lyrelay watch'.`,
	RunE: runViewer,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runViewer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := initLogger(cfg, false); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	r, err := newRelay(ctx, cfg)
	if err != nil {
		return err
	}
	defer r.close()

	// the viewer only needs the store, so a busy listen address does not
	// stop it; a relay failure ends the viewer instead of freezing it
	viewCtx, cancelView := context.WithCancel(ctx)
	defer cancelView()
	relayErr := make(chan error, 1)
	go func() {
		relayErr <- r.run(ctx, false)
		cancelView()
	}()

	err = runProgram(viewCtx, cfg, ui.StoreFeed{Store: r.store})
	stop()
	if rerr := <-relayErr; rerr != nil {
		logger.Error("relay failed", logger.ErrorField(rerr))
		if err == nil {
			err = rerr
		}
	}
	return err
}

// runProgram shows the viewer until the user quits or ctx is done.
func runProgram(ctx context.Context, cfg *config.Config, feed ui.Feed) error {
	model := ui.NewModel(ui.ModelConfig{
		Feed:            feed,
		PollInterval:    cfg.ClientPollInterval,
		AdvanceFraction: cfg.AdvanceThreshold,
		JitterTolerance: cfg.JitterTolerance,
		SyncOffset:      cfg.SyncOffset,
		HideHeader:      cfg.HideHeader,
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("error running bubble tea: %w", err)
	}
	return nil
}
