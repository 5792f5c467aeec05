package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"karolbroda.com/lyrelay/internal/config"
	"karolbroda.com/lyrelay/internal/logger"
)

var (
	// global flags
	playerKind    string
	mprisService  string
	lrclibURL     string
	listenAddr    string
	serverURL     string
	logLevel      string
	logFile       string
	noTranslation bool
	advanceFrac   float64
	syncOffset    float64
	hideHeader    bool
)

var rootCmd = &cobra.Command{
	Use:   "lyrelay",
	Short: "synced lyrics relay with pinyin and translation",
	Long: `lyrelay follows what your music player is playing, fetches time-synced
lyrics from lrclib, annotates chinese lines with pinyin and an english
translation, and serves the result over http for any number of viewers.

when run without a subcommand, it starts the relay and the terminal viewer.`,
	Version: "1.0.0",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runViewer(cmd, args)
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&playerKind, "player", "p", "", "playback source: mpris or spotify")
	flags.StringVarP(&mprisService, "mpris-service", "m", "", "mpris service name (e.g., org.mpris.MediaPlayer2.spotify)")
	flags.StringVar(&lrclibURL, "lrclib-url", "", "custom lrclib api url")
	flags.StringVarP(&listenAddr, "listen", "l", "", "http listen address for the state endpoint")
	flags.StringVar(&serverURL, "server", "", "relay url for the watch command")
	flags.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.StringVar(&logFile, "log-file", "", "write logs to this file, rotated")
	flags.BoolVar(&noTranslation, "no-translation", false, "do not translate lyric lines")
	flags.Float64Var(&advanceFrac, "advance-threshold", 0, "fraction of a line gap to wait before advancing")
	flags.Float64VarP(&syncOffset, "sync-offset", "s", 0, "initial sync offset in seconds")
	flags.BoolVarP(&hideHeader, "hide-header", "H", false, "hide header section")
}

// loadConfig reads .env and the environment, then applies any flags the
// user set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("player") {
		cfg.Player = strings.ToLower(playerKind)
	}
	if mprisService != "" {
		cfg.MprisService = mprisService
	}
	if lrclibURL != "" {
		cfg.LrclibURL = lrclibURL
	}
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}
	if serverURL != "" {
		cfg.ServerURL = serverURL
	}
	if logLevel != "" {
		cfg.LogLevel = strings.ToLower(logLevel)
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}
	if noTranslation {
		cfg.AddTranslation = false
	}
	if flags.Changed("advance-threshold") {
		cfg.AdvanceThreshold = advanceFrac
	}
	if flags.Changed("sync-offset") {
		cfg.SyncOffset = syncOffset
	}
	if flags.Changed("hide-header") {
		cfg.HideHeader = hideHeader
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// initLogger sets up zap for a command. Interactive commands pass
// console=false so log lines never land on the alternate screen.
func initLogger(cfg *config.Config, console bool) error {
	err := logger.Init(logger.Config{
		Level:      cfg.LogLevel,
		Console:    console,
		OutputPath: cfg.LogFile,
		Compress:   true,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

func Execute() {
	err := rootCmd.Execute()
	logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
