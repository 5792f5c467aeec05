package main

import (
	"context"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/spf13/cobra"

	"karolbroda.com/lyrelay/internal/colors"
	"karolbroda.com/lyrelay/internal/player"
)

var playerCmd = &cobra.Command{
	Use:   "player",
	Short: "playback source utilities",
	Long:  `discover mpris players and check what the configured source reports.`,
}

var playerListCmd = &cobra.Command{
	Use:   "list",
	Short: "list available mpris players",
	Long:  `list all mpris-compatible music players currently running on the system.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		bus, err := dbus.ConnectSessionBus()
		if err != nil {
			return fmt.Errorf("failed to connect to session bus: %w", err)
		}
		defer bus.Close()

		players, err := player.ListPlayers(cmd.Context(), bus)
		if err != nil {
			return err
		}

		if len(players) == 0 {
			fmt.Println("no mpris players found")
			fmt.Println("\ncheck if your music player is running and supports mpris")
			return nil
		}

		fmt.Printf("found %d mpris player(s):\n\n", len(players))
		for _, p := range players {
			if p.Identity != "" {
				fmt.Printf("  %s (%s)\n", p.Service, p.Identity)
			} else {
				fmt.Printf("  %s\n", p.Service)
			}
		}

		fmt.Println("\nuse --mpris-service flag to specify which player to use")
		return nil
	},
}

var playerCurrentCmd = &cobra.Command{
	Use:   "current",
	Short: "show currently playing track",
	Long:  `display what the configured playback source reports right now.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.HTTPTimeout)
		defer cancel()

		source, closeSource, err := connectSource(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to player: %w", err)
		}
		defer closeSource()

		pb, err := source.CurrentPlayback(ctx)
		if err != nil {
			return err
		}
		if pb == nil || !pb.Track.IsValid() {
			fmt.Println("no track currently playing")
			return nil
		}

		trk := pb.Track
		fmt.Printf("source:   %s\n", cfg.Player)
		fmt.Printf("id:       %s\n", trk.Key())
		fmt.Printf("title:    %s\n", trk.Title)
		fmt.Printf("artist:   %s\n", trk.DisplayArtists())
		if trk.Album != "" {
			fmt.Printf("album:    %s\n", trk.Album)
		}
		if trk.DurationMs > 0 {
			fmt.Printf("duration: %s\n", colors.FormatTime(time.Duration(trk.DurationMs)*time.Millisecond))
		}
		if trk.ArtworkURL != "" {
			fmt.Printf("artwork:  %s\n", trk.ArtworkURL)
		}
		if pb.Playing {
			fmt.Printf("state:    playing\n")
		} else {
			fmt.Printf("state:    paused\n")
		}
		fmt.Printf("position: %s\n", colors.FormatTime(time.Duration(pb.ProgressMs)*time.Millisecond))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(playerCmd)

	playerCmd.AddCommand(playerListCmd)
	playerCmd.AddCommand(playerCurrentCmd)
}
