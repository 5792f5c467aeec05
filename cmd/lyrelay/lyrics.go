package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"karolbroda.com/lyrelay/internal/colors"
	"karolbroda.com/lyrelay/internal/config"
	"karolbroda.com/lyrelay/internal/lyrics"
)

var lyricsDuration int64

var lyricsCmd = &cobra.Command{
	Use:   "lyrics",
	Short: "lyrics lookup utilities",
	Long:  `resolve lyrics the way the relay does and inspect the result.`,
}

var lyricsSearchCmd = &cobra.Command{
	Use:   "search <artist> <title>",
	Short: "resolve lyrics on lrclib",
	Long:  `runs the relay's lookup for a track and shows what was found and how.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		req := lyrics.Request{Artists: []string{args[0]}, Title: args[1], DurationSecs: lyricsDuration}

		fmt.Printf("searching for: %s - %s\n", args[0], args[1])
		if normalized := lyrics.NormalizeTitle(req.Title); normalized != req.Title {
			fmt.Printf("normalized title: %s\n", normalized)
		}
		fmt.Println()

		out, err := resolveOnce(cmd.Context(), cfg, req)
		if err != nil {
			return err
		}
		if !out.Found {
			if out.Degraded != nil {
				return fmt.Errorf("lyrics source unavailable: %w", out.Degraded)
			}
			return fmt.Errorf("no lyrics found after %d attempt(s)", out.Attempts)
		}

		rec := out.Record
		fmt.Printf("found lyrics after %d attempt(s):\n", out.Attempts)
		fmt.Printf("  id:           %d\n", rec.ID)
		fmt.Printf("  track:        %s\n", rec.TrackName)
		fmt.Printf("  artist:       %s\n", rec.ArtistName)
		if rec.AlbumName != "" {
			fmt.Printf("  album:        %s\n", rec.AlbumName)
		}
		if rec.Duration > 0 {
			fmt.Printf("  duration:     %.0fs\n", rec.Duration)
		}
		fmt.Printf("  instrumental: %v\n", rec.Instrumental)
		fmt.Printf("  synced lines: %s\n", countOrNone(len(lyrics.Parse(rec.SyncedLyrics))))
		fmt.Printf("  plain lines:  %s\n", countOrNone(len(lyrics.FromPlain(rec.PlainLyrics))))

		fmt.Println("\nuse 'lyrelay lyrics preview' to see them annotated")
		return nil
	},
}

var lyricsPreviewCmd = &cobra.Command{
	Use:   "preview <artist> <title>",
	Short: "preview annotated lyrics in the terminal",
	Long:  `prints the lyrics with timestamps, pinyin and translation, as the relay would serve them.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := initLogger(cfg, false); err != nil {
			return err
		}

		ctx := cmd.Context()
		out, err := resolveOnce(ctx, cfg, lyrics.Request{Artists: []string{args[0]}, Title: args[1], DurationSecs: lyricsDuration})
		if err != nil {
			return err
		}
		if !out.Found {
			return fmt.Errorf("no lyrics found for %s - %s", args[0], args[1])
		}

		synced := strings.TrimSpace(out.Record.SyncedLyrics) != ""
		lines := lyrics.FromPlain(out.Record.PlainLyrics)
		if synced {
			lines = lyrics.Parse(out.Record.SyncedLyrics)
		}

		lines, report := newPipeline(cfg).Enrich(ctx, lines)
		fmt.Printf("%s - %s\n\n", out.Record.ArtistName, out.Record.TrackName)
		for _, line := range lines {
			if synced {
				fmt.Printf("[%s] %s\n", colors.FormatTime(secondsToDuration(line.TimeSeconds)), line.Text)
			} else {
				fmt.Println(line.Text)
			}
			if line.Phonetic.Text != "" {
				fmt.Printf("        %s\n", line.Phonetic.Text)
			}
			if line.Translation.Text != "" {
				fmt.Printf("        %s\n", line.Translation.Text)
			}
		}

		if report.TranslationUnavailable != nil && report.Qualifying > 0 {
			fmt.Printf("\ntranslation unavailable: %v\n", report.TranslationUnavailable)
		}
		return nil
	},
}

func resolveOnce(ctx context.Context, cfg *config.Config, req lyrics.Request) (lyrics.Outcome, error) {
	client, err := lyrics.NewClient(cfg.LrclibURL, cfg.HTTPTimeout)
	if err != nil {
		return lyrics.Outcome{}, err
	}
	return lyrics.NewResolver(client).Resolve(ctx, req), nil
}

func secondsToDuration(secs float64) time.Duration {
	return time.Duration(secs * float64(time.Second))
}

func countOrNone(n int) string {
	if n == 0 {
		return "none"
	}
	return fmt.Sprint(n)
}

func init() {
	rootCmd.AddCommand(lyricsCmd)
	lyricsCmd.AddCommand(lyricsSearchCmd)
	lyricsCmd.AddCommand(lyricsPreviewCmd)

	lyricsCmd.PersistentFlags().Int64VarP(&lyricsDuration, "duration", "d", 0, "track duration in seconds, narrows the lookup")
}
