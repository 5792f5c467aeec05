package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"karolbroda.com/lyrelay/internal/spotify"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "authorize playback sources",
}

var authSpotifyCmd = &cobra.Command{
	Use:   "spotify",
	Short: "obtain a spotify refresh token",
	Long: `runs the spotify authorization-code flow. open the printed url, approve
access, and the refresh token is printed for SPOTIFY_REFRESH_TOKEN.

the callback listens on SPOTIFY_REDIRECT_URL, which must be registered for
your spotify app.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.SpotifyClientID == "" || cfg.SpotifyClientSecret == "" {
			return errors.New("SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET must be set")
		}

		redirect, err := url.Parse(cfg.SpotifyRedirectURL)
		if err != nil {
			return fmt.Errorf("invalid redirect url: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		oauth := spotify.OAuth(spotifyConfig(cfg))
		state, err := randomState()
		if err != nil {
			return err
		}

		token, err := awaitCallback(ctx, redirect, oauth, state)
		if err != nil {
			return err
		}
		if token.RefreshToken == "" {
			return errors.New("spotify did not return a refresh token")
		}

		fmt.Println("\nauthorized. add this to your .env:")
		fmt.Printf("\nSPOTIFY_REFRESH_TOKEN=%s\n", token.RefreshToken)
		return nil
	},
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// awaitCallback serves the redirect URL until spotify calls back with a code,
// then exchanges it for a token.
func awaitCallback(ctx context.Context, redirect *url.URL, oauth *oauth2.Config, state string) (*oauth2.Token, error) {
	type result struct {
		token *oauth2.Token
		err   error
	}
	done := make(chan result, 1)
	finish := func(r result) {
		select {
		case done <- r:
		default:
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc(redirect.Path, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		if e := q.Get("error"); e != "" {
			http.Error(w, "authorization denied", http.StatusForbidden)
			finish(result{err: fmt.Errorf("authorization denied: %s", e)})
			return
		}

		token, err := oauth.Exchange(r.Context(), q.Get("code"))
		if err != nil {
			http.Error(w, "token exchange failed", http.StatusBadGateway)
			finish(result{err: fmt.Errorf("token exchange failed: %w", err)})
			return
		}
		fmt.Fprintln(w, "lyrelay is authorized, you can close this tab.")
		finish(result{token: token})
	})

	ln, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", redirect.Host, err)
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	fmt.Println("open this url in your browser to authorize lyrelay:")
	fmt.Println()
	fmt.Println(oauth.AuthCodeURL(state, oauth2.AccessTypeOffline))

	select {
	case r := <-done:
		return r.token, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authSpotifyCmd)
}
