package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	spotifyauth "golang.org/x/oauth2/spotify"

	"karolbroda.com/lyrelay/internal/logger"
	"karolbroda.com/lyrelay/internal/player"
	"karolbroda.com/lyrelay/internal/track"
)

const DefaultAPIBase = "https://api.spotify.com/v1"

var Scopes = []string{"user-read-currently-playing", "user-read-playback-state"}

var ErrNotConnected = errors.New("spotify: no refresh token configured, run 'lyrelay auth spotify'")

type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	RedirectURL  string
	APIBase      string
	AuthURL      string
	TokenURL     string
	Timeout      time.Duration
}

// OAuth builds the authorization-code configuration for cfg.
func OAuth(cfg Config) *oauth2.Config {
	endpoint := spotifyauth.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       Scopes,
		Endpoint:     endpoint,
	}
}

// Client reads the current playback from the Spotify Web API.
type Client struct {
	http    *http.Client
	apiBase string
	timeout time.Duration
	user    string
}

// Connect builds an authorized client and checks it against the profile
// endpoint once, so bad credentials fail at startup.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.RefreshToken == "" {
		return nil, ErrNotConnected
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, errors.New("spotify: client id and secret are required")
	}
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	// token refreshes outlive the connect call
	tokenCtx := context.WithoutCancel(ctx)
	source := OAuth(cfg).TokenSource(tokenCtx, &oauth2.Token{RefreshToken: cfg.RefreshToken})

	httpClient := oauth2.NewClient(tokenCtx, source)
	httpClient.Timeout = cfg.Timeout

	c := &Client{
		http:    httpClient,
		apiBase: strings.TrimRight(cfg.APIBase, "/"),
		timeout: cfg.Timeout,
	}

	var me struct {
		ID          string `json:"id"`
		DisplayName string `json:"display_name"`
	}
	if _, err := c.getJSON(ctx, "/me", &me); err != nil {
		return nil, fmt.Errorf("spotify: failed to verify credentials: %w", err)
	}
	c.user = me.ID
	logger.Info("spotify connected", logger.String("user", me.ID), logger.String("name", me.DisplayName))

	return c, nil
}

func (c *Client) User() string {
	return c.user
}

type currentlyPlaying struct {
	ProgressMs           int64  `json:"progress_ms"`
	IsPlaying            bool   `json:"is_playing"`
	CurrentlyPlayingType string `json:"currently_playing_type"`
	Item                 *struct {
		ID         string `json:"id"`
		URI        string `json:"uri"`
		Name       string `json:"name"`
		DurationMs int64  `json:"duration_ms"`
		Artists    []struct {
			Name string `json:"name"`
		} `json:"artists"`
		Album struct {
			Name   string `json:"name"`
			Images []struct {
				URL string `json:"url"`
			} `json:"images"`
		} `json:"album"`
	} `json:"item"`
}

func (c *Client) CurrentPlayback(ctx context.Context) (*player.Playback, error) {
	var payload currentlyPlaying
	status, err := c.getJSON(ctx, "/me/player/currently-playing?additional_types=track", &payload)
	if err != nil {
		return nil, err
	}
	observed := time.Now()

	if status == http.StatusNoContent || payload.CurrentlyPlayingType != "track" || payload.Item == nil {
		return nil, nil
	}

	item := payload.Item
	identity := track.Identity{
		ID:         item.ID,
		Title:      item.Name,
		Album:      item.Album.Name,
		DurationMs: item.DurationMs,
	}
	if identity.ID == "" {
		// local files have no id
		identity.ID = item.URI
	}
	for _, a := range item.Artists {
		identity.Artists = append(identity.Artists, a.Name)
	}
	if len(item.Album.Images) > 0 {
		identity.ArtworkURL = item.Album.Images[0].URL
	}

	return &player.Playback{
		Track:      identity,
		ProgressMs: payload.ProgressMs,
		Playing:    payload.IsPlaying,
		ObservedAt: observed,
	}, nil
}

func (c *Client) getJSON(parentCtx context.Context, path string, dst any) (int, error) {
	ctx, cancel := context.WithTimeout(parentCtx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiBase+path, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build http request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("spotify request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return resp.StatusCode, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return resp.StatusCode, fmt.Errorf("spotify rate limited, retry after %ss", resp.Header.Get("Retry-After"))
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.StatusCode, fmt.Errorf("spotify returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return resp.StatusCode, fmt.Errorf("failed to decode spotify json: %w", err)
	}
	return resp.StatusCode, nil
}
