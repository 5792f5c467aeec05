package spotify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSpotify struct {
	srv     *httptest.Server
	playing atomic.Value
	tokens  atomic.Int32
}

func newFakeSpotify(t *testing.T) *fakeSpotify {
	t.Helper()
	f := &fakeSpotify{}
	f.playing.Store("")

	mux := http.NewServeMux()
	mux.HandleFunc("POST /token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		f.tokens.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("GET /v1/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id":"listener","display_name":"Listener"}`))
	})
	mux.HandleFunc("GET /v1/me/player/currently-playing", func(w http.ResponseWriter, r *http.Request) {
		body := f.playing.Load().(string)
		if body == "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_, _ = w.Write([]byte(body))
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeSpotify) config() Config {
	return Config{
		ClientID:     "id",
		ClientSecret: "secret",
		RefreshToken: "refresh",
		APIBase:      f.srv.URL + "/v1",
		TokenURL:     f.srv.URL + "/token",
		Timeout:      time.Second,
	}
}

func TestConnectRequiresRefreshToken(t *testing.T) {
	_, err := Connect(context.Background(), Config{ClientID: "id", ClientSecret: "secret"})
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestCurrentPlayback(t *testing.T) {
	f := newFakeSpotify(t)
	c, err := Connect(context.Background(), f.config())
	require.NoError(t, err)
	assert.Equal(t, "listener", c.User())

	pb, err := c.CurrentPlayback(context.Background())
	require.NoError(t, err)
	assert.Nil(t, pb, "204 means nothing playing")

	f.playing.Store(`{
		"progress_ms": 61000,
		"is_playing": true,
		"currently_playing_type": "track",
		"item": {
			"id": "abc",
			"name": "晴天",
			"duration_ms": 269000,
			"artists": [{"name": "周杰伦"}, {"name": "Guest"}],
			"album": {"name": "叶惠美", "images": [{"url": "https://img/large"}, {"url": "https://img/small"}]}
		}
	}`)

	pb, err = c.CurrentPlayback(context.Background())
	require.NoError(t, err)
	require.NotNil(t, pb)
	assert.Equal(t, "abc", pb.Track.ID)
	assert.Equal(t, []string{"周杰伦", "Guest"}, pb.Track.Artists)
	assert.Equal(t, "https://img/large", pb.Track.ArtworkURL)
	assert.Equal(t, int64(61000), pb.ProgressMs)
	assert.True(t, pb.Playing)
	assert.False(t, pb.ObservedAt.IsZero())
	assert.Equal(t, int32(1), f.tokens.Load())
}

func TestCurrentPlaybackIgnoresEpisodes(t *testing.T) {
	f := newFakeSpotify(t)
	f.playing.Store(`{"progress_ms": 1, "is_playing": true, "currently_playing_type": "episode", "item": null}`)

	c, err := Connect(context.Background(), f.config())
	require.NoError(t, err)

	pb, err := c.CurrentPlayback(context.Background())
	require.NoError(t, err)
	assert.Nil(t, pb)
}

func TestOAuthOverridesEndpoint(t *testing.T) {
	oc := OAuth(Config{ClientID: "id", TokenURL: "http://localhost/token", RedirectURL: "http://127.0.0.1:8888/callback"})

	assert.Equal(t, "http://localhost/token", oc.Endpoint.TokenURL)
	assert.Contains(t, oc.AuthCodeURL("state"), "client_id=id")
	assert.Equal(t, Scopes, oc.Scopes)
}
