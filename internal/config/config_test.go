package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(nil))
	require.NoError(t, err)

	assert.Equal(t, PlayerMPRIS, cfg.Player)
	assert.Equal(t, DefaultMprisService, cfg.MprisService)
	assert.Equal(t, DefaultLrclibURL, cfg.LrclibURL)
	assert.Equal(t, 2*time.Second, cfg.PollInterval)
	assert.Equal(t, 0.4, cfg.AdvanceThreshold)
	assert.Equal(t, "127.0.0.1:5000", cfg.ListenAddr)
	assert.True(t, cfg.AddTranslation)
	assert.True(t, cfg.RefreshOnRead)
	assert.Zero(t, cfg.JitterTolerance)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestOverrides(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(map[string]string{
		"PLAYER":            "Spotify",
		"POLL_INTERVAL":     "500ms",
		"HTTP_TIMEOUT":      "3",
		"ADVANCE_THRESHOLD": "0.25",
		"ADD_TRANSLATION":   "no",
		"CACHE_SIZE":        "16",
		"SYNC_OFFSET":       "-0.5",
		"HIDE_HEADER":       "yes",
		"TRANSLATE_URL":     " http://localhost:5001 ",
		"LOG_LEVEL":         "DEBUG",
	}))
	require.NoError(t, err)

	assert.Equal(t, PlayerSpotify, cfg.Player)
	assert.Equal(t, 500*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, 3*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 0.25, cfg.AdvanceThreshold)
	assert.False(t, cfg.AddTranslation)
	assert.Equal(t, 16, cfg.CacheSize)
	assert.Equal(t, -0.5, cfg.SyncOffset)
	assert.True(t, cfg.HideHeader)
	assert.Equal(t, "http://localhost:5001", cfg.TranslateURL)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestInvalidValuesAreAllReported(t *testing.T) {
	_, err := FromLookup(lookupFrom(map[string]string{
		"PLAYER":            "winamp",
		"POLL_INTERVAL":     "soon",
		"ADVANCE_THRESHOLD": "1.5",
		"CACHE_SIZE":        "many",
		"REFRESH_ON_READ":   "maybe",
	}))
	require.Error(t, err)

	var keys []string
	for _, e := range err.(interface{ Unwrap() []error }).Unwrap() {
		var cfgErr Error
		require.True(t, errors.As(e, &cfgErr))
		keys = append(keys, cfgErr.Key)
	}
	assert.ElementsMatch(t, []string{"PLAYER", "POLL_INTERVAL", "ADVANCE_THRESHOLD", "CACHE_SIZE", "REFRESH_ON_READ"}, keys)
}

func TestEmptyValueFallsBack(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(map[string]string{"LISTEN_ADDR": "  "}))
	require.NoError(t, err)
	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LYRELAY_TEST_DOTENV=from-file\n"), 0o600))
	t.Chdir(dir)
	t.Setenv("LYRELAY_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("LYRELAY_TEST_DOTENV"))

	LoadDotEnv()

	assert.Equal(t, "from-file", os.Getenv("LYRELAY_TEST_DOTENV"))
}
