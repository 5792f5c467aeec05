package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	PlayerMPRIS   = "mpris"
	PlayerSpotify = "spotify"

	DefaultMprisService       = "org.mpris.MediaPlayer2.spotify"
	DefaultLrclibURL          = "https://lrclib.net/api"
	DefaultSpotifyRedirectURL = "http://127.0.0.1:8888/callback"
	DefaultListenAddr         = "127.0.0.1:5000"
	DefaultPollInterval       = 2 * time.Second
	DefaultClientPollInterval = time.Second
	DefaultHTTPTimeout        = 10 * time.Second
	DefaultAdvanceThreshold   = 0.4
	DefaultCacheSize          = 256
	DefaultCacheTTL           = 24 * time.Hour
)

type Config struct {
	Player       string
	MprisService string

	SpotifyClientID     string
	SpotifyClientSecret string
	SpotifyRefreshToken string
	SpotifyRedirectURL  string

	LrclibURL   string
	HTTPTimeout time.Duration

	AddTranslation  bool
	TranslateURL    string
	TranslateAPIKey string
	TranslateSource string
	TranslateTarget string

	PollInterval       time.Duration
	ClientPollInterval time.Duration
	AdvanceThreshold   float64
	JitterTolerance    time.Duration

	ListenAddr    string
	ServerURL     string
	RefreshOnRead bool

	CacheSize int
	CacheTTL  time.Duration

	SyncOffset float64
	HideHeader bool

	LogLevel string
	LogFile  string
}

// Error describes one invalid setting.
type Error struct {
	Key     string
	Message string
}

func newError(key, message string) Error {
	return Error{Key: key, Message: message}
}

func (e Error) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Key, e.Message)
}

// LoadDotEnv reads .env from the working directory if present. Values
// already in the environment win.
func LoadDotEnv() {
	_ = godotenv.Load()
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	return FromLookup(os.LookupEnv)
}

// FromLookup reads the configuration through lookup. Every invalid key is
// reported, joined into one error.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	env := environment{lookup: lookup}

	cfg := &Config{
		Player:       strings.ToLower(env.str("PLAYER", PlayerMPRIS)),
		MprisService: env.str("MPRIS_SERVICE", DefaultMprisService),

		SpotifyClientID:     env.str("SPOTIFY_CLIENT_ID", ""),
		SpotifyClientSecret: env.str("SPOTIFY_CLIENT_SECRET", ""),
		SpotifyRefreshToken: env.str("SPOTIFY_REFRESH_TOKEN", ""),
		SpotifyRedirectURL:  env.str("SPOTIFY_REDIRECT_URL", DefaultSpotifyRedirectURL),

		LrclibURL:   env.str("LRCLIB_URL", DefaultLrclibURL),
		HTTPTimeout: env.duration("HTTP_TIMEOUT", DefaultHTTPTimeout),

		AddTranslation:  env.boolean("ADD_TRANSLATION", true),
		TranslateURL:    env.str("TRANSLATE_URL", ""),
		TranslateAPIKey: env.str("TRANSLATE_API_KEY", ""),
		TranslateSource: env.str("TRANSLATE_SOURCE", "zh"),
		TranslateTarget: env.str("TRANSLATE_TARGET", "en"),

		PollInterval:       env.duration("POLL_INTERVAL", DefaultPollInterval),
		ClientPollInterval: env.duration("CLIENT_POLL_INTERVAL", DefaultClientPollInterval),
		AdvanceThreshold:   env.float("ADVANCE_THRESHOLD", DefaultAdvanceThreshold),
		JitterTolerance:    env.duration("JITTER_TOLERANCE", 0),

		ListenAddr:    env.str("LISTEN_ADDR", DefaultListenAddr),
		ServerURL:     env.str("LYRELAY_SERVER", "http://"+DefaultListenAddr),
		RefreshOnRead: env.boolean("REFRESH_ON_READ", true),

		CacheSize: env.integer("CACHE_SIZE", DefaultCacheSize),
		CacheTTL:  env.duration("CACHE_TTL", DefaultCacheTTL),

		SyncOffset: env.float("SYNC_OFFSET", 0),
		HideHeader: env.boolean("HIDE_HEADER", false),

		LogLevel: strings.ToLower(env.str("LOG_LEVEL", "info")),
		LogFile:  env.str("LOG_FILE", ""),
	}

	env.errs = append(env.errs, cfg.Validate()...)
	if len(env.errs) > 0 {
		return cfg, errors.Join(env.errs...)
	}
	return cfg, nil
}

// Validate checks values that flags may have changed after loading.
func (c *Config) Validate() []error {
	var errs []error
	if c.Player != PlayerMPRIS && c.Player != PlayerSpotify {
		errs = append(errs, newError("PLAYER", fmt.Sprintf("must be %q or %q, got %q", PlayerMPRIS, PlayerSpotify, c.Player)))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, newError("POLL_INTERVAL", "must be positive"))
	}
	if c.ClientPollInterval <= 0 {
		errs = append(errs, newError("CLIENT_POLL_INTERVAL", "must be positive"))
	}
	if c.AdvanceThreshold < 0 || c.AdvanceThreshold > 1 {
		errs = append(errs, newError("ADVANCE_THRESHOLD", "must be between 0 and 1"))
	}
	if c.JitterTolerance < 0 {
		errs = append(errs, newError("JITTER_TOLERANCE", "must not be negative"))
	}
	if c.CacheSize <= 0 {
		errs = append(errs, newError("CACHE_SIZE", "must be positive"))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, newError("LOG_LEVEL", fmt.Sprintf("unknown level %q", c.LogLevel)))
	}
	return errs
}

type environment struct {
	lookup func(string) (string, bool)
	errs   []error
}

func (e *environment) raw(key string) (string, bool) {
	value, ok := e.lookup(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

func (e *environment) str(key, fallback string) string {
	if value, ok := e.raw(key); ok {
		return value
	}
	return fallback
}

func (e *environment) boolean(key string, fallback bool) bool {
	value, ok := e.raw(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(value) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	e.errs = append(e.errs, newError(key, fmt.Sprintf("invalid boolean %q", value)))
	return fallback
}

func (e *environment) integer(key string, fallback int) int {
	value, ok := e.raw(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		e.errs = append(e.errs, newError(key, fmt.Sprintf("invalid integer %q", value)))
		return fallback
	}
	return n
}

func (e *environment) float(key string, fallback float64) float64 {
	value, ok := e.raw(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		e.errs = append(e.errs, newError(key, fmt.Sprintf("invalid number %q", value)))
		return fallback
	}
	return f
}

// duration accepts Go duration strings and bare numbers of seconds.
func (e *environment) duration(key string, fallback time.Duration) time.Duration {
	value, ok := e.raw(key)
	if !ok {
		return fallback
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	e.errs = append(e.errs, newError(key, fmt.Sprintf("invalid duration %q", value)))
	return fallback
}
