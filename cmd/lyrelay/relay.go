package main

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"karolbroda.com/lyrelay/internal/cache"
	"karolbroda.com/lyrelay/internal/config"
	"karolbroda.com/lyrelay/internal/enrich"
	"karolbroda.com/lyrelay/internal/logger"
	"karolbroda.com/lyrelay/internal/lyrics"
	"karolbroda.com/lyrelay/internal/player"
	"karolbroda.com/lyrelay/internal/refresh"
	"karolbroda.com/lyrelay/internal/server"
	"karolbroda.com/lyrelay/internal/spotify"
	"karolbroda.com/lyrelay/internal/state"
)

// relay is the assembled poll loop, state store and http server.
type relay struct {
	cfg       *config.Config
	source    player.Source
	store     *state.Store
	refresher *refresh.Refresher
	server    *server.Server
	outcomes  *cache.Store[string, lyrics.Outcome]
	closers   []func() error
}

func connectSource(ctx context.Context, cfg *config.Config) (player.Source, func() error, error) {
	switch cfg.Player {
	case config.PlayerSpotify:
		client, err := spotify.Connect(ctx, spotifyConfig(cfg))
		if err != nil {
			return nil, nil, err
		}
		return client, func() error { return nil }, nil
	default:
		m, err := player.ConnectMPRIS(ctx, cfg.MprisService)
		if err != nil {
			return nil, nil, err
		}
		return m, m.Close, nil
	}
}

func spotifyConfig(cfg *config.Config) spotify.Config {
	return spotify.Config{
		ClientID:     cfg.SpotifyClientID,
		ClientSecret: cfg.SpotifyClientSecret,
		RefreshToken: cfg.SpotifyRefreshToken,
		RedirectURL:  cfg.SpotifyRedirectURL,
		Timeout:      cfg.HTTPTimeout,
	}
}

func newResolver(cfg *config.Config, outcomes *cache.Store[string, lyrics.Outcome]) (refresh.Resolver, error) {
	client, err := lyrics.NewClient(cfg.LrclibURL, cfg.HTTPTimeout)
	if err != nil {
		return nil, err
	}
	return cache.NewResolver(lyrics.NewResolver(client), outcomes), nil
}

// newPipeline builds the enrichment pipeline. The simplifier and the
// translator are optional; failures to set them up are logged and the
// pipeline runs without them.
func newPipeline(cfg *config.Config) *enrich.Pipeline {
	var opts []enrich.Option

	if simplifier, err := enrich.NewSimplifier(); err != nil {
		logger.Warn("traditional chinese conversion disabled", logger.ErrorField(err))
	} else {
		opts = append(opts, enrich.WithConverter(simplifier))
	}

	switch {
	case !cfg.AddTranslation:
		logger.Info("translation disabled")
	case cfg.TranslateURL == "":
		logger.Info("translation disabled, TRANSLATE_URL is not set")
	default:
		translator, err := enrich.NewLibreTranslate(enrich.LibreTranslateConfig{
			URL:     cfg.TranslateURL,
			APIKey:  cfg.TranslateAPIKey,
			Source:  cfg.TranslateSource,
			Target:  cfg.TranslateTarget,
			Timeout: cfg.HTTPTimeout,
		})
		if err != nil {
			logger.Warn("translation disabled", logger.ErrorField(err))
			break
		}
		opts = append(opts,
			enrich.WithTranslator(translator),
			enrich.WithMemo(cache.New[string, string](cfg.CacheSize*16, cfg.CacheTTL)),
		)
	}

	return enrich.NewPipeline(enrich.NewPinyin(), opts...)
}

func newRelay(ctx context.Context, cfg *config.Config) (*relay, error) {
	source, closeSource, err := connectSource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect playback source: %w", err)
	}

	outcomes := cache.New[string, lyrics.Outcome](cfg.CacheSize, cfg.CacheTTL)
	resolver, err := newResolver(cfg, outcomes)
	if err != nil {
		_ = closeSource()
		return nil, err
	}

	var opts []refresh.Option
	if n, ok := source.(player.Notifier); ok {
		opts = append(opts, refresh.WithChanges(n.Changes()))
	}

	store := state.NewStore()
	refresher := refresh.New(source, resolver, newPipeline(cfg), store, opts...)

	r := &relay{
		cfg:       cfg,
		source:    source,
		store:     store,
		refresher: refresher,
		server: server.New(server.Config{
			Addr:          cfg.ListenAddr,
			RefreshOnRead: cfg.RefreshOnRead,
		}, store, refresher),
		outcomes: outcomes,
		closers:  []func() error{closeSource},
	}

	logger.Info("relay ready",
		logger.String("player", cfg.Player),
		logger.String("lrclib", cfg.LrclibURL),
		logger.String("listen", cfg.ListenAddr),
	)
	return r, nil
}

// run drives the poll loop and the http server until ctx is done. When
// serverRequired is false a server failure is logged and the poll loop keeps
// feeding the in-process store.
func (r *relay) run(ctx context.Context, serverRequired bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var g errgroup.Group
	g.Go(func() error {
		err := r.refresher.Run(ctx, r.cfg.PollInterval)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		err := r.server.ListenAndServe(ctx)
		if err == nil {
			return nil
		}
		if serverRequired {
			cancel()
			return fmt.Errorf("state export: %w", err)
		}
		logger.Error("state export unavailable, continuing without it",
			logger.String("listen", r.cfg.ListenAddr),
			logger.ErrorField(err),
		)
		return nil
	})
	return g.Wait()
}

func (r *relay) close() {
	stats := r.outcomes.Stats()
	logger.Info("lyrics cache",
		logger.Int("entries", stats.Entries),
		logger.Int64("hits", int64(stats.Hits)),
		logger.Int64("misses", int64(stats.Misses)),
	)
	for _, c := range r.closers {
		if err := c(); err != nil {
			logger.Warn("close failed", logger.ErrorField(err))
		}
	}
}
