package refresh

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"karolbroda.com/lyrelay/internal/enrich"
	"karolbroda.com/lyrelay/internal/logger"
	"karolbroda.com/lyrelay/internal/lyrics"
	"karolbroda.com/lyrelay/internal/player"
	"karolbroda.com/lyrelay/internal/state"
	"karolbroda.com/lyrelay/internal/timing"
	"karolbroda.com/lyrelay/internal/track"
)

const DefaultInterval = 2 * time.Second

type Resolver interface {
	Resolve(ctx context.Context, req lyrics.Request) lyrics.Outcome
}

type Enricher interface {
	Enrich(ctx context.Context, lines []lyrics.Line) ([]lyrics.Line, enrich.Report)
}

// Refresher polls the playback source and is the only writer of the store.
// Lyrics are resolved and enriched once per track change, in the background,
// so playback samples keep flowing while a lookup is slow.
type Refresher struct {
	source   player.Source
	resolver Resolver
	enricher Enricher
	store    *state.Store

	changes <-chan struct{}
	trigger chan struct{}
	now     func() time.Time

	mu      sync.Mutex
	lastKey string

	loadMu     sync.Mutex
	cancelLoad context.CancelFunc
	advisories []string
	loads      sync.WaitGroup
}

type Option func(*Refresher)

// WithChanges adds a channel whose signals trigger an immediate tick.
func WithChanges(ch <-chan struct{}) Option {
	return func(r *Refresher) { r.changes = ch }
}

func WithClock(now func() time.Time) Option {
	return func(r *Refresher) { r.now = now }
}

func New(source player.Source, resolver Resolver, enricher Enricher, store *state.Store, opts ...Option) *Refresher {
	r := &Refresher{
		source:   source,
		resolver: resolver,
		enricher: enricher,
		store:    store,
		trigger:  make(chan struct{}, 1),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Trigger asks Run for an extra tick without waiting for it. Requests made
// while one is pending are merged.
func (r *Refresher) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

// Run ticks immediately and then on every interval or trigger until ctx is
// done. Tick failures are logged and never stop the loop.
func (r *Refresher) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("refresh loop started", logger.Duration("interval", interval))
	for {
		if err := r.Tick(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("refresh tick failed", logger.ErrorField(err))
		}

		select {
		case <-ctx.Done():
			r.stopLoad()
			r.Wait()
			logger.Info("refresh loop stopped")
			return ctx.Err()
		case <-ticker.C:
		case <-r.trigger:
		case <-r.changes:
		}
	}
}

// Wait blocks until background lyric loads have finished.
func (r *Refresher) Wait() {
	r.loads.Wait()
}

// Tick performs one refresh. The returned error is the playback source
// failure, which is also recorded in the store. On a track change the
// lyrics are loaded under ctx after Tick returns.
func (r *Refresher) Tick(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pb, err := r.source.CurrentPlayback(ctx)
	if err != nil {
		r.store.Update(func(m *state.Mutation) {
			m.SetError(joinAdvisories("playback error: "+err.Error(), r.currentAdvisories()...))
		})
		return fmt.Errorf("playback source: %w", err)
	}

	if pb == nil || !pb.Track.IsValid() {
		r.store.Update(func(m *state.Mutation) {
			m.SetPlaying(false)
		})
		return nil
	}

	observed := pb.ObservedAt
	if observed.IsZero() {
		observed = r.now()
	}
	sample := timing.Sample{ProgressMs: max(pb.ProgressMs, 0), ObservedAt: observed, Playing: pb.Playing}

	key := pb.Track.Key()
	changed := key != r.lastKey
	r.lastKey = key

	if changed {
		r.stopLoad()
	}

	// advisories are read inside the update so a load publishing
	// concurrently is never overwritten with stale ones
	r.store.Update(func(m *state.Mutation) {
		m.SetTrack(pb.Track)
		m.SetSample(sample)
		if changed {
			r.setAdvisories(nil)
			m.SetLyrics(lyrics.Set{})
			m.SetLyricsPending(true)
		}
		advisories := r.currentAdvisories()
		m.SetError(joinAdvisories("", advisories...))
		m.SetDegraded(len(advisories) > 0)
	})

	if !changed {
		return nil
	}

	logger.Info("track changed",
		logger.String("key", key),
		logger.String("title", pb.Track.Title),
		logger.String("artists", pb.Track.DisplayArtists()),
	)
	r.startLoad(ctx, key, pb.Track)
	return nil
}

// startLoad resolves and enriches lyrics for t in the background. A later
// track change cancels it, and its result is only published while key is
// still the current track.
func (r *Refresher) startLoad(ctx context.Context, key string, t track.Identity) {
	loadCtx, cancel := context.WithCancel(ctx)

	r.loadMu.Lock()
	r.cancelLoad = cancel
	r.loadMu.Unlock()

	r.loads.Add(1)
	go func() {
		defer r.loads.Done()
		defer cancel()

		set, advisories := r.load(loadCtx, t)
		if loadCtx.Err() != nil {
			return
		}

		r.store.Update(func(m *state.Mutation) {
			if m.Current().Track.Key() != key {
				return
			}
			r.setAdvisories(advisories)
			m.SetLyrics(set)
			m.SetLyricsPending(false)
			m.SetError(joinAdvisories("", advisories...))
			m.SetDegraded(len(advisories) > 0)
		})
	}()
}

func (r *Refresher) stopLoad() {
	r.loadMu.Lock()
	defer r.loadMu.Unlock()
	if r.cancelLoad != nil {
		r.cancelLoad()
		r.cancelLoad = nil
	}
}

func (r *Refresher) setAdvisories(advisories []string) {
	r.loadMu.Lock()
	defer r.loadMu.Unlock()
	r.advisories = advisories
}

func (r *Refresher) currentAdvisories() []string {
	r.loadMu.Lock()
	defer r.loadMu.Unlock()
	return append([]string(nil), r.advisories...)
}

func (r *Refresher) load(ctx context.Context, t track.Identity) (lyrics.Set, []string) {
	var advisories []string

	start := r.now()
	out := r.resolver.Resolve(ctx, lyrics.Request{
		Title:        t.Title,
		Artists:      t.Artists,
		DurationSecs: t.DurationSecs(),
	})

	if !out.Found {
		if out.Degraded != nil && !errors.Is(out.Degraded, context.Canceled) {
			advisories = append(advisories, "lyrics source unavailable: "+out.Degraded.Error())
		}
		logger.Info("lyrics not found", logger.String("title", t.Title), logger.Int("attempts", out.Attempts))
		return lyrics.Set{}, advisories
	}

	record := out.Record
	set := lyrics.Set{Plain: record.PlainLyrics}

	var lines []lyrics.Line
	if strings.TrimSpace(record.SyncedLyrics) != "" {
		lines = lyrics.Parse(record.SyncedLyrics)
		set.Synced = true
	} else {
		lines = lyrics.FromPlain(record.PlainLyrics)
	}

	if r.enricher != nil {
		enriched, report := r.enricher.Enrich(ctx, lines)
		lines = enriched
		if report.TranslationUnavailable != nil && report.Qualifying > 0 {
			advisories = append(advisories, "translation unavailable: "+report.TranslationUnavailable.Error())
		}
	}
	set.Lines = lines

	logger.Info("lyrics loaded",
		logger.String("title", t.Title),
		logger.Int("lines", len(lines)),
		logger.Bool("synced", set.Synced),
		logger.Duration("took", r.now().Sub(start)),
	)
	return set, advisories
}

func joinAdvisories(current string, extra ...string) string {
	parts := make([]string, 0, len(extra)+1)
	if current != "" {
		parts = append(parts, current)
	}
	parts = append(parts, extra...)
	return strings.Join(parts, " | ")
}
