package ui

import (
	"context"
	"image"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"karolbroda.com/lyrelay/internal/artwork"
	"karolbroda.com/lyrelay/internal/lyrics"
	"karolbroda.com/lyrelay/internal/state"
	"karolbroda.com/lyrelay/internal/timing"
	"karolbroda.com/lyrelay/internal/track"
)

const (
	frameInterval       = time.Second / 30
	defaultPollInterval = time.Second
	feedTimeout         = 5 * time.Second
	transitionTicks     = 8
)

type frameMsg time.Time

type snapshotMsg struct {
	snap state.Snapshot
	err  error
}

type artworkMsg struct {
	url     string
	image   image.Image
	palette *artwork.Palette
	err     error
}

type display struct {
	snap         state.Snapshot
	image        image.Image
	palette      *artwork.Palette
	artworkURL   string
	currentIndex int
	prevIndex    int
}

type Model struct {
	feed         Feed
	pollInterval time.Duration
	clock        *timing.Clock
	tracker      *timing.LineTracker
	now          func() time.Time

	syncOffset      float64
	hideHeader      bool
	showPhonetic    bool
	showTranslation bool

	display        display
	trackKey       string
	lyricsRevision uint64
	position       float64
	feedErr        error
	quitting       bool
	width          int
	height         int
	lastLineChange time.Time
	tickCount      int
	animState      AnimState
}

type ModelConfig struct {
	Feed            Feed
	PollInterval    time.Duration
	AdvanceFraction float64
	JitterTolerance time.Duration
	SyncOffset      float64
	HideHeader      bool
	HidePhonetic    bool
	HideTranslation bool
}

func NewModel(cfg ModelConfig) Model {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}

	m := Model{
		feed:            cfg.Feed,
		pollInterval:    cfg.PollInterval,
		clock:           &timing.Clock{JitterTolerance: cfg.JitterTolerance},
		tracker:         timing.NewLineTracker(cfg.AdvanceFraction),
		now:             time.Now,
		syncOffset:      cfg.SyncOffset,
		hideHeader:      cfg.HideHeader,
		showPhonetic:    !cfg.HidePhonetic,
		showTranslation: !cfg.HideTranslation,
		lastLineChange:  time.Now(),
	}
	m.display.currentIndex = -1
	m.display.prevIndex = -1
	m.display.palette = artwork.DefaultPalette()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(frameCmd(), m.fetchCmd())
}

func frameCmd() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (m Model) fetchCmd() tea.Cmd {
	if m.feed == nil {
		return nil
	}
	feed := m.feed
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), feedTimeout)
		defer cancel()
		snap, err := feed.Snapshot(ctx)
		return snapshotMsg{snap: snap, err: err}
	}
}

func (m Model) pollCmd() tea.Cmd {
	fetch := m.fetchCmd()
	if fetch == nil {
		return nil
	}
	return tea.Tick(m.pollInterval, func(time.Time) tea.Msg {
		return fetch()
	})
}

func fetchArtworkCmd(url string) tea.Cmd {
	return func() tea.Msg {
		img, err := artwork.Fetch(context.Background(), url)
		if err != nil {
			return artworkMsg{url: url, err: err}
		}
		return artworkMsg{url: url, image: img, palette: artwork.ExtractPalette(img)}
	}
}

// applySnapshot folds a new relay state into the view. A new track or a
// replaced lyric set restarts line tracking.
func (m *Model) applySnapshot(snap state.Snapshot) tea.Cmd {
	key := snap.Track.Key()
	if key != m.trackKey {
		m.trackKey = key
		m.clock.Reset()
		m.resetLines()
		m.animState.Reset()
	}
	if snap.LyricsRevision != m.lyricsRevision {
		m.lyricsRevision = snap.LyricsRevision
		m.resetLines()
	}
	if key != "" {
		m.clock.Observe(key, snap.Sample)
	}
	m.display.snap = snap

	url := snap.Track.ArtworkURL
	if url == m.display.artworkURL {
		return nil
	}
	m.display.artworkURL = url
	m.display.image = nil
	m.display.palette = artwork.DefaultPalette()
	if url == "" {
		return nil
	}
	return fetchArtworkCmd(url)
}

func (m *Model) resetLines() {
	m.tracker.Reset()
	m.display.currentIndex = -1
	m.display.prevIndex = -1
	m.lastLineChange = m.now()
}

// updateLyricIndex moves the focus to the tracked line and reports whether
// it changed. Unsynced lyrics have no focus.
func (m *Model) updateLyricIndex() bool {
	set := m.display.snap.Lyrics
	if !set.Synced || len(set.Lines) == 0 {
		return false
	}

	idx := m.tracker.Resolve(set.Lines, m.position)
	if idx == m.display.currentIndex {
		return false
	}
	m.display.prevIndex = m.display.currentIndex
	m.display.currentIndex = idx
	m.lastLineChange = m.now()
	return true
}

func (m *Model) refreshPosition() {
	m.position = m.clock.PositionSeconds(m.now()) + m.syncOffset
}

func (m Model) Width() int  { return m.width }
func (m Model) Height() int { return m.height }

func (m Model) Snapshot() state.Snapshot  { return m.display.snap }
func (m Model) Track() track.Identity     { return m.display.snap.Track }
func (m Model) Lines() []lyrics.Line      { return m.display.snap.Lyrics.Lines }
func (m Model) Position() float64         { return m.position }
func (m Model) Palette() *artwork.Palette { return m.display.palette }
func (m Model) Image() image.Image        { return m.display.image }
func (m Model) CurrentIndex() int         { return m.display.currentIndex }
func (m Model) SyncOffset() float64       { return m.syncOffset }
func (m Model) HideHeader() bool          { return m.hideHeader }
func (m Model) ShowPhonetic() bool        { return m.showPhonetic }
func (m Model) ShowTranslation() bool     { return m.showTranslation }
func (m Model) FeedErr() error            { return m.feedErr }
func (m Model) IsQuitting() bool          { return m.quitting }
func (m Model) AnimState() *AnimState     { return &m.animState }
