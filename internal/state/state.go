package state

import (
	"sync"
	"time"

	"karolbroda.com/lyrelay/internal/lyrics"
	"karolbroda.com/lyrelay/internal/timing"
	"karolbroda.com/lyrelay/internal/track"
)

// Snapshot is the published view of playback and lyrics.
type Snapshot struct {
	Track    track.Identity
	Sample   timing.Sample
	Lyrics   lyrics.Set
	Err      string
	Revision uint64
	// LyricsRevision changes only when Lyrics is replaced.
	LyricsRevision uint64
	// LyricsPending is set while lyrics for Track are being loaded.
	LyricsPending bool
	// Degraded is set while Err carries an advisory about a backend that
	// could not serve the current track.
	Degraded bool
}

func (s Snapshot) HasTrack() bool {
	return s.Track.Key() != ""
}

func (s Snapshot) clone() Snapshot {
	s.Track = *s.Track.Clone()
	s.Lyrics = s.Lyrics.Clone()
	return s
}

// Store holds the current Snapshot. It has a single writer and any number
// of readers, which always receive copies.
type Store struct {
	mu          sync.RWMutex
	snap        Snapshot
	subscribers map[chan struct{}]struct{}
}

func NewStore() *Store {
	return &Store{subscribers: make(map[chan struct{}]struct{})}
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.clone()
}

// Mutation edits a draft of the snapshot. Setting Lyrics replaces the set.
type Mutation struct {
	draft         *Snapshot
	lyricsChanged bool
}

func (m *Mutation) SetTrack(t track.Identity) { m.draft.Track = t }
func (m *Mutation) SetSample(s timing.Sample) { m.draft.Sample = s }
func (m *Mutation) SetPlaying(playing bool)   { m.draft.Sample.Playing = playing }
func (m *Mutation) SetError(err string)       { m.draft.Err = err }
func (m *Mutation) SetLyricsPending(p bool)   { m.draft.LyricsPending = p }
func (m *Mutation) SetDegraded(d bool)        { m.draft.Degraded = d }

func (m *Mutation) SetLyrics(set lyrics.Set) {
	m.draft.Lyrics = set
	m.lyricsChanged = true
}

func (m *Mutation) Current() Snapshot { return *m.draft }

// Update applies fn atomically, bumps the revision and wakes subscribers.
func (s *Store) Update(fn func(m *Mutation)) Snapshot {
	s.mu.Lock()
	draft := s.snap.clone()
	m := &Mutation{draft: &draft}
	fn(m)

	draft.Revision = s.snap.Revision + 1
	if m.lyricsChanged {
		draft.LyricsRevision = s.snap.LyricsRevision + 1
	}
	s.snap = draft
	out := draft.clone()

	for ch := range s.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	s.mu.Unlock()

	return out
}

// Subscribe returns a channel that receives a coalesced signal after every
// update, and a function that releases it.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, ch)
			s.mu.Unlock()
		})
	}
}

// ExportLine is one lyric line in the exported document.
type ExportLine struct {
	T           float64 `json:"t"`
	Text        string  `json:"text"`
	Pinyin      string  `json:"pinyin"`
	Translation string  `json:"trans"`
}

// Export is the JSON document served to presentation clients.
type Export struct {
	TrackID     string       `json:"track_id"`
	Title       string       `json:"title"`
	Artists     string       `json:"artists"`
	Album       string       `json:"album,omitempty"`
	ArtworkURL  string       `json:"artwork_url,omitempty"`
	DurationMs  int64        `json:"duration_ms"`
	ProgressMs  int64        `json:"progress_ms"`
	IsPlaying   bool         `json:"is_playing"`
	ObservedAt  int64        `json:"observed_at"`
	ServedAt    int64        `json:"served_at"`
	Revision    uint64       `json:"revision"`
	LyricsRev   uint64       `json:"lyrics_revision"`
	Pending     bool         `json:"lyrics_pending"`
	Synced      bool         `json:"synced"`
	Degraded    bool         `json:"degraded"`
	PlainLyrics string       `json:"plain_lyrics"`
	Lines       []ExportLine `json:"lrc"`
	Error       string       `json:"error"`
}

// ToExport serializes s. Timestamps are Unix milliseconds.
func (s Snapshot) ToExport(servedAt time.Time) Export {
	e := Export{
		TrackID:     s.Track.Key(),
		Title:       s.Track.Title,
		Artists:     s.Track.DisplayArtists(),
		Album:       s.Track.Album,
		ArtworkURL:  s.Track.ArtworkURL,
		DurationMs:  s.Track.DurationMs,
		ProgressMs:  s.Sample.ProgressMs,
		IsPlaying:   s.Sample.Playing,
		ServedAt:    servedAt.UnixMilli(),
		Revision:    s.Revision,
		LyricsRev:   s.LyricsRevision,
		Pending:     s.LyricsPending,
		Synced:      s.Lyrics.Synced,
		Degraded:    s.Degraded,
		PlainLyrics: s.Lyrics.Plain,
		Lines:       make([]ExportLine, len(s.Lyrics.Lines)),
		Error:       s.Err,
	}
	if !s.Sample.ObservedAt.IsZero() {
		e.ObservedAt = s.Sample.ObservedAt.UnixMilli()
	}
	for i, line := range s.Lyrics.Lines {
		e.Lines[i] = ExportLine{
			T:           line.TimeSeconds,
			Text:        line.Text,
			Pinyin:      line.Phonetic.Text,
			Translation: line.Translation.Text,
		}
	}
	return e
}

// Snapshot rebuilds a snapshot from an export. Annotation states are not
// part of the document, so non-empty texts come back as Done.
func (e Export) Snapshot() Snapshot {
	s := Snapshot{
		Track: track.Identity{
			ID:         e.TrackID,
			Title:      e.Title,
			Album:      e.Album,
			ArtworkURL: e.ArtworkURL,
			DurationMs: e.DurationMs,
		},
		Sample: timing.Sample{
			ProgressMs: e.ProgressMs,
			Playing:    e.IsPlaying,
		},
		Lyrics: lyrics.Set{
			Plain:  e.PlainLyrics,
			Synced: e.Synced,
			Lines:  make([]lyrics.Line, len(e.Lines)),
		},
		Err:            e.Error,
		Revision:       e.Revision,
		LyricsRevision: e.LyricsRev,
		LyricsPending:  e.Pending,
		Degraded:       e.Degraded,
	}
	if e.Artists != "" {
		s.Track.Artists = []string{e.Artists}
	}
	if e.ObservedAt > 0 {
		s.Sample.ObservedAt = time.UnixMilli(e.ObservedAt)
	}
	for i, line := range e.Lines {
		s.Lyrics.Lines[i] = lyrics.Line{
			TimeSeconds: line.T,
			Text:        line.Text,
			Phonetic:    annotation(line.Pinyin),
			Translation: annotation(line.Translation),
		}
	}
	return s
}

func annotation(text string) lyrics.Annotation {
	if text == "" {
		return lyrics.Annotation{State: lyrics.Skipped}
	}
	return lyrics.Annotation{Text: text, State: lyrics.Done}
}
