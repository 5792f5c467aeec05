package state

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"karolbroda.com/lyrelay/internal/lyrics"
	"karolbroda.com/lyrelay/internal/timing"
	"karolbroda.com/lyrelay/internal/track"
)

func sampleSet() lyrics.Set {
	return lyrics.Set{
		Synced: true,
		Lines: []lyrics.Line{
			{
				TimeSeconds: 1.5,
				Text:        "你好",
				Phonetic:    lyrics.Annotation{Text: "nǐ hǎo", State: lyrics.Done},
				Translation: lyrics.Annotation{Text: "hello", State: lyrics.Done},
			},
			{TimeSeconds: 3, Text: "hey", Phonetic: lyrics.Annotation{State: lyrics.Skipped}},
		},
	}
}

func TestUpdateBumpsRevisions(t *testing.T) {
	s := NewStore()

	snap := s.Update(func(m *Mutation) { m.SetPlaying(true) })
	assert.Equal(t, uint64(1), snap.Revision)
	assert.Equal(t, uint64(0), snap.LyricsRevision)

	snap = s.Update(func(m *Mutation) { m.SetLyrics(sampleSet()) })
	assert.Equal(t, uint64(2), snap.Revision)
	assert.Equal(t, uint64(1), snap.LyricsRevision)
	assert.Len(t, s.Snapshot().Lyrics.Lines, 2)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewStore()
	s.Update(func(m *Mutation) {
		m.SetTrack(track.Identity{ID: "1", Title: "A", Artists: []string{"X"}})
		m.SetLyrics(sampleSet())
	})

	snap := s.Snapshot()
	snap.Lyrics.Lines[0].Text = "mutated"
	snap.Track.Artists[0] = "mutated"

	fresh := s.Snapshot()
	assert.Equal(t, "你好", fresh.Lyrics.Lines[0].Text)
	assert.Equal(t, "X", fresh.Track.Artists[0])
}

func TestSubscribeCoalesces(t *testing.T) {
	s := NewStore()
	ch, cancel := s.Subscribe()
	defer cancel()

	s.Update(func(m *Mutation) { m.SetError("a") })
	s.Update(func(m *Mutation) { m.SetError("b") })

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("no notification")
	}
	assert.Len(t, ch, 0)

	cancel()
	cancel()
	s.Update(func(m *Mutation) { m.SetError("c") })
	assert.Len(t, ch, 0)
}

func TestConcurrentReaders(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				snap := s.Snapshot()
				if len(snap.Lyrics.Lines) > 0 {
					assert.Equal(t, "你好", snap.Lyrics.Lines[0].Text)
				}
			}
		}()
	}
	for j := 0; j < 100; j++ {
		s.Update(func(m *Mutation) { m.SetLyrics(sampleSet()) })
	}
	wg.Wait()
}

func TestExportDocument(t *testing.T) {
	observed := time.UnixMilli(1_700_000_000_000)
	snap := Snapshot{
		Track:    track.Identity{ID: "abc", Title: "晴天", Artists: []string{"周杰伦", "Guest"}, DurationMs: 269_000},
		Sample:   timing.Sample{ProgressMs: 61_000, ObservedAt: observed, Playing: true},
		Lyrics:   sampleSet(),
		Err:      "translation unavailable",
		Degraded: true,
		Revision: 9,
	}

	raw, err := json.Marshal(snap.ToExport(observed.Add(250 * time.Millisecond)))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "abc", doc["track_id"])
	assert.Equal(t, "周杰伦, Guest", doc["artists"])
	assert.Equal(t, float64(61_000), doc["progress_ms"])
	assert.Equal(t, float64(1_700_000_000_250), doc["served_at"])
	assert.Equal(t, true, doc["is_playing"])
	assert.Equal(t, "translation unavailable", doc["error"])
	assert.Equal(t, true, doc["degraded"])

	lines := doc["lrc"].([]any)
	require.Len(t, lines, 2)
	first := lines[0].(map[string]any)
	assert.Equal(t, 1.5, first["t"])
	assert.Equal(t, "nǐ hǎo", first["pinyin"])
	assert.Equal(t, "hello", first["trans"])
}

func TestExportRoundTripKeepsLines(t *testing.T) {
	snap := Snapshot{
		Track:  track.Identity{ID: "abc", Title: "A", Artists: []string{"X"}},
		Sample: timing.Sample{ProgressMs: 10, ObservedAt: time.UnixMilli(5000)},
		Lyrics: sampleSet(),
	}

	back := snap.ToExport(time.UnixMilli(6000)).Snapshot()

	assert.Equal(t, "abc", back.Track.Key())
	assert.Equal(t, time.UnixMilli(5000), back.Sample.ObservedAt)
	require.Len(t, back.Lyrics.Lines, 2)
	assert.Equal(t, lyrics.Done, back.Lyrics.Lines[0].Translation.State)
	assert.Equal(t, lyrics.Skipped, back.Lyrics.Lines[1].Translation.State)
}

func TestEmptyExportHasEmptyLineList(t *testing.T) {
	raw, err := json.Marshal(Snapshot{}.ToExport(time.Now()))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"lrc":[]`)
	assert.Contains(t, string(raw), `"observed_at":0`)
}
