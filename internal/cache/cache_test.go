package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"karolbroda.com/lyrelay/internal/lyrics"
)

func TestStore(t *testing.T) {
	s := New[string, string](2, time.Minute)

	_, err := s.Lookup("missing")
	assert.ErrorIs(t, err, ErrCacheMiss)

	s.Add("a", "1")
	s.Add("b", "2")
	s.Add("c", "3")

	_, ok := s.Get("a")
	assert.False(t, ok, "oldest entry should be evicted")

	v, err := s.Lookup("c")
	require.NoError(t, err)
	assert.Equal(t, "3", v)

	stats := s.Stats()
	assert.Equal(t, 2, stats.Entries)
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(2), stats.Misses)

	assert.True(t, s.Delete("b"))
	s.Clear()
	assert.Equal(t, 0, s.Stats().Entries)
}

func TestStoreExpires(t *testing.T) {
	s := New[string, int](4, 20*time.Millisecond)
	s.Add("k", 1)

	assert.Eventually(t, func() bool {
		_, ok := s.Get("k")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

type countingResolver struct {
	calls int
	found bool
}

func (c *countingResolver) Resolve(context.Context, lyrics.Request) lyrics.Outcome {
	c.calls++
	if !c.found {
		return lyrics.Outcome{}
	}
	return lyrics.Outcome{Found: true, Record: &lyrics.Record{PlainLyrics: "la"}}
}

func TestResolverCachesFoundOutcomes(t *testing.T) {
	next := &countingResolver{found: true}
	r := NewResolver(next, New[string, lyrics.Outcome](8, time.Minute))
	req := lyrics.Request{Title: "Song - Remastered", Artists: []string{"A"}, DurationSecs: 100}

	first := r.Resolve(context.Background(), req)
	second := r.Resolve(context.Background(), lyrics.Request{Title: "song", Artists: []string{"a"}, DurationSecs: 100})

	assert.True(t, first.Found)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, next.calls)
}

func TestResolverDoesNotCacheMisses(t *testing.T) {
	next := &countingResolver{}
	r := NewResolver(next, New[string, lyrics.Outcome](8, time.Minute))
	req := lyrics.Request{Title: "Song", Artists: []string{"A"}}

	r.Resolve(context.Background(), req)
	r.Resolve(context.Background(), req)

	assert.Equal(t, 2, next.calls)
}
