package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"karolbroda.com/lyrelay/internal/logger"
	"karolbroda.com/lyrelay/internal/lyrics"
)

type lyricsResolver interface {
	Resolve(ctx context.Context, req lyrics.Request) lyrics.Outcome
}

// Resolver memoizes found resolution outcomes. Misses and failures are not
// cached so a later track change can retry them.
type Resolver struct {
	next  lyricsResolver
	store *Store[string, lyrics.Outcome]
}

func NewResolver(next lyricsResolver, store *Store[string, lyrics.Outcome]) *Resolver {
	return &Resolver{next: next, store: store}
}

func (r *Resolver) Resolve(ctx context.Context, req lyrics.Request) lyrics.Outcome {
	key := requestKey(req)
	if out, ok := r.store.Get(key); ok {
		logger.Debug("lyrics cache hit", logger.String("title", req.Title))
		return out
	}

	out := r.next.Resolve(ctx, req)
	if out.Found {
		r.store.Add(key, out)
	}
	return out
}

func requestKey(req lyrics.Request) string {
	normalized := strings.ToLower(lyrics.JoinArtists(req.Artists)) + "|" +
		strings.ToLower(lyrics.NormalizeTitle(req.Title)) + "|" +
		strconv.FormatInt(req.DurationSecs, 10)
	hash := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(hash[:12])
}
