package ui

import (
	"context"
	"errors"
	"sync"

	"karolbroda.com/lyrelay/internal/state"
)

// Feed supplies the viewer with the relay's current state.
type Feed interface {
	Snapshot(ctx context.Context) (state.Snapshot, error)
}

// StoreFeed reads an in-process store.
type StoreFeed struct {
	Store *state.Store
}

func (f StoreFeed) Snapshot(context.Context) (state.Snapshot, error) {
	return f.Store.Snapshot(), nil
}

var ErrNoSnapshot = errors.New("waiting for relay state")

// StreamFeed serves the newest snapshot pushed on a channel. Once the
// channel closes it defers to fallback, if one is set.
type StreamFeed struct {
	fallback Feed

	mu     sync.RWMutex
	latest state.Snapshot
	have   bool
	closed bool
}

func NewStreamFeed(updates <-chan state.Snapshot, fallback Feed) *StreamFeed {
	f := &StreamFeed{fallback: fallback}
	go f.drain(updates)
	return f
}

func (f *StreamFeed) drain(updates <-chan state.Snapshot) {
	for snap := range updates {
		f.mu.Lock()
		f.latest = snap
		f.have = true
		f.mu.Unlock()
	}
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *StreamFeed) Snapshot(ctx context.Context) (state.Snapshot, error) {
	f.mu.RLock()
	snap, have, closed := f.latest, f.have, f.closed
	f.mu.RUnlock()

	if closed && f.fallback != nil {
		return f.fallback.Snapshot(ctx)
	}
	if !have {
		if closed {
			return state.Snapshot{}, errors.New("state stream closed")
		}
		return state.Snapshot{}, ErrNoSnapshot
	}
	return snap, nil
}
