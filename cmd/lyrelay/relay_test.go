package main

import (
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"karolbroda.com/lyrelay/internal/cache"
	"karolbroda.com/lyrelay/internal/config"
	"karolbroda.com/lyrelay/internal/lyrics"
	"karolbroda.com/lyrelay/internal/player"
	"karolbroda.com/lyrelay/internal/refresh"
	"karolbroda.com/lyrelay/internal/server"
	"karolbroda.com/lyrelay/internal/state"
)

type idleSource struct {
	calls atomic.Int32
}

func (s *idleSource) CurrentPlayback(context.Context) (*player.Playback, error) {
	s.calls.Add(1)
	return nil, nil
}

// relayOnBusyPort builds a relay whose listen address is already taken.
func relayOnBusyPort(t *testing.T) (*relay, *idleSource) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	cfg := &config.Config{ListenAddr: ln.Addr().String(), PollInterval: 10 * time.Millisecond}
	source := &idleSource{}
	store := state.NewStore()
	refresher := refresh.New(source, nil, nil, store)
	return &relay{
		cfg:       cfg,
		source:    source,
		store:     store,
		refresher: refresher,
		server:    server.New(server.Config{Addr: cfg.ListenAddr}, store, refresher),
		outcomes:  cache.New[string, lyrics.Outcome](4, time.Minute),
	}, source
}

func TestRelayKeepsPollingWhenExportFails(t *testing.T) {
	r, source := relayOnBusyPort(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.run(ctx, false) }()

	assert.Eventually(t, func() bool {
		return source.calls.Load() >= 5
	}, 2*time.Second, 5*time.Millisecond)

	select {
	case err := <-done:
		t.Fatalf("run returned early: %v", err)
	default:
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run did not stop")
	}
}

func TestRelayFailsWhenExportIsRequired(t *testing.T) {
	r, _ := relayOnBusyPort(t)

	done := make(chan error, 1)
	go func() { done <- r.run(context.Background(), true) }()

	select {
	case err := <-done:
		assert.ErrorContains(t, err, "state export")
	case <-time.After(2 * time.Second):
		t.Fatal("run did not fail")
	}
}
