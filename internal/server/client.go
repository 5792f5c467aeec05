package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"karolbroda.com/lyrelay/internal/logger"
	"karolbroda.com/lyrelay/internal/state"
)

// Client reads state from a running lyrelay server.
type Client struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
	now     func() time.Time
}

func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("server url is empty")
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server url %q: %w", baseURL, err)
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		base:    parsed,
		http:    &http.Client{Timeout: timeout},
		timeout: timeout,
		now:     time.Now,
	}, nil
}

// Snapshot fetches the current state. The sample is re-anchored to the local
// clock using the server's own observed and served timestamps, so clock skew
// between the machines does not shift the position.
func (c *Client) Snapshot(parentCtx context.Context) (state.Snapshot, error) {
	ctx, cancel := context.WithTimeout(parentCtx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base.JoinPath(StatePath).String(), nil)
	if err != nil {
		return state.Snapshot{}, fmt.Errorf("failed to build http request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return state.Snapshot{}, fmt.Errorf("state request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return state.Snapshot{}, fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	var export state.Export
	if err := json.NewDecoder(resp.Body).Decode(&export); err != nil {
		return state.Snapshot{}, fmt.Errorf("failed to decode state json: %w", err)
	}
	return Reanchor(export, c.now()), nil
}

// Stream keeps a websocket open and delivers every pushed state until ctx is
// done or the connection drops.
func (c *Client) Stream(ctx context.Context) (<-chan state.Snapshot, error) {
	wsURL := *c.base.JoinPath(StreamPath)
	switch wsURL.Scheme {
	case "https":
		wsURL.Scheme = "wss"
	default:
		wsURL.Scheme = "ws"
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open state stream: %w", err)
	}

	out := make(chan state.Snapshot, 1)
	var closeOnce sync.Once
	closeConn := func() { closeOnce.Do(func() { _ = conn.Close() }) }

	go func() {
		<-ctx.Done()
		closeConn()
	}()

	go func() {
		defer close(out)
		defer closeConn()
		for {
			var export state.Export
			if err := conn.ReadJSON(&export); err != nil {
				if ctx.Err() == nil {
					logger.Warn("state stream closed", logger.ErrorField(err))
				}
				return
			}
			snap := Reanchor(export, c.now())

			// keep only the newest snapshot if the reader lags
			select {
			case <-out:
			default:
			}
			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Reanchor converts an export into a snapshot whose ObservedAt is expressed
// on the local clock at receivedAt.
func Reanchor(e state.Export, receivedAt time.Time) state.Snapshot {
	snap := e.Snapshot()
	age := time.Duration(0)
	if e.ObservedAt > 0 && e.ServedAt >= e.ObservedAt {
		age = time.Duration(e.ServedAt-e.ObservedAt) * time.Millisecond
	}
	snap.Sample.ObservedAt = receivedAt.Add(-age)
	return snap
}
