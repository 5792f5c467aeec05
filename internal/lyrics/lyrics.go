package lyrics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

const (
	DefaultBaseURL = "https://lrclib.net/api"
	userAgent      = "lyrelay/1.0 (https://karolbroda.com/lyrelay)"
)

// ErrNotFound is returned when the source has no record for a lookup. It is
// an expected outcome, not a failure.
var ErrNotFound = errors.New("lyrics not found")

var (
	sharedTransport     *http.Transport
	sharedTransportOnce sync.Once
)

// Record is a lyrics record as served by LRCLIB.
type Record struct {
	ID           int64   `json:"id"`
	TrackName    string  `json:"trackName"`
	ArtistName   string  `json:"artistName"`
	AlbumName    string  `json:"albumName"`
	Duration     float64 `json:"duration"`
	Instrumental bool    `json:"instrumental"`
	PlainLyrics  string  `json:"plainLyrics"`
	SyncedLyrics string  `json:"syncedLyrics"`
}

func (r *Record) HasLyrics() bool {
	if r == nil {
		return false
	}
	return r.PlainLyrics != "" || r.SyncedLyrics != "" || r.Instrumental
}

// Query is one direct lookup. DurationSecs of zero omits the duration.
type Query struct {
	Artist       string
	Title        string
	DurationSecs int64
}

func (q Query) key() string {
	return fmt.Sprintf("%s|%s|%d", q.Artist, q.Title, q.DurationSecs)
}

// Source is a remote lyrics index.
type Source interface {
	Get(ctx context.Context, q Query) (*Record, error)
	Search(ctx context.Context, title, artist string) ([]Record, error)
	GetByID(ctx context.Context, id int64) (*Record, error)
}

// Client talks to an LRCLIB-compatible HTTP API.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	timeout time.Duration
}

func transport() *http.Transport {
	sharedTransportOnce.Do(func() {
		sharedTransport = &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   2 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 5,
			IdleConnTimeout:     60 * time.Second,
			TLSHandshakeTimeout: 2 * time.Second,
		}
	})
	return sharedTransport
}

func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("lrclib base url is empty")
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid lrclib url %q: %w", baseURL, err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL: parsed,
		http:    &http.Client{Transport: transport(), Timeout: timeout},
		timeout: timeout,
	}, nil
}

func (c *Client) Get(ctx context.Context, q Query) (*Record, error) {
	params := url.Values{}
	params.Set("artist_name", q.Artist)
	params.Set("track_name", q.Title)
	if q.DurationSecs > 0 {
		params.Set("duration", strconv.FormatInt(q.DurationSecs, 10))
	}

	var record Record
	if err := c.getJSON(ctx, c.endpoint("get", params), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (c *Client) Search(ctx context.Context, title, artist string) ([]Record, error) {
	params := url.Values{}
	params.Set("track_name", title)
	params.Set("artist_name", artist)

	var records []Record
	if err := c.getJSON(ctx, c.endpoint("search", params), &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (c *Client) GetByID(ctx context.Context, id int64) (*Record, error) {
	var record Record
	if err := c.getJSON(ctx, c.endpoint("get/"+strconv.FormatInt(id, 10), nil), &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (c *Client) endpoint(path string, params url.Values) string {
	u := c.baseURL.JoinPath(path)
	if params != nil {
		u.RawQuery = params.Encode()
	}
	return u.String()
}

func (c *Client) getJSON(parentCtx context.Context, requestURL string, dst any) error {
	ctx, cancel := context.WithTimeout(parentCtx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build http request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("lrclib request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("lrclib returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode lrclib json: %w", err)
	}
	return nil
}
