package lyrics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLrclibStub(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/get", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("artist_name") != "周杰伦" || q.Get("track_name") != "晴天" {
			http.Error(w, `{"code":404}`, http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(Record{ID: 1, TrackName: "晴天", SyncedLyrics: "[00:01.00]故事的小黄花"})
	})
	mux.HandleFunc("/api/search", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]Record{{ID: 42}})
	})
	mux.HandleFunc("/api/get/42", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(Record{ID: 42, PlainLyrics: "found by id"})
	})
	mux.HandleFunc("/api/get/500", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientGet(t *testing.T) {
	srv := newLrclibStub(t)
	client, err := NewClient(srv.URL+"/api", time.Second)
	require.NoError(t, err)

	record, err := client.Get(context.Background(), Query{Artist: "周杰伦", Title: "晴天", DurationSecs: 269})
	require.NoError(t, err)
	assert.Equal(t, int64(1), record.ID)
	assert.True(t, record.HasLyrics())

	_, err = client.Get(context.Background(), Query{Artist: "x", Title: "y"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClientSearchAndGetByID(t *testing.T) {
	srv := newLrclibStub(t)
	client, err := NewClient(srv.URL+"/api", time.Second)
	require.NoError(t, err)

	records, err := client.Search(context.Background(), "y", "x")
	require.NoError(t, err)
	require.Len(t, records, 1)

	record, err := client.GetByID(context.Background(), records[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "found by id", record.PlainLyrics)

	_, err = client.GetByID(context.Background(), 500)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestResolverAgainstClient(t *testing.T) {
	srv := newLrclibStub(t)
	client, err := NewClient(srv.URL+"/api", time.Second)
	require.NoError(t, err)

	out := NewResolver(client).Resolve(context.Background(), Request{Title: "Unknown", Artists: []string{"x"}})
	require.True(t, out.Found)
	assert.Equal(t, int64(42), out.Record.ID)
}

func TestNewClientRejectsEmptyURL(t *testing.T) {
	_, err := NewClient("", time.Second)
	assert.Error(t, err)
}
