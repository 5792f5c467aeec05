package enrich

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

func newLibreTranslateStub(t *testing.T, targets []string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /languages", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]language{{Code: "zh", Name: "Chinese", Targets: targets}})
	})
	mux.HandleFunc("POST /translate", func(w http.ResponseWriter, r *http.Request) {
		var req translateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.APIKey != "secret" {
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(translateResponse{Error: "invalid api key"})
			return
		}
		if req.Q == "坏" {
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(translateResponse{Error: "model crashed"})
			return
		}
		_ = json.NewEncoder(w).Encode(translateResponse{TranslatedText: req.Source + ">" + req.Target + ":" + req.Q})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestLibreTranslate(t *testing.T) {
	srv := newLibreTranslateStub(t, []string{"en", "ja"})
	tr, err := NewLibreTranslate(LibreTranslateConfig{URL: srv.URL, APIKey: "secret", Timeout: time.Second})
	require.NoError(t, err)

	require.NoError(t, tr.Available(context.Background()))

	got, err := tr.Translate(context.Background(), "你好")
	require.NoError(t, err)
	assert.Equal(t, "zh>en:你好", got)

	_, err = tr.Translate(context.Background(), "坏")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestLibreTranslateMissingModel(t *testing.T) {
	srv := newLibreTranslateStub(t, []string{"ja"})
	tr, err := NewLibreTranslate(LibreTranslateConfig{URL: srv.URL, APIKey: "secret"})
	require.NoError(t, err)

	assert.ErrorIs(t, tr.Available(context.Background()), ErrUnavailable)
}

func TestLibreTranslateRejectedKey(t *testing.T) {
	srv := newLibreTranslateStub(t, []string{"en"})
	tr, err := NewLibreTranslate(LibreTranslateConfig{URL: srv.URL, APIKey: "wrong"})
	require.NoError(t, err)

	_, err = tr.Translate(context.Background(), "你好")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestLibreTranslateUnreachable(t *testing.T) {
	srv := newLibreTranslateStub(t, []string{"en"})
	url := srv.URL
	srv.Close()

	tr, err := NewLibreTranslate(LibreTranslateConfig{URL: url, Timeout: time.Second})
	require.NoError(t, err)

	assert.ErrorIs(t, tr.Available(context.Background()), ErrUnavailable)
	_, err = tr.Translate(context.Background(), "你好")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestPipelineWithLibreTranslate(t *testing.T) {
	srv := newLibreTranslateStub(t, []string{"en"})
	tr, err := NewLibreTranslate(LibreTranslateConfig{URL: srv.URL, APIKey: "secret"})
	require.NoError(t, err)

	out, report := NewPipeline(NewPinyin(), WithTranslator(tr)).Enrich(context.Background(), linesOf("你好", "hello"))

	assert.NoError(t, report.TranslationUnavailable)
	assert.Equal(t, "nǐ hǎo", out[0].Phonetic.Text)
	assert.Equal(t, "zh>en:你好", out[0].Translation.Text)
	assert.Empty(t, out[1].Translation.Text)
}
