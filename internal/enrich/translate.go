package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"slices"
	"time"
)

// LibreTranslate is a client for a LibreTranslate server, which serves the
// offline Argos models over HTTP.
type LibreTranslate struct {
	baseURL *url.URL
	apiKey  string
	source  string
	target  string
	http    *http.Client
	timeout time.Duration
}

type LibreTranslateConfig struct {
	URL     string
	APIKey  string
	Source  string
	Target  string
	Timeout time.Duration
}

type language struct {
	Code    string   `json:"code"`
	Name    string   `json:"name"`
	Targets []string `json:"targets"`
}

type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
	Error          string `json:"error"`
}

func NewLibreTranslate(cfg LibreTranslateConfig) (*LibreTranslate, error) {
	if cfg.URL == "" {
		return nil, errors.New("translate url is empty")
	}
	parsed, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid translate url %q: %w", cfg.URL, err)
	}
	if cfg.Source == "" {
		cfg.Source = "zh"
	}
	if cfg.Target == "" {
		cfg.Target = "en"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &LibreTranslate{
		baseURL: parsed,
		apiKey:  cfg.APIKey,
		source:  cfg.Source,
		target:  cfg.Target,
		http:    &http.Client{Timeout: cfg.Timeout},
		timeout: cfg.Timeout,
	}, nil
}

func (t *LibreTranslate) Available(parentCtx context.Context) error {
	ctx, cancel := context.WithTimeout(parentCtx, t.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL.JoinPath("languages").String(), nil)
	if err != nil {
		return fmt.Errorf("failed to build http request: %w", err)
	}

	resp, err := t.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: languages returned status %d", ErrUnavailable, resp.StatusCode)
	}

	var languages []language
	if err := json.NewDecoder(resp.Body).Decode(&languages); err != nil {
		return fmt.Errorf("%w: failed to decode languages: %w", ErrUnavailable, err)
	}

	for _, lang := range languages {
		if lang.Code == t.source && slices.Contains(lang.Targets, t.target) {
			return nil
		}
	}
	return fmt.Errorf("%w: no %s to %s model installed", ErrUnavailable, t.source, t.target)
}

func (t *LibreTranslate) Translate(parentCtx context.Context, text string) (string, error) {
	ctx, cancel := context.WithTimeout(parentCtx, t.timeout)
	defer cancel()

	body, err := json.Marshal(translateRequest{
		Q:      text,
		Source: t.source,
		Target: t.target,
		Format: "text",
		APIKey: t.apiKey,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode translate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL.JoinPath("translate").String(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		var opErr *net.OpError
		if errors.As(err, &opErr) && opErr.Op == "dial" {
			return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
		}
		return "", fmt.Errorf("translate request failed: %w", err)
	}
	defer resp.Body.Close()

	var payload translateResponse
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read translate response: %w", err)
	}
	decodeErr := json.Unmarshal(raw, &payload)

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return "", fmt.Errorf("%w: %s", ErrUnavailable, payload.Error)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("translate returned status %d: %s", resp.StatusCode, payload.Error)
	case decodeErr != nil:
		return "", fmt.Errorf("failed to decode translate json: %w", decodeErr)
	}
	return payload.TranslatedText, nil
}
