package main

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestAwaitCallbackExchangesCode(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","token_type":"Bearer","refresh_token":"rt","expires_in":3600}`))
	}))
	defer tokenSrv.Close()

	redirect := &url.URL{Scheme: "http", Host: freeAddr(t), Path: "/callback"}
	oauth := &oauth2.Config{
		ClientID:     "id",
		ClientSecret: "secret",
		RedirectURL:  redirect.String(),
		Endpoint:     oauth2.Endpoint{AuthURL: tokenSrv.URL + "/authorize", TokenURL: tokenSrv.URL + "/token"},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	type result struct {
		token *oauth2.Token
		err   error
	}
	done := make(chan result, 1)
	go func() {
		token, err := awaitCallback(ctx, redirect, oauth, "xyz")
		done <- result{token, err}
	}()

	callback := redirect.String() + "?state=xyz&code=the-code"
	require.Eventually(t, func() bool {
		resp, err := http.Get(callback)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 3*time.Second, 20*time.Millisecond)

	r := <-done
	require.NoError(t, r.err)
	assert.Equal(t, "rt", r.token.RefreshToken)
}

func TestAwaitCallbackRejectsWrongState(t *testing.T) {
	redirect := &url.URL{Scheme: "http", Host: freeAddr(t), Path: "/callback"}
	oauth := &oauth2.Config{RedirectURL: redirect.String()}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := awaitCallback(ctx, redirect, oauth, "expected")
		done <- err
	}()

	require.Eventually(t, func() bool {
		resp, err := http.Get(redirect.String() + "?state=forged&code=c")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusBadRequest
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestRandomState(t *testing.T) {
	a, err := randomState()
	require.NoError(t, err)
	b, err := randomState()
	require.NoError(t, err)
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
