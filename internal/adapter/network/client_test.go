package network

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/jgivc/rinupdate/internal/config"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, perDomain map[string]int) *Client {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
	cl, err := NewClient(&config.NetworkConfig{
		UserAgent:               "rinupdate-test",
		DefaultIntervalMillis:   1,
		PerDomainIntervalMillis: perDomain,
	}, log)
	require.NoError(t, err)

	return cl
}

func TestClientSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /login", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.PostForm.Get("username") != "alice" {
			http.Error(w, "bad form", http.StatusBadRequest)

			return
		}
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "42", Path: "/"})
		http.Redirect(w, r, "/index", http.StatusFound)
	})
	mux.HandleFunc("GET /index", func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("sid")
		if err != nil || c.Value != "42" || r.UserAgent() != "rinupdate-test" {
			http.Error(w, "no session", http.StatusForbidden)

			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte("welcome"))
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	cl := newTestClient(t, nil)

	resp, err := cl.PostForm(context.Background(), srv.URL+"/login", url.Values{"username": {"alice"}})
	require.NoError(t, err)
	require.Equal(t, "/index", resp.URL.Path)
	require.Equal(t, "welcome", string(resp.Body))
	require.Contains(t, resp.ContentType, "text/html")

	resp, err = cl.Get(context.Background(), srv.URL+"/index")
	require.NoError(t, err)
	require.Equal(t, "welcome", string(resp.Body))
}

func TestClientHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := newTestClient(t, nil).Get(context.Background(), srv.URL)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	require.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	require.Contains(t, err.Error(), "HTTP 404")
}

func TestClientPerDomainInterval(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	cl := newTestClient(t, map[string]int{u.Hostname(): 100})

	start := time.Now()
	for range 3 {
		_, err := cl.Get(context.Background(), srv.URL)
		require.NoError(t, err)
	}

	require.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}
