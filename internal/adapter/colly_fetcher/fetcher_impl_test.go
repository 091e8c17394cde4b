package colly_fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/cardscout/internal/proxy"
	"github.com/user/cardscout/internal/repository"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/cards", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body><div class="cards"><a href="/cards/gold">Gold</a></div><p>%s</p></body></html>`, r.UserAgent())
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchReturnsBodyWhenMarkerPresent(t *testing.T) {
	srv := newServer(t)
	f := NewFetcher(proxy.NewManager(nil, []string{"cardscout-test"}), nil)

	html, err := f.Fetch(context.Background(), srv.URL+"/cards", "div.cards", time.Second)
	require.NoError(t, err)
	assert.Contains(t, html, `href="/cards/gold"`)
	assert.Contains(t, html, "cardscout-test")
}

func TestFetchMissingMarkerIsTimeout(t *testing.T) {
	srv := newServer(t)
	f := NewFetcher(nil, nil)

	_, err := f.Fetch(context.Background(), srv.URL+"/cards", "ul.products", time.Second)
	assert.ErrorIs(t, err, repository.ErrFetchTimeout)
}

func TestFetchSlowServerIsTimeout(t *testing.T) {
	srv := newServer(t)
	f := NewFetcher(nil, nil)

	_, err := f.Fetch(context.Background(), srv.URL+"/slow", "body", 100*time.Millisecond)
	assert.ErrorIs(t, err, repository.ErrFetchTimeout)
}

func TestFetchErrorStatusIsNavigationFailure(t *testing.T) {
	srv := newServer(t)
	f := NewFetcher(nil, nil)

	_, err := f.Fetch(context.Background(), srv.URL+"/gone", "body", time.Second)
	assert.ErrorIs(t, err, repository.ErrNavigationFailed)
}

func TestFetchUnreachableHostIsNavigationFailure(t *testing.T) {
	srv := newServer(t)
	addr := srv.URL
	srv.Close()

	_, err := NewFetcher(nil, nil).Fetch(context.Background(), addr+"/cards", "body", time.Second)
	assert.ErrorIs(t, err, repository.ErrNavigationFailed)
}
