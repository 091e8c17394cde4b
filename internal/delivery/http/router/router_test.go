package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/cardscout/internal/adapter/memory"
	"github.com/user/cardscout/internal/delivery/http/handler"
	"github.com/user/cardscout/internal/delivery/http/response"
	"github.com/user/cardscout/internal/discovery"
	"github.com/user/cardscout/internal/entity"
	"github.com/user/cardscout/internal/scheduler"
	"github.com/user/cardscout/internal/usecase"
)

type fakeRuns struct {
	busy    bool
	lastReq string
}

func (f *fakeRuns) Trigger(site string) (string, error) {
	f.lastReq = site
	if f.busy {
		return "run-0", scheduler.ErrRunInProgress
	}
	if site == "nope" {
		return "", scheduler.ErrUnknownSite
	}
	return "run-1", nil
}

func (f *fakeRuns) Current() (string, bool) {
	if f.busy {
		return "run-0", true
	}
	return "", false
}

type fixture struct {
	server    *httptest.Server
	runs      *fakeRuns
	summaries *memory.SummaryRepoImpl
}

func newFixture(t *testing.T, checks map[string]handler.HealthCheck) *fixture {
	t.Helper()
	inv := memory.NewInventoryRepo()
	ts := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	_, err := inv.UpsertDiscovered(context.Background(), "BankA", []string{
		"https://a.example/cards/gold",
		"https://a.example/cards/silver",
	}, ts)
	require.NoError(t, err)

	site, err := discovery.NewSite(entity.SiteDefinition{Name: "BankA", ListingURL: "https://a.example/cards"})
	require.NoError(t, err)

	f := &fixture{runs: &fakeRuns{}, summaries: memory.NewSummaryRepo()}
	manager := usecase.NewInventoryManager(inv, memory.NewFailureRepo(), f.summaries)
	h := handler.NewHandler(manager, f.runs, []*discovery.Site{site}, checks, nil)
	f.server = httptest.NewServer(New(h, nil))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, f.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var raw json.RawMessage
	_ = json.NewDecoder(resp.Body).Decode(&raw)
	return resp, raw
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)
	resp, body := f.do(t, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health response.HealthResponse
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "healthy", health.Checks["store"])
}

func TestHealthDegraded(t *testing.T) {
	f := newFixture(t, map[string]handler.HealthCheck{
		"redis": func(context.Context) error { return assert.AnError },
	})
	resp, body := f.do(t, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var health response.HealthResponse
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "unhealthy", health.Checks["redis"])
}

func TestInventoryLookup(t *testing.T) {
	f := newFixture(t, nil)

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"found after normalization", "?url=https://a.example/cards/gold/", http.StatusOK},
		{"unknown", "?url=https://a.example/cards/none", http.StatusNotFound},
		{"relative", "?url=/cards/gold", http.StatusBadRequest},
		{"missing", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := f.do(t, http.MethodGet, "/api/inventory"+tt.query, "")
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestSiteInventory(t *testing.T) {
	f := newFixture(t, nil)

	resp, body := f.do(t, http.MethodGet, "/api/sites/BankA/inventory", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list response.InventoryListResponse
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Equal(t, 2, list.Count)
	assert.Equal(t, "https://a.example/cards/gold", list.Records[0].URL)

	resp, _ = f.do(t, http.MethodGet, "/api/sites/Other/inventory", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListSites(t *testing.T) {
	f := newFixture(t, nil)
	resp, body := f.do(t, http.MethodGet, "/api/sites", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var sites []response.SiteResponse
	require.NoError(t, json.Unmarshal(body, &sites))
	require.Len(t, sites, 1)
	assert.Equal(t, "BankA", sites[0].Name)
	assert.Equal(t, "anchors", sites[0].Strategy)
}

func TestStartRun(t *testing.T) {
	f := newFixture(t, nil)

	resp, body := f.do(t, http.MethodPost, "/api/discovery/runs", "")
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	var started response.StartRunResponse
	require.NoError(t, json.Unmarshal(body, &started))
	assert.Equal(t, "run-1", started.RunID)

	resp, _ = f.do(t, http.MethodPost, "/api/discovery/runs", `{"site":"BankA"}`)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, "BankA", f.runs.lastReq)

	resp, _ = f.do(t, http.MethodPost, "/api/discovery/runs", `{"site":"nope"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = f.do(t, http.MethodPost, "/api/discovery/runs", `{bad`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	f.runs.busy = true
	resp, _ = f.do(t, http.MethodPost, "/api/discovery/runs", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestLatestRun(t *testing.T) {
	f := newFixture(t, nil)

	resp, _ := f.do(t, http.MethodGet, "/api/discovery/runs/latest", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	require.NoError(t, f.summaries.SaveLatest(context.Background(), &entity.RunSummary{
		RunID: "run-9",
		Sites: []entity.SiteSummary{
			{Site: "BankA", URLsFound: 2, Duration: 1500 * time.Millisecond},
			{Site: "BankB", Error: "fetch listing: navigation failed"},
		},
	}))
	f.runs.busy = true

	resp, body := f.do(t, http.MethodGet, "/api/discovery/runs/latest", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var latest response.RunSummaryResponse
	require.NoError(t, json.Unmarshal(body, &latest))
	assert.Equal(t, "run-9", latest.RunID)
	assert.Equal(t, 1, latest.Succeeded)
	assert.Equal(t, 1, latest.Failed)
	assert.EqualValues(t, 1500, latest.Sites[0].DurationMS)
	assert.Equal(t, "run-0", latest.InProgress)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, nil)
	f.do(t, http.MethodGet, "/api/sites", "")

	resp, err := http.Get(f.server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
