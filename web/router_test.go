package web

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mohamedamezian/NN-Instagram/domain"
	"github.com/mohamedamezian/NN-Instagram/graph"
	"github.com/mohamedamezian/NN-Instagram/syncer"
)

type fakeSync struct {
	result  syncer.Result
	tenants []string
}

func (f *fakeSync) Run(ctx context.Context, tenant string) syncer.Result {
	f.tenants = append(f.tenants, tenant)
	res := f.result
	res.Tenant = tenant
	return res
}

type fakeRuns struct {
	runs      []domain.SyncRun
	lastLimit int
}

func (f *fakeRuns) ReadSyncRuns(tenant string, limit int) ([]domain.SyncRun, error) {
	f.lastLimit = limit
	var out []domain.SyncRun
	for _, r := range f.runs {
		if r.Tenant == tenant {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRuns) ReadSyncRun(id uuid.UUID) (*domain.SyncRun, error) {
	for _, r := range f.runs {
		if r.Id == id {
			run := r
			return &run, nil
		}
	}
	return nil, sql.ErrNoRows
}

func newTestRouter(apiKey string, svc *fakeSync, runs *fakeRuns) *gin.Engine {
	gin.SetMode(gin.TestMode)
	conf := testConf()
	conf.Conf.ApiKey = apiKey
	return NewRouter(conf, svc, runs)
}

func doRequest(router *gin.Engine, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req, _ = http.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, target, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	router := newTestRouter("", &fakeSync{}, &fakeRuns{})
	w := doRequest(router, "GET", "/healthz", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("Unexpected healthz response %d %s", w.Code, w.Body.String())
	}
}

func TestSyncEndpoint(t *testing.T) {
	svc := &fakeSync{result: syncer.Result{OK: true, Username: "alice", Fetched: 2, Synced: 2, Message: "synced 2 of 2 posts"}}
	router := newTestRouter("", svc, &fakeRuns{})

	w := doRequest(router, "POST", "/api/sync", `{"tenant":"shop-1"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var res syncer.Result
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if !res.OK || res.Synced != 2 || res.Tenant != "shop-1" {
		t.Errorf("Unexpected result %+v", res)
	}

	w = doRequest(router, "POST", "/api/sync?tenant=shop-2", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected query tenant to work, got %d", w.Code)
	}
	if len(svc.tenants) != 2 || svc.tenants[1] != "shop-2" {
		t.Errorf("Unexpected tenants %v", svc.tenants)
	}
}

func TestSyncEndpointValidation(t *testing.T) {
	router := newTestRouter("", &fakeSync{}, &fakeRuns{})

	if w := doRequest(router, "POST", "/api/sync", "", nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without tenant, got %d", w.Code)
	}
	if w := doRequest(router, "POST", "/api/sync", `{not json`, nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad JSON, got %d", w.Code)
	}
}

func TestSyncLimitedPerTenant(t *testing.T) {
	svc := &fakeSync{result: syncer.Result{OK: true}}
	router := newTestRouter("", svc, &fakeRuns{})

	for i := 0; i < 2; i++ {
		if w := doRequest(router, "POST", "/api/sync", `{"tenant":"shop-a"}`, nil); w.Code != http.StatusOK {
			t.Fatalf("shop-a request %d: expected 200, got %d", i+1, w.Code)
		}
	}
	if w := doRequest(router, "POST", "/api/sync", `{"tenant":"shop-a"}`, nil); w.Code != http.StatusTooManyRequests {
		t.Errorf("Expected 429 once shop-a's burst is spent, got %d", w.Code)
	}
	// the query form shares the tenant's bucket
	if w := doRequest(router, "POST", "/api/sync?tenant=shop-a", "", nil); w.Code != http.StatusTooManyRequests {
		t.Errorf("Expected 429 for shop-a via query, got %d", w.Code)
	}
	if w := doRequest(router, "POST", "/api/sync", `{"tenant":"shop-b"}`, nil); w.Code != http.StatusOK {
		t.Errorf("Expected shop-b to have its own bucket, got %d", w.Code)
	}
	if len(svc.tenants) != 3 || svc.tenants[2] != "shop-b" {
		t.Errorf("Unexpected tenants %v", svc.tenants)
	}
}

func TestSyncEndpointErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"no account", fmt.Errorf("%w for tenant x", syncer.ErrNoAccount), http.StatusNotFound},
		{"expired", fmt.Errorf("fetch failed: %w", graph.ErrAuthExpired), http.StatusUnauthorized},
		{"remote api", fmt.Errorf("fetch failed: %w", &graph.APIError{Message: "bad", Code: 190}), http.StatusBadGateway},
		{"cancelled", fmt.Errorf("interrupted: %w", context.Canceled), http.StatusGatewayTimeout},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeSync{result: syncer.Result{OK: false, Err: tt.err, Message: tt.err.Error()}}
			router := newTestRouter("", svc, &fakeRuns{})

			w := doRequest(router, "POST", "/api/sync?tenant=shop-1", "", nil)
			if w.Code != tt.status {
				t.Errorf("Expected %d, got %d", tt.status, w.Code)
			}
			if !strings.Contains(w.Body.String(), tt.err.Error()) {
				t.Errorf("Expected the error message in the body, got %s", w.Body.String())
			}
		})
	}
}

func TestAPIRequiresKey(t *testing.T) {
	svc := &fakeSync{result: syncer.Result{OK: true}}
	router := newTestRouter("k", svc, &fakeRuns{})

	if w := doRequest(router, "POST", "/api/sync?tenant=shop-1", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without key, got %d", w.Code)
	}
	if len(svc.tenants) != 0 {
		t.Error("Sync must not run without a key")
	}
	w := doRequest(router, "POST", "/api/sync?tenant=shop-1", "", map[string]string{"Authorization": "Bearer k"})
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 with key, got %d", w.Code)
	}
}

func TestRunsEndpoint(t *testing.T) {
	runs := &fakeRuns{runs: sampleRuns()}
	router := newTestRouter("", &fakeSync{}, runs)

	w := doRequest(router, "GET", "/api/runs?tenant=shop-1&limit=5000", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if runs.lastLimit != maxRunsLimit {
		t.Errorf("Expected limit clamped to %d, got %d", maxRunsLimit, runs.lastLimit)
	}
	var body struct {
		Tenant string           `json:"tenant"`
		Runs   []domain.SyncRun `json:"runs"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if len(body.Runs) != 2 {
		t.Errorf("Expected 2 runs, got %d", len(body.Runs))
	}

	w = doRequest(router, "GET", "/api/runs?tenant=unknown", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"runs":[]`) {
		t.Errorf("Expected an empty list, got %d %s", w.Code, w.Body.String())
	}
	if w := doRequest(router, "GET", "/api/runs", "", nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without tenant, got %d", w.Code)
	}
}

func TestFeedEndpoints(t *testing.T) {
	runs := &fakeRuns{runs: sampleRuns()}
	router := newTestRouter("", &fakeSync{}, runs)

	w := doRequest(router, "GET", "/feed?tenant=shop-1", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "<rss") {
		t.Errorf("Expected RSS, got %d %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/xml") {
		t.Errorf("Unexpected content type %q", ct)
	}

	if w := doRequest(router, "GET", "/feed?tenant=unknown", "", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for an empty journal, got %d", w.Code)
	}

	w = doRequest(router, "GET", "/feed/"+runs.runs[0].Id.String(), "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 for a known run, got %d", w.Code)
	}
	if w := doRequest(router, "GET", "/feed/"+uuid.New().String(), "", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for an unknown run, got %d", w.Code)
	}
	if w := doRequest(router, "GET", "/feed/not-a-uuid", "", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for a bad id, got %d", w.Code)
	}
}

func TestParseLimit(t *testing.T) {
	tests := map[string]int{"": defaultRunsLimit, "x": defaultRunsLimit, "-1": defaultRunsLimit, "7": 7, "100000": maxRunsLimit}
	for in, want := range tests {
		if got := parseLimit(in); got != want {
			t.Errorf("parseLimit(%q) = %d, want %d", in, got, want)
		}
	}
}
