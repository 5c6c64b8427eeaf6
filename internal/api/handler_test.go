package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/morel-ai/morel/internal/auth"
	"github.com/morel-ai/morel/internal/catalog"
	"github.com/morel-ai/morel/internal/recommend"
	"github.com/morel-ai/morel/internal/report"
	"github.com/morel-ai/morel/internal/usage"
)

// ---------------------------------------------------------------------------
// Test fixtures
// ---------------------------------------------------------------------------

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New([]catalog.ModelDescriptor{
		{
			ModelID: "myco/nano", Provider: "myco", DisplayName: "Myco Nano",
			Capabilities:  []string{"chat", "fast"},
			ContextWindow: 16000, InputCostPerMTok: 0.1, OutputCostPerMTok: 0.4,
		},
		{
			ModelID: "myco/coder", Provider: "myco", DisplayName: "Myco Coder",
			Capabilities:  []string{"chat", "code"},
			ContextWindow: 64000, InputCostPerMTok: 1.0, OutputCostPerMTok: 4.0,
		},
		{
			ModelID: "myco/sage", Provider: "myco", DisplayName: "Myco Sage",
			Capabilities:  []string{"chat", "code", "reasoning", "long-context"},
			ContextWindow: 200000, InputCostPerMTok: 3.0, OutputCostPerMTok: 15.0,
		},
	})
	if err != nil {
		t.Fatalf("building catalog: %v", err)
	}
	return c
}

// fakeRecorder implements eventRecorder.
type fakeRecorder struct {
	event *usage.Event
	err   error
	got   []usage.RecordInput
}

func (f *fakeRecorder) Record(ctx context.Context, in usage.RecordInput) (*usage.Event, error) {
	f.got = append(f.got, in)
	if f.err != nil {
		return nil, f.err
	}
	return f.event, nil
}

// fakeEventSource implements report.EventSource.
type fakeEventSource struct {
	summary *usage.Summary
	modules []usage.ModuleCost
	users   []usage.ResearcherCost
	events  []*usage.Event
	err     error
}

func (f *fakeEventSource) GetSummary(ctx context.Context, q usage.Query) (*usage.Summary, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.summary != nil {
		return f.summary, nil
	}
	return &usage.Summary{}, nil
}

func (f *fakeEventSource) ModuleBreakdown(ctx context.Context, q usage.Query) ([]usage.ModuleCost, error) {
	return f.modules, f.err
}

func (f *fakeEventSource) ResearcherBreakdown(ctx context.Context, q usage.Query) ([]usage.ResearcherCost, error) {
	return f.users, f.err
}

func (f *fakeEventSource) ListEvents(ctx context.Context, q usage.Query) ([]*usage.Event, string, error) {
	return f.events, "", f.err
}

// fakeModelSource implements modelSource.
type fakeModelSource struct {
	models []catalog.ModelDescriptor
	err    error
}

func (f *fakeModelSource) List(ctx context.Context) ([]catalog.ModelDescriptor, error) {
	return f.models, f.err
}

func (f *fakeModelSource) Upsert(ctx context.Context, in catalog.UpsertModelInput) (*catalog.ModelDescriptor, error) {
	if f.err != nil {
		return nil, f.err
	}
	m := catalog.ModelDescriptor{
		ModelID:           in.ModelID,
		Provider:          in.Provider,
		DisplayName:       in.DisplayName,
		Capabilities:      in.Capabilities,
		ContextWindow:     in.ContextWindow,
		InputCostPerMTok:  in.InputCostPerMTok,
		OutputCostPerMTok: in.OutputCostPerMTok,
	}
	f.models = append(f.models, m)
	return &m, nil
}

func testRouter(t *testing.T, deps RouterDeps) http.Handler {
	t.Helper()
	if deps.Catalog == nil {
		deps.Catalog = testCatalog(t)
	}
	if deps.Scorer == nil {
		deps.Scorer = recommend.NewScorer(deps.Catalog)
	}
	if deps.Aggregator == nil {
		deps.Aggregator = report.NewAggregator(&fakeEventSource{})
	}
	if deps.Recorder == nil {
		deps.Recorder = &fakeRecorder{event: &usage.Event{EventID: "evt-1"}}
	}
	return NewRouter(deps)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshalling request body: %v", err)
		}
		rd = bytes.NewReader(data)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// ---------------------------------------------------------------------------
// Health check handler tests
// ---------------------------------------------------------------------------

func TestHealthCheck_OK(t *testing.T) {
	handler := testRouter(t, RouterDeps{AllowedOrigins: []string{"*"}})

	rec := doJSON(t, handler, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status=ok, got %q", body["status"])
	}
	if body["database"] != "connected" {
		t.Errorf("expected database=connected, got %q", body["database"])
	}
}

func TestHealthCheck_DatabaseDown(t *testing.T) {
	handler := testRouter(t, RouterDeps{
		DBPing: func(ctx context.Context) error { return errors.New("no route to host") },
	})

	rec := doJSON(t, handler, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "degraded" {
		t.Errorf("expected status=degraded, got %q", body["status"])
	}
	if body["database"] != "unreachable" {
		t.Errorf("expected database=unreachable, got %q", body["database"])
	}
}

// ---------------------------------------------------------------------------
// Well-known manifest tests
// ---------------------------------------------------------------------------

func TestDashboardServed(t *testing.T) {
	handler := testRouter(t, RouterDeps{})

	rec := doJSON(t, handler, http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("expected text/html content type, got %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "Morel") {
		t.Error("dashboard body missing product name")
	}
}

func TestWellKnownHandler(t *testing.T) {
	handler := testRouter(t, RouterDeps{})

	rec := doJSON(t, handler, http.MethodGet, "/.well-known/morel.json", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var manifest map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&manifest); err != nil {
		t.Fatalf("failed to decode manifest: %v", err)
	}
	if name, _ := manifest["name"].(string); name != "Morel" {
		t.Errorf("expected name=Morel, got %q", name)
	}
	endpoints, ok := manifest["endpoints"].(map[string]interface{})
	if !ok {
		t.Fatal("endpoints field is not an object")
	}
	for _, ep := range []string{"recommend", "models", "usage", "usage_export"} {
		if _, ok := endpoints[ep]; !ok {
			t.Errorf("endpoints missing %q", ep)
		}
	}
}

// ---------------------------------------------------------------------------
// Recommendation handler tests
// ---------------------------------------------------------------------------

func TestRecommend_CodePrompt(t *testing.T) {
	handler := testRouter(t, RouterDeps{})

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/recommend", map[string]interface{}{
		"prompt": "Write a Python function to parse FASTA headers from a genome file",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Complexity struct {
			Score  float64 `json:"score"`
			Bucket string  `json:"bucket"`
		} `json:"complexity"`
		TaskType        string `json:"task_type"`
		Recommendations []struct {
			ModelID   string  `json:"model_id"`
			Score     float64 `json:"score"`
			Reasoning string  `json:"reasoning"`
			Pricing   struct {
				InputCostPerMTok  float64 `json:"input_cost_per_mtok"`
				OutputCostPerMTok float64 `json:"output_cost_per_mtok"`
			} `json:"pricing"`
		} `json:"recommendations"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if resp.TaskType != "code-generation" {
		t.Errorf("expected task_type=code-generation, got %q", resp.TaskType)
	}
	if resp.Complexity.Bucket == "" {
		t.Error("expected a complexity bucket")
	}
	if len(resp.Recommendations) == 0 {
		t.Fatal("expected at least one recommendation")
	}
	top := resp.Recommendations[0]
	if top.ModelID != "myco/coder" && top.ModelID != "myco/sage" {
		t.Errorf("expected a code-capable model first, got %q", top.ModelID)
	}
	if top.Pricing.InputCostPerMTok == 0 {
		t.Error("expected pricing to be echoed from the catalog")
	}
	if top.Reasoning == "" {
		t.Error("expected non-empty reasoning")
	}

	// Scores are sorted descending.
	for i := 1; i < len(resp.Recommendations); i++ {
		if resp.Recommendations[i].Score > resp.Recommendations[i-1].Score {
			t.Errorf("recommendations not sorted by score at index %d", i)
		}
	}
}

func TestRecommend_Validation(t *testing.T) {
	handler := testRouter(t, RouterDeps{})

	tests := []struct {
		name       string
		body       interface{}
		raw        string
		wantStatus int
	}{
		{name: "empty prompt", body: map[string]interface{}{"prompt": "   "}, wantStatus: http.StatusUnprocessableEntity},
		{name: "negative top_n", body: map[string]interface{}{"prompt": "hello", "top_n": -1}, wantStatus: http.StatusUnprocessableEntity},
		{name: "malformed json", raw: "{not json", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec *httptest.ResponseRecorder
			if tt.raw != "" {
				req := httptest.NewRequest(http.MethodPost, "/api/v1/recommend", strings.NewReader(tt.raw))
				rec = httptest.NewRecorder()
				handler.ServeHTTP(rec, req)
			} else {
				rec = doJSON(t, handler, http.MethodPost, "/api/v1/recommend", tt.body)
			}
			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestRecommend_PreferencesNarrowCandidates(t *testing.T) {
	handler := testRouter(t, RouterDeps{})

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/recommend", map[string]interface{}{
		"prompt": "Summarize this paper about lichen symbiosis",
		"preferences": map[string]interface{}{
			"required_capabilities": []string{"long-context"},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp struct {
		Recommendations []struct {
			ModelID string `json:"model_id"`
		} `json:"recommendations"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Recommendations) != 1 || resp.Recommendations[0].ModelID != "myco/sage" {
		t.Errorf("expected only myco/sage to survive the capability filter, got %+v", resp.Recommendations)
	}
}

// ---------------------------------------------------------------------------
// Usage recording handler tests
// ---------------------------------------------------------------------------

func TestRecordUsage_Created(t *testing.T) {
	fr := &fakeRecorder{event: &usage.Event{
		EventID: "evt-42", UserID: "researcher-1", ModelID: "myco/sage",
		InputTokens: 1200, OutputTokens: 300, Cost: 0.0081,
		Timestamp: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
	}}
	handler := testRouter(t, RouterDeps{Recorder: fr})

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/usage", map[string]interface{}{
		"user_id":       "researcher-1",
		"model_id":      "myco/sage",
		"input_tokens":  1200,
		"output_tokens": 300,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var e usage.Event
	if err := json.NewDecoder(rec.Body).Decode(&e); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if e.EventID != "evt-42" {
		t.Errorf("expected event_id=evt-42, got %q", e.EventID)
	}
	if len(fr.got) != 1 {
		t.Fatalf("recorder called %d times, want 1", len(fr.got))
	}
	if fr.got[0].UserID != "researcher-1" || fr.got[0].InputTokens != 1200 {
		t.Errorf("recorder input not propagated: %+v", fr.got[0])
	}
}

func TestRecordUsage_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"duplicate", usage.ErrDuplicateEvent, http.StatusConflict, "duplicate_event"},
		{"unknown model", catalog.ErrModelNotFound, http.StatusUnprocessableEntity, "unknown_model"},
		{"missing user", usage.ErrUserRequired, http.StatusUnprocessableEntity, "validation_error"},
		{"negative tokens", usage.ErrNegativeTokens, http.StatusUnprocessableEntity, "validation_error"},
		{"storage failure", errors.New("connection refused"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := testRouter(t, RouterDeps{Recorder: &fakeRecorder{err: tt.err}})

			rec := doJSON(t, handler, http.MethodPost, "/api/v1/usage", map[string]interface{}{
				"user_id":  "researcher-1",
				"model_id": "myco/sage",
			})
			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}

			var resp errorEnvelope
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode error: %v", err)
			}
			if resp.Error.Code != tt.wantCode {
				t.Errorf("expected code %q, got %q", tt.wantCode, resp.Error.Code)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Usage reporting handler tests
// ---------------------------------------------------------------------------

func TestUsageSummary(t *testing.T) {
	agg := report.NewAggregator(&fakeEventSource{summary: &usage.Summary{
		TotalEvents: 12, TotalCost: 4.2, DistinctUsers: 3,
	}})
	handler := testRouter(t, RouterDeps{Aggregator: agg})

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/usage/summary?from=2026-08-01&to=2026-08-31", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		From    string        `json:"from"`
		To      string        `json:"to"`
		Summary usage.Summary `json:"summary"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.From != "2026-08-01" || resp.To != "2026-08-31" {
		t.Errorf("window = %s..%s", resp.From, resp.To)
	}
	if resp.Summary.TotalEvents != 12 || resp.Summary.TotalCost != 4.2 {
		t.Errorf("summary not propagated: %+v", resp.Summary)
	}
}

func TestUsageSummary_BadDates(t *testing.T) {
	handler := testRouter(t, RouterDeps{})

	tests := []struct {
		name string
		path string
	}{
		{"garbage from", "/api/v1/usage/summary?from=yesterday"},
		{"reversed range", "/api/v1/usage/summary?from=2026-08-31&to=2026-08-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, handler, http.MethodGet, tt.path, nil)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", rec.Code)
			}
		})
	}
}

func TestUsageModuleBreakdown(t *testing.T) {
	agg := report.NewAggregator(&fakeEventSource{modules: []usage.ModuleCost{
		{Module: "species-id", TotalCost: 3.5, TotalEvents: 9},
		{Module: "general-chat", TotalCost: 0.7, TotalEvents: 30},
	}})
	handler := testRouter(t, RouterDeps{Aggregator: agg})

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/usage/modules?from=2026-08-01&to=2026-08-31", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp struct {
		Modules []usage.ModuleCost `json:"modules"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Modules) != 2 || resp.Modules[0].Module != "species-id" {
		t.Errorf("unexpected module breakdown: %+v", resp.Modules)
	}
}

func TestUsageResearcherBreakdown_EmptyIsArray(t *testing.T) {
	handler := testRouter(t, RouterDeps{})

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/usage/researchers", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"researchers":[]`) {
		t.Errorf("expected empty array, got %s", rec.Body.String())
	}
}

func TestUsageExport_CSV(t *testing.T) {
	agg := report.NewAggregator(&fakeEventSource{events: []*usage.Event{
		{
			EventID: "evt-1", UserID: "researcher-1", ModelID: "myco/sage",
			Module: "species-id", InputTokens: 100, OutputTokens: 20, Cost: 0.0006,
			Timestamp: time.Date(2026, 8, 15, 9, 0, 0, 0, time.UTC),
		},
	}})
	handler := testRouter(t, RouterDeps{Aggregator: agg})

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/usage/export?from=2026-08-01&to=2026-08-31", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("expected text/csv, got %q", ct)
	}
	cd := rec.Header().Get("Content-Disposition")
	if !strings.Contains(cd, "usage-export-2026-08-01-2026-08-31.csv") {
		t.Errorf("unexpected Content-Disposition: %q", cd)
	}
	if !strings.HasPrefix(rec.Body.String(), "event_id,user_id,model_id,module,") {
		t.Errorf("unexpected CSV body: %q", rec.Body.String())
	}
}

func TestUsageExport_BadFormat(t *testing.T) {
	handler := testRouter(t, RouterDeps{})

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/usage/export?format=xml", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rec.Code)
	}
}

// ---------------------------------------------------------------------------
// Model catalog handler tests
// ---------------------------------------------------------------------------

func TestListModels(t *testing.T) {
	handler := testRouter(t, RouterDeps{})

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/models", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp struct {
		Models []catalog.ModelDescriptor `json:"models"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Models) != 3 {
		t.Errorf("expected 3 models, got %d", len(resp.Models))
	}
	if resp.Models[0].ModelID != "myco/nano" {
		t.Errorf("expected insertion order, got %q first", resp.Models[0].ModelID)
	}
}

func TestGetModel(t *testing.T) {
	handler := testRouter(t, RouterDeps{})

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/models/myco%2Fsage", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var m catalog.ModelDescriptor
	if err := json.NewDecoder(rec.Body).Decode(&m); err != nil {
		t.Fatal(err)
	}
	if m.ModelID != "myco/sage" {
		t.Errorf("expected myco/sage, got %q", m.ModelID)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/models/ghost", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404 for unknown model, got %d", rec.Code)
	}
}

// ---------------------------------------------------------------------------
// Admin route tests
// ---------------------------------------------------------------------------

func adminTestKey(t *testing.T) (plaintext, hash string) {
	t.Helper()
	plaintext, hash, err := auth.GenerateAdminKey()
	if err != nil {
		t.Fatalf("generating admin key: %v", err)
	}
	return plaintext, hash
}

func TestAdminRoutes_RequireKey(t *testing.T) {
	_, hash := adminTestKey(t)
	handler := testRouter(t, RouterDeps{
		ModelStore:   &fakeModelSource{},
		AdminKeyHash: hash,
	})

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/admin/catalog/refresh", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401 without key, got %d", rec.Code)
	}
}

func TestAdminCatalogRefresh(t *testing.T) {
	key, hash := adminTestKey(t)
	cat := testCatalog(t)
	store := &fakeModelSource{models: []catalog.ModelDescriptor{
		{ModelID: "myco/fresh", Provider: "myco", DisplayName: "Fresh",
			ContextWindow: 32000, InputCostPerMTok: 0.5, OutputCostPerMTok: 2.0},
	}}
	handler := testRouter(t, RouterDeps{
		Catalog:      cat,
		ModelStore:   store,
		AdminKeyHash: hash,
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/catalog/refresh", nil)
	req.Header.Set("Authorization", "Bearer "+key)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if cat.Len() != 1 {
		t.Errorf("expected catalog replaced with 1 model, got %d", cat.Len())
	}
	if _, err := cat.Get("myco/fresh"); err != nil {
		t.Errorf("refreshed model missing: %v", err)
	}
}

func TestAdminUpsertModel(t *testing.T) {
	key, hash := adminTestKey(t)
	cat := testCatalog(t)
	store := &fakeModelSource{models: cat.List()}
	handler := testRouter(t, RouterDeps{
		Catalog:      cat,
		ModelStore:   store,
		AdminKeyHash: hash,
	})

	body, _ := json.Marshal(catalog.UpsertModelInput{
		ModelID: "myco/vision", Provider: "myco", DisplayName: "Myco Vision",
		Capabilities:  []string{"chat", "vision"},
		ContextWindow: 128000, InputCostPerMTok: 2.5, OutputCostPerMTok: 10.0,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/models", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+key)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if _, err := cat.Get("myco/vision"); err != nil {
		t.Errorf("upserted model not in live catalog: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Middleware tests
// ---------------------------------------------------------------------------

func TestRequestIDHeader(t *testing.T) {
	handler := testRouter(t, RouterDeps{})

	rec := doJSON(t, handler, http.MethodGet, "/health", nil)
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID to be set")
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	rec2 := httptest.NewRecorder()
	handler.ServeHTTP(rec2, req)
	if got := rec2.Header().Get("X-Request-ID"); got != "fixed-id" {
		t.Errorf("expected echoed request id, got %q", got)
	}
}

func TestSecureHeaders(t *testing.T) {
	handler := testRouter(t, RouterDeps{})

	rec := doJSON(t, handler, http.MethodGet, "/health", nil)
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("expected nosniff, got %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("expected DENY, got %q", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	handler := testRouter(t, RouterDeps{AllowedOrigins: []string{"https://lab.example.org"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/models", nil)
	req.Header.Set("Origin", "https://lab.example.org")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204 for preflight, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://lab.example.org" {
		t.Errorf("expected allowed origin echoed, got %q", got)
	}
}
