package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"mediarelay/internal/domain"
	"mediarelay/internal/http/handlers"
	"mediarelay/internal/infra"
	"mediarelay/internal/jobs"
	"mediarelay/internal/storage"
)

type stubCatalog struct {
	product *domain.Product
	err     error
	calls   int
}

func (s *stubCatalog) TriggerCatalogFetch(context.Context) (*domain.Product, error) {
	s.calls++
	return s.product, s.err
}

type stubGenerator struct {
	handle *domain.JobHandle
	err    error
	got    domain.Product
}

func (s *stubGenerator) StartGeneration(_ context.Context, p domain.Product) (*domain.JobHandle, error) {
	s.got = p
	return s.handle, s.err
}

type stubProvider struct {
	status domain.JobStatus
	err    error
	asked  string
}

func (s *stubProvider) Status(_ context.Context, jobID string) (domain.JobStatus, error) {
	s.asked = jobID
	return s.status, s.err
}

type fixture struct {
	handler   http.Handler
	catalog   *stubCatalog
	generator *stubGenerator
	poller    *stubProvider
	results   *jobs.Results
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	at := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	metrics := infra.NewMetrics()
	results := jobs.NewResults(storage.NewMemoryJobStore(), jobs.ResultsOptions{
		Now:     func() time.Time { return at },
		Metrics: metrics,
	})
	f := &fixture{
		catalog:   &stubCatalog{},
		generator: &stubGenerator{},
		poller:    &stubProvider{},
		results:   results,
	}
	app := &handlers.App{
		Catalog:       f.catalog,
		Generator:     f.generator,
		Results:       results,
		Poller:        f.poller,
		Jobs:          jobs.NewCallbackProvider(results),
		Metrics:       metrics,
		PublicBaseURL: "https://relay.example.com",
	}
	f.handler = NewRouter(app, Options{Logger: zerolog.Nop()})
	return f
}

func (f *fixture) do(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	var decoded map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") && path != "/openapi.json" {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("%s %s: decode body: %v (%s)", method, path, err, rec.Body.String())
		}
	}
	return rec, decoded
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)
	rec, body := f.do(t, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("healthz = %d %v", rec.Code, body)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected X-Request-ID header")
	}
}

func TestRandomProduct(t *testing.T) {
	f := newFixture(t)
	product := mustProduct(t, `{"id":"p1","name":"Desk Lamp","images":["b.jpg","a.jpg"]}`)
	f.catalog.product = &product

	rec, body := f.do(t, http.MethodPost, "/products/random", "")
	if rec.Code != http.StatusOK || body["success"] != true {
		t.Fatalf("response = %d %v", rec.Code, body)
	}
	data := body["data"].(map[string]any)
	if data["name"] != "Desk Lamp" {
		t.Fatalf("data = %v", data)
	}
	images := data["images"].([]any)
	if images[0] != "b.jpg" || images[1] != "a.jpg" {
		t.Fatalf("images reordered: %v", images)
	}
}

func TestRandomProductRelaysUnknownFields(t *testing.T) {
	const catalogBody = `{"id":"p1","name":"Lamp","price":"19.99","images":["a","b"],"rating":4.8,"sku":"CJ-1","url":"https://x.example.com/?a=1&b=<2>"}`
	f := newFixture(t)
	product := mustProduct(t, catalogBody)
	f.catalog.product = &product

	rec, _ := f.do(t, http.MethodPost, "/products/random", "")
	if want := `{"success":true,"data":` + catalogBody + "}\n"; rec.Body.String() != want {
		t.Fatalf("body = %s, want %s", rec.Body.String(), want)
	}
}

func TestRandomProductErrors(t *testing.T) {
	f := newFixture(t)
	f.catalog.err = &domain.ConfigurationError{Message: "Webhook URL not configured"}
	rec, body := f.do(t, http.MethodPost, "/products/random", "")
	if rec.Code != http.StatusInternalServerError || body["error"] != "Webhook URL not configured" || body["success"] != false {
		t.Fatalf("config error = %d %v", rec.Code, body)
	}

	f.catalog.err = &domain.UpstreamHTTPError{Status: 503, Message: "HTTP error! status: 503"}
	rec, body = f.do(t, http.MethodPost, "/products/random", "")
	if rec.Code != http.StatusServiceUnavailable || body["error"] != "HTTP error! status: 503" {
		t.Fatalf("upstream error = %d %v", rec.Code, body)
	}
}

func TestGenerateAcceptsWrappedAndBareProduct(t *testing.T) {
	for name, payload := range map[string]string{
		"wrapped": `{"product":{"id":"p1","name":"Chair","price":12.5}}`,
		"bare":    `{"id":"p1","name":"Chair","price":12.5}`,
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			f.generator.handle = &domain.JobHandle{
				Success:     boolPtr(true),
				Status:      domain.JobStateProcessing,
				JobID:       "abc123",
				ProductName: "Chair",
				Message:     "Media generation started",
			}
			rec, body := f.do(t, http.MethodPost, "/generate", payload)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d body = %v", rec.Code, body)
			}
			if string(f.generator.got.Raw()) != `{"id":"p1","name":"Chair","price":12.5}` {
				t.Fatalf("product forwarded = %s", f.generator.got.Raw())
			}
			if body["jobId"] != "abc123" || body["status"] != "processing" || body["success"] != true {
				t.Fatalf("body = %v", body)
			}
			if body["resultsUrl"] != "https://relay.example.com/results/abc123" {
				t.Fatalf("resultsUrl = %v", body["resultsUrl"])
			}
			if body["statusUrl"] != "https://relay.example.com/jobs/abc123" {
				t.Fatalf("statusUrl = %v", body["statusUrl"])
			}
		})
	}
}

func TestGenerateForwardsProductVerbatim(t *testing.T) {
	const product = `{"id":"p1","name":"Lamp","price":"19.99","images":["a","b"],"rating":4.8,"sku":"CJ-1"}`
	f := newFixture(t)
	f.generator.handle = &domain.JobHandle{JobID: "abc123"}

	rec, body := f.do(t, http.MethodPost, "/generate", `{"product":`+product+`}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %v", rec.Code, body)
	}
	if string(f.generator.got.Raw()) != product {
		t.Fatalf("product forwarded = %s", f.generator.got.Raw())
	}
	if _, ok := body["success"]; ok {
		t.Fatalf("success should stay omitted: %v", body)
	}
	if _, ok := body["status"]; ok {
		t.Fatalf("status should stay omitted: %v", body)
	}
	if body["jobId"] != "abc123" {
		t.Fatalf("body = %v", body)
	}
}

func TestGenerateErrors(t *testing.T) {
	f := newFixture(t)
	rec, body := f.do(t, http.MethodPost, "/generate", `not json`)
	if rec.Code != http.StatusBadRequest || body["status"] != "failed" {
		t.Fatalf("bad payload = %d %v", rec.Code, body)
	}

	f.generator.err = &domain.UnreachableWorkflowError{Status: 404}
	rec, body = f.do(t, http.MethodPost, "/generate", `{"product":{"name":"Chair"}}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if body["error"] != "Webhook error (404): Unable to reach n8n workflow. Please check webhook URL." {
		t.Fatalf("error = %v", body["error"])
	}

	f.generator.err = &domain.ConfigurationError{Message: "Media generation webhook URL not configured"}
	rec, body = f.do(t, http.MethodPost, "/generate", `{"product":{"name":"Chair"}}`)
	if rec.Code != http.StatusInternalServerError || body["success"] != false || body["status"] != "failed" {
		t.Fatalf("config error = %d %v", rec.Code, body)
	}
}

func TestResultsLifecycle(t *testing.T) {
	f := newFixture(t)

	rec, body := f.do(t, http.MethodGet, "/results/job-1", "")
	if rec.Code != http.StatusOK || body["status"] != "processing" || body["message"] != "Results not yet available" {
		t.Fatalf("pending = %d %v", rec.Code, body)
	}

	rec, body = f.do(t, http.MethodPost, "/results/job-1", `{"imageUrl":"https://cdn.example.com/i.png","videoUrl":"https://cdn.example.com/v.mp4"}`)
	if rec.Code != http.StatusOK || body["success"] != true {
		t.Fatalf("store = %d %v", rec.Code, body)
	}

	rec, body = f.do(t, http.MethodGet, "/results/job-1", "")
	if rec.Code != http.StatusOK || body["status"] != "completed" || body["success"] != true {
		t.Fatalf("completed = %d %v", rec.Code, body)
	}
	data := body["data"].(map[string]any)
	if data["videoUrl"] != "https://cdn.example.com/v.mp4" || data["receivedAt"] != "2026-10-19T08:00:00.000Z" {
		t.Fatalf("data = %v", data)
	}

	rec, body = f.do(t, http.MethodGet, "/jobs/job-1", "")
	if rec.Code != http.StatusOK || body["status"] != "completed" {
		t.Fatalf("jobs = %d %v", rec.Code, body)
	}

	rec, _ = f.do(t, http.MethodDelete, "/results/job-1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("delete = %d", rec.Code)
	}
	_, body = f.do(t, http.MethodGet, "/results/job-1", "")
	if body["status"] != "processing" {
		t.Fatalf("after delete = %v", body)
	}
}

func TestResultsRejectsNonObjectBody(t *testing.T) {
	f := newFixture(t)
	for _, payload := range []string{`[1,2]`, `{"broken"`, `null`} {
		rec, body := f.do(t, http.MethodPost, "/results/job-1", payload)
		if rec.Code != http.StatusInternalServerError || body["error"] != "Failed to store results" {
			t.Fatalf("%s: %d %v", payload, rec.Code, body)
		}
	}
	_, ok, err := f.results.Lookup(context.Background(), "job-1")
	if err != nil || ok {
		t.Fatalf("nothing should be stored, ok=%v err=%v", ok, err)
	}
}

func TestStatusEndpoint(t *testing.T) {
	f := newFixture(t)
	f.poller.status = domain.JobStatus{Status: domain.JobStateProcessing, Message: "Creating AI video..."}.WithProgress(75)

	rec, body := f.do(t, http.MethodGet, "/status/job-9", "")
	if rec.Code != http.StatusOK || body["progress"] != float64(75) || body["message"] != "Creating AI video..." {
		t.Fatalf("status = %d %v", rec.Code, body)
	}
	if f.poller.asked != "job-9" {
		t.Fatalf("poller asked for %q", f.poller.asked)
	}

	f.poller.err = &domain.ConfigurationError{Message: "N8N API not configured"}
	rec, body = f.do(t, http.MethodGet, "/status/job-9", "")
	if rec.Code != http.StatusInternalServerError || body["status"] != "failed" || body["error"] != "N8N API not configured" {
		t.Fatalf("config error = %d %v", rec.Code, body)
	}

	f.poller.err = &domain.UpstreamHTTPError{Status: 401, Message: "Failed to query n8n: 401"}
	rec, body = f.do(t, http.MethodGet, "/status/job-9", "")
	if rec.Code != http.StatusInternalServerError || body["error"] != "Failed to query n8n: 401" {
		t.Fatalf("upstream error = %d %v", rec.Code, body)
	}
}

func TestMetricsAndDocs(t *testing.T) {
	f := newFixture(t)
	_, _ = f.do(t, http.MethodPost, "/results/job-1", `{"imageUrl":"x"}`)

	rec, _ := f.do(t, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "mediarelay_result_callbacks_total 1") {
		t.Fatalf("metrics = %d\n%s", rec.Code, rec.Body.String())
	}

	rec, _ = f.do(t, http.MethodGet, "/openapi.json", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("openapi.json = %d", rec.Code)
	}
	var doc struct {
		Servers []struct {
			URL string `json:"url"`
		} `json:"servers"`
		Paths map[string]json.RawMessage `json:"paths"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode openapi.json: %v", err)
	}
	if len(doc.Servers) != 1 || doc.Servers[0].URL != "https://relay.example.com" {
		t.Fatalf("servers = %+v", doc.Servers)
	}
	if _, ok := doc.Paths["/results/{jobId}"]; !ok {
		t.Fatalf("paths missing /results/{jobId}")
	}

	rec, _ = f.do(t, http.MethodGet, "/docs", "")
	page := rec.Body.String()
	if rec.Code != http.StatusOK || !strings.Contains(page, `spec-url="/openapi.json"`) {
		t.Fatalf("docs = %d", rec.Code)
	}
	if !strings.Contains(page, "<li>POST /generate: ") || !strings.Contains(page, "<li>GET /status/{jobId}: ") {
		t.Fatalf("docs missing route index:\n%s", page)
	}
}

func mustProduct(t *testing.T, raw string) domain.Product {
	t.Helper()
	product, err := domain.ProductFromJSON([]byte(raw))
	if err != nil {
		t.Fatalf("product %s: %v", raw, err)
	}
	return product
}

func boolPtr(v bool) *bool { return &v }
