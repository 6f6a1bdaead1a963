package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/knwanna/universal-reconciliation-service/cmd/application"
	"github.com/knwanna/universal-reconciliation-service/internal/backend"
	"github.com/knwanna/universal-reconciliation-service/pkg/reconcile"
	"github.com/knwanna/universal-reconciliation-service/pkg/schema"
)

// answers returns a canned backend answer per operation.
func answers(_ string, d schema.Descriptor) (string, error) {
	switch d.Operation {
	case schema.OpReconcile:
		return `{"result":[{"id":"Q42","name":"Douglas Adams","score":0.95,"type":[{"id":"/people/person","name":"Person"}]}]}`, nil
	case schema.OpSuggestEntity, schema.OpSuggestType, schema.OpSuggestProperty:
		return `[{"id":"Q42","name":"Douglas Adams"}]`, nil
	case schema.OpPreview:
		return `{"html":"<p>English writer</p>","name":"Douglas Adams","description":"English writer"}`, nil
	case schema.OpExtend:
		return `{"properties":[{"id":"P569","name":"date of birth","values":[{"date":"1952-03-11"}]}]}`, nil
	case schema.OpProposeProperties:
		return `{"properties":[{"id":"P569","name":"date of birth"}]}`, nil
	case schema.OpMatchChunk:
		return `{"match":"Apple Inc.","confidence":90}`, nil
	}
	return `{}`, nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RateLimit = 0
	cfg.BaseURL = "http://reconcile.test"
	return cfg
}

// newTestServer builds a started server over a stub backend.
func newTestServer(t *testing.T, cfg Config) (*Server, *backend.Stub) {
	t.Helper()
	return newStubServer(t, cfg, answers)
}

// newStubServer builds a started server whose backend answers with respond.
func newStubServer(t *testing.T, cfg Config, respond backend.RespondFunc) (*Server, *backend.Stub) {
	t.Helper()

	stub := backend.NewStub(respond)
	app := &application.Mock{
		EngineFunc: func(opts ...reconcile.Option) (*reconcile.Engine, error) {
			return reconcile.New(stub, opts...)
		},
	}

	srv, err := New(app, cfg)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	srv.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv, stub
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v\n%s", err, rec.Body.String())
	}
	return body
}

// TestServerInitialization tests that New() completes without blocking.
func TestServerInitialization(t *testing.T) {
	done := make(chan struct{})
	var srv *Server
	var newErr error

	go func() {
		srv, newErr = New(&application.Mock{}, testConfig())
		close(done)
	}()

	select {
	case <-done:
		if newErr != nil {
			t.Fatalf("New() failed: %v", newErr)
		}
		if srv == nil {
			t.Fatal("New() returned nil server")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("New() deadlocked - did not complete within 5 seconds")
	}

	srv.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() = %v", err)
	}
}

func TestNewRejectsBadManifestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	if err := os.WriteFile(path, []byte("name: [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig()
	cfg.ManifestFile = path
	if _, err := New(&application.Mock{}, cfg); err == nil {
		t.Error("New() accepted a malformed manifest file")
	}
}

func TestManifest(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	h := srv.Handler()

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/reconcile", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := decode(t, rec)
	for _, key := range []string{"name", "identifierSpace", "schemaSpace", "defaultTypes"} {
		if _, ok := body[key]; !ok {
			t.Errorf("manifest missing %q", key)
		}
	}
	preview, _ := body["preview"].(map[string]any)
	if url, _ := preview["url"].(string); !strings.HasPrefix(url, "http://reconcile.test/api/v1/preview") {
		t.Errorf("preview url = %q", url)
	}
}

func TestManifestJSONP(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	h := srv.Handler()

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/reconcile?callback=jsonp123", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/javascript" {
		t.Errorf("Content-Type = %q", ct)
	}
	got := rec.Body.String()
	if !strings.HasPrefix(got, "jsonp123(") || !strings.HasSuffix(got, ");") {
		t.Errorf("body = %q, want jsonp123(...);", got)
	}

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/reconcile?callback=alert(1)", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unsafe callback status = %d, want 400", rec.Code)
	}
}

func TestManifestOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	if err := os.WriteFile(path, []byte("name: Library Catalogue\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := testConfig()
	cfg.ManifestFile = path
	srv, _ := newTestServer(t, cfg)

	rec := serve(srv.Handler(), httptest.NewRequest(http.MethodGet, "/api/v1/reconcile", nil))
	if got := decode(t, rec)["name"]; got != "Library Catalogue" {
		t.Errorf("name = %v, want Library Catalogue", got)
	}
}

func TestReconcile(t *testing.T) {
	queries := `{"q0":{"query":"Douglas Adams"},"q1":{"query":"H2G2 author","type":"/people/person"}}`

	tests := []struct {
		name string
		req  func() *http.Request
	}{
		{
			name: "query parameter",
			req: func() *http.Request {
				return httptest.NewRequest(http.MethodGet, "/api/v1/reconcile?queries="+url.QueryEscape(queries), nil)
			},
		},
		{
			name: "form post",
			req: func() *http.Request {
				form := url.Values{"queries": {queries}}
				r := httptest.NewRequest(http.MethodPost, "/api/v1/reconcile", strings.NewReader(form.Encode()))
				r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
				return r
			},
		},
		{
			name: "json body",
			req: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/api/v1/reconcile", strings.NewReader(`{"queries":`+queries+`}`))
				r.Header.Set("Content-Type", "application/json")
				return r
			},
		},
		{
			name: "bare json batch",
			req: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/api/v1/reconcile", strings.NewReader(queries))
				r.Header.Set("Content-Type", "application/json")
				return r
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, testConfig())
			rec := serve(srv.Handler(), tt.req())
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
			}

			body := decode(t, rec)
			for _, id := range []string{"q0", "q1"} {
				qr, ok := body[id].(map[string]any)
				if !ok {
					t.Fatalf("missing result for %s: %v", id, body)
				}
				result, _ := qr["result"].([]any)
				if len(result) != 1 {
					t.Fatalf("%s: got %d candidates, want 1", id, len(result))
				}
				c := result[0].(map[string]any)
				if c["name"] != "Douglas Adams" || c["match"] != true {
					t.Errorf("%s: candidate = %v", id, c)
				}
			}
			if _, ok := body["metadata"]; !ok {
				t.Error("response missing metadata")
			}
		})
	}
}

func TestReconcileBadBatch(t *testing.T) {
	srv, stub := newTestServer(t, testConfig())
	h := srv.Handler()

	tests := []struct {
		name    string
		queries string
	}{
		{"malformed json", `{"q0":`},
		{"empty batch", `{}`},
		{"empty query text", `{"q0":{"query":"  "}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/reconcile?queries="+url.QueryEscape(tt.queries), nil))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400: %s", rec.Code, rec.Body.String())
			}
			if _, ok := decode(t, rec)["error"]; !ok {
				t.Error("error envelope missing")
			}
		})
	}

	posts := []struct {
		name        string
		contentType string
		body        string
	}{
		{"form without queries", "application/x-www-form-urlencoded", "callback=cb"},
		{"empty form", "application/x-www-form-urlencoded", ""},
		{"json null queries", "application/json", `{"queries":null}`},
		{"empty json body", "application/json", ""},
	}
	for _, tt := range posts {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/v1/reconcile", strings.NewReader(tt.body))
			r.Header.Set("Content-Type", tt.contentType)
			rec := serve(h, r)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400: %s", rec.Code, rec.Body.String())
			}
			if _, ok := decode(t, rec)["name"]; ok {
				t.Error("POST without queries served the manifest")
			}
		})
	}

	if stub.Calls() != 0 {
		t.Errorf("backend called %d times for invalid input", stub.Calls())
	}
}

func TestReconcileBodyTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRequestBytes = 64
	srv, _ := newTestServer(t, cfg)

	big := `{"queries":{"q0":{"query":"` + strings.Repeat("x", 200) + `"}}}`
	r := httptest.NewRequest(http.MethodPost, "/api/v1/reconcile", strings.NewReader(big))
	r.Header.Set("Content-Type", "application/json")

	rec := serve(srv.Handler(), r)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestSuggestIsCached(t *testing.T) {
	srv, stub := newTestServer(t, testConfig())
	h := srv.Handler()

	for i := 0; i < 2; i++ {
		rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/suggest/entity?prefix=doug", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		body := decode(t, rec)
		if body["prefix"] != "doug" {
			t.Errorf("prefix = %v", body["prefix"])
		}
		if result, _ := body["result"].([]any); len(result) != 1 {
			t.Errorf("got %d suggestions, want 1", len(result))
		}
	}
	if stub.Calls() != 1 {
		t.Errorf("backend calls = %d, want 1", stub.Calls())
	}
}

func TestSuggestKinds(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	h := srv.Handler()

	for _, kind := range []string{"entity", "type", "property"} {
		rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/suggest/"+kind+"?prefix=da", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", kind, rec.Code)
		}
	}

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/suggest/entity?prefix=da&limit=abc", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d, want 400", rec.Code)
	}
}

func TestFlyout(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	h := srv.Handler()

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/suggest/flyout?id=Q42", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("id flyout status = %d", rec.Code)
	}
	body := decode(t, rec)
	if body["id"] != "Q42" || !strings.Contains(body["html"].(string), "Douglas Adams") {
		t.Errorf("flyout = %v", body)
	}

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/suggest/flyout?prefix=doug", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("prefix flyout status = %d", rec.Code)
	}
	if _, ok := decode(t, rec)["result"]; !ok {
		t.Error("prefix flyout missing result")
	}

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/suggest/flyout", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty flyout status = %d, want 400", rec.Code)
	}
}

func TestPreview(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	h := srv.Handler()

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/preview?id=Q42", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	got := rec.Body.String()
	for _, want := range []string{"Douglas Adams", "Q42", "English writer"} {
		if !strings.Contains(got, want) {
			t.Errorf("preview missing %q: %s", want, got)
		}
	}

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/preview", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing id status = %d, want 400", rec.Code)
	}
}

func TestPreviewFallbackIsNotCached(t *testing.T) {
	srv, stub := newStubServer(t, testConfig(), func(string, schema.Descriptor) (string, error) {
		return "", errors.New("upstream unavailable")
	})
	h := srv.Handler()

	for i := 0; i < 2; i++ {
		rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/preview?id="+url.QueryEscape("  Q42 "), nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if got := rec.Body.String(); got != reconcile.FallbackPreview("Q42") {
			t.Errorf("preview = %q, want the fallback card", got)
		}
	}
	if stub.Calls() != 2 {
		t.Errorf("backend calls = %d, want 2 (fallback must not be cached)", stub.Calls())
	}
}

func TestStreamChunk(t *testing.T) {
	cfg := testConfig()
	cfg.DataDir = t.TempDir()
	if err := os.WriteFile(filepath.Join(cfg.DataDir, "sample.json"), []byte(`[{"name":"Apple Inc."},{"name":"Alphabet Inc."}]`), 0o600); err != nil {
		t.Fatal(err)
	}
	srv, stub := newTestServer(t, cfg)
	h := srv.Handler()

	post := func(body string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodPost, "/api/v1/stream-chunk", strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
		return serve(h, r)
	}

	rec := post(`{"input":"Apple","fileName":"sample.json"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["match"] != "Apple Inc." || body["confidence"] != 0.9 {
		t.Errorf("body = %v", body)
	}
	if prompts := stub.Prompts(); len(prompts) != 1 || !strings.Contains(prompts[0], "Alphabet Inc.") {
		t.Errorf("the dataset was not sent to the backend: %q", prompts)
	}

	tests := []struct {
		name string
		body string
		want int
	}{
		{"missing input", `{"input":"","fileName":"sample.json"}`, http.StatusBadRequest},
		{"missing file name", `{"input":"Apple"}`, http.StatusBadRequest},
		{"malformed json", `{"input":`, http.StatusBadRequest},
		{"unknown dataset", `{"input":"Apple","fileName":"absent.json"}`, http.StatusNotFound},
		{"escaping path", `{"input":"Apple","fileName":"../sample.json"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := post(tt.body); rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
	if stub.Calls() != 1 {
		t.Errorf("backend calls = %d, want 1", stub.Calls())
	}

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/stream-chunk", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d, want 405", rec.Code)
	}
}

func TestStreamChunkWithoutDataDir(t *testing.T) {
	srv, stub := newTestServer(t, testConfig())

	r := httptest.NewRequest(http.MethodPost, "/api/v1/stream-chunk", strings.NewReader(`{"input":"Apple","fileName":"sample.json"}`))
	r.Header.Set("Content-Type", "application/json")
	if rec := serve(srv.Handler(), r); rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if stub.Calls() != 0 {
		t.Errorf("backend calls = %d, want 0", stub.Calls())
	}
}

func TestNewRejectsMissingDataDir(t *testing.T) {
	cfg := testConfig()
	cfg.DataDir = filepath.Join(t.TempDir(), "absent")
	if _, err := New(&application.Mock{}, cfg); err == nil {
		t.Error("New() accepted a missing data directory")
	}
}

func TestExtend(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	h := srv.Handler()

	payload := `{"ids":["Q42","Q1"],"properties":[{"id":"P569"}]}`
	r := httptest.NewRequest(http.MethodPost, "/api/v1/extend", strings.NewReader(`{"extend":`+payload+`}`))
	r.Header.Set("Content-Type", "application/json")

	rec := serve(h, r)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp reconcile.ExtendResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Meta) != 1 || resp.Meta[0].ID != "P569" {
		t.Errorf("meta = %+v", resp.Meta)
	}
	for _, id := range []string{"Q42", "Q1"} {
		values := resp.Rows[id]["P569"]
		if len(values) != 1 || values[0].Date == nil || *values[0].Date != "1952-03-11" {
			t.Errorf("rows[%s][P569] = %+v", id, values)
		}
	}

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/extend?extend="+url.QueryEscape(payload), nil))
	if rec.Code != http.StatusOK {
		t.Errorf("GET extend status = %d, want 200", rec.Code)
	}

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/extend", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing extend status = %d, want 400", rec.Code)
	}
}

func TestPropose(t *testing.T) {
	srv, stub := newTestServer(t, testConfig())
	h := srv.Handler()

	for i := 0; i < 2; i++ {
		rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/extend/propose?type=/people/person&limit=3", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var resp reconcile.ProposeResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		if resp.Type != "/people/person" || resp.Limit != 3 || len(resp.Properties) != 1 {
			t.Errorf("propose = %+v", resp)
		}
	}
	if stub.Calls() != 1 {
		t.Errorf("backend calls = %d, want 1", stub.Calls())
	}

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/extend/propose", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing type status = %d, want 400", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	h := srv.Handler()

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodDelete, "/api/v1/reconcile"},
		{http.MethodPost, "/api/v1/suggest/entity"},
		{http.MethodPut, "/api/v1/preview"},
		{http.MethodPost, "/health"},
	}
	for _, tt := range tests {
		rec := serve(h, httptest.NewRequest(tt.method, tt.path, nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s status = %d, want 405", tt.method, tt.path, rec.Code)
		}
		if rec.Header().Get("Allow") == "" {
			t.Errorf("%s %s missing Allow header", tt.method, tt.path)
		}
	}
}

func TestAuth(t *testing.T) {
	cfg := testConfig()
	cfg.AuthEnabled = true
	cfg.AuthAPIKey = "s3cret"
	srv, _ := newTestServer(t, cfg)
	h := srv.Handler()

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/reconcile", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no key status = %d, want 401", rec.Code)
	}

	r := httptest.NewRequest(http.MethodGet, "/api/v1/reconcile", nil)
	r.Header.Set("X-API-Key", "wrong")
	if rec = serve(h, r); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong key status = %d, want 401", rec.Code)
	}

	r = httptest.NewRequest(http.MethodGet, "/api/v1/reconcile", nil)
	r.Header.Set("X-API-Key", "s3cret")
	if rec = serve(h, r); rec.Code != http.StatusOK {
		t.Errorf("valid key status = %d, want 200", rec.Code)
	}

	for _, path := range []string{"/health", "/api/v1/ready", "/api/v1/openapi.json"} {
		if rec = serve(h, httptest.NewRequest(http.MethodGet, path, nil)); rec.Code != http.StatusOK {
			t.Errorf("public %s status = %d, want 200", path, rec.Code)
		}
	}
}

func TestHealthAndReady(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	h := srv.Handler()

	for _, path := range []string{"/health", "/api/v1/health", "/api/v1/ready"} {
		rec := serve(h, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
			continue
		}
		data, _ := decode(t, rec)["data"].(map[string]any)
		if data["status"] == nil {
			t.Errorf("%s missing status: %s", path, rec.Body.String())
		}
	}
}

func TestOpenAPI(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	h := srv.Handler()

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/openapi.json", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("json status = %d", rec.Code)
	}
	if decode(t, rec)["openapi"] != "3.1.0" {
		t.Error("openapi.json missing version")
	}

	etag := rec.Header().Get("ETag")

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/openapi.yaml", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "openapi: 3.1.0") {
		t.Errorf("openapi.yaml status = %d", rec.Code)
	}

	r := httptest.NewRequest(http.MethodGet, "/api/v1/openapi.json", nil)
	r.Header.Set("If-None-Match", etag)
	rec = serve(h, r)
	if etag == "" || rec.Code != http.StatusNotModified {
		t.Errorf("conditional request status = %d with etag %q, want 304", rec.Code, etag)
	}
}

func TestStatsAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	h := srv.Handler()

	queries := url.QueryEscape(`{"q0":{"query":"Douglas Adams"}}`)
	if rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/reconcile?queries="+queries, nil)); rec.Code != http.StatusOK {
		t.Fatalf("reconcile status = %d", rec.Code)
	}

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status = %d", rec.Code)
	}
	data, _ := decode(t, rec)["data"].(map[string]any)
	rc, _ := data["reconcile"].(map[string]any)
	if rc["queries_total"] != float64(1) || rc["batches_total"] != float64(1) {
		t.Errorf("reconcile stats = %v", rc)
	}

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	for _, want := range []string{
		"reconciler_batches_total 1",
		"reconciler_queries_total 1",
		"reconciler_candidates_total 1",
	} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestMetricsDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.MetricsEnabled = false
	srv, _ := newTestServer(t, cfg)

	rec := serve(srv.Handler(), httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestCORS(t *testing.T) {
	cfg := testConfig()
	cfg.CORSEnabled = true
	srv, _ := newTestServer(t, cfg)

	r := httptest.NewRequest(http.MethodGet, "/api/v1/reconcile", nil)
	r.Header.Set("Origin", "http://refine.local")
	rec := serve(srv.Handler(), r)
	if rec.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("CORS header missing")
	}
}
