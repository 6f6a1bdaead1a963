package app

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/knwanna/universal-reconciliation-service/internal/backend"
	"github.com/knwanna/universal-reconciliation-service/pkg/constants"
	"github.com/knwanna/universal-reconciliation-service/pkg/reconcile"
)

const candidateAnswer = `{"result":[{"id":"Q42","name":"Douglas Adams","score":0.93,"type":[{"id":"/people/person","name":"Person"}],"description":"English writer"}]}`

func newTestApp(t *testing.T, b backend.Backend) *App {
	t.Helper()
	logger := zerolog.Nop()
	app, err := New("1.0.0", "abc123", "2024-01-01", "test", WithBackend(b), WithLogger(&logger))
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return app
}

// TestApp_New verifies app initialization.
func TestApp_New(t *testing.T) {
	app, err := New("1.0.0", "abc123", "2024-01-01", "test")
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	if app.Version() != "1.0.0" {
		t.Errorf("Version() = %s, want 1.0.0", app.Version())
	}
	if app.Commit() != "abc123" {
		t.Errorf("Commit() = %s, want abc123", app.Commit())
	}
	if app.Date() != "2024-01-01" {
		t.Errorf("Date() = %s, want 2024-01-01", app.Date())
	}
	if app.BuiltBy() != "test" {
		t.Errorf("BuiltBy() = %s, want test", app.BuiltBy())
	}
	if app.Logger() == nil {
		t.Error("Logger() returned nil")
	}
	if app.Config() == nil {
		t.Error("Config() returned nil")
	}
}

// TestApp_Backend_Singleton verifies that Backend() returns the same instance
// under concurrent access.
func TestApp_Backend_Singleton(t *testing.T) {
	stub := backend.StaticStub(candidateAnswer)
	app := newTestApp(t, stub)

	const goroutines = 50
	var wg sync.WaitGroup
	results := make([]backend.Backend, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			b, err := app.Backend(context.Background())
			if err != nil {
				t.Errorf("Backend() failed: %v", err)
				return
			}
			results[idx] = b
		}(i)
	}
	wg.Wait()

	for i, b := range results {
		if b != backend.Backend(stub) {
			t.Errorf("goroutine %d got a different backend", i)
		}
	}
}

// TestApp_Engine verifies the engine uses the configured backend and tunables.
func TestApp_Engine(t *testing.T) {
	stub := backend.StaticStub(candidateAnswer)
	app := newTestApp(t, stub)
	app.config.MatchThreshold = 0.95

	engine, err := app.Engine()
	if err != nil {
		t.Fatalf("Engine() failed: %v", err)
	}

	result, err := engine.Reconcile(context.Background(), reconcile.Batch{"q0": {Text: "Douglas Adams"}})
	if err != nil {
		t.Fatalf("Reconcile() failed: %v", err)
	}
	got := result.Results["q0"]
	if len(got.Candidates) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got.Candidates))
	}
	if got.Candidates[0].Match {
		t.Error("score 0.93 should not match with threshold 0.95")
	}
	if stub.Calls() != 1 {
		t.Errorf("backend calls = %d, want 1", stub.Calls())
	}
}

// TestApp_EngineRejectsBadTunables verifies invalid configuration surfaces as an error.
func TestApp_EngineRejectsBadTunables(t *testing.T) {
	app := newTestApp(t, backend.StaticStub(candidateAnswer))
	app.config.DefaultLimit = constants.MaxLimit + 1

	if _, err := app.Engine(); err == nil {
		t.Error("Engine() accepted a default limit above the maximum")
	}
}

// TestApp_Manifest verifies manifest configuration comes from app config.
func TestApp_Manifest(t *testing.T) {
	app := newTestApp(t, backend.StaticStub(candidateAnswer))
	app.config.ServiceName = "Library Catalogue"
	app.config.ViewURL = "https://example.org/entity/{{id}}"

	cfg := app.Manifest()
	if cfg.Name != "Library Catalogue" {
		t.Errorf("Name = %q", cfg.Name)
	}
	if cfg.ViewURL != "https://example.org/entity/{{id}}" {
		t.Errorf("ViewURL = %q", cfg.ViewURL)
	}
	if cfg.IdentifierSpace == "" || cfg.SchemaSpace == "" {
		t.Error("identifier and schema spaces should keep their defaults")
	}
}

// TestApp_ServerDefaults verifies environment settings reach the server config.
func TestApp_ServerDefaults(t *testing.T) {
	app := newTestApp(t, backend.StaticStub(candidateAnswer))
	app.config.HTTPPort = 9999
	app.config.BaseURL = "https://reconcile.example.org"
	app.config.APIToken = "secret"

	cfg := app.serverDefaults()
	if cfg.Port != 9999 {
		t.Errorf("Port = %d, want 9999", cfg.Port)
	}
	if cfg.BaseURL != "https://reconcile.example.org" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if !cfg.AuthEnabled || cfg.AuthAPIKey != "secret" {
		t.Error("an API token should enable authentication")
	}
}

func execute(t *testing.T, app *App, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := app.createRootCommand()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// TestExecute_Version verifies the version command output.
func TestExecute_Version(t *testing.T) {
	app := newTestApp(t, backend.StaticStub(candidateAnswer))

	out, err := execute(t, app, "version", "-v")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.Contains(out, "reconciler 1.0.0") || !strings.Contains(out, "abc123") {
		t.Errorf("output = %q", out)
	}
}

// TestExecute_ReconcileJSON verifies one-shot reconciliation in JSON.
func TestExecute_ReconcileJSON(t *testing.T) {
	app := newTestApp(t, backend.StaticStub(candidateAnswer))

	out, err := execute(t, app, "reconcile", "Douglas Adams", "Douglas Noel Adams", "-o", "json")
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	for _, id := range []string{"q0", "q1", "metadata"} {
		if _, ok := doc[id]; !ok {
			t.Errorf("output missing %q", id)
		}
	}
}

// TestExecute_ReconcileMarkdown verifies the markdown table output.
func TestExecute_ReconcileMarkdown(t *testing.T) {
	app := newTestApp(t, backend.StaticStub(candidateAnswer))

	out, err := execute(t, app, "reconcile", "Douglas Adams", "--format", "markdown")
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if !strings.Contains(out, "|") || !strings.Contains(out, "Douglas Adams") || strings.HasPrefix(out, "{") {
		t.Errorf("output = %q", out)
	}
}

// TestExecute_ReconcileRequiresText verifies an empty invocation is rejected.
func TestExecute_ReconcileRequiresText(t *testing.T) {
	stub := backend.StaticStub(candidateAnswer)
	app := newTestApp(t, stub)

	if _, err := execute(t, app, "reconcile"); err == nil {
		t.Error("reconcile without text should fail")
	}
	if stub.Calls() != 0 {
		t.Errorf("backend calls = %d, want 0", stub.Calls())
	}
}

// TestExecute_Suggest verifies the suggest command.
func TestExecute_Suggest(t *testing.T) {
	app := newTestApp(t, backend.StaticStub(`[{"id":"Q42","name":"Douglas Adams"}]`))

	out, err := execute(t, app, "suggest", "entity", "doug", "-o", "yaml")
	if err != nil {
		t.Fatalf("suggest failed: %v", err)
	}
	if !strings.Contains(out, "prefix: doug") || !strings.Contains(out, "Douglas Adams") {
		t.Errorf("output = %q", out)
	}

	if _, err := execute(t, app, "suggest", "planet", "doug"); err == nil {
		t.Error("unknown suggest kind should fail")
	}
}

// TestExecute_Extend verifies the extend command.
func TestExecute_Extend(t *testing.T) {
	app := newTestApp(t, backend.StaticStub(`{"properties":[{"id":"P569","name":"date of birth","values":[{"date":"1952-03-11"}]}]}`))

	out, err := execute(t, app, "extend", "--id", "Q42", "--property", "P569", "-o", "json")
	if err != nil {
		t.Fatalf("extend failed: %v", err)
	}

	var resp reconcile.ExtendResponse
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	values := resp.Rows["Q42"]["P569"]
	if len(values) != 1 || values[0].Date == nil || *values[0].Date != "1952-03-11" {
		t.Errorf("rows = %+v", resp.Rows)
	}
}
