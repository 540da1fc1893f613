package ingest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anthropics/mcp-pulse/internal/monitor"
)

func newTestReceiver() (*Receiver, *monitor.Engine) {
	engine := monitor.NewEngine(monitor.Options{ServerName: "test"})
	return NewReceiver(DefaultReceiverConfig(), engine), engine
}

func post(t *testing.T, handler http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleTool_Valid(t *testing.T) {
	r, engine := newTestReceiver()

	resp := post(t, r.Handler(), "/events/tool",
		`{"name":"search","params":{"q":"golang"},"status":"success","durationMs":12.5}`)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), `"id"`) {
		t.Errorf("expected record id in response, got %s", resp.Body.String())
	}

	snap := engine.Snapshot()
	if snap.TotalRequests != 1 {
		t.Fatalf("expected 1 recorded request, got %d", snap.TotalRequests)
	}
	if snap.Tools[0].Name != "search" {
		t.Errorf("unexpected tool aggregate: %+v", snap.Tools[0])
	}
	if snap.Performance.AvgLatencyMs != 12.5 {
		t.Errorf("expected duration 12.5 recorded, got %v", snap.Performance.AvgLatencyMs)
	}
}

func TestHandleTool_PendingAllowed(t *testing.T) {
	r, engine := newTestReceiver()

	resp := post(t, r.Handler(), "/events/tool", `{"name":"slow","status":"pending"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for pending tool call, got %d", resp.Code)
	}
	if got := engine.Snapshot().TotalRequests; got != 1 {
		t.Errorf("expected pending call recorded, got %d", got)
	}
}

func TestHandleTool_MissingName(t *testing.T) {
	r, engine := newTestReceiver()

	resp := post(t, r.Handler(), "/events/tool", `{"status":"success"}`)
	if resp.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing name, got %d", resp.Code)
	}
	if got := engine.Snapshot().TotalRequests; got != 0 {
		t.Errorf("invalid payload must not reach the engine, got %d records", got)
	}
}

func TestHandleTool_InvalidStatus(t *testing.T) {
	r, _ := newTestReceiver()

	resp := post(t, r.Handler(), "/events/tool", `{"name":"x","status":"maybe"}`)
	if resp.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid status, got %d", resp.Code)
	}
}

func TestHandleTool_InvalidJSON(t *testing.T) {
	r, _ := newTestReceiver()

	resp := post(t, r.Handler(), "/events/tool", `{not json}`)
	if resp.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid JSON, got %d", resp.Code)
	}
}

func TestHandleTool_MethodNotAllowed(t *testing.T) {
	r, _ := newTestReceiver()

	req := httptest.NewRequest(http.MethodGet, "/events/tool", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func TestHandleResource_Valid(t *testing.T) {
	r, engine := newTestReceiver()

	resp := post(t, r.Handler(), "/events/resource",
		`{"uri":"file:///a.txt","operation":"read","bytesTransferred":512,"status":"success"}`)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	snap := engine.Snapshot()
	if len(snap.Resources) != 1 || snap.Resources[0].TotalBytes != 512 {
		t.Errorf("unexpected resource aggregate: %+v", snap.Resources)
	}
}

func TestHandleResource_PendingRejected(t *testing.T) {
	r, _ := newTestReceiver()

	resp := post(t, r.Handler(), "/events/resource",
		`{"uri":"file:///a.txt","operation":"read","status":"pending"}`)
	if resp.Code != http.StatusBadRequest {
		t.Errorf("resources never use pending; expected 400, got %d", resp.Code)
	}
}

func TestHandleResource_InvalidOperation(t *testing.T) {
	r, _ := newTestReceiver()

	resp := post(t, r.Handler(), "/events/resource",
		`{"uri":"file:///a.txt","operation":"delete","status":"success"}`)
	if resp.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown operation, got %d", resp.Code)
	}
}

func TestHandlePrompt_Valid(t *testing.T) {
	r, engine := newTestReceiver()

	resp := post(t, r.Handler(), "/events/prompt",
		`{"name":"summarize","args":{"text":"..."},"tokensGenerated":128,"status":"success"}`)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	snap := engine.Snapshot()
	if len(snap.Prompts) != 1 || snap.Prompts[0].TotalTokens != 128 {
		t.Errorf("unexpected prompt aggregate: %+v", snap.Prompts)
	}
}

func TestHandlePrompt_PendingRejected(t *testing.T) {
	r, _ := newTestReceiver()

	resp := post(t, r.Handler(), "/events/prompt", `{"name":"p","status":"pending"}`)
	if resp.Code != http.StatusBadRequest {
		t.Errorf("prompts never use pending; expected 400, got %d", resp.Code)
	}
}

func TestHandleError_Valid(t *testing.T) {
	r, engine := newTestReceiver()

	resp := post(t, r.Handler(), "/events/error",
		`{"name":"transport","message":"connection reset","stack":"..."}`)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	snap := engine.Snapshot()
	if len(snap.RecentErrors) != 1 || snap.RecentErrors[0].Type != monitor.ErrorTypeServer {
		t.Errorf("unexpected error log: %+v", snap.RecentErrors)
	}
}

func TestHandleError_MissingMessage(t *testing.T) {
	r, _ := newTestReceiver()

	resp := post(t, r.Handler(), "/events/error", `{"name":"transport"}`)
	if resp.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing message, got %d", resp.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	r, _ := newTestReceiver()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "ok") {
		t.Errorf("unexpected health body: %s", rec.Body.String())
	}
}
