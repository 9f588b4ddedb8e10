// Copyright 2026 The Guidrive Authors

package transport

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestHTTPTransport(t *testing.T, handler Handler) *HTTPTransport {
	t.Helper()
	tr := NewHTTPTransport(&HTTPTransportConfig{}, NewMetricsRegistry())
	tr.SetHandler(handler)
	return tr
}

func echoHandler(msg *Message) (*Message, error) {
	return NewResult(msg.ID, json.RawMessage(`{"echoed":true}`)), nil
}

func TestHTTPMessageEndpoint(t *testing.T) {
	tr := newTestHTTPTransport(t, echoHandler)

	body := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	rec := httptest.NewRecorder()
	tr.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/message", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("POST /message = %d, want 200", rec.Code)
	}
	var resp Message
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if string(resp.Result) != `{"echoed":true}` {
		t.Errorf("result = %s, want the handler's result", resp.Result)
	}
	if string(resp.ID) != "1" {
		t.Errorf("id = %s, want 1 (echoed)", resp.ID)
	}
}

func TestHTTPMessageNotification(t *testing.T) {
	tr := newTestHTTPTransport(t, func(msg *Message) (*Message, error) {
		return nil, nil
	})

	body := strings.NewReader(`{"jsonrpc":"2.0","method":"notifications/initialized"}`)
	rec := httptest.NewRecorder()
	tr.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/message", body))

	if rec.Code != http.StatusAccepted {
		t.Errorf("notification = %d, want 202", rec.Code)
	}
}

func TestHTTPMessageErrors(t *testing.T) {
	tr := newTestHTTPTransport(t, echoHandler)

	tests := []struct {
		name   string
		method string
		body   string
		want   int
	}{
		{"wrong method", http.MethodGet, "", http.StatusMethodNotAllowed},
		{"invalid json", http.MethodPost, "{broken", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(tt.method, "/message", strings.NewReader(tt.body))
			tr.Mux().ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestHTTPHandlerErrorBecomesJSONRPCError(t *testing.T) {
	tr := newTestHTTPTransport(t, func(msg *Message) (*Message, error) {
		return nil, errors.New("handler exploded")
	})

	body := strings.NewReader(`{"jsonrpc":"2.0","id":3,"method":"ping"}`)
	rec := httptest.NewRecorder()
	tr.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/message", body))

	var resp Message
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error == nil || resp.Error.Code != ErrCodeInternalError {
		t.Errorf("response = %+v, want an internal JSON-RPC error", resp)
	}
}

func TestHTTPHealth(t *testing.T) {
	tr := newTestHTTPTransport(t, echoHandler)

	rec := httptest.NewRecorder()
	tr.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /health = %d, want 200", rec.Code)
	}
	var status map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status["status"] != "ok" {
		t.Errorf(`status = %v, want "ok"`, status["status"])
	}
}

func TestHTTPMetricsEndpoint(t *testing.T) {
	tr := newTestHTTPTransport(t, echoHandler)
	tr.metrics.RecordRequest("execute_script_in_target_gui", "ok", 0)

	rec := httptest.NewRecorder()
	tr.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q, want text/plain exposition", ct)
	}
	if !strings.Contains(rec.Body.String(), "mcp_requests_total") {
		t.Errorf("metrics body missing counters:\n%s", rec.Body.String())
	}
}

func TestHTTPCORS(t *testing.T) {
	tr := NewHTTPTransport(&HTTPTransportConfig{CORSOrigin: "https://ide.example"}, nil)
	tr.SetHandler(echoHandler)

	rec := httptest.NewRecorder()
	tr.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/message", nil))

	if rec.Code != http.StatusNoContent {
		t.Errorf("OPTIONS preflight = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://ide.example" {
		t.Errorf("Allow-Origin = %q, want the configured origin", got)
	}
}

func TestHTTPRateLimitedMessage(t *testing.T) {
	tr := NewHTTPTransport(&HTTPTransportConfig{RateLimit: 0.5}, nil) // burst 1
	tr.SetHandler(echoHandler)

	post := func() int {
		rec := httptest.NewRecorder()
		body := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)
		tr.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/message", body))
		return rec.Code
	}

	if code := post(); code != http.StatusOK {
		t.Fatalf("first POST = %d, want 200", code)
	}
	if code := post(); code != http.StatusTooManyRequests {
		t.Fatalf("second POST = %d, want 429", code)
	}

	// The operational endpoints stay reachable under limiting.
	rec := httptest.NewRecorder()
	tr.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("GET /health while limited = %d, want 200", rec.Code)
	}
}

func TestHTTPBroadcastReplay(t *testing.T) {
	tr := newTestHTTPTransport(t, echoHandler)

	for i := 0; i < 3; i++ {
		body := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)
		rec := httptest.NewRecorder()
		tr.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/message", body))
	}

	// A reconnecting client that saw event 1 replays events 2 and 3 only.
	replay := tr.clients.since("1")
	if len(replay) != 2 {
		t.Fatalf("since(1) returned %d events, want 2", len(replay))
	}
	if replay[0].id != "2" || replay[1].id != "3" {
		t.Errorf("replay ids = %s, %s, want 2, 3", replay[0].id, replay[1].id)
	}

	if tr.clients.since("") != nil {
		t.Error("since with no Last-Event-ID must replay nothing")
	}
	if tr.clients.since("unknown") != nil {
		t.Error("since with an unknown event ID must replay nothing")
	}
}

func TestWriteSSEEventMultiline(t *testing.T) {
	var b strings.Builder
	err := writeSSEEvent(&b, &sseEvent{
		id:    "42",
		event: "message",
		data:  "line one\nline two",
	})
	if err != nil {
		t.Fatal(err)
	}

	want := "id: 42\nevent: message\ndata: line one\ndata: line two\n\n"
	if b.String() != want {
		t.Errorf("writeSSEEvent output = %q, want %q", b.String(), want)
	}
}

func TestHTTPWriteMessageAfterClose(t *testing.T) {
	tr := newTestHTTPTransport(t, echoHandler)
	if err := tr.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !tr.IsClosed() {
		t.Error("IsClosed() = false after Close")
	}
	if err := tr.WriteMessage(&Message{JSONRPC: "2.0"}); err != ErrTransportClosed {
		t.Errorf("WriteMessage() after Close = %v, want ErrTransportClosed", err)
	}
	// Idempotent.
	if err := tr.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
