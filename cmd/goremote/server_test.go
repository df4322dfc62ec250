package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/caffeineduck/goremote/engine"
	"github.com/caffeineduck/goremote/logging"
	"github.com/caffeineduck/goremote/payload"
)

func setupTestServer(t *testing.T) (*sessionManager, http.Handler) {
	t.Helper()

	shared, err := engine.NewHost()
	if err != nil {
		t.Fatalf("failed to create host: %v", err)
	}
	sessions := newSessionManager(15 * time.Minute)
	t.Cleanup(func() {
		sessions.closeAll()
		shared.Close()
	})
	return sessions, newServeMux(shared, sessions, logging.NullLogger())
}

func doRequest(handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func decodeOutcome(t *testing.T, w *httptest.ResponseRecorder) payload.Outcome {
	t.Helper()
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var out payload.Outcome
	if err := json.NewDecoder(w.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode outcome: %v", err)
	}
	return out
}

func TestHealthEndpoint(t *testing.T) {
	_, handler := setupTestServer(t)

	w := doRequest(handler, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}
	if w.Body.String() != "ok" {
		t.Errorf("expected 'ok', got %q", w.Body.String())
	}
}

func TestSharedSubmit(t *testing.T) {
	_, handler := setupTestServer(t)

	w := doRequest(handler, http.MethodPost, "/submit",
		`{"target":"browser","mode":"execute","source":"function () { a += 1; return location.href; }","bindings":{"a":1}}`)
	out := decodeOutcome(t, w)

	if out.Value.StringValue() != "about:blank" {
		t.Errorf("unexpected value %s", out.Value.JSONString())
	}
	if out.Bindings["a"].IntValue() != 2 {
		t.Errorf("expected a == 2, got %v", out.Bindings)
	}
}

func TestSessionLifecycle(t *testing.T) {
	sessions, handler := setupTestServer(t)

	w := doRequest(handler, http.MethodPost, "/sessions", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var created createSessionResponse
	if err := json.NewDecoder(w.Body).Decode(&created); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(created.SessionID) != 32 {
		t.Errorf("expected a 32 character session id, got %q", created.SessionID)
	}

	submitPath := "/sessions/" + created.SessionID + "/submit"
	doRequest(handler, http.MethodPost, submitPath, `{"mode":"execute","source":"function () { kv_set({key: 'k', value: 'session'}); }"}`)
	out := decodeOutcome(t, doRequest(handler, http.MethodPost, submitPath, `{"mode":"execute","source":"function () { return kv_get({key: 'k'}); }"}`))
	if out.Value.StringValue() != "session" {
		t.Errorf("expected the session store to persist, got %s", out.Value.JSONString())
	}

	// the shared surfaces have their own store
	out = decodeOutcome(t, doRequest(handler, http.MethodPost, "/submit", `{"mode":"execute","source":"function () { return kv_get({key: 'k', default: 'none'}); }"}`))
	if out.Value.StringValue() != "none" {
		t.Errorf("expected the shared store to be separate, got %s", out.Value.JSONString())
	}

	w = doRequest(handler, http.MethodDelete, "/sessions/"+created.SessionID, "")
	if w.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", w.Code)
	}
	if _, ok := sessions.get(created.SessionID); ok {
		t.Error("session should be gone")
	}

	w = doRequest(handler, http.MethodPost, submitPath, `{"mode":"execute","source":"function () {}"}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestSessionErrors(t *testing.T) {
	_, handler := setupTestServer(t)

	tests := []struct {
		method string
		path   string
		body   string
		status int
	}{
		{http.MethodGet, "/sessions", "", http.StatusMethodNotAllowed},
		{http.MethodDelete, "/sessions/", "", http.StatusBadRequest},
		{http.MethodDelete, "/sessions/missing", "", http.StatusNotFound},
		{http.MethodGet, "/sessions/missing/other", "", http.StatusMethodNotAllowed},
		{http.MethodPost, "/submit", "{", http.StatusBadRequest},
		{http.MethodPost, "/submit", `{"target":"tv","source":"function () {}"}`, http.StatusBadGateway},
	}

	for _, tt := range tests {
		w := doRequest(handler, tt.method, tt.path, tt.body)
		if w.Code != tt.status {
			t.Errorf("%s %s: expected status %d, got %d", tt.method, tt.path, tt.status, w.Code)
		}
	}
}

func TestSessionExpiry(t *testing.T) {
	sessions := newSessionManager(time.Minute)
	defer sessions.closeAll()

	id, err := sessions.create()
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	sessions.expire(time.Now())
	if _, ok := sessions.get(id); !ok {
		t.Fatal("fresh session should survive")
	}

	sessions.expire(time.Now().Add(2 * time.Minute))
	if _, ok := sessions.get(id); ok {
		t.Error("idle session should expire")
	}
}

func TestThrownPayloadIsOK(t *testing.T) {
	_, handler := setupTestServer(t)

	body := bytes.NewBufferString(`{"mode":"promise","source":"function (resolve, reject) { reject('rejected here'); }"}`)
	req := httptest.NewRequest(http.MethodPost, "/submit", body)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	out := decodeOutcome(t, w)
	if out.Kind != payload.KindThrown || !strings.Contains(out.Error, "rejected here") {
		t.Errorf("unexpected outcome %+v", out)
	}
}
