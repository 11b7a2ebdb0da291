package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

// echoHandler writes the request id it sees in its context.
var echoHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusTeapot)
	w.Write([]byte(RequestIDFromCtx(r.Context())))
})

func TestRequestID_Generated(t *testing.T) {
	rec := httptest.NewRecorder()
	RequestID(echoHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/jobs", nil))

	id := rec.Header().Get(RequestIDHeader)
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("response id %q is not a uuid", id)
	}
	if rec.Body.String() != id {
		t.Errorf("context id = %q, header id = %q", rec.Body.String(), id)
	}
}

func TestRequestID_ReusesCallerID(t *testing.T) {
	want := uuid.New().String()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, want)
	rec := httptest.NewRecorder()
	RequestID(echoHandler).ServeHTTP(rec, req)

	if got := rec.Header().Get(RequestIDHeader); got != want {
		t.Errorf("id = %q, want %q", got, want)
	}
}

func TestRequestID_ReplacesMalformedID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "not-a-uuid\n")
	rec := httptest.NewRecorder()
	RequestID(echoHandler).ServeHTTP(rec, req)

	if got := rec.Header().Get(RequestIDHeader); got == "not-a-uuid\n" {
		t.Error("malformed id was echoed back")
	}
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	h := RequestID(AccessLog(log)(echoHandler))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/workers", nil))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if entry["method"] != "POST" || entry["path"] != "/api/v1/workers" {
		t.Errorf("entry = %v", entry)
	}
	if entry["status"] != float64(http.StatusTeapot) {
		t.Errorf("status = %v", entry["status"])
	}
	if entry["request_id"] != rec.Header().Get(RequestIDHeader) {
		t.Errorf("request_id = %v", entry["request_id"])
	}
}
