package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"ghostink/cfg"
	"ghostink/pkg/domain"
	"ghostink/svc/cache"
	"ghostink/svc/db"
	"ghostink/svc/svc"
)

var memSeq int64

func testCfg() *cfg.Cfg {
	return &cfg.Cfg{
		Addr:           ":0",
		Environment:    "test",
		ContextTimeout: 5 * time.Second,
		DefaultTTL:     24 * time.Hour,
		AllowedOrigins: []string{"https://app.example"},
	}
}

func newTestServer(t *testing.T, c *cfg.Cfg) (*Server, *svc.Paste) {
	t.Helper()
	n := atomic.AddInt64(&memSeq, 1)
	store, err := db.NewSQLite(fmt.Sprintf("file:apimem%d?mode=memory&cache=shared", n))
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	lru, err := cache.NewLRU(100)
	if err != nil {
		t.Fatalf("NewLRU: %v", err)
	}
	p := svc.NewPaste(store, lru, nil, c)
	return NewServer(c, p), p
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestCreateAndGet(t *testing.T) {
	s, _ := newTestServer(t, testCfg())

	rec := do(t, s, http.MethodPost, "/", `{"content":"YmxvYg=="}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body)
	}
	var created domain.CreatePasteResponse
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.UUID == "" {
		t.Fatal("empty uuid")
	}

	rec = do(t, s, http.MethodGet, "/"+created.UUID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d, body = %s", rec.Code, rec.Body)
	}
	var got domain.GetPasteResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Content != "YmxvYg==" {
		t.Errorf("content = %q", got.Content)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Errorf("content type = %s", rec.Header().Get("Content-Type"))
	}
}

func TestCreateWithExpiry(t *testing.T) {
	s, p := newTestServer(t, testCfg())
	exp := time.Now().Add(2 * time.Hour).UTC().Truncate(time.Second)
	body := fmt.Sprintf(`{"content":"x","expires_at":%q}`, exp.Format(time.RFC3339))
	rec := do(t, s, http.MethodPost, "/", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var created domain.CreatePasteResponse
	json.NewDecoder(rec.Body).Decode(&created)
	paste, err := p.Get(context.Background(), created.UUID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !paste.ExpiresAt.Equal(exp) {
		t.Errorf("expires_at = %v, want %v", paste.ExpiresAt, exp)
	}
}

func TestCreateWithOffsetExpiry(t *testing.T) {
	s, _ := newTestServer(t, testCfg())
	exp := time.Now().Add(time.Hour).In(time.FixedZone("", -5*60*60)).Format(time.RFC3339)
	rec := do(t, s, http.MethodPost, "/", fmt.Sprintf(`{"content":"x","expires_at":%q}`, exp))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
}

func TestCreateValidation(t *testing.T) {
	s, _ := newTestServer(t, testCfg())
	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `{"content":`, http.StatusBadRequest},
		{"empty body", ``, http.StatusBadRequest},
		{"missing content", `{"expires_at":"2030-01-01T00:00:00Z"}`, http.StatusBadRequest},
		{"bad expiry", `{"content":"x","expires_at":"tomorrow"}`, http.StatusBadRequest},
		{"date only expiry", `{"content":"x","expires_at":"2030-01-01"}`, http.StatusBadRequest},
		{"wrong type", `{"content":42}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, req)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d, body = %s", rec.Code, tt.want, rec.Body)
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if body["error"] == "" || body["request_id"] == "" {
				t.Errorf("error body = %v", body)
			}
		})
	}
}

func TestCreateRequiresJSON(t *testing.T) {
	s, _ := newTestServer(t, testCfg())
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"content":"x"}`))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d, want 415", rec.Code)
	}
}

func TestGetNotFound(t *testing.T) {
	s, _ := newTestServer(t, testCfg())
	for _, id := range []string{"3f1c2a9e-6b7d-4e2f-9a1b-0c8d7e6f5a4b", "not-a-uuid"} {
		rec := do(t, s, http.MethodGet, "/"+id, "")
		if rec.Code != http.StatusNotFound {
			t.Errorf("GET /%s = %d, want 404", id, rec.Code)
		}
	}
}

func TestGetExpired(t *testing.T) {
	s, _ := newTestServer(t, testCfg())
	past := time.Now().Add(-time.Minute).UTC().Format(time.RFC3339)
	rec := do(t, s, http.MethodPost, "/", fmt.Sprintf(`{"content":"x","expires_at":%q}`, past))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	var created domain.CreatePasteResponse
	json.NewDecoder(rec.Body).Decode(&created)
	if rec := do(t, s, http.MethodGet, "/"+created.UUID, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expired paste status = %d, want 404", rec.Code)
	}
}

func TestClean(t *testing.T) {
	s, _ := newTestServer(t, testCfg())
	past := time.Now().Add(-time.Minute).UTC().Format(time.RFC3339)
	for i := 0; i < 3; i++ {
		do(t, s, http.MethodPost, "/", fmt.Sprintf(`{"content":"x","expires_at":%q}`, past))
	}
	do(t, s, http.MethodPost, "/", `{"content":"live"}`)

	rec := do(t, s, http.MethodDelete, "/clean", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	var resp domain.CleanResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Deleted != 3 {
		t.Errorf("deleted = %d, want 3", resp.Deleted)
	}
	rec = do(t, s, http.MethodDelete, "/clean", "")
	json.NewDecoder(rec.Body).Decode(&resp)
	if rec.Code != http.StatusOK || resp.Deleted != 0 {
		t.Errorf("second clean = %d, deleted %d", rec.Code, resp.Deleted)
	}
}

func TestHealthAndReady(t *testing.T) {
	s, _ := newTestServer(t, testCfg())
	if rec := do(t, s, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Errorf("health = %d", rec.Code)
	}
	rec := do(t, s, http.MethodGet, "/ready", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("ready = %d, body = %s", rec.Code, rec.Body)
	}
	var ready ReadyResponse
	json.NewDecoder(rec.Body).Decode(&ready)
	if !ready.Ready || ready.Cache != "unavailable" {
		t.Errorf("ready = %+v", ready)
	}
}

func TestReadyStoreDown(t *testing.T) {
	c := testCfg()
	store, err := db.NewBadger(":memory:")
	if err != nil {
		t.Fatalf("NewBadger: %v", err)
	}
	s := NewServer(c, svc.NewPaste(store, nil, nil, c))
	store.Close()
	if rec := do(t, s, http.MethodGet, "/ready", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("ready with closed store = %d, want 503", rec.Code)
	}
	if rec := do(t, s, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Errorf("health with closed store = %d, want 200", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t, testCfg())
	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Errorf("allow origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("CORS headers set for unknown origin")
	}
}

func TestMetricsBasicAuth(t *testing.T) {
	c := testCfg()
	c.MetricsUser = "prom"
	c.MetricsPass = cfg.NewSecret("scrape")
	s, _ := newTestServer(t, c)

	if rec := do(t, s, http.MethodGet, "/metrics", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated metrics = %d, want 401", rec.Code)
	}
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.SetBasicAuth("prom", "scrape")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("authenticated metrics = %d", rec.Code)
	}
}

func TestRequestIDPropagated(t *testing.T) {
	s, _ := newTestServer(t, testCfg())
	id := "3f1c2a9e-6b7d-4e2f-9a1b-0c8d7e6f5a4b"
	req := httptest.NewRequest(http.MethodGet, "/"+id, nil)
	req.Header.Set("X-Request-ID", id)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != id {
		t.Errorf("X-Request-ID = %q, want %q", got, id)
	}
}

func TestRecovererHidesPanic(t *testing.T) {
	m := NewMw(testCfg())
	h := m.Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom at /var/lib/secret")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("secret")) {
		t.Errorf("panic detail leaked: %s", rec.Body)
	}
}
