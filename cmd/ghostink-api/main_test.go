package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ghostink/cfg"
	"ghostink/svc/api"
	"ghostink/svc/db"
	"ghostink/svc/svc"
)

func TestHealthcheckWhileServerHoldsBadger(t *testing.T) {
	store, err := db.NewBadger(t.TempDir())
	if err != nil {
		t.Fatalf("NewBadger: %v", err)
	}
	defer store.Close()
	c := &cfg.Cfg{Addr: ":0", Environment: "test", ContextTimeout: 5 * time.Second}
	srv := httptest.NewServer(api.NewServer(c, svc.NewPaste(store, nil, nil, c)))
	defer srv.Close()

	if code := healthcheck(strings.TrimPrefix(srv.URL, "http://")); code != 0 {
		t.Fatalf("healthcheck() = %d against a healthy server", code)
	}
}

func TestHealthcheckFailures(t *testing.T) {
	unhealthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer unhealthy.Close()
	if code := healthcheck(strings.TrimPrefix(unhealthy.URL, "http://")); code != 1 {
		t.Errorf("healthcheck() = %d for a 503", code)
	}

	gone := httptest.NewServer(http.NotFoundHandler())
	addr := strings.TrimPrefix(gone.URL, "http://")
	gone.Close()
	if code := healthcheck(addr); code != 1 {
		t.Errorf("healthcheck() = %d with nothing listening", code)
	}
}

func TestHealthURL(t *testing.T) {
	tests := map[string]string{
		":3000":          "http://127.0.0.1:3000/health",
		"0.0.0.0:8080":   "http://127.0.0.1:8080/health",
		"[::]:8080":      "http://127.0.0.1:8080/health",
		"10.0.0.5:3000":  "http://10.0.0.5:3000/health",
		"localhost:3000": "http://localhost:3000/health",
	}
	for addr, want := range tests {
		if got := healthURL(addr); got != want {
			t.Errorf("healthURL(%q) = %q, want %q", addr, got, want)
		}
	}
}
