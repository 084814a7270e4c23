package server

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestRateLimiter(t *testing.T, rps float64, burst int) *rateLimiter {
	t.Helper()
	rl, stop := newRateLimiter(rps, burst, slog.New(slog.DiscardHandler))
	t.Cleanup(stop)
	return rl
}

func TestRateLimiter_AllowsWithinBurst(t *testing.T) {
	t.Parallel()

	rl := newTestRateLimiter(t, 1, 3)

	for i := 0; i < 3; i++ {
		if !rl.allow("10.0.0.1") {
			t.Fatalf("request %d within burst was denied", i+1)
		}
	}
	if rl.allow("10.0.0.1") {
		t.Error("request beyond burst was allowed")
	}
}

func TestRateLimiter_PerClientIsolation(t *testing.T) {
	t.Parallel()

	rl := newTestRateLimiter(t, 1, 1)

	if !rl.allow("10.0.0.1") {
		t.Fatal("first client's first request denied")
	}
	if rl.allow("10.0.0.1") {
		t.Error("first client's second request allowed")
	}
	// A different client has its own bucket.
	if !rl.allow("10.0.0.2") {
		t.Error("second client throttled by first client's bucket")
	}
}

func TestRateLimiter_Middleware429(t *testing.T) {
	t.Parallel()

	rl := newTestRateLimiter(t, 1, 1)
	handler := rl.middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/search", nil)
	req.RemoteAddr = "10.0.0.9:51234"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request: got %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: got %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("429 must carry Retry-After")
	}
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{"remote addr", "192.168.1.5:43210", "", "192.168.1.5"},
		{"forwarded single", "10.0.0.1:80", "203.0.113.7", "203.0.113.7"},
		{"forwarded chain", "10.0.0.1:80", "203.0.113.7, 10.0.0.2", "203.0.113.7"},
		{"unparseable remote", "bogus", "", "bogus"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}

			if got := clientIP(req); got != tt.want {
				t.Errorf("clientIP: got %q, want %q", got, tt.want)
			}
		})
	}
}
