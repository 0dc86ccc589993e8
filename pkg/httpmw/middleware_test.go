package httpmw

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitDisabled(t *testing.T) {
	h := RateLimit(0, 0)(okHandler())
	for i := 0; i < 50; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/messages", strings.NewReader("{}")))
		if rec.Code != http.StatusOK {
			t.Fatalf("disabled limiter must pass everything, got %d", rec.Code)
		}
	}
}

func TestRateLimitBlocksBursts(t *testing.T) {
	h := RateLimit(1, 2)(okHandler())

	limited := false
	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/messages", strings.NewReader("{}"))
		req.RemoteAddr = "10.0.0.1:1234"
		h.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			limited = true
		}
	}
	if !limited {
		t.Fatalf("burst of posts should hit the limiter")
	}
}

func TestRateLimitIgnoresReads(t *testing.T) {
	h := RateLimit(1, 1)(okHandler())
	for i := 0; i < 20; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/messages", nil)
		req.RemoteAddr = "10.0.0.2:1234"
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("GETs must never be limited, got %d", rec.Code)
		}
	}
}

func TestLoggingPassesThrough(t *testing.T) {
	h := Logging(okHandler())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("logging middleware must not alter the response, got %d", rec.Code)
	}
}
