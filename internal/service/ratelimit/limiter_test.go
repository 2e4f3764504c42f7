package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestLimiterBurstAndRefill(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(2, 1)
	l.now = func() time.Time { return now }

	if !l.Allow("a") || !l.Allow("a") {
		t.Fatalf("burst of 2 should pass")
	}
	if l.Allow("a") {
		t.Fatalf("third request should be limited")
	}
	if !l.Allow("b") {
		t.Fatalf("keys are independent")
	}
	now = now.Add(1100 * time.Millisecond)
	if !l.Allow("a") {
		t.Fatalf("one token should be refilled after a second")
	}
}

func TestLimiterSweepsIdle(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(1, 1)
	l.now = func() time.Time { return now }
	l.Allow("old")
	now = now.Add(time.Hour)
	l.mu.Lock()
	l.sweepLocked(now)
	n := len(l.m)
	l.mu.Unlock()
	if n != 0 {
		t.Fatalf("idle visitor should be removed, have %d", n)
	}
}

func TestMiddleware(t *testing.T) {
	e := echo.New()
	l := New(1, 0.001)
	e.POST("/p", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, l.Middleware())

	codes := make([]int, 2)
	for i := range codes {
		req := httptest.NewRequest(http.MethodPost, "/p", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		codes[i] = rec.Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("unexpected codes %v", codes)
	}
}
