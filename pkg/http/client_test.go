package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestSendAndParseRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if r.Header.Get("User-Agent") != "fincast-test" {
			t.Errorf("user agent = %q", r.Header.Get("User-Agent"))
		}
		_, _ = w.Write([]byte(`{"value": 7}`))
	}))
	defer srv.Close()

	c := NewClient(WithRetry(5, 5*time.Second), WithUserAgent("fincast-test"))
	var out struct{ Value int }
	if err := c.SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: srv.URL}, &out); err != nil {
		t.Fatalf("SendAndParse: %v", err)
	}
	if out.Value != 7 || atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("value %d after %d calls", out.Value, calls)
	}
}

func TestSendAndParseDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(WithRetry(5, 5*time.Second))
	err := c.SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: srv.URL}, nil)
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 StatusError, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("4xx should not be retried, calls = %d", calls)
	}
}

func TestSendAndParseQueryParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.URL.Query().Get("interval")))
	}))
	defer srv.Close()

	var body []byte
	opts := &RequestOptions{Method: MethodGet, URL: srv.URL, QueryParams: map[string][]string{"interval": {"1d"}}}
	if err := NewClient(WithRateLimit(10)).SendAndParse(context.Background(), opts, &body); err != nil {
		t.Fatalf("SendAndParse: %v", err)
	}
	if string(body) != "1d" {
		t.Fatalf("body = %q", body)
	}
}
