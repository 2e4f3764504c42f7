package progress

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"FinCast/internal/forecast"
	applogger "FinCast/pkg/logger"
)

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", n, h.Clients())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHubBroadcastsFilteredEvents(t *testing.T) {
	h := NewHub(applogger.Nop())
	srv := httptest.NewServer(h)
	defer srv.Close()

	all := dial(t, srv, "")
	msft := dial(t, srv, "?symbol=msft")
	waitClients(t, h, 2)

	h.Observer("AAPL").OnProgress(forecast.Progress{Epoch: 10, MaxEpochs: 100, Loss: 0.5, BestLoss: 0.4})
	h.Observer("MSFT").OnProgress(forecast.Progress{Epoch: 20, MaxEpochs: 100, Loss: 0.3, BestLoss: 0.3})

	read := func(c *websocket.Conn) Event {
		c.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := c.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var ev Event
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return ev
	}

	if ev := read(all); ev.Symbol != "AAPL" || ev.Epoch != 10 {
		t.Fatalf("unexpected first event %+v", ev)
	}
	if ev := read(all); ev.Symbol != "MSFT" {
		t.Fatalf("unexpected second event %+v", ev)
	}
	if ev := read(msft); ev.Symbol != "MSFT" || ev.BestLoss != 0.3 {
		t.Fatalf("filtered client got %+v", ev)
	}
}

func TestHubRemovesClosedClients(t *testing.T) {
	h := NewHub(nil)
	srv := httptest.NewServer(h)
	defer srv.Close()

	c := dial(t, srv, "")
	waitClients(t, h, 1)
	c.Close()
	waitClients(t, h, 0)
	h.Publish(Event{Symbol: "X"})
}

func TestHubRejectsUnlistedOrigins(t *testing.T) {
	h := NewHub(nil, WithAllowedOrigins([]string{"https://dash.example.com"}))
	srv := httptest.NewServer(h)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example.com"}})
	if err == nil {
		t.Fatalf("expected upgrade from unlisted origin to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %+v", resp)
	}

	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://DASH.example.com"}})
	if err != nil {
		t.Fatalf("listed origin: %v", err)
	}
	conn.Close()
}

func TestHubDefaultsToSameHost(t *testing.T) {
	h := NewHub(nil)
	srv := httptest.NewServer(h)
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	if _, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://elsewhere.example.com"}}); err == nil {
		t.Fatalf("expected cross-host upgrade to fail")
	}
	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {srv.URL}})
	if err != nil {
		t.Fatalf("same-host origin: %v", err)
	}
	conn.Close()
}
