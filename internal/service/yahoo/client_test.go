package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"FinCast/internal/domain/models"
)

func chartJSON(n int, adj bool, nullAt map[int]bool) string {
	ts := make([]int64, n)
	closes := make([]interface{}, n)
	adjs := make([]interface{}, n)
	vols := make([]interface{}, n)
	start := time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		ts[i] = start.AddDate(0, 0, i).Unix()
		if nullAt[i] {
			continue
		}
		closes[i] = 100 + float64(i)
		adjs[i] = 50 + float64(i)
		vols[i] = 1000
	}
	indicators := map[string]interface{}{
		"quote": []interface{}{map[string]interface{}{"close": closes, "open": closes, "high": closes, "low": closes, "volume": vols}},
	}
	if adj {
		indicators["adjclose"] = []interface{}{map[string]interface{}{"adjclose": adjs}}
	}
	body, _ := json.Marshal(map[string]interface{}{
		"chart": map[string]interface{}{
			"result": []interface{}{map[string]interface{}{"timestamp": ts, "indicators": indicators}},
			"error":  nil,
		},
	})
	return string(body)
}

func serve(t *testing.T, status int, body string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/v8/finance/chart/") || r.URL.Query().Get("interval") != "1d" {
			t.Errorf("unexpected request %s", r.URL)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return New(WithBaseURL(srv.URL), WithMinHistory(60))
}

func fetch(c *Client) (models.PriceSeries, error) {
	to := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return c.Fetch(context.Background(), "AAPL", to.AddDate(-1, 0, 0), to)
}

func TestFetchPrefersAdjustedClose(t *testing.T) {
	s, err := fetch(serve(t, http.StatusOK, chartJSON(80, true, nil)))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if s.Len() != 80 || s.Bars[0].Close != 50 || s.Bars[0].Volume != 1000 {
		t.Fatalf("unexpected series: len %d first %+v", s.Len(), s.Bars[0])
	}
	if s.Bars[0].Date.Hour() != 0 || !s.Bars[1].Date.After(s.Bars[0].Date) {
		t.Fatalf("dates should be normalized and increasing: %v %v", s.Bars[0].Date, s.Bars[1].Date)
	}
}

func TestFetchFallsBackToClose(t *testing.T) {
	s, err := fetch(serve(t, http.StatusOK, chartJSON(70, false, nil)))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if s.Bars[0].Close != 100 {
		t.Fatalf("expected raw close, got %v", s.Bars[0].Close)
	}
}

func TestFetchFillsGaps(t *testing.T) {
	s, err := fetch(serve(t, http.StatusOK, chartJSON(70, true, map[int]bool{0: true, 1: true, 10: true})))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if s.Bars[0].Close != 52 || s.Bars[1].Close != 52 {
		t.Fatalf("leading gap should be back-filled, got %v %v", s.Bars[0].Close, s.Bars[1].Close)
	}
	if s.Bars[10].Close != 59 {
		t.Fatalf("inner gap should be forward-filled, got %v", s.Bars[10].Close)
	}
}

func TestFetchUnfillable(t *testing.T) {
	all := make(map[int]bool)
	for i := 0; i < 70; i++ {
		all[i] = true
	}
	_, err := fetch(serve(t, http.StatusOK, chartJSON(70, true, all)))
	if !errors.Is(err, models.ErrUnfillableGaps) {
		t.Fatalf("expected ErrUnfillableGaps, got %v", err)
	}
}

func TestFetchInsufficientHistory(t *testing.T) {
	_, err := fetch(serve(t, http.StatusOK, chartJSON(59, true, nil)))
	if !errors.Is(err, models.ErrInsufficientHistory) {
		t.Fatalf("expected ErrInsufficientHistory, got %v", err)
	}
	var fe *models.FetchError
	if !errors.As(err, &fe) || fe.Symbol != "AAPL" {
		t.Fatalf("expected FetchError for AAPL, got %v", err)
	}
}

func TestFetchNoData(t *testing.T) {
	_, err := fetch(serve(t, http.StatusOK, `{"chart":{"result":[],"error":null}}`))
	if !errors.Is(err, models.ErrNoData) {
		t.Fatalf("empty result: expected ErrNoData, got %v", err)
	}
	_, err = fetch(serve(t, http.StatusNotFound, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	if !errors.Is(err, models.ErrNoData) {
		t.Fatalf("404: expected ErrNoData, got %v", err)
	}
}

func TestFetchMissingPriceColumn(t *testing.T) {
	body := `{"chart":{"result":[{"timestamp":[1,2,3],"indicators":{"quote":[{"open":[1,2,3]}]}}],"error":null}}`
	_, err := fetch(serve(t, http.StatusOK, body))
	if !errors.Is(err, models.ErrMissingPriceColumn) {
		t.Fatalf("expected ErrMissingPriceColumn, got %v", err)
	}
}

func TestDedupeKeepsLastPerDay(t *testing.T) {
	d := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	out := dedupe([]models.Bar{
		{Date: d.AddDate(0, 0, 1), Close: 3},
		{Date: d, Close: 1},
		{Date: d, Close: 2},
	})
	if len(out) != 2 || out[0].Close != 2 || out[1].Close != 3 {
		t.Fatalf("unexpected dedupe result %+v", out)
	}
}
