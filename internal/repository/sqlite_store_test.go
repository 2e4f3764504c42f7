package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"FinCast/internal/domain/models"
)

func day(s string) time.Time {
	t, _ := time.Parse(time.DateOnly, s)
	return t
}

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return s
}

func TestSQLiteStoreSeriesUpsert(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	series := models.PriceSeries{Symbol: "AAPL", Bars: []models.Bar{
		{Date: day("2024-01-02"), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 100},
		{Date: day("2024-01-03"), Open: 1.5, High: 2.5, Low: 1, Close: 2, Volume: 200},
		{Date: day("2024-01-04"), Open: 2, High: 3, Low: 1.5, Close: 2.5, Volume: 300},
	}}
	if err := s.SaveSeries(ctx, series); err != nil {
		t.Fatalf("save: %v", err)
	}
	series.Bars[1].Close = 9
	if err := s.SaveSeries(ctx, models.PriceSeries{Symbol: "AAPL", Bars: series.Bars[1:2]}); err != nil {
		t.Fatalf("save again: %v", err)
	}

	got, err := s.LoadSeries(ctx, "AAPL", day("2024-01-01"), day("2024-01-03"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Len() != 2 {
		t.Fatalf("expected 2 bars in range, got %d", got.Len())
	}
	if !got.Bars[0].Date.Equal(day("2024-01-02")) || got.Bars[1].Close != 9 {
		t.Fatalf("unexpected bars %+v", got.Bars)
	}
}

func TestSQLiteStoreReports(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		r := &models.EvaluationReport{
			Symbol:    "MSFT",
			Metrics:   models.Metrics{RMSE: float64(i + 1)},
			Points:    []models.PredictionPoint{{Date: "2024-04-30", Actual: 10, Predicted: 11}},
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
		}
		if err := s.SaveReport(ctx, r); err != nil {
			t.Fatalf("save report: %v", err)
		}
	}
	_ = s.SaveReport(ctx, &models.EvaluationReport{Symbol: "AAPL", CreatedAt: base})

	got, err := s.ListReports(ctx, "MSFT", 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(got))
	}
	if got[0].Metrics.RMSE != 3 || got[1].Metrics.RMSE != 2 {
		t.Fatalf("reports should be newest first: %v %v", got[0].Metrics.RMSE, got[1].Metrics.RMSE)
	}
	if len(got[0].Points) != 1 || got[0].Points[0].Predicted != 11 {
		t.Fatalf("points not restored: %+v", got[0].Points)
	}
}

func TestDecodeDay(t *testing.T) {
	want := day("2024-02-29")
	for _, v := range []any{"2024-02-29", []byte("2024-02-29"), time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)} {
		got, err := decodeDay(v)
		if err != nil || !got.Equal(want) {
			t.Fatalf("decodeDay(%v) = %v, %v", v, got, err)
		}
	}
	if _, err := decodeDay(42); err == nil {
		t.Fatalf("expected error for int")
	}
}
