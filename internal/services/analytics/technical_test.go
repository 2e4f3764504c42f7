package analytics

import (
	"math"
	"testing"
	"time"

	"FinCast/internal/domain/models"
)

func makeSeries(symbol string, closes, volumes []float64, start time.Time) models.PriceSeries {
	bars := make([]models.Bar, len(closes))
	for i, c := range closes {
		v := 1000.0
		if volumes != nil {
			v = volumes[i]
		}
		bars[i] = models.Bar{Date: start.AddDate(0, 0, i), Close: c, Volume: v}
	}
	return models.PriceSeries{Symbol: symbol, Bars: bars}
}

var day0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func TestSummarizeRisingSeries(t *testing.T) {
	closes := make([]float64, 120)
	volumes := make([]float64, 120)
	for i := range closes {
		closes[i] = 100 + float64(i)
		volumes[i] = 1000
		if i >= 100 {
			volumes[i] = 3000
		}
	}
	s := Summarize(makeSeries("UP", closes, volumes, day0))
	if s.MovingAverages != models.TrendBullish {
		t.Fatalf("moving averages = %s", s.MovingAverages)
	}
	if s.PriceTrend != models.TrendUpward {
		t.Fatalf("price trend = %s", s.PriceTrend)
	}
	if s.VolumeTrend != models.VolumeHigh {
		t.Fatalf("volume trend = %s", s.VolumeTrend)
	}
	if s.LastClose != 219 || s.MA10 != 214.5 {
		t.Fatalf("last close %v ma10 %v", s.LastClose, s.MA10)
	}
	if s.RSI14 != 100 {
		t.Fatalf("rsi = %v", s.RSI14)
	}
	if s.Risk.MeanReturn <= 0 {
		t.Fatalf("mean return should be positive, got %v", s.Risk.MeanReturn)
	}
}

func TestSummarizeFallingSeries(t *testing.T) {
	closes := make([]float64, 80)
	for i := range closes {
		closes[i] = 300 - 2*float64(i)
	}
	s := Summarize(makeSeries("DOWN", closes, nil, day0))
	if s.MovingAverages != models.TrendBearish || s.PriceTrend != models.TrendDownward {
		t.Fatalf("unexpected labels %+v", s)
	}
	if s.VolumeTrend != models.VolumeNormal {
		t.Fatalf("flat volume should be Normal, got %s", s.VolumeTrend)
	}
}

func TestSummarizeShortSeriesIsNeutral(t *testing.T) {
	s := Summarize(makeSeries("NEW", []float64{10, 11, 12}, nil, day0))
	if s.MovingAverages != models.TrendNeutral || s.PriceTrend != models.TrendNeutral || s.VolumeTrend != models.TrendNeutral {
		t.Fatalf("short series should be neutral, got %+v", s)
	}
	if s.MA50 != 0 {
		t.Fatalf("ma50 should be zero, got %v", s.MA50)
	}
}

func TestCorrelation(t *testing.T) {
	a := make([]float64, 40)
	b := make([]float64, 40)
	c := make([]float64, 40)
	for i := range a {
		x := math.Sin(float64(i))
		a[i] = 100 + x
		b[i] = 200 + 2*x
		c[i] = 100 - x
	}
	m := Correlation(
		makeSeries("A", a, nil, day0),
		makeSeries("B", b, nil, day0),
		makeSeries("C", c, nil, day0),
	)
	if m == nil || len(m.Values) != 3 {
		t.Fatalf("expected 3x3 matrix, got %+v", m)
	}
	if m.Values[0][0] != 1 {
		t.Fatalf("diagonal = %v", m.Values[0][0])
	}
	if m.Values[0][1] < 0.9 {
		t.Fatalf("A and B move together, corr = %v", m.Values[0][1])
	}
	if m.Values[0][2] > -0.9 {
		t.Fatalf("A and C move opposite, corr = %v", m.Values[0][2])
	}
}

func TestCorrelationUsesCommonDates(t *testing.T) {
	a := makeSeries("A", []float64{1, 2, 3, 4, 5, 6}, nil, day0)
	b := makeSeries("B", []float64{1, 2, 3, 4, 5, 6}, nil, day0.AddDate(0, 0, 4))
	if m := Correlation(a, b); m != nil {
		t.Fatalf("two shared dates are not enough, got %+v", m)
	}
	if Correlation(a) != nil {
		t.Fatalf("single series should give nil")
	}
}
