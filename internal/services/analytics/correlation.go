package analytics

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"FinCast/internal/domain/models"
	"FinCast/internal/services/features"
)

// Correlation computes the Pearson correlation of daily returns over the
// dates shared by every series. It returns nil for fewer than two series or
// fewer than three common dates.
func Correlation(series ...models.PriceSeries) *models.CorrelationMatrix {
	if len(series) < 2 {
		return nil
	}
	common := commonDates(series)
	if len(common) < 3 {
		return nil
	}

	returns := make([][]float64, len(series))
	for i, s := range series {
		closes := make([]float64, 0, len(common))
		for _, b := range s.Bars {
			if _, ok := common[dayKey(b.Date)]; ok {
				closes = append(closes, b.Close)
			}
		}
		returns[i] = features.DailyReturns(closes)
	}

	m := &models.CorrelationMatrix{
		Symbols: make([]string, len(series)),
		Values:  make([][]float64, len(series)),
	}
	for i := range series {
		m.Symbols[i] = series[i].Symbol
		m.Values[i] = make([]float64, len(series))
		for j := range series {
			if i == j {
				m.Values[i][j] = 1
				continue
			}
			c := stat.Correlation(returns[i], returns[j], nil)
			if math.IsNaN(c) {
				c = 0
			}
			m.Values[i][j] = c
		}
	}
	return m
}

func commonDates(series []models.PriceSeries) map[int64]struct{} {
	counts := make(map[int64]int)
	for _, s := range series {
		for _, b := range s.Bars {
			counts[dayKey(b.Date)]++
		}
	}
	out := make(map[int64]struct{})
	for k, c := range counts {
		if c == len(series) {
			out[k] = struct{}{}
		}
	}
	return out
}

func dayKey(t time.Time) int64 {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix()
}
