package analytics

import (
	"gonum.org/v1/gonum/stat"

	"FinCast/internal/domain/models"
	"FinCast/internal/services/features"
)

const (
	trendLookback  = 20
	volumeWindow   = 20
	volumeBand     = 0.10
	rsiPeriod      = 14
	volatilityBars = 20
)

// Summarize derives moving-average, volume and price trend labels plus risk
// statistics from a daily series. Statistics that need more bars than the
// series has are left zero and their label set to Neutral.
func Summarize(series models.PriceSeries) models.TechnicalSummary {
	closes := series.Closes()
	volumes := series.Volumes()

	s := models.TechnicalSummary{
		MovingAverages: models.TrendNeutral,
		VolumeTrend:    models.TrendNeutral,
		PriceTrend:     models.TrendNeutral,
	}
	if last, ok := series.Last(); ok {
		s.LastClose = last.Close
	}

	s.MA10, _ = features.SMA(closes, 10)
	s.MA20, _ = features.SMA(closes, 20)
	ma50, err := features.SMA(closes, 50)
	s.MA50 = ma50
	if err == nil {
		if s.MA20 > s.MA50 {
			s.MovingAverages = models.TrendBullish
		} else {
			s.MovingAverages = models.TrendBearish
		}
	}

	if n := len(closes); n > trendLookback {
		if closes[n-1] > closes[n-1-trendLookback] {
			s.PriceTrend = models.TrendUpward
		} else {
			s.PriceTrend = models.TrendDownward
		}
	}

	s.VolumeTrend = volumeTrend(volumes)
	s.RSI14 = features.RSI(closes, rsiPeriod)
	s.Risk = Risk(closes)
	return s
}

func volumeTrend(volumes []float64) string {
	if len(volumes) < volumeWindow {
		return models.TrendNeutral
	}
	overall := stat.Mean(volumes, nil)
	if overall == 0 {
		return models.TrendNeutral
	}
	recent := stat.Mean(volumes[len(volumes)-volumeWindow:], nil)
	switch {
	case recent > overall*(1+volumeBand):
		return models.VolumeHigh
	case recent < overall*(1-volumeBand):
		return models.VolumeLow
	default:
		return models.VolumeNormal
	}
}

// Risk summarizes daily returns as expected return against their spread.
func Risk(closes []float64) models.RiskProfile {
	returns := features.DailyReturns(closes)
	if len(returns) < 2 {
		return models.RiskProfile{}
	}
	mean, std := stat.MeanStdDev(returns, nil)
	return models.RiskProfile{
		MeanReturn:    mean,
		StdReturn:     std,
		AnnualizedVol: features.RealizedVolatility(features.ComputeLogReturns(closes), min(volatilityBars, len(returns)), features.TradingDaysPerYear),
	}
}
