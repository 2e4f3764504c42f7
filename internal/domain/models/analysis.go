package models

// Trend labels used by the technical summary.
const (
	TrendBullish  = "Bullish"
	TrendBearish  = "Bearish"
	TrendUpward   = "Upward"
	TrendDownward = "Downward"
	VolumeHigh    = "High"
	VolumeNormal  = "Normal"
	VolumeLow     = "Low"
	TrendNeutral  = "Neutral"
)

type RiskProfile struct {
	MeanReturn    float64 `json:"mean_return"`
	StdReturn     float64 `json:"std_return"`
	AnnualizedVol float64 `json:"annualized_volatility"`
}

// TechnicalSummary condenses moving averages, momentum and risk for one symbol.
type TechnicalSummary struct {
	MovingAverages string      `json:"moving_averages"`
	VolumeTrend    string      `json:"volume_trend"`
	PriceTrend     string      `json:"price_trend"`
	MA10           float64     `json:"ma10"`
	MA20           float64     `json:"ma20"`
	MA50           float64     `json:"ma50"`
	RSI14          float64     `json:"rsi14"`
	LastClose      float64     `json:"last_close"`
	Risk           RiskProfile `json:"risk"`
}

// CorrelationMatrix holds pairwise Pearson correlations of daily returns.
type CorrelationMatrix struct {
	Symbols []string    `json:"symbols"`
	Values  [][]float64 `json:"values"`
}

type AnalysisResult struct {
	Technical   map[string]TechnicalSummary `json:"technical_analysis"`
	Correlation *CorrelationMatrix          `json:"correlation,omitempty"`
	Errors      map[string]string           `json:"errors"`
}
