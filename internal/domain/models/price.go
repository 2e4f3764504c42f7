package models

import "time"

// Bar is one daily OHLCV record. Close holds the adjusted close when the
// provider reports one.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceSeries is an ordered daily history for one symbol. Dates are strictly
// increasing and unique. A series is not modified after it has been fetched.
type PriceSeries struct {
	Symbol string `json:"symbol"`
	Bars   []Bar  `json:"bars"`
}

func (s PriceSeries) Len() int { return len(s.Bars) }

// Closes returns a copy of the closing prices.
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Volumes returns a copy of the traded volumes.
func (s PriceSeries) Volumes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Volume
	}
	return out
}

func (s PriceSeries) Dates() []time.Time {
	out := make([]time.Time, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Date
	}
	return out
}

// Last returns the most recent bar; ok is false for an empty series.
func (s PriceSeries) Last() (Bar, bool) {
	if len(s.Bars) == 0 {
		return Bar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}
