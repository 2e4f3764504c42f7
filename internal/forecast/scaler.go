package forecast

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"FinCast/internal/domain/models"
)

// ScalerParams is a fitted min-max mapping into [0,1].
type ScalerParams struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// FitScaler learns min and max over values.
func FitScaler(values []float64) (ScalerParams, error) {
	if len(values) == 0 {
		return ScalerParams{}, fmt.Errorf("fit scaler: %w", models.ErrInsufficientData)
	}
	lo, hi := floats.Min(values), floats.Max(values)
	if lo == hi {
		return ScalerParams{}, fmt.Errorf("fit scaler on %d values of %v: %w", len(values), lo, models.ErrDegenerateSeries)
	}
	return ScalerParams{Min: lo, Max: hi}, nil
}

func (p ScalerParams) span() float64 { return p.Max - p.Min }

// Transform maps values into the fitted range. Values outside the fitted
// range are not clipped.
func (p ScalerParams) Transform(values []float64) []float64 {
	out := make([]float64, len(values))
	s := p.span()
	for i, v := range values {
		out[i] = (v - p.Min) / s
	}
	return out
}

func (p ScalerParams) Inverse(scaled []float64) []float64 {
	out := make([]float64, len(scaled))
	for i, v := range scaled {
		out[i] = p.InverseValue(v)
	}
	return out
}

func (p ScalerParams) InverseValue(v float64) float64 {
	return v*p.span() + p.Min
}
