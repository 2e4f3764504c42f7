package forecast

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"FinCast/internal/domain/models"
)

func TestScalerRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	values := make([]float64, 500)
	for i := range values {
		values[i] = 50 + rng.Float64()*450
	}
	p, err := FitScaler(values)
	if err != nil {
		t.Fatalf("FitScaler: %v", err)
	}
	scaled := p.Transform(values)
	for i, v := range scaled {
		if v < 0 || v > 1 {
			t.Fatalf("scaled[%d] = %v outside [0,1]", i, v)
		}
	}
	back := p.Inverse(scaled)
	for i := range values {
		if math.Abs(back[i]-values[i]) > 1e-9*math.Abs(values[i]) {
			t.Fatalf("round trip %d: got %v want %v", i, back[i], values[i])
		}
	}
}

func TestScalerExtremesMapToBounds(t *testing.T) {
	p, err := FitScaler([]float64{3, 9, 5})
	if err != nil {
		t.Fatalf("FitScaler: %v", err)
	}
	got := p.Transform([]float64{3, 9, 12})
	if got[0] != 0 || got[1] != 1 {
		t.Fatalf("extremes should map to 0 and 1, got %v", got)
	}
	if got[2] <= 1 {
		t.Fatalf("values above the fitted max are not clipped, got %v", got[2])
	}
	if v := p.InverseValue(got[2]); math.Abs(v-12) > 1e-12 {
		t.Fatalf("inverse of out-of-range value = %v", v)
	}
}

func TestScalerDegenerateSeries(t *testing.T) {
	values := make([]float64, 80)
	for i := range values {
		values[i] = 42
	}
	_, err := FitScaler(values)
	if !errors.Is(err, models.ErrDegenerateSeries) {
		t.Fatalf("expected ErrDegenerateSeries, got %v", err)
	}
}

func TestScalerEmpty(t *testing.T) {
	if _, err := FitScaler(nil); !errors.Is(err, models.ErrInsufficientData) {
		t.Fatalf("expected ErrInsufficientData, got %v", err)
	}
}
