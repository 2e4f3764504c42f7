package forecast

import (
	"fmt"
	"math"

	"FinCast/internal/domain/models"
)

// Sample is one supervised pair. Index is the position of Target in the
// source series.
type Sample struct {
	Input  []float64
	Target float64
	Index  int
}

// Dataset holds the chronological train and test windows of one series.
type Dataset struct {
	Window   int
	TrainLen int
	Train    []Sample
	Test     []Sample
}

// TrainLength is the size of the training partition, ceil(ratio*n).
func TrainLength(n int, ratio float64) int {
	l := int(math.Ceil(ratio * float64(n)))
	if l > n {
		l = n
	}
	return l
}

// BuildWindows slices a scaled series into sliding windows. Training targets
// are the indices [window, trainLen); test targets are [trainLen, n) with
// inputs reaching back across the split so the first test window ends right
// before the first test target.
func BuildWindows(scaled []float64, trainLen, window int) (*Dataset, error) {
	n := len(scaled)
	if window < 1 {
		return nil, fmt.Errorf("window length %d: %w", window, models.ErrInsufficientData)
	}
	if n <= window {
		return nil, fmt.Errorf("series of %d points with window %d: %w", n, window, models.ErrInsufficientData)
	}
	if trainLen < window || trainLen > n {
		return nil, fmt.Errorf("training partition of %d points with window %d: %w", trainLen, window, models.ErrInsufficientData)
	}

	ds := &Dataset{
		Window:   window,
		TrainLen: trainLen,
		Train:    make([]Sample, 0, trainLen-window),
		Test:     make([]Sample, 0, n-trainLen),
	}
	for i := window; i < trainLen; i++ {
		ds.Train = append(ds.Train, sample(scaled, i, window))
	}
	for i := trainLen; i < n; i++ {
		ds.Test = append(ds.Test, sample(scaled, i, window))
	}
	return ds, nil
}

func sample(scaled []float64, i, window int) Sample {
	in := make([]float64, window)
	copy(in, scaled[i-window:i])
	return Sample{Input: in, Target: scaled[i], Index: i}
}

// validate rejects datasets the trainer cannot consume.
func (d *Dataset) validate() error {
	if d == nil || len(d.Train) == 0 {
		return fmt.Errorf("no training samples: %w", models.ErrInvalidDataset)
	}
	w := len(d.Train[0].Input)
	if w == 0 {
		return fmt.Errorf("empty input window: %w", models.ErrInvalidDataset)
	}
	for i, s := range d.Train {
		if len(s.Input) != w {
			return fmt.Errorf("sample %d has window %d, want %d: %w", i, len(s.Input), w, models.ErrInvalidDataset)
		}
		if !finite(s.Target) {
			return fmt.Errorf("sample %d has non-finite target: %w", i, models.ErrInvalidDataset)
		}
		for _, v := range s.Input {
			if !finite(v) {
				return fmt.Errorf("sample %d has non-finite input: %w", i, models.ErrInvalidDataset)
			}
		}
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
