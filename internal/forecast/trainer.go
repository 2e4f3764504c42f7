package forecast

import (
	"context"
	"fmt"
	"math"

	"FinCast/internal/domain/models"
)

// Progress is reported to the observer every ReportEvery epochs.
type Progress struct {
	Epoch     int
	MaxEpochs int
	Loss      float64
	BestLoss  float64
}

type Observer interface {
	OnProgress(p Progress)
}

type ObserverFunc func(p Progress)

func (f ObserverFunc) OnProgress(p Progress) { f(p) }

type TrainerConfig struct {
	BatchSize   int
	MaxEpochs   int
	Patience    int
	ReportEvery int
	// MinDelta is the least decrease of the epoch loss counted as improvement.
	MinDelta float64
}

func DefaultTrainerConfig() TrainerConfig {
	return TrainerConfig{BatchSize: 32, MaxEpochs: 100, Patience: 10, ReportEvery: 10}
}

// History records the mean training loss of every completed epoch.
type History struct {
	Loss         []float64
	BestEpoch    int // 1-based
	BestLoss     float64
	StoppedEarly bool
}

// FinalLoss is the loss of the last completed epoch.
func (h History) FinalLoss() float64 {
	if len(h.Loss) == 0 {
		return 0
	}
	return h.Loss[len(h.Loss)-1]
}

func (h History) Epochs() int { return len(h.Loss) }

// TrainedModel is the fitted regressor of one run with its history.
type TrainedModel struct {
	Model   Regressor
	History History
}

type Trainer struct {
	cfg      TrainerConfig
	observer Observer
}

type TrainerOption func(*Trainer)

func WithObserver(o Observer) TrainerOption {
	return func(t *Trainer) { t.observer = o }
}

func NewTrainer(cfg TrainerConfig, opts ...TrainerOption) *Trainer {
	def := DefaultTrainerConfig()
	if cfg.BatchSize < 1 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.MaxEpochs < 1 {
		cfg.MaxEpochs = def.MaxEpochs
	}
	if cfg.Patience < 1 {
		cfg.Patience = def.Patience
	}
	if cfg.ReportEvery < 1 {
		cfg.ReportEvery = def.ReportEvery
	}
	t := &Trainer{cfg: cfg}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Train fits model on the training partition in order, without shuffling.
// Training stops after Patience epochs without improvement and the weights of
// the best epoch are restored before returning.
func (t *Trainer) Train(ctx context.Context, model Trainable, ds *Dataset) (*TrainedModel, error) {
	if err := ds.validate(); err != nil {
		return nil, err
	}
	if model == nil {
		return nil, fmt.Errorf("nil model: %w", models.ErrInvalidDataset)
	}

	n := len(ds.Train)
	inputs := make([][]float64, n)
	targets := make([]float64, n)
	for i, s := range ds.Train {
		inputs[i] = s.Input
		targets[i] = s.Target
	}

	hist := History{BestLoss: math.Inf(1)}
	var best Weights
	wait := 0

	for epoch := 1; epoch <= t.cfg.MaxEpochs; epoch++ {
		var sum float64
		for start := 0; start < n; start += t.cfg.BatchSize {
			if err := ctx.Err(); err != nil {
				return nil, &models.TrainingError{Epoch: epoch, Err: err}
			}
			end := min(start+t.cfg.BatchSize, n)
			sum += model.TrainBatch(inputs[start:end], targets[start:end]) * float64(end-start)
		}
		loss := sum / float64(n)
		if !finite(loss) {
			return nil, &models.TrainingError{Epoch: epoch, Err: models.ErrNonFiniteLoss}
		}
		hist.Loss = append(hist.Loss, loss)

		if loss < hist.BestLoss-t.cfg.MinDelta {
			hist.BestLoss = loss
			hist.BestEpoch = epoch
			best = model.Snapshot()
			wait = 0
		} else {
			wait++
		}

		if t.observer != nil && epoch%t.cfg.ReportEvery == 0 {
			t.observer.OnProgress(Progress{
				Epoch:     epoch,
				MaxEpochs: t.cfg.MaxEpochs,
				Loss:      loss,
				BestLoss:  hist.BestLoss,
			})
		}

		if wait >= t.cfg.Patience {
			hist.StoppedEarly = true
			break
		}
	}

	if best != nil {
		model.Restore(best)
	}
	return &TrainedModel{Model: model, History: hist}, nil
}
