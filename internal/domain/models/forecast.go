package models

import "time"

// Stage is a step of the per-symbol forecast pipeline.
type Stage string

const (
	StageFetched   Stage = "fetched"
	StageScaled    Stage = "scaled"
	StageWindowed  Stage = "windowed"
	StageTrained   Stage = "trained"
	StageEvaluated Stage = "evaluated"
	StageReported  Stage = "reported"
)

// Metrics are computed in price units except DirectionalAccuracy (percent).
type Metrics struct {
	RMSE                float64 `json:"rmse"`
	NormalizedRMSE      float64 `json:"normalized_rmse"`
	MAE                 float64 `json:"mae"`
	R2                  float64 `json:"r2"`
	DirectionalAccuracy float64 `json:"directional_accuracy"`
	FinalTrainingLoss   float64 `json:"final_loss"`
}

type PredictionPoint struct {
	Date      string  `json:"date"`
	Actual    float64 `json:"actual"`
	Predicted float64 `json:"predicted"`
}

type TrainingSummary struct {
	Epochs       int     `json:"epochs"`
	BestEpoch    int     `json:"best_epoch"`
	BestLoss     float64 `json:"best_loss"`
	StoppedEarly bool    `json:"stopped_early"`
	TrainSamples int     `json:"train_samples"`
	TestSamples  int     `json:"test_samples"`
}

// EvaluationReport is the outcome of one completed training run on the held
// out partition. Points cover the whole test partition in date order.
type EvaluationReport struct {
	Symbol    string            `json:"symbol"`
	Metrics   Metrics           `json:"metrics"`
	Points    []PredictionPoint `json:"points"`
	Training  TrainingSummary   `json:"training"`
	Model     []string          `json:"model"`
	CreatedAt time.Time         `json:"created_at"`
}

// Tail returns the last n aligned points (all of them when n <= 0 or n >= len).
func (r *EvaluationReport) Tail(n int) []PredictionPoint {
	if n <= 0 || n >= len(r.Points) {
		return r.Points
	}
	return r.Points[len(r.Points)-n:]
}

// SymbolResult is a successful pipeline run for one symbol.
type SymbolResult struct {
	Symbol    string            `json:"symbol"`
	Report    *EvaluationReport `json:"report"`
	Technical TechnicalSummary  `json:"technical"`
}

// BatchResult always carries both the successes and the per-symbol failures.
type BatchResult struct {
	Results map[string]*SymbolResult `json:"results"`
	Errors  map[string]string        `json:"errors"`
	// Order preserves the request order after de-duplication.
	Order      []string  `json:"order"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

func NewBatchResult(symbols []string) *BatchResult {
	return &BatchResult{
		Results:   make(map[string]*SymbolResult, len(symbols)),
		Errors:    make(map[string]string),
		Order:     symbols,
		StartedAt: time.Now().UTC(),
	}
}

func (b *BatchResult) Succeeded() int { return len(b.Results) }
