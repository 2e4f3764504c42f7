package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"FinCast/internal/domain/models"
)

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	fetches      *prometheus.CounterVec
	stageErrors  *prometheus.CounterVec
	trainSeconds *prometheus.HistogramVec
	trainEpochs  *prometheus.GaugeVec
	evaluation   *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
}

// New registers the collectors with the default registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		fetches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincast_fetches_total",
				Help: "Series fetches by outcome",
			},
			[]string{"symbol", "outcome"},
		),
		stageErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fincast_stage_errors_total",
				Help: "Per-symbol pipeline failures by stage",
			},
			[]string{"stage"},
		),
		trainSeconds: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fincast_training_duration_seconds",
				Help:    "Wall time of one model training run",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
			},
			[]string{"symbol"},
		),
		trainEpochs: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fincast_training_epochs",
				Help: "Epochs run by the last training of a symbol",
			},
			[]string{"symbol"},
		),
		evaluation: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fincast_evaluation_metric",
				Help: "Last evaluation metrics per symbol",
			},
			[]string{"symbol", "metric"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fincast_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordFetch(symbol, outcome string) {
	r.fetches.WithLabelValues(symbol, outcome).Inc()
}

func (r *Recorder) RecordStageError(stage string) {
	r.stageErrors.WithLabelValues(stage).Inc()
}

func (r *Recorder) RecordTraining(symbol string, epochs int, seconds float64) {
	r.trainSeconds.WithLabelValues(symbol).Observe(seconds)
	r.trainEpochs.WithLabelValues(symbol).Set(float64(epochs))
}

func (r *Recorder) RecordEvaluation(symbol string, m models.Metrics) {
	r.evaluation.WithLabelValues(symbol, "rmse").Set(m.RMSE)
	r.evaluation.WithLabelValues(symbol, "normalized_rmse").Set(m.NormalizedRMSE)
	r.evaluation.WithLabelValues(symbol, "mae").Set(m.MAE)
	r.evaluation.WithLabelValues(symbol, "r2").Set(m.R2)
	r.evaluation.WithLabelValues(symbol, "directional_accuracy").Set(m.DirectionalAccuracy)
	r.evaluation.WithLabelValues(symbol, "final_loss").Set(m.FinalTrainingLoss)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
