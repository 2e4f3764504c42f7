package repository

import (
	"context"
	"errors"
	"fmt"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	pkgkafka "FinCast/pkg/kafka"
)

// reportEvent is the message published for every finished report.
// Points are left out; consumers fetch them from the store or the API.
type reportEvent struct {
	Symbol    string                  `json:"symbol"`
	Metrics   models.Metrics          `json:"metrics"`
	Training  models.TrainingSummary  `json:"training"`
	Last      *models.PredictionPoint `json:"last,omitempty"`
	CreatedAt int64                   `json:"created_at"`
}

// KafkaEmitter publishes a compact report event keyed by symbol.
type KafkaEmitter struct {
	producer *pkgkafka.Producer
}

func NewKafkaEmitter(p *pkgkafka.Producer) *KafkaEmitter {
	return &KafkaEmitter{producer: p}
}

func (e *KafkaEmitter) Emit(ctx context.Context, r *models.EvaluationReport) error {
	ev := reportEvent{
		Symbol:    r.Symbol,
		Metrics:   r.Metrics,
		Training:  r.Training,
		CreatedAt: r.CreatedAt.UnixMilli(),
	}
	if n := len(r.Points); n > 0 {
		last := r.Points[n-1]
		ev.Last = &last
	}
	return e.producer.Publish(ctx, r.Symbol, ev)
}

// StoreEmitter appends the report to the evaluation history.
type StoreEmitter struct {
	store domrepo.ReportStore
}

func NewStoreEmitter(s domrepo.ReportStore) *StoreEmitter {
	return &StoreEmitter{store: s}
}

func (e *StoreEmitter) Emit(ctx context.Context, r *models.EvaluationReport) error {
	return e.store.SaveReport(ctx, r)
}

// MultiEmitter hands the report to every emitter and joins their errors.
type MultiEmitter []domrepo.ReportEmitter

func (m MultiEmitter) Emit(ctx context.Context, r *models.EvaluationReport) error {
	var errs []error
	for _, e := range m {
		if err := e.Emit(ctx, r); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", e, err))
		}
	}
	return errors.Join(errs...)
}
