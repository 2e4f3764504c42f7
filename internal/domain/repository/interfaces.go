package repository

import (
	"context"
	"time"

	"FinCast/internal/domain/models"
)

// SeriesFetcher returns a gap-free daily series for a symbol or a typed error
// (*models.FetchError, *models.DataQualityError).
type SeriesFetcher interface {
	Fetch(ctx context.Context, symbol string, from, to time.Time) (models.PriceSeries, error)
}

// PriceStore archives fetched history.
type PriceStore interface {
	Init(ctx context.Context) error
	SaveSeries(ctx context.Context, series models.PriceSeries) error
	LoadSeries(ctx context.Context, symbol string, from, to time.Time) (models.PriceSeries, error)
	Health(ctx context.Context) error
	Close() error
}

// ReportStore keeps the evaluation history per symbol.
type ReportStore interface {
	SaveReport(ctx context.Context, report *models.EvaluationReport) error
	ListReports(ctx context.Context, symbol string, limit int) ([]*models.EvaluationReport, error)
}

// ReportEmitter hands a finished report to an external consumer
// (files, message bus, store).
type ReportEmitter interface {
	Emit(ctx context.Context, report *models.EvaluationReport) error
}

// ResultCache stores serialized forecast results.
type ResultCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
}

type Metrics interface {
	RecordFetch(symbol, outcome string)
	RecordStageError(stage string)
	RecordTraining(symbol string, epochs int, seconds float64)
	RecordEvaluation(symbol string, m models.Metrics)
	RecordLatency(op string, seconds float64)
}

// NopMetrics discards all observations.
type NopMetrics struct{}

func (NopMetrics) RecordFetch(string, string)              {}
func (NopMetrics) RecordStageError(string)                 {}
func (NopMetrics) RecordTraining(string, int, float64)     {}
func (NopMetrics) RecordEvaluation(string, models.Metrics) {}
func (NopMetrics) RecordLatency(string, float64)           {}
