package models

import (
	"errors"
	"fmt"
)

var (
	ErrNoData                 = errors.New("no data found")
	ErrInsufficientHistory    = errors.New("insufficient history")
	ErrMissingPriceColumn     = errors.New("missing price column")
	ErrUnfillableGaps         = errors.New("unfillable gaps in price data")
	ErrDegenerateSeries       = errors.New("degenerate series: min equals max")
	ErrInsufficientData       = errors.New("insufficient data")
	ErrInvalidDataset         = errors.New("invalid dataset")
	ErrTraining               = errors.New("training failed")
	ErrNonFiniteLoss          = errors.New("non-finite loss")
	ErrUndefinedNormalization = errors.New("normalized rmse undefined for zero mean")
	ErrAllSymbolsFailed       = errors.New("no symbol produced a valid result")
)

// FetchError reports why the series for a symbol could not be obtained.
// Reason is one of ErrNoData, ErrInsufficientHistory or ErrMissingPriceColumn.
type FetchError struct {
	Symbol string
	Reason error
	Detail string
}

func (e *FetchError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("fetch %s: %v", e.Symbol, e.Reason)
	}
	return fmt.Sprintf("fetch %s: %v: %s", e.Symbol, e.Reason, e.Detail)
}

func (e *FetchError) Unwrap() error { return e.Reason }

// DataQualityError wraps ErrUnfillableGaps.
type DataQualityError struct {
	Symbol string
	Column string
}

func (e *DataQualityError) Error() string {
	return fmt.Sprintf("%s: column %q: %v", e.Symbol, e.Column, ErrUnfillableGaps)
}

func (e *DataQualityError) Unwrap() error { return ErrUnfillableGaps }

// TrainingError wraps a numeric or cancellation failure during training.
type TrainingError struct {
	Epoch int
	Err   error
}

func (e *TrainingError) Error() string {
	return fmt.Sprintf("training failed at epoch %d: %v", e.Epoch, e.Err)
}

func (e *TrainingError) Unwrap() []error { return []error{ErrTraining, e.Err} }

// MetricError reports a metric that cannot be computed for the given data.
type MetricError struct {
	Metric string
	Err    error
}

func (e *MetricError) Error() string {
	return fmt.Sprintf("metric %s: %v", e.Metric, e.Err)
}

func (e *MetricError) Unwrap() error { return e.Err }

// StageError records the state a symbol's pipeline failed to reach.
type StageError struct {
	Symbol string
	Stage  Stage
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s stage: %v", e.Symbol, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
