package forecast

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"FinCast/internal/domain/models"
)

const dateLayout = "2006-01-02"

// Evaluate predicts every test sample, maps predictions back to prices and
// scores them against the actual prices of series at each sample index.
func Evaluate(tm *TrainedModel, test []Sample, params ScalerParams, series models.PriceSeries) (*models.EvaluationReport, error) {
	if len(test) == 0 {
		return nil, fmt.Errorf("empty test partition: %w", models.ErrInsufficientData)
	}
	actual := make([]float64, len(test))
	predicted := make([]float64, len(test))
	points := make([]models.PredictionPoint, len(test))
	for i, s := range test {
		if s.Index < 0 || s.Index >= series.Len() {
			return nil, fmt.Errorf("test sample index %d outside series of %d: %w", s.Index, series.Len(), models.ErrInvalidDataset)
		}
		bar := series.Bars[s.Index]
		actual[i] = bar.Close
		predicted[i] = params.InverseValue(tm.Model.Predict(s.Input))
		points[i] = models.PredictionPoint{
			Date:      bar.Date.Format(dateLayout),
			Actual:    actual[i],
			Predicted: predicted[i],
		}
	}

	m, err := ComputeMetrics(actual, predicted)
	if err != nil {
		return nil, err
	}
	m.FinalTrainingLoss = tm.History.FinalLoss()

	return &models.EvaluationReport{
		Symbol:  series.Symbol,
		Metrics: m,
		Points:  points,
		Training: models.TrainingSummary{
			Epochs:       tm.History.Epochs(),
			BestEpoch:    tm.History.BestEpoch,
			BestLoss:     tm.History.BestLoss,
			StoppedEarly: tm.History.StoppedEarly,
			TestSamples:  len(test),
		},
		CreatedAt: time.Now().UTC(),
	}, nil
}

// ComputeMetrics scores aligned actual and predicted prices.
func ComputeMetrics(actual, predicted []float64) (models.Metrics, error) {
	if len(actual) == 0 || len(actual) != len(predicted) {
		return models.Metrics{}, fmt.Errorf("metrics over %d actual and %d predicted values: %w",
			len(actual), len(predicted), models.ErrInsufficientData)
	}
	rmse := RMSE(actual, predicted)
	nrmse, err := NormalizedRMSE(rmse, actual)
	if err != nil {
		return models.Metrics{}, err
	}
	return models.Metrics{
		RMSE:                rmse,
		NormalizedRMSE:      nrmse,
		MAE:                 MAE(actual, predicted),
		R2:                  RSquared(actual, predicted),
		DirectionalAccuracy: DirectionalAccuracy(actual, predicted),
	}, nil
}

func RMSE(actual, predicted []float64) float64 {
	var sum float64
	for i := range actual {
		d := actual[i] - predicted[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(actual)))
}

func MAE(actual, predicted []float64) float64 {
	var sum float64
	for i := range actual {
		sum += math.Abs(actual[i] - predicted[i])
	}
	return sum / float64(len(actual))
}

// NormalizedRMSE is rmse as a percentage of the mean actual value.
func NormalizedRMSE(rmse float64, actual []float64) (float64, error) {
	mean := stat.Mean(actual, nil)
	if mean == 0 {
		return 0, &models.MetricError{Metric: "normalized_rmse", Err: models.ErrUndefinedNormalization}
	}
	return rmse / mean * 100, nil
}

// RSquared is 1 - SSres/SStot. A constant actual series scores 1 when it is
// matched exactly and 0 otherwise.
func RSquared(actual, predicted []float64) float64 {
	mean := stat.Mean(actual, nil)
	var ssRes, ssTot float64
	for i := range actual {
		r := actual[i] - predicted[i]
		d := actual[i] - mean
		ssRes += r * r
		ssTot += d * d
	}
	if ssTot == 0 {
		if ssRes == 0 {
			return 1
		}
		return 0
	}
	return 1 - ssRes/ssTot
}

// DirectionalAccuracy is the percentage of steps whose actual and predicted
// moves have a strictly positive product. Fewer than two points score 0.
func DirectionalAccuracy(actual, predicted []float64) float64 {
	if len(actual) < 2 {
		return 0
	}
	hits := 0
	for t := 1; t < len(actual); t++ {
		if (actual[t]-actual[t-1])*(predicted[t]-predicted[t-1]) > 0 {
			hits++
		}
	}
	return float64(hits) / float64(len(actual)-1) * 100
}
