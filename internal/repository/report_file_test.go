package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"FinCast/internal/domain/models"
)

func sampleReport(points int) *models.EvaluationReport {
	r := &models.EvaluationReport{
		Symbol: "AAPL",
		Metrics: models.Metrics{
			RMSE:                2.346,
			NormalizedRMSE:      1.5,
			MAE:                 1.25,
			R2:                  0.98766,
			DirectionalAccuracy: 55.556,
			FinalTrainingLoss:   0.0001234,
		},
		Model: []string{"LSTM(128, return_sequences=True)", "Dense(1)"},
	}
	for i := 0; i < points; i++ {
		r.Points = append(r.Points, models.PredictionPoint{
			Date:      fmt.Sprintf("2024-03-%02d", i%28+1),
			Actual:    100 + float64(i),
			Predicted: 101 + float64(i),
		})
	}
	return r
}

func TestRenderText(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderText(&buf, sampleReport(40)); err != nil {
		t.Fatalf("RenderText: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Prediction Report for AAPL\n" + strings.Repeat("=", 50),
		"- LSTM(128, return_sequences=True)\n",
		"Root Mean Square Error (RMSE): 2.35\n",
		"Normalized RMSE: 1.50%\n",
		"R-squared Score: 0.9877\n",
		"Directional Accuracy: 55.56%\n",
		"Final Training Loss: 0.000123\n",
		"Last 30 Days Prediction vs Actual Values:\n",
		"Date" + strings.Repeat(" ", 11) + "Actual Price" + strings.Repeat(" ", 3) + "Predicted Price\n",
		"2024-03-12  $" + strings.Repeat(" ", 8) + "139.00$" + strings.Repeat(" ", 11) + "140.00\n",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}
	// 30 rows only: the first 10 points are not listed
	if strings.Contains(out, "$        100.00") {
		t.Fatalf("report should list only the last 30 points")
	}
}

func TestFileEmitter(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "results")
	e := NewFileEmitter(dir)
	if err := e.Emit(context.Background(), sampleReport(3)); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "AAPL_prediction_report.txt"))
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.HasPrefix(string(b), "Prediction Report for AAPL") {
		t.Fatalf("unexpected content %q", b)
	}
	if ReportFileName("../x") != ".._x_prediction_report.txt" {
		t.Fatalf("unexpected sanitized name %q", ReportFileName("../x"))
	}
}

func TestFileEmitterConcurrentSameSymbol(t *testing.T) {
	dir := t.TempDir()
	e := NewFileEmitter(dir)
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(points int) {
			defer wg.Done()
			errs <- e.Emit(context.Background(), sampleReport(points))
		}(i + 1)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent Emit: %v", err)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "AAPL_prediction_report.txt" {
		t.Fatalf("want only the final report, have %v", entries)
	}
	b, _ := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	if !strings.HasPrefix(string(b), "Prediction Report for AAPL") {
		t.Fatalf("torn report %q", b)
	}
}

type countingEmitter struct {
	calls int
	err   error
}

func (c *countingEmitter) Emit(context.Context, *models.EvaluationReport) error {
	c.calls++
	return c.err
}

func TestMultiEmitter(t *testing.T) {
	ok := &countingEmitter{}
	bad := &countingEmitter{err: errors.New("boom")}
	err := MultiEmitter{bad, ok}.Emit(context.Background(), sampleReport(1))
	if err == nil || !strings.Contains(err.Error(), "boom") {
		t.Fatalf("expected joined error, got %v", err)
	}
	if ok.calls != 1 || bad.calls != 1 {
		t.Fatalf("every emitter should run: %d %d", ok.calls, bad.calls)
	}
}
