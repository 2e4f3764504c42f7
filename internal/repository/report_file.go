package repository

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"FinCast/internal/domain/models"
)

// ReportTailPoints is how many trailing predictions a text report lists.
const ReportTailPoints = 30

// FileEmitter writes one text report per symbol into dir,
// replacing the previous report of that symbol.
type FileEmitter struct {
	dir string
}

func NewFileEmitter(dir string) *FileEmitter {
	return &FileEmitter{dir: dir}
}

// ReportFileName is the file the report of symbol is written to.
func ReportFileName(symbol string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-', r == '^':
			return r
		}
		return '_'
	}, symbol)
	return clean + "_prediction_report.txt"
}

func (e *FileEmitter) Emit(_ context.Context, r *models.EvaluationReport) error {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return fmt.Errorf("create reports dir: %w", err)
	}
	path := filepath.Join(e.dir, ReportFileName(r.Symbol))
	f, err := os.CreateTemp(e.dir, ReportFileName(r.Symbol)+".*")
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	_ = f.Chmod(0o644)
	if err := RenderText(f, r); err != nil {
		f.Close()
		os.Remove(f.Name())
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return fmt.Errorf("close report: %w", err)
	}
	if err := os.Rename(f.Name(), path); err != nil {
		os.Remove(f.Name())
		return fmt.Errorf("replace report: %w", err)
	}
	return nil
}

// RenderText writes the human readable report: model layout, metrics and the
// last predictions against actual prices.
func RenderText(w io.Writer, r *models.EvaluationReport) error {
	var b strings.Builder
	m := r.Metrics

	fmt.Fprintf(&b, "Prediction Report for %s\n", r.Symbol)
	b.WriteString(strings.Repeat("=", 50) + "\n\n")

	b.WriteString("Model Architecture:\n")
	b.WriteString(strings.Repeat("-", 20) + "\n")
	for _, layer := range r.Model {
		fmt.Fprintf(&b, "- %s\n", layer)
	}
	b.WriteString("\n")

	b.WriteString("Model Performance Metrics:\n")
	b.WriteString(strings.Repeat("-", 25) + "\n")
	fmt.Fprintf(&b, "Root Mean Square Error (RMSE): %.2f\n", m.RMSE)
	fmt.Fprintf(&b, "Normalized RMSE: %.2f%%\n", m.NormalizedRMSE)
	fmt.Fprintf(&b, "Mean Absolute Error (MAE): %.2f\n", m.MAE)
	fmt.Fprintf(&b, "R-squared Score: %.4f\n", m.R2)
	fmt.Fprintf(&b, "Directional Accuracy: %.2f%%\n", m.DirectionalAccuracy)
	fmt.Fprintf(&b, "Final Training Loss: %.6f\n\n", m.FinalTrainingLoss)

	tail := r.Tail(ReportTailPoints)
	fmt.Fprintf(&b, "Last %d Days Prediction vs Actual Values:\n", len(tail))
	b.WriteString(strings.Repeat("-", 40) + "\n")
	fmt.Fprintf(&b, "%-12s%15s%18s\n", "Date", "Actual Price", "Predicted Price")
	b.WriteString(strings.Repeat("-", 45) + "\n")
	for _, p := range tail {
		fmt.Fprintf(&b, "%-12s$%14.2f$%17.2f\n", p.Date, p.Actual, p.Predicted)
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
