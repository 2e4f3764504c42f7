package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"FinCast/internal/domain/models"
	applogger "FinCast/pkg/logger"
)

const barChunkSize = 2000

// dialect captures the statements that differ between backends.
type dialect struct {
	name       string
	schema     []string
	insertBars string // INSERT ... INTO daily_bars, VALUES are appended
	selectBars string
	dayArg     func(time.Time) any
}

// sqlStore implements PriceStore and ReportStore over database/sql.
type sqlStore struct {
	db     *sql.DB
	d      dialect
	closer func() error
	l      *applogger.Logger
}

// SetLogger injects a structured logger.
func (s *sqlStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *sqlStore) Init(ctx context.Context) error {
	for _, stmt := range s.d.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s init schema: %w", s.d.name, err)
		}
	}
	return nil
}

func (s *sqlStore) SaveSeries(ctx context.Context, series models.PriceSeries) error {
	for start := 0; start < len(series.Bars); start += barChunkSize {
		end := start + barChunkSize
		if end > len(series.Bars) {
			end = len(series.Bars)
		}
		values := make([]string, 0, end-start)
		args := make([]any, 0, (end-start)*7)
		for _, b := range series.Bars[start:end] {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?)")
			args = append(args, series.Symbol, s.d.dayArg(b.Date), b.Open, b.High, b.Low, b.Close, b.Volume)
		}
		q := s.d.insertBars + " (symbol, day, open, high, low, close, volume) VALUES " + strings.Join(values, ",")
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.logError("save series", series.Symbol, err)
			return fmt.Errorf("save series %s: %w", series.Symbol, err)
		}
	}
	return nil
}

func (s *sqlStore) LoadSeries(ctx context.Context, symbol string, from, to time.Time) (models.PriceSeries, error) {
	out := models.PriceSeries{Symbol: symbol}
	rows, err := s.db.QueryContext(ctx, s.d.selectBars, symbol, s.d.dayArg(from), s.d.dayArg(to))
	if err != nil {
		s.logError("load series", symbol, err)
		return out, fmt.Errorf("load series %s: %w", symbol, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			day any
			b   models.Bar
		)
		if err := rows.Scan(&day, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return out, fmt.Errorf("scan bar: %w", err)
		}
		if b.Date, err = decodeDay(day); err != nil {
			return out, err
		}
		out.Bars = append(out.Bars, b)
	}
	return out, rows.Err()
}

func (s *sqlStore) SaveReport(ctx context.Context, r *models.EvaluationReport) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	m := r.Metrics
	const q = `INSERT INTO forecast_reports
		(symbol, created_at, rmse, normalized_rmse, mae, r2, directional_accuracy, final_loss, epochs, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, q,
		r.Symbol,
		r.CreatedAt.UnixMilli(),
		m.RMSE,
		m.NormalizedRMSE,
		m.MAE,
		m.R2,
		m.DirectionalAccuracy,
		m.FinalTrainingLoss,
		int64(r.Training.Epochs),
		string(payload),
	)
	if err != nil {
		s.logError("save report", r.Symbol, err)
		return fmt.Errorf("save report %s: %w", r.Symbol, err)
	}
	return nil
}

// ListReports returns the newest reports first.
func (s *sqlStore) ListReports(ctx context.Context, symbol string, limit int) ([]*models.EvaluationReport, error) {
	if limit <= 0 {
		limit = 10
	}
	const q = `SELECT payload FROM forecast_reports WHERE symbol = ? ORDER BY created_at DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, q, symbol, limit)
	if err != nil {
		s.logError("list reports", symbol, err)
		return nil, fmt.Errorf("list reports %s: %w", symbol, err)
	}
	defer rows.Close()

	out := make([]*models.EvaluationReport, 0, limit)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		var r models.EvaluationReport
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			return nil, fmt.Errorf("decode report: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *sqlStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlStore) Close() error {
	if s.closer != nil {
		return s.closer()
	}
	return nil
}

func (s *sqlStore) logError(op, symbol string, err error) {
	if s.l == nil {
		return
	}
	s.l.Error(s.d.name+" "+op+" error",
		applogger.String("symbol", symbol),
		applogger.Error(err),
	)
}

// decodeDay accepts the representations the drivers hand back for a day column.
func decodeDay(v any) (time.Time, error) {
	switch d := v.(type) {
	case time.Time:
		return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC), nil
	case string:
		return time.Parse(time.DateOnly, d)
	case []byte:
		return time.Parse(time.DateOnly, string(d))
	default:
		return time.Time{}, fmt.Errorf("unexpected day value %T", v)
	}
}
