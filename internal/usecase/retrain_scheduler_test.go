package usecase

import (
	"context"
	"testing"

	"FinCast/internal/domain/models"
)

type recordingBatch struct {
	calls [][]string
}

func (r *recordingBatch) Run(_ context.Context, symbols []string) (*models.BatchResult, error) {
	r.calls = append(r.calls, symbols)
	return models.NewBatchResult(symbols), models.ErrAllSymbolsFailed
}

func TestRetrainScheduler(t *testing.T) {
	r := &recordingBatch{}
	s := NewRetrainScheduler(r, []string{"aapl", "AAPL", "msft"}, nil)
	if err := s.Register("not a cron"); err == nil {
		t.Fatalf("expected invalid spec error")
	}
	if err := s.Register("0 30 22 * * 1-5"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	s.RunNow()
	if len(r.calls) != 1 || len(r.calls[0]) != 2 || r.calls[0][0] != "AAPL" {
		t.Fatalf("unexpected runs %v", r.calls)
	}

	empty := NewRetrainScheduler(r, nil, nil)
	if err := empty.Register("@daily"); err == nil {
		t.Fatalf("empty watchlist should not register")
	}
}
