package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"FinCast/internal/domain/models"
	applogger "FinCast/pkg/logger"
)

// RetrainScheduler forecasts the watchlist on a cron schedule (with seconds).
// Runs go through the batch forecaster, so fresh results land in its cache
// and reports reach every emitter.
type RetrainScheduler struct {
	cron      *cron.Cron
	runner    BatchRunner
	watchlist []string
	timeout   time.Duration
	l         *applogger.Logger
}

func NewRetrainScheduler(runner BatchRunner, watchlist []string, l *applogger.Logger) *RetrainScheduler {
	if l == nil {
		l = applogger.Nop()
	}
	return &RetrainScheduler{
		cron:      cron.New(cron.WithSeconds()),
		runner:    runner,
		watchlist: NormalizeSymbols(watchlist),
		timeout:   2 * time.Hour,
		l:         l.Component("scheduler"),
	}
}

// Register adds the retrain task under spec.
func (s *RetrainScheduler) Register(spec string) error {
	if len(s.watchlist) == 0 {
		return fmt.Errorf("register retrain task: empty watchlist")
	}
	if _, err := s.cron.AddFunc(spec, s.RunNow); err != nil {
		return fmt.Errorf("register retrain task: %w", err)
	}
	return nil
}

func (s *RetrainScheduler) Start() error {
	s.cron.Start()
	s.l.Info("scheduler started", applogger.Strings("watchlist", s.watchlist))
	return nil
}

// Stop waits for a running task until ctx is done.
func (s *RetrainScheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		return fmt.Errorf("scheduler stop: %w", ctx.Err())
	}
	s.l.Info("scheduler stopped")
	return nil
}

// RunNow forecasts the watchlist once.
func (s *RetrainScheduler) RunNow() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	res, err := s.runner.Run(ctx, s.watchlist)
	if err != nil && !errors.Is(err, models.ErrAllSymbolsFailed) {
		s.l.Error("scheduled retrain failed", applogger.Error(err))
		return
	}
	if res == nil {
		return
	}
	for sym, msg := range res.Errors {
		s.l.Warn("scheduled retrain symbol failed", applogger.String("symbol", sym), applogger.String("reason", msg))
	}
	s.l.Info("scheduled retrain done",
		applogger.Int("succeeded", res.Succeeded()),
		applogger.Int("failed", len(res.Errors)))
}
