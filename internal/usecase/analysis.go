package usecase

import (
	"context"
	"sync"
	"time"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	"FinCast/internal/services/analytics"
	applogger "FinCast/pkg/logger"
)

// AnalysisUseCase fetches several symbols in parallel and summarizes them.
// No model is trained.
type AnalysisUseCase struct {
	fetcher     domrepo.SeriesFetcher
	defaultDays int
	timeout     time.Duration
	now         func() time.Time
	l           *applogger.Logger
}

func NewAnalysisUseCase(fetcher domrepo.SeriesFetcher, defaultDays int, l *applogger.Logger) *AnalysisUseCase {
	if l == nil {
		l = applogger.Nop()
	}
	if defaultDays <= 0 {
		defaultDays = 365
	}
	return &AnalysisUseCase{
		fetcher:     fetcher,
		defaultDays: defaultDays,
		timeout:     time.Minute,
		now:         time.Now,
		l:           l,
	}
}

// Analyze returns the technical summary of every symbol that could be fetched
// and the return correlation of those symbols.
func (uc *AnalysisUseCase) Analyze(ctx context.Context, symbols []string, days int) (*models.AnalysisResult, error) {
	symbols = NormalizeSymbols(symbols)
	if len(symbols) == 0 {
		return nil, ErrNoSymbols
	}
	if days <= 0 {
		days = uc.defaultDays
	}
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	to := uc.now().UTC()
	from := to.AddDate(0, 0, -days)

	type item struct {
		series models.PriceSeries
		err    error
	}
	items := make([]item, len(symbols))
	var wg sync.WaitGroup
	for i, sym := range symbols {
		wg.Add(1)
		go func(i int, sym string) {
			defer wg.Done()
			s, err := uc.fetcher.Fetch(ctx, sym, from, to)
			items[i] = item{series: s, err: err}
		}(i, sym)
	}
	wg.Wait()

	res := &models.AnalysisResult{
		Technical: make(map[string]models.TechnicalSummary, len(symbols)),
		Errors:    make(map[string]string),
	}
	fetched := make([]models.PriceSeries, 0, len(symbols))
	for i, it := range items {
		if it.err != nil {
			res.Errors[symbols[i]] = it.err.Error()
			uc.l.Warn("analysis fetch failed", applogger.String("symbol", symbols[i]), applogger.Error(it.err))
			continue
		}
		res.Technical[symbols[i]] = analytics.Summarize(it.series)
		fetched = append(fetched, it.series)
	}
	if len(fetched) == 0 {
		return res, models.ErrAllSymbolsFailed
	}
	res.Correlation = analytics.Correlation(fetched...)
	return res, nil
}
