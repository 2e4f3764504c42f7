package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	"FinCast/internal/service/cache"
	"FinCast/internal/service/metrics"
	applogger "FinCast/pkg/logger"
)

var (
	ErrNoSymbols      = errors.New("no symbols requested")
	ErrTooManySymbols = errors.New("too many symbols")
)

// SymbolRunner forecasts one symbol.
type SymbolRunner interface {
	Run(ctx context.Context, symbol string) (*models.SymbolResult, error)
}

// BatchForecaster runs a SymbolRunner over many symbols with at most
// maxConcurrent runs in flight. A failing symbol never affects the others.
type BatchForecaster struct {
	runner        SymbolRunner
	maxConcurrent int
	maxSymbols    int
	cache         domrepo.ResultCache
	cacheTTL      time.Duration
	l             *applogger.Logger
}

type BatchOption func(*BatchForecaster)

// WithResultCache reuses fully successful batches for ttl.
func WithResultCache(c domrepo.ResultCache, ttl time.Duration) BatchOption {
	return func(b *BatchForecaster) {
		b.cache = c
		b.cacheTTL = ttl
	}
}

func WithMaxSymbols(n int) BatchOption {
	return func(b *BatchForecaster) { b.maxSymbols = n }
}

func WithBatchLogger(l *applogger.Logger) BatchOption {
	return func(b *BatchForecaster) { b.l = l }
}

func NewBatchForecaster(runner SymbolRunner, maxConcurrent int, opts ...BatchOption) *BatchForecaster {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	b := &BatchForecaster{runner: runner, maxConcurrent: maxConcurrent, l: applogger.Nop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NormalizeSymbols trims and upper-cases symbols, dropping blanks and
// duplicates while keeping the first-seen order.
func NormalizeSymbols(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Run forecasts every symbol. The result always carries both maps; the error
// is ErrAllSymbolsFailed (with the populated result) only when nothing succeeded.
func (b *BatchForecaster) Run(ctx context.Context, symbols []string) (*models.BatchResult, error) {
	return b.run(ctx, symbols, true)
}

// Refresher returns a runner that skips the cache lookup but still stores
// successful batches.
func (b *BatchForecaster) Refresher() BatchRunner {
	return refresher{b}
}

type refresher struct{ b *BatchForecaster }

func (r refresher) Run(ctx context.Context, symbols []string) (*models.BatchResult, error) {
	return r.b.run(ctx, symbols, false)
}

func (b *BatchForecaster) run(ctx context.Context, symbols []string, lookup bool) (*models.BatchResult, error) {
	symbols = NormalizeSymbols(symbols)
	if len(symbols) == 0 {
		return nil, ErrNoSymbols
	}
	if b.maxSymbols > 0 && len(symbols) > b.maxSymbols {
		return nil, fmt.Errorf("%w: %d requested, at most %d", ErrTooManySymbols, len(symbols), b.maxSymbols)
	}

	key := cache.Key("predict", symbols)
	if lookup {
		if res, ok := b.cached(ctx, key); ok {
			return res, nil
		}
	}

	res := models.NewBatchResult(symbols)
	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		jobs = make(chan string)
	)
	record := func(sym string, r *models.SymbolResult, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			res.Errors[sym] = err.Error()
			return
		}
		res.Results[sym] = r
	}

	// Workers pull symbols in request order.
	for i := 0; i < min(b.maxConcurrent, len(symbols)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for sym := range jobs {
				r, err := b.runSymbol(ctx, sym)
				record(sym, r, err)
			}
		}()
	}
	for _, sym := range symbols {
		if ctx.Err() == nil {
			select {
			case jobs <- sym:
				continue
			case <-ctx.Done():
			}
		}
		record(sym, nil, &models.StageError{Symbol: sym, Stage: models.StageFetched, Err: ctx.Err()})
	}
	close(jobs)
	wg.Wait()
	res.FinishedAt = time.Now().UTC()

	b.l.Info("batch forecast finished",
		applogger.Strings("symbols", symbols),
		applogger.Int("succeeded", res.Succeeded()),
		applogger.Int("failed", len(res.Errors)),
		applogger.Duration("elapsed_ms", res.FinishedAt.Sub(res.StartedAt)))

	if res.Succeeded() == 0 {
		return res, models.ErrAllSymbolsFailed
	}
	if len(res.Errors) == 0 {
		b.store(ctx, key, res)
	}
	return res, nil
}

// runSymbol turns a panic in one symbol's pipeline into that symbol's error.
func (b *BatchForecaster) runSymbol(ctx context.Context, sym string) (r *models.SymbolResult, err error) {
	defer func() {
		if p := recover(); p != nil {
			b.l.Error("symbol forecast panicked",
				applogger.String("symbol", sym),
				applogger.Any("panic", p))
			r, err = nil, fmt.Errorf("%s: forecast panicked: %v", sym, p)
		}
	}()
	return b.runner.Run(ctx, sym)
}

func (b *BatchForecaster) cached(ctx context.Context, key string) (*models.BatchResult, bool) {
	if b.cache == nil {
		return nil, false
	}
	raw, ok, err := b.cache.Get(ctx, key)
	if err != nil {
		b.l.Warn("result cache read failed", applogger.String("key", key), applogger.Error(err))
		return nil, false
	}
	if !ok {
		metrics.CacheHits.WithLabelValues("miss").Inc()
		return nil, false
	}
	var res models.BatchResult
	if err := json.Unmarshal(raw, &res); err != nil {
		b.l.Warn("result cache entry unreadable", applogger.String("key", key), applogger.Error(err))
		return nil, false
	}
	metrics.CacheHits.WithLabelValues("hit").Inc()
	return &res, true
}

func (b *BatchForecaster) store(ctx context.Context, key string, res *models.BatchResult) {
	if b.cache == nil {
		return
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := b.cache.Set(ctx, key, raw, b.cacheTTL); err != nil {
		b.l.Warn("result cache write failed", applogger.String("key", key), applogger.Error(err))
	}
}
