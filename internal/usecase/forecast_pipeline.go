package usecase

import (
	"context"
	"time"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	"FinCast/internal/forecast"
	"FinCast/internal/services/analytics"
	"FinCast/pkg/config"
	applogger "FinCast/pkg/logger"
)

const (
	ScalerFitTrain = "train"
	ScalerFitFull  = "full"
)

// ModelFactory builds a fresh untrained model for one symbol run.
type ModelFactory func(cfg forecast.ModelConfig) forecast.Trainable

// ObserverFactory returns the training observer of a symbol; nil is allowed.
type ObserverFactory func(symbol string) forecast.Observer

// PipelineConfig parameterizes one symbol run.
type PipelineConfig struct {
	Window      int
	TrainRatio  float64
	ScalerFit   string
	HistoryDays int
	Model       forecast.ModelConfig
	Trainer     forecast.TrainerConfig
}

func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Window:      60,
		TrainRatio:  0.8,
		ScalerFit:   ScalerFitTrain,
		HistoryDays: 365,
		Model:       forecast.DefaultModelConfig(),
		Trainer:     forecast.DefaultTrainerConfig(),
	}
}

// PipelineConfigFrom maps the forecast and provider sections of the config.
func PipelineConfigFrom(f config.ForecastConfig, p config.ProviderConfig) PipelineConfig {
	return PipelineConfig{
		Window:      f.Window,
		TrainRatio:  f.TrainRatio,
		ScalerFit:   f.ScalerFit,
		HistoryDays: p.HistoryDays,
		Model: forecast.ModelConfig{
			LSTM1:        f.LSTM1Units,
			LSTM2:        f.LSTM2Units,
			Dense:        f.DenseUnits,
			Dropout:      f.Dropout,
			LearningRate: f.LearningRate,
			HuberDelta:   f.HuberDelta,
			Seed:         f.Seed,
			Workers:      f.Workers,
		},
		Trainer: forecast.TrainerConfig{
			BatchSize:   f.BatchSize,
			MaxEpochs:   f.MaxEpochs,
			Patience:    f.Patience,
			ReportEvery: f.ReportEvery,
		},
	}
}

// ForecastPipeline runs Fetch -> Scale -> Window -> Train -> Evaluate -> Report
// for a single symbol. Nothing is shared between two runs except the
// collaborators, which are safe for concurrent use.
type ForecastPipeline struct {
	cfg       PipelineConfig
	fetcher   domrepo.SeriesFetcher
	emitter   domrepo.ReportEmitter
	prices    domrepo.PriceStore
	metrics   domrepo.Metrics
	newModel  ModelFactory
	observers ObserverFactory
	now       func() time.Time
	l         *applogger.Logger
}

type PipelineOption func(*ForecastPipeline)

func WithEmitter(e domrepo.ReportEmitter) PipelineOption {
	return func(p *ForecastPipeline) { p.emitter = e }
}

// WithPriceStore archives every fetched series.
func WithPriceStore(s domrepo.PriceStore) PipelineOption {
	return func(p *ForecastPipeline) { p.prices = s }
}

func WithMetrics(m domrepo.Metrics) PipelineOption {
	return func(p *ForecastPipeline) {
		if m != nil {
			p.metrics = m
		}
	}
}

func WithModelFactory(f ModelFactory) PipelineOption {
	return func(p *ForecastPipeline) { p.newModel = f }
}

func WithObservers(f ObserverFactory) PipelineOption {
	return func(p *ForecastPipeline) { p.observers = f }
}

func WithClock(now func() time.Time) PipelineOption {
	return func(p *ForecastPipeline) { p.now = now }
}

func WithPipelineLogger(l *applogger.Logger) PipelineOption {
	return func(p *ForecastPipeline) { p.l = l }
}

func NewForecastPipeline(cfg PipelineConfig, fetcher domrepo.SeriesFetcher, opts ...PipelineOption) *ForecastPipeline {
	p := &ForecastPipeline{
		cfg:      cfg,
		fetcher:  fetcher,
		metrics:  domrepo.NopMetrics{},
		newModel: newNetwork,
		now:      time.Now,
		l:        applogger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func newNetwork(cfg forecast.ModelConfig) forecast.Trainable {
	return forecast.NewNetwork(cfg)
}

// Run executes every stage for symbol. A failure is returned as a
// *models.StageError naming the state that was not reached.
func (p *ForecastPipeline) Run(ctx context.Context, symbol string) (*models.SymbolResult, error) {
	log := p.l.With(applogger.String("symbol", symbol))
	fail := func(stage models.Stage, err error) (*models.SymbolResult, error) {
		p.metrics.RecordStageError(string(stage))
		log.Warn("forecast stage failed",
			applogger.String("stage", string(stage)),
			applogger.Error(err))
		return nil, &models.StageError{Symbol: symbol, Stage: stage, Err: err}
	}

	// Fetched
	start := time.Now()
	to := p.now().UTC()
	from := to.AddDate(0, 0, -p.cfg.HistoryDays)
	series, err := p.fetcher.Fetch(ctx, symbol, from, to)
	p.metrics.RecordLatency("fetch", time.Since(start).Seconds())
	if err != nil {
		p.metrics.RecordFetch(symbol, "error")
		return fail(models.StageFetched, err)
	}
	p.metrics.RecordFetch(symbol, "ok")
	if p.prices != nil {
		if err := p.prices.SaveSeries(ctx, series); err != nil {
			log.Warn("archive series failed", applogger.Error(err))
		}
	}

	// Scaled
	closes := series.Closes()
	trainLen := forecast.TrainLength(len(closes), p.cfg.TrainRatio)
	fitOn := closes
	if p.cfg.ScalerFit != ScalerFitFull {
		fitOn = closes[:trainLen]
	}
	params, err := forecast.FitScaler(fitOn)
	if err != nil {
		return fail(models.StageScaled, err)
	}
	scaled := params.Transform(closes)

	// Windowed
	ds, err := forecast.BuildWindows(scaled, trainLen, p.cfg.Window)
	if err != nil {
		return fail(models.StageWindowed, err)
	}

	// Trained
	var trainerOpts []forecast.TrainerOption
	if p.observers != nil {
		if o := p.observers(symbol); o != nil {
			trainerOpts = append(trainerOpts, forecast.WithObserver(o))
		}
	}
	model := p.newModel(p.cfg.Model)
	start = time.Now()
	tm, err := forecast.NewTrainer(p.cfg.Trainer, trainerOpts...).Train(ctx, model, ds)
	if err != nil {
		return fail(models.StageTrained, err)
	}
	elapsed := time.Since(start)
	p.metrics.RecordTraining(symbol, tm.History.Epochs(), elapsed.Seconds())
	log.Info("model trained",
		applogger.Int("epochs", tm.History.Epochs()),
		applogger.Int("best_epoch", tm.History.BestEpoch),
		applogger.Float64("best_loss", tm.History.BestLoss),
		applogger.Bool("stopped_early", tm.History.StoppedEarly),
		applogger.Duration("elapsed_ms", elapsed))

	// Evaluated
	report, err := forecast.Evaluate(tm, ds.Test, params, series)
	if err != nil {
		return fail(models.StageEvaluated, err)
	}
	report.Training.TrainSamples = len(ds.Train)
	if d, ok := model.(interface{ Describe() []string }); ok {
		report.Model = d.Describe()
	}
	if len(ds.Test) < 2 {
		log.Warn("directional accuracy needs two test points, reporting 0",
			applogger.Int("test_samples", len(ds.Test)))
	}
	p.metrics.RecordEvaluation(symbol, report.Metrics)

	result := &models.SymbolResult{
		Symbol:    symbol,
		Report:    report,
		Technical: analytics.Summarize(series),
	}

	// Reported: the report exists already, emit failures are not fatal
	if p.emitter != nil {
		if err := p.emitter.Emit(ctx, report); err != nil {
			p.metrics.RecordStageError(string(models.StageReported))
			log.Error("emit report failed", applogger.Error(err))
		}
	}
	log.Info("forecast complete",
		applogger.Float64("rmse", report.Metrics.RMSE),
		applogger.Float64("normalized_rmse", report.Metrics.NormalizedRMSE),
		applogger.Float64("directional_accuracy", report.Metrics.DirectionalAccuracy))
	return result, nil
}
