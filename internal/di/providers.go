package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	domrepo "FinCast/internal/domain/repository"
	"FinCast/internal/handler/api"
	"FinCast/internal/repository"
	"FinCast/internal/service/cache"
	svcmetrics "FinCast/internal/service/metrics"
	"FinCast/internal/service/progress"
	"FinCast/internal/service/ratelimit"
	"FinCast/internal/service/yahoo"
	"FinCast/internal/usecase"
	pkgch "FinCast/pkg/clickhouse"
	"FinCast/pkg/config"
	xhttp "FinCast/pkg/http"
	pkgkafka "FinCast/pkg/kafka"
	applogger "FinCast/pkg/logger"
	"FinCast/pkg/metrics"
	"FinCast/pkg/queue"
	"FinCast/pkg/server"
)

const memoryCacheEntries = 256

// Store is a backend that keeps both price history and reports.
type Store interface {
	domrepo.PriceStore
	domrepo.ReportStore
}

// Services are the use cases shared by the server and the CLI.
type Services struct {
	Logger   *applogger.Logger
	Batch    *usecase.BatchForecaster
	Analysis *usecase.AnalysisUseCase
}

func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideRegistry creates the registry behind /metrics.
func ProvideRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	svcmetrics.Register(reg)
	return reg
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) domrepo.Metrics {
	return metrics.NewWithRegistry(reg)
}

// ProvideFetcher creates the Yahoo chart client.
func ProvideFetcher(cfg *config.Config, l *applogger.Logger) domrepo.SeriesFetcher {
	p := cfg.Provider
	hc := xhttp.NewClient(
		xhttp.WithTimeout(p.Timeout),
		xhttp.WithRateLimit(p.RatePerSec),
		xhttp.WithRetry(p.MaxRetries, p.MaxElapsed),
		xhttp.WithUserAgent(p.UserAgent),
	)
	return yahoo.New(
		yahoo.WithBaseURL(p.BaseURL),
		yahoo.WithMinHistory(p.MinHistory),
		yahoo.WithHTTPClient(hc),
		yahoo.WithLogger(l.Component("yahoo")),
	)
}

// ProvideStore opens the configured storage backend; nil for "none".
func ProvideStore(cfg *config.Config, l *applogger.Logger) (Store, func(), error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	switch cfg.Storage.Backend {
	case "sqlite":
		s, err := repository.OpenSQLiteStore(ctx, cfg.SQLite.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite store: %w", err)
		}
		s.SetLogger(l.Component("sqlite"))
		return s, func() { _ = s.Close() }, nil

	case "clickhouse":
		ch := cfg.ClickHouse
		client, err := pkgch.NewClient(ctx,
			pkgch.WithAddress(ch.Host, ch.Port),
			pkgch.WithDatabase(ch.Database),
			pkgch.WithCredentials(ch.User, ch.Password),
			pkgch.WithTimeouts(ch.DialTimeout, ch.ReadTimeout, ch.WriteTimeout),
			pkgch.WithHTTP(ch.UseHTTP),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("clickhouse client: %w", err)
		}
		s := repository.NewCHStore(client)
		s.SetLogger(l.Component("clickhouse"))
		if err := s.Init(ctx); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
		}
		return s, func() { _ = client.Close() }, nil
	}
	return nil, func() {}, nil
}

// ProvideRedis returns nil when redis is disabled.
func ProvideRedis(cfg *config.Config) (*redis.Client, func()) {
	if !cfg.Redis.Enabled {
		return nil, func() {}
	}
	rc := cache.NewRedisClient(cache.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return rc, func() { _ = rc.Close() }
}

// ProvideResultCache is memory-only, or memory in front of redis.
func ProvideResultCache(cfg *config.Config, rc *redis.Client) domrepo.ResultCache {
	mem := cache.NewMemoryCache(memoryCacheEntries, cfg.Cache.TTL)
	if rc == nil {
		return mem
	}
	return cache.NewLayered(mem, cache.NewRedisCache(rc, ""))
}

// ProvideKafkaProducer returns nil when kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config, reg *prometheus.Registry) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, func() {}, nil
	}
	k := cfg.Kafka
	p, err := pkgkafka.NewProducer(reg,
		pkgkafka.WithBrokers(k.Brokers),
		pkgkafka.WithTopic(k.Topic),
		pkgkafka.WithCompression(k.Compression),
		pkgkafka.WithRequiredAcks(k.RequiredAcks),
		pkgkafka.WithMaxAttempts(k.MaxAttempts),
		pkgkafka.WithWriteTimeout(k.WriteTimeout),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	return p, func() { _ = p.Close() }, nil
}

// ProvideEmitter writes text reports and fans out to the store and kafka
// when they are configured.
func ProvideEmitter(cfg *config.Config, store Store, producer *pkgkafka.Producer) domrepo.ReportEmitter {
	m := repository.MultiEmitter{repository.NewFileEmitter(cfg.Reports.Dir)}
	if store != nil {
		m = append(m, repository.NewStoreEmitter(store))
	}
	if producer != nil {
		m = append(m, repository.NewKafkaEmitter(producer))
	}
	return m
}

// ProvideHub admits websocket upgrades from the same origins as CORS.
func ProvideHub(cfg *config.Config, l *applogger.Logger) *progress.Hub {
	origins := cfg.Server.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return progress.NewHub(l, progress.WithAllowedOrigins(origins))
}

func ProvidePipeline(
	cfg *config.Config,
	fetcher domrepo.SeriesFetcher,
	emitter domrepo.ReportEmitter,
	store Store,
	rec domrepo.Metrics,
	hub *progress.Hub,
	l *applogger.Logger,
) *usecase.ForecastPipeline {
	opts := []usecase.PipelineOption{
		usecase.WithEmitter(emitter),
		usecase.WithMetrics(rec),
		usecase.WithObservers(hub.Observer),
		usecase.WithPipelineLogger(l.Component("pipeline")),
	}
	if store != nil {
		opts = append(opts, usecase.WithPriceStore(store))
	}
	return usecase.NewForecastPipeline(usecase.PipelineConfigFrom(cfg.Forecast, cfg.Provider), fetcher, opts...)
}

func ProvideBatch(
	cfg *config.Config,
	pipeline *usecase.ForecastPipeline,
	results domrepo.ResultCache,
	l *applogger.Logger,
) *usecase.BatchForecaster {
	return usecase.NewBatchForecaster(pipeline, cfg.Forecast.MaxConcurrent,
		usecase.WithResultCache(results, cfg.Cache.TTL),
		usecase.WithMaxSymbols(cfg.Forecast.MaxSymbols),
		usecase.WithBatchLogger(l.Component("batch")),
	)
}

func ProvideAnalysis(cfg *config.Config, fetcher domrepo.SeriesFetcher, l *applogger.Logger) *usecase.AnalysisUseCase {
	return usecase.NewAnalysisUseCase(fetcher, cfg.Provider.HistoryDays, l.Component("analysis"))
}

func ProvideServices(l *applogger.Logger, batch *usecase.BatchForecaster, analysis *usecase.AnalysisUseCase) *Services {
	return &Services{Logger: l, Batch: batch, Analysis: analysis}
}

// ProvideQueue returns nil when redis is disabled.
func ProvideQueue(cfg *config.Config, rc *redis.Client, l *applogger.Logger) *queue.RedisQueue {
	if rc == nil {
		return nil
	}
	q := cfg.Queue
	return queue.NewRedisQueue(l.Component("queue"), queue.Config{
		Workers:    q.Workers,
		RetryLimit: q.MaxRetries,
		RetryDelay: q.RetryBackoff,
	}, rc, queue.WithKeyPrefix("fincast:"+q.Name))
}

// JobStore keeps job status in redis with no memory layer, so every instance
// sees the worker's latest write. Memory only without redis.
func JobStore(rc *redis.Client) domrepo.ResultCache {
	if rc == nil {
		return cache.NewMemoryCache(memoryCacheEntries, 0)
	}
	return cache.NewRedisCache(rc, "fincast:jobs")
}

// ProvideJobs registers the forecast job on q; nil without a queue.
func ProvideJobs(
	cfg *config.Config,
	q *queue.RedisQueue,
	rc *redis.Client,
	batch *usecase.BatchForecaster,
) *usecase.JobService {
	if q == nil {
		return nil
	}
	jobs := usecase.NewJobService(q, JobStore(rc), cfg.Queue.ResultTTL)
	q.RegisterJob(usecase.NewForecastJob(batch, jobs))
	return jobs
}

// ProvideScheduler returns nil when the schedule is disabled.
func ProvideScheduler(cfg *config.Config, batch *usecase.BatchForecaster, l *applogger.Logger) (*usecase.RetrainScheduler, error) {
	if !cfg.Schedule.Enabled {
		return nil, nil
	}
	s := usecase.NewRetrainScheduler(batch.Refresher(), cfg.Schedule.Watchlist, l.Component("scheduler"))
	if err := s.Register(cfg.Schedule.Cron); err != nil {
		return nil, err
	}
	return s, nil
}

func ProvideHandler(
	cfg *config.Config,
	l *applogger.Logger,
	batch *usecase.BatchForecaster,
	analysis *usecase.AnalysisUseCase,
	jobs *usecase.JobService,
	store Store,
	hub *progress.Hub,
) *api.ForecastEchoHandler {
	rl := cfg.Server.RateLimit
	opts := []api.Option{
		api.WithResultsDir(cfg.Reports.Dir),
		api.WithProgress(hub),
		api.WithPredictLimiter(ratelimit.New(rl.Capacity, rl.Refill).Middleware()),
		api.WithPreviewPoints(cfg.Forecast.PreviewPoints),
	}
	if jobs != nil {
		opts = append(opts, api.WithJobs(jobs))
	}
	if store != nil {
		opts = append(opts, api.WithReportStore(store))
	}
	return api.NewForecastEchoHandler(l, batch, analysis, opts...)
}

func ProvideHTTPServer(
	cfg *config.Config,
	l *applogger.Logger,
	reg *prometheus.Registry,
	h *api.ForecastEchoHandler,
	store Store,
	rc *redis.Client,
) *xhttp.Server {
	s := cfg.Server
	opts := []xhttp.ServerOption{
		xhttp.WithHost(s.Host),
		xhttp.WithPort(s.Port),
		xhttp.WithTimeouts(s.ReadTimeout, s.WriteTimeout, s.ShutdownTimeout),
		xhttp.WithAllowOrigins(s.AllowOrigins),
		xhttp.WithLogger(l),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(cfg.Metrics.Path, reg))
	} else {
		opts = append(opts, xhttp.WithMetrics("", reg))
	}
	if store != nil {
		opts = append(opts, xhttp.WithHealthCheck("store", store.Health))
	}
	if rc != nil {
		opts = append(opts, xhttp.WithHealthCheck("redis", func(ctx context.Context) error {
			return rc.Ping(ctx).Err()
		}))
	}
	return xhttp.NewServer([]xhttp.Handler{h}, opts...)
}

// ProvideApp creates the application server.
func ProvideApp(
	l *applogger.Logger,
	srv *xhttp.Server,
	q *queue.RedisQueue,
	sched *usecase.RetrainScheduler,
) *server.App {
	var opts []server.Option
	if q != nil {
		opts = append(opts, server.WithService("queue", q))
	}
	if sched != nil {
		opts = append(opts, server.WithService("scheduler", sched))
	}
	return server.New(l, srv, opts...)
}
