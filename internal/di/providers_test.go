package di

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/redis/go-redis/v9"

	"FinCast/internal/repository"
	"FinCast/internal/service/cache"
	"FinCast/pkg/config"
)

func defaultConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Default()
	if err != nil {
		t.Fatalf("default config: %v", err)
	}
	cfg.Reports.Dir = t.TempDir()
	cfg.Log.Level = "error"
	return cfg
}

func TestOptionalBackendsDisabledByDefault(t *testing.T) {
	cfg := defaultConfig(t)
	l, err := ProvideLogger(cfg)
	if err != nil {
		t.Fatalf("logger: %v", err)
	}

	store, cleanup, err := ProvideStore(cfg, l)
	if err != nil || store != nil {
		t.Fatalf("storage none: store=%v err=%v", store, err)
	}
	cleanup()

	rc, cleanupRedis := ProvideRedis(cfg)
	defer cleanupRedis()
	if rc != nil {
		t.Fatalf("redis should be disabled")
	}
	if _, ok := ProvideResultCache(cfg, rc).(*cache.MemoryCache); !ok {
		t.Fatalf("want the memory cache without redis")
	}
	if _, ok := JobStore(rc).(*cache.MemoryCache); !ok {
		t.Fatalf("want the memory job store without redis")
	}
	if q := ProvideQueue(cfg, rc, l); q != nil {
		t.Fatalf("queue requires redis")
	}

	p, _, err := ProvideKafkaProducer(cfg, ProvideRegistry())
	if err != nil || p != nil {
		t.Fatalf("kafka disabled: %v %v", p, err)
	}
	em, ok := ProvideEmitter(cfg, nil, nil).(repository.MultiEmitter)
	if !ok || len(em) != 1 {
		t.Fatalf("want the file emitter only, got %#v", em)
	}
}

func TestSQLiteBackend(t *testing.T) {
	cfg := defaultConfig(t)
	cfg.Storage.Backend = "sqlite"
	cfg.SQLite.Path = t.TempDir() + "/fincast.db"
	l, _ := ProvideLogger(cfg)

	store, cleanup, err := ProvideStore(cfg, l)
	if err != nil {
		t.Fatalf("sqlite store: %v", err)
	}
	defer cleanup()
	if store == nil {
		t.Fatalf("store is nil")
	}
	em := ProvideEmitter(cfg, store, nil).(repository.MultiEmitter)
	if len(em) != 2 {
		t.Fatalf("want file and store emitters, got %d", len(em))
	}
}

func TestSchedulerRequiresWatchlist(t *testing.T) {
	cfg := defaultConfig(t)
	svc, cleanup, err := InitializeServices(cfg)
	if err != nil {
		t.Fatalf("services: %v", err)
	}
	defer cleanup()

	if s, err := ProvideScheduler(cfg, svc.Batch, svc.Logger); err != nil || s != nil {
		t.Fatalf("disabled schedule: %v %v", s, err)
	}
	cfg.Schedule.Enabled = true
	cfg.Schedule.Watchlist = []string{"AAPL"}
	if s, err := ProvideScheduler(cfg, svc.Batch, svc.Logger); err != nil || s == nil {
		t.Fatalf("enabled schedule: %v %v", s, err)
	}
	cfg.Schedule.Cron = "not a cron"
	if _, err := ProvideScheduler(cfg, svc.Batch, svc.Logger); err == nil {
		t.Fatalf("invalid cron accepted")
	}
}

func TestInitializeAppRoutes(t *testing.T) {
	cfg := defaultConfig(t)
	app, cleanup, err := InitializeApp(cfg)
	if err != nil {
		t.Fatalf("app: %v", err)
	}
	defer cleanup()
	if app == nil {
		t.Fatalf("app is nil")
	}

	l, _ := ProvideLogger(cfg)
	reg := ProvideRegistry()
	svc, cleanupSvc, err := InitializeServices(cfg)
	if err != nil {
		t.Fatalf("services: %v", err)
	}
	defer cleanupSvc()
	h := ProvideHandler(cfg, l, svc.Batch, svc.Analysis, nil, nil, ProvideHub(cfg, l))
	srv := ProvideHTTPServer(cfg, l, reg, h, nil, nil)

	for path, want := range map[string]int{
		"/healthz":         http.StatusOK,
		"/metrics":         http.StatusOK,
		"/api/reports/AAA": http.StatusServiceUnavailable,
	} {
		rec := httptest.NewRecorder()
		srv.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != want {
			t.Fatalf("%s: want %d, got %d", path, want, rec.Code)
		}
	}
}

func TestJobStoreBypassesMemoryLayer(t *testing.T) {
	rc := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer rc.Close()
	if _, ok := JobStore(rc).(*cache.RedisCache); !ok {
		t.Fatalf("job status must be read straight from redis, got %T", JobStore(rc))
	}
	cfg := defaultConfig(t)
	if _, ok := ProvideResultCache(cfg, rc).(*cache.Layered); !ok {
		t.Fatalf("batch results keep the memory layer")
	}
}
