package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string           `yaml:"environment" default:"development"`
	Server      ServerConfig     `yaml:"server"`
	Log         LogConfig        `yaml:"log"`
	Metrics     MetricsConfig    `yaml:"metrics"`
	Provider    ProviderConfig   `yaml:"provider"`
	Forecast    ForecastConfig   `yaml:"forecast"`
	Storage     StorageConfig    `yaml:"storage"`
	ClickHouse  ClickHouseConfig `yaml:"clickhouse"`
	SQLite      SQLiteConfig     `yaml:"sqlite"`
	Kafka       KafkaConfig      `yaml:"kafka"`
	Redis       RedisConfig      `yaml:"redis"`
	Cache       CacheConfig      `yaml:"cache"`
	Queue       QueueConfig      `yaml:"queue"`
	Reports     ReportsConfig    `yaml:"reports"`
	Schedule    ScheduleConfig   `yaml:"schedule"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"15m"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"30s"`
	AllowOrigins    []string      `yaml:"allow_origins"`
	// Token bucket applied per client on the predict endpoints.
	RateLimit struct {
		Capacity int     `yaml:"capacity" default:"5"`
		Refill   float64 `yaml:"refill_per_sec" default:"0.1"`
	} `yaml:"rate_limit"`
}

type LogConfig struct {
	Level  string `yaml:"level" default:"info"`
	Format string `yaml:"format" default:"console"`
	Output string `yaml:"output" default:"stdout"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"/metrics"`
}

// ProviderConfig configures the market data source.
type ProviderConfig struct {
	BaseURL     string        `yaml:"base_url" default:"https://query1.finance.yahoo.com"`
	Timeout     time.Duration `yaml:"timeout" default:"15s"`
	RatePerSec  int           `yaml:"rate_per_sec" default:"2"`
	MaxRetries  int           `yaml:"max_retries" default:"3"`
	MaxElapsed  time.Duration `yaml:"max_elapsed" default:"30s"`
	HistoryDays int           `yaml:"history_days" default:"365"`
	MinHistory  int           `yaml:"min_history" default:"60"`
	UserAgent   string        `yaml:"user_agent" default:"Mozilla/5.0 (compatible; FinCast/1.0)"`
}

// ForecastConfig holds the window, split, model and training settings.
type ForecastConfig struct {
	Window        int     `yaml:"window" default:"60"`
	TrainRatio    float64 `yaml:"train_ratio" default:"0.8"`
	ScalerFit     string  `yaml:"scaler_fit" default:"train"` // train or full
	BatchSize     int     `yaml:"batch_size" default:"32"`
	MaxEpochs     int     `yaml:"max_epochs" default:"100"`
	Patience      int     `yaml:"patience" default:"10"`
	ReportEvery   int     `yaml:"report_every" default:"10"`
	LSTM1Units    int     `yaml:"lstm1_units" default:"128"`
	LSTM2Units    int     `yaml:"lstm2_units" default:"64"`
	DenseUnits    int     `yaml:"dense_units" default:"32"`
	Dropout       float64 `yaml:"dropout" default:"0.2"`
	LearningRate  float64 `yaml:"learning_rate" default:"0.001"`
	HuberDelta    float64 `yaml:"huber_delta" default:"1.0"`
	Seed          int64   `yaml:"seed" default:"42"`
	Workers       int     `yaml:"workers" default:"1"`
	MaxConcurrent int     `yaml:"max_concurrent" default:"1"`
	PreviewPoints int     `yaml:"preview_points" default:"30"`
	MaxSymbols    int     `yaml:"max_symbols" default:"5"`
}

type StorageConfig struct {
	Backend string `yaml:"backend" default:"none"` // none, sqlite, clickhouse
}

type ClickHouseConfig struct {
	Host         string        `yaml:"host" default:"localhost"`
	Port         int           `yaml:"port" default:"9000"`
	Database     string        `yaml:"database" default:"fincast"`
	User         string        `yaml:"user" default:"default"`
	Password     string        `yaml:"password"`
	UseHTTP      bool          `yaml:"use_http"`
	DialTimeout  time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout  time.Duration `yaml:"read_timeout" default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"30s"`
}

type SQLiteConfig struct {
	Path string `yaml:"path" default:"data/fincast.db"`
}

type KafkaConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic" default:"fincast.reports"`
	RequiredAcks int           `yaml:"required_acks" default:"1"`
	Compression  string        `yaml:"compression" default:"snappy"`
	MaxAttempts  int           `yaml:"max_attempts" default:"3"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Addr     string `yaml:"addr" default:"localhost:6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type CacheConfig struct {
	TTL time.Duration `yaml:"ttl" default:"6h"`
}

type QueueConfig struct {
	Name         string        `yaml:"name" default:"forecast"`
	Workers      int           `yaml:"workers" default:"1"`
	MaxRetries   int           `yaml:"max_retries" default:"2"`
	RetryBackoff time.Duration `yaml:"retry_backoff" default:"30s"`
	ResultTTL    time.Duration `yaml:"result_ttl" default:"24h"`
}

type ReportsConfig struct {
	Dir string `yaml:"dir" default:"results"`
}

type ScheduleConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Cron      string   `yaml:"cron" default:"0 30 22 * * 1-5"`
	Watchlist []string `yaml:"watchlist"`
}

// Default returns a config populated only from struct defaults.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file on top of the defaults.
func Load(path string) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads an optional .env file, the YAML config (defaults only when
// path is empty) and then applies FINCAST_* environment overrides.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var (
		c   *Config
		err error
	)
	if path == "" {
		c, err = Default()
	} else {
		c, err = Load(path)
	}
	if err != nil {
		return nil, err
	}

	c.applyEnv()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("FINCAST_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("FINCAST_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("FINCAST_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("FINCAST_STORAGE"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("FINCAST_REPORTS_DIR"); v != "" {
		c.Reports.Dir = v
	}
	if v := os.Getenv("FINCAST_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Forecast.MaxConcurrent = n
		}
	}
	if v := os.Getenv("FINCAST_WATCHLIST"); v != "" {
		c.Schedule.Watchlist = splitList(v)
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = splitList(v)
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}

	f := c.Forecast
	if f.Window < 1 {
		return fmt.Errorf("forecast.window must be positive, got %d", f.Window)
	}
	if f.TrainRatio <= 0 || f.TrainRatio >= 1 {
		return fmt.Errorf("forecast.train_ratio must be in (0,1), got %v", f.TrainRatio)
	}
	if f.ScalerFit != "train" && f.ScalerFit != "full" {
		return fmt.Errorf("forecast.scaler_fit must be 'train' or 'full', got '%s'", f.ScalerFit)
	}
	if f.BatchSize < 1 || f.MaxEpochs < 1 || f.Patience < 1 {
		return fmt.Errorf("forecast.batch_size, max_epochs and patience must be positive")
	}
	if f.Dropout < 0 || f.Dropout >= 1 {
		return fmt.Errorf("forecast.dropout must be in [0,1), got %v", f.Dropout)
	}
	if f.LSTM1Units < 1 || f.LSTM2Units < 1 || f.DenseUnits < 1 {
		return fmt.Errorf("forecast layer sizes must be positive")
	}
	if f.MaxConcurrent < 1 || f.Workers < 1 {
		return fmt.Errorf("forecast.max_concurrent and forecast.workers must be >= 1")
	}
	if c.Provider.MinHistory < 1 {
		return fmt.Errorf("provider.min_history must be positive")
	}

	switch c.Storage.Backend {
	case "none", "sqlite", "clickhouse":
	default:
		return fmt.Errorf("storage.backend must be 'none', 'sqlite' or 'clickhouse', got '%s'", c.Storage.Backend)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Schedule.Enabled && len(c.Schedule.Watchlist) == 0 {
		return fmt.Errorf("schedule.watchlist cannot be empty when the schedule is enabled")
	}
	if c.Reports.Dir == "" {
		return fmt.Errorf("reports.dir is required")
	}
	return nil
}
