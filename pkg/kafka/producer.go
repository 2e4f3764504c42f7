package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// writer is the subset of *kafka.Writer used by Producer.
type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes JSON events keyed by symbol to a single topic.
type Producer struct {
	w       writer
	topic   string
	sent    *prometheus.CounterVec
	latency prometheus.Histogram
}

// NewProducer creates a synchronous producer with a hash balancer so that
// events of one symbol stay ordered.
func NewProducer(reg prometheus.Registerer, opts ...ProducerOption) (*Producer, error) {
	cfg := &ProducerConfig{
		RequiredAcks: -1,
		Compression:  "snappy",
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		BatchTimeout: 50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic is required")
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:  parseCompression(cfg.Compression),
		MaxAttempts:  cfg.MaxAttempts,
		WriteTimeout: cfg.WriteTimeout,
		BatchTimeout: cfg.BatchTimeout,
	}
	return newProducer(w, cfg.Topic, reg), nil
}

func newProducer(w writer, topic string, reg prometheus.Registerer) *Producer {
	f := promauto.With(reg)
	return &Producer{
		w:     w,
		topic: topic,
		sent: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fincast",
			Subsystem: "kafka",
			Name:      "messages_total",
			Help:      "Messages published to Kafka by result",
		}, []string{"topic", "result"}),
		latency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fincast",
			Subsystem: "kafka",
			Name:      "publish_seconds",
			Help:      "Publish latency",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// Publish marshals value as JSON unless it is already []byte.
func (p *Producer) Publish(ctx context.Context, key string, value any) error {
	var v []byte
	switch val := value.(type) {
	case []byte:
		v = val
	default:
		var err error
		if v, err = json.Marshal(value); err != nil {
			return fmt.Errorf("marshal value: %w", err)
		}
	}

	start := time.Now()
	err := p.w.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: v, Time: start})
	p.latency.Observe(time.Since(start).Seconds())
	result := "ok"
	if err != nil {
		result = "error"
	}
	p.sent.WithLabelValues(p.topic, result).Inc()
	if err != nil {
		return fmt.Errorf("kafka publish to %s: %w", p.topic, err)
	}
	return nil
}

func (p *Producer) Topic() string { return p.topic }

func (p *Producer) Close() error {
	if p.w != nil {
		return p.w.Close()
	}
	return nil
}

func parseCompression(s string) kafka.Compression {
	switch s {
	case "gzip":
		return kafka.Gzip
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return kafka.Snappy
	}
}
