package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"FinCast/pkg/logger"
)

// RedisQueue is a list-backed work queue with a delayed-retry sorted set and
// a dead-letter list.
type RedisQueue struct {
	logger    *logger.Logger
	config    Config
	client    *redis.Client
	jobs      map[string]Job
	wg        sync.WaitGroup
	mu        sync.RWMutex
	running   bool
	ctx       context.Context
	cancel    context.CancelFunc
	keyPrefix string
	pollEvery time.Duration
}

var _ Publisher = (*RedisQueue)(nil)

// RedisQueueOption configures RedisQueue.
type RedisQueueOption func(*RedisQueue)

// WithKeyPrefix sets custom key prefix.
func WithKeyPrefix(prefix string) RedisQueueOption {
	return func(r *RedisQueue) {
		r.keyPrefix = prefix
	}
}

func NewRedisQueue(lgr *logger.Logger, cfg Config, client *redis.Client, opts ...RedisQueueOption) *RedisQueue {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 10 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	rq := &RedisQueue{
		logger:    lgr,
		config:    cfg,
		client:    client,
		jobs:      make(map[string]Job),
		ctx:       ctx,
		cancel:    cancel,
		keyPrefix: "fincast:queue",
		pollEvery: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(rq)
	}
	return rq
}

// RegisterJob routes messages of job.Type() to job.
func (r *RedisQueue) RegisterJob(job Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.jobs[job.Type()]; exists {
		r.logger.Warn("job already registered", logger.String("job", job.Name()))
		return
	}
	r.jobs[job.Type()] = job
	r.logger.Info("job registered", logger.String("job", job.Name()), logger.String("type", job.Type()))
}

// Start pings Redis and launches the workers and the retry processor.
func (r *RedisQueue) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return fmt.Errorf("queue already running")
	}

	ctx, cancel := context.WithTimeout(r.ctx, 5*time.Second)
	defer cancel()
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	r.running = true

	for i := 0; i < r.config.Workers; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	if r.config.Workers > 0 {
		r.wg.Add(1)
		go r.retryProcessor()
	}
	r.logger.Info("redis queue started",
		logger.Int("workers", r.config.Workers),
		logger.String("addr", r.client.Options().Addr))
	return nil
}

// Stop cancels the workers and waits for them until ctx expires.
func (r *RedisQueue) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.cancel()
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for queue workers: %w", ctx.Err())
	case <-done:
		r.logger.Info("redis queue stopped")
		return nil
	}
}

// Enqueue pushes a message under a fresh id and returns the id.
func (r *RedisQueue) Enqueue(ctx context.Context, msgType string, payload interface{}) (string, error) {
	id := uuid.NewString()
	return id, r.EnqueueWithID(ctx, id, msgType, payload)
}

// EnqueueWithID pushes a message whose id the caller has already handed out.
func (r *RedisQueue) EnqueueWithID(ctx context.Context, id, msgType string, payload interface{}) error {
	r.mu.RLock()
	running := r.running
	r.mu.RUnlock()
	if !running {
		return fmt.Errorf("queue not running")
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	msg := Message{
		ID:        id,
		Type:      msgType,
		Payload:   raw,
		Timestamp: time.Now().UTC(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := r.client.LPush(ctx, r.queueKey(), data).Err(); err != nil {
		return fmt.Errorf("lpush: %w", err)
	}
	return nil
}

func (r *RedisQueue) worker(id int) {
	defer r.wg.Done()
	for r.ctx.Err() == nil {
		res, err := r.client.BRPop(r.ctx, time.Second, r.queueKey()).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
				continue
			}
			r.logger.Error("brpop error", logger.Int("worker_id", id), logger.Error(err))
			time.Sleep(time.Second)
			continue
		}
		if len(res) < 2 {
			continue
		}
		var msg Message
		if err := json.Unmarshal([]byte(res[1]), &msg); err != nil {
			r.logger.Error("unmarshal message", logger.Error(err))
			continue
		}
		r.process(msg)
	}
}

func (r *RedisQueue) process(msg Message) {
	r.mu.RLock()
	job, ok := r.jobs[msg.Type]
	r.mu.RUnlock()
	if !ok {
		r.logger.Error("no job found", logger.String("type", msg.Type), logger.String("id", msg.ID))
		return
	}

	start := time.Now()
	err := job.Handle(r.ctx, msg)
	if err == nil {
		r.logger.Info("message processed",
			logger.String("id", msg.ID),
			logger.String("job", job.Name()),
			logger.Duration("elapsed_ms", time.Since(start)))
		return
	}
	if errors.Is(err, context.Canceled) {
		r.logger.Warn("message cancelled", logger.String("id", msg.ID))
		return
	}

	r.logger.Error("message processing error",
		logger.String("id", msg.ID),
		logger.String("job", job.Name()),
		logger.Int("attempt", msg.Attempts+1),
		logger.Error(err))

	key, score := r.deadLetterKey(), 0.0
	if msg.Attempts < r.config.RetryLimit {
		msg.Attempts++
		key, score = r.retryKey(), float64(time.Now().Add(r.config.RetryDelay).Unix())
	}
	data, err := json.Marshal(msg)
	if err != nil {
		r.logger.Error("marshal failed message", logger.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if key == r.retryKey() {
		err = r.client.ZAdd(ctx, key, redis.Z{Score: score, Member: data}).Err()
	} else {
		err = r.client.LPush(ctx, key, data).Err()
	}
	if err != nil {
		r.logger.Error("requeue failed message", logger.String("key", key), logger.Error(err))
	}
}

func (r *RedisQueue) retryProcessor() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.pollEvery)
	defer ticker.Stop()
	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.promoteRetries()
		}
	}
}

// promoteRetries moves due retries back onto the work list.
func (r *RedisQueue) promoteRetries() {
	due, err := r.client.ZRangeByScore(r.ctx, r.retryKey(), &redis.ZRangeBy{
		Min: "0",
		Max: strconv.FormatInt(time.Now().Unix(), 10),
	}).Result()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			r.logger.Error("fetch retry messages", logger.Error(err))
		}
		return
	}
	for _, member := range due {
		pipe := r.client.TxPipeline()
		pipe.ZRem(r.ctx, r.retryKey(), member)
		pipe.LPush(r.ctx, r.queueKey(), member)
		if _, err := pipe.Exec(r.ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			r.logger.Error("move retry to queue", logger.Error(err))
		}
	}
}

func (r *RedisQueue) queueKey() string      { return r.keyPrefix + ":messages" }
func (r *RedisQueue) retryKey() string      { return r.keyPrefix + ":retry" }
func (r *RedisQueue) deadLetterKey() string { return r.keyPrefix + ":dlq" }
