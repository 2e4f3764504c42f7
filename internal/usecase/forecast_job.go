package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	"FinCast/internal/service/cache"
	"FinCast/internal/service/metrics"
	"FinCast/pkg/queue"
)

// ForecastMessageType routes batch forecast messages on the queue.
const ForecastMessageType = "forecast.batch"

const (
	JobPending = "pending"
	JobRunning = "running"
	JobDone    = "done"
	JobFailed  = "failed"
)

var ErrJobNotFound = errors.New("job not found")

// JobStatus is stored in the result cache under cache.JobKey(id).
type JobStatus struct {
	ID        string              `json:"id"`
	State     string              `json:"state"`
	Symbols   []string            `json:"symbols"`
	Result    *models.BatchResult `json:"result,omitempty"`
	Error     string              `json:"error,omitempty"`
	UpdatedAt time.Time           `json:"updated_at"`
}

type forecastPayload struct {
	Symbols []string `json:"symbols"`
}

// JobService submits batches to the queue and tracks their status.
type JobService struct {
	pub   queue.Publisher
	store domrepo.ResultCache
	ttl   time.Duration
	now   func() time.Time
}

// NewJobService stores status in store, which every instance reading the
// same queue must share directly. A local layer in front of it serves stale
// states written by other instances.
func NewJobService(pub queue.Publisher, store domrepo.ResultCache, ttl time.Duration) *JobService {
	return &JobService{pub: pub, store: store, ttl: ttl, now: time.Now}
}

// Submit records a pending job and enqueues it.
func (s *JobService) Submit(ctx context.Context, symbols []string) (string, error) {
	symbols = NormalizeSymbols(symbols)
	if len(symbols) == 0 {
		return "", ErrNoSymbols
	}
	id := uuid.NewString()
	st := JobStatus{ID: id, State: JobPending, Symbols: symbols}
	if err := s.save(ctx, &st); err != nil {
		return "", err
	}
	if err := s.pub.EnqueueWithID(ctx, id, ForecastMessageType, forecastPayload{Symbols: symbols}); err != nil {
		return "", fmt.Errorf("enqueue forecast job: %w", err)
	}
	return id, nil
}

func (s *JobService) Status(ctx context.Context, id string) (*JobStatus, error) {
	raw, ok, err := s.store.Get(ctx, cache.JobKey(id))
	if err != nil {
		return nil, fmt.Errorf("read job %s: %w", id, err)
	}
	if !ok {
		return nil, ErrJobNotFound
	}
	var st JobStatus
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", id, err)
	}
	return &st, nil
}

func (s *JobService) save(ctx context.Context, st *JobStatus) error {
	st.UpdatedAt = s.now().UTC()
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal job status: %w", err)
	}
	if err := s.store.Set(ctx, cache.JobKey(st.ID), raw, s.ttl); err != nil {
		return fmt.Errorf("store job status: %w", err)
	}
	return nil
}

// BatchRunner is the part of BatchForecaster a job needs.
type BatchRunner interface {
	Run(ctx context.Context, symbols []string) (*models.BatchResult, error)
}

// ForecastJob consumes queued batches.
type ForecastJob struct {
	runner BatchRunner
	jobs   *JobService
}

func NewForecastJob(runner BatchRunner, jobs *JobService) *ForecastJob {
	return &ForecastJob{runner: runner, jobs: jobs}
}

func (j *ForecastJob) Name() string { return "forecast-batch" }
func (j *ForecastJob) Type() string { return ForecastMessageType }

// Handle runs the batch. Only infrastructure failures are returned so that
// the queue retries them; an all-failed batch is a final, stored outcome.
func (j *ForecastJob) Handle(ctx context.Context, msg queue.Message) error {
	p, err := queue.ParsePayload[forecastPayload](msg)
	if err != nil {
		return err
	}
	st := JobStatus{ID: msg.ID, State: JobRunning, Symbols: p.Symbols}
	if err := j.jobs.save(ctx, &st); err != nil {
		return err
	}

	res, err := j.runner.Run(ctx, p.Symbols)
	st.Result = res
	switch {
	case err == nil:
		st.State = JobDone
	case errors.Is(err, context.Canceled):
		return err
	default:
		st.State = JobFailed
		st.Error = err.Error()
	}
	metrics.JobsFinished.WithLabelValues(st.State).Inc()
	return j.jobs.save(ctx, &st)
}
