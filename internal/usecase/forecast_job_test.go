package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"FinCast/internal/domain/models"
	"FinCast/internal/service/cache"
	"FinCast/pkg/queue"
)

type memPublisher struct {
	msgs []queue.Message
	err  error
}

func (p *memPublisher) Enqueue(ctx context.Context, msgType string, payload interface{}) (string, error) {
	return "generated", p.EnqueueWithID(ctx, "generated", msgType, payload)
}

func (p *memPublisher) EnqueueWithID(_ context.Context, id, msgType string, payload interface{}) error {
	if p.err != nil {
		return p.err
	}
	raw, _ := json.Marshal(payload)
	p.msgs = append(p.msgs, queue.Message{ID: id, Type: msgType, Payload: raw})
	return nil
}

type fixedBatch struct {
	res *models.BatchResult
	err error
}

func (f fixedBatch) Run(context.Context, []string) (*models.BatchResult, error) {
	return f.res, f.err
}

func TestJobLifecycle(t *testing.T) {
	ctx := context.Background()
	pub := &memPublisher{}
	store := cache.NewMemoryCache(0, time.Hour)
	jobs := NewJobService(pub, store, time.Hour)

	id, err := jobs.Submit(ctx, []string{"aapl"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	st, err := jobs.Status(ctx, id)
	if err != nil || st.State != JobPending || st.Symbols[0] != "AAPL" {
		t.Fatalf("pending status: %+v %v", st, err)
	}
	if len(pub.msgs) != 1 || pub.msgs[0].ID != id || pub.msgs[0].Type != ForecastMessageType {
		t.Fatalf("unexpected queue messages %+v", pub.msgs)
	}

	done := models.NewBatchResult([]string{"AAPL"})
	done.Results["AAPL"] = &models.SymbolResult{Symbol: "AAPL"}
	job := NewForecastJob(fixedBatch{res: done}, jobs)
	if err := job.Handle(ctx, pub.msgs[0]); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	st, _ = jobs.Status(ctx, id)
	if st.State != JobDone || st.Result == nil || st.Result.Results["AAPL"] == nil {
		t.Fatalf("done status: %+v", st)
	}
}

func TestJobAllFailedIsStored(t *testing.T) {
	ctx := context.Background()
	pub := &memPublisher{}
	jobs := NewJobService(pub, cache.NewMemoryCache(0, 0), time.Hour)
	id, _ := jobs.Submit(ctx, []string{"X"})

	failed := models.NewBatchResult([]string{"X"})
	failed.Errors["X"] = "no data"
	job := NewForecastJob(fixedBatch{res: failed, err: models.ErrAllSymbolsFailed}, jobs)
	if err := job.Handle(ctx, pub.msgs[0]); err != nil {
		t.Fatalf("all-failed batch is a final outcome, got %v", err)
	}
	st, _ := jobs.Status(ctx, id)
	if st.State != JobFailed || st.Result.Errors["X"] != "no data" {
		t.Fatalf("failed status: %+v", st)
	}
}

func TestJobStatusUnknown(t *testing.T) {
	jobs := NewJobService(&memPublisher{}, cache.NewMemoryCache(0, 0), time.Hour)
	if _, err := jobs.Status(context.Background(), "nope"); !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
	pub := &memPublisher{err: errors.New("redis down")}
	if _, err := NewJobService(pub, cache.NewMemoryCache(0, 0), time.Hour).Submit(context.Background(), []string{"A"}); err == nil {
		t.Fatalf("expected enqueue error")
	}
}

func TestJobStatusSharedAcrossInstances(t *testing.T) {
	ctx := context.Background()
	shared := cache.NewMemoryCache(0, 0)
	pub := &memPublisher{}
	api := NewJobService(pub, shared, time.Hour)
	worker := NewJobService(nil, shared, time.Hour)

	id, err := api.Submit(ctx, []string{"AAPL"})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if st, err := api.Status(ctx, id); err != nil || st.State != JobPending {
		t.Fatalf("want pending before the worker runs, got %+v %v", st, err)
	}

	done := models.NewBatchResult([]string{"AAPL"})
	done.Results["AAPL"] = &models.SymbolResult{Symbol: "AAPL"}
	if err := NewForecastJob(fixedBatch{res: done}, worker).Handle(ctx, pub.msgs[0]); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	st, err := api.Status(ctx, id)
	if err != nil || st.State != JobDone {
		t.Fatalf("api instance reports %+v after the worker finished (%v)", st, err)
	}
}
