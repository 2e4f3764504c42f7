package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"FinCast/internal/domain/models"
	"FinCast/internal/usecase"
	xhttp "FinCast/pkg/http"
	xlogger "FinCast/pkg/logger"

	"github.com/labstack/echo/v4"
)

type fakeBatch struct {
	res *models.BatchResult
	err error
	got []string
}

func (f *fakeBatch) Run(_ context.Context, symbols []string) (*models.BatchResult, error) {
	f.got = symbols
	return f.res, f.err
}

type fakeAnalyzer struct {
	res  *models.AnalysisResult
	err  error
	days int
	syms []string
}

func (f *fakeAnalyzer) Analyze(_ context.Context, symbols []string, days int) (*models.AnalysisResult, error) {
	f.syms, f.days = symbols, days
	return f.res, f.err
}

type fakeJobs struct {
	status map[string]*usecase.JobStatus
}

func (f *fakeJobs) Submit(_ context.Context, symbols []string) (string, error) {
	id := "7f1c2a4e-0a6b-4c1e-9d3b-2f7c1e9a0b11"
	f.status[id] = &usecase.JobStatus{ID: id, State: usecase.JobPending, Symbols: symbols}
	return id, nil
}

func (f *fakeJobs) Status(_ context.Context, id string) (*usecase.JobStatus, error) {
	st, ok := f.status[id]
	if !ok {
		return nil, usecase.ErrJobNotFound
	}
	return st, nil
}

type fakeReports struct {
	list   []*models.EvaluationReport
	symbol string
	limit  int
}

func (f *fakeReports) SaveReport(context.Context, *models.EvaluationReport) error { return nil }

func (f *fakeReports) ListReports(_ context.Context, symbol string, limit int) ([]*models.EvaluationReport, error) {
	f.symbol, f.limit = symbol, limit
	return f.list, nil
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func successBatch(n int) *models.BatchResult {
	pts := make([]models.PredictionPoint, n)
	for i := range pts {
		pts[i] = models.PredictionPoint{Date: fmt.Sprintf("2024-01-%02d", i%28+1), Actual: float64(i), Predicted: float64(i) + 0.5}
	}
	res := models.NewBatchResult([]string{"AAA", "BBB"})
	res.Results["BBB"] = &models.SymbolResult{
		Symbol:    "BBB",
		Report:    &models.EvaluationReport{Symbol: "BBB", Points: pts, Metrics: models.Metrics{RMSE: 1.5}},
		Technical: models.TechnicalSummary{PriceTrend: models.TrendUpward},
	}
	res.Errors["AAA"] = "fetch AAA: no data found"
	return res
}

func serve(t *testing.T, h *ForecastEchoHandler, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	e := echo.New()
	h.RegisterRoutes(e)

	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode %s: %v", rec.Body.String(), err)
		}
	}
	return rec, env
}

func TestPredictPartialFailure(t *testing.T) {
	batch := &fakeBatch{res: successBatch(45)}
	h := NewForecastEchoHandler(xlogger.Nop(), batch, &fakeAnalyzer{})

	rec, env := serve(t, h, http.MethodPost, "/api/predict", `{"symbols":["aaa","BBB"]}`)
	if rec.Code != http.StatusOK || env.Status != http.StatusOK {
		t.Fatalf("status: %d %s", rec.Code, rec.Body.String())
	}
	var got PredictResponse
	if err := json.Unmarshal(env.Data, &got); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if len(got.Predictions["BBB"]) != DefaultPreviewPoints {
		t.Fatalf("want %d points, got %d", DefaultPreviewPoints, len(got.Predictions["BBB"]))
	}
	if got.Predictions["BBB"][DefaultPreviewPoints-1].Actual != 44 {
		t.Fatalf("last point should be the newest: %+v", got.Predictions["BBB"][DefaultPreviewPoints-1])
	}
	if got.Metrics["BBB"].RMSE != 1.5 || got.TechnicalAnalysis["BBB"].PriceTrend != models.TrendUpward {
		t.Fatalf("unexpected payload: %+v", got)
	}
	if got.Errors["AAA"] == "" {
		t.Fatalf("AAA error missing: %+v", got.Errors)
	}
	if len(batch.got) != 2 || batch.got[0] != "aaa" {
		t.Fatalf("symbols not passed through: %v", batch.got)
	}
}

func TestPredictAllFailed(t *testing.T) {
	res := models.NewBatchResult([]string{"AAA"})
	res.Errors["AAA"] = "fetch AAA: no data found"
	h := NewForecastEchoHandler(xlogger.Nop(), &fakeBatch{res: res, err: models.ErrAllSymbolsFailed}, &fakeAnalyzer{})

	rec, env := serve(t, h, http.MethodPost, "/api/predict", `{"symbols":["AAA"]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", rec.Code)
	}
	var errs []struct {
		Code   string                 `json:"code"`
		Params map[string]interface{} `json:"params"`
	}
	if err := json.Unmarshal(env.Data, &errs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(errs) != 1 || errs[0].Code != "ERR_NO_VALID_RESULTS" {
		t.Fatalf("unexpected errors: %s", env.Data)
	}
	m, ok := errs[0].Params["errors"].(map[string]interface{})
	if !ok || m["AAA"] == nil {
		t.Fatalf("error map missing from params: %s", env.Data)
	}
}

func TestPredictValidation(t *testing.T) {
	h := NewForecastEchoHandler(xlogger.Nop(), &fakeBatch{}, &fakeAnalyzer{})

	for _, body := range []string{`{}`, `{"symbols":[]}`, `{"symbols":["A","B","C","D","E","F"]}`, `{"symbols":["WAYTOOLONGSYMBOL"]}`} {
		rec, env := serve(t, h, http.MethodPost, "/api/predict", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: want 400, got %d", body, rec.Code)
		}
		if !strings.Contains(string(env.Data), "symbols") {
			t.Fatalf("%s: field name missing: %s", body, env.Data)
		}
	}
}

func TestJobLifecycle(t *testing.T) {
	jobs := &fakeJobs{status: map[string]*usecase.JobStatus{}}
	h := NewForecastEchoHandler(xlogger.Nop(), &fakeBatch{}, &fakeAnalyzer{}, WithJobs(jobs))

	rec, env := serve(t, h, http.MethodPost, "/api/predict/jobs", `{"symbols":["BBB"]}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("submit: %d %s", rec.Code, rec.Body.String())
	}
	var acc jobAccepted
	if err := json.Unmarshal(env.Data, &acc); err != nil || acc.JobID == "" {
		t.Fatalf("job id missing: %s", env.Data)
	}

	rec, _ = serve(t, h, http.MethodGet, "/api/predict/jobs/"+acc.JobID, "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("pending: want 202, got %d", rec.Code)
	}

	jobs.status[acc.JobID].State = usecase.JobDone
	jobs.status[acc.JobID].Result = successBatch(3)
	rec, env = serve(t, h, http.MethodGet, "/api/predict/jobs/"+acc.JobID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("done: want 200, got %d", rec.Code)
	}
	var got PredictResponse
	if err := json.Unmarshal(env.Data, &got); err != nil || len(got.Predictions["BBB"]) != 3 {
		t.Fatalf("unexpected result: %s", env.Data)
	}

	rec, _ = serve(t, h, http.MethodGet, "/api/predict/jobs/0b7e2a55-6c1d-4f0e-8a8b-1d2c3e4f5a6b", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown job: want 404, got %d", rec.Code)
	}
	rec, _ = serve(t, h, http.MethodGet, "/api/predict/jobs/not-a-uuid", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: want 400, got %d", rec.Code)
	}
}

func TestJobsUnavailable(t *testing.T) {
	h := NewForecastEchoHandler(xlogger.Nop(), &fakeBatch{}, &fakeAnalyzer{})
	rec, _ := serve(t, h, http.MethodPost, "/api/predict/jobs", `{"symbols":["BBB"]}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("want 503, got %d", rec.Code)
	}
}

func TestAnalysis(t *testing.T) {
	an := &fakeAnalyzer{res: &models.AnalysisResult{
		Technical: map[string]models.TechnicalSummary{"AAA": {MovingAverages: models.TrendBullish}},
		Errors:    map[string]string{},
	}}
	h := NewForecastEchoHandler(xlogger.Nop(), &fakeBatch{}, an)

	rec, _ := serve(t, h, http.MethodGet, "/api/analysis?symbols=AAA,BBB&days=120", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d %s", rec.Code, rec.Body.String())
	}
	if an.days != 120 || len(an.syms) != 2 || an.syms[1] != "BBB" {
		t.Fatalf("request not bound: days=%d syms=%v", an.days, an.syms)
	}

	rec, _ = serve(t, h, http.MethodGet, "/api/analysis?symbols=AAA", "")
	if rec.Code != http.StatusOK || an.days != 365 {
		t.Fatalf("default days not applied: %d %d", rec.Code, an.days)
	}

	rec, _ = serve(t, h, http.MethodGet, "/api/analysis", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing symbols: want 400, got %d", rec.Code)
	}

	an.res, an.err = &models.AnalysisResult{Errors: map[string]string{"AAA": "no data"}}, models.ErrAllSymbolsFailed
	rec, _ = serve(t, h, http.MethodGet, "/api/analysis?symbols=AAA", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("all failed: want 400, got %d", rec.Code)
	}
}

func TestReports(t *testing.T) {
	h := NewForecastEchoHandler(xlogger.Nop(), &fakeBatch{}, &fakeAnalyzer{})
	rec, _ := serve(t, h, http.MethodGet, "/api/reports/AAA", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("no store: want 503, got %d", rec.Code)
	}

	store := &fakeReports{list: []*models.EvaluationReport{{Symbol: "AAA", CreatedAt: time.Unix(0, 0)}}}
	h = NewForecastEchoHandler(xlogger.Nop(), &fakeBatch{}, &fakeAnalyzer{}, WithReportStore(store))
	rec, env := serve(t, h, http.MethodGet, "/api/reports/aaa?limit=3", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d %s", rec.Code, rec.Body.String())
	}
	if store.symbol != "AAA" || store.limit != 3 {
		t.Fatalf("query not bound: %s %d", store.symbol, store.limit)
	}
	var list []models.EvaluationReport
	if err := json.Unmarshal(env.Data, &list); err != nil || len(list) != 1 {
		t.Fatalf("unexpected list: %s", env.Data)
	}
}

func TestResultDownload(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "AAA_prediction_report.txt"), []byte("report"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	h := NewForecastEchoHandler(xlogger.Nop(), &fakeBatch{}, &fakeAnalyzer{}, WithResultsDir(dir))

	rec, _ := serve(t, h, http.MethodGet, "/api/results/AAA_prediction_report.txt", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "report" {
		t.Fatalf("download: %d %q", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Header().Get(echo.HeaderContentDisposition), "attachment") {
		t.Fatalf("not served as attachment: %v", rec.Header())
	}

	rec, _ = serve(t, h, http.MethodGet, "/api/results/missing.txt", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing: want 404, got %d", rec.Code)
	}
	rec, _ = serve(t, h, http.MethodGet, "/api/results/..%2Fsecret.txt", "")
	if rec.Code != http.StatusBadRequest && rec.Code != http.StatusNotFound {
		t.Fatalf("traversal: got %d", rec.Code)
	}
}

func TestValidResultName(t *testing.T) {
	for name, want := range map[string]bool{
		"AAA_prediction_report.txt": true,
		"../etc/passwd":             false,
		".hidden.txt":               false,
		"report.csv":                false,
		"":                          false,
		`a\b.txt`:                   false,
	} {
		if got := validResultName(name); got != want {
			t.Fatalf("%q: want %v, got %v", name, want, got)
		}
	}
}

func TestBatchErrorMapping(t *testing.T) {
	var appErr *xhttp.AppError
	err := batchError(nil, fmt.Errorf("%w: 9 requested", usecase.ErrTooManySymbols))
	if !errors.As(err, &appErr) || appErr.Status != http.StatusBadRequest {
		t.Fatalf("too many symbols: want 400 AppError, got %v", err)
	}
	err = batchError(nil, context.DeadlineExceeded)
	if !errors.As(err, &appErr) || appErr.Status != http.StatusGatewayTimeout {
		t.Fatalf("timeout: want 504 AppError, got %v", err)
	}
	other := errors.New("boom")
	if batchError(nil, other) != other {
		t.Fatalf("unknown errors must pass through")
	}
}
