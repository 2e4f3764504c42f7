package api

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	"FinCast/internal/usecase"
	xhttp "FinCast/pkg/http"
	xlogger "FinCast/pkg/logger"

	"github.com/labstack/echo/v4"
)

// DefaultPreviewPoints is how many aligned points /api/predict returns per symbol.
const DefaultPreviewPoints = 30

// BatchRunner runs a multi-symbol forecast.
type BatchRunner interface {
	Run(ctx context.Context, symbols []string) (*models.BatchResult, error)
}

// JobQueue submits forecasts for asynchronous execution.
type JobQueue interface {
	Submit(ctx context.Context, symbols []string) (string, error)
	Status(ctx context.Context, id string) (*usecase.JobStatus, error)
}

// Analyzer computes the technical summary of a set of symbols.
type Analyzer interface {
	Analyze(ctx context.Context, symbols []string, days int) (*models.AnalysisResult, error)
}

// PredictResponse is the payload of a completed forecast batch.
type PredictResponse struct {
	Predictions       map[string][]models.PredictionPoint `json:"predictions"`
	Metrics           map[string]models.Metrics           `json:"metrics"`
	TechnicalAnalysis map[string]models.TechnicalSummary  `json:"technical_analysis"`
	Errors            map[string]string                   `json:"errors"`
}

// NewPredictResponse keeps the last preview points of every successful symbol.
func NewPredictResponse(res *models.BatchResult, preview int) PredictResponse {
	out := PredictResponse{
		Predictions:       make(map[string][]models.PredictionPoint, len(res.Results)),
		Metrics:           make(map[string]models.Metrics, len(res.Results)),
		TechnicalAnalysis: make(map[string]models.TechnicalSummary, len(res.Results)),
		Errors:            res.Errors,
	}
	if out.Errors == nil {
		out.Errors = map[string]string{}
	}
	for sym, r := range res.Results {
		out.Predictions[sym] = r.Report.Tail(preview)
		out.Metrics[sym] = r.Report.Metrics
		out.TechnicalAnalysis[sym] = r.Technical
	}
	return out
}

type jobAccepted struct {
	JobID string `json:"job_id"`
	State string `json:"state"`
}

// ForecastEchoHandler serves the forecast, analysis and report endpoints.
type ForecastEchoHandler struct {
	logger     *xlogger.Logger
	batch      BatchRunner
	analysis   Analyzer
	jobs       JobQueue
	reports    domrepo.ReportStore
	resultsDir string
	progress   http.Handler
	limit      echo.MiddlewareFunc
	preview    int
}

type Option func(*ForecastEchoHandler)

// WithJobs enables the asynchronous job endpoints.
func WithJobs(q JobQueue) Option { return func(h *ForecastEchoHandler) { h.jobs = q } }

// WithReportStore enables /api/reports.
func WithReportStore(s domrepo.ReportStore) Option {
	return func(h *ForecastEchoHandler) { h.reports = s }
}

// WithResultsDir enables /api/results.
func WithResultsDir(dir string) Option { return func(h *ForecastEchoHandler) { h.resultsDir = dir } }

// WithProgress mounts a websocket handler on /ws/progress.
func WithProgress(p http.Handler) Option { return func(h *ForecastEchoHandler) { h.progress = p } }

// WithPredictLimiter guards the /api/predict routes.
func WithPredictLimiter(m echo.MiddlewareFunc) Option {
	return func(h *ForecastEchoHandler) { h.limit = m }
}

func WithPreviewPoints(n int) Option {
	return func(h *ForecastEchoHandler) {
		if n > 0 {
			h.preview = n
		}
	}
}

func NewForecastEchoHandler(logger *xlogger.Logger, batch BatchRunner, analysis Analyzer, opts ...Option) *ForecastEchoHandler {
	h := &ForecastEchoHandler{
		logger:   logger.Component("api"),
		batch:    batch,
		analysis: analysis,
		preview:  DefaultPreviewPoints,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

func (h *ForecastEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")

	var mw []echo.MiddlewareFunc
	if h.limit != nil {
		mw = append(mw, h.limit)
	}
	p := g.Group("/predict", mw...)
	p.POST("", h.Predict)
	p.POST("/jobs", h.SubmitJob)
	g.GET("/predict/jobs/:id", h.JobStatus)

	g.GET("/analysis", h.Analysis)
	g.GET("/reports/:symbol", h.Reports)
	g.GET("/results/:file", h.Result)

	if h.progress != nil {
		e.GET("/ws/progress", echo.WrapHandler(h.progress))
	}
}

// Predict runs the batch synchronously.
func (h *ForecastEchoHandler) Predict(c echo.Context) error {
	req := &models.PredictRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.batch.Run(c.Request().Context(), req.Symbols)
	if err != nil {
		h.logger.Warn("predict failed", xlogger.Strings("symbols", req.Symbols), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, batchError(res, err))
	}
	return xhttp.SuccessResponse(c, NewPredictResponse(res, h.preview))
}

func (h *ForecastEchoHandler) SubmitJob(c echo.Context) error {
	if h.jobs == nil {
		return xhttp.AppErrorResponse(c, xhttp.UnavailableErrorf("async jobs require redis"))
	}
	req := &models.PredictRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	id, err := h.jobs.Submit(c.Request().Context(), req.Symbols)
	if err != nil {
		h.logger.Error("submit job failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, batchError(nil, err))
	}
	return xhttp.AcceptedResponse(c, jobAccepted{JobID: id, State: usecase.JobPending})
}

// JobStatus answers 202 while the job is queued or running.
func (h *ForecastEchoHandler) JobStatus(c echo.Context) error {
	if h.jobs == nil {
		return xhttp.AppErrorResponse(c, xhttp.UnavailableErrorf("async jobs require redis"))
	}
	req := &models.JobStatusRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	st, err := h.jobs.Status(c.Request().Context(), req.ID)
	if errors.Is(err, usecase.ErrJobNotFound) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("job %s not found", req.ID))
	}
	if err != nil {
		h.logger.Error("job status failed", xlogger.String("job_id", req.ID), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}

	switch st.State {
	case usecase.JobPending, usecase.JobRunning:
		return xhttp.AcceptedResponse(c, jobAccepted{JobID: st.ID, State: st.State})
	case usecase.JobFailed:
		return xhttp.AppErrorResponse(c, batchError(st.Result, models.ErrAllSymbolsFailed))
	}
	return xhttp.SuccessResponse(c, NewPredictResponse(st.Result, h.preview))
}

func (h *ForecastEchoHandler) Analysis(c echo.Context) error {
	req := &models.AnalysisRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	res, err := h.analysis.Analyze(c.Request().Context(), strings.Split(req.Symbols, ","), req.Days)
	if errors.Is(err, models.ErrAllSymbolsFailed) {
		return xhttp.AppErrorResponse(c, noValidResults(res.Errors))
	}
	if err != nil {
		return xhttp.AppErrorResponse(c, batchError(nil, err))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=300")
	return xhttp.SuccessResponse(c, res)
}

// Reports lists the stored evaluation history of a symbol, newest first.
func (h *ForecastEchoHandler) Reports(c echo.Context) error {
	if h.reports == nil {
		return xhttp.AppErrorResponse(c, xhttp.UnavailableErrorf("report history requires a storage backend"))
	}
	req := &models.ReportsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	list, err := h.reports.ListReports(c.Request().Context(), strings.ToUpper(req.Symbol), req.Limit)
	if err != nil {
		h.logger.Error("list reports failed", xlogger.String("symbol", req.Symbol), xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	if list == nil {
		list = []*models.EvaluationReport{}
	}
	return xhttp.SuccessResponse(c, list)
}

// Result downloads a generated text report.
func (h *ForecastEchoHandler) Result(c echo.Context) error {
	if h.resultsDir == "" {
		return xhttp.AppErrorResponse(c, xhttp.UnavailableErrorf("report files are disabled"))
	}
	name := c.Param("file")
	if !validResultName(name) {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestErrorf("invalid file name %q", name))
	}

	path := filepath.Join(h.resultsDir, name)
	if fi, err := os.Stat(path); err != nil || fi.IsDir() {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("file %s not found", name))
	}
	return c.Attachment(path, name)
}

func validResultName(name string) bool {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return false
	}
	return strings.HasSuffix(name, ".txt") && !strings.ContainsAny(name, `/\`)
}

func noValidResults(errs map[string]string) *xhttp.AppError {
	e := xhttp.NewAppError("ERR_NO_VALID_RESULTS", "symbols", "no valid predictions could be made", http.StatusBadRequest)
	return e.WithParam("errors", errs)
}

// batchError maps usecase errors to API errors.
func batchError(res *models.BatchResult, err error) error {
	switch {
	case errors.Is(err, models.ErrAllSymbolsFailed):
		var errs map[string]string
		if res != nil {
			errs = res.Errors
		}
		return noValidResults(errs).WithError(err)
	case errors.Is(err, usecase.ErrNoSymbols):
		return xhttp.NewAppError("ERR_REQUIRED", "symbols", "at least one symbol is required", http.StatusBadRequest)
	case errors.Is(err, usecase.ErrTooManySymbols):
		return xhttp.NewAppError("ERR_MAX", "symbols", err.Error(), http.StatusBadRequest)
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.NewAppError("ERR_TIMEOUT", "", "request timed out", http.StatusGatewayTimeout)
	}
	return err
}
