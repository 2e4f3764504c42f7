package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"FinCast/internal/domain/models"
	drepo "FinCast/internal/domain/repository"
	xhttp "FinCast/pkg/http"
	"FinCast/pkg/logger"
)

// Client implements SeriesFetcher over the Yahoo Finance chart API.
type Client struct {
	baseURL    string
	minHistory int
	http       *xhttp.Client
	log        *logger.Logger
	symbolMap  map[string]string
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithMinHistory sets the fewest rows accepted for a symbol.
func WithMinHistory(n int) Option {
	return func(c *Client) { c.minHistory = n }
}

func WithHTTPClient(hc *xhttp.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

func New(opts ...Option) *Client {
	c := &Client{
		baseURL:    "https://query1.finance.yahoo.com",
		minHistory: 60,
		log:        logger.Nop(),
		symbolMap: map[string]string{
			"SPX":   "^GSPC",
			"SP500": "^GSPC",
			"NDX":   "^NDX",
			"DJI":   "^DJI",
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = xhttp.NewClient(xhttp.WithTimeout(15*time.Second), xhttp.WithUserAgent("Mozilla/5.0"))
	}
	return c
}

var _ drepo.SeriesFetcher = (*Client)(nil)

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*float64 `json:"volume"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

func (c *Client) ticker(symbol string) string {
	if mapped, ok := c.symbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// Fetch downloads daily bars in [from, to], fills null prices forward then
// backward and enforces the minimum history length.
func (c *Client) Fetch(ctx context.Context, symbol string, from, to time.Time) (models.PriceSeries, error) {
	opts := &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    fmt.Sprintf("%s/v8/finance/chart/%s", c.baseURL, url.PathEscape(c.ticker(symbol))),
		QueryParams: map[string][]string{
			"interval":             {"1d"},
			"period1":              {strconv.FormatInt(from.Unix(), 10)},
			"period2":              {strconv.FormatInt(to.Unix(), 10)},
			"events":               {"history"},
			"includeAdjustedClose": {"true"},
		},
	}

	var chart chartResponse
	if err := c.http.SendAndParse(ctx, opts, &chart); err != nil {
		var se *xhttp.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return models.PriceSeries{}, &models.FetchError{Symbol: symbol, Reason: models.ErrNoData, Detail: "symbol not found"}
		}
		return models.PriceSeries{}, fmt.Errorf("yahoo chart %s: %w", symbol, err)
	}
	if e := chart.Chart.Error; e != nil {
		if e.Code == "Not Found" {
			return models.PriceSeries{}, &models.FetchError{Symbol: symbol, Reason: models.ErrNoData, Detail: e.Description}
		}
		return models.PriceSeries{}, fmt.Errorf("yahoo api error %s: %s", e.Code, e.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
		return models.PriceSeries{}, &models.FetchError{Symbol: symbol, Reason: models.ErrNoData}
	}

	series, err := toSeries(symbol, chart.Chart.Result[0])
	if err != nil {
		return models.PriceSeries{}, err
	}
	if series.Len() < c.minHistory {
		return models.PriceSeries{}, &models.FetchError{
			Symbol: symbol,
			Reason: models.ErrInsufficientHistory,
			Detail: fmt.Sprintf("%d rows, need %d", series.Len(), c.minHistory),
		}
	}

	c.log.Debug("fetched series",
		logger.String("symbol", symbol),
		logger.Int("rows", series.Len()),
	)
	return series, nil
}

func toSeries(symbol string, r chartResult) (models.PriceSeries, error) {
	n := len(r.Timestamp)
	var open, high, low, closes, volume []*float64
	if len(r.Indicators.Quote) > 0 {
		q := r.Indicators.Quote[0]
		open, high, low, closes, volume = q.Open, q.High, q.Low, q.Close, q.Volume
	}

	// adjusted close wins when present
	price, column := closes, "close"
	if len(r.Indicators.AdjClose) > 0 && len(r.Indicators.AdjClose[0].AdjClose) == n {
		price, column = r.Indicators.AdjClose[0].AdjClose, "adjclose"
	}
	if len(price) != n {
		return models.PriceSeries{}, &models.FetchError{Symbol: symbol, Reason: models.ErrMissingPriceColumn}
	}

	priceVals, ok := fillGaps(price)
	if !ok {
		return models.PriceSeries{}, &models.DataQualityError{Symbol: symbol, Column: column}
	}

	bars := make([]models.Bar, n)
	openVals, highVals, lowVals, volVals := fillOptional(open, n), fillOptional(high, n), fillOptional(low, n), fillOptional(volume, n)
	for i, ts := range r.Timestamp {
		y, m, d := time.Unix(ts, 0).UTC().Date()
		bars[i] = models.Bar{
			Date:   time.Date(y, m, d, 0, 0, 0, 0, time.UTC),
			Open:   openVals[i],
			High:   highVals[i],
			Low:    lowVals[i],
			Close:  priceVals[i],
			Volume: volVals[i],
		}
	}
	return models.PriceSeries{Symbol: symbol, Bars: dedupe(bars)}, nil
}

// fillGaps forward-fills then backward-fills nulls. ok is false when every
// value is null.
func fillGaps(values []*float64) ([]float64, bool) {
	out := make([]float64, len(values))
	first := -1
	var last float64
	for i, v := range values {
		switch {
		case v != nil:
			last = *v
			if first < 0 {
				first = i
			}
			out[i] = last
		case first >= 0:
			out[i] = last
		}
	}
	if first < 0 {
		return nil, false
	}
	for i := 0; i < first; i++ {
		out[i] = out[first]
	}
	return out, true
}

func fillOptional(values []*float64, n int) []float64 {
	if len(values) == n {
		if out, ok := fillGaps(values); ok {
			return out
		}
	}
	return make([]float64, n)
}

// dedupe sorts by date and keeps the last bar of each day.
func dedupe(bars []models.Bar) []models.Bar {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	out := bars[:0]
	for _, b := range bars {
		if len(out) > 0 && out[len(out)-1].Date.Equal(b.Date) {
			out[len(out)-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}
