package repository

import (
	"time"

	pkgch "FinCast/pkg/clickhouse"
)

var clickhouseDialect = dialect{
	name: "clickhouse",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS daily_bars (
			symbol     LowCardinality(String),
			day        Date,
			open       Float64,
			high       Float64,
			low        Float64,
			close      Float64,
			volume     Float64,
			updated_at DateTime DEFAULT now()
		) ENGINE = ReplacingMergeTree(updated_at)
		ORDER BY (symbol, day)`,
		`CREATE TABLE IF NOT EXISTS forecast_reports (
			symbol               LowCardinality(String),
			created_at           Int64,
			rmse                 Float64,
			normalized_rmse      Float64,
			mae                  Float64,
			r2                   Float64,
			directional_accuracy Float64,
			final_loss           Float64,
			epochs               Int64,
			payload              String
		) ENGINE = MergeTree
		ORDER BY (symbol, created_at)`,
	},
	insertBars: "INSERT INTO daily_bars",
	selectBars: `SELECT day, open, high, low, close, volume
		FROM daily_bars FINAL
		WHERE symbol = ? AND day >= ? AND day <= ?
		ORDER BY day ASC`,
	dayArg: func(t time.Time) any { return t.UTC() },
}

// CHStore is the ClickHouse price and report store.
type CHStore struct {
	*sqlStore
}

// NewCHStore uses the pool of ch; Close leaves the pool to its owner.
func NewCHStore(ch *pkgch.Client) *CHStore {
	return &CHStore{&sqlStore{db: ch.DB(), d: clickhouseDialect}}
}
