package repository

import (
	"context"
	"time"

	"FinCast/pkg/sqlite"
)

var sqliteDialect = dialect{
	name: "sqlite",
	schema: []string{
		`CREATE TABLE IF NOT EXISTS daily_bars (
			symbol TEXT NOT NULL,
			day    TEXT NOT NULL,
			open   REAL,
			high   REAL,
			low    REAL,
			close  REAL NOT NULL,
			volume REAL,
			PRIMARY KEY (symbol, day)
		)`,
		`CREATE TABLE IF NOT EXISTS forecast_reports (
			id                   INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol               TEXT NOT NULL,
			created_at           INTEGER NOT NULL,
			rmse                 REAL,
			normalized_rmse      REAL,
			mae                  REAL,
			r2                   REAL,
			directional_accuracy REAL,
			final_loss           REAL,
			epochs               INTEGER,
			payload              TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_symbol_ts ON forecast_reports(symbol, created_at)`,
	},
	insertBars: "INSERT OR REPLACE INTO daily_bars",
	selectBars: `SELECT day, open, high, low, close, volume
		FROM daily_bars
		WHERE symbol = ? AND day >= ? AND day <= ?
		ORDER BY day ASC`,
	dayArg: func(t time.Time) any { return t.UTC().Format(time.DateOnly) },
}

// SQLiteStore is the single-file price and report store.
type SQLiteStore struct {
	*sqlStore
}

// OpenSQLiteStore opens the database at path and creates the tables.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sqlite.Open(ctx, path, sqliteDialect.schema)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{&sqlStore{db: db, d: sqliteDialect, closer: db.Close}}, nil
}
