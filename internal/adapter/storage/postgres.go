package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"oracleflow/internal/domain/model"
)

// PostgresAdapter stores price samples keyed uniquely by (pair, timestamp).
type PostgresAdapter struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewPostgresAdapter(connStr string) (*PostgresAdapter, error) {
	db, err := sqlx.Connect("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &PostgresAdapter{db: db, now: time.Now}, nil
}

// NewPostgresAdapterFromDB wraps an existing connection; used by tests.
func NewPostgresAdapterFromDB(db *sqlx.DB) *PostgresAdapter {
	return &PostgresAdapter{db: db, now: time.Now}
}

func (a *PostgresAdapter) InitSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS price_history (
		id SERIAL PRIMARY KEY,
		pair VARCHAR(20) NOT NULL,
		price DOUBLE PRECISION NOT NULL,
		decimals INTEGER NOT NULL,
		timestamp BIGINT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT NOW(),
		UNIQUE (pair, timestamp)
	);
	CREATE INDEX IF NOT EXISTS idx_pair_timestamp ON price_history(pair, timestamp DESC);
	`
	if _, err := a.db.ExecContext(ctx, query); err != nil {
		return &model.StorageError{Op: "init schema", Err: err}
	}
	return nil
}

// InsertSamples upserts the batch inside one transaction so concurrent
// readers never observe a partially-applied batch. A later write at the same
// (pair, timestamp) replaces the earlier row.
func (a *PostgresAdapter) InsertSamples(ctx context.Context, samples []model.PriceSample) (int, error) {
	if len(samples) == 0 {
		return 0, nil
	}

	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, &model.StorageError{Op: "insert begin", Err: err}
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO price_history (pair, price, decimals, timestamp)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (pair, timestamp) DO UPDATE
		SET price = EXCLUDED.price,
		    decimals = EXCLUDED.decimals`

	for _, s := range samples {
		if _, err := tx.ExecContext(ctx, query, s.Pair, s.Price, s.Decimals, s.Timestamp); err != nil {
			return 0, &model.StorageError{Op: "insert", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, &model.StorageError{Op: "insert commit", Err: err}
	}

	return len(samples), nil
}

// QuerySamples returns samples for pair ascending by timestamp. Zero bounds
// are unconstrained.
func (a *PostgresAdapter) QuerySamples(ctx context.Context, pair string, startTime, endTime int64) ([]model.PriceSample, error) {
	query := `SELECT pair, price, decimals, timestamp FROM price_history WHERE pair = $1`
	args := []interface{}{pair}

	if startTime > 0 {
		args = append(args, startTime)
		query += fmt.Sprintf(" AND timestamp >= $%d", len(args))
	}
	if endTime > 0 {
		args = append(args, endTime)
		query += fmt.Sprintf(" AND timestamp <= $%d", len(args))
	}
	query += " ORDER BY timestamp ASC"

	var samples []model.PriceSample
	if err := a.db.SelectContext(ctx, &samples, query, args...); err != nil {
		return nil, &model.StorageError{Op: "query", Err: err}
	}
	return samples, nil
}

func (a *PostgresAdapter) Stats(ctx context.Context) (model.StoreStats, error) {
	var row struct {
		TotalRows int64         `db:"total_rows"`
		Oldest    sql.NullInt64 `db:"oldest"`
		Newest    sql.NullInt64 `db:"newest"`
	}

	const query = `
		SELECT COUNT(*) AS total_rows,
		       MIN(timestamp) AS oldest,
		       MAX(timestamp) AS newest
		FROM price_history`

	if err := a.db.GetContext(ctx, &row, query); err != nil {
		return model.StoreStats{}, &model.StorageError{Op: "stats", Err: err}
	}

	stats := model.StoreStats{TotalRows: row.TotalRows}
	if row.Oldest.Valid {
		v := row.Oldest.Int64
		stats.Oldest = &v
	}
	if row.Newest.Valid {
		v := row.Newest.Int64
		stats.Newest = &v
	}
	return stats, nil
}

// Prune deletes samples older than the horizon and reports how many went.
func (a *PostgresAdapter) Prune(ctx context.Context, olderThanHours int) (int64, error) {
	cutoff := a.now().Unix() - int64(olderThanHours)*3600

	res, err := a.db.ExecContext(ctx, `DELETE FROM price_history WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, &model.StorageError{Op: "prune", Err: err}
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, &model.StorageError{Op: "prune", Err: err}
	}
	return deleted, nil
}

// RangeAggregate returns the stored low/high for pair since startTime, or
// nil when no rows are in range.
func (a *PostgresAdapter) RangeAggregate(ctx context.Context, pair string, startTime int64) (*model.PriceRange, error) {
	var row struct {
		Low  sql.NullFloat64 `db:"low"`
		High sql.NullFloat64 `db:"high"`
	}

	const query = `
		SELECT MIN(price) AS low, MAX(price) AS high
		FROM price_history
		WHERE pair = $1 AND timestamp >= $2`

	if err := a.db.GetContext(ctx, &row, query, pair, startTime); err != nil {
		return nil, &model.StorageError{Op: "range aggregate", Err: err}
	}
	if !row.Low.Valid || !row.High.Valid {
		return nil, nil
	}
	return &model.PriceRange{Low: row.Low.Float64, High: row.High.Float64}, nil
}

// EarliestAt returns the first sample at or after startTime for pair.
func (a *PostgresAdapter) EarliestAt(ctx context.Context, pair string, startTime int64) (*model.PriceSample, error) {
	var sample model.PriceSample

	const query = `
		SELECT pair, price, decimals, timestamp
		FROM price_history
		WHERE pair = $1 AND timestamp >= $2
		ORDER BY timestamp ASC
		LIMIT 1`

	err := a.db.GetContext(ctx, &sample, query, pair, startTime)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &model.StorageError{Op: "earliest at", Err: err}
	}
	return &sample, nil
}

func (a *PostgresAdapter) Ping(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

func (a *PostgresAdapter) Close() error {
	return a.db.Close()
}
