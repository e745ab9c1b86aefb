package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	insertSampleSQL = `INSERT INTO price_samples (
        observed_at,
        price,
        block_number,
        state
    ) VALUES (
        $1,$2,$3,$4
    );`

	listSamplesBetweenSQL = `SELECT
        observed_at,
        price,
        block_number,
        state,
        created_at
    FROM price_samples
    WHERE observed_at >= $1
      AND observed_at < $2
    ORDER BY observed_at;`

	listRecentSamplesSQL = `SELECT
        observed_at,
        price,
        block_number,
        state,
        created_at
    FROM price_samples
    ORDER BY observed_at DESC
    LIMIT $1;`

	countSamplesSQL = `SELECT COUNT(*) FROM price_samples;`

	insertAlertSQL = `INSERT INTO alerts (
        observed_at,
        price,
        lower_limit,
        upper_limit
    ) VALUES (
        $1,$2,$3,$4
    )
    RETURNING id, observed_at, price, lower_limit, upper_limit, created_at;`

	listRecentAlertsSQL = `SELECT
        id,
        observed_at,
        price,
        lower_limit,
        upper_limit,
        created_at
    FROM alerts
    ORDER BY created_at DESC
    LIMIT $1;`

	deleteAlertsBeforeSQL = `DELETE FROM alerts WHERE created_at < $1;`
)

// SampleStore defines operations for price observation persistence.
type SampleStore interface {
	InsertSample(ctx context.Context, sample PriceSample) error
	ListSamplesBetween(ctx context.Context, from, to time.Time) ([]PriceSample, error)
	ListRecentSamples(ctx context.Context, limit int) ([]PriceSample, error)
	CountSamples(ctx context.Context) (int64, error)
}

// AlertStore defines operations for alert auditing.
type AlertStore interface {
	InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error)
	ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error)
	DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error
}

// Store aggregates access to price samples and alerts.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// InsertSample persists one price observation.
func (s *Store) InsertSample(ctx context.Context, sample PriceSample) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	var block interface{}
	if sample.BlockNumber != nil {
		block = *sample.BlockNumber
	}

	_, execErr := pool.Exec(ctx, insertSampleSQL,
		sample.ObservedAt,
		sample.Price.String(),
		block,
		sample.State,
	)
	if execErr != nil {
		return fmt.Errorf("insert price sample: %w", execErr)
	}
	return nil
}

// ListSamplesBetween lists samples within a time window.
func (s *Store) ListSamplesBetween(ctx context.Context, from, to time.Time) ([]PriceSample, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listSamplesBetweenSQL, from, to)
	if queryErr != nil {
		return nil, fmt.Errorf("list samples between: %w", queryErr)
	}
	defer rows.Close()

	samples := make([]PriceSample, 0)
	for rows.Next() {
		sample, scanErr := scanPriceSample(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		samples = append(samples, sample)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return samples, nil
}

// ListRecentSamples lists the most recent samples ordered by descending time.
func (s *Store) ListRecentSamples(ctx context.Context, limit int) ([]PriceSample, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentSamplesSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent samples: %w", queryErr)
	}
	defer rows.Close()

	samples := make([]PriceSample, 0, limit)
	for rows.Next() {
		sample, scanErr := scanPriceSample(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		samples = append(samples, sample)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return samples, nil
}

// CountSamples counts stored samples.
func (s *Store) CountSamples(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countSamplesSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count samples: %w", scanErr)
	}
	return count, nil
}

// InsertAlert persists an alert emission.
func (s *Store) InsertAlert(ctx context.Context, alert AlertRecord) (AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return AlertRecord{}, err
	}

	row := pool.QueryRow(ctx, insertAlertSQL,
		alert.ObservedAt,
		alert.Price.String(),
		alert.LowerLimit.String(),
		alert.UpperLimit.String(),
	)

	rec, scanErr := scanAlertRecord(row)
	if scanErr != nil {
		return AlertRecord{}, fmt.Errorf("insert alert: %w", scanErr)
	}
	return rec, nil
}

// ListRecentAlerts lists most recent alerts.
func (s *Store) ListRecentAlerts(ctx context.Context, limit int) ([]AlertRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentAlertsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent alerts: %w", queryErr)
	}
	defer rows.Close()

	alerts := make([]AlertRecord, 0, limit)
	for rows.Next() {
		rec, scanErr := scanAlertRecord(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		alerts = append(alerts, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return alerts, nil
}

// DeleteAlertsBefore deletes historical alerts.
func (s *Store) DeleteAlertsBefore(ctx context.Context, olderThan time.Time) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if _, execErr := pool.Exec(ctx, deleteAlertsBeforeSQL, olderThan); execErr != nil {
		return fmt.Errorf("delete alerts before: %w", execErr)
	}
	return nil
}

func scanPriceSample(rows pgx.Rows) (PriceSample, error) {
	var (
		observedAt time.Time
		priceStr   string
		block      sql.NullInt64
		state      string
		createdAt  time.Time
	)

	if err := rows.Scan(&observedAt, &priceStr, &block, &state, &createdAt); err != nil {
		return PriceSample{}, err
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return PriceSample{}, fmt.Errorf("parse price: %w", err)
	}

	sample := PriceSample{
		ObservedAt: observedAt,
		Price:      price,
		State:      state,
		CreatedAt:  createdAt,
	}
	if block.Valid {
		value := block.Int64
		sample.BlockNumber = &value
	}
	return sample, nil
}

func scanAlertRecord(row pgx.Row) (AlertRecord, error) {
	var (
		rec      AlertRecord
		priceStr string
		lowerStr string
		upperStr string
	)

	if err := row.Scan(&rec.ID, &rec.ObservedAt, &priceStr, &lowerStr, &upperStr, &rec.CreatedAt); err != nil {
		return AlertRecord{}, err
	}

	var convErr error
	rec.Price, convErr = decimal.NewFromString(priceStr)
	if convErr != nil {
		return AlertRecord{}, fmt.Errorf("parse price: %w", convErr)
	}
	rec.LowerLimit, convErr = decimal.NewFromString(lowerStr)
	if convErr != nil {
		return AlertRecord{}, fmt.Errorf("parse lower limit: %w", convErr)
	}
	rec.UpperLimit, convErr = decimal.NewFromString(upperStr)
	if convErr != nil {
		return AlertRecord{}, fmt.Errorf("parse upper limit: %w", convErr)
	}

	return rec, nil
}
