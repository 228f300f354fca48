package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ds-job-scraper/internal/models"
)

var schema = []string{`
CREATE TABLE IF NOT EXISTS job_records (
	url          TEXT PRIMARY KEY,
	source       TEXT NOT NULL,
	job_title    TEXT NOT NULL,
	company      TEXT NOT NULL DEFAULT '',
	location     TEXT NOT NULL DEFAULT '',
	collected_at TIMESTAMPTZ NOT NULL,
	snapshot_id  TEXT NOT NULL DEFAULT '',
	first_seen_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`,
	`CREATE INDEX IF NOT EXISTS job_records_collected_at_idx ON job_records (collected_at DESC)`,
}

// upsertSQL mirrors the archive rule: the newest observation of a url wins,
// first_seen_at is kept from the original insert
const upsertSQL = `
INSERT INTO job_records (url, source, job_title, company, location, collected_at, snapshot_id)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (url)
DO UPDATE SET source = EXCLUDED.source, job_title = EXCLUDED.job_title, company = EXCLUDED.company,
	location = EXCLUDED.location, collected_at = EXCLUDED.collected_at, snapshot_id = EXCLUDED.snapshot_id`

// Repository mirrors the archive into PostgreSQL
type Repository struct {
	db *pgxpool.Pool
}

func ConnectDB(ctx context.Context, connString string) (*Repository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database url: %w", err)
	}

	config.MaxConns = 4
	config.MinConns = 1
	config.MaxConnLifetime = time.Hour

	// transaction-mode poolers (PgBouncer) cannot hold prepared statements
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeExec

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}

	return &Repository{db: pool}, nil
}

func (r *Repository) Close() {
	if r.db != nil {
		r.db.Close()
	}
}

// EnsureSchema creates the table on first use
func (r *Repository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// UpsertRecords writes records in one batch and returns how many were sent
func (r *Repository) UpsertRecords(ctx context.Context, records []models.JobRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(upsertSQL, upsertArgs(rec)...)
	}

	br := r.db.SendBatch(ctx, batch)
	defer br.Close()
	for i := range records {
		if _, err := br.Exec(); err != nil {
			return i, fmt.Errorf("failed to upsert %s: %w", records[i].URL, err)
		}
	}
	return len(records), nil
}

// CountRecords returns the number of mirrored rows
func (r *Repository) CountRecords(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, "SELECT count(*) FROM job_records").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

// GetByURL loads one mirrored record
func (r *Repository) GetByURL(ctx context.Context, url string) (*models.JobRecord, error) {
	var rec models.JobRecord
	var source string
	err := r.db.QueryRow(ctx,
		`SELECT url, source, job_title, company, location, collected_at, snapshot_id FROM job_records WHERE url = $1`, url).
		Scan(&rec.URL, &source, &rec.JobTitle, &rec.Company, &rec.Location, &rec.CollectedAt, &rec.SnapshotID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("record not found")
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	rec.Source = models.Source(source)
	rec.CollectedAt = rec.CollectedAt.UTC()
	return &rec, nil
}

func upsertArgs(rec models.JobRecord) []any {
	return []any{
		rec.URL,
		string(rec.Source),
		rec.JobTitle,
		rec.Company,
		rec.Location,
		rec.CollectedAt.UTC(),
		rec.SnapshotID,
	}
}
