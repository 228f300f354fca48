package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"ds-job-scraper/internal/archive"
	"ds-job-scraper/internal/models"
)

const snapshotTimeFormat = "20060102T150405Z"

// Status is the small JSON document the dashboard polls for the next run
type Status struct {
	LastRunAt  time.Time  `json:"last_run_at"`
	SnapshotID string     `json:"snapshot_id,omitempty"`
	Records    int        `json:"records"`
	NextRunAt  *time.Time `json:"next_run_at"`
}

// NextRun returns the next activation of a standard 5-field cron schedule
// after from. An empty schedule yields nil.
func NextRun(schedule string, from time.Time) (*time.Time, error) {
	if schedule == "" {
		return nil, nil
	}
	sched, err := cron.ParseStandard(schedule)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", schedule, err)
	}
	next := sched.Next(from).UTC()
	return &next, nil
}

// Publisher uploads archive snapshots and run status to an ObjectStore
type Publisher struct {
	store    ObjectStore
	keys     Keys
	schedule string
	now      func() time.Time
}

func NewPublisher(store ObjectStore, prefix, schedule string) *Publisher {
	return &Publisher{
		store:    store,
		keys:     Keys{Prefix: prefix},
		schedule: schedule,
		now:      time.Now,
	}
}

// Keys exposes the object layout
func (p *Publisher) Keys() Keys {
	return p.keys
}

// LoadLatest fetches and decodes latest.csv. Missing means empty.
func (p *Publisher) LoadLatest(ctx context.Context) ([]models.JobRecord, bool, error) {
	return LoadLatest(ctx, p.store, p.keys)
}

// Publish uploads the full archive as a timestamped snapshot, replaces
// latest.csv and writes status.json. The snapshot upload happens first so
// latest.csv never points past what was stored.
func (p *Publisher) Publish(ctx context.Context, records []models.JobRecord, snapshotID string) error {
	data, err := archive.Bytes(records)
	if err != nil {
		return fmt.Errorf("encode archive: %w", err)
	}

	now := p.now().UTC()
	snapKey := p.keys.Snapshot(now.Format(snapshotTimeFormat))
	if err := p.store.Put(ctx, snapKey, data, "text/csv"); err != nil {
		return err
	}
	if err := p.store.Put(ctx, p.keys.Latest(), data, "text/csv"); err != nil {
		return err
	}
	log.Printf("☁️ Uploaded %s and %s (%d records)", snapKey, p.keys.Latest(), len(records))

	status := Status{LastRunAt: now, SnapshotID: snapshotID, Records: len(records)}
	status.NextRunAt, err = NextRun(p.schedule, now)
	if err != nil {
		return err
	}
	body, err := json.Marshal(status)
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}
	if err := p.store.Put(ctx, p.keys.Status(), body, "application/json"); err != nil {
		return err
	}
	return nil
}

// LoadLatest reads latest.csv from store. The bool reports whether it existed.
func LoadLatest(ctx context.Context, store ObjectStore, keys Keys) ([]models.JobRecord, bool, error) {
	data, err := store.Get(ctx, keys.Latest())
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	records, err := archive.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, true, fmt.Errorf("decode %s: %w", keys.Latest(), err)
	}
	return records, true, nil
}

// LoadStatus reads status.json. A missing object yields a zero Status.
func LoadStatus(ctx context.Context, store ObjectStore, keys Keys) (Status, error) {
	var status Status
	data, err := store.Get(ctx, keys.Status())
	if errors.Is(err, ErrNotFound) {
		return status, nil
	}
	if err != nil {
		return status, err
	}
	if err := json.Unmarshal(data, &status); err != nil {
		return status, fmt.Errorf("decode %s: %w", keys.Status(), err)
	}
	return status, nil
}
