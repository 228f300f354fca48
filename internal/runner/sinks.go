package runner

import (
	"context"
	"log"
	"time"

	"ds-job-scraper/internal/models"
	"ds-job-scraper/internal/reporter"
)

type RecordUpserter interface {
	UpsertRecords(ctx context.Context, records []models.JobRecord) (int, error)
	CountRecords(ctx context.Context) (int, error)
}

// DatabaseSink mirrors the run's batch into PostgreSQL
type DatabaseSink struct {
	Repo RecordUpserter
}

func (DatabaseSink) Name() string { return "database mirror" }

func (s DatabaseSink) Publish(ctx context.Context, res *Result) error {
	n, err := s.Repo.UpsertRecords(ctx, res.Batch)
	if err != nil {
		return err
	}
	total, err := s.Repo.CountRecords(ctx)
	if err != nil {
		return err
	}
	log.Printf("🗄️ Upserted %d records into PostgreSQL (%d mirrored)", n, total)
	return nil
}

type SummarySender interface {
	SendRunSummary(s reporter.RunSummary) error
}

// TelegramSink sends the run summary to a chat
type TelegramSink struct {
	Reporter SummarySender
}

func (TelegramSink) Name() string { return "telegram summary" }

func (s TelegramSink) Publish(_ context.Context, res *Result) error {
	if err := s.Reporter.SendRunSummary(Summary(res)); err != nil {
		return err
	}
	log.Println("📨 Run summary sent to Telegram")
	return nil
}

// Summary converts a run result for the reporter
func Summary(res *Result) reporter.RunSummary {
	sum := reporter.RunSummary{
		SnapshotID:  res.SnapshotID,
		CollectedAt: res.CollectedAt,
		Duration:    res.Duration,
		BatchSize:   len(res.Batch),
		ArchiveSize: len(res.Archive),
		New:         res.New,
	}
	for _, sr := range res.Sources {
		ss := reporter.SourceSummary{Name: sr.Name, Kind: sr.Kind, Raw: sr.Raw, Kept: sr.Kept}
		if sr.Err != nil {
			ss.Error = sr.Err.Error()
		}
		sum.Sources = append(sum.Sources, ss)
	}
	return sum
}

type RunObserver interface {
	ObserveSource(name string, kind models.Source, raw, kept int, failed bool, took time.Duration)
	ObserveRun(batch, archive, added int, at time.Time)
	Push(ctx context.Context, gatewayURL, job string) error
}

// MetricsSink records run metrics and pushes them to a Pushgateway
type MetricsSink struct {
	Metrics    RunObserver
	GatewayURL string
	Job        string
}

func (MetricsSink) Name() string { return "metrics push" }

func (s MetricsSink) Publish(ctx context.Context, res *Result) error {
	for _, sr := range res.Sources {
		s.Metrics.ObserveSource(sr.Name, sr.Kind, sr.Raw, sr.Kept, sr.Err != nil, sr.Duration)
	}
	s.Metrics.ObserveRun(len(res.Batch), len(res.Archive), len(res.New), res.StartedAt.Add(res.Duration))
	if err := s.Metrics.Push(ctx, s.GatewayURL, s.Job); err != nil {
		return err
	}
	log.Printf("📈 Metrics pushed to %s", s.GatewayURL)
	return nil
}
