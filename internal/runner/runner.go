// Package runner executes one scrape: load the archive, run every source
// behind an error boundary, normalise, merge once and persist.
package runner

import (
	"context"
	"fmt"
	"log"
	"time"

	"ds-job-scraper/internal/archive"
	"ds-job-scraper/internal/config"
	"ds-job-scraper/internal/dedup"
	"ds-job-scraper/internal/models"
	"ds-job-scraper/internal/normalize"
	"ds-job-scraper/internal/scraper"
	"ds-job-scraper/internal/storage"
)

// persistTimeout bounds uploads and side effects, which run on a context
// detached from the run budget so a slow source cannot starve persistence
const persistTimeout = 2 * time.Minute

type Options struct {
	// AsOf stamps every record with this date at 00:00 UTC instead of the wall clock
	AsOf *time.Time
}

type SourceResult struct {
	Name     string
	Kind     models.Source
	Raw      int
	Kept     int
	Dropped  int
	Err      error
	Duration time.Duration
}

type Result struct {
	SnapshotID  string
	CollectedAt time.Time
	StartedAt   time.Time
	Duration    time.Duration
	Sources     []SourceResult
	// Batch is every record kept this run, before merging
	Batch []models.JobRecord
	// New holds batch records whose URL was not in the archive at run start
	New []models.JobRecord
	// Archive is the merged archive that was persisted
	Archive []models.JobRecord
	// RemoteErr is a logged, non-fatal upload failure
	RemoteErr error
}

// Failed counts sources that produced nothing because of an error
func (r *Result) Failed() int {
	n := 0
	for _, s := range r.Sources {
		if s.Err != nil {
			n++
		}
	}
	return n
}

// Sink receives the result once the archive is persisted. Sink failures
// are logged and never fail the run.
type Sink interface {
	Name() string
	Publish(ctx context.Context, res *Result) error
}

type Runner struct {
	cfg        *config.Config
	scrapers   []scraper.Scraper
	normalizer *normalize.Normalizer
	publisher  *storage.Publisher
	sinks      []Sink
	sources    map[string]config.SourceConfig

	now   func() time.Time
	newID func() (string, error)
}

// New wires a runner. publisher may be nil when no remote store is configured.
func New(cfg *config.Config, scrapers []scraper.Scraper, publisher *storage.Publisher, sinks ...Sink) *Runner {
	sources := make(map[string]config.SourceConfig, len(cfg.Sources))
	overrides := make(map[string][]string)
	for _, sc := range cfg.Sources {
		sources[sc.Name] = sc
		if len(sc.TitleKeywords) > 0 {
			overrides[sc.Name] = sc.TitleKeywords
		}
	}

	return &Runner{
		cfg:      cfg,
		scrapers: scrapers,
		normalizer: normalize.New(normalize.Options{
			TitleKeywords:       cfg.Filter.TitleKeywords,
			LocationKeywords:    cfg.Filter.LocationKeywords,
			DefaultLocation:     cfg.Filter.DefaultLocation,
			SourceTitleKeywords: overrides,
		}),
		publisher: publisher,
		sinks:     sinks,
		sources:   sources,
		now:       time.Now,
		newID:     models.NewSnapshotID,
	}
}

// CollectedAt is the timestamp stamped on every record of a run
func CollectedAt(asOf *time.Time, now time.Time) time.Time {
	if asOf != nil {
		return time.Date(asOf.Year(), asOf.Month(), asOf.Day(), 0, 0, 0, 0, time.UTC)
	}
	return now.UTC()
}

func (r *Runner) Run(ctx context.Context, opts Options) (*Result, error) {
	started := r.now()
	if budget := r.cfg.Run.TimeBudget.Duration; budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}

	snapshotID, err := r.newID()
	if err != nil {
		return nil, err
	}
	res := &Result{
		SnapshotID:  snapshotID,
		CollectedAt: CollectedAt(opts.AsOf, started),
		StartedAt:   started,
	}
	log.Printf("🚀 Run %s started (collected_at=%s, %d sources)", snapshotID, res.CollectedAt.Format(time.RFC3339), len(r.scrapers))

	existing, err := r.loadArchive(ctx)
	if err != nil {
		return nil, err
	}
	seen := dedup.FromRecords(existing)

	for _, s := range r.scrapers {
		if aware, ok := s.(scraper.SeenAware); ok {
			aware.UseSeen(seen)
		}
		sr, records := r.runSource(ctx, s, res.CollectedAt, snapshotID)
		res.Sources = append(res.Sources, sr)
		res.Batch = append(res.Batch, records...)
	}
	log.Printf("📦 Total records collected: %d (%d sources failed)", len(res.Batch), res.Failed())

	res.Archive = archive.Merge(existing, res.Batch)
	res.New = newRecords(res.Batch, seen)
	log.Printf("🔀 Merged: %d existing + %d collected -> %d rows (%d new urls)", len(existing), len(res.Batch), len(res.Archive), len(res.New))

	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	if err := r.persist(persistCtx, res); err != nil {
		return res, err
	}

	res.Duration = r.now().Sub(started)
	for _, sink := range r.sinks {
		if err := sink.Publish(persistCtx, res); err != nil {
			log.Printf("⚠️ %s failed: %v", sink.Name(), err)
		}
	}

	log.Printf("🏁 Run %s finished in %s", snapshotID, res.Duration.Round(time.Millisecond))
	return res, nil
}

// loadArchive prefers the local file, then the remote latest.csv, then empty
func (r *Runner) loadArchive(ctx context.Context) ([]models.JobRecord, error) {
	if r.cfg.LocalArchive() {
		ok, err := archive.Exists(r.cfg.Archive.Path)
		if err != nil {
			return nil, fmt.Errorf("stat archive: %w", err)
		}
		if ok {
			records, err := archive.Load(r.cfg.Archive.Path)
			if err != nil {
				return nil, err
			}
			log.Printf("📂 Loaded %d archive rows from %s", len(records), r.cfg.Archive.Path)
			return records, nil
		}
	}

	if r.publisher != nil {
		records, found, err := r.publisher.LoadLatest(ctx)
		if err != nil {
			return nil, fmt.Errorf("load remote archive: %w", err)
		}
		if found {
			log.Printf("☁️ Loaded %d archive rows from %s", len(records), r.publisher.Keys().Latest())
			return records, nil
		}
	}

	log.Println("ℹ️ No existing archive, starting empty")
	return nil, nil
}

// runSource is the error boundary: errors and panics become a failed
// SourceResult with zero records
func (r *Runner) runSource(ctx context.Context, s scraper.Scraper, collectedAt time.Time, snapshotID string) (SourceResult, []models.JobRecord) {
	sr := SourceResult{Name: s.Name(), Kind: s.Kind()}
	start := time.Now()
	log.Printf("\n▶️ Starting source: %s (%s)", s.Name(), s.Kind())

	if err := ctx.Err(); err != nil {
		sr.Err = fmt.Errorf("run time budget exhausted before %s: %w", s.Name(), err)
		log.Printf("❌ %v", sr.Err)
		return sr, nil
	}

	sc, configured := r.sources[s.Name()]
	postings, err := scrape(ctx, s, sc.TimeBudget.Duration)
	sr.Duration = time.Since(start)
	if err != nil {
		sr.Err = err
		log.Printf("❌ Error running source %s: %v", s.Name(), err)
		return sr, nil
	}

	// the configured source decides whether the location check applies
	if configured {
		prescoped := sc.IsPrescoped()
		for i := range postings {
			postings[i].Prescoped = prescoped
		}
	}
	for i := range postings {
		if postings[i].Adapter == "" {
			postings[i].Adapter = s.Name()
		}
		if postings[i].Source == "" {
			postings[i].Source = s.Kind()
		}
	}

	records, dropped := r.normalizer.NormalizeAll(postings, collectedAt, snapshotID)
	sr.Raw, sr.Kept, sr.Dropped = len(postings), len(records), dropped
	log.Printf("✅ Source %s finished in %s. Kept %d/%d postings.", s.Name(), sr.Duration.Round(time.Millisecond), sr.Kept, sr.Raw)
	return sr, records
}

func scrape(ctx context.Context, s scraper.Scraper, budget time.Duration) (postings []models.RawPosting, err error) {
	if budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, budget)
		defer cancel()
	}
	defer func() {
		if rec := recover(); rec != nil {
			postings = nil
			err = fmt.Errorf("panic in %s: %v", s.Name(), rec)
		}
	}()
	return s.Scrape(ctx)
}

// persist writes the local archive (fatal) and uploads it (fatal only when
// it is the sole copy)
func (r *Runner) persist(ctx context.Context, res *Result) error {
	local := r.cfg.LocalArchive()
	if local {
		if err := archive.Save(r.cfg.Archive.Path, res.Archive); err != nil {
			return fmt.Errorf("save archive: %w", err)
		}
	}

	if r.publisher == nil {
		return nil
	}
	if err := r.publisher.Publish(ctx, res.Archive, res.SnapshotID); err != nil {
		if !local {
			return fmt.Errorf("upload archive: %w", err)
		}
		res.RemoteErr = err
		log.Printf("⚠️ Remote upload failed, local archive is intact: %v", err)
	}
	return nil
}

func newRecords(batch []models.JobRecord, seen *dedup.SeenSet) []models.JobRecord {
	var out []models.JobRecord
	listed := make(map[string]bool)
	for _, rec := range batch {
		if seen.IsSeen(rec.URL) || listed[rec.URL] {
			continue
		}
		listed[rec.URL] = true
		out = append(out, rec)
	}
	return out
}
