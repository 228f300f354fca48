// Package dashboard serves the archive over a small gin HTTP API
package dashboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"ds-job-scraper/internal/archive"
	"ds-job-scraper/internal/httpclient"
	"ds-job-scraper/internal/metrics"
	"ds-job-scraper/internal/models"
	"ds-job-scraper/internal/storage"
)

// ErrNoArchive means no origin had an archive to serve
var ErrNoArchive = errors.New("no archive available")

const (
	OriginRemote   = "remote"
	OriginLocal    = "local"
	OriginFallback = "fallback"
)

// Dataset is one loaded copy of the archive
type Dataset struct {
	Records  []models.JobRecord
	Origin   string
	LoadedAt time.Time
}

type LoaderOptions struct {
	Store       storage.ObjectStore
	Keys        storage.Keys
	LocalPath   string
	FallbackURL string
	Client      *resty.Client
	TTL         time.Duration
	Metrics     *metrics.ArchiveMetrics
}

// Loader reads the archive from the remote store, the local file or the
// fallback URL, in that order, and caches the result for TTL
type Loader struct {
	opts LoaderOptions

	mu     sync.Mutex
	cached *Dataset

	now func() time.Time
}

func NewLoader(opts LoaderOptions) *Loader {
	if opts.TTL <= 0 {
		opts.TTL = 10 * time.Minute
	}
	return &Loader{opts: opts, now: time.Now}
}

// Load returns the cached dataset while it is fresh
func (l *Loader) Load(ctx context.Context) (*Dataset, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cached != nil && l.now().Sub(l.cached.LoadedAt) < l.opts.TTL {
		return l.cached, nil
	}

	ds, err := l.load(ctx)
	if err != nil {
		return nil, err
	}
	l.cached = ds
	if m := l.opts.Metrics; m != nil {
		m.SetArchive(ds.Records, countCompanies(ds.Records), countDays(ds.Records))
	}
	log.Printf("[dashboard] 📂 Loaded %d records from %s", len(ds.Records), ds.Origin)
	return ds, nil
}

// Invalidate drops the cached dataset
func (l *Loader) Invalidate() {
	l.mu.Lock()
	l.cached = nil
	l.mu.Unlock()
}

func (l *Loader) load(ctx context.Context) (*Dataset, error) {
	if l.opts.Store != nil {
		records, found, err := storage.LoadLatest(ctx, l.opts.Store, l.opts.Keys)
		l.observe(OriginRemote, err)
		switch {
		case err != nil:
			log.Printf("[dashboard] ⚠️ Remote archive unavailable: %v", err)
		case found:
			return l.dataset(records, OriginRemote), nil
		}
	}

	if l.opts.LocalPath != "" {
		ok, err := archive.Exists(l.opts.LocalPath)
		if err == nil && ok {
			var records []models.JobRecord
			records, err = archive.Load(l.opts.LocalPath)
			l.observe(OriginLocal, err)
			if err == nil {
				return l.dataset(records, OriginLocal), nil
			}
		}
		if err != nil {
			log.Printf("[dashboard] ⚠️ Local archive unreadable: %v", err)
		}
	}

	if l.opts.FallbackURL != "" && l.opts.Client != nil {
		records, err := l.fetch(ctx)
		l.observe(OriginFallback, err)
		if err != nil {
			return nil, fmt.Errorf("fallback archive: %w", err)
		}
		return l.dataset(records, OriginFallback), nil
	}

	return nil, ErrNoArchive
}

func (l *Loader) fetch(ctx context.Context) ([]models.JobRecord, error) {
	resp, err := l.opts.Client.R().
		SetContext(ctx).
		SetHeader("Accept", "text/csv").
		Get(l.opts.FallbackURL)
	if err != nil {
		return nil, err
	}
	if err := httpclient.StatusError(resp); err != nil {
		return nil, err
	}
	return archive.Decode(bytes.NewReader(resp.Body()))
}

func (l *Loader) dataset(records []models.JobRecord, origin string) *Dataset {
	return &Dataset{Records: records, Origin: origin, LoadedAt: l.now()}
}

func (l *Loader) observe(origin string, err error) {
	if l.opts.Metrics != nil {
		l.opts.Metrics.ObserveLoad(origin, err)
	}
}
