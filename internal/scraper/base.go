// Package scraper defines the interface every job source adapter implements
// and builds the configured adapters.
package scraper

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"

	"ds-job-scraper/internal/config"
	"ds-job-scraper/internal/dedup"
	"ds-job-scraper/internal/models"
	"ds-job-scraper/internal/scraper/googlejobs"
	"ds-job-scraper/internal/scraper/greenhouse"
	"ds-job-scraper/internal/scraper/lever"
	"ds-job-scraper/internal/scraper/linkedin"
)

// Scraper defines the interface that all source adapters must implement
type Scraper interface {
	// Name is the configured source name, used in logs and keyword overrides
	Name() string

	// Kind is the source family stamped on every record
	Kind() models.Source

	// Scrape returns raw postings. When ctx expires it returns what it has
	// with a nil error; an error means the source produced nothing usable.
	Scrape(ctx context.Context) ([]models.RawPosting, error)
}

// SeenAware scrapers want the archive's URLs to avoid re-opening known postings
type SeenAware interface {
	UseSeen(seen *dedup.SeenSet)
}

// Build creates the enabled scrapers in declared order
func Build(cfg *config.Config, client *resty.Client) ([]Scraper, error) {
	var scrapers []Scraper
	for _, sc := range cfg.EnabledSources() {
		s, err := New(cfg, sc, client)
		if err != nil {
			return nil, err
		}
		scrapers = append(scrapers, s)
	}
	return scrapers, nil
}

// New creates one scraper from its source config
func New(cfg *config.Config, sc config.SourceConfig, client *resty.Client) (Scraper, error) {
	switch sc.Type {
	case config.TypeGreenhouse:
		return greenhouse.NewGreenhouseScraper(client, greenhouse.Options{
			Name:       sc.Name,
			BaseURL:    sc.BaseURL,
			Boards:     sc.Companies,
			MaxResults: sc.MaxResults,
		}), nil

	case config.TypeLever:
		return lever.NewLeverScraper(client, lever.Options{
			Name:       sc.Name,
			BaseURL:    sc.BaseURL,
			Companies:  sc.Companies,
			MaxResults: sc.MaxResults,
			MaxPages:   sc.MaxPages,
			PageSize:   sc.PageSize,
		}), nil

	case config.TypeSerpAPI, config.TypeSearchAPI:
		provider, key := googlejobs.SerpAPI, cfg.SerpAPIKey
		if sc.Type == config.TypeSearchAPI {
			provider, key = googlejobs.SearchAPI, cfg.SearchAPIKey
		}
		return googlejobs.NewGoogleJobsScraper(client, provider, googlejobs.Options{
			Name:       sc.Name,
			APIKey:     key,
			Query:      sc.Query,
			Location:   sc.Location,
			MaxPages:   sc.MaxPages,
			MaxResults: sc.MaxResults,
			BaseURL:    sc.BaseURL,
		}), nil

	case config.TypeLinkedIn:
		return linkedin.NewLinkedInScraper(linkedin.Options{
			Name:             sc.Name,
			Query:            sc.Query,
			Location:         sc.Location,
			Email:            cfg.LinkedInEmail,
			Password:         cfg.LinkedInPassword,
			Headless:         sc.Headless == nil || *sc.Headless,
			StorageStatePath: sc.StorageStatePath,
			MaxResults:       sc.MaxResults,
			MaxPages:         sc.MaxPages,
			MinNewResults:    sc.MinNewResults,
			Debug:            sc.Debug,
			BaseURL:          sc.BaseURL,
		}), nil
	}
	return nil, fmt.Errorf("source %q: unknown type %q", sc.Name, sc.Type)
}
