package lever

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"

	"ds-job-scraper/internal/httpclient"
	"ds-job-scraper/internal/models"
)

const (
	DefaultBaseURL  = "https://api.lever.co"
	defaultPageSize = 100
	// guards against an API that ignores skip and keeps returning full pages
	defaultMaxPages = 20
)

type Options struct {
	Name       string
	BaseURL    string
	Companies  []string
	MaxResults int
	MaxPages   int
	PageSize   int
}

type LeverScraper struct {
	client *resty.Client
	opts   Options
}

type posting struct {
	Text       string `json:"text"`
	Title      string `json:"title"`
	Company    string `json:"company"`
	HostedURL  string `json:"hostedUrl"`
	ApplyURL   string `json:"applyUrl"`
	Categories struct {
		Location string `json:"location"`
	} `json:"categories"`
}

func NewLeverScraper(client *resty.Client, opts Options) *LeverScraper {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Name == "" {
		opts.Name = "lever"
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = defaultMaxPages
	}
	return &LeverScraper{client: client, opts: opts}
}

func (s *LeverScraper) Name() string {
	return s.opts.Name
}

func (s *LeverScraper) Kind() models.Source {
	return models.SourceBoardAPI
}

func (s *LeverScraper) Scrape(ctx context.Context) ([]models.RawPosting, error) {
	var postings []models.RawPosting
	var failures []error

	for _, company := range s.opts.Companies {
		if err := ctx.Err(); err != nil {
			log.Printf("⏱️ [%s] Stopping early: %v", s.Name(), err)
			break
		}

		found, err := s.scrapeCompany(ctx, company, &postings)
		if err != nil {
			log.Printf("⚠️ [%s] Company %s failed: %v", s.Name(), company, err)
			failures = append(failures, err)
			continue
		}
		log.Printf("🏢 [%s] Company %s: %d postings", s.Name(), company, found)

		if s.full(postings) {
			log.Printf("🛑 [%s] Reached max_results=%d", s.Name(), s.opts.MaxResults)
			break
		}
	}

	if len(s.opts.Companies) > 0 && len(failures) == len(s.opts.Companies) {
		return nil, fmt.Errorf("all %d lever companies failed: %w", len(failures), errors.Join(failures...))
	}
	return postings, nil
}

// scrapeCompany pages through one company's postings and appends them to out
func (s *LeverScraper) scrapeCompany(ctx context.Context, company string, out *[]models.RawPosting) (int, error) {
	found := 0
	for page := 0; page < s.opts.MaxPages; page++ {
		batch, err := s.fetchPage(ctx, company, page*s.opts.PageSize)
		if err != nil {
			// keep what earlier pages produced
			if found > 0 {
				log.Printf("⚠️ [%s] %s page %d failed, keeping %d postings: %v", s.Name(), company, page, found, err)
				return found, nil
			}
			return 0, err
		}

		for _, p := range batch {
			rp, ok := s.toPosting(company, p)
			if !ok {
				continue
			}
			*out = append(*out, rp)
			found++
			if s.full(*out) {
				return found, nil
			}
		}

		if len(batch) < s.opts.PageSize {
			break
		}
	}
	return found, nil
}

func (s *LeverScraper) fetchPage(ctx context.Context, company string, skip int) ([]posting, error) {
	var body []posting
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"mode":  "json",
			"skip":  strconv.Itoa(skip),
			"limit": strconv.Itoa(s.opts.PageSize),
		}).
		SetResult(&body).
		ForceContentType("application/json").
		Get(fmt.Sprintf("%s/v0/postings/%s", strings.TrimRight(s.opts.BaseURL, "/"), url.PathEscape(company)))
	if err != nil {
		return nil, fmt.Errorf("request postings for %s: %w", company, err)
	}
	if err := httpclient.StatusError(resp); err != nil {
		return nil, err
	}
	return body, nil
}

func (s *LeverScraper) full(postings []models.RawPosting) bool {
	return s.opts.MaxResults > 0 && len(postings) >= s.opts.MaxResults
}

func (s *LeverScraper) toPosting(company string, p posting) (models.RawPosting, bool) {
	title := strings.TrimSpace(p.Text)
	if title == "" {
		title = strings.TrimSpace(p.Title)
	}
	if c := strings.TrimSpace(p.Company); c != "" {
		company = c
	}
	link := strings.TrimSpace(p.HostedURL)
	if link == "" {
		link = strings.TrimSpace(p.ApplyURL)
	}
	if title == "" || link == "" {
		return models.RawPosting{}, false
	}
	return models.RawPosting{
		Title:    title,
		Company:  company,
		Location: strings.TrimSpace(p.Categories.Location),
		URL:      link,
		Source:   models.SourceBoardAPI,
		Adapter:  s.Name(),
	}, true
}
