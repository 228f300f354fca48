package greenhouse

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"

	"ds-job-scraper/internal/httpclient"
	"ds-job-scraper/internal/models"
)

const DefaultBaseURL = "https://boards-api.greenhouse.io"

type Options struct {
	Name       string
	BaseURL    string
	Boards     []string
	MaxResults int
}

type GreenhouseScraper struct {
	client *resty.Client
	opts   Options
}

type boardResponse struct {
	Jobs []job `json:"jobs"`
}

type job struct {
	Title       string `json:"title"`
	AbsoluteURL string `json:"absolute_url"`
	CompanyName string `json:"company_name"`
	Location    struct {
		Name string `json:"name"`
	} `json:"location"`
	Company struct {
		Name string `json:"name"`
	} `json:"company"`
}

func NewGreenhouseScraper(client *resty.Client, opts Options) *GreenhouseScraper {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Name == "" {
		opts.Name = "greenhouse"
	}
	return &GreenhouseScraper{client: client, opts: opts}
}

func (s *GreenhouseScraper) Name() string {
	return s.opts.Name
}

func (s *GreenhouseScraper) Kind() models.Source {
	return models.SourceBoardAPI
}

// Scrape fetches every configured board. A board that fails is logged and
// skipped; the scrape only fails when no board could be read at all.
func (s *GreenhouseScraper) Scrape(ctx context.Context) ([]models.RawPosting, error) {
	var postings []models.RawPosting
	var failures []error

	for _, board := range s.opts.Boards {
		if err := ctx.Err(); err != nil {
			log.Printf("⏱️ [%s] Stopping early: %v", s.Name(), err)
			break
		}

		jobs, err := s.fetchBoard(ctx, board)
		if err != nil {
			log.Printf("⚠️ [%s] Board %s failed: %v", s.Name(), board, err)
			failures = append(failures, err)
			continue
		}
		log.Printf("🏢 [%s] Board %s: %d jobs", s.Name(), board, len(jobs))

		for _, j := range jobs {
			p, ok := s.toPosting(board, j)
			if !ok {
				continue
			}
			postings = append(postings, p)
			if s.opts.MaxResults > 0 && len(postings) >= s.opts.MaxResults {
				log.Printf("🛑 [%s] Reached max_results=%d", s.Name(), s.opts.MaxResults)
				return postings, nil
			}
		}
	}

	if len(s.opts.Boards) > 0 && len(failures) == len(s.opts.Boards) {
		return nil, fmt.Errorf("all %d greenhouse boards failed: %w", len(failures), errors.Join(failures...))
	}
	return postings, nil
}

func (s *GreenhouseScraper) fetchBoard(ctx context.Context, board string) ([]job, error) {
	var body boardResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("content", "true").
		SetResult(&body).
		ForceContentType("application/json").
		Get(fmt.Sprintf("%s/v1/boards/%s/jobs", strings.TrimRight(s.opts.BaseURL, "/"), url.PathEscape(board)))
	if err != nil {
		return nil, fmt.Errorf("request board %s: %w", board, err)
	}
	if err := httpclient.StatusError(resp); err != nil {
		return nil, err
	}
	return body.Jobs, nil
}

func (s *GreenhouseScraper) toPosting(board string, j job) (models.RawPosting, bool) {
	title := strings.TrimSpace(j.Title)
	link := strings.TrimSpace(j.AbsoluteURL)
	if title == "" || link == "" {
		return models.RawPosting{}, false
	}

	company := strings.TrimSpace(j.Company.Name)
	if company == "" {
		company = strings.TrimSpace(j.CompanyName)
	}
	if company == "" {
		company = board
	}

	return models.RawPosting{
		Title:    title,
		Company:  company,
		Location: strings.TrimSpace(j.Location.Name),
		URL:      link,
		Source:   models.SourceBoardAPI,
		Adapter:  s.Name(),
	}, true
}
