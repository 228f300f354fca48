// Package googlejobs reads Google Jobs results through a hosted search API
// and keeps the LinkedIn-sourced postings.
package googlejobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"

	"ds-job-scraper/internal/httpclient"
	"ds-job-scraper/internal/models"
)

// ErrMissingAPIKey means the provider cannot authenticate at all
var ErrMissingAPIKey = errors.New("search api key is not set")

type paging int

const (
	// pageToken continues with the next_page_token returned by the previous page
	pageToken paging = iota
	// pageNumber requests page=1,2,... until a page comes back empty
	pageNumber
)

// Provider describes one hosted Google Jobs API
type Provider struct {
	Name    string
	BaseURL string
	paging  paging
}

var (
	SerpAPI   = Provider{Name: "serpapi", BaseURL: "https://serpapi.com/search.json", paging: pageToken}
	SearchAPI = Provider{Name: "searchapi", BaseURL: "https://www.searchapi.io/api/v1/search", paging: pageNumber}
)

const defaultMaxPages = 3

type Options struct {
	Name       string
	APIKey     string
	Query      string
	Location   string
	MaxPages   int
	MaxResults int
	// BaseURL overrides the provider endpoint
	BaseURL string
}

type GoogleJobsScraper struct {
	client   *resty.Client
	provider Provider
	opts     Options
}

type searchResponse struct {
	Error       string `json:"error"`
	JobsResults []item `json:"jobs_results"`
	Pagination  struct {
		NextPageToken string `json:"next_page_token"`
	} `json:"serpapi_pagination"`
	SearchAPIPagination struct {
		NextPageToken string `json:"next_page_token"`
	} `json:"pagination"`
}

type link struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

type item struct {
	Title        string `json:"title"`
	CompanyName  string `json:"company_name"`
	Location     string `json:"location"`
	Via          string `json:"via"`
	JobID        string `json:"job_id"`
	ApplyOptions []link `json:"apply_options"`
	RelatedLinks []link `json:"related_links"`
}

func NewGoogleJobsScraper(client *resty.Client, provider Provider, opts Options) *GoogleJobsScraper {
	if opts.Name == "" {
		opts.Name = provider.Name
	}
	if opts.BaseURL == "" {
		opts.BaseURL = provider.BaseURL
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = defaultMaxPages
	}
	return &GoogleJobsScraper{client: client, provider: provider, opts: opts}
}

func (s *GoogleJobsScraper) Name() string {
	return s.opts.Name
}

func (s *GoogleJobsScraper) Kind() models.Source {
	return models.SourceSearchAPI
}

func (s *GoogleJobsScraper) Scrape(ctx context.Context) ([]models.RawPosting, error) {
	if s.opts.APIKey == "" {
		return nil, fmt.Errorf("%s: %w", s.Name(), ErrMissingAPIKey)
	}

	log.Printf("🔎 [%s] Searching %q in %q", s.Name(), s.opts.Query, s.opts.Location)

	var postings []models.RawPosting
	token := ""
	for page := 1; page <= s.opts.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			log.Printf("⏱️ [%s] Stopping early: %v", s.Name(), err)
			break
		}

		resp, err := s.search(ctx, page, token)
		if err != nil {
			if page == 1 {
				return nil, err
			}
			log.Printf("⚠️ [%s] Page %d failed, keeping %d postings: %v", s.Name(), page, len(postings), err)
			break
		}

		kept := 0
		for _, it := range resp.JobsResults {
			p, ok := s.toPosting(it)
			if !ok {
				continue
			}
			postings = append(postings, p)
			kept++
			if s.opts.MaxResults > 0 && len(postings) >= s.opts.MaxResults {
				log.Printf("🛑 [%s] Reached max_results=%d", s.Name(), s.opts.MaxResults)
				return postings, nil
			}
		}
		log.Printf("📄 [%s] Page %d: %d results, %d from LinkedIn", s.Name(), page, len(resp.JobsResults), kept)

		if len(resp.JobsResults) == 0 {
			break
		}
		if s.provider.paging == pageToken {
			token = resp.Pagination.NextPageToken
			if token == "" {
				token = resp.SearchAPIPagination.NextPageToken
			}
			if token == "" {
				break
			}
		}
	}
	return postings, nil
}

func (s *GoogleJobsScraper) search(ctx context.Context, page int, token string) (*searchResponse, error) {
	params := map[string]string{
		"engine":   "google_jobs",
		"q":        s.opts.Query,
		"location": s.opts.Location,
		"api_key":  s.opts.APIKey,
	}
	switch s.provider.paging {
	case pageToken:
		if token != "" {
			params["next_page_token"] = token
		}
	case pageNumber:
		if page > 1 {
			params["page"] = strconv.Itoa(page)
		}
	}

	var body searchResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetResult(&body).
		SetError(&body).
		ForceContentType("application/json").
		Get(s.opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s page %d: %w", s.Name(), page, err)
	}
	if resp.IsError() {
		if body.Error != "" {
			return nil, fmt.Errorf("%s page %d: status %d: %s", s.Name(), page, resp.StatusCode(), body.Error)
		}
		return nil, httpclient.StatusError(resp)
	}
	// an empty result set is reported as an error message with 200
	if body.Error != "" && len(body.JobsResults) == 0 {
		log.Printf("ℹ️ [%s] %s", s.Name(), body.Error)
	}
	return &body, nil
}

func (s *GoogleJobsScraper) toPosting(it item) (models.RawPosting, bool) {
	if !fromLinkedIn(it) {
		return models.RawPosting{}, false
	}

	title := strings.TrimSpace(it.Title)
	company := strings.TrimSpace(it.CompanyName)
	url := postingURL(it)
	if title == "" || company == "" || url == "" {
		return models.RawPosting{}, false
	}

	location := strings.TrimSpace(it.Location)
	if location == "" {
		location = s.opts.Location
	}
	return models.RawPosting{
		Title:     title,
		Company:   company,
		Location:  location,
		URL:       url,
		Source:    models.SourceSearchAPI,
		Prescoped: true,
		Adapter:   s.Name(),
	}, true
}

func fromLinkedIn(it item) bool {
	if strings.Contains(strings.ToLower(it.Via), "linkedin") {
		return true
	}
	return linkedInApplyLink(it) != ""
}

func linkedInApplyLink(it item) string {
	for _, opt := range it.ApplyOptions {
		l := strings.TrimSpace(opt.Link)
		if strings.Contains(strings.ToLower(l), "linkedin.com") {
			return l
		}
	}
	return ""
}

// postingURL prefers the LinkedIn apply link, then the first related link, then the job id
func postingURL(it item) string {
	if l := linkedInApplyLink(it); l != "" {
		return l
	}
	if len(it.RelatedLinks) > 0 {
		if l := strings.TrimSpace(it.RelatedLinks[0].Link); l != "" {
			return l
		}
	}
	return strings.TrimSpace(it.JobID)
}
