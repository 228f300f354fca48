package lever

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ds-job-scraper/internal/httpclient"
	"ds-job-scraper/internal/models"
)

var testHTTP = httpclient.Options{Retries: 1, MinBackoff: time.Millisecond, MaxBackoff: time.Millisecond}

// leverServer serves total postings for /v0/postings/acme, honouring skip and limit
func leverServer(t *testing.T, total int) (*httptest.Server, *int) {
	t.Helper()
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v0/postings/acme" {
			http.NotFound(w, r)
			return
		}
		calls++
		assert.Equal(t, "json", r.URL.Query().Get("mode"))
		skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

		page := []map[string]any{}
		for i := skip; i < total && i < skip+limit; i++ {
			item := map[string]any{
				"text":       fmt.Sprintf("Data Scientist %d", i),
				"categories": map[string]any{"location": "Tel Aviv"},
			}
			if i%2 == 0 {
				item["hostedUrl"] = fmt.Sprintf("https://jobs.lever.co/acme/%d", i)
			} else {
				item["applyUrl"] = fmt.Sprintf("https://jobs.lever.co/acme/%d/apply", i)
			}
			page = append(page, item)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(page)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestLeverScraper_Paginates(t *testing.T) {
	srv, calls := leverServer(t, 5)

	s := NewLeverScraper(httpclient.New(testHTTP), Options{
		BaseURL:   srv.URL,
		Companies: []string{"acme"},
		PageSize:  2,
	})
	postings, err := s.Scrape(context.Background())
	require.NoError(t, err)
	require.Len(t, postings, 5)
	assert.Equal(t, 3, *calls, "pages of 2, 2 and 1")

	assert.Equal(t, models.RawPosting{
		Title:    "Data Scientist 0",
		Company:  "acme",
		Location: "Tel Aviv",
		URL:      "https://jobs.lever.co/acme/0",
		Source:   models.SourceBoardAPI,
		Adapter:  "lever",
	}, postings[0])
	assert.Equal(t, "https://jobs.lever.co/acme/1/apply", postings[1].URL, "applyUrl is the fallback")
}

func TestLeverScraper_MaxResults(t *testing.T) {
	srv, calls := leverServer(t, 50)

	s := NewLeverScraper(httpclient.New(testHTTP), Options{
		BaseURL:    srv.URL,
		Companies:  []string{"acme"},
		PageSize:   10,
		MaxResults: 15,
	})
	postings, err := s.Scrape(context.Background())
	require.NoError(t, err)
	assert.Len(t, postings, 15)
	assert.Equal(t, 2, *calls)
}

func TestLeverScraper_PartialFailure(t *testing.T) {
	srv, _ := leverServer(t, 1)

	s := NewLeverScraper(httpclient.New(testHTTP), Options{
		BaseURL:   srv.URL,
		Companies: []string{"gone", "acme"},
	})
	postings, err := s.Scrape(context.Background())
	require.NoError(t, err)
	assert.Len(t, postings, 1)

	s = NewLeverScraper(httpclient.New(testHTTP), Options{
		BaseURL:   srv.URL,
		Companies: []string{"gone"},
	})
	_, err = s.Scrape(context.Background())
	assert.Error(t, err)
}

func TestLeverScraper_TitleAndCompanyFallbacks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
			{"title": "Data Scientist", "company": "Acme Labs", "hostedUrl": "https://jobs.lever.co/acme/a"},
			{"text": "ML Data Scientist", "title": "ignored", "hostedUrl": "https://jobs.lever.co/acme/b"},
			{"hostedUrl": "https://jobs.lever.co/acme/c"}
		]`)
	}))
	defer srv.Close()

	s := NewLeverScraper(httpclient.New(testHTTP), Options{
		BaseURL:   srv.URL,
		Companies: []string{"acme"},
	})
	postings, err := s.Scrape(context.Background())
	require.NoError(t, err)
	require.Len(t, postings, 2, "posting without any title is skipped")

	assert.Equal(t, "Data Scientist", postings[0].Title)
	assert.Equal(t, "Acme Labs", postings[0].Company)
	assert.Equal(t, "ML Data Scientist", postings[1].Title)
	assert.Equal(t, "acme", postings[1].Company, "slug when the posting has no company")
}
