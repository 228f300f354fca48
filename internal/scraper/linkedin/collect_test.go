package linkedin

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ds-job-scraper/internal/dedup"
	"ds-job-scraper/internal/models"
)

// setupPage starts headless chromium, skipping when the driver is not installed
func setupPage(t *testing.T) playwright.Page {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping browser test in short mode")
	}
	pw, err := playwright.Run()
	if err != nil {
		t.Skipf("playwright not available: %v", err)
	}
	t.Cleanup(func() { pw.Stop() })

	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{Headless: playwright.Bool(true)})
	if err != nil {
		t.Skipf("chromium not available: %v", err)
	}
	t.Cleanup(func() { b.Close() })

	page, err := b.NewPage()
	require.NoError(t, err)
	page.SetDefaultTimeout(10000)
	return page
}

type mockCard struct {
	id       int // 0 renders a card without a link
	title    string
	company  string
	location string
	// detail is what clicking the card puts in the detail pane, "" leaves it empty
	detail string
}

func resultsHTML(cards ...mockCard) string {
	var b strings.Builder
	b.WriteString(`<html><body><h1 class="topcard__title"></h1><ul class="jobs-search-results-list">`)
	for _, c := range cards {
		fmt.Fprintf(&b, `<li class="jobs-search-results__list-item" data-t=%q onclick="if (this.dataset.t) document.querySelector('h1.topcard__title').innerText = this.dataset.t">`, c.detail)
		if c.id > 0 {
			fmt.Fprintf(&b, `<a class="base-card__full-link" href="/jobs/view/%d/?trk=search" onclick="event.preventDefault()">view</a>`, c.id)
		}
		fmt.Fprintf(&b, `<h3 class="base-search-card__title">%s</h3>`, c.title)
		fmt.Fprintf(&b, `<h4 class="base-search-card__subtitle">%s</h4>`, c.company)
		if c.location != "" {
			fmt.Fprintf(&b, `<span class="job-search-card__location">%s</span>`, c.location)
		}
		b.WriteString(`</li>`)
	}
	b.WriteString(`</ul></body></html>`)
	return b.String()
}

func jobURL(id int) string {
	return fmt.Sprintf("%s/jobs/view/%d", DefaultBaseURL, id)
}

func TestLinkedInScraper_Collect(t *testing.T) {
	page := setupPage(t)

	pages := map[string]string{
		"": resultsHTML(
			mockCard{id: 1, title: "Data Scientist A", company: "Seen Co", location: "Tel Aviv, Israel", detail: "Detail A"},
			mockCard{title: "No Link Data Scientist", company: "Broken Co"},
			mockCard{id: 2, title: "Data Scientist B", company: "New Co", location: "Haifa, Israel", detail: "Detail B"},
		),
		"25": resultsHTML(
			mockCard{id: 3, title: "Data Scientist D", company: "Quiet Co", location: "Herzliya, Israel"},
			mockCard{id: 4, title: "Data Scientist E", company: "Seen Co"},
		),
		"50": resultsHTML(
			mockCard{id: 5, title: "Data Scientist F", company: "Late Co", detail: "Detail F"},
		),
	}

	var mu sync.Mutex
	var visited []string
	require.NoError(t, page.Route("**/*", func(route playwright.Route) {
		start := ""
		if u, err := url.Parse(route.Request().URL()); err == nil {
			start = u.Query().Get("start")
		}
		mu.Lock()
		visited = append(visited, start)
		mu.Unlock()

		body, ok := pages[start]
		if !ok {
			body = resultsHTML()
		}
		route.Fulfill(playwright.RouteFulfillOptions{
			Status:      playwright.Int(200),
			ContentType: playwright.String("text/html"),
			Body:        body,
		})
	}))

	s := NewLinkedInScraper(Options{
		Query:         "Data Scientist",
		Location:      "Israel",
		MaxPages:      5,
		MinNewResults: 2,
	})
	s.UseSeen(dedup.FromRecords([]models.JobRecord{{URL: jobURL(1)}, {URL: jobURL(4)}}))

	postings, err := s.collect(context.Background(), page)
	require.NoError(t, err)
	require.Len(t, postings, 4, "the card without a link is skipped")

	// already archived: read from the card, detail pane never opened
	assert.Equal(t, models.RawPosting{
		Title:     "Data Scientist A",
		Company:   "Seen Co",
		Location:  "Tel Aviv, Israel",
		URL:       jobURL(1),
		Source:    models.SourceBrowser,
		Prescoped: true,
		Adapter:   "linkedin",
	}, postings[0])

	// new: title from the detail pane, company falls back to the card
	assert.Equal(t, jobURL(2), postings[1].URL)
	assert.Equal(t, "Detail B", postings[1].Title)
	assert.Equal(t, "New Co", postings[1].Company)

	// new but the detail pane stayed empty
	assert.Equal(t, jobURL(3), postings[2].URL)
	assert.Equal(t, "Data Scientist D", postings[2].Title)

	assert.Equal(t, jobURL(4), postings[3].URL)
	assert.Equal(t, "Israel", postings[3].Location, "missing card location uses the search location")

	mu.Lock()
	defer mu.Unlock()
	assert.NotContains(t, visited, "50", "two new postings satisfy min_new_results before the third page")
}
