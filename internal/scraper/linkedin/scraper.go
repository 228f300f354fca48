package linkedin

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"ds-job-scraper/internal/browser"
	"ds-job-scraper/internal/dedup"
	"ds-job-scraper/internal/models"
)

const (
	DefaultBaseURL = "https://www.linkedin.com"
	// LinkedIn shows 25 cards per search page and pages by start offset
	PageSize = 25

	cardSelector      = "li.jobs-search-results__list-item, li.scaffold-layout__list-item, div.base-card, div.job-card-container"
	listSelector      = ".jobs-search-results-list, .scaffold-layout__list"
	detailTitleSel    = "h1.jobs-unified-top-card__job-title, .job-details-jobs-unified-top-card__job-title, h1.topcard__title"
	detailCompanySel  = "a.jobs-unified-top-card__company-name, .job-details-jobs-unified-top-card__company-name, a.topcard__org-name-link, .jobs-unified-top-card__company-name"
	cardLinkSel       = "a.base-card__full-link, a.job-card-list__title, a.job-card-container__link, a"
	cardTitleSel      = ".base-search-card__title, .job-card-list__title, .job-card-container__link"
	cardCompanySel    = ".base-search-card__subtitle a, .job-card-container__company-name, .base-search-card__subtitle, .job-card-container__primary-description, .artdeco-entity-lockup__subtitle"
	cardLocationSel   = ".job-search-card__location, .job-card-container__metadata-item, .artdeco-entity-lockup__caption"
	consentButtonSel  = "button:has-text('Accept'), button:has-text('Accept cookies')"
	loggedInSelector  = "#global-nav"
	navigationTimeout = 60000
)

// ErrNoCredentials means there is neither a saved session nor a login to create one
var ErrNoCredentials = errors.New("linkedin: no storage state and LINKEDIN_EMAIL/LINKEDIN_PASSWORD not set")

type Options struct {
	Name             string
	Query            string
	Location         string
	Email            string
	Password         string
	Headless         bool
	StorageStatePath string
	MaxResults       int
	MaxPages         int
	MinNewResults    int
	Debug            bool
	BaseURL          string
}

type LinkedInScraper struct {
	opts Options
	seen *dedup.SeenSet
	shot *browser.ScreenshotDebugger
}

func NewLinkedInScraper(opts Options) *LinkedInScraper {
	if opts.Name == "" {
		opts.Name = "linkedin"
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	s := &LinkedInScraper{opts: opts}
	if opts.Debug {
		s.shot = browser.NewScreenshotDebugger("")
	}
	return s
}

func (s *LinkedInScraper) Name() string {
	return s.opts.Name
}

func (s *LinkedInScraper) Kind() models.Source {
	return models.SourceBrowser
}

// UseSeen hands the scraper the URLs already in the archive
func (s *LinkedInScraper) UseSeen(seen *dedup.SeenSet) {
	s.seen = seen
}

func (s *LinkedInScraper) Scrape(ctx context.Context) ([]models.RawPosting, error) {
	session, err := browser.LoadSession(s.opts.StorageStatePath)
	if err != nil {
		return nil, err
	}
	if session == nil && (s.opts.Email == "" || s.opts.Password == "") {
		return nil, ErrNoCredentials
	}

	pm, err := browser.NewPlaywright(browser.LaunchOptions{Headless: s.opts.Headless})
	if err != nil {
		return nil, err
	}
	defer pm.Close()

	bctx, err := pm.NewContext(session)
	if err != nil {
		return nil, err
	}
	defer bctx.Close()

	page, err := bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create new page: %w", err)
	}
	page.SetDefaultTimeout(navigationTimeout)

	if session == nil || !session.StorageState {
		if err := s.login(ctx, page); err != nil {
			s.shot.CaptureAndLog(page, "linkedin_login", "Login failed")
			return nil, err
		}
		if err := browser.SaveStorageState(bctx, s.opts.StorageStatePath); err != nil {
			log.Printf("⚠️ [%s] %v", s.Name(), err)
		}
	}

	return s.collect(ctx, page)
}

func (s *LinkedInScraper) login(ctx context.Context, page playwright.Page) error {
	// a cookie export may already be logged in
	if s.opts.Email == "" || s.opts.Password == "" {
		return nil
	}

	log.Printf("🔐 [%s] Logging in as %s", s.Name(), s.opts.Email)
	if _, err := page.Goto(s.opts.BaseURL+"/login", playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return fmt.Errorf("failed to load linkedin login: %w", err)
	}
	s.dismissConsent(page)

	if err := page.Locator("input#username").Fill(s.opts.Email); err != nil {
		return fmt.Errorf("fill username: %w", err)
	}
	browser.RandomDelay(ctx, 300, 800)
	if err := page.Locator("input#password").Fill(s.opts.Password); err != nil {
		return fmt.Errorf("fill password: %w", err)
	}
	if err := page.Locator("button[type=submit]").Click(); err != nil {
		return fmt.Errorf("submit login: %w", err)
	}

	if _, err := page.WaitForSelector(loggedInSelector, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(30000),
	}); err != nil {
		return fmt.Errorf("login verification failed - global nav not found")
	}
	log.Printf("✅ [%s] Login confirmed.", s.Name())
	return nil
}

// collect walks the search result pages until the stop policy says enough
func (s *LinkedInScraper) collect(ctx context.Context, page playwright.Page) ([]models.RawPosting, error) {
	policy := stopPolicy{
		maxResults: s.opts.MaxResults,
		maxPages:   s.opts.MaxPages,
		minNew:     s.opts.MinNewResults,
	}

	var postings []models.RawPosting
	inRun := make(map[string]struct{})
	newCount := 0

	for pageNum := 0; ; pageNum++ {
		if stop, why := policy.done(ctx, len(postings), newCount, pageNum); stop {
			log.Printf("🛑 [%s] Stopping: %s (%d postings, %d new)", s.Name(), why, len(postings), newCount)
			break
		}

		searchURL := s.searchURL(pageNum * PageSize)
		log.Printf("🌐 [%s] Visiting %s", s.Name(), searchURL)
		if _, err := page.Goto(searchURL, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		}); err != nil {
			if pageNum == 0 {
				return nil, fmt.Errorf("failed to load job search page: %w", err)
			}
			log.Printf("⚠️ [%s] Page %d failed: %v", s.Name(), pageNum, err)
			break
		}
		s.dismissConsent(page)

		cards, err := s.waitForCards(ctx, page)
		if err != nil || len(cards) == 0 {
			if pageNum == 0 {
				s.shot.CaptureAndLog(page, "linkedin_empty", "Job list not found")
			}
			log.Printf("ℹ️ [%s] No more job cards on page %d", s.Name(), pageNum)
			break
		}
		log.Printf("📄 [%s] Page %d: %d cards", s.Name(), pageNum, len(cards))

		added := 0
		for _, card := range cards {
			if ctx.Err() != nil || policy.full(len(postings)) {
				break
			}
			p, isNew, ok := s.readCard(ctx, page, card, inRun)
			if !ok {
				continue
			}
			postings = append(postings, p)
			added++
			if isNew {
				newCount++
			}
		}
		if added == 0 {
			log.Printf("ℹ️ [%s] Page %d had nothing new for this run", s.Name(), pageNum)
			break
		}

		if err := browser.HumanScroll(ctx, page); err != nil {
			log.Printf("⚠️ [%s] Scroll failed: %v", s.Name(), err)
		}
		if err := browser.MouseJiggle(ctx, page); err != nil {
			log.Printf("⚠️ [%s] Mouse move failed: %v", s.Name(), err)
		}
		browser.RandomDelay(ctx, 800, 1600)
	}

	log.Printf("✅ [%s] Collected %d postings (%d not in archive)", s.Name(), len(postings), newCount)
	return postings, nil
}

// waitForCards scrolls the result list until cards appear, up to 10 tries
func (s *LinkedInScraper) waitForCards(ctx context.Context, page playwright.Page) ([]playwright.Locator, error) {
	cards := page.Locator(cardSelector)
	for i := 0; i < 10; i++ {
		if n, _ := cards.Count(); n > 0 {
			break
		}
		if err := browser.ScrollToBottom(page, listSelector); err != nil {
			log.Printf("⚠️ [%s] Scroll failed: %v", s.Name(), err)
		}
		browser.RandomDelay(ctx, 800, 1200)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	// lazy-loaded cards fill in as the list scrolls
	browser.ScrollToBottom(page, listSelector)
	browser.RandomDelay(ctx, 500, 1000)
	return cards.All()
}

// readCard extracts one posting. Cards already in the archive are read from
// card data only; new ones are opened to read the detail panel.
func (s *LinkedInScraper) readCard(ctx context.Context, page playwright.Page, card playwright.Locator, inRun map[string]struct{}) (models.RawPosting, bool, bool) {
	anchor := card.Locator(cardLinkSel).First()
	if n, err := anchor.Count(); err != nil || n == 0 {
		return models.RawPosting{}, false, false
	}
	href, err := anchor.GetAttribute("href", playwright.LocatorGetAttributeOptions{Timeout: playwright.Float(2000)})
	if err != nil || href == "" {
		return models.RawPosting{}, false, false
	}
	link, ok := canonicalURL(s.opts.BaseURL, href)
	if !ok {
		return models.RawPosting{}, false, false
	}
	if _, dup := inRun[link]; dup {
		return models.RawPosting{}, false, false
	}
	inRun[link] = struct{}{}

	isNew := !s.seen.IsSeen(link)
	var title, company string
	if isNew {
		title, company = s.readDetail(ctx, page, card)
	}
	if title == "" {
		title = normalizeTitle(firstText(card, cardTitleSel))
	}
	if company == "" {
		company = firstText(card, cardCompanySel)
	}
	if strings.EqualFold(company, "none") {
		company = ""
	}

	location := firstText(card, cardLocationSel)
	if location == "" {
		location = s.opts.Location
	}

	return models.RawPosting{
		Title:     title,
		Company:   company,
		Location:  location,
		URL:       link,
		Source:    models.SourceBrowser,
		Prescoped: true,
		Adapter:   s.Name(),
	}, isNew, true
}

func (s *LinkedInScraper) readDetail(ctx context.Context, page playwright.Page, card playwright.Locator) (string, string) {
	if err := card.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(5000)}); err != nil {
		// overlays can intercept the click; the card data still works
		log.Printf("⚠️ [%s] Could not open card: %v", s.Name(), err)
		return "", ""
	}
	browser.RandomDelay(ctx, 400, 900)

	title := normalizeTitle(firstText(page.Locator(detailTitleSel), ""))
	company := firstText(page.Locator(detailCompanySel), "")
	return title, company
}

func (s *LinkedInScraper) dismissConsent(page playwright.Page) {
	btn := page.Locator(consentButtonSel).First()
	if visible, _ := btn.IsVisible(); visible {
		btn.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(3000)})
	}
}

func (s *LinkedInScraper) searchURL(start int) string {
	q := url.Values{}
	q.Set("keywords", s.opts.Query)
	q.Set("location", s.opts.Location)
	if start > 0 {
		q.Set("start", strconv.Itoa(start))
	}
	return strings.TrimRight(s.opts.BaseURL, "/") + "/jobs/search/?" + q.Encode()
}

// firstText returns the trimmed inner text of the first match of sel under
// loc (or of loc itself when sel is empty), or "" when nothing matches
func firstText(loc playwright.Locator, sel string) string {
	if sel != "" {
		loc = loc.Locator(sel)
	}
	el := loc.First()
	if n, err := el.Count(); err != nil || n == 0 {
		return ""
	}
	txt, err := el.InnerText(playwright.LocatorInnerTextOptions{Timeout: playwright.Float(2000)})
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(txt), " ")
}

type stopPolicy struct {
	maxResults int
	maxPages   int
	minNew     int
}

func (p stopPolicy) full(results int) bool {
	return p.maxResults > 0 && results >= p.maxResults
}

// done decides, before visiting page pagesVisited, whether to stop
func (p stopPolicy) done(ctx context.Context, results, newResults, pagesVisited int) (bool, string) {
	switch {
	case ctx.Err() != nil:
		return true, "time budget exhausted"
	case p.full(results):
		return true, fmt.Sprintf("max_results=%d reached", p.maxResults)
	case p.minNew > 0 && newResults >= p.minNew:
		return true, fmt.Sprintf("min_new_results=%d reached", p.minNew)
	case p.maxPages > 0 && pagesVisited >= p.maxPages:
		return true, fmt.Sprintf("max_pages=%d visited", p.maxPages)
	}
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < 5*time.Second {
		return true, "time budget nearly exhausted"
	}
	return false, ""
}
