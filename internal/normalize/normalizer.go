package normalize

import (
	"log"
	"strings"
	"time"
	"unicode"

	"ds-job-scraper/internal/models"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type Options struct {
	TitleKeywords    []string
	LocationKeywords []string
	DefaultLocation  string
	// Per-adapter title keyword overrides, keyed by adapter name
	SourceTitleKeywords map[string][]string
}

// Normalizer maps raw postings to archive records and drops irrelevant ones
type Normalizer struct {
	titleKeywords       []string
	locationKeywords    []string
	defaultLocation     string
	sourceTitleKeywords map[string][]string
}

func New(opts Options) *Normalizer {
	n := &Normalizer{
		titleKeywords:       foldAll(opts.TitleKeywords),
		locationKeywords:    foldAll(opts.LocationKeywords),
		defaultLocation:     opts.DefaultLocation,
		sourceTitleKeywords: make(map[string][]string, len(opts.SourceTitleKeywords)),
	}
	for name, kws := range opts.SourceTitleKeywords {
		if len(kws) > 0 {
			n.sourceTitleKeywords[name] = foldAll(kws)
		}
	}
	return n
}

// Normalize returns the canonical record for p, or false when p is filtered out
func (n *Normalizer) Normalize(p models.RawPosting, collectedAt time.Time, snapshotID string) (models.JobRecord, bool) {
	title := CleanText(p.Title)
	url := strings.TrimSpace(p.URL)
	if title == "" || url == "" {
		return models.JobRecord{}, false
	}

	if !n.MatchesTitle(p.Adapter, title) {
		return models.JobRecord{}, false
	}

	location := CleanText(p.Location)
	//empty location is not a mismatch, the board simply did not say
	if location != "" && !p.Prescoped && !n.MatchesLocation(location) {
		log.Printf("      ❌ [Location] %s - %s", title, location)
		return models.JobRecord{}, false
	}
	if location == "" {
		location = n.defaultLocation
	}

	return models.JobRecord{
		Source:      p.Source,
		JobTitle:    title,
		Company:     CleanText(p.Company),
		Location:    location,
		URL:         url,
		CollectedAt: collectedAt.UTC(),
		SnapshotID:  snapshotID,
	}, true
}

// NormalizeAll applies Normalize to a batch and reports how many were dropped
func (n *Normalizer) NormalizeAll(postings []models.RawPosting, collectedAt time.Time, snapshotID string) ([]models.JobRecord, int) {
	records := make([]models.JobRecord, 0, len(postings))
	dropped := 0
	for _, p := range postings {
		r, ok := n.Normalize(p, collectedAt, snapshotID)
		if !ok {
			dropped++
			continue
		}
		records = append(records, r)
	}
	return records, dropped
}

// MatchesTitle is a case and accent insensitive substring match against the keywords
func (n *Normalizer) MatchesTitle(adapter, title string) bool {
	keywords := n.titleKeywords
	if override, ok := n.sourceTitleKeywords[adapter]; ok {
		keywords = override
	}
	return containsAny(Fold(title), keywords)
}

func (n *Normalizer) MatchesLocation(location string) bool {
	return containsAny(Fold(location), n.locationKeywords)
}

// Fold strips diacritics and lower-cases s
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		result = s
	}
	return strings.ToLower(result)
}

// CleanText trims and collapses internal whitespace
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func foldAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, Fold(s))
	}
	return out
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
