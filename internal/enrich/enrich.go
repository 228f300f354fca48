// Package enrich maps raw locations and titles to canonical display values.
// It is pure and runs at read time only; the archive never stores its output.
package enrich

import (
	"strings"

	"ds-job-scraper/internal/models"
	"ds-job-scraper/internal/normalize"
)

const TelAviv = "Tel Aviv-Yafo"

var telAvivVariants = []string{"tel aviv-yafo", "tel-aviv-yafo", "tel aviv yafo", "tel aviv", "tel-aviv"}

type rule struct {
	keywords  []string
	canonical string
}

// first match wins
var cityRules = []rule{
	{[]string{"jerusalem"}, "Jerusalem"},
	{[]string{"haifa"}, "Haifa"},
	{[]string{"herzliya", "herzliyya"}, "Herzliya"},
	{[]string{"ra'anana", "raanana"}, "Ra'anana"},
	{[]string{"beer sheva", "be'er sheva", "beersheba"}, "Beer Sheva"},
	{[]string{"netanya"}, "Netanya"},
	{[]string{"ashdod"}, "Ashdod"},
	{[]string{"ashkelon"}, "Ashkelon"},
	{[]string{"rishon"}, "Rishon LeZion"},
	{[]string{"petah tikva", "petach tikva", "petah tiqwa"}, "Petah Tikva"},
}

// more specific titles come first
var titleRules = []rule{
	{[]string{"data science manager", "head of data science", "data science lead", "director of data science", "data science team lead"}, "Data Science Manager"},
	{[]string{"bioinformatic", "computational biolog"}, "Bioinformatics Scientist"},
	{[]string{"research scientist", "applied scientist", "researcher"}, "Research Scientist"},
	{[]string{"machine learning engineer", "ml engineer", "mlops", "machine learning developer"}, "Machine Learning Engineer"},
	{[]string{"ai engineer", "genai", "llm engineer", "ai developer"}, "AI Engineer"},
	{[]string{"data architect"}, "Data Architect"},
	{[]string{"data engineer"}, "Data Engineer"},
	{[]string{"data analyst", "analytics"}, "Data Analyst"},
	{[]string{"data scientist", "data science"}, "Data Scientist"},
}

// City returns the canonical city for a location. An empty location or a
// bare "Israel" maps to Tel Aviv-Yafo; unknown places keep their name
// without the trailing country.
func City(location string) string {
	t := strings.Trim(normalize.CleanText(location), ", ")
	if t == "" {
		return TelAviv
	}
	tl := normalize.Fold(t)
	if tl == "israel" {
		return TelAviv
	}
	if strings.HasSuffix(strings.ToLower(t), ", israel") {
		t = strings.TrimSpace(t[:len(t)-len(", israel")])
		tl = normalize.Fold(t)
	}

	for _, v := range telAvivVariants {
		if strings.Contains(tl, v) {
			return TelAviv
		}
	}
	if c, ok := match(tl, cityRules); ok {
		return c
	}
	return t
}

// Title returns the canonical title, or the cleaned title when no rule applies
func Title(title string) string {
	t := normalize.CleanText(title)
	if t == "" {
		return "Unknown"
	}
	if c, ok := match(normalize.Fold(t), titleRules); ok {
		return c
	}
	return t
}

func match(folded string, rules []rule) (string, bool) {
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(folded, kw) {
				return r.canonical, true
			}
		}
	}
	return "", false
}

// Row is a record with its display-only canonical fields
type Row struct {
	models.JobRecord
	CityNormalized  string `json:"city_normalized"`
	TitleNormalized string `json:"title_normalized"`
}

// Rows enriches records without modifying them
func Rows(records []models.JobRecord) []Row {
	out := make([]Row, len(records))
	for i, r := range records {
		out[i] = Row{
			JobRecord:       r,
			CityNormalized:  City(r.Location),
			TitleNormalized: Title(r.JobTitle),
		}
	}
	return out
}
