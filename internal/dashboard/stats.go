package dashboard

import (
	"math"
	"sort"
	"strings"

	"ds-job-scraper/internal/enrich"
	"ds-job-scraper/internal/models"
	"ds-job-scraper/internal/normalize"
)

const (
	dayLayout = "2006-01-02"
	topTitles = 12
	otherName = "Other"
)

type Count struct {
	Name    string  `json:"name"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

type DayCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

type Stats struct {
	Total     int        `json:"total"`
	Companies int        `json:"companies"`
	Snapshots int        `json:"snapshots"`
	LatestDay string     `json:"latest_day,omitempty"`
	Locations []Count    `json:"locations"`
	Titles    []Count    `json:"titles"`
	Trend     []DayCount `json:"trend"`
}

// Query filters rows; empty fields match everything
type Query struct {
	Source  string
	Company string
	Title   string
}

func (q Query) match(r enrich.Row) bool {
	if q.Source != "" && string(r.Source) != q.Source {
		return false
	}
	if q.Company != "" && !strings.Contains(normalize.Fold(r.Company), normalize.Fold(q.Company)) {
		return false
	}
	if q.Title != "" {
		t := normalize.Fold(q.Title)
		if !strings.Contains(normalize.Fold(r.JobTitle), t) && normalize.Fold(r.TitleNormalized) != t {
			return false
		}
	}
	return true
}

func Filter(rows []enrich.Row, q Query) []enrich.Row {
	out := make([]enrich.Row, 0, len(rows))
	for _, r := range rows {
		if q.match(r) {
			out = append(out, r)
		}
	}
	return out
}

func Compute(rows []enrich.Row) Stats {
	st := Stats{
		Total:     len(rows),
		Locations: []Count{},
		Titles:    []Count{},
		Trend:     []DayCount{},
	}
	if len(rows) == 0 {
		return st
	}

	records := make([]models.JobRecord, len(rows))
	cities := make(map[string]int)
	titles := make(map[string]int)
	days := make(map[string]int)
	for i, r := range rows {
		records[i] = r.JobRecord
		cities[r.CityNormalized]++
		titles[r.TitleNormalized]++
		days[r.CollectedAt.UTC().Format(dayLayout)]++
	}
	st.Companies = countCompanies(records)
	st.Snapshots = len(days)

	st.Locations = ranked(cities, st.Total)

	st.Titles = ranked(titles, st.Total)
	if len(st.Titles) > topTitles {
		other := Count{Name: otherName}
		for _, c := range st.Titles[topTitles:] {
			other.Count += c.Count
		}
		other.Percent = percent(other.Count, st.Total)
		st.Titles = append(st.Titles[:topTitles:topTitles], other)
	}

	for day, n := range days {
		st.Trend = append(st.Trend, DayCount{Day: day, Count: n})
	}
	sort.Slice(st.Trend, func(i, j int) bool { return st.Trend[i].Day < st.Trend[j].Day })
	st.LatestDay = st.Trend[len(st.Trend)-1].Day
	return st
}

// Latest returns the rows of the newest collection day, by company then title
func Latest(rows []enrich.Row) []enrich.Row {
	var day string
	for _, r := range rows {
		if d := r.CollectedAt.UTC().Format(dayLayout); d > day {
			day = d
		}
	}

	out := []enrich.Row{}
	for _, r := range rows {
		if r.CollectedAt.UTC().Format(dayLayout) == day {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Company != out[j].Company {
			return out[i].Company < out[j].Company
		}
		return out[i].JobTitle < out[j].JobTitle
	})
	return out
}

// ranked sorts by count descending, then name
func ranked(counts map[string]int, total int) []Count {
	out := make([]Count, 0, len(counts))
	for name, n := range counts {
		out = append(out, Count{Name: name, Count: n, Percent: percent(n, total)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(n)*1000/float64(total)) / 10
}

func countCompanies(records []models.JobRecord) int {
	seen := make(map[string]bool)
	for _, r := range records {
		if c := strings.TrimSpace(r.Company); c != "" {
			seen[c] = true
		}
	}
	return len(seen)
}

func countDays(records []models.JobRecord) int {
	seen := make(map[string]bool)
	for _, r := range records {
		seen[r.CollectedAt.UTC().Format(dayLayout)] = true
	}
	return len(seen)
}
