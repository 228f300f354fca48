package archive

import (
	"sort"

	"ds-job-scraper/internal/models"
)

// Merge folds a batch of freshly normalized records into the existing archive.
//
// Every batch record ends up in the result and replaces any existing row with
// the same url; rows the batch does not mention are kept as they are. Inside
// the batch the later row for a url wins, unless it lost the company name an
// earlier row had. The result is ordered newest first for display.
func Merge(existing, batch []models.JobRecord) []models.JobRecord {
	byURL := make(map[string]models.JobRecord, len(existing)+len(batch))
	for _, r := range existing {
		byURL[r.URL] = r
	}

	incoming := make(map[string]models.JobRecord, len(batch))
	for _, r := range batch {
		if r.URL == "" {
			continue
		}
		if prev, ok := incoming[r.URL]; ok && r.Company == "" && prev.Company != "" {
			continue
		}
		incoming[r.URL] = r
	}
	for url, r := range incoming {
		byURL[url] = r
	}

	merged := make([]models.JobRecord, 0, len(byURL))
	for _, r := range byURL {
		merged = append(merged, r)
	}
	SortNewestFirst(merged)
	return merged
}

// SortNewestFirst orders by collected_at desc, then company, title and url
func SortNewestFirst(records []models.JobRecord) {
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.CollectedAt.Equal(b.CollectedAt) {
			return a.CollectedAt.After(b.CollectedAt)
		}
		if a.Company != b.Company {
			return a.Company < b.Company
		}
		if a.JobTitle != b.JobTitle {
			return a.JobTitle < b.JobTitle
		}
		return a.URL < b.URL
	})
}
