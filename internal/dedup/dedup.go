package dedup

import (
	"log"

	"ds-job-scraper/internal/models"
)

// SeenSet is the set of URLs already present in the archive at run start.
// It is rebuilt every run and never written to, so it needs no locking.
type SeenSet struct {
	urls map[string]struct{}
}

// FromRecords derives the seen set from the loaded archive
func FromRecords(records []models.JobRecord) *SeenSet {
	s := &SeenSet{urls: make(map[string]struct{}, len(records))}
	for _, r := range records {
		if r.URL != "" {
			s.urls[r.URL] = struct{}{}
		}
	}
	log.Printf("📋 Loaded %d previously seen jobs from the archive", len(s.urls))
	return s
}

// IsSeen checks if a URL was already in the archive. A nil set has seen nothing.
func (s *SeenSet) IsSeen(url string) bool {
	if s == nil {
		return false
	}
	_, ok := s.urls[url]
	return ok
}

func (s *SeenSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.urls)
}
