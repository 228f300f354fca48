package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Source is the family of adapter that produced a record
type Source string

const (
	SourceBoardAPI  Source = "board-api"
	SourceSearchAPI Source = "search-api"
	SourceBrowser   Source = "browser"
)

// JobRecord is one posting observation as persisted in the archive.
// URL is the identity key.
type JobRecord struct {
	Source      Source    `json:"source"`
	JobTitle    string    `json:"job_title"`
	Company     string    `json:"company"`
	Location    string    `json:"location"`
	URL         string    `json:"url"`
	CollectedAt time.Time `json:"collected_at"`
	SnapshotID  string    `json:"snapshot_id"`
}

// RawPosting is what an adapter hands to the normalizer
type RawPosting struct {
	Title    string
	Company  string
	Location string
	URL      string
	Source   Source
	// Prescoped postings came from a query already constrained to the target region
	Prescoped bool
	// Adapter that produced the posting, used for per-source keyword overrides and logs
	Adapter string
}

// NewSnapshotID returns a UUIDv7 string. The leading bits carry a millisecond
// timestamp, so ids sort by creation time.
func NewSnapshotID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate snapshot id: %w", err)
	}
	return id.String(), nil
}

// SnapshotTime extracts the creation time embedded in a snapshot id.
// Legacy or malformed ids return false.
func SnapshotTime(id string) (time.Time, bool) {
	u, err := uuid.Parse(id)
	if err != nil || u.Version() != 7 {
		return time.Time{}, false
	}
	sec, nsec := u.Time().UnixTime()
	return time.Unix(sec, nsec).UTC(), true
}
