package archive

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"ds-job-scraper/internal/models"
)

// Columns is the archive header, in order
var Columns = []string{"source", "job_title", "company", "location", "url", "collected_at", "snapshot_id"}

// Decode reads an archive CSV. Columns are matched by header name: unknown
// columns are dropped and missing ones (snapshot_id in legacy files) are left empty.
// Rows without a url cannot be keyed and are skipped.
func Decode(r io.Reader) ([]models.JobRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	if _, ok := idx["url"]; !ok {
		return nil, fmt.Errorf("archive header has no url column: %v", header)
	}

	get := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var records []models.JobRecord
	skipped := 0
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}

		url := get(row, "url")
		if url == "" {
			skipped++
			continue
		}
		collectedAt, err := ParseTime(get(row, "collected_at"))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		records = append(records, models.JobRecord{
			Source:      models.Source(get(row, "source")),
			JobTitle:    get(row, "job_title"),
			Company:     get(row, "company"),
			Location:    get(row, "location"),
			URL:         url,
			CollectedAt: collectedAt,
			SnapshotID:  get(row, "snapshot_id"),
		})
	}
	if skipped > 0 {
		log.Printf("⚠️ Skipped %d archive rows without a url", skipped)
	}
	return records, nil
}

// Encode writes records with the archive header
func Encode(w io.Writer, records []models.JobRecord) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Columns); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			string(r.Source),
			r.JobTitle,
			r.Company,
			r.Location,
			r.URL,
			FormatTime(r.CollectedAt),
			r.SnapshotID,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime accepts RFC3339 timestamps and the date-only values older runs wrote.
// An empty value yields the zero time.
func ParseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised collected_at %q", s)
}

func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
