package archive

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ds-job-scraper/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func rec(url, company string, at time.Time, snap string) models.JobRecord {
	return models.JobRecord{
		Source:      models.SourceBoardAPI,
		JobTitle:    "Data Scientist",
		Company:     company,
		Location:    "Tel Aviv, Israel",
		URL:         url,
		CollectedAt: at,
		SnapshotID:  snap,
	}
}

func assertUniqueURLs(t *testing.T, records []models.JobRecord) {
	t.Helper()
	seen := map[string]models.JobRecord{}
	for _, r := range records {
		if prev, ok := seen[r.URL]; ok {
			assert.Equal(t, prev, r, "duplicate url %s", r.URL)
		}
		seen[r.URL] = r
	}
	assert.Len(t, seen, len(records))
}

func TestMerge_NewRowSupersedes(t *testing.T) {
	existing := []models.JobRecord{rec("https://x/1", "Acme", day(2024, 1, 1), "old")}
	batch := []models.JobRecord{rec("https://x/1", "Acme", day(2024, 6, 1), "new")}

	merged := Merge(existing, batch)
	require.Len(t, merged, 1)
	assert.Equal(t, day(2024, 6, 1), merged[0].CollectedAt)
	assert.Equal(t, "new", merged[0].SnapshotID)
}

func TestMerge_PreservesUntouchedRows(t *testing.T) {
	old := rec("https://x/old", "Old Co", day(2023, 5, 5), "")
	existing := []models.JobRecord{old, rec("https://x/1", "Acme", day(2024, 1, 1), "s1")}
	batch := []models.JobRecord{
		rec("https://x/1", "Acme", day(2024, 6, 1), "s2"),
		rec("https://x/2", "Beta", day(2024, 6, 1), "s2"),
	}

	merged := Merge(existing, batch)
	assertUniqueURLs(t, merged)
	require.Len(t, merged, 3)
	assert.Contains(t, merged, old)
	for _, r := range batch {
		assert.Contains(t, merged, r)
	}
	assert.Equal(t, old, merged[2], "oldest row sorts last")
}

func TestMerge_Idempotent(t *testing.T) {
	existing := []models.JobRecord{
		rec("https://x/1", "Acme", day(2024, 1, 1), "s1"),
		rec("https://x/9", "Zed", day(2024, 2, 1), "s1"),
	}
	batch := []models.JobRecord{
		rec("https://x/1", "Acme", day(2024, 6, 1), "s2"),
		rec("https://x/2", "Beta", day(2024, 6, 1), "s2"),
	}

	once := Merge(existing, batch)
	twice := Merge(once, batch)
	assert.Equal(t, once, twice)
	assertUniqueURLs(t, twice)
}

func TestMerge_EmptyArchive(t *testing.T) {
	batch := []models.JobRecord{rec("https://x/1", "Acme", day(2024, 6, 1), "s")}
	assert.Equal(t, batch, Merge(nil, batch))
	assert.Empty(t, Merge(nil, nil))
}

func TestMerge_BatchDuplicates(t *testing.T) {
	batch := []models.JobRecord{
		rec("https://x/1", "Acme", day(2024, 6, 1), "s"),
		rec("https://x/1", "", day(2024, 6, 1), "s"),
		rec("https://x/2", "", day(2024, 6, 1), "s"),
		rec("https://x/2", "Beta", day(2024, 6, 1), "s"),
	}
	merged := Merge(nil, batch)
	require.Len(t, merged, 2)
	assertUniqueURLs(t, merged)
	for _, r := range merged {
		assert.NotEmpty(t, r.Company, "a named row is not replaced by an anonymous one")
	}
}

func TestMerge_SkipsEmptyURL(t *testing.T) {
	merged := Merge(nil, []models.JobRecord{rec("", "Acme", day(2024, 6, 1), "s")})
	assert.Empty(t, merged)
}

func TestDecode_LegacyColumns(t *testing.T) {
	in := "source,job_title,company,location,url,collected_at,company_len\n" +
		"Greenhouse,Data Scientist,Acme,\"Tel Aviv, Israel\",https://x/1,2024-01-01,4\n" +
		"Lever,Data Scientist,Beta,Haifa,,2024-01-02,4\n"

	records, err := Decode(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, records, 1, "rows without url are skipped")

	r := records[0]
	assert.Equal(t, models.Source("Greenhouse"), r.Source)
	assert.Equal(t, "Tel Aviv, Israel", r.Location)
	assert.Equal(t, day(2024, 1, 1), r.CollectedAt)
	assert.Empty(t, r.SnapshotID)
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode(strings.NewReader("source,job_title\nx,y\n"))
	assert.Error(t, err, "url column is required")

	_, err = Decode(strings.NewReader("url,collected_at\nhttps://x/1,yesterday\n"))
	assert.Error(t, err)

	records, err := Decode(strings.NewReader(""))
	assert.NoError(t, err)
	assert.Empty(t, records)
}

func TestEncodeDecode(t *testing.T) {
	records := []models.JobRecord{
		rec("https://x/1", "Acme, Inc.", time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC), "0190a0b0-0000-7000-8000-000000000000"),
	}
	data, err := Bytes(records)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), strings.Join(Columns, ",")+"\n"))

	back, err := Decode(strings.NewReader(string(data)))
	require.NoError(t, err)
	assert.Equal(t, records, back)
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data", "jobs.csv")

	records, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, records, "missing archive is empty")

	want := []models.JobRecord{rec("https://x/1", "Acme", day(2024, 6, 1), "s")}
	require.NoError(t, Save(path, want))
	require.NoError(t, Save(path, want))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files left behind")
	assert.Equal(t, "jobs.csv", entries[0].Name())

	ok, err := Exists(path)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestParseTime(t *testing.T) {
	ts, err := ParseTime("2024-06-01T10:00:00+03:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 6, 1, 7, 0, 0, 0, time.UTC), ts)

	ts, err = ParseTime("")
	require.NoError(t, err)
	assert.True(t, ts.IsZero())
}
