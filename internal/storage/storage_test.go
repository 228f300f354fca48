package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ds-job-scraper/internal/config"
	"ds-job-scraper/internal/models"
)

func TestKeys(t *testing.T) {
	k := Keys{Prefix: "snapshots/"}
	assert.Equal(t, "snapshots/latest.csv", k.Latest())
	assert.Equal(t, "snapshots/status.json", k.Status())
	assert.Equal(t, "snapshots/jobs_20240601T120000Z.csv", k.Snapshot("20240601T120000Z"))

	assert.Equal(t, "latest.csv", Keys{}.Latest())
}

func TestNextRun(t *testing.T) {
	from := time.Date(2024, 6, 1, 10, 30, 0, 0, time.UTC)

	next, err := NextRun("0 6 * * *", from)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, time.Date(2024, 6, 2, 6, 0, 0, 0, time.UTC), *next)

	next, err = NextRun("", from)
	require.NoError(t, err)
	assert.Nil(t, next)

	_, err = NextRun("every day", from)
	assert.Error(t, err)
}

func TestPublisher_PublishAndLoad(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	pub := NewPublisher(store, "snapshots", "0 6 * * *")
	pub.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }

	_, found, err := pub.LoadLatest(ctx)
	require.NoError(t, err)
	assert.False(t, found)

	records := []models.JobRecord{{
		Source:      models.SourceBoardAPI,
		JobTitle:    "Data Scientist",
		Company:     "Acme",
		Location:    "Tel Aviv, Israel",
		URL:         "https://x/1",
		CollectedAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
		SnapshotID:  "snap",
	}}
	require.NoError(t, pub.Publish(ctx, records, "snap"))

	assert.Equal(t, []string{
		"snapshots/jobs_20240601T120000Z.csv",
		"snapshots/latest.csv",
		"snapshots/status.json",
	}, store.Keys())

	got, found, err := pub.LoadLatest(ctx)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, records, got)

	status, err := LoadStatus(ctx, store, pub.Keys())
	require.NoError(t, err)
	assert.Equal(t, 1, status.Records)
	assert.Equal(t, "snap", status.SnapshotID)
	require.NotNil(t, status.NextRunAt)
	assert.Equal(t, time.Date(2024, 6, 2, 6, 0, 0, 0, time.UTC), status.NextRunAt.UTC())
}

func TestLoadStatus_Missing(t *testing.T) {
	status, err := LoadStatus(context.Background(), NewMemoryStore(), Keys{})
	require.NoError(t, err)
	assert.Nil(t, status.NextRunAt)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewRedisStoreFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer store.Close()

	ctx := context.Background()
	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(ctx, "a/latest.csv", []byte("url\n"), "text/csv"))
	data, err := store.Get(ctx, "a/latest.csv")
	require.NoError(t, err)
	assert.Equal(t, "url\n", string(data))
}

func TestNew_NoBackend(t *testing.T) {
	store, err := New(context.Background(), config.StorageConfig{})
	require.NoError(t, err)
	assert.Nil(t, store)

	_, err = New(context.Background(), config.StorageConfig{Backend: "ftp"})
	assert.Error(t, err)
}
