package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ds-job-scraper/internal/models"
)

func TestRunMetrics_Observe(t *testing.T) {
	m := NewRunMetrics()
	m.ObserveSource("gh", models.SourceBoardAPI, 10, 3, false, 2*time.Second)
	m.ObserveSource("li", models.SourceBrowser, 0, 0, true, time.Second)
	m.ObserveRun(3, 120, 2, time.Unix(1717200000, 0))

	assert.Equal(t, float64(10), testutil.ToFloat64(m.sourceRaw.WithLabelValues("gh", "board-api")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.sourceKept.WithLabelValues("gh", "board-api")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.sourceFailed.WithLabelValues("li", "browser")))
	assert.Equal(t, float64(120), testutil.ToFloat64(m.archiveRecords))
	assert.Equal(t, float64(1717200000), testutil.ToFloat64(m.lastSuccessTS))
}

func TestRunMetrics_Push(t *testing.T) {
	var gotPath, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewRunMetrics()
	m.ObserveRun(1, 1, 1, time.Now())
	require.NoError(t, m.Push(context.Background(), srv.URL, "ds-job-scraper"))
	assert.Equal(t, "/metrics/job/ds-job-scraper", gotPath)
	assert.NotEmpty(t, gotBody)
}

func TestArchiveMetrics(t *testing.T) {
	m := NewArchiveMetrics()
	m.SetArchive([]models.JobRecord{
		{Source: models.SourceBoardAPI, CollectedAt: time.Unix(100, 0)},
		{Source: models.SourceBoardAPI, CollectedAt: time.Unix(300, 0)},
		{Source: models.SourceBrowser, CollectedAt: time.Unix(200, 0)},
	}, 2, 3)
	m.ObserveLoad("local", nil)
	m.ObserveLoad("remote", errors.New("boom"))

	assert.Equal(t, float64(2), testutil.ToFloat64(m.records.WithLabelValues("board-api")))
	assert.Equal(t, float64(300), testutil.ToFloat64(m.lastCollected))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `jobscraper_dashboard_archive_loads_total{origin="remote",status="error"} 1`))
}
