package httpclient

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	client := New(Options{Retries: 3, MinBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond})

	var out struct {
		OK bool `json:"ok"`
	}
	resp, err := client.R().SetResult(&out).Get(srv.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
	assert.True(t, out.OK)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestNew_GivesUpAfterRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := New(Options{Retries: 2, MinBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond})
	resp, err := client.R().Get(srv.URL)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Error(t, StatusError(resp))
}

func TestNew_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := New(Options{Retries: 3, MinBackoff: time.Millisecond})
	resp, err := client.R().Get(srv.URL)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(429))
	assert.True(t, Retryable(502))
	assert.False(t, Retryable(404))
	assert.False(t, Retryable(200))
}
