package httpclient

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

type Options struct {
	Timeout time.Duration
	// Retries is the total number of attempts, including the first one
	Retries       int
	RatePerSecond float64
	UserAgent     string
	// Backoff bounds, 1s..8s when zero
	MinBackoff time.Duration
	MaxBackoff time.Duration
}

// New builds a resty client with exponential backoff on transport errors,
// 429 and 5xx, and a token bucket that every request waits on.
func New(opts Options) *resty.Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Retries < 1 {
		opts.Retries = 1
	}
	if opts.MinBackoff == 0 {
		opts.MinBackoff = time.Second
	}
	if opts.MaxBackoff == 0 {
		opts.MaxBackoff = 8 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.Retries-1).
		SetRetryWaitTime(opts.MinBackoff).
		SetRetryMaxWaitTime(opts.MaxBackoff).
		SetHeader("User-Agent", opts.UserAgent).
		SetHeader("Accept", "application/json").
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return Retryable(r.StatusCode())
		})

	if opts.RatePerSecond > 0 {
		limiter := rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1)
		client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return limiter.Wait(req.Context())
		})
	}
	return client
}

// Retryable reports whether a status code is worth another attempt
func Retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// StatusError turns a non-2xx response into an error carrying a short body excerpt
func StatusError(resp *resty.Response) error {
	if resp == nil || !resp.IsError() {
		return nil
	}
	body := resp.String()
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Errorf("%s returned %d: %s", resp.Request.URL, resp.StatusCode(), body)
}
