package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const defaultUserAgent = "rate-monitor/1.0 (+https://example.com)"

var defaultHeaders = map[string]string{
	"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"Accept-Language": "en-US,en;q=0.5",
}

// FetchError reports a fetch that failed terminally or exhausted its retry
// budget. Status is the last observed HTTP status, or zero when the final
// attempt failed at the network level.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s failed (status=%d)", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s failed: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Options parameterise the fetcher.
type Options struct {
	Timeout        time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
	RequestsPerSec int
	UserAgent      string
	Headers        map[string]string
	Transport      http.RoundTripper
}

// Fetcher retrieves page content over HTTP with bounded retry on transient
// failures. 5xx responses and network-level errors are retried up to
// MaxRetries attempts; any other status is terminal.
type Fetcher struct {
	opts    Options
	client  *http.Client
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// New constructs a Fetcher.
func New(opts Options, logger zerolog.Logger) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	if strings.TrimSpace(opts.UserAgent) == "" {
		opts.UserAgent = defaultUserAgent
	}

	client := &http.Client{Timeout: opts.Timeout}
	if opts.Transport != nil {
		client.Transport = opts.Transport
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSec), opts.RequestsPerSec)
	}

	return &Fetcher{
		opts:    opts,
		client:  client,
		limiter: limiter,
		logger:  logger.With().Str("component", "fetcher").Logger(),
	}
}

// Fetch retrieves url and returns the response body text.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", err
		}
	}

	var body string
	lastStatus := 0
	attempt := 0

	operation := func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		f.applyHeaders(req)

		resp, err := f.client.Do(req)
		if err != nil {
			lastStatus = 0
			return err
		}
		defer resp.Body.Close()

		lastStatus = resp.StatusCode
		payload, err := io.ReadAll(resp.Body)
		if err != nil {
			lastStatus = 0
			return err
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			body = string(payload)
			return nil
		case resp.StatusCode >= 500 && resp.StatusCode < 600:
			return fmt.Errorf("server error: %d", resp.StatusCode)
		default:
			return backoff.Permanent(fmt.Errorf("unexpected status: %d", resp.StatusCode))
		}
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(f.opts.RetryDelay), uint64(f.opts.MaxRetries-1)),
		ctx,
	)
	if err := backoff.Retry(operation, policy); err != nil {
		f.logger.Debug().Str("url", url).Int("attempts", attempt).Int("last_status", lastStatus).Msg("fetch failed")
		return "", &FetchError{URL: url, Status: lastStatus, Err: err}
	}

	f.logger.Debug().Str("url", url).Int("attempts", attempt).Msg("fetch succeeded")
	return body, nil
}

func (f *Fetcher) applyHeaders(req *http.Request) {
	for name, value := range defaultHeaders {
		req.Header.Set(name, value)
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	for name, value := range f.opts.Headers {
		req.Header.Set(name, value)
	}
}
