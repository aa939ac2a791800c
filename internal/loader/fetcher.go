package loader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/smukkama/aqeu-dashboard/internal/airquality"
)

// DefaultMaxBodyBytes bounds the size of a downloaded source
const DefaultMaxBodyBytes = 64 << 20

// Config controls how sources are fetched
type Config struct {
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
	// MaxBodyBytes defaults to DefaultMaxBodyBytes. Larger bodies fail the
	// fetch instead of being truncated.
	MaxBodyBytes int64
}

// Fetcher downloads CSV sources over HTTP
type Fetcher struct {
	client     *http.Client
	retries    int
	retryDelay time.Duration
	maxBody    int64
}

// NewFetcher creates a fetcher with an explicit client timeout
func NewFetcher(cfg Config) *Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	return &Fetcher{
		client:     &http.Client{Timeout: timeout},
		retries:    cfg.Retries,
		retryDelay: cfg.RetryDelay,
		maxBody:    maxBody,
	}
}

// Fetch downloads and parses the source at url
func (f *Fetcher) Fetch(ctx context.Context, url string) (*airquality.Dataset, error) {
	body, err := f.FetchRaw(ctx, url)
	if err != nil {
		return nil, err
	}
	return Parse(bytes.NewReader(body), url)
}

// FetchRaw downloads the source at url without parsing it. Transport
// errors and 5xx responses are retried up to the configured count.
func (f *Fetcher) FetchRaw(ctx context.Context, url string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= f.retries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * f.retryDelay
			log.WithFields(log.Fields{"source": url, "attempt": attempt, "delay": delay}).
				Warnf("Retrying fetch: %v", lastErr)

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, fmt.Errorf("%w: fetching %s: %v", ErrDataUnavailable, url, ctx.Err())
			case <-timer.C:
			}
		}

		body, retryable, err := f.get(ctx, url)
		if err == nil {
			log.WithFields(log.Fields{"source": url, "bytes": len(body)}).Debug("Fetched source")
			return body, nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}

	return nil, lastErr
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("%w: invalid source %q: %v", ErrDataUnavailable, url, err)
	}
	req.Header.Set("Accept", "text/csv, text/plain, */*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, ctx.Err() == nil, fmt.Errorf("%w: fetching %s: %v", ErrDataUnavailable, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, resp.StatusCode >= 500, &StatusError{Source: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, true, fmt.Errorf("%w: reading %s: %v", ErrDataUnavailable, url, err)
	}
	if int64(len(body)) > f.maxBody {
		return nil, false, fmt.Errorf("%w: %s exceeds %d bytes", ErrDataUnavailable, url, f.maxBody)
	}

	return body, false, nil
}
