package repositories

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	fetcherUserAgent  = "searchai-scraper/1.0"
	defaultMaxRetries = 2
)

type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*http.Response, error)
}

type HTTPPageFetcher struct {
	client     *http.Client
	maxRetries uint64
}

func NewPageFetcher(timeout time.Duration) *HTTPPageFetcher {
	return &HTTPPageFetcher{
		client:     &http.Client{Timeout: timeout},
		maxRetries: defaultMaxRetries,
	}
}

// Fetch retrieves a URL, retrying transport errors and 5xx responses with
// exponential backoff. Non-retryable statuses are returned to the caller
// as-is; deciding whether a 404 is an extraction failure is not the
// fetcher's job.
func (pf *HTTPPageFetcher) Fetch(ctx context.Context, url string) (*http.Response, error) {
	operation := func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("invalid request for %s: %w", url, err))
		}
		req.Header.Set("User-Agent", fetcherUserAgent)

		resp, err := pf.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch URL %s: %w", url, err)
		}
		if resp.StatusCode >= 500 {
			resp.Body.Close()
			return nil, fmt.Errorf("server error for URL %s: status %d", url, resp.StatusCode)
		}
		return resp, nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), pf.maxRetries), ctx)
	return backoff.RetryWithData(operation, policy)
}
