package transcript

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/tubenotes/tubenotes/internal/proxy"
)

// Strategy is one independent method of acquiring transcript text for a
// video id. Implementations must not retry internally; all retry policy
// lives in the orchestrator. The proxy argument overrides the shared
// default, nil means direct egress.
type Strategy interface {
	Name() string
	Fetch(ctx context.Context, videoID string, via *proxy.Endpoint) (string, error)
}

// The upstream serves different content to obvious non-browsers, so every
// request goes out with a realistic browser identity.
const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// fetcher is the shared HTTP plumbing for strategies: browser headers,
// bounded per-call timeout and a client-side rate limit on outbound calls.
type fetcher struct {
	timeout time.Duration
	limiter *rate.Limiter
}

func newFetcher(timeout time.Duration, limiter *rate.Limiter) *fetcher {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &fetcher{
		timeout: timeout,
		limiter: limiter,
	}
}

// get performs one GET through the optional proxy and returns the body
// and status code. Non-2xx responses are returned without error so the
// caller can classify them.
func (f *fetcher) get(ctx context.Context, url string, via *proxy.Endpoint) ([]byte, int, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, 0, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	client := proxy.Client(via, f.timeout)
	res, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("request %s: %w", url, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, res.StatusCode, fmt.Errorf("read response body: %w", err)
	}

	return body, res.StatusCode, nil
}
