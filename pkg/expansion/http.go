package expansion

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/dd0wney/cluso-chainviz/pkg/graph"
)

// HTTPLoader fetches payloads over HTTP. Relative sources resolve against
// BaseURL. Requests are paced by a token bucket so rapid clicking cannot
// hammer the upstream.
type HTTPLoader struct {
	base    *url.URL
	client  *http.Client
	limiter *rate.Limiter
}

// HTTPOption configures an HTTPLoader
type HTTPOption func(*HTTPLoader)

// WithHTTPClient replaces the default client
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(l *HTTPLoader) { l.client = c }
}

// WithRateLimit sets requests per second and burst. rps <= 0 disables pacing.
func WithRateLimit(rps float64, burst int) HTTPOption {
	return func(l *HTTPLoader) {
		if rps <= 0 {
			l.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		l.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
}

// NewHTTPLoader creates a loader for baseURL
func NewHTTPLoader(baseURL string, opts ...HTTPOption) (*HTTPLoader, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	l := &HTTPLoader{
		base:    base,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(5), 5),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Load implements Loader
func (l *HTTPLoader) Load(ctx context.Context, source string) (*graph.Payload, error) {
	ref, err := url.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("parse source: %w", err)
	}
	target := l.base.ResolveReference(ref)

	if err := l.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %d", target, resp.StatusCode)
	}
	return Decode(resp.Body)
}
