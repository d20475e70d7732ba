package site

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/avasquez/deedscan/internal/cache"
	"github.com/avasquez/deedscan/internal/model"
	"github.com/avasquez/deedscan/internal/util"
	"github.com/avasquez/deedscan/internal/worker"
)

// AssessorClient fetches assessment pages from the public assessor site
// over plain HTTP. It is polite by construction: robots.txt is honored,
// requests flow through the per-domain rate limiter, and pages are cached
// so reruns do not refetch.
type AssessorClient struct {
	httpClient *http.Client
	searchURL  string
	userAgent  string
	maxBytes   int64
	pageCache  cache.Cache
	robots     *util.RobotsChecker
	limiter    *worker.Limiter
	logger     *slog.Logger
}

// AssessorOption configures an AssessorClient.
type AssessorOption func(*AssessorClient)

// WithPageCache caches fetched pages.
func WithPageCache(c cache.Cache) AssessorOption {
	return func(a *AssessorClient) { a.pageCache = c }
}

// WithRobots enforces robots.txt before fetching.
func WithRobots(r *util.RobotsChecker) AssessorOption {
	return func(a *AssessorClient) { a.robots = r }
}

// WithLimiter rate-limits fetches per domain.
func WithLimiter(l *worker.Limiter) AssessorOption {
	return func(a *AssessorClient) { a.limiter = l }
}

// WithAssessorLogger sets the structured logger.
func WithAssessorLogger(logger *slog.Logger) AssessorOption {
	return func(a *AssessorClient) { a.logger = logger }
}

// NewAssessorClient creates a client for the assessor search endpoint.
func NewAssessorClient(searchURL string, cfg model.HTTPConfig, opts ...AssessorOption) *AssessorClient {
	transport := &http.Transport{
		Proxy: util.NewProxyFunc(cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
	}
	if cfg.InsecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 2_000_000
	}

	a := &AssessorClient{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		searchURL: searchURL,
		userAgent: cfg.UserAgent,
		maxBytes:  maxBytes,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// FetchAssessment retrieves the assessment page for a target address and
// returns the raw HTML plus the final URL after redirects.
func (a *AssessorClient) FetchAssessment(ctx context.Context, target model.Target) (string, string, error) {
	fetchURL, err := a.buildURL(target)
	if err != nil {
		return "", "", fmt.Errorf("build search URL: %w", err)
	}

	if a.pageCache != nil {
		if data, found := a.pageCache.Get(cache.PageKey(fetchURL)); found {
			return string(data), fetchURL, nil
		}
	}

	if a.robots != nil {
		allowed, crawlDelay, err := a.robots.CanFetch(ctx, fetchURL)
		if err == nil && !allowed {
			return "", "", fmt.Errorf("robots.txt disallows %s", fetchURL)
		}
		if crawlDelay > 0 {
			select {
			case <-ctx.Done():
				return "", "", ctx.Err()
			case <-time.After(crawlDelay):
			}
		}
	}

	if a.limiter != nil {
		if err := a.limiter.Wait(ctx, fetchURL); err != nil {
			return "", "", fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fetchURL, nil)
	if err != nil {
		return "", "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", a.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("fetch assessment: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, a.maxBytes))
	if err != nil {
		return "", "", fmt.Errorf("read body: %w", err)
	}

	finalURL := resp.Request.URL.String()
	if a.pageCache != nil {
		if err := a.pageCache.Set(cache.PageKey(fetchURL), body, 0); err != nil {
			a.logger.Warn("page cache write failed", "url", fetchURL, "error", err)
		}
	}

	return string(body), finalURL, nil
}

func (a *AssessorClient) buildURL(target model.Target) (string, error) {
	u, err := url.Parse(a.searchURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("stnum", target.AddressNumber)
	q.Set("stname", target.StreetName)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
