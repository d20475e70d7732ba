package worker

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter rate-limits outbound requests per domain. The assessor and the
// records gateway live on different hosts and each gets its own bucket,
// so politeness toward one never starves the other.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

// NewLimiter creates a limiter with the default per-domain rate.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(requestsPerSecond),
		burst:    burst,
	}
}

// Wait blocks until the domain's bucket permits a request or the context
// is done.
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	domain, err := domainOf(rawURL)
	if err != nil {
		return err
	}
	return l.limiterFor(domain).Wait(ctx)
}

// Allow reports, without blocking, whether a request may go out now.
func (l *Limiter) Allow(rawURL string) bool {
	domain, err := domainOf(rawURL)
	if err != nil {
		return false
	}
	return l.limiterFor(domain).Allow()
}

// SetDomainRate overrides the rate for one domain, for sites that
// advertise a crawl delay.
func (l *Limiter) SetDomainRate(domain string, requestsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.limiters[domain] = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

func (l *Limiter) limiterFor(domain string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	lim, ok := l.limiters[domain]
	if !ok {
		lim = rate.NewLimiter(l.rps, l.burst)
		l.limiters[domain] = lim
	}
	return lim
}

func domainOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse URL: %w", err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("URL has no host: %s", rawURL)
	}
	return u.Host, nil
}
