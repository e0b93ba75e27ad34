package chain

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/mrz1836/hdwscan/internal/discovery"
	"github.com/mrz1836/hdwscan/internal/dpath"
	"github.com/mrz1836/hdwscan/internal/ledger"
)

// RateLimiter provides per-endpoint rate limiting using a token bucket.
type RateLimiter struct {
	limiters   map[string]*rate.Limiter
	mu         sync.RWMutex
	rateLimit  rate.Limit
	burstLimit int
}

// NewRateLimiter creates a rate limiter allowing ratePerSecond requests per
// endpoint with bursts of up to burst requests.
func NewRateLimiter(ratePerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters:   make(map[string]*rate.Limiter),
		rateLimit:  rate.Limit(ratePerSecond),
		burstLimit: burst,
	}
}

// DefaultRateLimiter returns a rate limiter with default settings.
// Default: 5 requests/second, burst of 10.
func DefaultRateLimiter() *RateLimiter {
	return NewRateLimiter(5, 10)
}

// Allow reports whether a request to endpoint may proceed now.
func (r *RateLimiter) Allow(endpoint string) bool {
	return r.getLimiter(endpoint).Allow()
}

// Wait blocks until a request to endpoint is allowed or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context, endpoint string) error {
	return r.getLimiter(endpoint).Wait(ctx)
}

func (r *RateLimiter) getLimiter(endpoint string) *rate.Limiter {
	r.mu.RLock()
	limiter, exists := r.limiters[endpoint]
	r.mu.RUnlock()

	if exists {
		return limiter
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another caller may have created it meanwhile.
	if limiter, exists = r.limiters[endpoint]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(r.rateLimit, r.burstLimit)
	r.limiters[endpoint] = limiter
	return limiter
}

// RateLimited returns a fetcher that takes a token for endpoint before every
// batch it forwards to next. Fetchers sharing a limiter and endpoint share
// one budget.
func RateLimited(next discovery.BalanceFetcher, limiter *RateLimiter, endpoint string) discovery.BalanceFetcher {
	return FetcherFunc(func(ctx context.Context, path dpath.DPath, start, count int) ([]ledger.Account, error) {
		if err := limiter.Wait(ctx, endpoint); err != nil {
			return nil, fmt.Errorf("waiting for rate limit on %s: %w", endpoint, err)
		}
		return next.FetchBalances(ctx, path, start, count)
	})
}
