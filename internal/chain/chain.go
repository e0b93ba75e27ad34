// Package chain adapts balance sources for account discovery.
//
// Adapters wrap a discovery.BalanceFetcher. RateLimited spaces requests to an
// endpoint, Retrying repeats batches that failed with a transient error and
// Cached answers recently priced windows locally. Concrete sources live in
// subpackages.
package chain

import (
	"context"

	"github.com/mrz1836/hdwscan/internal/discovery"
	"github.com/mrz1836/hdwscan/internal/dpath"
	"github.com/mrz1836/hdwscan/internal/ledger"
)

// FetcherFunc adapts an ordinary function to discovery.BalanceFetcher.
type FetcherFunc func(ctx context.Context, path dpath.DPath, start, count int) ([]ledger.Account, error)

// FetchBalances calls f.
func (f FetcherFunc) FetchBalances(ctx context.Context, path dpath.DPath, start, count int) ([]ledger.Account, error) {
	return f(ctx, path, start, count)
}

// Compile-time interface check.
var _ discovery.BalanceFetcher = FetcherFunc(nil)
