package chain

import (
	"context"
	"strings"
	"time"

	"github.com/mrz1836/hdwscan/internal/amount"
	"github.com/mrz1836/hdwscan/internal/cache"
	"github.com/mrz1836/hdwscan/internal/discovery"
	"github.com/mrz1836/hdwscan/internal/dpath"
	"github.com/mrz1836/hdwscan/internal/ledger"
	"github.com/mrz1836/hdwscan/internal/metrics"
)

// AddressSource lists the addresses currently known for a window of a path.
type AddressSource interface {
	Window(path dpath.DPath, start, count int) []string
}

// Cached serves a window from c when every index in it has an entry no older
// than staleness whose address still matches addrs. Otherwise it asks next
// and records the known balances it returns. A nil addrs skips the address
// check. A nil m records into metrics.Global.
func Cached(next discovery.BalanceFetcher, c *cache.BalanceCache, network string, staleness time.Duration,
	addrs AddressSource, m *metrics.Metrics,
) discovery.BalanceFetcher {
	if m == nil {
		m = metrics.Global
	}
	return FetcherFunc(func(ctx context.Context, path dpath.DPath, start, count int) ([]ledger.Account, error) {
		var current []string
		if addrs != nil {
			current = addrs.Window(path, start, count)
		}
		if hit, ok := cachedWindow(c, network, path, start, count, staleness, addrs != nil, current); ok {
			m.RecordCacheLookup(true)
			return hit, nil
		}
		m.RecordCacheLookup(false)

		accounts, err := next.FetchBalances(ctx, path, start, count)
		if err != nil {
			return nil, err
		}
		for _, a := range accounts {
			if a.Balance == nil {
				continue
			}
			c.Set(cache.Entry{
				Network: network,
				Path:    path.Value,
				Index:   a.PathIndex,
				Address: a.Address,
				Balance: a.Balance.String(),
			})
		}
		return accounts, nil
	})
}

func cachedWindow(c *cache.BalanceCache, network string, path dpath.DPath, start, count int, staleness time.Duration,
	checkAddresses bool, current []string,
) ([]ledger.Account, bool) {
	if count <= 0 || (checkAddresses && len(current) != count) {
		return nil, false
	}
	out := make([]ledger.Account, 0, count)
	for i := start; i < start+count; i++ {
		entry, ok := c.Fresh(network, path.Value, i, staleness)
		if !ok || (checkAddresses && !strings.EqualFold(entry.Address, current[i-start])) {
			return nil, false
		}
		balance, err := amount.Parse(entry.Balance)
		if err != nil {
			return nil, false
		}
		out = append(out, ledger.Account{
			Address:   entry.Address,
			PathIndex: i,
			BaseDPath: path,
			Balance:   amount.Ptr(balance),
		})
	}
	return out, true
}
