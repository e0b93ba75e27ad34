// Package eth prices EVM accounts over JSON-RPC for account discovery.
package eth

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/mrz1836/hdwscan/internal/amount"
	"github.com/mrz1836/hdwscan/internal/chain"
	"github.com/mrz1836/hdwscan/internal/discovery"
	"github.com/mrz1836/hdwscan/internal/dpath"
	"github.com/mrz1836/hdwscan/internal/ledger"
	"github.com/mrz1836/hdwscan/internal/metrics"
	hdwerr "github.com/mrz1836/hdwscan/pkg/errors"
)

// BalanceReader is the part of an Ethereum client the fetcher needs.
// *ethclient.Client implements it.
type BalanceReader interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// Fetcher resolves addresses from an AddressBook and reads their latest
// balance from a node.
type Fetcher struct {
	client  BalanceReader
	book    AddressBook
	metrics *metrics.Metrics
	closer  func()
}

// Compile-time interface check.
var _ discovery.BalanceFetcher = (*Fetcher)(nil)

// NewFetcher creates a fetcher over client. A nil m records into metrics.Global.
func NewFetcher(client BalanceReader, book AddressBook, m *metrics.Metrics) *Fetcher {
	if m == nil {
		m = metrics.Global
	}
	return &Fetcher{client: client, book: book, metrics: m}
}

// Dial connects to the JSON-RPC endpoint at rpcURL.
func Dial(ctx context.Context, rpcURL string, book AddressBook, m *metrics.Metrics) (*Fetcher, error) {
	if rpcURL == "" {
		return nil, hdwerr.WithSuggestion(
			hdwerr.WithDetails(hdwerr.ErrConfigInvalid, map[string]string{"field": "network.rpc"}),
			"set network.rpc in config.yaml or HDWSCAN_RPC",
		)
	}
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, hdwerr.WithCause(hdwerr.WithDetails(hdwerr.ErrNetworkError, map[string]string{"rpc": rpcURL}), err)
	}
	f := NewFetcher(client, book, m)
	f.closer = client.Close
	return f, nil
}

// Close releases the underlying connection when the fetcher owns one.
func (f *Fetcher) Close() {
	if f.closer != nil {
		f.closer()
	}
}

// FetchBalances returns the accounts at [start, start+count) on path with
// their latest balance. An empty result means the book holds no more
// addresses for the path. Any failed lookup fails the whole batch.
func (f *Fetcher) FetchBalances(ctx context.Context, path dpath.DPath, start, count int) ([]ledger.Account, error) {
	window := f.book.Window(path, start, count)
	accounts := make([]ledger.Account, 0, len(window))

	for i, addr := range window {
		began := time.Now()
		wei, err := f.client.BalanceAt(ctx, common.HexToAddress(addr), nil)
		err = classify(ctx, err)
		f.metrics.RecordRPCCall(time.Since(began), err)
		if err != nil {
			return nil, fmt.Errorf("balance of %s: %w", addr, err)
		}

		balance, err := amount.FromBig(wei)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, ledger.Account{
			Address:   addr,
			PathIndex: start + i,
			BaseDPath: path,
			Balance:   amount.Ptr(balance),
		})
	}
	return accounts, nil
}

// classify maps transport failures onto the retry sentinels of package chain.
// Rate limiting, timeouts and server errors are transient; anything else is
// reported as a network error.
func classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		switch {
		case httpErr.StatusCode == http.StatusTooManyRequests:
			return hdwerr.WithCause(chain.ErrRateLimited, err)
		case httpErr.StatusCode >= http.StatusInternalServerError:
			return chain.WrapRetryable(err)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return hdwerr.WithCause(chain.ErrTimeout, err)
	}

	return hdwerr.WithCause(hdwerr.ErrNetworkError, err)
}
