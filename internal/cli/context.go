package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/hdwscan/internal/accountstore"
	"github.com/mrz1836/hdwscan/internal/cache"
	"github.com/mrz1836/hdwscan/internal/chain"
	"github.com/mrz1836/hdwscan/internal/chain/eth"
	"github.com/mrz1836/hdwscan/internal/config"
	"github.com/mrz1836/hdwscan/internal/discovery"
	"github.com/mrz1836/hdwscan/internal/metrics"
	"github.com/mrz1836/hdwscan/internal/output"
	hdwerr "github.com/mrz1836/hdwscan/pkg/errors"
)

// FetcherFactory builds the balance source for a scan. The returned function
// releases it and is never nil.
type FetcherFactory func(ctx context.Context, cfg *config.Config) (discovery.BalanceFetcher, func(), error)

// CommandContext holds dependencies for CLI commands.
type CommandContext struct {
	Config     *config.Config
	Logger     *config.Logger
	Formatter  *output.Formatter
	Metrics    *metrics.Metrics
	NewFetcher FetcherFactory
}

// NewCommandContext creates a context with the given dependencies.
func NewCommandContext(cfg *config.Config, logger *config.Logger, formatter *output.Formatter) *CommandContext {
	return &CommandContext{
		Config:     cfg,
		Logger:     logger,
		Formatter:  formatter,
		Metrics:    metrics.Global,
		NewFetcher: fetcherFactory,
	}
}

// OpenStore loads the configured account store.
func (c *CommandContext) OpenStore() (*accountstore.Store, error) {
	store := accountstore.New(c.Config.StorePath())
	if err := store.Load(); err != nil {
		return nil, err
	}
	return store, nil
}

type cmdContextKey struct{}

// SetCmdContext attaches cc to the command's context.
func SetCmdContext(cmd *cobra.Command, cc *CommandContext) {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	cmd.SetContext(context.WithValue(base, cmdContextKey{}, cc))
}

// GetCmdContext returns the context attached by SetCmdContext, or one built
// from the globals.
func GetCmdContext(cmd *cobra.Command) *CommandContext {
	if ctx := cmd.Context(); ctx != nil {
		if cc, ok := ctx.Value(cmdContextKey{}).(*CommandContext); ok {
			return cc
		}
	}
	return NewCommandContext(cfg, logger, formatter)
}

// contextWithTimeout returns a timeout context rooted in the command context.
func contextWithTimeout(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	base := cmd.Context()
	if base == nil {
		base = context.Background()
	}
	return context.WithTimeout(base, d)
}

// fetcherFactory is swapped out by tests.
//
//nolint:gochecknoglobals // Replaced in tests
var fetcherFactory FetcherFactory = dialFetcher

// dialFetcher prices the configured address book over JSON-RPC, rate limited
// per endpoint and retried on transient failures.
func dialFetcher(ctx context.Context, cfg *config.Config) (discovery.BalanceFetcher, func(), error) {
	noop := func() {}

	bookPath := cfg.AddressBookPath()
	book, err := eth.LoadAddressBook(bookPath)
	if err != nil {
		return nil, noop, hdwerr.WithSuggestion(err,
			"export the derived addresses of each path to "+bookPath+" (see network.address_book)")
	}

	f, err := eth.Dial(ctx, cfg.Network.RPC, book, metrics.Global)
	if err != nil {
		return nil, noop, err
	}

	retry := chain.DefaultRetryConfig()
	retry.MaxAttempts = cfg.Discovery.RetryAttempts
	limiter := chain.NewRateLimiter(cfg.Discovery.RatePerSecond, cfg.Discovery.Burst)
	fetcher := chain.Retrying(chain.RateLimited(f, limiter, cfg.Network.RPC), retry)

	if cfg.Cache.TTL <= 0 {
		return fetcher, f.Close, nil
	}

	// A corrupt cache file has been moved aside; start over with an empty one
	storage := cache.NewFileStorage(cfg.CachePath())
	balances, err := storage.Load()
	if err != nil && !errors.Is(err, cache.ErrCorruptCache) {
		f.Close()
		return nil, noop, err
	}
	release := func() {
		balances.Prune(cfg.Cache.TTL)
		_ = storage.Save(balances)
		f.Close()
	}
	return chain.Cached(fetcher, balances, cfg.Network.ID, cfg.Cache.TTL, book, metrics.Global), release, nil
}
