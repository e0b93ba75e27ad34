package config

import (
	"github.com/mrz1836/hdwscan/internal/accountstore"
	"github.com/mrz1836/hdwscan/internal/cache"
	"github.com/mrz1836/hdwscan/internal/discovery"
	"github.com/mrz1836/hdwscan/internal/dpath"
	"github.com/mrz1836/hdwscan/internal/ledger"
)

// DefaultETHRPCURL is the default Ethereum RPC endpoint.
// Uses PublicNode (Allnodes), which requires no API key.
const DefaultETHRPCURL = "https://ethereum-rpc.publicnode.com"

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Version: 1,
		Home:    "~/.hdwscan",
		Network: NetworkConfig{
			ID:          "eth-mainnet",
			Name:        "Ethereum",
			ChainID:     1,
			RPC:         DefaultETHRPCURL,
			AddressBook: "addresses.yaml",
		},
		Asset: AssetConfig{
			Ticker:   "ETH",
			Decimals: 18,
		},
		Paths: dpath.Defaults(),
		Discovery: DiscoveryConfig{
			BatchSize:       discovery.DefaultBatchSize,
			GapLimit:        discovery.DefaultGapLimit,
			MaxAddresses:    discovery.DefaultMaxAddresses,
			MaxConcurrent:   discovery.DefaultMaxConcurrent,
			EmptyBalanceCap: ledger.DefaultEmptyBalanceCap,
			RatePerSecond:   5,
			Burst:           10,
			RetryAttempts:   4,
		},
		Store: StoreConfig{
			File: accountstore.FileName,
		},
		Cache: CacheConfig{
			File: cache.FileName,
			TTL:  cache.DefaultStaleness,
		},
		Settings: SettingsConfig{
			ActiveAccounts: []string{},
		},
		Output: OutputConfig{
			DefaultFormat: "auto",
		},
		Logging: LoggingConfig{
			Level:  "error",
			File:   "hdwscan.log",
			Format: "text",
		},
	}
}
