// Package config provides configuration management for hdwscan.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/mrz1836/hdwscan/internal/accountstore"
	"github.com/mrz1836/hdwscan/internal/discovery"
	"github.com/mrz1836/hdwscan/internal/dpath"
	"github.com/mrz1836/hdwscan/internal/fileutil"
	"github.com/mrz1836/hdwscan/internal/ranking"
	hdwerr "github.com/mrz1836/hdwscan/pkg/errors"
)

// FileName is the name of the configuration file inside the home directory.
const FileName = "config.yaml"

// Config represents the application configuration.
type Config struct {
	Version   int             `yaml:"version"`
	Home      string          `yaml:"home"`
	Network   NetworkConfig   `yaml:"network"`
	Asset     AssetConfig     `yaml:"asset"`
	Paths     []dpath.DPath   `yaml:"paths"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Store     StoreConfig     `yaml:"store"`
	Cache     CacheConfig     `yaml:"cache"`
	Settings  SettingsConfig  `yaml:"settings"`
	Output    OutputConfig    `yaml:"output"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// NetworkConfig defines the network accounts are discovered on.
type NetworkConfig struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	ChainID     int64  `yaml:"chain_id"`
	RPC         string `yaml:"rpc"`
	AddressBook string `yaml:"address_book"`
}

// AssetConfig defines the asset balances are denominated in.
type AssetConfig struct {
	UUID     string `yaml:"uuid"`
	Ticker   string `yaml:"ticker"`
	Decimals int    `yaml:"decimals"`
}

// DiscoveryConfig defines scanning parameters.
type DiscoveryConfig struct {
	BatchSize       int     `yaml:"batch_size"`
	GapLimit        int     `yaml:"gap_limit"`
	MaxAddresses    int     `yaml:"max_addresses"`
	MaxConcurrent   int     `yaml:"max_concurrent"`
	EmptyBalanceCap int     `yaml:"empty_balance_cap"`
	RatePerSecond   float64 `yaml:"rate_per_second"`
	Burst           int     `yaml:"burst"`
	RetryAttempts   int     `yaml:"retry_attempts"`
}

// StoreConfig defines where committed accounts are persisted.
type StoreConfig struct {
	File string `yaml:"file"`
}

// CacheConfig defines the balance cache. A zero TTL disables it.
type CacheConfig struct {
	File string        `yaml:"file"`
	TTL  time.Duration `yaml:"ttl"`
}

// SettingsConfig holds user settings read by the account store.
type SettingsConfig struct {
	ActiveAccounts []string `yaml:"active_accounts"`
}

// OutputConfig defines output formatting settings.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format"`
	ShowEmpty     bool   `yaml:"show_empty"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	File   string `yaml:"file"`
	Format string `yaml:"format"`
}

// Compile-time interface check.
var _ accountstore.ActiveAccounts = (*Config)(nil)

// Load reads configuration from the specified file on top of Defaults.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, hdwerr.WithDetails(hdwerr.ErrConfigNotFound, map[string]string{"path": path})
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, hdwerr.WithCause(hdwerr.WithDetails(hdwerr.ErrConfigInvalid, map[string]string{"path": path}), err)
	}

	return cfg, nil
}

// LoadOrDefault reads the configuration at path, falling back to Defaults
// when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, hdwerr.ErrConfigNotFound) {
		return Defaults(), nil
	}
	return cfg, err
}

// Save writes configuration to the specified file.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return fileutil.WriteAtomic(path, data, 0o600)
}

// Path returns the config file path inside home.
func Path(home string) string {
	return filepath.Join(ExpandHome(home), FileName)
}

// DefaultHome returns the default hdwscan home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".hdwscan"
	}
	return filepath.Join(home, ".hdwscan")
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// resolve expands path and anchors relative paths at the configured home.
func (c *Config) resolve(path string) string {
	path = ExpandHome(path)
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(ExpandHome(c.Home), path)
}

// StorePath returns the account store file.
func (c *Config) StorePath() string {
	return c.resolve(c.Store.File)
}

// CachePath returns the balance cache file.
func (c *Config) CachePath() string {
	return c.resolve(c.Cache.File)
}

// AddressBookPath returns the address book file.
func (c *Config) AddressBookPath() string {
	return c.resolve(c.Network.AddressBook)
}

// LogFilePath returns the log file, or "" when logging to a file is disabled.
func (c *Config) LogFilePath() string {
	return c.resolve(c.Logging.File)
}

// ActiveAccountIDs returns the active account ids in configured order.
// Entries that are not valid uuids are skipped; Validate reports them.
func (c *Config) ActiveAccountIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(c.Settings.ActiveAccounts))
	for _, s := range c.Settings.ActiveAccounts {
		if id, err := uuid.Parse(s); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// AssetUUID returns the configured asset id. An unset id is derived from the
// network and ticker so that it stays stable across runs.
func (c *Config) AssetUUID() uuid.UUID {
	if id, err := uuid.Parse(c.Asset.UUID); err == nil {
		return id
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("hdwscan:asset:"+c.Network.ID+":"+c.Asset.Ticker))
}

// RankingAsset returns the asset descriptor used for display and export.
func (c *Config) RankingAsset() ranking.Asset {
	return ranking.Asset{UUID: c.AssetUUID(), Ticker: c.Asset.Ticker, Decimals: c.Asset.Decimals}
}

// DiscoveryOptions maps the discovery section onto controller options.
func (c *Config) DiscoveryOptions() *discovery.Options {
	return &discovery.Options{
		BatchSize:       c.Discovery.BatchSize,
		GapLimit:        c.Discovery.GapLimit,
		MaxAddresses:    c.Discovery.MaxAddresses,
		MaxConcurrent:   c.Discovery.MaxConcurrent,
		EmptyBalanceCap: c.Discovery.EmptyBalanceCap,
	}
}

// Validate checks the configuration for values the scanner cannot use.
func (c *Config) Validate() error {
	invalid := func(field, reason string) error {
		return hdwerr.WithDetails(hdwerr.ErrConfigInvalid, map[string]string{"field": field, "reason": reason})
	}

	if c.Network.ID == "" {
		return invalid("network.id", "must not be empty")
	}
	if c.Asset.Ticker == "" {
		return invalid("asset.ticker", "must not be empty")
	}
	if c.Asset.UUID != "" {
		if _, err := uuid.Parse(c.Asset.UUID); err != nil {
			return invalid("asset.uuid", err.Error())
		}
	}
	if c.Asset.Decimals < 0 || c.Asset.Decimals > 77 {
		return invalid("asset.decimals", "must be between 0 and 77")
	}
	if len(c.Paths) == 0 {
		return invalid("paths", "at least one derivation path is required")
	}
	seen := make(map[string]bool, len(c.Paths))
	for _, p := range c.Paths {
		if err := p.Validate(); err != nil {
			return invalid("paths", fmt.Sprintf("%q is not a path template", p.Value))
		}
		if p.Label == "" {
			return invalid("paths", fmt.Sprintf("%q has no label", p.Value))
		}
		if seen[p.Value] {
			return invalid("paths", fmt.Sprintf("%q is listed twice", p.Value))
		}
		seen[p.Value] = true
	}
	if err := c.DiscoveryOptions().Validate(); err != nil {
		return invalid("discovery", err.Error())
	}
	if c.Discovery.RatePerSecond <= 0 || c.Discovery.Burst <= 0 {
		return invalid("discovery", "rate_per_second and burst must be positive")
	}
	if c.Cache.TTL < 0 {
		return invalid("cache.ttl", "must not be negative")
	}
	if c.Cache.TTL > 0 && c.Cache.File == "" {
		return invalid("cache.file", "must be set when cache.ttl is positive")
	}
	for _, s := range c.Settings.ActiveAccounts {
		if _, err := uuid.Parse(s); err != nil {
			return invalid("settings.active_accounts", fmt.Sprintf("%q is not a uuid", s))
		}
	}
	switch c.Output.DefaultFormat {
	case "auto", "text", "json":
	default:
		return invalid("output.default_format", "must be auto, text or json")
	}
	return nil
}
