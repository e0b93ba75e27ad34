package config

import (
	"os"
	"strconv"
	"strings"
)

// Environment variable names.
const (
	EnvHome         = "HDWSCAN_HOME"
	EnvRPC          = "HDWSCAN_RPC"
	EnvLogLevel     = "HDWSCAN_LOG_LEVEL"
	EnvOutputFormat = "HDWSCAN_OUTPUT_FORMAT"
	EnvEmptyCap     = "HDWSCAN_EMPTY_CAP"
)

// ApplyEnvironment applies environment variable overrides to the configuration.
// Values that do not parse are ignored.
func ApplyEnvironment(cfg *Config) {
	if v := os.Getenv(EnvHome); v != "" {
		cfg.Home = v
	}

	if v := os.Getenv(EnvRPC); v != "" {
		cfg.Network.RPC = SanitizeURL(v)
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = strings.ToLower(strings.TrimSpace(v))
	}

	if v := os.Getenv(EnvOutputFormat); v != "" {
		cfg.Output.DefaultFormat = strings.ToLower(strings.TrimSpace(v))
	}

	if v := os.Getenv(EnvEmptyCap); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && n >= 0 {
			cfg.Discovery.EmptyBalanceCap = n
		}
	}
}

// SanitizeURL trims whitespace and copy-paste artifacts from a URL.
func SanitizeURL(url string) string {
	return strings.Map(func(r rune) rune {
		if r <= ' ' || r == '\u007f' || r == '"' || r == '\'' || r == '<' || r == '>' {
			return -1
		}
		return r
	}, url)
}
