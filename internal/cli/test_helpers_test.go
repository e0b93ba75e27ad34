package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/hdwscan/internal/amount"
	"github.com/mrz1836/hdwscan/internal/chain"
	"github.com/mrz1836/hdwscan/internal/config"
	"github.com/mrz1836/hdwscan/internal/discovery"
	"github.com/mrz1836/hdwscan/internal/dpath"
	"github.com/mrz1836/hdwscan/internal/ledger"
)

// addressesPerPath is how deep the fake chain goes on every path.
const addressesPerPath = 20

// fakeAddress is the address at index on the n-th default path.
func fakeAddress(path dpath.DPath, index int) string {
	n := slices.IndexFunc(dpath.Defaults(), path.Same)
	return fmt.Sprintf("0x%02x%038x", n+1, index)
}

// fakeChain funds index 0 (2 ETH) and index 3 (0.5 ETH) of the default path.
func fakeChain() chain.FetcherFunc {
	funded := map[string]string{
		fakeAddress(dpath.Defaults()[0], 0): "2000000000000000000",
		fakeAddress(dpath.Defaults()[0], 3): "500000000000000000",
	}
	return func(_ context.Context, path dpath.DPath, start, count int) ([]ledger.Account, error) {
		var out []ledger.Account
		for i := start; i < start+count && i < addressesPerPath; i++ {
			addr := fakeAddress(path, i)
			balance := amount.FromUint64(0)
			if wei, ok := funded[addr]; ok {
				balance = amount.MustParse(wei)
			}
			out = append(out, ledger.Account{Address: addr, PathIndex: i, BaseDPath: path, Balance: amount.Ptr(balance)})
		}
		return out, nil
	}
}

// withFetcher replaces the fetcher factory for the duration of the test.
func withFetcher(t *testing.T, f discovery.BalanceFetcher, err error) {
	t.Helper()

	orig := fetcherFactory
	t.Cleanup(func() { fetcherFactory = orig })
	fetcherFactory = func(context.Context, *config.Config) (discovery.BalanceFetcher, func(), error) {
		return f, func() {}, err
	}
}

// resetFlags restores every flag of the command tree to its default so that
// runs do not leak into each other.
func resetFlags(root *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	walkCommands(root, func(c *cobra.Command) {
		c.Flags().VisitAll(reset)
		c.PersistentFlags().VisitAll(reset)
	})
}

// runCLI executes hdwscan with args against home and returns stdout and stderr.
func runCLI(t *testing.T, home string, args ...string) (string, string, error) {
	t.Helper()

	resetFlags(rootCmd)
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(append([]string{"--home", home}, args...))

	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// writeConfig stores cfg as the config file of home.
func writeConfig(t *testing.T, home string, modify func(*config.Config)) {
	t.Helper()

	c := config.Defaults()
	c.Home = home
	c.Logging.Level = "off"
	if modify != nil {
		modify(c)
	}
	require.NoError(t, config.Save(c, config.Path(home)))
}

func readFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(filepath.Clean(path))
	require.NoError(t, err)
	return string(data)
}
