package cli

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/hdwscan/internal/config"
	"github.com/mrz1836/hdwscan/internal/dpath"
	hdwerr "github.com/mrz1836/hdwscan/pkg/errors"
)

//nolint:gochecknoglobals // Test fixtures
var (
	defaultPath = dpath.Defaults()[0]
	addr0       = fakeAddress(defaultPath, 0)
	addr3       = fakeAddress(defaultPath, 3)
)

func scanJSON(t *testing.T, home string, args ...string) ScanResponse {
	t.Helper()

	stdout, _, err := runCLI(t, home, append([]string{"scan", "-o", "json"}, args...)...)
	require.NoError(t, err)

	var resp ScanResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	return resp
}

func addressesOf(accounts []ScanAccountResponse) []string {
	out := make([]string, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, a.Address)
	}
	return out
}

func TestScan_AllPaths(t *testing.T) {
	withFetcher(t, fakeChain(), nil)

	resp := scanJSON(t, t.TempDir())

	assert.Equal(t, "eth-mainnet", resp.Network)
	assert.Equal(t, "ETH", resp.Asset)
	assert.Len(t, resp.Paths, len(dpath.Defaults()))
	assert.Equal(t, 10*len(dpath.Defaults()), resp.Scanned)

	require.Len(t, resp.Accounts, 2)
	assert.Equal(t, ScanAccountResponse{Address: addr0, Path: defaultPath.Label, Index: 0, Balance: "2", Selected: true}, resp.Accounts[0])
	assert.Equal(t, "0.5", resp.Accounts[1].Balance)
	assert.Equal(t, 2, resp.Summary.Selected)
	assert.Equal(t, 0, resp.Summary.EmptySelected)
	assert.Equal(t, 5, resp.Summary.EmptyCap)
}

func TestScan_More(t *testing.T) {
	withFetcher(t, fakeChain(), nil)

	resp := scanJSON(t, t.TempDir(), "--path", defaultPath.Label, "--more", "1")
	assert.Equal(t, 20, resp.Scanned)

	_, _, err := runCLI(t, t.TempDir(), "scan", "--more=-1")
	require.ErrorIs(t, err, hdwerr.ErrInvalidInput)
}

func TestScan_UnknownPathSuggestsLabel(t *testing.T) {
	withFetcher(t, fakeChain(), nil)

	_, _, err := runCLI(t, t.TempDir(), "scan", "--path", "Defalt (ETH)")
	require.ErrorIs(t, err, hdwerr.ErrUnknownPath)

	var se *hdwerr.Error
	require.True(t, errors.As(err, &se))
	assert.Contains(t, se.Suggestion, defaultPath.Label)
}

func TestScan_SelectRespectsEmptyCap(t *testing.T) {
	withFetcher(t, fakeChain(), nil)

	args := []string{"--path", defaultPath.Label}
	empties := []int{1, 2, 4, 5, 6, 7}
	for _, i := range empties {
		args = append(args, "--select", fakeAddress(defaultPath, i))
	}

	resp := scanJSON(t, t.TempDir(), args...)
	assert.Equal(t, 5, resp.Summary.EmptySelected)
	assert.Equal(t, 7, resp.Summary.Selected)
	assert.Equal(t, []string{fakeAddress(defaultPath, 7)}, resp.Refused)
	assert.Equal(t, []string{addr0, addr3}, addressesOf(resp.Accounts), "empty selections are not ranked")
}

func TestScan_DeselectAndShowEmpty(t *testing.T) {
	withFetcher(t, fakeChain(), nil)

	resp := scanJSON(t, t.TempDir(), "--path", defaultPath.Label, "--deselect", strings.ToUpper(addr3), "--show-empty")

	require.Len(t, resp.Accounts, 10)
	assert.Equal(t, addr0, resp.Accounts[0].Address)
	for i, a := range resp.Accounts[1:] {
		assert.Equal(t, i+1, a.Index)
		assert.False(t, a.Selected)
	}
	assert.Equal(t, 1, resp.Summary.Selected)
}

func TestScan_ShowEmptyView(t *testing.T) {
	withFetcher(t, fakeChain(), nil)

	live := dpath.Defaults()[1]
	resp := scanJSON(t, t.TempDir(), "--path", defaultPath.Label, "--path", live.Label, "--show-empty", "--view", live.Label)

	require.Len(t, resp.Accounts, 12)
	assert.Equal(t, []string{addr0, addr3}, addressesOf(resp.Accounts[:2]))
	for _, a := range resp.Accounts[2:] {
		assert.Equal(t, live.Label, a.Path)
	}

	_, _, err := runCLI(t, t.TempDir(), "scan", "--path", defaultPath.Label, "--view", "Nowhere")
	require.ErrorIs(t, err, hdwerr.ErrUnknownPath)
}

func TestScan_ViewAddsPath(t *testing.T) {
	withFetcher(t, fakeChain(), nil)

	live := dpath.Defaults()[1]
	resp := scanJSON(t, t.TempDir(), "--path", defaultPath.Label, "--show-empty", "--view", live.Label)

	assert.Equal(t, []string{defaultPath.Label, live.Label}, resp.Paths)
	assert.Equal(t, 20, resp.Scanned)
	require.Len(t, resp.Accounts, 12)
	assert.Equal(t, live.Label, resp.Accounts[2].Path)
}

func TestScan_UnknownSelection(t *testing.T) {
	withFetcher(t, fakeChain(), nil)

	_, _, err := runCLI(t, t.TempDir(), "scan", "--path", defaultPath.Label, "--select", "0xnothere")
	require.ErrorIs(t, err, hdwerr.ErrNotFound)
	assert.Equal(t, hdwerr.ExitNotFound, ExitCode(err))
}

func TestScan_Export(t *testing.T) {
	withFetcher(t, fakeChain(), nil)

	home := t.TempDir()
	dest := filepath.Join(home, "out", "accounts.csv")
	resp := scanJSON(t, home, "--path", defaultPath.Label, "--export", dest)
	assert.Equal(t, dest, resp.Exported)

	content := readFile(t, dest)
	lines := strings.Split(strings.TrimSpace(content), "\n")
	require.Len(t, lines, 11)
	assert.Equal(t, "address,balance,path,asset", lines[0])
	assert.Equal(t, addr0+",2,Default (ETH),ETH", lines[1])
	assert.Equal(t, fakeAddress(defaultPath, 1)+",0,Default (ETH),ETH", lines[2])
}

func TestScan_ExportToStdout(t *testing.T) {
	withFetcher(t, fakeChain(), nil)

	stdout, _, err := runCLI(t, t.TempDir(), "scan", "-o", "text", "--path", defaultPath.Label, "--export", "-")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "address,balance,path,asset\n"))
	assert.Equal(t, 11, strings.Count(stdout, "\n"))
}

func TestScan_Text(t *testing.T) {
	withFetcher(t, fakeChain(), nil)

	stdout, _, err := runCLI(t, t.TempDir(), "scan", "-o", "text", "--path", defaultPath.Label)
	require.NoError(t, err)

	assert.Contains(t, stdout, "Scanned 10 addresses on eth-mainnet across 1 paths")
	assert.Contains(t, stdout, "ADDRESS")
	assert.Contains(t, stdout, addr0)
	assert.Contains(t, stdout, "2 ETH")
	assert.Contains(t, stdout, "0.5 ETH")
	assert.Contains(t, stdout, "Empty selected: 0/5")
	assert.Less(t, strings.Index(stdout, addr0), strings.Index(stdout, addr3))
}

func TestScan_RefusalWarning(t *testing.T) {
	withFetcher(t, fakeChain(), nil)

	home := t.TempDir()
	writeConfig(t, home, func(c *config.Config) { c.Discovery.EmptyBalanceCap = 0 })

	_, stderr, err := runCLI(t, home, "scan", "-o", "text", "--path", defaultPath.Label, "--select", fakeAddress(defaultPath, 1))
	require.NoError(t, err)
	assert.Contains(t, stderr, "not selected: empty balance limit of 0 reached")
}

func TestScan_FetcherError(t *testing.T) {
	withFetcher(t, nil, hdwerr.ErrNetworkError)

	_, _, err := runCLI(t, t.TempDir(), "scan")
	require.ErrorIs(t, err, hdwerr.ErrNetworkError)
}

func TestScan_DefaultFetcherNeedsAddressBook(t *testing.T) {
	home := t.TempDir()

	_, _, err := runCLI(t, home, "scan", "-o", "json")
	require.ErrorIs(t, err, hdwerr.ErrNotFound)

	var se *hdwerr.Error
	require.True(t, errors.As(err, &se))
	assert.Contains(t, se.Suggestion, filepath.Join(home, "addresses.yaml"))
}
