package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/hdwscan/internal/discovery"
	"github.com/mrz1836/hdwscan/internal/dpath"
	"github.com/mrz1836/hdwscan/internal/fileutil"
	"github.com/mrz1836/hdwscan/internal/ledger"
	"github.com/mrz1836/hdwscan/internal/output"
	"github.com/mrz1836/hdwscan/internal/ranking"
	hdwerr "github.com/mrz1836/hdwscan/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// scanPaths restricts the scan to these path labels.
	scanPaths []string
	// scanSelect and scanDeselect adjust the default selection.
	scanSelect   []string
	scanDeselect []string
	// scanShowEmpty lists deselected addresses of the viewed path.
	scanShowEmpty bool
	// scanView is the label of the path whose deselected addresses are listed.
	scanView string
	// scanMore requests this many extra batches per path after the automatic scan.
	scanMore int
	// scanExport is the CSV destination, "-" for stdout.
	scanExport string
	// scanCommit imports the selected accounts into the store.
	scanCommit bool
	// scanTimeout bounds the whole scan.
	scanTimeout time.Duration
)

// scanCmd discovers accounts across derivation paths.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan derivation paths for funded addresses",
	Long: `Scan the configured derivation paths for addresses and their balances.

Each path is read in batches. While the tail of a batch still holds funds the
next batch is requested automatically, up to discovery.max_addresses per path.
Use --more to read further batches by hand.

Funded addresses are selected by default. Addresses with an empty balance can
be added with --select, up to discovery.empty_balance_cap of them.

Examples:
  hdwscan scan
  hdwscan scan --path "Default (ETH)" --path "Ledger Live (ETH)"
  hdwscan scan --show-empty --view "Ledger Live (ETH)"
  hdwscan scan --select 0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359 --commit
  hdwscan scan --export accounts.csv -o json`,
	RunE: runScan,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringArrayVar(&scanPaths, "path", nil, "derivation path label to scan (repeatable, default: all)")
	scanCmd.Flags().StringArrayVar(&scanSelect, "select", nil, "address to select (repeatable)")
	scanCmd.Flags().StringArrayVar(&scanDeselect, "deselect", nil, "address to deselect (repeatable)")
	scanCmd.Flags().BoolVar(&scanShowEmpty, "show-empty", false, "list deselected addresses of the viewed path")
	scanCmd.Flags().StringVar(&scanView, "view", "", "path whose deselected addresses --show-empty lists, scanned if needed (default: first scanned)")
	scanCmd.Flags().IntVar(&scanMore, "more", 0, "extra batches to scan per path")
	scanCmd.Flags().StringVar(&scanExport, "export", "", "write every scanned address to a CSV file (- for stdout)")
	scanCmd.Flags().BoolVar(&scanCommit, "commit", false, "import the selected addresses into the account store")
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", discovery.DefaultTimeout, "maximum scan duration")
}

// ScanResponse is the JSON response for the scan command.
type ScanResponse struct {
	Network   string                `json:"network"`
	Asset     string                `json:"asset"`
	Paths     []string              `json:"paths"`
	Scanned   int                   `json:"scanned"`
	Accounts  []ScanAccountResponse `json:"accounts"`
	Summary   ranking.Summary       `json:"summary"`
	Refused   []string              `json:"refused,omitempty"`
	Exported  string                `json:"exported,omitempty"`
	Committed []string              `json:"committed,omitempty"`
}

// ScanAccountResponse is one displayed address.
type ScanAccountResponse struct {
	Address  string `json:"address"`
	Path     string `json:"path"`
	Index    int    `json:"index"`
	Balance  string `json:"balance"` // display units, empty when unknown
	Selected bool   `json:"selected"`
}

func runScan(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)

	if scanMore < 0 {
		return hdwerr.WithSuggestion(hdwerr.ErrInvalidInput, "--more must not be negative")
	}

	paths := cc.Config.Paths
	if len(scanPaths) > 0 {
		var err error
		if paths, err = dpath.Resolve(cc.Config.Paths, scanPaths); err != nil {
			return err
		}
	}
	view := paths[0]
	if scanView != "" {
		resolved, err := dpath.Resolve(cc.Config.Paths, []string{scanView})
		if err != nil {
			return err
		}
		view = resolved[0]
	}

	ctx, cancel := contextWithTimeout(cmd, scanTimeout)
	defer cancel()

	fetcher, release, err := cc.NewFetcher(ctx, cc.Config)
	defer release()
	if err != nil {
		return err
	}

	opts := cc.Config.DiscoveryOptions()
	if !cc.Formatter.IsJSON() && verbose {
		opts.ProgressCallback = progressPrinter(cmd.ErrOrStderr())
	}
	ctrl := discovery.NewController(fetcher, opts, cc.Logger)

	scope := discovery.Scope{Asset: cc.Config.Asset.Ticker, Network: cc.Config.Network.ID, Paths: paths}
	if err := scanAll(ctx, ctrl, scope, scanMore); err != nil {
		return err
	}
	// Viewing a path outside the scan adds it to the session
	if !scope.Has(view) {
		if err := ctrl.AddPath(ctx, view); err != nil {
			return err
		}
		if err := waitScan(ctx, ctrl); err != nil {
			return err
		}
	}

	refused, err := applySelection(ctrl, scanDeselect, scanSelect)
	if err != nil {
		return err
	}

	snap := ctrl.Snapshot()
	asset := cc.Config.RankingAsset()
	resp := ScanResponse{
		Network:  cc.Config.Network.ID,
		Asset:    asset.Ticker,
		Scanned:  len(snap.Scanned),
		Accounts: accountResponses(ranking.Rank(snap.Ledger.Entries(), scanShowEmpty, view), asset),
		Summary:  ranking.Summarize(snap.Ledger, snap.Scanned, opts.EmptyBalanceCap),
		Refused:  refused,
	}
	for _, p := range snap.Scope.Paths {
		resp.Paths = append(resp.Paths, p.Label)
	}

	if scanExport != "" {
		if err := writeExport(cmd.OutOrStdout(), scanExport, ranking.ExportRows(snap.Scanned, asset)); err != nil {
			return err
		}
		resp.Exported = scanExport
	}

	if scanCommit {
		store, err := cc.OpenStore()
		if err != nil {
			return err
		}
		committed, err := ctrl.Commit(store, discovery.CommitTarget{
			NetworkID: cc.Config.Network.ID,
			AssetUUID: asset.UUID,
		})
		if err != nil {
			return err
		}
		for _, a := range committed {
			resp.Committed = append(resp.Committed, a.UUID.String())
		}
	}

	cc.Logger.Debug("scan metrics: %+v", cc.Metrics.Snapshot())

	if cc.Formatter.IsJSON() {
		return cc.Formatter.Print(resp)
	}
	// The CSV already went to stdout
	if scanExport == "-" {
		return nil
	}
	return displayScanText(cmd, cc, resp)
}

// scanAll runs the automatic scan and then extra batches path by path.
func scanAll(ctx context.Context, ctrl *discovery.Controller, scope discovery.Scope, more int) error {
	if err := ctrl.StartScan(ctx, scope); err != nil {
		return err
	}
	if err := waitScan(ctx, ctrl); err != nil {
		return err
	}

	for i := 0; i < more; i++ {
		for _, p := range scope.Paths {
			if err := ctrl.ScanMore(ctx, p); err != nil {
				return err
			}
			if err := waitScan(ctx, ctrl); err != nil {
				return err
			}
		}
	}
	return nil
}

func waitScan(ctx context.Context, ctrl *discovery.Controller) error {
	if err := ctrl.Wait(ctx); err != nil {
		ctrl.CompleteScan()
		if errors.Is(err, context.DeadlineExceeded) {
			return hdwerr.WithSuggestion(hdwerr.WithCause(hdwerr.ErrNetworkError, err), "raise --timeout or scan fewer paths")
		}
		return err
	}
	return nil
}

// applySelection deselects and then selects the given addresses. Addresses
// match case-insensitively. It returns the selections the empty balance cap
// refused.
func applySelection(ctrl *discovery.Controller, deselect, selectAddrs []string) ([]string, error) {
	known := make(map[string]string)
	for _, a := range ctrl.Snapshot().Scanned {
		known[strings.ToLower(a.Address)] = a.Address
	}
	resolve := func(input string) (string, error) {
		if addr, ok := known[strings.ToLower(strings.TrimSpace(input))]; ok {
			return addr, nil
		}
		return "", hdwerr.WithSuggestion(
			hdwerr.WithDetails(hdwerr.ErrNotFound, map[string]string{"address": input}),
			"only scanned addresses can be selected; try --more or --show-empty",
		)
	}

	for _, input := range deselect {
		addr, err := resolve(input)
		if err != nil {
			return nil, err
		}
		if _, err := ctrl.SetSelected(addr, false); err != nil {
			return nil, err
		}
	}

	var refused []string
	for _, input := range selectAddrs {
		addr, err := resolve(input)
		if err != nil {
			return nil, err
		}
		entry, _ := ctrl.Snapshot().Ledger.Get(addr)
		if entry.IsSelected {
			continue
		}
		changed, err := ctrl.SetSelected(addr, true)
		if err != nil {
			return nil, err
		}
		if !changed {
			refused = append(refused, addr)
		}
	}
	return refused, nil
}

func accountResponses(entries []ledger.Entry, asset ranking.Asset) []ScanAccountResponse {
	out := make([]ScanAccountResponse, 0, len(entries))
	for _, e := range entries {
		var balance string
		if e.Balance != nil {
			balance = e.Balance.Format(asset.Decimals)
		}
		out = append(out, ScanAccountResponse{
			Address:  e.Address,
			Path:     e.BaseDPath.Label,
			Index:    e.PathIndex,
			Balance:  balance,
			Selected: e.IsSelected,
		})
	}
	return out
}

// writeExport writes rows as CSV to dest, or to stdout for "-".
func writeExport(stdout io.Writer, dest string, rows []ranking.ExportRow) error {
	if dest == "-" {
		return output.WriteCSV(stdout, ranking.ExportHeader, ranking.Records(rows))
	}

	var buf bytes.Buffer
	if err := output.WriteCSV(&buf, ranking.ExportHeader, ranking.Records(rows)); err != nil {
		return err
	}
	if err := fileutil.WriteAtomic(dest, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	return nil
}

func displayScanText(cmd *cobra.Command, cc *CommandContext, resp ScanResponse) error {
	w := cc.Formatter.Writer()

	output.Infof(w, "Scanned %d addresses on %s across %d paths", resp.Scanned, resp.Network, len(resp.Paths))

	if len(resp.Accounts) == 0 {
		_, _ = fmt.Fprintln(w, "No funded addresses found.")
	} else {
		table := output.NewTable("ADDRESS", "PATH", "INDEX", "BALANCE", "SELECTED")
		table.SetAlignRight(2, 3)
		for _, a := range resp.Accounts {
			balance := a.Balance
			if balance == "" {
				balance = "?"
			} else {
				balance += " " + resp.Asset
			}
			selected := ""
			if a.Selected {
				selected = "yes"
			}
			table.AddRow(a.Address, a.Path, strconv.Itoa(a.Index), balance, selected)
		}
		if err := table.Render(w); err != nil {
			return err
		}
	}

	_, _ = fmt.Fprintf(w, "\nSelected: %d  Empty selected: %s\n", resp.Summary.Selected, resp.Summary)

	for _, addr := range resp.Refused {
		output.Warnf(cmd.ErrOrStderr(), "%s not selected: empty balance limit of %d reached", addr, resp.Summary.EmptyCap)
	}
	if resp.Exported != "" {
		output.Successf(w, "Exported %d addresses to %s", resp.Scanned, resp.Exported)
	}
	if scanCommit {
		output.Successf(w, "Committed %d accounts", len(resp.Committed))
	}
	return nil
}

// progressPrinter writes scan progress lines to w.
func progressPrinter(w io.Writer) discovery.ProgressCallback {
	return func(u discovery.ProgressUpdate) {
		switch u.Phase {
		case discovery.PhaseError:
			output.Warnf(w, "%s: %s", u.PathLabel, u.Message)
		case discovery.PhaseCompleted:
			output.Infof(w, "scan complete: %d addresses, %d selected", u.AddressesScanned, u.Selected)
		default:
			output.Infof(w, "%s: %d addresses scanned", u.PathLabel, u.AddressesScanned)
		}
	}
}
