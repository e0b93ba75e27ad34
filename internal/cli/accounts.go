package cli

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mrz1836/hdwscan/internal/accountstore"
	"github.com/mrz1836/hdwscan/internal/amount"
	"github.com/mrz1836/hdwscan/internal/output"
	hdwerr "github.com/mrz1836/hdwscan/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	// accountsCurrent restricts the listing to settings.active_accounts.
	accountsCurrent bool
	// accountsResetConfirm confirms wiping the store.
	accountsResetConfirm bool
)

// accountsCmd is the parent command for account store operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Manage imported accounts",
	Long:  `Inspect and edit the accounts imported with 'hdwscan scan --commit'.`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var accountsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List imported accounts",
	Long: `List imported accounts in store order.

With --current only the accounts named in settings.active_accounts are shown.

Examples:
  hdwscan accounts list
  hdwscan accounts list --current -o json`,
	RunE: runAccountsList,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var accountsTxsCmd = &cobra.Command{
	Use:   "txs",
	Short: "List transactions of every account",
	RunE:  runAccountsTxs,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var accountsRemoveCmd = &cobra.Command{
	Use:   "remove <uuid>",
	Short: "Remove an imported account",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountsRemove,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var accountsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove every imported account",
	Long: `Remove every imported account from the store.

Example:
  hdwscan accounts reset --yes`,
	RunE: runAccountsReset,
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(accountsCmd)
	accountsCmd.AddCommand(accountsListCmd)
	accountsCmd.AddCommand(accountsTxsCmd)
	accountsCmd.AddCommand(accountsRemoveCmd)
	accountsCmd.AddCommand(accountsResetCmd)

	accountsListCmd.Flags().BoolVar(&accountsCurrent, "current", false, "only list active accounts")
	accountsResetCmd.Flags().BoolVar(&accountsResetConfirm, "yes", false, "confirm removing every account")
}

// AccountResponse is one account in JSON output.
type AccountResponse struct {
	UUID      string `json:"uuid"`
	Label     string `json:"label"`
	Address   string `json:"address"`
	NetworkID string `json:"network_id"`
	DPath     string `json:"dpath"`
	Balance   string `json:"balance"` // configured asset, display units
	TxCount   int    `json:"tx_count"`
}

// TxResponse is one transaction in JSON output.
type TxResponse struct {
	Hash     string `json:"hash"`
	ChainID  int64  `json:"chain_id"`
	From     string `json:"from"`
	To       string `json:"to"`
	Value    string `json:"value"`
	GasLimit string `json:"gas_limit"`
	GasPrice string `json:"gas_price"`
	GasUsed  string `json:"gas_used,omitempty"`
	Status   *int   `json:"status,omitempty"`
}

func runAccountsList(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)

	store, err := cc.OpenStore()
	if err != nil {
		return err
	}
	state := store.Snapshot()
	if accountsCurrent {
		state, err = accountstore.NewState(accountstore.SelectCurrentAccounts(state, cc.Config)...)
		if err != nil {
			return err
		}
	}

	accounts, err := accountstore.GetAccounts(state)
	if err != nil {
		return err
	}

	asset := cc.Config.RankingAsset()
	resp := make([]AccountResponse, 0, len(accounts))
	for _, a := range accounts {
		r := AccountResponse{
			UUID:      a.UUID.String(),
			Label:     a.Label,
			Address:   a.Address,
			NetworkID: a.NetworkID,
			DPath:     a.DPath,
			TxCount:   len(a.Transactions),
		}
		for _, b := range a.Assets {
			if b.UUID == asset.UUID {
				r.Balance = b.Balance.Format(asset.Decimals)
			}
		}
		resp = append(resp, r)
	}

	if cc.Formatter.IsJSON() {
		return cc.Formatter.Print(resp)
	}

	w := cc.Formatter.Writer()
	if len(resp) == 0 {
		_, _ = fmt.Fprintln(w, "No accounts imported. Run 'hdwscan scan --commit' first.")
		return nil
	}
	table := output.NewTable("UUID", "LABEL", "ADDRESS", "BALANCE", "TXS")
	table.SetAlignRight(3, 4)
	for _, r := range resp {
		balance := "-"
		if r.Balance != "" {
			balance = r.Balance + " " + asset.Ticker
		}
		table.AddRow(r.UUID, r.Label, r.Address, balance, strconv.Itoa(r.TxCount))
	}
	return table.Render(w)
}

func runAccountsTxs(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)

	store, err := cc.OpenStore()
	if err != nil {
		return err
	}
	txs, err := accountstore.SelectAccountTxs(store.Snapshot())
	if err != nil {
		return err
	}

	resp := make([]TxResponse, 0, len(txs))
	for _, tx := range txs {
		r := TxResponse{
			Hash:     tx.Hash,
			ChainID:  tx.ChainID,
			From:     tx.From,
			To:       tx.To,
			Value:    tx.Value.String(),
			GasLimit: tx.GasLimit.String(),
			GasPrice: tx.GasPrice.String(),
			Status:   tx.Status,
		}
		if amount.Known(tx.GasUsed) {
			r.GasUsed = tx.GasUsed.String()
		}
		resp = append(resp, r)
	}

	if cc.Formatter.IsJSON() {
		return cc.Formatter.Print(resp)
	}

	w := cc.Formatter.Writer()
	if len(resp) == 0 {
		_, _ = fmt.Fprintln(w, "No transactions.")
		return nil
	}
	table := output.NewTable("HASH", "FROM", "TO", "VALUE", "STATUS")
	table.SetAlignRight(3)
	for _, r := range resp {
		status := "pending"
		if r.Status != nil {
			status = strconv.Itoa(*r.Status)
		}
		table.AddRow(r.Hash, r.From, r.To, r.Value, status)
	}
	return table.Render(w)
}

func runAccountsRemove(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)

	id, err := uuid.Parse(args[0])
	if err != nil {
		return hdwerr.WithDetails(hdwerr.ErrInvalidInput, map[string]string{"uuid": args[0]})
	}

	store, err := cc.OpenStore()
	if err != nil {
		return err
	}
	removed, ok := store.Snapshot().Get(id)
	if !ok {
		return hdwerr.WithDetails(hdwerr.ErrNotFound, map[string]string{"uuid": id.String()})
	}
	if _, err := store.Apply(func(s accountstore.State) (accountstore.State, error) {
		return s.Destroy(id), nil
	}); err != nil {
		return err
	}

	if cc.Formatter.IsJSON() {
		return cc.Formatter.Print(map[string]string{"removed": id.String(), "address": removed.Address})
	}
	output.Successf(cc.Formatter.Writer(), "Removed %s (%s)", removed.Label, removed.Address)
	return nil
}

func runAccountsReset(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)

	if !accountsResetConfirm {
		return hdwerr.WithSuggestion(hdwerr.ErrInvalidInput, "pass --yes to remove every imported account")
	}

	store, err := cc.OpenStore()
	if err != nil {
		return err
	}
	count := store.Snapshot().Len()
	if _, err := store.Apply(func(s accountstore.State) (accountstore.State, error) {
		return s.Reset(), nil
	}); err != nil {
		return err
	}

	if cc.Formatter.IsJSON() {
		return cc.Formatter.Print(map[string]int{"removed": count})
	}
	output.Successf(cc.Formatter.Writer(), "Removed %d accounts", count)
	return nil
}
