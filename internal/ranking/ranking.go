// Package ranking orders discovered accounts for display and projects them
// into export rows.
package ranking

import (
	"slices"
	"strconv"

	"github.com/google/uuid"

	"github.com/mrz1836/hdwscan/internal/amount"
	"github.com/mrz1836/hdwscan/internal/dpath"
	"github.com/mrz1836/hdwscan/internal/ledger"
)

// ExportHeader is the header row of an account export.
//
//nolint:gochecknoglobals // Fixed column layout
var ExportHeader = []string{"address", "balance", "path", "asset"}

// Asset describes the asset balances are denominated in.
type Asset struct {
	UUID     uuid.UUID `json:"uuid"`
	Ticker   string    `json:"ticker"`
	Decimals int       `json:"decimals"`
}

// ExportRow is one exported account.
type ExportRow struct {
	Address string `json:"address"`
	Balance string `json:"balance"` // display units, empty when unknown
	Path    string `json:"path"`
	Asset   string `json:"asset"`
}

// Record returns the row as CSV fields in ExportHeader order.
func (r ExportRow) Record() []string {
	return []string{r.Address, r.Balance, r.Path, r.Asset}
}

// Rank returns the display order of entries.
//
// Selected entries with a known nonzero balance come first, largest balance
// first. When displayEmpty is set they are followed by the deselected
// entries on selectedDPath, by ascending path index. Both sorts are stable.
// Nothing else is included.
func Rank(entries []ledger.Entry, displayEmpty bool, selectedDPath dpath.DPath) []ledger.Entry {
	funded := make([]ledger.Entry, 0, len(entries))
	var deselected []ledger.Entry
	for _, e := range entries {
		switch {
		case e.IsSelected && amount.NonZero(e.Balance):
			funded = append(funded, e)
		case displayEmpty && !e.IsSelected && e.BaseDPath.Same(selectedDPath):
			deselected = append(deselected, e)
		}
	}

	slices.SortStableFunc(funded, func(a, b ledger.Entry) int {
		return b.Balance.Cmp(*a.Balance)
	})
	slices.SortStableFunc(deselected, func(a, b ledger.Entry) int {
		return a.PathIndex - b.PathIndex
	})

	return append(funded, deselected...)
}

// ExportRows projects every account, in the given order, into an export row.
// Selection plays no part: the export is a total projection of the scan.
func ExportRows(accounts []ledger.Account, asset Asset) []ExportRow {
	rows := make([]ExportRow, 0, len(accounts))
	for _, a := range accounts {
		var balance string
		if a.Balance != nil {
			balance = a.Balance.Format(asset.Decimals)
		}
		rows = append(rows, ExportRow{
			Address: a.Address,
			Balance: balance,
			Path:    a.BaseDPath.Label,
			Asset:   asset.Ticker,
		})
	}
	return rows
}

// Records converts rows to CSV records.
func Records(rows []ExportRow) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Record())
	}
	return out
}

// Summary is the status line of a discovery session.
type Summary struct {
	Scanned       int `json:"scanned"`
	Selected      int `json:"selected"`
	EmptySelected int `json:"empty_selected"`
	EmptyCap      int `json:"empty_cap"`
}

// Summarize counts scanned and selected accounts.
func Summarize(l ledger.Ledger, scanned []ledger.Account, emptyCap int) Summary {
	return Summary{
		Scanned:       len(scanned),
		Selected:      len(l.Selected()),
		EmptySelected: len(l.EmptyBalanceSelected()),
		EmptyCap:      emptyCap,
	}
}

// String renders the empty-address counter, e.g. "2/5".
func (s Summary) String() string {
	return strconv.Itoa(s.EmptySelected) + "/" + strconv.Itoa(s.EmptyCap)
}
