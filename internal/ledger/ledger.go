// Package ledger tracks which discovered addresses the user has selected for
// import. A Ledger is an immutable snapshot: Merge and Toggle return a new
// Ledger and never modify their input, so the owner can swap snapshots
// atomically.
package ledger

import (
	"github.com/mrz1836/hdwscan/internal/amount"
	"github.com/mrz1836/hdwscan/internal/dpath"
	hdwerr "github.com/mrz1836/hdwscan/pkg/errors"
)

// DefaultEmptyBalanceCap is how many zero-balance addresses may be selected at once.
const DefaultEmptyBalanceCap = 5

// Account is one scan result: an address at a position on a derivation path.
type Account struct {
	Address   string         `json:"address"`
	PathIndex int            `json:"path_index"`
	BaseDPath dpath.DPath    `json:"dpath"`
	Balance   *amount.Amount `json:"balance"` // nil when unknown
}

// Validate checks the fields the ledger depends on.
func (a Account) Validate() error {
	switch {
	case a.Address == "":
		return hdwerr.WithDetails(hdwerr.ErrInvalidAccount, map[string]string{"reason": "empty address"})
	case a.BaseDPath.IsZero():
		return hdwerr.WithDetails(hdwerr.ErrInvalidAccount, map[string]string{
			"address": a.Address,
			"reason":  "unknown derivation path",
		})
	case a.PathIndex < 0:
		return hdwerr.WithDetails(hdwerr.ErrInvalidAccount, map[string]string{
			"address": a.Address,
			"reason":  "negative path index",
		})
	}
	return nil
}

// HasZeroBalance reports whether the balance is known and zero.
func (a Account) HasZeroBalance() bool {
	return a.Balance != nil && a.Balance.IsZero()
}

// Entry is an account plus its selection flag.
type Entry struct {
	Account
	IsSelected bool `json:"is_selected"`
}

// SelectedAccount is what gets imported once the user confirms a selection.
type SelectedAccount struct {
	Address   string
	Path      string // concrete path, e.g. m/44'/60'/0'/0/3
	BaseDPath dpath.DPath
	Index     int
	Balance   *amount.Amount
}

// Ledger maps addresses to entries, remembering first-insertion order.
type Ledger struct {
	order   []string
	entries map[string]Entry
}

// Empty returns a ledger with no entries.
func Empty() Ledger {
	return Ledger{}
}

// Len returns the number of entries.
func (l Ledger) Len() int {
	return len(l.order)
}

// Get returns the entry for address.
func (l Ledger) Get(address string) (Entry, bool) {
	e, ok := l.entries[address]
	return e, ok
}

// Entries returns all entries in first-insertion order.
func (l Ledger) Entries() []Entry {
	out := make([]Entry, 0, len(l.order))
	for _, addr := range l.order {
		out = append(out, l.entries[addr])
	}
	return out
}

func (l Ledger) clone() Ledger {
	out := Ledger{
		order:   make([]string, len(l.order)),
		entries: make(map[string]Entry, len(l.entries)),
	}
	copy(out.order, l.order)
	for k, v := range l.entries {
		out.entries[k] = v
	}
	return out
}

// Merge folds scan results into l.
//
// A new address is inserted selected if and only if its balance is known and
// nonzero. A known address has its account fields refreshed and keeps its
// selection flag. Empty results on a non-empty ledger mean the discovery scope
// was reset, and the empty ledger is returned.
//
// Results are validated first; an invalid result fails with ErrInvalidAccount
// and l is returned unchanged.
func Merge(l Ledger, results []Account) (Ledger, error) {
	for _, r := range results {
		if err := r.Validate(); err != nil {
			return l, err
		}
	}

	if len(results) == 0 {
		if l.Len() != 0 {
			return Empty(), nil
		}
		return l, nil
	}

	out := l.clone()
	for _, r := range results {
		if existing, ok := out.entries[r.Address]; ok {
			existing.Account = r
			out.entries[r.Address] = existing
			continue
		}
		out.order = append(out.order, r.Address)
		out.entries[r.Address] = Entry{
			Account:    r,
			IsSelected: amount.NonZero(r.Balance),
		}
	}
	return out, nil
}

// Toggle flips the selection flag of address.
//
// Selecting an address with a known zero balance is refused while the number
// of selected zero-balance addresses is already at emptyBalanceCap.
// Deselecting is always allowed. Unknown addresses are ignored. The bool
// reports whether the ledger changed; a refusal is not an error.
func Toggle(l Ledger, address string, emptyBalanceCap int) (Ledger, bool) {
	entry, ok := l.entries[address]
	if !ok {
		return l, false
	}

	if !entry.IsSelected && entry.HasZeroBalance() &&
		len(l.EmptyBalanceSelected()) >= emptyBalanceCap {
		return l, false
	}

	out := l.clone()
	entry.IsSelected = !entry.IsSelected
	out.entries[address] = entry
	return out, true
}

// Selected returns the selected entries in insertion order.
func (l Ledger) Selected() []Entry {
	out := []Entry{}
	for _, addr := range l.order {
		if e := l.entries[addr]; e.IsSelected {
			out = append(out, e)
		}
	}
	return out
}

// EmptyBalanceSelected returns the selected entries whose balance is known and zero.
func (l Ledger) EmptyBalanceSelected() []Entry {
	out := []Entry{}
	for _, addr := range l.order {
		if e := l.entries[addr]; e.IsSelected && e.HasZeroBalance() {
			out = append(out, e)
		}
	}
	return out
}

// SelectedAccounts returns the import payload for every selected entry.
func (l Ledger) SelectedAccounts() []SelectedAccount {
	selected := l.Selected()
	out := make([]SelectedAccount, 0, len(selected))
	for _, e := range selected {
		out = append(out, SelectedAccount{
			Address:   e.Address,
			Path:      e.BaseDPath.At(e.PathIndex),
			BaseDPath: e.BaseDPath,
			Index:     e.PathIndex,
			Balance:   e.Balance,
		})
	}
	return out
}
