// Package accountstore provides the normalized, order-preserving account store.
//
// State is an immutable snapshot. Every operation returns a new State and
// leaves its receiver untouched, so callers can keep the previous snapshot
// until the new one is known to be valid.
package accountstore

import (
	"github.com/google/uuid"
)

// AssetBalance is the persisted balance of one asset held by an account.
type AssetBalance struct {
	UUID    uuid.UUID `json:"uuid"`
	Balance string    `json:"balance"`
	MTime   int64     `json:"mtime"`
}

// TxReceipt is a persisted transaction receipt. Numeric fields are decimal strings.
type TxReceipt struct {
	Hash     string `json:"hash,omitempty"`
	ChainID  int64  `json:"chainId"`
	From     string `json:"from,omitempty"`
	To       string `json:"to,omitempty"`
	Nonce    string `json:"nonce,omitempty"`
	Data     string `json:"data,omitempty"`
	GasLimit string `json:"gasLimit"`
	GasPrice string `json:"gasPrice"`
	GasUsed  string `json:"gasUsed,omitempty"`
	Value    string `json:"value"`
	Status   *int   `json:"status,omitempty"`
}

// Account is a persisted account record keyed by UUID.
type Account struct {
	UUID         uuid.UUID      `json:"uuid"`
	Label        string         `json:"label,omitempty"`
	Address      string         `json:"address"`
	NetworkID    string         `json:"networkId,omitempty"`
	DPath        string         `json:"dPath,omitempty"`
	Assets       []AssetBalance `json:"assets"`
	Transactions []TxReceipt    `json:"transactions"`
}

// ActiveAccounts exposes the ordered set of account identifiers the user has
// marked active. Settings persistence lives outside this package.
type ActiveAccounts interface {
	ActiveAccountIDs() []uuid.UUID
}

// accountNamespace scopes deterministic account ids.
//
//nolint:gochecknoglobals // Fixed namespace value
var accountNamespace = uuid.MustParse("2b4c8a4e-3f1d-4a8e-9d5b-6c1f0e7a9b31")

// NewAccountUUID derives a stable id for an address on a network, so that
// importing the same address twice yields the same key.
func NewAccountUUID(networkID, address string) uuid.UUID {
	return uuid.NewSHA1(accountNamespace, []byte(networkID+":"+address))
}

func (a Account) clone() Account {
	out := a
	if a.Assets != nil {
		out.Assets = append([]AssetBalance(nil), a.Assets...)
	}
	if a.Transactions != nil {
		out.Transactions = make([]TxReceipt, len(a.Transactions))
		for i, tx := range a.Transactions {
			out.Transactions[i] = tx
			if tx.Status != nil {
				status := *tx.Status
				out.Transactions[i].Status = &status
			}
		}
	}
	return out
}
