package accountstore

import (
	"github.com/google/uuid"

	"github.com/mrz1836/hdwscan/internal/amount"
	hdwerr "github.com/mrz1836/hdwscan/pkg/errors"
)

// HydratedTx is a TxReceipt with numeric fields as exact amounts.
type HydratedTx struct {
	Hash     string
	ChainID  int64
	From     string
	To       string
	Nonce    string
	Data     string
	GasLimit amount.Amount
	GasPrice amount.Amount
	GasUsed  *amount.Amount // absent until mined
	Value    amount.Amount
	Status   *int
}

// HydratedAsset is an AssetBalance with an exact balance.
type HydratedAsset struct {
	UUID    uuid.UUID
	Balance amount.Amount
	MTime   int64
}

// HydratedAccount is an Account with every numeric field hydrated.
type HydratedAccount struct {
	UUID         uuid.UUID
	Label        string
	Address      string
	NetworkID    string
	DPath        string
	Assets       []HydratedAsset
	Transactions []HydratedTx
}

// Hydrate converts a persisted receipt to its exact form.
func Hydrate(tx TxReceipt) (HydratedTx, error) {
	out := HydratedTx{
		Hash:    tx.Hash,
		ChainID: tx.ChainID,
		From:    tx.From,
		To:      tx.To,
		Nonce:   tx.Nonce,
		Data:    tx.Data,
	}
	if tx.Status != nil {
		status := *tx.Status
		out.Status = &status
	}

	var err error
	if out.GasLimit, err = hydrateField("gasLimit", tx.GasLimit); err != nil {
		return HydratedTx{}, err
	}
	if out.GasPrice, err = hydrateField("gasPrice", tx.GasPrice); err != nil {
		return HydratedTx{}, err
	}
	if out.Value, err = hydrateField("value", tx.Value); err != nil {
		return HydratedTx{}, err
	}
	if tx.GasUsed != "" {
		used, err := hydrateField("gasUsed", tx.GasUsed)
		if err != nil {
			return HydratedTx{}, err
		}
		out.GasUsed = &used
	}
	return out, nil
}

// Dehydrate converts an exact receipt back to its persisted form.
func Dehydrate(tx HydratedTx) TxReceipt {
	out := TxReceipt{
		Hash:     tx.Hash,
		ChainID:  tx.ChainID,
		From:     tx.From,
		To:       tx.To,
		Nonce:    tx.Nonce,
		Data:     tx.Data,
		GasLimit: tx.GasLimit.String(),
		GasPrice: tx.GasPrice.String(),
		Value:    tx.Value.String(),
	}
	if tx.GasUsed != nil {
		out.GasUsed = tx.GasUsed.String()
	}
	if tx.Status != nil {
		status := *tx.Status
		out.Status = &status
	}
	return out
}

func hydrateField(field, value string) (amount.Amount, error) {
	a, err := amount.Parse(value)
	if err != nil {
		return amount.Amount{}, hdwerr.Wrap(err, "field %s", field)
	}
	return a, nil
}

// HydrateAccount converts a persisted account to its exact form.
func HydrateAccount(a Account) (HydratedAccount, error) {
	out := HydratedAccount{
		UUID:      a.UUID,
		Label:     a.Label,
		Address:   a.Address,
		NetworkID: a.NetworkID,
		DPath:     a.DPath,
	}

	if len(a.Assets) > 0 {
		out.Assets = make([]HydratedAsset, len(a.Assets))
		for i, asset := range a.Assets {
			balance, err := hydrateField("balance", asset.Balance)
			if err != nil {
				return HydratedAccount{}, hdwerr.Wrap(err, "account %s asset %s", a.UUID, asset.UUID)
			}
			out.Assets[i] = HydratedAsset{UUID: asset.UUID, Balance: balance, MTime: asset.MTime}
		}
	}

	if len(a.Transactions) > 0 {
		out.Transactions = make([]HydratedTx, len(a.Transactions))
		for i, tx := range a.Transactions {
			hydrated, err := Hydrate(tx)
			if err != nil {
				return HydratedAccount{}, hdwerr.Wrap(err, "account %s transaction %d", a.UUID, i)
			}
			out.Transactions[i] = hydrated
		}
	}

	return out, nil
}
