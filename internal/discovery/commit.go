package discovery

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mrz1836/hdwscan/internal/accountstore"
	"github.com/mrz1836/hdwscan/internal/ledger"
)

// CommitTarget describes where selected accounts are imported.
type CommitTarget struct {
	NetworkID string
	AssetUUID uuid.UUID
	Now       time.Time
}

// Commit writes the selected accounts into store in a single batch.
//
// Account ids are derived from network and address, so committing twice
// updates the existing records instead of duplicating them. New accounts are
// appended in selection order; existing ones get the balance of the target
// asset refreshed and keep their other assets.
func (c *Controller) Commit(store *accountstore.Store, target CommitTarget) ([]accountstore.Account, error) {
	selected := c.Snapshot().Ledger.SelectedAccounts()
	if len(selected) == 0 {
		return nil, nil
	}
	if target.Now.IsZero() {
		target.Now = time.Now()
	}

	var committed []accountstore.Account
	_, err := store.Apply(func(s accountstore.State) (accountstore.State, error) {
		committed = committed[:0]
		var created []accountstore.Account
		updates := make(map[uuid.UUID][]accountstore.AssetBalance)

		for _, sa := range selected {
			record := newRecord(sa, target)
			existing, ok := s.Get(record.UUID)
			if !ok {
				created = append(created, record)
				committed = append(committed, record)
				continue
			}
			existing.Assets = mergeAsset(existing.Assets, record.Assets)
			updates[existing.UUID] = existing.Assets
			committed = append(committed, existing)
		}

		next, err := s.CreateMany(created)
		if err != nil {
			return s, err
		}
		return next.UpdateAssets(updates), nil
	})
	if err != nil {
		return nil, err
	}

	c.metrics.RecordCommit(len(committed))
	c.logger.Debug("discovery: committed %d accounts to %s", len(committed), store.Path())
	return committed, nil
}

func newRecord(sa ledger.SelectedAccount, target CommitTarget) accountstore.Account {
	record := accountstore.Account{
		UUID:         accountstore.NewAccountUUID(target.NetworkID, sa.Address),
		Label:        fmt.Sprintf("%s #%d", sa.BaseDPath.Label, sa.Index),
		Address:      sa.Address,
		NetworkID:    target.NetworkID,
		DPath:        sa.Path,
		Assets:       []accountstore.AssetBalance{},
		Transactions: []accountstore.TxReceipt{},
	}
	if sa.Balance != nil {
		record.Assets = append(record.Assets, accountstore.AssetBalance{
			UUID:    target.AssetUUID,
			Balance: sa.Balance.String(),
			MTime:   target.Now.UnixMilli(),
		})
	}
	return record
}

// mergeAsset replaces the entries of current that share an asset id with
// fresh and appends the rest.
func mergeAsset(current, fresh []accountstore.AssetBalance) []accountstore.AssetBalance {
	out := append([]accountstore.AssetBalance(nil), current...)
	for _, f := range fresh {
		replaced := false
		for i := range out {
			if out[i].UUID == f.UUID {
				out[i] = f
				replaced = true
			}
		}
		if !replaced {
			out = append(out, f)
		}
	}
	return out
}
