package accountstore

import (
	"github.com/google/uuid"
)

// GetAccounts returns every account in store order with numeric fields hydrated.
// A malformed numeric field fails the whole call with ErrParse.
func GetAccounts(s State) ([]HydratedAccount, error) {
	out := make([]HydratedAccount, 0, len(s.accounts))
	for _, a := range s.accounts {
		hydrated, err := HydrateAccount(a)
		if err != nil {
			return nil, err
		}
		out = append(out, hydrated)
	}
	return out, nil
}

// SelectCurrentAccounts returns the accounts whose uuid is in the active set,
// in store order.
func SelectCurrentAccounts(s State, settings ActiveAccounts) []Account {
	out := []Account{}
	if settings == nil {
		return out
	}

	active := make(map[uuid.UUID]struct{})
	for _, id := range settings.ActiveAccountIDs() {
		active[id] = struct{}{}
	}
	for _, a := range s.accounts {
		if _, ok := active[a.UUID]; ok {
			out = append(out, a.clone())
		}
	}
	return out
}

// SelectAccountTxs returns the transactions of every account, concatenated in
// store order, hydrated.
func SelectAccountTxs(s State) ([]HydratedTx, error) {
	out := []HydratedTx{}
	for _, a := range s.accounts {
		for _, tx := range a.Transactions {
			hydrated, err := Hydrate(tx)
			if err != nil {
				return nil, err
			}
			out = append(out, hydrated)
		}
	}
	return out, nil
}
