package accountstore

import (
	"github.com/google/uuid"

	hdwerr "github.com/mrz1836/hdwscan/pkg/errors"
)

// State is the ordered, uuid-unique collection of accounts.
type State struct {
	accounts []Account
}

// Initial returns the canonical empty state.
func Initial() State {
	return State{}
}

// NewState builds a state from records, rejecting duplicate uuids.
func NewState(accounts ...Account) (State, error) {
	return Initial().CreateMany(accounts)
}

// Len returns the number of accounts.
func (s State) Len() int {
	return len(s.accounts)
}

// Accounts returns a copy of the records in store order.
func (s State) Accounts() []Account {
	out := make([]Account, len(s.accounts))
	for i, a := range s.accounts {
		out[i] = a.clone()
	}
	return out
}

// Get returns the account with the given uuid.
func (s State) Get(id uuid.UUID) (Account, bool) {
	if i := s.indexOf(id); i >= 0 {
		return s.accounts[i].clone(), true
	}
	return Account{}, false
}

func (s State) indexOf(id uuid.UUID) int {
	for i := range s.accounts {
		if s.accounts[i].UUID == id {
			return i
		}
	}
	return -1
}

// copyAccounts returns a fresh backing array so mutations never leak into s.
func (s State) copyAccounts(extra int) []Account {
	out := make([]Account, len(s.accounts), len(s.accounts)+extra)
	copy(out, s.accounts)
	return out
}

// Create appends a record. A uuid already present fails with ErrDuplicateKey
// and the state is returned unchanged.
func (s State) Create(a Account) (State, error) {
	return s.CreateMany([]Account{a})
}

// CreateMany appends records after the existing ones, in input order.
// The batch is atomic: a uuid colliding with the store or with another record
// in the batch fails the whole call with ErrDuplicateKey.
func (s State) CreateMany(accounts []Account) (State, error) {
	seen := make(map[uuid.UUID]struct{}, len(s.accounts)+len(accounts))
	for _, a := range s.accounts {
		seen[a.UUID] = struct{}{}
	}
	for _, a := range accounts {
		if _, dup := seen[a.UUID]; dup {
			return s, duplicateKey(a.UUID)
		}
		seen[a.UUID] = struct{}{}
	}

	out := s.copyAccounts(len(accounts))
	for _, a := range accounts {
		out = append(out, a.clone())
	}
	return State{accounts: out}, nil
}

func duplicateKey(id uuid.UUID) error {
	return hdwerr.WithDetails(hdwerr.ErrDuplicateKey, map[string]string{"uuid": id.String()})
}

// Destroy removes the record with the given uuid. Unknown ids are a no-op.
func (s State) Destroy(id uuid.UUID) State {
	i := s.indexOf(id)
	if i < 0 {
		return s
	}
	out := make([]Account, 0, len(s.accounts)-1)
	out = append(out, s.accounts[:i]...)
	out = append(out, s.accounts[i+1:]...)
	return State{accounts: out}
}

// Update replaces the record sharing a.UUID at its existing index.
// Unknown ids are a no-op.
func (s State) Update(a Account) State {
	return s.UpdateMany([]Account{a})
}

// UpdateMany applies Update for each record. Order never changes; records
// without a matching uuid are ignored.
func (s State) UpdateMany(accounts []Account) State {
	out := s.copyAccounts(0)
	for _, a := range accounts {
		if i := s.indexOf(a.UUID); i >= 0 {
			out[i] = a.clone()
		}
	}
	return State{accounts: out}
}

// UpdateAssets replaces, wholesale, the assets of every account whose uuid is
// a key of balances. Accounts absent from the map are untouched.
func (s State) UpdateAssets(balances map[uuid.UUID][]AssetBalance) State {
	out := s.copyAccounts(0)
	for i := range out {
		assets, ok := balances[out[i].UUID]
		if !ok {
			continue
		}
		updated := out[i].clone()
		updated.Assets = append([]AssetBalance{}, assets...)
		out[i] = updated
	}
	return State{accounts: out}
}

// Reset returns the canonical empty state.
func (s State) Reset() State {
	return Initial()
}
