package accountstore

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hdwerr "github.com/mrz1836/hdwscan/pkg/errors"
)

func TestCreate_AddsEntityByUUID(t *testing.T) {
	t.Parallel()

	entity := Account{UUID: uuid.New()}
	actual, err := Initial().Create(entity)

	require.NoError(t, err)
	assert.Equal(t, []Account{entity}, actual.Accounts())
}

func TestCreate_DuplicateLeavesStateUnchanged(t *testing.T) {
	t.Parallel()

	entity := Account{UUID: uuid.New(), Address: "0x0"}
	state, err := Initial().Create(entity)
	require.NoError(t, err)

	next, err := state.Create(Account{UUID: entity.UUID, Address: "0x1"})
	require.ErrorIs(t, err, hdwerr.ErrDuplicateKey)
	assert.Equal(t, state.Accounts(), next.Accounts())
	assert.Equal(t, "0x0", next.Accounts()[0].Address)
}

func TestCreateMany_AppendsInOrder(t *testing.T) {
	t.Parallel()

	a1 := Account{UUID: uuid.New(), Address: "first"}
	a2 := Account{UUID: uuid.New(), Address: "second"}
	a3 := Account{UUID: uuid.New(), Address: "third"}

	state, err := NewState(a1)
	require.NoError(t, err)

	actual, err := state.CreateMany([]Account{a2, a3})
	require.NoError(t, err)
	assert.Equal(t, []Account{a1, a2, a3}, actual.Accounts())
	assert.Equal(t, 1, state.Len(), "receiver must not be mutated")
}

func TestCreateMany_IsAtomic(t *testing.T) {
	t.Parallel()

	existing := Account{UUID: uuid.New()}
	state, err := NewState(existing)
	require.NoError(t, err)

	fresh := Account{UUID: uuid.New()}

	tests := []struct {
		name  string
		batch []Account
	}{
		{"collides with store", []Account{fresh, existing}},
		{"collides within batch", []Account{fresh, fresh}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			next, err := state.CreateMany(tt.batch)
			require.ErrorIs(t, err, hdwerr.ErrDuplicateKey)
			assert.Equal(t, []Account{existing}, next.Accounts())
		})
	}
}

func TestCreateSequences_NeverDuplicate(t *testing.T) {
	t.Parallel()

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	state := Initial()
	ops := [][]uuid.UUID{
		{ids[0]},
		{ids[1], ids[0]},
		{ids[1]},
		{ids[2], ids[1]},
		{ids[2]},
	}

	for _, batch := range ops {
		accounts := make([]Account, len(batch))
		for i, id := range batch {
			accounts[i] = Account{UUID: id}
		}
		next, err := state.CreateMany(accounts)
		if err == nil {
			state = next
		}

		seen := map[uuid.UUID]bool{}
		for _, a := range state.Accounts() {
			require.False(t, seen[a.UUID], "duplicate uuid %s", a.UUID)
			seen[a.UUID] = true
		}
	}
	assert.Equal(t, 3, state.Len())
}

func TestDestroy_DeletesByUUID(t *testing.T) {
	t.Parallel()

	a1 := Account{UUID: uuid.New(), Address: "todestroy"}
	a2 := Account{UUID: uuid.New(), Address: "tokeep"}
	state, err := NewState(a1, a2)
	require.NoError(t, err)

	actual := state.Destroy(a1.UUID)
	assert.Equal(t, []Account{a2}, actual.Accounts())

	unchanged := actual.Destroy(uuid.New())
	assert.Equal(t, []Account{a2}, unchanged.Accounts())
	assert.Equal(t, 2, state.Len())
}

func TestUpdate_ReplacesEntity(t *testing.T) {
	t.Parallel()

	entity := Account{UUID: uuid.New(), Address: "0x0"}
	state, err := NewState(entity)
	require.NoError(t, err)

	modified := entity
	modified.Address = "0x1"
	actual := state.Update(modified)

	assert.Equal(t, []Account{modified}, actual.Accounts())
	assert.Equal(t, "0x0", state.Accounts()[0].Address)
}

func TestUpdate_UnknownIsNoop(t *testing.T) {
	t.Parallel()

	entity := Account{UUID: uuid.New(), Address: "0x0"}
	state, err := NewState(entity)
	require.NoError(t, err)

	actual := state.Update(Account{UUID: uuid.New(), Address: "0xnew"})
	assert.Equal(t, []Account{entity}, actual.Accounts())
}

func TestUpdateMany_PreservesOrder(t *testing.T) {
	t.Parallel()

	a1 := Account{UUID: uuid.New(), Address: "0x0"}
	a2 := Account{UUID: uuid.New(), Address: "0x1"}
	a3 := Account{UUID: uuid.New(), Address: "0x2"}
	state, err := NewState(a1, a2, a3)
	require.NoError(t, err)

	m1 := a1
	m1.Address = "0xchanged"
	m2 := a2
	m2.Address = "0xchanged1"

	// Supplied out of store order; positions must still follow the store.
	actual := state.UpdateMany([]Account{m2, m1})
	assert.Equal(t, []Account{m1, m2, a3}, actual.Accounts())
}

func TestUpdateAssets_ReplacesWholesale(t *testing.T) {
	t.Parallel()

	fixtures := testAccounts()
	state, err := NewState(fixtures[0], fixtures[1])
	require.NoError(t, err)

	balances := []AssetBalance{
		{UUID: repAssetUUID, Balance: "1000000000000000000", MTime: 1607602775360},
		{UUID: ethAssetUUID, Balance: "2000000000000000000", MTime: 1607602775360},
	}
	actual := state.UpdateAssets(map[uuid.UUID][]AssetBalance{
		fixtures[0].UUID: balances,
		uuid.New():       {{UUID: ethAssetUUID, Balance: "1"}},
	})

	expectedFirst := fixtures[0]
	expectedFirst.Assets = balances
	assert.Equal(t, []Account{expectedFirst, fixtures[1]}, actual.Accounts())
	assert.Equal(t, fixtures[0].Assets, state.Accounts()[0].Assets)
}

func TestReset(t *testing.T) {
	t.Parallel()

	state, err := NewState(Account{UUID: uuid.New(), Address: "0x0"})
	require.NoError(t, err)

	actual := state.Reset()
	assert.Equal(t, 0, actual.Len())
	assert.Equal(t, Initial(), actual)
	assert.Equal(t, Initial(), Initial().Reset())
}

func TestGet(t *testing.T) {
	t.Parallel()

	fixtures := testAccounts()
	state, err := NewState(fixtures...)
	require.NoError(t, err)

	got, ok := state.Get(fixtures[1].UUID)
	require.True(t, ok)
	assert.Equal(t, fixtures[1], got)

	_, ok = state.Get(uuid.New())
	assert.False(t, ok)
}

func TestAccountsReturnsCopies(t *testing.T) {
	t.Parallel()

	fixtures := testAccounts()
	state, err := NewState(fixtures...)
	require.NoError(t, err)

	out := state.Accounts()
	out[0].Assets[0].Balance = "tampered"
	out[0].Address = "tampered"

	again := state.Accounts()
	assert.Equal(t, fixtures[0].Address, again[0].Address)
	assert.Equal(t, "1000000000000000000", again[0].Assets[0].Balance)
}

func TestNewAccountUUID_Deterministic(t *testing.T) {
	t.Parallel()

	a := NewAccountUUID("Ethereum", "0xabc")
	b := NewAccountUUID("Ethereum", "0xabc")
	c := NewAccountUUID("Ropsten", "0xabc")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, uuid.Version(5), a.Version())
}
