package accountstore

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/hdwscan/internal/amount"
	hdwerr "github.com/mrz1836/hdwscan/pkg/errors"
)

func TestGetAccounts_HydratesTransactions(t *testing.T) {
	t.Parallel()

	account := testAccounts()[0]
	tx := testTransaction()
	tx.GasUsed = tx.GasLimit
	account.Transactions = []TxReceipt{tx}

	state, err := NewState(account)
	require.NoError(t, err)

	actual, err := GetAccounts(state)
	require.NoError(t, err)
	require.Len(t, actual, 1)

	got := actual[0]
	assert.Equal(t, account.UUID, got.UUID)
	assert.Equal(t, account.Address, got.Address)
	require.Len(t, got.Assets, 1)
	assert.Equal(t, "1000000000000000000", got.Assets[0].Balance.String())

	require.Len(t, got.Transactions, 1)
	hydrated := got.Transactions[0]
	assert.True(t, hydrated.GasLimit.Equal(amount.MustParse("21000")))
	assert.True(t, hydrated.GasPrice.Equal(amount.MustParse("4000000000")))
	require.NotNil(t, hydrated.GasUsed)
	assert.True(t, hydrated.GasUsed.Equal(amount.MustParse("21000")))
	assert.True(t, hydrated.Value.Equal(amount.MustParse("1000000000000000")))
	assert.Equal(t, "0x9", hydrated.Nonce)
	assert.Equal(t, int64(3), hydrated.ChainID)
}

func TestSelectAccountTxs(t *testing.T) {
	t.Parallel()

	fixtures := testAccounts()
	tx := testTransaction()
	tx.GasUsed = tx.GasLimit
	second := testTransaction()
	second.Value = "7"
	fixtures[0].Transactions = []TxReceipt{tx}
	fixtures[1].Transactions = []TxReceipt{second}

	state, err := NewState(fixtures...)
	require.NoError(t, err)

	actual, err := SelectAccountTxs(state)
	require.NoError(t, err)
	require.Len(t, actual, 2)

	first := actual[0]
	assert.Equal(t, "0x5208", first.GasLimit.Hex())
	assert.Equal(t, "0xee6b2800", first.GasPrice.Hex())
	require.NotNil(t, first.GasUsed)
	assert.Equal(t, "0x5208", first.GasUsed.Hex())
	assert.Equal(t, "0x38d7ea4c68000", first.Value.Hex())
	assert.Equal(t, "0x909f74Ffdc223586d0d30E78016E707B6F5a45E2", first.To)
	assert.Equal(t, "0x", first.Data)
	assert.Nil(t, first.Status)

	assert.Equal(t, "7", actual[1].Value.String())
	assert.Nil(t, actual[1].GasUsed)
}

func TestSelectAccountTxs_Empty(t *testing.T) {
	t.Parallel()

	actual, err := SelectAccountTxs(Initial())
	require.NoError(t, err)
	assert.Empty(t, actual)
}

func TestSelectCurrentAccounts_ReturnsOnlyActive(t *testing.T) {
	t.Parallel()

	fixtures := testAccounts()
	state, err := NewState(fixtures...)
	require.NoError(t, err)

	actual := SelectCurrentAccounts(state, staticActive{fixtures[0].UUID, uuid.New()})
	assert.Equal(t, []Account{fixtures[0]}, actual)

	// Store order wins over settings order.
	both := SelectCurrentAccounts(state, staticActive{fixtures[1].UUID, fixtures[0].UUID})
	assert.Equal(t, fixtures, both)

	assert.Empty(t, SelectCurrentAccounts(state, nil))
}

func TestHydrate_MalformedFieldsFail(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*TxReceipt)
	}{
		{"gasLimit", func(tx *TxReceipt) { tx.GasLimit = "twenty-one thousand" }},
		{"gasPrice", func(tx *TxReceipt) { tx.GasPrice = "1.5" }},
		{"gasUsed", func(tx *TxReceipt) { tx.GasUsed = "-1" }},
		{"value", func(tx *TxReceipt) { tx.Value = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tx := testTransaction()
			tt.mutate(&tx)

			_, err := Hydrate(tx)
			require.ErrorIs(t, err, hdwerr.ErrParse)
			assert.Contains(t, err.Error(), tt.name)

			account := testAccounts()[0]
			account.Transactions = []TxReceipt{tx}
			state, stateErr := NewState(account)
			require.NoError(t, stateErr)

			_, err = GetAccounts(state)
			require.ErrorIs(t, err, hdwerr.ErrParse)
			_, err = SelectAccountTxs(state)
			require.ErrorIs(t, err, hdwerr.ErrParse)
		})
	}
}

func TestGetAccounts_MalformedAssetBalance(t *testing.T) {
	t.Parallel()

	account := testAccounts()[0]
	account.Assets[0].Balance = "lots"
	state, err := NewState(account)
	require.NoError(t, err)

	_, err = GetAccounts(state)
	require.ErrorIs(t, err, hdwerr.ErrParse)
}

func TestHydrateDehydrate_RoundTrip(t *testing.T) {
	t.Parallel()

	status := 1
	receipts := []TxReceipt{
		testTransaction(),
		{
			Hash:     "0xabc",
			ChainID:  1,
			From:     "0x82D69476357A03415E92B5780C89e5E9e972Ce75",
			GasLimit: "30000000",
			GasPrice: "115792089237316195423570985008687907853269984665640564039457584007913129639935",
			GasUsed:  "29999999",
			Value:    "0",
			Status:   &status,
		},
	}

	for _, original := range receipts {
		hydrated, err := Hydrate(original)
		require.NoError(t, err)
		assert.Equal(t, original, Dehydrate(hydrated))
	}
}
