package ranking

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/hdwscan/internal/amount"
	"github.com/mrz1836/hdwscan/internal/dpath"
	"github.com/mrz1836/hdwscan/internal/ledger"
)

//nolint:gochecknoglobals // Test fixtures
var (
	pathP = dpath.DPath{Label: "Default (ETH)", Value: "m/44'/60'/0'/0/<addr>"}
	pathQ = dpath.DPath{Label: "Ledger Live (ETH)", Value: "m/44'/60'/<addr>'/0/0"}

	eth = Asset{UUID: uuid.MustParse("356a192b-7913-504c-9457-4d18c28d46e6"), Ticker: "ETH", Decimals: 18}
)

func entry(addr string, index int, path dpath.DPath, balance *amount.Amount, selected bool) ledger.Entry {
	return ledger.Entry{
		Account: ledger.Account{
			Address:   addr,
			PathIndex: index,
			BaseDPath: path,
			Balance:   balance,
		},
		IsSelected: selected,
	}
}

func wei(n uint64) *amount.Amount {
	return amount.Ptr(amount.FromUint64(n))
}

func addresses(entries []ledger.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Address)
	}
	return out
}

func TestRank_Example(t *testing.T) {
	t.Parallel()

	entries := []ledger.Entry{
		entry("addr3", 2, pathP, wei(0), false),
		entry("addr2", 1, pathP, wei(3), true),
		entry("addr1", 0, pathP, wei(5), true),
	}

	assert.Equal(t, []string{"addr1", "addr2", "addr3"}, addresses(Rank(entries, true, pathP)))
	assert.Equal(t, []string{"addr1", "addr2"}, addresses(Rank(entries, false, pathP)))
}

func TestRank_Segments(t *testing.T) {
	t.Parallel()

	entries := []ledger.Entry{
		entry("selected-empty", 0, pathP, wei(0), true),
		entry("selected-unknown", 1, pathP, nil, true),
		entry("other-path", 2, pathQ, wei(0), false),
		entry("deselected-9", 9, pathP, wei(7), false),
		entry("deselected-4", 4, pathP, nil, false),
		entry("big", 5, pathQ, wei(100), true),
	}

	ranked := Rank(entries, true, pathP)
	assert.Equal(t, []string{"big", "deselected-4", "deselected-9"}, addresses(ranked))
}

func TestRank_StableTies(t *testing.T) {
	t.Parallel()

	entries := []ledger.Entry{
		entry("first", 0, pathP, wei(10), true),
		entry("second", 1, pathP, wei(10), true),
		entry("third", 2, pathP, wei(10), true),
		entry("larger", 3, pathP, amount.Ptr(amount.MustParse("100000000000000000000000")), true),
	}

	assert.Equal(t, []string{"larger", "first", "second", "third"}, addresses(Rank(entries, false, pathP)))
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	entries := []ledger.Entry{
		entry("small", 0, pathP, wei(1), true),
		entry("big", 1, pathP, wei(2), true),
	}
	_ = Rank(entries, true, pathP)
	assert.Equal(t, []string{"small", "big"}, addresses(entries))
	assert.Empty(t, Rank(nil, true, pathP))
}

func TestExportRows(t *testing.T) {
	t.Parallel()

	accounts := []ledger.Account{
		{Address: "0xa", PathIndex: 0, BaseDPath: pathP, Balance: amount.Ptr(amount.MustParse("1500000000000000000"))},
		{Address: "0xb", PathIndex: 1, BaseDPath: pathP, Balance: wei(0)},
		{Address: "0xc", PathIndex: 0, BaseDPath: pathQ, Balance: nil},
	}

	rows := ExportRows(accounts, eth)
	require.Len(t, rows, len(accounts))
	assert.Equal(t, ExportRow{Address: "0xa", Balance: "1.5", Path: "Default (ETH)", Asset: "ETH"}, rows[0])
	assert.Equal(t, "0", rows[1].Balance)
	assert.Empty(t, rows[2].Balance)
	assert.Equal(t, "Ledger Live (ETH)", rows[2].Path)

	assert.Equal(t, [][]string{
		{"0xa", "1.5", "Default (ETH)", "ETH"},
		{"0xb", "0", "Default (ETH)", "ETH"},
		{"0xc", "", "Ledger Live (ETH)", "ETH"},
	}, Records(rows))
	assert.Len(t, ExportHeader, len(rows[0].Record()))
}

func TestExportRows_IgnoresSelection(t *testing.T) {
	t.Parallel()

	l, err := ledger.Merge(ledger.Empty(), []ledger.Account{
		{Address: "0xa", PathIndex: 0, BaseDPath: pathP, Balance: wei(5)},
		{Address: "0xb", PathIndex: 1, BaseDPath: pathP, Balance: wei(0)},
		{Address: "0xc", PathIndex: 2, BaseDPath: pathP, Balance: nil},
	})
	require.NoError(t, err)

	accounts := make([]ledger.Account, 0, l.Len())
	for _, e := range l.Entries() {
		accounts = append(accounts, e.Account)
	}

	for _, displayEmpty := range []bool{true, false} {
		ranked := Rank(l.Entries(), displayEmpty, pathP)
		assert.LessOrEqual(t, len(ranked), l.Len())
		assert.Len(t, ExportRows(accounts, eth), l.Len())
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	scanned := []ledger.Account{
		{Address: "0xa", PathIndex: 0, BaseDPath: pathP, Balance: wei(5)},
		{Address: "0xb", PathIndex: 1, BaseDPath: pathP, Balance: wei(0)},
	}
	l, err := ledger.Merge(ledger.Empty(), scanned)
	require.NoError(t, err)
	l, _ = ledger.Toggle(l, "0xb", ledger.DefaultEmptyBalanceCap)

	s := Summarize(l, scanned, ledger.DefaultEmptyBalanceCap)
	assert.Equal(t, Summary{Scanned: 2, Selected: 2, EmptySelected: 1, EmptyCap: 5}, s)
	assert.Equal(t, "1/5", s.String())
}
