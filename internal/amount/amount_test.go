package amount

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hdwerr "github.com/mrz1836/hdwscan/pkg/errors"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"zero", "0", "0"},
		{"gas limit", "21000", "21000"},
		{"hex", "0x5208", "21000"},
		{"upper hex prefix", "0XEE6B2800", "4000000000"},
		{"one ether", "1000000000000000000", "1000000000000000000"},
		{"max uint256", "115792089237316195423570985008687907853269984665640564039457584007913129639935",
			"115792089237316195423570985008687907853269984665640564039457584007913129639935"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"-1",
		"1.5",
		"abc",
		"0x",
		"0xzz",
		" 42",
		"1e18",
		"+5",
		"007",
		"00",
		// 2^256
		"115792089237316195423570985008687907853269984665640564039457584007913129639936",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			t.Parallel()
			_, err := Parse(input)
			require.Error(t, err)
			require.ErrorIs(t, err, hdwerr.ErrParse)
		})
	}
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"0", "9", "21000", "4000000000", "1000000000000000", "340282366920938463463374607431768211456"} {
		a, err := Parse(s)
		require.NoError(t, err)
		assert.Equal(t, s, a.String())
	}
}

func TestCompare(t *testing.T) {
	t.Parallel()

	small := FromUint64(3)
	big5 := MustParse("5")

	assert.Equal(t, Less, Compare(small, big5))
	assert.Equal(t, Greater, Compare(big5, small))
	assert.Equal(t, Equal, Compare(big5, MustParse("0x5")))
	assert.True(t, big5.Equal(FromUint64(5)))
	assert.Equal(t, Equal, Compare(Zero, FromUint64(0)))
}

func TestIsZero(t *testing.T) {
	t.Parallel()

	assert.True(t, Zero.IsZero())
	assert.True(t, IsZero(MustParse("0x0")))
	assert.False(t, IsZero(FromUint64(1)))
	assert.Equal(t, 0, Zero.Sign())
	assert.Equal(t, 1, FromUint64(7).Sign())
}

func TestKnownAndNonZero(t *testing.T) {
	t.Parallel()

	assert.False(t, Known(nil))
	assert.False(t, NonZero(nil))
	assert.True(t, Known(Ptr(Zero)))
	assert.False(t, NonZero(Ptr(Zero)))
	assert.True(t, NonZero(Ptr(FromUint64(1))))
}

func TestFromBig(t *testing.T) {
	t.Parallel()

	src := big.NewInt(42)
	a, err := FromBig(src)
	require.NoError(t, err)
	src.SetInt64(0)
	assert.Equal(t, "42", a.String(), "amount must not alias its source")

	_, err = FromBig(big.NewInt(-1))
	require.ErrorIs(t, err, hdwerr.ErrParse)

	nilAmount, err := FromBig(nil)
	require.NoError(t, err)
	assert.True(t, nilAmount.IsZero())
}

func TestBigIntIsCopy(t *testing.T) {
	t.Parallel()

	a := FromUint64(10)
	b := a.BigInt()
	b.SetInt64(99)
	assert.Equal(t, "10", a.String())
}

func TestHex(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0x5208", MustParse("21000").Hex())
	assert.Equal(t, "0xee6b2800", MustParse("4000000000").Hex())
	assert.Equal(t, "0x38d7ea4c68000", MustParse("1000000000000000").Hex())
	assert.Equal(t, "0x0", Zero.Hex())
}

func TestFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value    string
		decimals int
		want     string
	}{
		{"1500000000000000000", 18, "1.5"},
		{"1000000000000000000", 18, "1"},
		{"1", 18, "0.000000000000000001"},
		{"0", 18, "0"},
		{"123456", 6, "0.123456"},
		{"5", 0, "5"},
		{"5", -1, "5"},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, MustParse(tt.value).Format(tt.decimals))
		})
	}
}

func TestJSON(t *testing.T) {
	t.Parallel()

	type payload struct {
		Balance Amount  `json:"balance"`
		Gas     *Amount `json:"gas,omitempty"`
	}

	data, err := json.Marshal(payload{Balance: MustParse("1000000000000000000")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"balance":"1000000000000000000"}`, string(data))

	var decoded payload
	require.NoError(t, json.Unmarshal([]byte(`{"balance":"0x5208","gas":21000}`), &decoded))
	assert.Equal(t, "21000", decoded.Balance.String())
	require.NotNil(t, decoded.Gas)
	assert.Equal(t, "21000", decoded.Gas.String())

	err = json.Unmarshal([]byte(`{"balance":"1.5"}`), &decoded)
	require.ErrorIs(t, err, hdwerr.ErrParse)
}

func TestMustParsePanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { MustParse("nope") })
}
