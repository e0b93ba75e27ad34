// Package amount provides exact-precision balance and gas values.
//
// Persisted records carry numeric fields as decimal strings. Amount is the
// hydrated form used by all in-memory logic; String is the only way back to
// the persisted form.
package amount

import (
	"bytes"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/shopspring/decimal"

	hdwerr "github.com/mrz1836/hdwscan/pkg/errors"
)

// Ordering is the result of Compare.
type Ordering int

// Ordering values.
const (
	Less    Ordering = -1
	Equal   Ordering = 0
	Greater Ordering = 1
)

// Amount is an immutable non-negative integer in minimal units (wei, satoshi, gas).
// The zero value is 0.
type Amount struct {
	v *big.Int
}

// Zero is the zero amount.
//
//nolint:gochecknoglobals // Immutable value
var Zero = Amount{}

// Parse converts a base-10 or 0x-prefixed hex string to an Amount.
// Decimal input must be canonical, so String gives it back unchanged.
// Anything else, including negative or fractional values, fails with ErrParse.
func Parse(s string) (Amount, error) {
	if s == "" {
		return Amount{}, parseError(s, "empty value")
	}
	switch {
	case strings.HasPrefix(s, "-"):
		return Amount{}, parseError(s, "negative value")
	case strings.HasPrefix(s, "+"):
		return Amount{}, parseError(s, "explicit sign")
	case len(s) > 1 && s[0] == '0' && s[1] != 'x' && s[1] != 'X':
		return Amount{}, parseError(s, "leading zero")
	}

	v, ok := math.ParseBig256(s)
	if !ok {
		return Amount{}, parseError(s, "not an integer")
	}
	return Amount{v: v}, nil
}

// MustParse is Parse for constants and tests. It panics on malformed input.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FromUint64 returns the amount for a minimal-unit integer.
func FromUint64(n uint64) Amount {
	return Amount{v: new(big.Int).SetUint64(n)}
}

// FromBig copies b into a new Amount. Negative values fail with ErrParse.
func FromBig(b *big.Int) (Amount, error) {
	if b == nil {
		return Amount{}, nil
	}
	if b.Sign() < 0 {
		return Amount{}, parseError(b.String(), "negative value")
	}
	return Amount{v: new(big.Int).Set(b)}, nil
}

func parseError(input, reason string) error {
	return hdwerr.WithDetails(hdwerr.ErrParse, map[string]string{
		"input":  input,
		"reason": reason,
	})
}

func (a Amount) int() *big.Int {
	if a.v == nil {
		return new(big.Int)
	}
	return a.v
}

// BigInt returns a copy of the underlying integer.
func (a Amount) BigInt() *big.Int {
	return new(big.Int).Set(a.int())
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool {
	return a.v == nil || a.v.Sign() == 0
}

// Sign returns 0 for zero and 1 otherwise.
func (a Amount) Sign() int {
	return a.int().Sign()
}

// Cmp compares a and b and returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int {
	return a.int().Cmp(b.int())
}

// Equal reports whether a and b hold the same value.
func (a Amount) Equal(b Amount) bool {
	return a.Cmp(b) == 0
}

// Compare orders a relative to b.
func Compare(a, b Amount) Ordering {
	return Ordering(a.Cmp(b))
}

// IsZero reports whether a is zero.
func IsZero(a Amount) bool {
	return a.IsZero()
}

// String returns the base-10 representation used at rest.
func (a Amount) String() string {
	return a.int().String()
}

// Hex returns the 0x-prefixed hex representation.
func (a Amount) Hex() string {
	return hexutil.EncodeBig(a.int())
}

// Format renders the amount in display units for the given number of decimals,
// with trailing zeros removed. For example 1500000000000000000 with 18 decimals is "1.5".
func (a Amount) Format(decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	return decimal.NewFromBigInt(a.int(), -int32(decimals)).String() //nolint:gosec // decimals come from asset config
}

// MarshalText implements encoding.TextMarshaler as a decimal string.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Amount) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// MarshalJSON encodes the amount as a quoted decimal string, never a float.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON accepts a quoted decimal or hex string, or a bare integer.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		data = data[1 : len(data)-1]
	}
	return a.UnmarshalText(data)
}

// Ptr returns a pointer to a copy of a. Used where a balance may be unknown.
func Ptr(a Amount) *Amount {
	return &a
}

// Known reports whether p holds a value.
func Known(p *Amount) bool {
	return p != nil
}

// NonZero reports whether p holds a known, nonzero value.
func NonZero(p *Amount) bool {
	return p != nil && !p.IsZero()
}
