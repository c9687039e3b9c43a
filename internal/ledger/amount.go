package ledger

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// amountBits is the width of every balance and of the total supply.
const amountBits = 128

// Amount is an unsigned 128-bit token quantity in raw units. The zero value is
// a valid zero amount and Amount values are safe to copy.
type Amount struct {
	v uint256.Int
}

// MaxAmount is the largest representable balance, 2^128-1.
var MaxAmount = Amount{v: uint256.Int{^uint64(0), ^uint64(0), 0, 0}}

// NewAmount returns an Amount holding n raw units.
func NewAmount(n uint64) Amount {
	return Amount{v: uint256.Int{n, 0, 0, 0}}
}

// ParseAmount parses a base-10 string of digits. Signs, separators and values
// above MaxAmount are rejected with ErrInvalidAmountFormat.
func ParseAmount(s string) (Amount, error) {
	if s == "" {
		return Amount{}, fmt.Errorf("%w: empty string", ErrInvalidAmountFormat)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return Amount{}, fmt.Errorf("%w: %q", ErrInvalidAmountFormat, s)
		}
	}
	var a Amount
	if err := a.v.SetFromDecimal(s); err != nil {
		return Amount{}, fmt.Errorf("%w: %q: %v", ErrInvalidAmountFormat, s, err)
	}
	if a.v.BitLen() > amountBits {
		return Amount{}, fmt.Errorf("%w: %q exceeds 128 bits", ErrInvalidAmountFormat, s)
	}
	return a, nil
}

// MustParseAmount is ParseAmount for constants and tests; it panics on error.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AmountFromBig converts a non-negative big integer that fits in 128 bits.
func AmountFromBig(b *big.Int) (Amount, error) {
	if b == nil || b.Sign() < 0 || b.BitLen() > amountBits {
		return Amount{}, fmt.Errorf("%w: %v out of range", ErrInvalidAmountFormat, b)
	}
	v, _ := uint256.FromBig(b)
	return Amount{v: *v}, nil
}

// CheckedAdd returns a+b and false when the sum does not fit in 128 bits.
func (a Amount) CheckedAdd(b Amount) (Amount, bool) {
	var sum Amount
	// Both operands are below 2^128, so the 256-bit addition cannot wrap.
	sum.v.Add(&a.v, &b.v)
	if sum.v.BitLen() > amountBits {
		return Amount{}, false
	}
	return sum, true
}

// CheckedSub returns a-b and false when b is greater than a.
func (a Amount) CheckedSub(b Amount) (Amount, bool) {
	var diff Amount
	if _, underflow := diff.v.SubOverflow(&a.v, &b.v); underflow {
		return Amount{}, false
	}
	return diff, true
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool {
	return a.v.IsZero()
}

// Cmp compares a and b and returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int {
	return a.v.Cmp(&b.v)
}

// Equal reports whether a and b hold the same value.
func (a Amount) Equal(b Amount) bool {
	return a.v.Eq(&b.v)
}

// Big returns the amount as a new big.Int.
func (a Amount) Big() *big.Int {
	return a.v.ToBig()
}

// String returns the canonical base-10 form without leading zeros.
func (a Amount) String() string {
	return a.v.Dec()
}

// MarshalText implements encoding.TextMarshaler.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Amount) UnmarshalText(text []byte) error {
	parsed, err := ParseAmount(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// MarshalJSON encodes the amount as a JSON string so that 128-bit values
// survive JavaScript clients.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts a quoted decimal string or a bare JSON integer.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	} else {
		s = string(data)
	}
	return a.UnmarshalText([]byte(s))
}
