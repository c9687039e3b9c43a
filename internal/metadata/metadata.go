// Package metadata describes how a token presents itself: its name, symbol
// and the number of decimals used to display raw balances.
package metadata

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/ftledger/internal/ledger"
)

const (
	// FTSpec is the metadata version written by new deployments.
	FTSpec = "ft-1.0.0"

	// MaxDecimals keeps one display unit representable in 128 bits.
	MaxDecimals = 38
)

var (
	ErrInvalidMetadata      = errors.New("invalid metadata")
	ErrInvalidDisplayAmount = errors.New("invalid display amount")
)

// Metadata is stored once at construction and never changes afterwards.
type Metadata struct {
	Spec          string `json:"spec" yaml:"spec"`
	Name          string `json:"name" yaml:"name"`
	Symbol        string `json:"symbol" yaml:"symbol"`
	Icon          string `json:"icon,omitempty" yaml:"icon"`
	Reference     string `json:"reference,omitempty" yaml:"reference"`
	ReferenceHash string `json:"reference_hash,omitempty" yaml:"reference_hash"`
	Decimals      uint8  `json:"decimals" yaml:"decimals"`
}

// Validate checks required fields. ReferenceHash is the hex encoding of a
// 32 byte digest and is required whenever Reference is set.
func (m Metadata) Validate() error {
	switch {
	case strings.TrimSpace(m.Spec) == "":
		return fmt.Errorf("%w: spec is required", ErrInvalidMetadata)
	case strings.TrimSpace(m.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidMetadata)
	case strings.TrimSpace(m.Symbol) == "":
		return fmt.Errorf("%w: symbol is required", ErrInvalidMetadata)
	case m.Decimals > MaxDecimals:
		return fmt.Errorf("%w: decimals must be at most %d", ErrInvalidMetadata, MaxDecimals)
	case m.Reference != "" && m.ReferenceHash == "":
		return fmt.Errorf("%w: reference_hash is required with reference", ErrInvalidMetadata)
	}
	if m.ReferenceHash != "" {
		digest, err := hex.DecodeString(m.ReferenceHash)
		if err != nil || len(digest) != 32 {
			return fmt.Errorf("%w: reference_hash must be 32 hex encoded bytes", ErrInvalidMetadata)
		}
	}
	return nil
}

// Encode validates m and returns the bytes kept by the ledger store.
func (m Metadata) Encode() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

// Decode parses bytes produced by Encode.
func Decode(raw []byte) (Metadata, error) {
	var m Metadata
	if len(raw) == 0 {
		return m, fmt.Errorf("%w: empty", ErrInvalidMetadata)
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return m, fmt.Errorf("%w: %v", ErrInvalidMetadata, err)
	}
	return m, m.Validate()
}

// Format renders a raw amount in display units, e.g. 1500 with three
// decimals is "1.5".
func (m Metadata) Format(amount ledger.Amount) string {
	return decimal.NewFromBigInt(amount.Big(), -int32(m.Decimals)).String()
}

// ParseDisplay converts a display string back to raw units. Values with more
// fractional digits than Decimals are rejected rather than rounded.
func (m Metadata) ParseDisplay(s string) (ledger.Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return ledger.Amount{}, fmt.Errorf("%w: %q", ErrInvalidDisplayAmount, s)
	}
	if d.IsNegative() {
		return ledger.Amount{}, fmt.Errorf("%w: %q is negative", ErrInvalidDisplayAmount, s)
	}
	raw := d.Shift(int32(m.Decimals))
	if !raw.Equal(raw.Truncate(0)) {
		return ledger.Amount{}, fmt.Errorf("%w: %q has more than %d decimals", ErrInvalidDisplayAmount, s, m.Decimals)
	}
	amount, err := ledger.AmountFromBig(raw.BigInt())
	if err != nil {
		return ledger.Amount{}, fmt.Errorf("%w: %v", ErrInvalidDisplayAmount, err)
	}
	return amount, nil
}
