package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/congo-pay/ftledger/internal/ledger"
	"github.com/congo-pay/ftledger/internal/metadata"
)

// Genesis is the construction input read from a YAML file:
//
//	owner: dex.near
//	total_supply: "1000000000000000"
//	metadata:
//	  spec: ft-1.0.0
//	  name: Dex Token
//	  symbol: DEX
//	  decimals: 24
type Genesis struct {
	Owner       string
	TotalSupply ledger.Amount
	Metadata    metadata.Metadata
}

type genesisFile struct {
	Owner       string            `yaml:"owner"`
	TotalSupply string            `yaml:"total_supply"`
	Metadata    metadata.Metadata `yaml:"metadata"`
}

// LoadGenesis reads and validates a genesis file.
func LoadGenesis(path string) (Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Genesis{}, fmt.Errorf("read genesis file: %w", err)
	}
	return ParseGenesis(data)
}

// ParseGenesis decodes YAML genesis data. Unknown fields are rejected so a
// misspelled key never silently falls back to a zero value.
func ParseGenesis(data []byte) (Genesis, error) {
	var raw genesisFile
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&raw); err != nil {
		return Genesis{}, fmt.Errorf("parse genesis: %w", err)
	}

	if raw.Owner == "" {
		return Genesis{}, fmt.Errorf("genesis: owner is required")
	}
	supply, err := ledger.ParseAmount(raw.TotalSupply)
	if err != nil {
		return Genesis{}, fmt.Errorf("genesis total_supply: %w", err)
	}
	if raw.Metadata.Spec == "" {
		raw.Metadata.Spec = metadata.FTSpec
	}
	if err := raw.Metadata.Validate(); err != nil {
		return Genesis{}, fmt.Errorf("genesis metadata: %w", err)
	}

	return Genesis{Owner: raw.Owner, TotalSupply: supply, Metadata: raw.Metadata}, nil
}
