// Package token holds the static registry of accepted ERC20 tokens and the
// decimal/base-unit conversions they need.
package token

import (
	"fmt"
	"math/big"
	"os"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/mmynk/esusu/internal/chain"
)

// Token is one accepted ERC20 contract.
type Token struct {
	Symbol   string `yaml:"symbol"`
	Address  string `yaml:"address"`
	Decimals int32  `yaml:"decimals"`
}

// Registry maps symbols to token contracts. Lookups are case-sensitive on the
// symbol ("cUSD" and "CUSD" are different) to match how the symbol is stored.
type Registry struct {
	bySymbol map[string]Token
}

// Celo mainnet stablecoins accepted by default.
var defaultTokens = []Token{
	{Symbol: "cUSD", Address: "0x765DE816845861e75A25fCA122bb6898B8B1282a", Decimals: 18},
	{Symbol: "USDC", Address: "0xcebA9300f2b948710d2653dD7B07f33A8B32118C", Decimals: 6},
	{Symbol: "USDT", Address: "0x48065fbBE25f71C9282ddf5e1cD6D6A887483D5e", Decimals: 6},
}

// Default returns the built-in registry.
func Default() *Registry {
	r, err := New(defaultTokens)
	if err != nil {
		panic(err)
	}
	return r
}

// New builds a registry, validating and normalizing every address.
func New(tokens []Token) (*Registry, error) {
	r := &Registry{bySymbol: make(map[string]Token, len(tokens))}
	for _, t := range tokens {
		if strings.TrimSpace(t.Symbol) == "" {
			return nil, fmt.Errorf("token symbol is required")
		}
		addr, err := chain.NormalizeAddress(t.Address)
		if err != nil {
			return nil, fmt.Errorf("token %s: %w", t.Symbol, err)
		}
		if t.Decimals < 0 || t.Decimals > 77 {
			return nil, fmt.Errorf("token %s: decimals out of range: %d", t.Symbol, t.Decimals)
		}
		if _, dup := r.bySymbol[t.Symbol]; dup {
			return nil, fmt.Errorf("duplicate token symbol %s", t.Symbol)
		}
		t.Address = addr
		r.bySymbol[t.Symbol] = t
	}
	return r, nil
}

type registryFile struct {
	Tokens []Token `yaml:"tokens"`
}

// LoadFile reads a YAML registry of the form:
//
//	tokens:
//	  - symbol: cUSD
//	    address: "0x765D..."
//	    decimals: 18
func LoadFile(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read token registry: %w", err)
	}
	var f registryFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("failed to parse token registry: %w", err)
	}
	if len(f.Tokens) == 0 {
		return nil, fmt.Errorf("token registry %s lists no tokens", path)
	}
	return New(f.Tokens)
}

// Lookup returns the token registered under symbol.
func (r *Registry) Lookup(symbol string) (Token, bool) {
	t, ok := r.bySymbol[symbol]
	return t, ok
}

// Supports reports whether symbol is registered.
func (r *Registry) Supports(symbol string) bool {
	_, ok := r.bySymbol[symbol]
	return ok
}

// Symbols lists registered symbols in sorted order.
func (r *Registry) Symbols() []string {
	out := make([]string, 0, len(r.bySymbol))
	for s := range r.bySymbol {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// ToBaseUnits scales a token amount to the token's integer precision.
// Fractional digits beyond decimals are rounded up so that a required amount is
// never under-stated.
func ToBaseUnits(amount decimal.Decimal, decimals int32) *big.Int {
	return amount.Shift(decimals).Ceil().BigInt()
}

// FromBaseUnits converts an on-chain integer amount back to token units.
func FromBaseUnits(value *big.Int, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(value, -decimals)
}
