package token

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

func TestDefaultRegistry(t *testing.T) {
	r := Default()

	cusd, ok := r.Lookup("cUSD")
	if !ok {
		t.Fatal("expected cUSD in default registry")
	}
	if cusd.Decimals != 18 {
		t.Errorf("cUSD decimals: got %d, want 18", cusd.Decimals)
	}
	if cusd.Address != "0x765de816845861e75a25fca122bb6898b8b1282a" {
		t.Errorf("cUSD address not normalized: %s", cusd.Address)
	}
	if usdc, _ := r.Lookup("USDC"); usdc.Decimals != 6 {
		t.Errorf("USDC decimals: got %d, want 6", usdc.Decimals)
	}
	if r.Supports("DAI") {
		t.Error("DAI should not be supported by default")
	}
	if got := r.Symbols(); len(got) != 3 || got[0] != "USDC" {
		t.Errorf("Symbols = %v", got)
	}
}

func TestNewRejectsBadTokens(t *testing.T) {
	tests := []struct {
		name   string
		tokens []Token
	}{
		{"empty symbol", []Token{{Address: "0x765DE816845861e75A25fCA122bb6898B8B1282a"}}},
		{"bad address", []Token{{Symbol: "X", Address: "0x1234"}}},
		{"negative decimals", []Token{{Symbol: "X", Address: "0x765DE816845861e75A25fCA122bb6898B8B1282a", Decimals: -1}}},
		{"duplicate", []Token{
			{Symbol: "X", Address: "0x765DE816845861e75A25fCA122bb6898B8B1282a"},
			{Symbol: "X", Address: "0xcebA9300f2b948710d2653dD7B07f33A8B32118C"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.tokens); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tokens.yaml")
	content := `tokens:
  - symbol: tUSD
    address: "0x1111111111111111111111111111111111111111"
    decimals: 6
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write registry: %v", err)
	}

	r, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	tok, ok := r.Lookup("tUSD")
	if !ok || tok.Decimals != 6 {
		t.Errorf("tUSD: got %+v, %v", tok, ok)
	}

	empty := filepath.Join(t.TempDir(), "empty.yaml")
	os.WriteFile(empty, []byte("tokens: []\n"), 0o600)
	if _, err := LoadFile(empty); err == nil {
		t.Error("expected error for empty registry")
	}
}

func TestToBaseUnits(t *testing.T) {
	tests := []struct {
		amount   string
		decimals int32
		want     string
	}{
		{"12.345000", 6, "12345000"},
		{"12.344999", 6, "12344999"},
		{"10", 18, "10000000000000000000"},
		{"0.1", 18, "100000000000000000"},
		// More precision than the token supports rounds up.
		{"1.0000001", 6, "1000001"},
		{"5", 0, "5"},
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			got := ToBaseUnits(decimal.RequireFromString(tt.amount), tt.decimals)
			if got.String() != tt.want {
				t.Errorf("ToBaseUnits(%s, %d) = %s, want %s", tt.amount, tt.decimals, got, tt.want)
			}
		})
	}
}

func TestFromBaseUnits(t *testing.T) {
	v, _ := new(big.Int).SetString("12345000", 10)
	got := FromBaseUnits(v, 6)
	if !got.Equal(decimal.RequireFromString("12.345")) {
		t.Errorf("FromBaseUnits = %s, want 12.345", got)
	}
}
