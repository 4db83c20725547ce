package chain

import (
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Keccak256 returns the legacy Keccak-256 digest used by Ethereum.
func Keccak256(data ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

// NormalizeAddress validates a 20-byte hex address and returns it lowercased with
// a 0x prefix.
func NormalizeAddress(addr string) (string, error) {
	s := strings.TrimSpace(addr)
	if !has0x(s) || len(s) != 42 || !isHex(s[2:]) {
		return "", fmt.Errorf("invalid address %q", addr)
	}
	return "0x" + strings.ToLower(s[2:]), nil
}

// NormalizeHash validates a 32-byte hex transaction hash and returns it lowercased
// with a 0x prefix. Payment identifiers go through this before touching the ledger.
func NormalizeHash(hash string) (string, error) {
	s := strings.TrimSpace(hash)
	if !has0x(s) || len(s) != 66 || !isHex(s[2:]) {
		return "", fmt.Errorf("invalid transaction hash %q", hash)
	}
	return "0x" + strings.ToLower(s[2:]), nil
}

// SameAddress compares two addresses ignoring case. Invalid input never matches.
func SameAddress(a, b string) bool {
	na, err := NormalizeAddress(a)
	if err != nil {
		return false
	}
	nb, err := NormalizeAddress(b)
	if err != nil {
		return false
	}
	return na == nb
}

// ChecksumAddress renders addr in EIP-55 mixed case.
func ChecksumAddress(addr string) (string, error) {
	norm, err := NormalizeAddress(addr)
	if err != nil {
		return "", err
	}
	lower := norm[2:]
	digest := hex.EncodeToString(Keccak256([]byte(lower)))

	out := make([]byte, len(lower))
	for i := 0; i < len(lower); i++ {
		c := lower[i]
		if c >= 'a' && c <= 'f' && digest[i] >= '8' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return "0x" + string(out), nil
}

// DecodeHex decodes a 0x-prefixed hex string. "0x" decodes to an empty slice.
func DecodeHex(s string) ([]byte, error) {
	if !has0x(s) {
		return nil, fmt.Errorf("missing 0x prefix in %q", s)
	}
	body := s[2:]
	if len(body)%2 == 1 {
		body = "0" + body
	}
	return hex.DecodeString(body)
}

// EncodeHex encodes b as a 0x-prefixed hex string.
func EncodeHex(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}

func has0x(s string) bool {
	return len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X')
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return false
		}
	}
	return true
}
