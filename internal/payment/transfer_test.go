package payment

import (
	"math/big"
	"testing"

	"github.com/mmynk/esusu/internal/chain/chaintest"
)

func TestDecodeTransfer(t *testing.T) {
	value := big.NewInt(12345000)
	data := chaintest.EncodeTransfer(treasury, value)

	got, err := DecodeTransfer(data)
	if err != nil {
		t.Fatalf("DecodeTransfer failed: %v", err)
	}
	if got.To != treasury {
		t.Errorf("to: got %s, want %s", got.To, treasury)
	}
	if got.Value.Cmp(value) != 0 {
		t.Errorf("value: got %s, want %s", got.Value, value)
	}
}

func TestDecodeTransfer_Rejects(t *testing.T) {
	valid := chaintest.EncodeTransfer(treasury, big.NewInt(1))

	dirtyPadding := append([]byte(nil), valid...)
	dirtyPadding[4] = 0x01

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"selector only", valid[:4]},
		{"truncated", valid[:40]},
		{"trailing bytes", append(append([]byte(nil), valid...), 0x00)},
		{"dirty address padding", dirtyPadding},
		{"other selector", append([]byte{0xde, 0xad, 0xbe, 0xef}, valid[4:]...)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeTransfer(tt.data); err == nil {
				t.Error("expected error")
			}
		})
	}
}
