package payment

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/mmynk/esusu/internal/chain"
)

// transferSelector is keccak256("transfer(address,uint256)")[:4] = 0xa9059cbb.
var transferSelector = chain.Keccak256([]byte("transfer(address,uint256)"))[:4]

const transferCallLen = 4 + 32 + 32

// DecodeTransfer decodes ERC20 transfer(address,uint256) call-data.
func DecodeTransfer(data []byte) (*chain.Transfer, error) {
	if len(data) < 4 || !bytes.Equal(data[:4], transferSelector) {
		return nil, fmt.Errorf("call is not transfer(address,uint256)")
	}
	if len(data) != transferCallLen {
		return nil, fmt.Errorf("transfer call-data has %d bytes, want %d", len(data), transferCallLen)
	}

	addrWord := data[4:36]
	for _, b := range addrWord[:12] {
		if b != 0 {
			return nil, fmt.Errorf("address argument is not zero-padded")
		}
	}

	return &chain.Transfer{
		To:    "0x" + hex.EncodeToString(addrWord[12:]),
		Value: new(big.Int).SetBytes(data[36:68]),
	}, nil
}
