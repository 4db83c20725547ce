// Package chain defines the read-only contract the payment verifier needs from a
// blockchain node, plus helpers for addresses, hashes and Keccak-256.
package chain

import (
	"context"
	"errors"
	"math/big"
	"time"
)

// ErrNotFound is returned by a Reader when a transaction or receipt does not exist.
var ErrNotFound = errors.New("not found on chain")

// Transaction is the subset of a transaction the verifier inspects.
type Transaction struct {
	Hash string
	From string
	// To is the call target. For an ERC20 transfer it is the token contract.
	To          string
	Data        []byte
	BlockNumber uint64
}

// ReceiptStatusSuccess is the execution status of a successful transaction.
const ReceiptStatusSuccess uint64 = 1

// Receipt reports whether and where a transaction was executed.
type Receipt struct {
	Status      uint64
	BlockNumber uint64
}

// Succeeded reports whether the transaction executed successfully.
func (r *Receipt) Succeeded() bool {
	return r.Status == ReceiptStatusSuccess
}

// Reader is the chain read API consumed by payment verification.
// Implementations return ErrNotFound for unknown hashes.
type Reader interface {
	GetTransaction(ctx context.Context, hash string) (*Transaction, error)
	GetReceipt(ctx context.Context, hash string) (*Receipt, error)
	CurrentBlockHeight(ctx context.Context) (uint64, error)
	GetBlockTimestamp(ctx context.Context, blockNumber uint64) (time.Time, error)
}

// DecimalsReader is implemented by readers that can query an ERC20 contract's
// decimals(). It is optional; the verifier falls back to the token registry.
type DecimalsReader interface {
	TokenDecimals(ctx context.Context, tokenAddress string) (int32, error)
}

// Transfer is a decoded ERC20 transfer(address,uint256) call.
type Transfer struct {
	To    string
	Value *big.Int
}
