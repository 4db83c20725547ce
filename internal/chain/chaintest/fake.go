// Package chaintest provides an in-memory chain.Reader for tests.
package chaintest

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/mmynk/esusu/internal/chain"
)

// Reader is an in-memory chain. The zero value is not usable; call New.
type Reader struct {
	mu         sync.Mutex
	txs        map[string]*chain.Transaction
	receipts   map[string]*chain.Receipt
	blockTimes map[uint64]time.Time
	decimals   map[string]int32
	height     uint64

	// Err, when set, is returned by every call.
	Err error
	// Block makes every call wait for context cancellation.
	Block bool
	// Calls counts reader invocations.
	Calls int
}

var _ chain.Reader = (*Reader)(nil)
var _ chain.DecimalsReader = (*Reader)(nil)

// New creates an empty chain at the given height.
func New(height uint64) *Reader {
	return &Reader{
		txs:        make(map[string]*chain.Transaction),
		receipts:   make(map[string]*chain.Receipt),
		blockTimes: make(map[uint64]time.Time),
		decimals:   make(map[string]int32),
		height:     height,
	}
}

// SetHeight moves the chain head.
func (r *Reader) SetHeight(h uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.height = h
}

// SetErr makes every call fail with err; nil restores normal answers. Use it
// instead of Err when calls may run on other goroutines.
func (r *Reader) SetErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Err = err
}

// SetBlockTime records the timestamp of a block.
func (r *Reader) SetBlockTime(block uint64, ts time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blockTimes[block] = ts
}

// SetDecimals makes TokenDecimals answer for a token contract.
func (r *Reader) SetDecimals(tokenAddress string, decimals int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decimals[strings.ToLower(tokenAddress)] = decimals
}

// AddTransaction stores tx and, when receipt is non-nil, its receipt.
func (r *Reader) AddTransaction(tx chain.Transaction, receipt *chain.Receipt) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(tx.Hash)
	r.txs[key] = &tx
	if receipt != nil {
		rc := *receipt
		r.receipts[key] = &rc
	}
}

// TransferTx is a convenience for a successful ERC20 transfer mined at block at ts.
type TransferTx struct {
	Hash      string
	From      string
	Token     string
	To        string
	Value     *big.Int
	Block     uint64
	Timestamp time.Time
}

// AddTransfer stores a mined, successful transfer call.
func (r *Reader) AddTransfer(t TransferTx) {
	r.AddTransaction(chain.Transaction{
		Hash:        t.Hash,
		From:        t.From,
		To:          t.Token,
		Data:        EncodeTransfer(t.To, t.Value),
		BlockNumber: t.Block,
	}, &chain.Receipt{Status: chain.ReceiptStatusSuccess, BlockNumber: t.Block})
	r.SetBlockTime(t.Block, t.Timestamp)
}

// EncodeTransfer builds transfer(address,uint256) call-data.
func EncodeTransfer(to string, value *big.Int) []byte {
	selector := chain.Keccak256([]byte("transfer(address,uint256)"))[:4]
	data := make([]byte, 4+64)
	copy(data, selector)

	addr, _ := hex.DecodeString(strings.TrimPrefix(strings.ToLower(to), "0x"))
	copy(data[4+32-len(addr):4+32], addr)
	value.FillBytes(data[4+32:])
	return data
}

func (r *Reader) enter(ctx context.Context) error {
	r.mu.Lock()
	r.Calls++
	block, err := r.Block, r.Err
	r.mu.Unlock()

	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

// GetTransaction implements chain.Reader.
func (r *Reader) GetTransaction(ctx context.Context, hash string) (*chain.Transaction, error) {
	if err := r.enter(ctx); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.txs[strings.ToLower(hash)]
	if !ok {
		return nil, chain.ErrNotFound
	}
	cp := *tx
	return &cp, nil
}

// GetReceipt implements chain.Reader.
func (r *Reader) GetReceipt(ctx context.Context, hash string) (*chain.Receipt, error) {
	if err := r.enter(ctx); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rc, ok := r.receipts[strings.ToLower(hash)]
	if !ok {
		return nil, chain.ErrNotFound
	}
	cp := *rc
	return &cp, nil
}

// CurrentBlockHeight implements chain.Reader.
func (r *Reader) CurrentBlockHeight(ctx context.Context) (uint64, error) {
	if err := r.enter(ctx); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.height, nil
}

// GetBlockTimestamp implements chain.Reader.
func (r *Reader) GetBlockTimestamp(ctx context.Context, blockNumber uint64) (time.Time, error) {
	if err := r.enter(ctx); err != nil {
		return time.Time{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	ts, ok := r.blockTimes[blockNumber]
	if !ok {
		return time.Time{}, chain.ErrNotFound
	}
	return ts, nil
}

// ErrNoDecimals is returned by TokenDecimals for contracts without a configured value.
var ErrNoDecimals = errors.New("decimals() reverted")

// TokenDecimals implements chain.DecimalsReader.
func (r *Reader) TokenDecimals(ctx context.Context, tokenAddress string) (int32, error) {
	if err := r.enter(ctx); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.decimals[strings.ToLower(tokenAddress)]
	if !ok {
		return 0, ErrNoDecimals
	}
	return d, nil
}
