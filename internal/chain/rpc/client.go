// Package rpc implements chain.Reader over an Ethereum-compatible JSON-RPC endpoint.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/mmynk/esusu/internal/chain"
)

// decimalsSelector is keccak256("decimals()")[:4].
var decimalsSelector = chain.Keccak256([]byte("decimals()"))[:4]

// Client talks JSON-RPC 2.0 to a node such as https://forno.celo.org.
type Client struct {
	url        string
	httpClient *http.Client
	nextID     atomic.Int64
}

var _ chain.Reader = (*Client)(nil)
var _ chain.DecimalsReader = (*Client)(nil)

// New creates a client for url. A nil httpClient uses one with a 10s timeout;
// callers should still bound each call with a context deadline.
func New(url string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{url: url, httpClient: httpClient}
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type response struct {
	ID     int64           `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// call performs method and decodes a non-null result into out.
// A JSON null result maps to chain.ErrNotFound.
func (c *Client) call(ctx context.Context, out any, method string, params ...any) error {
	if params == nil {
		params = []any{}
	}
	body, err := json.Marshal(request{JSONRPC: "2.0", ID: c.nextID.Add(1), Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to call %s: http status %d", method, resp.StatusCode)
	}

	var rpcResp response
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("%s: %w", method, rpcResp.Error)
	}
	if len(rpcResp.Result) == 0 || string(rpcResp.Result) == "null" {
		return chain.ErrNotFound
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return nil
}

type rpcTransaction struct {
	Hash        string  `json:"hash"`
	From        string  `json:"from"`
	To          *string `json:"to"`
	Input       string  `json:"input"`
	BlockNumber *string `json:"blockNumber"`
}

// GetTransaction implements chain.Reader. Pending transactions have block number 0.
func (c *Client) GetTransaction(ctx context.Context, hash string) (*chain.Transaction, error) {
	var raw rpcTransaction
	if err := c.call(ctx, &raw, "eth_getTransactionByHash", hash); err != nil {
		return nil, err
	}

	data, err := chain.DecodeHex(raw.Input)
	if err != nil {
		return nil, fmt.Errorf("failed to decode transaction input: %w", err)
	}
	tx := &chain.Transaction{Hash: raw.Hash, From: raw.From, Data: data}
	if raw.To != nil {
		tx.To = *raw.To
	}
	if raw.BlockNumber != nil {
		if tx.BlockNumber, err = parseQuantity(*raw.BlockNumber); err != nil {
			return nil, fmt.Errorf("failed to parse block number: %w", err)
		}
	}
	return tx, nil
}

type rpcReceipt struct {
	Status      string `json:"status"`
	BlockNumber string `json:"blockNumber"`
}

// GetReceipt implements chain.Reader.
func (c *Client) GetReceipt(ctx context.Context, hash string) (*chain.Receipt, error) {
	var raw rpcReceipt
	if err := c.call(ctx, &raw, "eth_getTransactionReceipt", hash); err != nil {
		return nil, err
	}
	status, err := parseQuantity(raw.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to parse receipt status: %w", err)
	}
	block, err := parseQuantity(raw.BlockNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to parse receipt block: %w", err)
	}
	return &chain.Receipt{Status: status, BlockNumber: block}, nil
}

// CurrentBlockHeight implements chain.Reader.
func (c *Client) CurrentBlockHeight(ctx context.Context) (uint64, error) {
	var raw string
	if err := c.call(ctx, &raw, "eth_blockNumber"); err != nil {
		return 0, err
	}
	return parseQuantity(raw)
}

type rpcBlock struct {
	Timestamp string `json:"timestamp"`
}

// GetBlockTimestamp implements chain.Reader.
func (c *Client) GetBlockTimestamp(ctx context.Context, blockNumber uint64) (time.Time, error) {
	var raw rpcBlock
	if err := c.call(ctx, &raw, "eth_getBlockByNumber", formatQuantity(blockNumber), false); err != nil {
		return time.Time{}, err
	}
	secs, err := parseQuantity(raw.Timestamp)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse block timestamp: %w", err)
	}
	return time.Unix(int64(secs), 0).UTC(), nil
}

// TokenDecimals implements chain.DecimalsReader by calling decimals() on the token.
func (c *Client) TokenDecimals(ctx context.Context, tokenAddress string) (int32, error) {
	call := map[string]string{
		"to":   tokenAddress,
		"data": chain.EncodeHex(decimalsSelector),
	}
	var raw string
	if err := c.call(ctx, &raw, "eth_call", call, "latest"); err != nil {
		return 0, err
	}
	out, err := chain.DecodeHex(raw)
	if err != nil {
		return 0, fmt.Errorf("failed to decode decimals result: %w", err)
	}
	if len(out) != 32 {
		return 0, fmt.Errorf("unexpected decimals result length %d", len(out))
	}
	v := new(big.Int).SetBytes(out)
	if !v.IsInt64() || v.Int64() > 255 {
		return 0, fmt.Errorf("decimals out of range: %s", v)
	}
	return int32(v.Int64()), nil
}

func parseQuantity(s string) (uint64, error) {
	if len(s) < 3 || s[0] != '0' || (s[1] != 'x' && s[1] != 'X') {
		return 0, fmt.Errorf("invalid quantity %q", s)
	}
	return strconv.ParseUint(s[2:], 16, 64)
}

func formatQuantity(n uint64) string {
	return "0x" + strconv.FormatUint(n, 16)
}
