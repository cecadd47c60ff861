// Package stub provides an in-memory node for tests.
package stub

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"auction-relay/internal/chain"
)

// ErrNotFound is returned when no handler or value is registered.
var ErrNotFound = errors.New("not found")

// CallHandler answers an eth_call. input excludes the 4-byte selector.
type CallHandler func(input []byte) ([]byte, error)

// RPCClient implements chain.TxClient for testing.
// eth_call is routed by 4-byte method selector.
type RPCClient struct {
	mu sync.Mutex

	Handlers map[[4]byte]CallHandler
	Balances map[common.Address]*big.Int
	Logs     []types.Log
	Head     uint64

	ChainIDValue *big.Int
	Nonces       map[common.Address]uint64
	GasPrice     *big.Int
	GasLimit     uint64
	EstimateErr  error
	Sent         [][]byte

	calls map[[4]byte]int
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		Handlers:     make(map[[4]byte]CallHandler),
		Balances:     make(map[common.Address]*big.Int),
		Nonces:       make(map[common.Address]uint64),
		ChainIDValue: big.NewInt(84532),
		GasPrice:     big.NewInt(1_000_000_000),
		GasLimit:     100_000,
		calls:        make(map[[4]byte]int),
	}
}

var _ chain.TxClient = (*RPCClient)(nil)

// Selector returns the 4-byte selector for a canonical signature like "owner()".
func Selector(signature string) [4]byte {
	var sel [4]byte
	copy(sel[:], crypto.Keccak256([]byte(signature))[:4])
	return sel
}

// Handle registers a handler for the given 4-byte selector.
func (c *RPCClient) Handle(selector []byte, h CallHandler) {
	var sel [4]byte
	copy(sel[:], selector)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.Handlers[sel] = h
}

// CallCount returns how many eth_calls hit the given selector.
func (c *RPCClient) CallCount(selector []byte) int {
	var sel [4]byte
	copy(sel[:], selector)

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[sel]
}

// TotalCalls returns the number of eth_calls served.
func (c *RPCClient) TotalCalls() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	total := 0
	for _, n := range c.calls {
		total += n
	}
	return total
}

// CallContract routes the call to the registered handler.
func (c *RPCClient) CallContract(_ context.Context, msg chain.CallMsg) ([]byte, error) {
	if len(msg.Data) < 4 {
		return nil, fmt.Errorf("calldata too short")
	}

	var sel [4]byte
	copy(sel[:], msg.Data[:4])

	c.mu.Lock()
	c.calls[sel]++
	h, ok := c.Handlers[sel]
	c.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("selector %x: %w", sel, ErrNotFound)
	}
	return h(msg.Data[4:])
}

// BalanceAt returns the stored balance, zero if unset.
func (c *RPCClient) BalanceAt(_ context.Context, account common.Address) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if b, ok := c.Balances[account]; ok {
		return new(big.Int).Set(b), nil
	}
	return new(big.Int), nil
}

// BlockNumber returns Head.
func (c *RPCClient) BlockNumber(_ context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Head, nil
}

// FilterLogs returns stored logs within the filter's block range.
// Address and topic0 filters are applied.
func (c *RPCClient) FilterLogs(_ context.Context, filter chain.LogFilter) ([]types.Log, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []types.Log
	for _, l := range c.Logs {
		if filter.FromBlock != nil && l.BlockNumber < filter.FromBlock.Uint64() {
			continue
		}
		if filter.ToBlock != nil && l.BlockNumber > filter.ToBlock.Uint64() {
			continue
		}
		if len(filter.Addresses) > 0 && !containsAddress(filter.Addresses, l.Address) {
			continue
		}
		if len(filter.Topics) > 0 && len(filter.Topics[0]) > 0 {
			if len(l.Topics) == 0 || !containsHash(filter.Topics[0], l.Topics[0]) {
				continue
			}
		}
		out = append(out, l)
	}
	return out, nil
}

// AddLog appends a log and advances Head when needed.
func (c *RPCClient) AddLog(l types.Log) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Logs = append(c.Logs, l)
	if l.BlockNumber > c.Head {
		c.Head = l.BlockNumber
	}
}

// ChainID returns ChainIDValue.
func (c *RPCClient) ChainID(_ context.Context) (*big.Int, error) {
	return new(big.Int).Set(c.ChainIDValue), nil
}

// PendingNonceAt returns the stored nonce.
func (c *RPCClient) PendingNonceAt(_ context.Context, account common.Address) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Nonces[account], nil
}

// SuggestGasPrice returns GasPrice.
func (c *RPCClient) SuggestGasPrice(_ context.Context) (*big.Int, error) {
	return new(big.Int).Set(c.GasPrice), nil
}

// EstimateGas returns GasLimit or EstimateErr.
func (c *RPCClient) EstimateGas(_ context.Context, _ chain.CallMsg) (uint64, error) {
	if c.EstimateErr != nil {
		return 0, c.EstimateErr
	}
	return c.GasLimit, nil
}

// SendRawTransaction records the raw transaction and returns its hash.
func (c *RPCClient) SendRawTransaction(_ context.Context, raw []byte) (common.Hash, error) {
	var tx types.Transaction
	if err := tx.UnmarshalBinary(raw); err != nil {
		return common.Hash{}, fmt.Errorf("decode transaction: %w", err)
	}

	c.mu.Lock()
	c.Sent = append(c.Sent, raw)
	c.mu.Unlock()

	return tx.Hash(), nil
}

// TransactionReceipt always reports a successful receipt for sent transactions.
func (c *RPCClient) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, raw := range c.Sent {
		var tx types.Transaction
		if err := tx.UnmarshalBinary(raw); err == nil && tx.Hash() == hash {
			return &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: hash, BlockNumber: big.NewInt(int64(c.Head))}, nil
		}
	}
	return nil, nil
}

func containsAddress(list []common.Address, a common.Address) bool {
	for _, x := range list {
		if x == a {
			return true
		}
	}
	return false
}

func containsHash(list []common.Hash, h common.Hash) bool {
	for _, x := range list {
		if x == h {
			return true
		}
	}
	return false
}
