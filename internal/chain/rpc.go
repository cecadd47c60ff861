// Package chain talks to an Ethereum-compatible node over JSON-RPC.
package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// RPCClient defines the read side of the node HTTP interface.
type RPCClient interface {
	// CallContract executes a read-only message call against the latest block.
	CallContract(ctx context.Context, msg CallMsg) ([]byte, error)

	// BalanceAt returns the native balance of account at the latest block, in wei.
	BalanceAt(ctx context.Context, account common.Address) (*big.Int, error)

	// BlockNumber returns the most recent block number.
	BlockNumber(ctx context.Context) (uint64, error)

	// FilterLogs returns logs matching the filter.
	FilterLogs(ctx context.Context, filter LogFilter) ([]types.Log, error)
}

// TxClient adds the calls needed to sign and submit transactions.
type TxClient interface {
	RPCClient

	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)

	// EstimateGas returns the gas needed for msg. Reverts surface as *RPCError.
	EstimateGas(ctx context.Context, msg CallMsg) (uint64, error)

	// SendRawTransaction submits an RLP-encoded signed transaction.
	SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error)

	// TransactionReceipt returns the receipt, or nil while the transaction is pending.
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// CallMsg is a message call to a contract.
type CallMsg struct {
	From  *common.Address
	To    common.Address
	Data  []byte
	Value *big.Int // wei, nil for non-payable calls
}
