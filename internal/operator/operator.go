// Package operator builds, signs and submits auction transactions: bids,
// settlement, auction starts and the owner's parameter updates.
package operator

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"auction-relay/internal/chain"
	"auction-relay/internal/contract"
	"auction-relay/internal/domain"
	"auction-relay/internal/observability"
	"auction-relay/internal/phase"
)

// Transaction statuses recorded in metrics.
const (
	StatusSent      = "sent"
	StatusFailed    = "failed"
	StatusConfirmed = "confirmed"
	StatusReverted  = "reverted"
)

const defaultReceiptPoll = 2 * time.Second

var (
	// ErrInvalidKey is returned for a private key that does not parse.
	ErrInvalidKey = errors.New("invalid private key")
	// ErrInvalidAmount is returned for a missing or negative bid amount.
	ErrInvalidAmount = errors.New("invalid bid amount")
	// ErrInvalidDuration is returned for a non-positive duration.
	ErrInvalidDuration = errors.New("duration must be positive")
	// ErrZeroAddress is returned when a payout address is the zero address.
	ErrZeroAddress = errors.New("zero address")
	// ErrReverted is returned when a mined transaction failed.
	ErrReverted = errors.New("transaction reverted")
)

// Snapshotter provides the auction state used to pre-validate bids.
type Snapshotter interface {
	Snapshot(ctx context.Context) (*domain.AuctionSnapshot, error)
}

// Options configures an Operator.
type Options struct {
	Client  chain.TxClient
	Auction *contract.Auction
	Key     *ecdsa.PrivateKey

	// Snapshots enables bid pre-validation. Optional.
	Snapshots Snapshotter
	Rules     phase.Rules

	// OnConfirmed runs after a transaction is mined successfully.
	OnConfirmed func(tx *Tx, receipt *types.Receipt)

	ReceiptPoll time.Duration
	Logger      *log.Logger
	Now         func() time.Time
}

// Operator signs transactions with a single key.
type Operator struct {
	client      chain.TxClient
	auction     *contract.Auction
	key         *ecdsa.PrivateKey
	from        common.Address
	snapshots   Snapshotter
	rules       phase.Rules
	onConfirmed func(tx *Tx, receipt *types.Receipt)
	receiptPoll time.Duration
	logger      *log.Logger
	now         func() time.Time
}

// Tx describes a submitted transaction.
type Tx struct {
	Method   string
	Hash     common.Hash
	From     common.Address
	Nonce    uint64
	GasLimit uint64
	GasPrice *big.Int
	Value    *big.Int
}

// New creates a new Operator.
func New(opts Options) (*Operator, error) {
	if opts.Client == nil || opts.Auction == nil {
		return nil, errors.New("operator requires a client and a contract")
	}
	if opts.Key == nil {
		return nil, ErrInvalidKey
	}
	if opts.ReceiptPoll <= 0 {
		opts.ReceiptPoll = defaultReceiptPoll
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Operator{
		client:      opts.Client,
		auction:     opts.Auction,
		key:         opts.Key,
		from:        crypto.PubkeyToAddress(opts.Key.PublicKey),
		snapshots:   opts.Snapshots,
		rules:       opts.Rules,
		onConfirmed: opts.OnConfirmed,
		receiptPoll: opts.ReceiptPoll,
		logger:      opts.Logger,
		now:         opts.Now,
	}, nil
}

// ParsePrivateKey parses a hex private key with or without a 0x prefix.
func ParsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return key, nil
}

// From returns the signing address.
func (o *Operator) From() common.Address {
	return o.from
}

// send packs, estimates, signs and submits a call to method. Failures are
// returned as-is; nothing is retried.
func (o *Operator) send(ctx context.Context, method string, value *big.Int, args ...interface{}) (tx *Tx, err error) {
	defer func() {
		if err != nil {
			observability.RecordTransaction(method, StatusFailed)
		}
	}()

	data, err := o.auction.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	if value == nil {
		value = new(big.Int)
	}
	to := o.auction.Address()

	chainID, err := o.client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain id: %w", err)
	}
	nonce, err := o.client.PendingNonceAt(ctx, o.from)
	if err != nil {
		return nil, fmt.Errorf("pending nonce: %w", err)
	}
	gasPrice, err := o.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("gas price: %w", err)
	}
	from := o.from
	gas, err := o.client.EstimateGas(ctx, chain.CallMsg{From: &from, To: to, Data: data, Value: value})
	if err != nil {
		return nil, fmt.Errorf("estimate gas for %s: %w", method, err)
	}

	unsigned := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &to,
		Value:    value,
		Data:     data,
	})
	signed, err := types.SignTx(unsigned, types.NewEIP155Signer(chainID), o.key)
	if err != nil {
		return nil, fmt.Errorf("sign %s: %w", method, err)
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", method, err)
	}

	hash, err := o.client.SendRawTransaction(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("send %s: %w", method, err)
	}
	observability.RecordTransaction(method, StatusSent)
	o.logger.Printf("Sent %s tx %s (nonce=%d gas=%d)", method, hash.Hex(), nonce, gas)

	return &Tx{
		Method:   method,
		Hash:     hash,
		From:     o.from,
		Nonce:    nonce,
		GasLimit: gas,
		GasPrice: gasPrice,
		Value:    value,
	}, nil
}

// WaitMined polls for the receipt of tx until it is mined or ctx ends.
// A failed receipt returns ErrReverted along with the receipt.
func (o *Operator) WaitMined(ctx context.Context, tx *Tx) (*types.Receipt, error) {
	ticker := time.NewTicker(o.receiptPoll)
	defer ticker.Stop()

	for {
		receipt, err := o.client.TransactionReceipt(ctx, tx.Hash)
		if err != nil {
			return nil, fmt.Errorf("receipt %s: %w", tx.Hash.Hex(), err)
		}
		if receipt != nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				observability.RecordTransaction(tx.Method, StatusReverted)
				return receipt, fmt.Errorf("%s %s: %w", tx.Method, tx.Hash.Hex(), ErrReverted)
			}
			observability.RecordTransaction(tx.Method, StatusConfirmed)
			if o.onConfirmed != nil {
				o.onConfirmed(tx, receipt)
			}
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
