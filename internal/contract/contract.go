// Package contract binds the rolling auction contract: typed view calls,
// log decoding and calldata for the mutating calls.
package contract

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"auction-relay/internal/chain"
	"auction-relay/internal/domain"
)

//go:embed abi/auction.json
var auctionABIJSON []byte

// Method names of the mutating calls.
const (
	MethodPlaceBid              = "placeBid"
	MethodSettleAuction         = "settleAuction"
	MethodStartGenesisAuction   = "startGenesisAuction"
	MethodBeginAuctionAfterRest = "beginAuctionAfterRest"
	MethodUpdateAuctionDuration = "updateAuctionDuration"
	MethodUpdateRestDuration    = "updateRestDuration"
	MethodUpdatePayoutAddress   = "updatePayoutAddress"
)

var (
	// ErrUnknownEvent is returned when a log does not match a watched event.
	ErrUnknownEvent = errors.New("unknown event")

	// ErrNoAddress is returned when the contract address is the zero address.
	ErrNoAddress = errors.New("contract address not configured")
)

// ParseABI parses the embedded auction ABI.
func ParseABI() (abi.ABI, error) {
	return abi.JSON(bytes.NewReader(auctionABIJSON))
}

// Auction is a read binding to one deployed auction contract.
type Auction struct {
	client  chain.RPCClient
	address common.Address
	abi     abi.ABI
}

// New creates a binding for the contract at address.
func New(client chain.RPCClient, address common.Address) (*Auction, error) {
	if address == (common.Address{}) {
		return nil, ErrNoAddress
	}
	parsed, err := ParseABI()
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}
	return &Auction{client: client, address: address, abi: parsed}, nil
}

// Address returns the contract address.
func (a *Auction) Address() common.Address {
	return a.address
}

// ABI returns the parsed contract ABI.
func (a *Auction) ABI() abi.ABI {
	return a.abi
}

// Pack returns calldata for method.
func (a *Auction) Pack(method string, args ...interface{}) ([]byte, error) {
	data, err := a.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	return data, nil
}

func (a *Auction) call(ctx context.Context, method string, args ...interface{}) ([]byte, error) {
	data, err := a.Pack(method, args...)
	if err != nil {
		return nil, err
	}
	out, err := a.client.CallContract(ctx, chain.CallMsg{To: a.address, Data: data})
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	return out, nil
}

func (a *Auction) callUnpack(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	out, err := a.call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	values, err := a.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack %s: empty result", method)
	}
	return values, nil
}

func (a *Auction) callBool(ctx context.Context, method string, args ...interface{}) (bool, error) {
	values, err := a.callUnpack(ctx, method, args...)
	if err != nil {
		return false, err
	}
	return *abi.ConvertType(values[0], new(bool)).(*bool), nil
}

func (a *Auction) callBig(ctx context.Context, method string, args ...interface{}) (*big.Int, error) {
	values, err := a.callUnpack(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	return abi.ConvertType(values[0], new(big.Int)).(*big.Int), nil
}

func (a *Auction) callAddress(ctx context.Context, method string, args ...interface{}) (common.Address, error) {
	values, err := a.callUnpack(ctx, method, args...)
	if err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(values[0], new(common.Address)).(*common.Address), nil
}

// auctionTuple mirrors the Auction struct returned by the contract.
type auctionTuple struct {
	AuctionId     *big.Int
	TokenId       *big.Int
	StartTime     *big.Int
	EndTime       *big.Int
	HighestBidder common.Address
	HighestBid    *big.Int
	Settled       bool
	Exists        bool
}

func (t *auctionTuple) record() *domain.AuctionRecord {
	return &domain.AuctionRecord{
		AuctionID:     t.AuctionId,
		TokenID:       t.TokenId,
		StartTime:     t.StartTime,
		EndTime:       t.EndTime,
		HighestBidder: t.HighestBidder,
		HighestBid:    t.HighestBid,
		Settled:       t.Settled,
		Exists:        t.Exists,
	}
}

type bidTuple struct {
	Bidder    common.Address
	Amount    *big.Int
	Timestamp *big.Int
}

type auctionViewTuple struct {
	AuctionId          *big.Int
	TokenId            *big.Int
	StartTime          *big.Int
	EndTime            *big.Int
	HighestBidder      common.Address
	HighestBid         *big.Int
	Settled            bool
	Exists             bool
	IsAuctionActive    bool
	HasStarted         bool
	HasEnded           bool
	CanSettleNow       bool
	NextTokenUriSeeded bool
	TotalBids          *big.Int
}
