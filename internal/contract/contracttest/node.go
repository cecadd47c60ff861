// Package contracttest serves the auction contract's view calls from
// in-memory state on top of the stub node.
package contracttest

import (
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"auction-relay/internal/chain/stub"
	"auction-relay/internal/contract"
	"auction-relay/internal/domain"
)

// Address is the contract address Node serves.
var Address = common.HexToAddress("0x00000000000000000000000000000000000a0c71")

// Node is a stub node that answers auction view calls.
type Node struct {
	*stub.RPCClient

	t   testing.TB
	abi abi.ABI

	mu       sync.Mutex
	auctions map[string]domain.AuctionRecord
	failing  map[string]error
	bids     map[string][]domain.BidRecord
	balances map[common.Address]*big.Int
}

// NewNode creates a Node with the auctions(id), getAuctionBids(id) and
// balanceOf(owner) lookups wired to SetAuction, SetBids and SetNFTBalance.
func NewNode(t testing.TB) *Node {
	t.Helper()

	parsed, err := contract.ParseABI()
	if err != nil {
		t.Fatalf("parse abi: %v", err)
	}

	n := &Node{
		RPCClient: stub.NewRPCClient(),
		t:         t,
		abi:       parsed,
		auctions:  make(map[string]domain.AuctionRecord),
		failing:   make(map[string]error),
		bids:      make(map[string][]domain.BidRecord),
		balances:  make(map[common.Address]*big.Int),
	}

	n.Handle(n.selector("auctions"), func(input []byte) ([]byte, error) {
		id := uintArg(input)
		n.mu.Lock()
		rec, ok := n.auctions[id.String()]
		failErr := n.failing[id.String()]
		n.mu.Unlock()
		if failErr != nil {
			return nil, failErr
		}
		if !ok {
			rec = domain.AuctionRecord{}
		}
		r := normalize(rec)
		return n.abi.Methods["auctions"].Outputs.Pack(
			r.AuctionID, r.TokenID, r.StartTime, r.EndTime, r.HighestBidder, r.HighestBid, r.Settled, r.Exists,
		)
	})
	n.Handle(n.selector("getAuctionBids"), func(input []byte) ([]byte, error) {
		id := uintArg(input)
		n.mu.Lock()
		bids := n.bids[id.String()]
		n.mu.Unlock()
		return n.abi.Methods["getAuctionBids"].Outputs.Pack(bidTuples(bids))
	})
	n.Handle(n.selector("balanceOf"), func(input []byte) ([]byte, error) {
		owner := common.BytesToAddress(input[:32])
		n.mu.Lock()
		bal, ok := n.balances[owner]
		n.mu.Unlock()
		if !ok {
			bal = new(big.Int)
		}
		return n.abi.Methods["balanceOf"].Outputs.Pack(bal)
	})
	return n
}

// Auction returns a binding to the node's contract.
func (n *Node) Auction() *contract.Auction {
	n.t.Helper()
	a, err := contract.New(n, Address)
	if err != nil {
		n.t.Fatalf("bind contract: %v", err)
	}
	return a
}

// Selector returns the 4-byte selector of method.
func (n *Node) Selector(method string) []byte {
	return n.selector(method)
}

func (n *Node) selector(method string) []byte {
	m, ok := n.abi.Methods[method]
	if !ok {
		n.t.Fatalf("unknown method %s", method)
	}
	return m.ID
}

// Respond makes method return the ABI-packed values.
func (n *Node) Respond(method string, values ...interface{}) {
	n.t.Helper()
	out, err := n.abi.Methods[method].Outputs.Pack(values...)
	if err != nil {
		n.t.Fatalf("pack %s: %v", method, err)
	}
	n.Handle(n.selector(method), func([]byte) ([]byte, error) { return out, nil })
}

// Fail makes method return err.
func (n *Node) Fail(method string, err error) {
	n.Handle(n.selector(method), func([]byte) ([]byte, error) { return nil, err })
}

// SetCurrentAuction makes getCurrentAuction return rec.
func (n *Node) SetCurrentAuction(rec domain.AuctionRecord) {
	n.Respond("getCurrentAuction", toTuple(rec))
}

// SetAuction stores rec under its AuctionID for auctions(id).
func (n *Node) SetAuction(rec domain.AuctionRecord) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.auctions[rec.AuctionID.String()] = rec
}

// FailAuction makes auctions(id) return err.
func (n *Node) FailAuction(auctionID *big.Int, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failing[auctionID.String()] = err
}

// SetCurrentView makes getCurrentAuctionView return v.
func (n *Node) SetCurrentView(v domain.AuctionView) {
	r := normalize(v.AuctionRecord)
	n.Respond("getCurrentAuctionView",
		r.AuctionID, r.TokenID, r.StartTime, r.EndTime, r.HighestBidder, r.HighestBid, r.Settled, r.Exists,
		v.IsAuctionActive, v.HasStarted, v.HasEnded, v.CanSettleNow, v.NextTokenURISeeded, orZero(v.TotalBids),
	)
}

// SetBids stores the bid list for getAuctionBids(id).
func (n *Node) SetBids(auctionID *big.Int, bids []domain.BidRecord) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.bids[auctionID.String()] = bids
}

// SetNFTBalance sets balanceOf(owner).
func (n *Node) SetNFTBalance(owner common.Address, balance int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.balances[owner] = big.NewInt(balance)
}

// SetAuctionIDs makes getAllAuctionIds return ids.
func (n *Node) SetAuctionIDs(ids ...int64) {
	list := make([]*big.Int, len(ids))
	for i, id := range ids {
		list[i] = big.NewInt(id)
	}
	n.Respond("getAllAuctionIds", list)
}

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

type bidTuple struct {
	Bidder    common.Address
	Amount    *big.Int
	Timestamp *big.Int
}

func toTuple(rec domain.AuctionRecord) auctionTuple {
	r := normalize(rec)
	return auctionTuple{
		AuctionId:     r.AuctionID,
		TokenId:       r.TokenID,
		StartTime:     r.StartTime,
		EndTime:       r.EndTime,
		HighestBidder: r.HighestBidder,
		HighestBid:    r.HighestBid,
		Settled:       r.Settled,
		Exists:        r.Exists,
	}
}

func bidTuples(bids []domain.BidRecord) []bidTuple {
	out := make([]bidTuple, 0, len(bids))
	for _, b := range bids {
		out = append(out, bidTuple{Bidder: b.Bidder, Amount: orZero(b.Amount), Timestamp: orZero(b.Timestamp)})
	}
	return out
}

// normalize replaces nil integers with zero so the record packs.
func normalize(rec domain.AuctionRecord) domain.AuctionRecord {
	rec.AuctionID = orZero(rec.AuctionID)
	rec.TokenID = orZero(rec.TokenID)
	rec.StartTime = orZero(rec.StartTime)
	rec.EndTime = orZero(rec.EndTime)
	rec.HighestBid = orZero(rec.HighestBid)
	return rec
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

func uintArg(input []byte) *big.Int {
	if len(input) < 32 {
		return new(big.Int)
	}
	return new(big.Int).SetBytes(input[:32])
}

// Log builds a log for event kind emitted at (block, index) with the given
// indexed topics and ABI-packed non-indexed values.
func (n *Node) Log(kind domain.EventKind, block uint64, index uint, topics []common.Hash, data ...interface{}) types.Log {
	n.t.Helper()

	ev, ok := n.abi.Events[string(kind)]
	if !ok {
		n.t.Fatalf("unknown event %s", kind)
	}
	packed, err := ev.Inputs.NonIndexed().Pack(data...)
	if err != nil {
		n.t.Fatalf("pack %s: %v", kind, err)
	}
	return types.Log{
		Address:     Address,
		Topics:      append([]common.Hash{ev.ID}, topics...),
		Data:        packed,
		BlockNumber: block,
		TxHash:      common.BigToHash(new(big.Int).SetUint64(block)),
		Index:       index,
	}
}

// BidPlacedLog builds a BidPlaced log.
func (n *Node) BidPlacedLog(block uint64, index uint, auctionID int64, bidder common.Address, amount *big.Int) types.Log {
	n.t.Helper()
	return n.Log(domain.EventBidPlaced, block, index,
		[]common.Hash{common.BigToHash(big.NewInt(auctionID)), common.BytesToHash(bidder.Bytes())},
		amount,
	)
}
