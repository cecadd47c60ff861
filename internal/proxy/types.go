package proxy

import (
	"github.com/ethereum/go-ethereum/common"

	"auction-relay/internal/domain"
	"auction-relay/internal/phase"
)

// Bid is a BidRecord with decimal-string integers.
type Bid struct {
	Bidder    string `json:"bidder"`
	Amount    string `json:"amount"`
	Timestamp string `json:"timestamp"`
}

// Auction is an AuctionRecord with decimal-string integers.
type Auction struct {
	AuctionID     string `json:"auctionId"`
	TokenID       string `json:"tokenId"`
	StartTime     string `json:"startTime"`
	EndTime       string `json:"endTime"`
	HighestBidder string `json:"highestBidder"`
	HighestBid    string `json:"highestBid"`
	Settled       bool   `json:"settled"`
	Exists        bool   `json:"exists"`
	Bids          []Bid  `json:"bids,omitempty"`
}

func toAuction(r *domain.AuctionRecord) *Auction {
	if r == nil {
		return nil
	}
	return &Auction{
		AuctionID:     bigString(r.AuctionID),
		TokenID:       bigString(r.TokenID),
		StartTime:     bigString(r.StartTime),
		EndTime:       bigString(r.EndTime),
		HighestBidder: r.HighestBidder.Hex(),
		HighestBid:    bigString(r.HighestBid),
		Settled:       r.Settled,
		Exists:        r.Exists,
	}
}

func toBids(records []domain.BidRecord) []Bid {
	bids := make([]Bid, 0, len(records))
	for _, b := range records {
		bids = append(bids, Bid{
			Bidder:    b.Bidder.Hex(),
			Amount:    bigString(b.Amount),
			Timestamp: bigString(b.Timestamp),
		})
	}
	return bids
}

// AuctionState is the /api/auction-state document. Optional fields are nil
// when their read failed; FailedReads then names them.
type AuctionState struct {
	AuctionActive                bool     `json:"auctionActive"`
	CurrentAuctionID             string   `json:"currentAuctionId"`
	CurrentAuction               *Auction `json:"currentAuction"`
	CanSettleAuction             *bool    `json:"canSettleAuction"`
	CanClaimNFT                  *bool    `json:"canClaimNFT"`
	AuctionsSinceLastRest        *string  `json:"auctionsSinceLastRest"`
	NextAuctionEarliestStartTime *string  `json:"nextAuctionEarliestStartTime"`
	AuctionDuration              *string  `json:"auctionDuration"`
	RestDuration                 *string  `json:"restDuration"`
	PayoutAddress                *string  `json:"payoutAddress"`
	Owner                        *string  `json:"owner"`
	GenesisStarted               bool     `json:"genesisStarted"`
	RestInterval                 string   `json:"restInterval"`

	// From getCurrentAuctionView.
	HasStarted         *bool   `json:"hasStarted"`
	HasEnded           *bool   `json:"hasEnded"`
	NextTokenURISeeded *bool   `json:"nextTokenUriSeeded"`
	TotalBids          *string `json:"totalBids"`

	FetchedAt   int64             `json:"fetchedAt"`
	Error       string            `json:"error,omitempty"`
	FailedReads map[string]string `json:"failedReads,omitempty"`

	Snapshot *domain.AuctionSnapshot `json:"-"`
}

// AuctionHistory is the /api/auction-history document.
type AuctionHistory struct {
	Auctions         []*Auction        `json:"auctions"`
	TotalAuctionIDs  int               `json:"totalAuctionIds"`
	CurrentAuctionID string            `json:"currentAuctionId"`
	HistoricalCount  int               `json:"historicalCount"`
	Error            string            `json:"error,omitempty"`
	FailedReads      map[string]string `json:"failedReads,omitempty"`
}

// TokenURI is the /api/token-uri/{tokenId} document.
type TokenURI struct {
	TokenURI string `json:"tokenUri"`
}

// Balance is a native balance.
type Balance struct {
	Value     string `json:"value"`
	Formatted string `json:"formatted"`
	Symbol    string `json:"symbol"`
}

// UserNFT is a token the user won in a settled auction.
type UserNFT struct {
	TokenID    string `json:"tokenId"`
	Name       string `json:"name"`
	Image      string `json:"image"`
	AuctionID  string `json:"auctionId"`
	WinningBid string `json:"winningBid"`
}

// UserDashboard is the /api/user-dashboard document.
type UserDashboard struct {
	UserAddress string    `json:"userAddress"`
	Balance     Balance   `json:"balance"`
	NFTBalance  string    `json:"nftBalance"`
	UserNFTs    []UserNFT `json:"userNFTs"`
}

// ActivityItem is one journaled event in an address or auction feed.
type ActivityItem struct {
	EventID     string `json:"eventId"`
	Kind        string `json:"kind"`
	AuctionID   string `json:"auctionId,omitempty"`
	TokenID     string `json:"tokenId,omitempty"`
	Account     string `json:"account,omitempty"`
	Amount      string `json:"amount,omitempty"`
	AmountEth   string `json:"amountEth,omitempty"`
	BlockNumber uint64 `json:"blockNumber"`
	TxHash      string `json:"txHash"`
	ObservedAt  int64  `json:"observedAt"`
}

// ActivitySummary totals an address's journaled activity.
type ActivitySummary struct {
	Bids        int    `json:"bids"`
	Refunds     int    `json:"refunds"`
	Wins        int    `json:"wins"`
	TotalBidWei string `json:"totalBidWei"`
	TotalBidEth string `json:"totalBidEth"`
}

// Activity is the /api/activity document.
type Activity struct {
	Address string          `json:"address"`
	Items   []ActivityItem  `json:"items"`
	Summary ActivitySummary `json:"summary"`
}

// BidStats summarizes analytics bids of one auction.
type BidStats struct {
	BidCount        uint64  `json:"bidCount"`
	DistinctBidders uint64  `json:"distinctBidders"`
	MaxAmountEth    float64 `json:"maxAmountEth"`
}

// AuctionEvents is the /api/auction-events/{auctionId} document.
type AuctionEvents struct {
	AuctionID string         `json:"auctionId"`
	Items     []ActivityItem `json:"items"`
	Stats     *BidStats      `json:"stats,omitempty"`
}

// PhaseView is the /api/phase document.
type PhaseView struct {
	phase.Projection
	MinBid     string `json:"minBid"`
	MinBidEth  string `json:"minBidEth"`
	ServerTime int64  `json:"serverTime"`
	FetchedAt  int64  `json:"fetchedAt"`
}

func toActivityItem(e *domain.ContractEvent) ActivityItem {
	item := ActivityItem{
		EventID:     e.EventID,
		Kind:        string(e.Kind),
		BlockNumber: e.BlockNumber,
		TxHash:      e.TxHash.Hex(),
		ObservedAt:  e.ObservedAt,
	}
	if e.AuctionID != nil {
		item.AuctionID = e.AuctionID.String()
	}
	if e.TokenID != nil {
		item.TokenID = e.TokenID.String()
	}
	if e.Account != nil {
		item.Account = e.Account.Hex()
	}
	if e.Amount != nil {
		item.Amount = e.Amount.String()
		item.AmountEth = FormatEther(e.Amount, 4)
	}
	return item
}

func addressString(a common.Address) *string {
	s := a.Hex()
	return &s
}
