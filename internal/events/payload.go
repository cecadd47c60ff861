package events

import (
	"math/big"
	"strings"

	"auction-relay/internal/domain"
)

// Payload is the JSON form of a ContractEvent shared by the broadcast hub
// and the relays. Big integers are decimal strings and addresses lowercase hex.
type Payload struct {
	EventID              string `json:"eventId"`
	Kind                 string `json:"kind"`
	AuctionID            string `json:"auctionId,omitempty"`
	TokenID              string `json:"tokenId,omitempty"`
	Account              string `json:"account,omitempty"`
	Amount               string `json:"amount,omitempty"`
	EndTime              string `json:"endTime,omitempty"`
	NextAuctionStartTime string `json:"nextAuctionStartTime,omitempty"`
	NewDuration          string `json:"newDuration,omitempty"`
	BlockNumber          uint64 `json:"blockNumber"`
	TxHash               string `json:"txHash"`
	LogIndex             uint   `json:"logIndex"`
	Removed              bool   `json:"removed"`
	ObservedAt           int64  `json:"observedAt"`
}

// NewPayload converts e for the wire.
func NewPayload(e *domain.ContractEvent) Payload {
	p := Payload{
		EventID:              e.EventID,
		Kind:                 string(e.Kind),
		AuctionID:            decimalString(e.AuctionID),
		TokenID:              decimalString(e.TokenID),
		Amount:               decimalString(e.Amount),
		EndTime:              decimalString(e.EndTime),
		NextAuctionStartTime: decimalString(e.NextAuctionStartTime),
		NewDuration:          decimalString(e.NewDuration),
		BlockNumber:          e.BlockNumber,
		TxHash:               e.TxHash.Hex(),
		LogIndex:             e.LogIndex,
		Removed:              e.Removed,
		ObservedAt:           e.ObservedAt,
	}
	if e.Account != nil {
		p.Account = strings.ToLower(e.Account.Hex())
	}
	return p
}

func decimalString(v *big.Int) string {
	if v == nil {
		return ""
	}
	return v.String()
}
