package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auction-relay/internal/domain"
)

func TestNewPayload(t *testing.T) {
	e := bidEvent(42, 3, 7, 2e15)
	e.ObservedAt = 1_700_000_000_000

	p := NewPayload(e)
	assert.Equal(t, "BidPlaced", p.Kind)
	assert.Equal(t, "7", p.AuctionID)
	assert.Equal(t, "2000000000000000", p.Amount)
	assert.Equal(t, "0x00000000000000000000000000000000000b1dde", p.Account)
	assert.Empty(t, p.TokenID)

	raw, err := json.Marshal(p)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "tokenId")
	assert.Contains(t, string(raw), `"blockNumber":42`)
}

func TestNewPayload_NoFields(t *testing.T) {
	p := NewPayload(&domain.ContractEvent{Kind: domain.EventAuctionsCompleted, Removed: true})
	assert.Equal(t, "AuctionsCompleted", p.Kind)
	assert.Empty(t, p.Account)
	assert.True(t, p.Removed)
}
