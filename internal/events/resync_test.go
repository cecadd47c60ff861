package events

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auction-relay/internal/domain"
)

func TestResyncer_ReplaysFromLastBlock(t *testing.T) {
	d, node := newTestDispatcher(t)
	rec := &recorder{}
	d.OnAny(rec.handler("any"))

	node.AddLog(node.BidPlacedLog(3, 0, 1, testBidder, big.NewInt(1)))
	node.AddLog(node.BidPlacedLog(5, 1, 1, testBidder, big.NewInt(2)))
	node.AddLog(node.BidPlacedLog(7, 0, 1, testBidder, big.NewInt(3)))
	node.AddLog(node.Log(domain.EventAuctionsCompleted, 9, 0, nil))

	resets := 0
	r := NewResyncer(ResyncOptions{
		Client:     node,
		Filter:     node.Auction().LogFilter(),
		Dispatcher: d,
		BlockRange: 2,
		LastBlock:  func() uint64 { return 5 },
		Reset:      func() { resets++ },
		Logger:     testLogger(),
	})

	n, err := r.Resync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"any:BidPlaced", "any:BidPlaced", "any:AuctionsCompleted"}, rec.snapshot())
	assert.Equal(t, 1, resets)
}

func TestResyncer_NothingSeenOnlyResets(t *testing.T) {
	d, node := newTestDispatcher(t)
	rec := &recorder{}
	d.OnAny(rec.handler("any"))
	node.AddLog(node.BidPlacedLog(3, 0, 1, testBidder, big.NewInt(1)))

	resets := 0
	r := NewResyncer(ResyncOptions{
		Client:     node,
		Filter:     node.Auction().LogFilter(),
		Dispatcher: d,
		Reset:      func() { resets++ },
		Logger:     testLogger(),
	})

	n, err := r.Resync(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, rec.snapshot())
	assert.Equal(t, 1, resets)
}
