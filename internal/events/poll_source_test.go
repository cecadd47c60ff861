package events

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auction-relay/internal/contract/contracttest"
	"auction-relay/internal/storage/memory"
)

func receive(t *testing.T, ch <-chan types.Log, n int) []types.Log {
	t.Helper()
	var out []types.Log
	for len(out) < n {
		select {
		case l, ok := <-ch:
			require.True(t, ok, "channel closed after %d logs", len(out))
			out = append(out, l)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out after %d of %d logs", len(out), n)
		}
	}
	return out
}

func TestPollSource_ReadsInChainOrderAndSavesCursor(t *testing.T) {
	node := contracttest.NewNode(t)
	auction := node.Auction()
	cursors := memory.NewCursorStore()

	// Added out of order; the source sorts each range.
	node.AddLog(node.BidPlacedLog(12, 0, 1, testBidder, big.NewInt(3)))
	node.AddLog(node.BidPlacedLog(5, 1, 1, testBidder, big.NewInt(2)))
	node.AddLog(node.BidPlacedLog(5, 0, 1, testBidder, big.NewInt(1)))

	src := NewPollSource(PollOptions{
		Client:        node,
		Filter:        auction.LogFilter(),
		Cursors:       cursors,
		SubscriberID:  "sub",
		StartBlock:    1,
		Interval:      10 * time.Millisecond,
		MaxBlockRange: 4,
		Logger:        testLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := src.Subscribe(ctx)
	require.NoError(t, err)

	logs := receive(t, ch, 3)
	assert.NoError(t, ValidateLogOrdering(logs))
	assert.Equal(t, uint64(5), logs[0].BlockNumber)
	assert.Equal(t, uint(0), logs[0].Index)
	assert.Equal(t, uint64(12), logs[2].BlockNumber)

	require.Eventually(t, func() bool {
		last, err := cursors.GetCursor(context.Background(), "sub")
		return err == nil && last == 12
	}, 2*time.Second, 10*time.Millisecond)

	node.AddLog(node.BidPlacedLog(14, 0, 1, testBidder, big.NewInt(4)))
	next := receive(t, ch, 1)
	assert.Equal(t, uint64(14), next[0].BlockNumber)
}

func TestPollSource_ResumesAfterCursor(t *testing.T) {
	node := contracttest.NewNode(t)
	cursors := memory.NewCursorStore()
	require.NoError(t, cursors.SetCursor(context.Background(), "sub", 5))

	node.AddLog(node.BidPlacedLog(5, 0, 1, testBidder, big.NewInt(1)))
	node.AddLog(node.BidPlacedLog(6, 0, 1, testBidder, big.NewInt(2)))

	src := NewPollSource(PollOptions{
		Client:       node,
		Filter:       node.Auction().LogFilter(),
		Cursors:      cursors,
		SubscriberID: "sub",
		StartBlock:   1,
		Interval:     10 * time.Millisecond,
		Logger:       testLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := src.Subscribe(ctx)
	require.NoError(t, err)

	logs := receive(t, ch, 1)
	assert.Equal(t, uint64(6), logs[0].BlockNumber)
}

func TestPollSource_StartsAfterHeadWithoutCursor(t *testing.T) {
	node := contracttest.NewNode(t)
	node.AddLog(node.BidPlacedLog(9, 0, 1, testBidder, big.NewInt(1)))

	src := NewPollSource(PollOptions{
		Client:   node,
		Filter:   node.Auction().LogFilter(),
		Interval: 10 * time.Millisecond,
		Logger:   testLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := src.Subscribe(ctx)
	require.NoError(t, err)

	node.AddLog(node.BidPlacedLog(10, 0, 1, testBidder, big.NewInt(2)))
	logs := receive(t, ch, 1)
	assert.Equal(t, uint64(10), logs[0].BlockNumber)
}

func TestPollSource_ClosesOnCancel(t *testing.T) {
	node := contracttest.NewNode(t)
	src := NewPollSource(PollOptions{
		Client:     node,
		Filter:     node.Auction().LogFilter(),
		StartBlock: 1,
		Interval:   10 * time.Millisecond,
		Logger:     testLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := src.Subscribe(ctx)
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}
