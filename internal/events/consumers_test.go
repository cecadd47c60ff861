package events

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auction-relay/internal/domain"
	"auction-relay/internal/storage/memory"
)

// journalCheckingInvalidator records whether the journal already held each
// event when it was invalidated.
type journalCheckingInvalidator struct {
	t       *testing.T
	journal *memory.EventStore

	mu        sync.Mutex
	journaled []bool
}

func (i *journalCheckingInvalidator) Invalidate(e *domain.ContractEvent) []string {
	got, err := i.journal.GetByAuctionID(context.Background(), e.AuctionID)
	require.NoError(i.t, err)

	found := false
	for _, stored := range got {
		if stored.EventID == e.EventID {
			found = true
		}
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	i.journaled = append(i.journaled, found)
	return []string{"activity?"}
}

type notifyRecorder struct {
	mu   sync.Mutex
	keys [][]string
}

func (n *notifyRecorder) Notify(_ *domain.ContractEvent, keys []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.keys = append(n.keys, keys)
}

type publishRecorder struct {
	mu    sync.Mutex
	kinds []domain.EventKind
}

func (p *publishRecorder) Publish(_ context.Context, e *domain.ContractEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.kinds = append(p.kinds, e.Kind)
	return nil
}

func TestConsumers_JournalBeforeNotify(t *testing.T) {
	d, node := newTestDispatcher(t)
	store := memory.NewEventStore()
	inv := &journalCheckingInvalidator{t: t, journal: store}
	notifier := &notifyRecorder{}
	pub := &publishRecorder{}

	Consumers{
		Journal:     NewJournal(JournalOptions{Events: store, Logger: testLogger()}),
		Invalidator: inv,
		Notifiers:   []Notifier{notifier},
		Publisher:   pub,
		Logger:      testLogger(),
	}.Register(d)

	ctx := context.Background()
	require.NoError(t, d.HandleLog(ctx, "test", node.BidPlacedLog(5, 0, 1, testBidder, big.NewInt(1e15))))
	require.NoError(t, d.HandleLog(ctx, "test", node.BidPlacedLog(6, 0, 1, testBidder, big.NewInt(2e15))))

	assert.Equal(t, []bool{true, true}, inv.journaled)
	assert.Equal(t, [][]string{{"activity?"}, {"activity?"}}, notifier.keys)
	assert.Equal(t, []domain.EventKind{domain.EventBidPlaced, domain.EventBidPlaced}, pub.kinds)
}

func TestConsumers_OptionalPublisher(t *testing.T) {
	d, node := newTestDispatcher(t)
	store := memory.NewEventStore()

	Consumers{
		Journal:     NewJournal(JournalOptions{Events: store, Logger: testLogger()}),
		Invalidator: &journalCheckingInvalidator{t: t, journal: store},
	}.Register(d)

	require.NoError(t, d.HandleLog(context.Background(), "test", node.BidPlacedLog(5, 0, 1, testBidder, big.NewInt(1e15))))

	got, err := store.GetByAuctionID(context.Background(), big.NewInt(1))
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
