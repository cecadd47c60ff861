package events

import (
	"context"
	"log"
	"math/big"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auction-relay/internal/contract/contracttest"
	"auction-relay/internal/domain"
)

var testBidder = common.HexToAddress("0x00000000000000000000000000000000000b1dde")

func testLogger() *log.Logger {
	return log.New(os.Stderr, "[events-test] ", log.LstdFlags)
}

// chanSource is a controllable log source.
type chanSource struct {
	name string
	ch   chan types.Log
}

func newChanSource(name string) *chanSource {
	return &chanSource{name: name, ch: make(chan types.Log, 16)}
}

func (s *chanSource) Name() string { return s.name }

func (s *chanSource) Subscribe(context.Context) (<-chan types.Log, error) {
	return s.ch, nil
}

// recorder collects handled events in order.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) handler(tag string) Handler {
	return func(_ context.Context, e *domain.ContractEvent) {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, tag+":"+string(e.Kind))
	}
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *contracttest.Node) {
	node := contracttest.NewNode(t)
	d := NewDispatcher(DispatcherOptions{
		Decoder: node.Auction(),
		Logger:  testLogger(),
		Now:     func() time.Time { return time.UnixMilli(1_700_000_000_000) },
	})
	return d, node
}

func TestDispatcher_KindHandlersRunBeforeGeneric(t *testing.T) {
	d, node := newTestDispatcher(t)
	rec := &recorder{}

	d.OnAny(rec.handler("any"))
	d.On(domain.EventBidPlaced, rec.handler("bid"))
	d.On(domain.EventAuctionsCompleted, rec.handler("done"))

	err := d.HandleLog(context.Background(), "test", node.BidPlacedLog(10, 0, 1, testBidder, big.NewInt(1e16)))
	require.NoError(t, err)

	assert.Equal(t, []string{"bid:BidPlaced", "any:BidPlaced"}, rec.snapshot())
}

func TestDispatcher_StampsObservedAt(t *testing.T) {
	d, node := newTestDispatcher(t)

	var got *domain.ContractEvent
	d.OnAny(func(_ context.Context, e *domain.ContractEvent) { got = e })

	require.NoError(t, d.HandleLog(context.Background(), "test", node.BidPlacedLog(10, 2, 1, testBidder, big.NewInt(5))))
	require.NotNil(t, got)
	assert.Equal(t, int64(1_700_000_000_000), got.ObservedAt)
	assert.Equal(t, uint64(10), got.BlockNumber)
	assert.Equal(t, uint(2), got.LogIndex)
}

func TestDispatcher_RemovedLogsAreDelivered(t *testing.T) {
	d, node := newTestDispatcher(t)

	var got []*domain.ContractEvent
	d.OnAny(func(_ context.Context, e *domain.ContractEvent) { got = append(got, e) })

	l := node.Log(domain.EventAuctionsCompleted, 11, 0, nil)
	l.Removed = true
	require.NoError(t, d.HandleLog(context.Background(), "test", l))

	require.Len(t, got, 1)
	assert.True(t, got[0].Removed)
}

func TestDispatcher_UndecodableLog(t *testing.T) {
	d, _ := newTestDispatcher(t)
	rec := &recorder{}
	d.OnAny(rec.handler("any"))

	err := d.HandleLog(context.Background(), "test", types.Log{Address: contracttest.Address})
	assert.Error(t, err)
	assert.Empty(t, rec.snapshot())
}

func TestDispatcher_RunDispatchesUntilCancelled(t *testing.T) {
	d, node := newTestDispatcher(t)

	got := make(chan *domain.ContractEvent, 4)
	d.OnAny(func(_ context.Context, e *domain.ContractEvent) { got <- e })

	src := newChanSource("test")
	src.ch <- node.BidPlacedLog(10, 0, 1, testBidder, big.NewInt(1))
	src.ch <- types.Log{Address: contracttest.Address} // skipped
	src.ch <- node.BidPlacedLog(10, 1, 1, testBidder, big.NewInt(2))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- d.Run(ctx, src) }()

	first := <-got
	second := <-got
	assert.Equal(t, int64(1), first.Amount.Int64())
	assert.Equal(t, int64(2), second.Amount.Int64())

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestDispatcher_RunReturnsWhenSourcesClose(t *testing.T) {
	d, _ := newTestDispatcher(t)

	src := newChanSource("test")
	close(src.ch)

	err := d.Run(context.Background(), src)
	assert.ErrorIs(t, err, ErrSourcesClosed)
}

func TestDispatcher_RunRequiresSource(t *testing.T) {
	d, _ := newTestDispatcher(t)
	assert.Error(t, d.Run(context.Background()))
}

type stubInvalidator struct{ keys []string }

func (s stubInvalidator) Invalidate(*domain.ContractEvent) []string { return s.keys }

type stubNotifier struct {
	keys []string
	kind domain.EventKind
}

func (s *stubNotifier) Notify(e *domain.ContractEvent, keys []string) {
	s.kind = e.Kind
	s.keys = keys
}

func TestInvalidateHandler(t *testing.T) {
	n := &stubNotifier{}
	h := InvalidateHandler(stubInvalidator{keys: []string{"auction-state"}}, n)

	h(context.Background(), &domain.ContractEvent{Kind: domain.EventBidPlaced})

	assert.Equal(t, domain.EventBidPlaced, n.kind)
	assert.Equal(t, []string{"auction-state"}, n.keys)
}

type stubPublisher struct {
	err         error
	calls       int
	hasDeadline bool
}

func (p *stubPublisher) Publish(ctx context.Context, _ *domain.ContractEvent) error {
	p.calls++
	_, p.hasDeadline = ctx.Deadline()
	return p.err
}

func TestPublishHandler_LogsFailures(t *testing.T) {
	p := &stubPublisher{err: assert.AnError}
	h := PublishHandler(p, testLogger())

	h(context.Background(), &domain.ContractEvent{Kind: domain.EventBidPlaced})
	h(context.Background(), &domain.ContractEvent{Kind: domain.EventBidRefunded})

	assert.Equal(t, 2, p.calls)
	assert.True(t, p.hasDeadline)
}
