package operator

import (
	"context"
	"errors"
	"log"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auction-relay/internal/contract/contracttest"
	"auction-relay/internal/domain"
	"auction-relay/internal/phase"
)

type staticSnapshots struct {
	snap *domain.AuctionSnapshot
	err  error
}

func (s staticSnapshots) Snapshot(context.Context) (*domain.AuctionSnapshot, error) {
	return s.snap, s.err
}

func boolPtr(v bool) *bool { return &v }

func liveSnapshot() *domain.AuctionSnapshot {
	return &domain.AuctionSnapshot{
		Current: &domain.AuctionRecord{
			AuctionID:  big.NewInt(1),
			TokenID:    big.NewInt(1),
			StartTime:  big.NewInt(1000),
			EndTime:    big.NewInt(1200),
			HighestBid: big.NewInt(1e16),
			Exists:     true,
		},
		AuctionActive:  boolPtr(true),
		GenesisStarted: boolPtr(true),
		HasStarted:     boolPtr(true),
		HasEnded:       boolPtr(false),
		CanSettle:      boolPtr(false),
	}
}

type harness struct {
	node      *contracttest.Node
	op        *Operator
	confirmed []*Tx
}

func newHarness(t *testing.T, snaps Snapshotter) *harness {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	h := &harness{node: contracttest.NewNode(t)}
	h.op, err = New(Options{
		Client:      h.node,
		Auction:     h.node.Auction(),
		Key:         key,
		Snapshots:   snaps,
		ReceiptPoll: 10 * time.Millisecond,
		OnConfirmed: func(tx *Tx, _ *types.Receipt) { h.confirmed = append(h.confirmed, tx) },
		Logger:      log.New(os.Stderr, "[operator-test] ", log.LstdFlags),
		Now:         func() time.Time { return time.Unix(1100, 0) },
	})
	require.NoError(t, err)
	return h
}

// sent decodes the i-th raw transaction submitted to the node.
func (h *harness) sent(t *testing.T, i int) *types.Transaction {
	t.Helper()
	require.Greater(t, len(h.node.Sent), i)
	var tx types.Transaction
	require.NoError(t, tx.UnmarshalBinary(h.node.Sent[i]))
	return &tx
}

func TestSettleAuction_SignsLegacyEIP155(t *testing.T) {
	h := newHarness(t, nil)
	h.node.Nonces[h.op.From()] = 7

	tx, err := h.op.SettleAuction(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(7), tx.Nonce)
	assert.Equal(t, uint64(100_000), tx.GasLimit)

	raw := h.sent(t, 0)
	assert.Equal(t, uint8(types.LegacyTxType), raw.Type())
	assert.Equal(t, tx.Hash, raw.Hash())
	require.NotNil(t, raw.To())
	assert.Equal(t, contracttest.Address, *raw.To())
	assert.Equal(t, h.node.Selector("settleAuction"), raw.Data()[:4])
	assert.Equal(t, int64(0), raw.Value().Int64())

	signer := types.NewEIP155Signer(big.NewInt(84532))
	from, err := types.Sender(signer, raw)
	require.NoError(t, err)
	assert.Equal(t, h.op.From(), from)
}

func TestUpdateDurations(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.op.UpdateAuctionDuration(ctx, 10)
	require.NoError(t, err)
	data := h.sent(t, 0).Data()
	assert.Equal(t, h.node.Selector("updateAuctionDuration"), data[:4])
	assert.Equal(t, int64(600), new(big.Int).SetBytes(data[4:]).Int64())

	_, err = h.op.UpdateRestDuration(ctx, 0)
	require.NoError(t, err)
	data = h.sent(t, 1).Data()
	assert.Equal(t, int64(3600), new(big.Int).SetBytes(data[4:]).Int64())

	_, err = h.op.UpdateAuctionDuration(ctx, 0)
	assert.ErrorIs(t, err, ErrInvalidDuration)
	assert.Len(t, h.node.Sent, 2)
}

func TestDurationConversions(t *testing.T) {
	s, err := AuctionDurationSeconds(15)
	require.NoError(t, err)
	assert.Equal(t, int64(900), s.Int64())

	_, err = AuctionDurationSeconds(-1)
	assert.ErrorIs(t, err, ErrInvalidDuration)

	assert.Equal(t, int64(3600), RestDurationSeconds(-5).Int64())
	assert.Equal(t, int64(7200), RestDurationSeconds(2).Int64())
}

func TestUpdatePayoutAddress(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.op.UpdatePayoutAddress(ctx, common.Address{})
	assert.ErrorIs(t, err, ErrZeroAddress)

	payout := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	_, err = h.op.UpdatePayoutAddress(ctx, payout)
	require.NoError(t, err)
	data := h.sent(t, 0).Data()
	assert.Equal(t, payout, common.BytesToAddress(data[4:]))
}

func TestPlaceBid_PreValidation(t *testing.T) {
	h := newHarness(t, staticSnapshots{snap: liveSnapshot()})
	ctx := context.Background()

	minimum := new(big.Int).Add(big.NewInt(1e16), phase.BidIncrement)

	tx, check, err := h.op.PlaceBid(ctx, minimum, false)
	require.NoError(t, err)
	assert.True(t, check.OK)
	assert.Equal(t, phase.Live, check.Phase)
	assert.Equal(t, minimum.String(), check.MinBid.String())
	assert.Equal(t, minimum.String(), h.sent(t, 0).Value().String())
	assert.Equal(t, minimum.String(), tx.Value.String())

	low := big.NewInt(1e16)
	_, check, err = h.op.PlaceBid(ctx, low, false)
	require.Error(t, err)
	assert.False(t, check.OK)
	assert.Contains(t, check.Reason, "below the minimum")
	assert.Len(t, h.node.Sent, 1)

	_, _, err = h.op.PlaceBid(ctx, low, true)
	require.NoError(t, err)
	assert.Len(t, h.node.Sent, 2)
}

func TestPlaceBid_NotLive(t *testing.T) {
	snap := liveSnapshot()
	snap.AuctionActive = boolPtr(false)
	snap.NextAuctionEarliestStartTime = big.NewInt(5000)
	h := newHarness(t, staticSnapshots{snap: snap})

	_, check, err := h.op.PlaceBid(context.Background(), big.NewInt(1e18), false)
	require.Error(t, err)
	assert.Equal(t, phase.Resting, check.Phase)
	assert.Empty(t, h.node.Sent)
}

func TestPlaceBid_InvalidAmount(t *testing.T) {
	h := newHarness(t, nil)
	_, _, err := h.op.PlaceBid(context.Background(), big.NewInt(-1), false)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestSend_EstimateFailureSurfaces(t *testing.T) {
	h := newHarness(t, nil)
	revert := errors.New("execution reverted: auction not ended")
	h.node.EstimateErr = revert

	_, err := h.op.SettleAuction(context.Background())
	assert.ErrorIs(t, err, revert)
	assert.Empty(t, h.node.Sent)
}

func TestWaitMined(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	tx, err := h.op.StartGenesisAuction(ctx)
	require.NoError(t, err)

	receipt, err := h.op.WaitMined(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
	require.Len(t, h.confirmed, 1)
	assert.Equal(t, "startGenesisAuction", h.confirmed[0].Method)
}

func TestWaitMined_CancelledWhilePending(t *testing.T) {
	h := newHarness(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := h.op.WaitMined(ctx, &Tx{Method: "settleAuction", Hash: common.HexToHash("0x01")})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestParsePrivateKey(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	encoded := hexutil.Encode(crypto.FromECDSA(key))

	parsed, err := ParsePrivateKey(encoded)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), crypto.PubkeyToAddress(parsed.PublicKey))

	_, err = ParsePrivateKey("0xnothex")
	assert.ErrorIs(t, err, ErrInvalidKey)
}
