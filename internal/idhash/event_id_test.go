package idhash

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestEventID(t *testing.T) {
	tests := []struct {
		name     string
		txHash   common.Hash
		logIndex uint
	}{
		{
			name:     "first log",
			txHash:   common.HexToHash("0xabc"),
			logIndex: 0,
		},
		{
			name:     "later log",
			txHash:   common.HexToHash("0xdef"),
			logIndex: 7,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EventID(tt.txHash, tt.logIndex)
			if len(got) != 64 {
				t.Errorf("EventID() length = %d, want 64", len(got))
			}

			got2 := EventID(tt.txHash, tt.logIndex)
			if got != got2 {
				t.Errorf("EventID() not deterministic: %s != %s", got, got2)
			}
		})
	}
}

func TestEventID_DifferentInputs(t *testing.T) {
	base := EventID(common.HexToHash("0x01"), 0)

	if base == EventID(common.HexToHash("0x02"), 0) {
		t.Error("Different tx hash should produce different hash")
	}
	if base == EventID(common.HexToHash("0x01"), 1) {
		t.Error("Different log index should produce different hash")
	}
}

func TestSubscriberID(t *testing.T) {
	contract := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	a := SubscriberID("poller", contract)
	if a != SubscriberID("poller", contract) {
		t.Error("SubscriberID() not deterministic")
	}
	if a == SubscriberID("backfill", contract) {
		t.Error("Different consumer should produce different hash")
	}
	if a == SubscriberID("poller", common.HexToAddress("0xbb")) {
		t.Error("Different contract should produce different hash")
	}
}
