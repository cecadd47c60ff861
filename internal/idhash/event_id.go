package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// EventID computes a deterministic event_id using SHA256.
// Formula: SHA256(tx_hash|log_index)
// Returns hex-encoded hash (64 characters).
func EventID(txHash common.Hash, logIndex uint) string {
	data := fmt.Sprintf("%s|%d", txHash.Hex(), logIndex)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// SubscriberID computes a stable identifier for a named consumer of a
// contract's event stream, used as the cursor key.
// Formula: SHA256(consumer|contract_address)
func SubscriberID(consumer string, contract common.Address) string {
	data := fmt.Sprintf("%s|%s", consumer, contract.Hex())

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
