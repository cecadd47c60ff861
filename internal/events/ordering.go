package events

import (
	"errors"
	"sort"

	"github.com/ethereum/go-ethereum/core/types"
)

// ErrInvalidOrdering is returned when logs are not in chain order.
var ErrInvalidOrdering = errors.New("logs are not in chain order")

// SortLogs orders logs by (block_number ASC, log_index ASC).
func SortLogs(logs []types.Log) {
	sort.SliceStable(logs, func(i, j int) bool {
		return compareLogs(&logs[i], &logs[j]) < 0
	})
}

// ValidateLogOrdering returns ErrInvalidOrdering unless logs are strictly
// increasing in chain order.
func ValidateLogOrdering(logs []types.Log) error {
	for i := 1; i < len(logs); i++ {
		if compareLogs(&logs[i-1], &logs[i]) >= 0 {
			return ErrInvalidOrdering
		}
	}
	return nil
}

// compareLogs returns negative, zero or positive as a sorts before, with
// or after b. Log indexes are unique within a block.
func compareLogs(a, b *types.Log) int {
	if a.BlockNumber != b.BlockNumber {
		if a.BlockNumber < b.BlockNumber {
			return -1
		}
		return 1
	}
	if a.Index != b.Index {
		if a.Index < b.Index {
			return -1
		}
		return 1
	}
	return 0
}
