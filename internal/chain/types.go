package chain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// LogFilter selects logs for eth_getLogs and eth_subscribe.
type LogFilter struct {
	Addresses []common.Address
	// Topics is positional: Topics[0] matches topic0 (the event ID), and so on.
	// An empty position matches anything.
	Topics    [][]common.Hash
	FromBlock *big.Int // nil means latest
	ToBlock   *big.Int // nil means latest
}

// toFilterArg builds the JSON object accepted by eth_getLogs.
func toFilterArg(f LogFilter) map[string]interface{} {
	arg := subscriptionArg(f)
	if f.FromBlock == nil {
		arg["fromBlock"] = "latest"
	} else {
		arg["fromBlock"] = hexutil.EncodeBig(f.FromBlock)
	}
	if f.ToBlock == nil {
		arg["toBlock"] = "latest"
	} else {
		arg["toBlock"] = hexutil.EncodeBig(f.ToBlock)
	}
	return arg
}

// subscriptionArg builds the filter object for eth_subscribe("logs", ...).
// Block bounds are not valid for subscriptions.
func subscriptionArg(f LogFilter) map[string]interface{} {
	arg := map[string]interface{}{}
	if len(f.Addresses) > 0 {
		arg["address"] = f.Addresses
	}
	if len(f.Topics) > 0 {
		topics := make([]interface{}, len(f.Topics))
		for i, position := range f.Topics {
			switch len(position) {
			case 0:
				topics[i] = nil
			case 1:
				topics[i] = position[0]
			default:
				topics[i] = position
			}
		}
		arg["topics"] = topics
	}
	return arg
}

// callArg is the transaction-call object for eth_call and eth_estimateGas.
type callArg struct {
	From  *common.Address `json:"from,omitempty"`
	To    *common.Address `json:"to"`
	Data  hexutil.Bytes   `json:"data,omitempty"`
	Value *hexutil.Big    `json:"value,omitempty"`
}

func toCallArg(msg CallMsg) callArg {
	to := msg.To
	arg := callArg{
		From: msg.From,
		To:   &to,
		Data: msg.Data,
	}
	if msg.Value != nil {
		arg.Value = (*hexutil.Big)(msg.Value)
	}
	return arg
}
