package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"auction-relay/internal/observability"
)

// Default configuration values.
// Reads are not retried by default: a failed upstream read surfaces to the caller,
// which re-polls on its own interval.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 0
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0
)

// HTTPClient implements TxClient using HTTP JSON-RPC 2.0.
type HTTPClient struct {
	endpoint    string
	client      *http.Client
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
	requestID   atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts for transport failures.
func WithMaxRetries(n int) ClientOption {
	return func(c *HTTPClient) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// WithMaxDelay sets maximum retry delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.maxDelay = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// NewHTTPClient creates a new JSON-RPC HTTP client.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:    endpoint,
		client:      &http.Client{Timeout: DefaultTimeout},
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ TxClient = (*HTTPClient)(nil)

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is an error object returned by the node.
// Data carries revert data for failed calls when the node provides it.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// call performs a JSON-RPC call. Transport failures are retried with
// exponential backoff only when maxRetries > 0.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	start := time.Now()
	defer func() {
		observability.RecordRPCLatency(method, time.Since(start).Seconds())
	}()

	if params == nil {
		params = []interface{}{}
	}
	reqBody := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
			continue
		}

		var rpcResp rpcResponse
		if err := json.Unmarshal(respBody, &rpcResp); err != nil {
			lastErr = fmt.Errorf("unmarshal response: %w", err)
			continue
		}

		if rpcResp.Error != nil {
			// RPC errors are not retried
			return rpcResp.Error
		}

		if result != nil && rpcResp.Result != nil {
			if err := json.Unmarshal(rpcResp.Result, result); err != nil {
				return fmt.Errorf("unmarshal result: %w", err)
			}
		}

		return nil
	}

	if c.maxRetries == 0 {
		return lastErr
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

// CallContract executes eth_call against the latest block.
func (c *HTTPClient) CallContract(ctx context.Context, msg CallMsg) ([]byte, error) {
	var result hexutil.Bytes
	if err := c.call(ctx, "eth_call", []interface{}{toCallArg(msg), "latest"}, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// BalanceAt returns the wei balance of account.
func (c *HTTPClient) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	var result hexutil.Big
	if err := c.call(ctx, "eth_getBalance", []interface{}{account, "latest"}, &result); err != nil {
		return nil, err
	}
	return (*big.Int)(&result), nil
}

// BlockNumber returns the most recent block number.
func (c *HTTPClient) BlockNumber(ctx context.Context) (uint64, error) {
	var result hexutil.Uint64
	if err := c.call(ctx, "eth_blockNumber", nil, &result); err != nil {
		return 0, err
	}
	return uint64(result), nil
}

// FilterLogs executes eth_getLogs.
func (c *HTTPClient) FilterLogs(ctx context.Context, filter LogFilter) ([]types.Log, error) {
	var result []types.Log
	if err := c.call(ctx, "eth_getLogs", []interface{}{toFilterArg(filter)}, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// ChainID returns the chain ID used for EIP-155 signing.
func (c *HTTPClient) ChainID(ctx context.Context) (*big.Int, error) {
	var result hexutil.Big
	if err := c.call(ctx, "eth_chainId", nil, &result); err != nil {
		return nil, err
	}
	return (*big.Int)(&result), nil
}

// PendingNonceAt returns the account nonce including pending transactions.
func (c *HTTPClient) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	var result hexutil.Uint64
	if err := c.call(ctx, "eth_getTransactionCount", []interface{}{account, "pending"}, &result); err != nil {
		return 0, err
	}
	return uint64(result), nil
}

// SuggestGasPrice returns the node's gas price suggestion in wei.
func (c *HTTPClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	var result hexutil.Big
	if err := c.call(ctx, "eth_gasPrice", nil, &result); err != nil {
		return nil, err
	}
	return (*big.Int)(&result), nil
}

// EstimateGas executes eth_estimateGas.
func (c *HTTPClient) EstimateGas(ctx context.Context, msg CallMsg) (uint64, error) {
	var result hexutil.Uint64
	if err := c.call(ctx, "eth_estimateGas", []interface{}{toCallArg(msg)}, &result); err != nil {
		return 0, err
	}
	return uint64(result), nil
}

// SendRawTransaction submits a signed transaction and returns its hash.
func (c *HTTPClient) SendRawTransaction(ctx context.Context, raw []byte) (common.Hash, error) {
	var result common.Hash
	if err := c.call(ctx, "eth_sendRawTransaction", []interface{}{hexutil.Bytes(raw)}, &result); err != nil {
		return common.Hash{}, err
	}
	return result, nil
}

// TransactionReceipt returns nil, nil while the transaction is not yet mined.
func (c *HTTPClient) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	var result *types.Receipt
	if err := c.call(ctx, "eth_getTransactionReceipt", []interface{}{hash}, &result); err != nil {
		return nil, err
	}
	return result, nil
}
