// Package proxy builds the JSON documents the UI reads from the auction
// contract. Reads fan out in parallel, go through the snapshot cache and
// are never retried.
package proxy

import (
	"errors"
	"fmt"
	"log"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"auction-relay/internal/chain"
	"auction-relay/internal/contract"
	"auction-relay/internal/metadata"
	"auction-relay/internal/phase"
	"auction-relay/internal/refresh"
	"auction-relay/internal/storage"
)

// Defaults.
const (
	DefaultRestInterval  = 6
	DefaultNFTBaseURI    = "http://localhost:3000"
	DefaultActivityLimit = 20
	MaxActivityLimit     = 200
	historyLimit         = 10
)

// Cache key endpoints.
const (
	EndpointAuctionState   = "auction-state"
	EndpointAuctionHistory = "auction-history"
	EndpointTokenURI       = "token-uri"
	EndpointUserDashboard  = "user-dashboard"
	EndpointActivity       = "activity"
	EndpointAuctionEvents  = "auction-events"
	EndpointNFTPreview     = "nft-preview"
)

var (
	// ErrInvalidTokenID is returned for a token id that is not a non-negative integer.
	ErrInvalidTokenID = errors.New("invalid tokenId")

	// ErrInvalidAddress is returned for a missing or malformed address.
	ErrInvalidAddress = errors.New("invalid address")

	// ErrJournalDisabled is returned by journal-backed reads when no store is configured.
	ErrJournalDisabled = errors.New("event journal not configured")
)

// RequiredReadError reports a failed read the response cannot be built without.
type RequiredReadError struct {
	Read string
	Err  error
}

func (e *RequiredReadError) Error() string {
	return fmt.Sprintf("required read %s: %v", e.Read, e.Err)
}

func (e *RequiredReadError) Unwrap() error {
	return e.Err
}

// Options configures the Proxy.
type Options struct {
	Logger   *log.Logger
	Cache    *refresh.Cache
	Metadata *metadata.Fetcher

	// Journal and Bids back the activity reads. Both are optional.
	Journal storage.EventStore
	Bids    storage.BidStore

	RestInterval  int64
	NFTBaseURI    string
	PublicBaseURL string
	Rules         phase.Rules

	// Now overrides the clock in tests.
	Now func() time.Time
}

// Proxy serves contract reads.
type Proxy struct {
	auction *contract.Auction
	client  chain.RPCClient

	cache    *refresh.Cache
	metadata *metadata.Fetcher
	journal  storage.EventStore
	bids     storage.BidStore

	restInterval  int64
	nftBaseURI    string
	publicBaseURL string
	rules         phase.Rules
	now           func() time.Time
	logger        *log.Logger
}

// New creates a Proxy. client must be the node the binding calls; it also
// serves balance reads.
func New(auction *contract.Auction, client chain.RPCClient, opts Options) *Proxy {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Cache == nil {
		opts.Cache = refresh.NewCache(refresh.Options{Logger: opts.Logger})
	}
	if opts.Metadata == nil {
		opts.Metadata = metadata.NewFetcher(metadata.FetcherOptions{Logger: opts.Logger})
	}
	if opts.RestInterval <= 0 {
		opts.RestInterval = DefaultRestInterval
	}
	if opts.NFTBaseURI == "" {
		opts.NFTBaseURI = DefaultNFTBaseURI
	}
	if opts.PublicBaseURL == "" {
		opts.PublicBaseURL = DefaultNFTBaseURI
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Proxy{
		auction:       auction,
		client:        client,
		cache:         opts.Cache,
		metadata:      opts.Metadata,
		journal:       opts.Journal,
		bids:          opts.Bids,
		restInterval:  opts.RestInterval,
		nftBaseURI:    strings.TrimSuffix(opts.NFTBaseURI, "/"),
		publicBaseURL: strings.TrimSuffix(opts.PublicBaseURL, "/"),
		rules:         opts.Rules,
		now:           opts.Now,
		logger:        opts.Logger,
	}
}

// Cache returns the snapshot cache shared with the invalidation path.
func (p *Proxy) Cache() *refresh.Cache {
	return p.cache
}

// ParseTokenID parses a decimal, non-negative token or auction id.
func ParseTokenID(s string) (*big.Int, error) {
	if s == "" {
		return nil, ErrInvalidTokenID
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return nil, ErrInvalidTokenID
		}
	}
	id, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, ErrInvalidTokenID
	}
	return id, nil
}

// ParseAddress parses a 0x-prefixed hex address.
func ParseAddress(s string) (common.Address, error) {
	if s == "" || !common.IsHexAddress(s) || !strings.HasPrefix(strings.ToLower(s), "0x") {
		return common.Address{}, ErrInvalidAddress
	}
	return common.HexToAddress(s), nil
}

// FormatEther renders wei as ETH with the given number of decimals.
func FormatEther(wei *big.Int, places int32) string {
	if wei == nil {
		return decimal.Zero.StringFixed(places)
	}
	return decimal.NewFromBigInt(wei, -18).StringFixed(places)
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func optBigString(v *big.Int) *string {
	if v == nil {
		return nil
	}
	s := v.String()
	return &s
}
