// Package config loads server and CLI settings from defaults, an optional
// YAML file, a .env file and the environment, in increasing precedence.
// Command-line flags bind to the loaded values and win over all of them.
package config

import (
	"errors"
	"flag"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"auction-relay/internal/metadata"
	"auction-relay/internal/phase"
)

// Defaults.
const (
	DefaultHTTPAddr      = ":8080"
	DefaultNFTBaseURI    = "http://localhost:3000"
	DefaultPublicBaseURL = "http://localhost:8080"
	DefaultRestInterval  = 6
	DefaultSnapshotTTL   = 5 * time.Second
	DefaultPollInterval  = 4 * time.Second
	DefaultRPCTimeout    = 30 * time.Second
)

// Config holds every setting of the relay server.
type Config struct {
	RPCURL                 string `yaml:"rpc_url"`
	WSRPCURL               string `yaml:"ws_rpc_url"`
	ContractAddress        string `yaml:"contract_address"`
	IPFSGateway            string `yaml:"ipfs_gateway"`
	NFTBaseURI             string `yaml:"nft_base_uri"`
	PublicBaseURL          string `yaml:"public_base_url"`
	WalletConnectProjectID string `yaml:"walletconnect_project_id"`
	HTTPAddr               string `yaml:"http_addr"`

	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	NATSURL       string `yaml:"nats_url"`

	PositiveFirstBid bool   `yaml:"positive_first_bid"`
	FirstBidFloorWei string `yaml:"first_bid_floor_wei"`
	RestInterval     int    `yaml:"rest_interval"`

	SnapshotTTL  time.Duration `yaml:"snapshot_ttl"`
	PollInterval time.Duration `yaml:"poll_interval"`
	RPCTimeout   time.Duration `yaml:"rpc_timeout"`
	StartBlock   uint64        `yaml:"start_block"`
}

// Defaults returns a Config with every optional value filled in.
func Defaults() Config {
	return Config{
		IPFSGateway:   metadata.DefaultGateway,
		NFTBaseURI:    DefaultNFTBaseURI,
		PublicBaseURL: DefaultPublicBaseURL,
		HTTPAddr:      DefaultHTTPAddr,
		RestInterval:  DefaultRestInterval,
		SnapshotTTL:   DefaultSnapshotTTL,
		PollInterval:  DefaultPollInterval,
		RPCTimeout:    DefaultRPCTimeout,
	}
}

// LoadEnvFile loads variables from the given .env files (default ".env")
// without overriding variables already set. Missing files are ignored.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// Load builds a Config from defaults, the YAML file at path (when not
// empty) and the environment. It does not validate; flags may still
// change values.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := overrideWithEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// overrideWithEnv applies every set environment variable.
func overrideWithEnv(cfg *Config) error {
	strs := map[string]*string{
		"RPC_URL":                  &cfg.RPCURL,
		"WS_RPC_URL":               &cfg.WSRPCURL,
		"AUCTION_CONTRACT_ADDRESS": &cfg.ContractAddress,
		"IPFS_GATEWAY":             &cfg.IPFSGateway,
		"NFT_BASE_URI":             &cfg.NFTBaseURI,
		"PUBLIC_BASE_URL":          &cfg.PublicBaseURL,
		"WALLETCONNECT_PROJECT_ID": &cfg.WalletConnectProjectID,
		"HTTP_ADDR":                &cfg.HTTPAddr,
		"POSTGRES_DSN":             &cfg.PostgresDSN,
		"CLICKHOUSE_DSN":           &cfg.ClickhouseDSN,
		"REDIS_ADDR":               &cfg.RedisAddr,
		"REDIS_PASSWORD":           &cfg.RedisPassword,
		"NATS_URL":                 &cfg.NATSURL,
		"FIRST_BID_FLOOR_WEI":      &cfg.FirstBidFloorWei,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv("POSITIVE_FIRST_BID"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("POSITIVE_FIRST_BID: %w", err)
		}
		cfg.PositiveFirstBid = b
	}
	if v, ok := os.LookupEnv("REST_INTERVAL"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("REST_INTERVAL: %w", err)
		}
		cfg.RestInterval = n
	}
	if v, ok := os.LookupEnv("START_BLOCK"); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("START_BLOCK: %w", err)
		}
		cfg.StartBlock = n
	}

	durations := map[string]*time.Duration{
		"SNAPSHOT_TTL":  &cfg.SnapshotTTL,
		"POLL_INTERVAL": &cfg.PollInterval,
		"RPC_TIMEOUT":   &cfg.RPCTimeout,
	}
	for key, dst := range durations {
		if v, ok := os.LookupEnv(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = d
		}
	}
	return nil
}

// RegisterFlags binds server flags to cfg, using the current values as defaults.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.RPCURL, "rpc-url", c.RPCURL, "Node HTTP JSON-RPC endpoint")
	fs.StringVar(&c.WSRPCURL, "ws-rpc-url", c.WSRPCURL, "Node WebSocket endpoint (empty selects eth_getLogs polling)")
	fs.StringVar(&c.ContractAddress, "contract", c.ContractAddress, "Auction contract address")
	fs.StringVar(&c.IPFSGateway, "ipfs-gateway", c.IPFSGateway, "IPFS HTTP gateway")
	fs.StringVar(&c.NFTBaseURI, "nft-base-uri", c.NFTBaseURI, "Base URI of hosted token metadata")
	fs.StringVar(&c.PublicBaseURL, "public-base-url", c.PublicBaseURL, "Public URL of this server")
	fs.StringVar(&c.HTTPAddr, "http-addr", c.HTTPAddr, "HTTP listen address")
	fs.StringVar(&c.PostgresDSN, "postgres-dsn", c.PostgresDSN, "PostgreSQL connection string (empty uses memory)")
	fs.StringVar(&c.ClickhouseDSN, "clickhouse-dsn", c.ClickhouseDSN, "ClickHouse connection string (empty uses memory)")
	fs.StringVar(&c.RedisAddr, "redis-addr", c.RedisAddr, "Redis address for the event relay")
	fs.StringVar(&c.NATSURL, "nats-url", c.NATSURL, "NATS URL for the event relay")
	fs.BoolVar(&c.PositiveFirstBid, "positive-first-bid", c.PositiveFirstBid, "Contract rejects a zero first bid")
	fs.IntVar(&c.RestInterval, "rest-interval", c.RestInterval, "Auctions between rest periods")
	fs.DurationVar(&c.SnapshotTTL, "snapshot-ttl", c.SnapshotTTL, "Freshness of cached reads")
	fs.DurationVar(&c.PollInterval, "poll-interval", c.PollInterval, "eth_getLogs polling interval")
	fs.DurationVar(&c.RPCTimeout, "rpc-timeout", c.RPCTimeout, "HTTP JSON-RPC timeout")
	fs.Uint64Var(&c.StartBlock, "start-block", c.StartBlock, "First block to poll when no cursor exists")
}

// Validate checks required values and formats.
func (c *Config) Validate() error {
	if c.RPCURL == "" {
		return errors.New("RPC_URL is required")
	}
	if !hasScheme(c.RPCURL, "http://", "https://") {
		return fmt.Errorf("invalid RPC URL: %s", c.RPCURL)
	}
	if c.WSRPCURL != "" && !hasScheme(c.WSRPCURL, "ws://", "wss://") {
		return fmt.Errorf("invalid WebSocket RPC URL: %s", c.WSRPCURL)
	}
	if !common.IsHexAddress(c.ContractAddress) {
		return fmt.Errorf("invalid AUCTION_CONTRACT_ADDRESS: %q", c.ContractAddress)
	}
	if c.RestInterval <= 0 {
		return errors.New("rest interval must be positive")
	}
	if c.SnapshotTTL <= 0 || c.PollInterval <= 0 || c.RPCTimeout <= 0 {
		return errors.New("durations must be positive")
	}
	if _, err := c.firstBidFloor(); err != nil {
		return err
	}
	return nil
}

// Contract returns the parsed contract address.
func (c *Config) Contract() common.Address {
	return common.HexToAddress(c.ContractAddress)
}

// Rules returns the bidding rules of the deployed contract variant.
func (c *Config) Rules() phase.Rules {
	floor, _ := c.firstBidFloor()
	return phase.Rules{PositiveFirstBid: c.PositiveFirstBid, FirstBidFloor: floor}
}

func (c *Config) firstBidFloor() (*big.Int, error) {
	if c.FirstBidFloorWei == "" {
		return nil, nil
	}
	floor, ok := new(big.Int).SetString(c.FirstBidFloorWei, 10)
	if !ok || floor.Sign() < 0 {
		return nil, fmt.Errorf("invalid first bid floor: %q", c.FirstBidFloorWei)
	}
	return floor, nil
}

func hasScheme(s string, schemes ...string) bool {
	lower := strings.ToLower(s)
	for _, scheme := range schemes {
		if strings.HasPrefix(lower, scheme) {
			return true
		}
	}
	return false
}
