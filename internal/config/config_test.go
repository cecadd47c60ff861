package config

import (
	"flag"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auction-relay/internal/metadata"
)

const testContract = "0x5FbDB2315678afecb367f032d93F642f64180aa3"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultHTTPAddr, cfg.HTTPAddr)
	assert.Equal(t, metadata.DefaultGateway, cfg.IPFSGateway)
	assert.Equal(t, DefaultRestInterval, cfg.RestInterval)
	assert.Equal(t, DefaultSnapshotTTL, cfg.SnapshotTTL)
	assert.Equal(t, DefaultRPCTimeout, cfg.RPCTimeout)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	path := writeFile(t, "relay.yaml", `
rpc_url: https://sepolia.base.org
contract_address: `+testContract+`
http_addr: ":9090"
rest_interval: 3
poll_interval: 12s
positive_first_bid: true
`)
	t.Setenv("HTTP_ADDR", ":7070")
	t.Setenv("SNAPSHOT_TTL", "2s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://sepolia.base.org", cfg.RPCURL)
	assert.Equal(t, ":7070", cfg.HTTPAddr, "environment wins over the file")
	assert.Equal(t, 3, cfg.RestInterval)
	assert.Equal(t, 12*time.Second, cfg.PollInterval)
	assert.Equal(t, 2*time.Second, cfg.SnapshotTTL)
	assert.True(t, cfg.PositiveFirstBid)
	require.NoError(t, cfg.Validate())
}

func TestLoad_BadEnv(t *testing.T) {
	t.Setenv("REST_INTERVAL", "six")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadEnvFile(t *testing.T) {
	path := writeFile(t, ".env", "NATS_URL=nats://localhost:4222\nREDIS_ADDR=from-file:6379\n")
	t.Setenv("REDIS_ADDR", "from-env:6379")

	require.NoError(t, LoadEnvFile(path))
	t.Cleanup(func() { os.Unsetenv("NATS_URL") })

	assert.Equal(t, "nats://localhost:4222", os.Getenv("NATS_URL"))
	assert.Equal(t, "from-env:6379", os.Getenv("REDIS_ADDR"))

	require.NoError(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
}

func TestRegisterFlags_OverrideLoaded(t *testing.T) {
	cfg := Defaults()
	cfg.RPCURL = "http://localhost:8545"

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.RegisterFlags(fs)
	require.NoError(t, fs.Parse([]string{"-http-addr", ":1234", "-rest-interval", "2"}))

	assert.Equal(t, ":1234", cfg.HTTPAddr)
	assert.Equal(t, 2, cfg.RestInterval)
	assert.Equal(t, "http://localhost:8545", cfg.RPCURL)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Defaults()
		cfg.RPCURL = "http://localhost:8545"
		cfg.ContractAddress = testContract
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"missing rpc", func(c *Config) { c.RPCURL = "" }, true},
		{"rpc scheme", func(c *Config) { c.RPCURL = "localhost:8545" }, true},
		{"ws scheme", func(c *Config) { c.WSRPCURL = "http://localhost:8546" }, true},
		{"wss ok", func(c *Config) { c.WSRPCURL = "wss://node.example/ws" }, false},
		{"bad contract", func(c *Config) { c.ContractAddress = "0x123" }, true},
		{"zero rest interval", func(c *Config) { c.RestInterval = 0 }, true},
		{"zero ttl", func(c *Config) { c.SnapshotTTL = 0 }, true},
		{"bad floor", func(c *Config) { c.FirstBidFloorWei = "-1" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRules(t *testing.T) {
	cfg := Defaults()
	cfg.PositiveFirstBid = true
	cfg.FirstBidFloorWei = "1000000000000000"

	rules := cfg.Rules()
	assert.True(t, rules.PositiveFirstBid)
	require.NotNil(t, rules.FirstBidFloor)
	assert.Equal(t, 0, rules.FirstBidFloor.Cmp(big.NewInt(1e15)))

	defaults := Defaults()
	assert.Nil(t, defaults.Rules().FirstBidFloor)
}
