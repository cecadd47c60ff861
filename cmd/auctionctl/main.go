// Package main provides auctionctl, the operator CLI for the auction
// contract: bids, settlement, owner controls and a state readout.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"auction-relay/internal/chain"
	"auction-relay/internal/config"
	"auction-relay/internal/contract"
	"auction-relay/internal/operator"
	"auction-relay/internal/proxy"
	"auction-relay/internal/refresh"
)

// app holds what every subcommand shares.
type app struct {
	configFile string
	rpcURL     string
	contract   string
	privateKey string
	wait       bool
	timeout    time.Duration

	cfg    *config.Config
	logger *log.Logger
}

func main() {
	logger := log.New(os.Stderr, "[auctionctl] ", log.LstdFlags)
	if err := config.LoadEnvFile(); err != nil {
		logger.Fatalf("Failed to load .env: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a := &app{logger: logger}
	if err := a.rootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "auctionctl",
		Short:         "Operate the rolling NFT auction contract",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", os.Getenv("CONFIG_FILE"), "YAML config file")
	flags.StringVar(&a.rpcURL, "rpc-url", "", "Node HTTP JSON-RPC endpoint (overrides RPC_URL)")
	flags.StringVar(&a.contract, "contract", "", "Auction contract address (overrides AUCTION_CONTRACT_ADDRESS)")
	flags.StringVar(&a.privateKey, "private-key", os.Getenv("PRIVATE_KEY"), "Hex private key used to sign")
	flags.BoolVar(&a.wait, "wait", true, "Wait for the transaction receipt")
	flags.DurationVar(&a.timeout, "timeout", 2*time.Minute, "Overall command timeout")

	root.AddCommand(
		a.bidCommand(),
		a.noArgCommand("settle", "Settle the ended auction", (*operator.Operator).SettleAuction),
		a.noArgCommand("start-genesis", "Start the genesis auction (owner)", (*operator.Operator).StartGenesisAuction),
		a.noArgCommand("begin-after-rest", "Start the next auction after the rest period", (*operator.Operator).BeginAuctionAfterRest),
		a.auctionDurationCommand(),
		a.restDurationCommand(),
		a.payoutCommand(),
		a.stateCommand(),
		a.phaseCommand(),
	)
	return root
}

func (a *app) loadConfig() error {
	cfg, err := config.Load(a.configFile)
	if err != nil {
		return err
	}
	if a.rpcURL != "" {
		cfg.RPCURL = a.rpcURL
	}
	if a.contract != "" {
		cfg.ContractAddress = a.contract
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	return nil
}

// reader binds the contract and a read proxy without caching across calls.
func (a *app) reader() (*chain.HTTPClient, *contract.Auction, *proxy.Proxy, error) {
	rpc := chain.NewHTTPClient(a.cfg.RPCURL, chain.WithTimeout(a.cfg.RPCTimeout))
	auction, err := contract.New(rpc, a.cfg.Contract())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("bind contract: %w", err)
	}
	p := proxy.New(auction, rpc, proxy.Options{
		Logger:        a.logger,
		Cache:         refresh.NewCache(refresh.Options{TTL: time.Second, Logger: a.logger}),
		RestInterval:  int64(a.cfg.RestInterval),
		NFTBaseURI:    a.cfg.NFTBaseURI,
		PublicBaseURL: a.cfg.PublicBaseURL,
		Rules:         a.cfg.Rules(),
	})
	return rpc, auction, p, nil
}

func (a *app) operator() (*operator.Operator, error) {
	if a.privateKey == "" {
		return nil, errors.New("--private-key or PRIVATE_KEY is required")
	}
	key, err := operator.ParsePrivateKey(a.privateKey)
	if err != nil {
		return nil, err
	}
	rpc, auction, p, err := a.reader()
	if err != nil {
		return nil, err
	}
	return operator.New(operator.Options{
		Client:    rpc,
		Auction:   auction,
		Key:       key,
		Snapshots: p,
		Rules:     a.cfg.Rules(),
		OnConfirmed: func(tx *operator.Tx, r *types.Receipt) {
			a.logger.Printf("%s confirmed in block %s (gas used %d)", tx.Method, r.BlockNumber, r.GasUsed)
		},
		Logger: a.logger,
	})
}

// submit runs send under the command timeout and, when --wait is set,
// waits for the receipt.
func (a *app) submit(cmd *cobra.Command, send func(ctx context.Context, op *operator.Operator) (*operator.Tx, error)) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout)
	defer cancel()

	op, err := a.operator()
	if err != nil {
		return err
	}
	tx, err := send(ctx, op)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s sent from %s: %s\n", tx.Method, tx.From.Hex(), tx.Hash.Hex())

	if !a.wait {
		return nil
	}
	if _, err := op.WaitMined(ctx, tx); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s confirmed\n", tx.Method)
	return nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseEther converts a decimal ETH amount to wei. More than 18 decimals
// is rejected rather than rounded.
func parseEther(s string) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid ETH amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("invalid ETH amount %q: negative", s)
	}
	wei := d.Shift(18)
	if !wei.Equal(wei.Truncate(0)) {
		return nil, fmt.Errorf("invalid ETH amount %q: more than 18 decimals", s)
	}
	return wei.BigInt(), nil
}
