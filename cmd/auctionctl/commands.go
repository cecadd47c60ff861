package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"auction-relay/internal/operator"
	"auction-relay/internal/proxy"
)

func (a *app) bidCommand() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "bid <eth>",
		Short: "Place a bid on the live auction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := parseEther(args[0])
			if err != nil {
				return err
			}
			return a.submit(cmd, func(ctx context.Context, op *operator.Operator) (*operator.Tx, error) {
				tx, check, err := op.PlaceBid(ctx, amount, force)
				if check != nil && check.MinBid != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "phase %s, minimum bid %s ETH\n",
						check.Phase, proxy.FormatEther(check.MinBid, 4))
				}
				return tx, err
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Send even when the bid fails the local check")
	return cmd
}

func (a *app) noArgCommand(use, short string, action func(*operator.Operator, context.Context) (*operator.Tx, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.submit(cmd, func(ctx context.Context, op *operator.Operator) (*operator.Tx, error) {
				return action(op, ctx)
			})
		},
	}
}

func (a *app) auctionDurationCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-auction-duration <minutes>",
		Short: "Set the auction length in minutes (owner)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			minutes, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid minutes %q: %w", args[0], err)
			}
			return a.submit(cmd, func(ctx context.Context, op *operator.Operator) (*operator.Tx, error) {
				return op.UpdateAuctionDuration(ctx, minutes)
			})
		},
	}
}

func (a *app) restDurationCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-rest-duration <hours>",
		Short: "Set the rest length in hours, at least one (owner)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hours, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid hours %q: %w", args[0], err)
			}
			return a.submit(cmd, func(ctx context.Context, op *operator.Operator) (*operator.Tx, error) {
				return op.UpdateRestDuration(ctx, hours)
			})
		},
	}
}

func (a *app) payoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "set-payout <address>",
		Short: "Set the payout address (owner)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !common.IsHexAddress(args[0]) {
				return fmt.Errorf("invalid address %q", args[0])
			}
			payout := common.HexToAddress(args[0])
			return a.submit(cmd, func(ctx context.Context, op *operator.Operator) (*operator.Tx, error) {
				return op.UpdatePayoutAddress(ctx, payout)
			})
		},
	}
}

func (a *app) stateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print the current auction state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout)
			defer cancel()

			_, _, p, err := a.reader()
			if err != nil {
				return err
			}
			state, err := p.AuctionState(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, state)
		},
	}
}

func (a *app) phaseCommand() *cobra.Command {
	var viewer string
	cmd := &cobra.Command{
		Use:   "phase",
		Short: "Print the projected auction phase and available actions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), a.timeout)
			defer cancel()

			_, _, p, err := a.reader()
			if err != nil {
				return err
			}
			view, err := p.Phase(ctx, viewer)
			if err != nil {
				return err
			}
			return printJSON(cmd, view)
		},
	}
	cmd.Flags().StringVar(&viewer, "viewer", "", "Address to project owner and bidder actions for")
	return cmd
}
