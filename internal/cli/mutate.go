package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/congo-pay/ftledger/internal/ledger"
)

// NewRegisterCommand creates the register command.
func NewRegisterCommand(opts *RootOptions) *cobra.Command {
	var deposit string

	cmd := &cobra.Command{
		Use:   "register <account>",
		Short: "Register an account so it can hold a balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, s *session) error {
				attached := s.svc.MinStorageDeposit()
				if deposit != "" {
					parsed, err := ledger.ParseAmount(deposit)
					if err != nil {
						return WrapExitError(ExitCommandError, "invalid --deposit", err)
					}
					attached = parsed
				}
				reg, err := s.svc.StorageDeposit(ctx, opts.Caller, args[0], attached)
				if err != nil {
					return err
				}
				text := fmt.Sprintf("registered %s, refund %s", reg.Account, reg.Refund)
				if !reg.Created {
					text = fmt.Sprintf("%s already registered, refund %s", reg.Account, reg.Refund)
				}
				return s.out.Success(text, reg)
			})
		},
	}

	cmd.Flags().StringVar(&deposit, "deposit", "", "attached storage deposit in raw units (default: the minimum)")
	return cmd
}

// NewTransferCommand creates the transfer command.
func NewTransferCommand(opts *RootOptions) *cobra.Command {
	var memo string

	cmd := &cobra.Command{
		Use:   "transfer <receiver> <amount>",
		Short: "Transfer tokens from the caller to receiver",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireCaller(opts); err != nil {
				return err
			}
			return run(cmd, opts, func(ctx context.Context, s *session) error {
				amount, err := s.amount(ctx, args[1])
				if err != nil {
					return err
				}
				if err := s.svc.Transfer(ctx, opts.Caller, args[0], amount, memo); err != nil {
					return err
				}
				return s.out.Success(
					fmt.Sprintf("transferred %s from %s to %s", s.render(ctx, amount), opts.Caller, args[0]),
					map[string]any{"sender_id": opts.Caller, "receiver_id": args[0], "amount": amount, "memo": memo},
				)
			})
		},
	}

	cmd.Flags().StringVar(&memo, "memo", "", "memo carried in the transfer event")
	return cmd
}

// NewMintCommand creates the mint command.
func NewMintCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mint <amount>",
		Short: "Mint new tokens to the owner (owner only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireCaller(opts); err != nil {
				return err
			}
			return run(cmd, opts, func(ctx context.Context, s *session) error {
				amount, err := s.amount(ctx, args[0])
				if err != nil {
					return err
				}
				if err := s.svc.Mint(ctx, opts.Caller, amount); err != nil {
					return err
				}
				supply, err := s.svc.TotalSupply(ctx)
				if err != nil {
					return err
				}
				return s.out.Success(
					fmt.Sprintf("minted %s, total supply %s", s.render(ctx, amount), s.render(ctx, supply)),
					map[string]any{"minted": amount, "total_supply": supply},
				)
			})
		},
	}
}

// NewRewardCommand creates the reward command.
func NewRewardCommand(opts *RootOptions) *cobra.Command {
	var feat string

	cmd := &cobra.Command{
		Use:   "reward <player> <amount>",
		Short: "Pay a player reward from the owner's balance (owner only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireCaller(opts); err != nil {
				return err
			}
			return run(cmd, opts, func(ctx context.Context, s *session) error {
				amount, err := s.amount(ctx, args[1])
				if err != nil {
					return err
				}
				if err := s.svc.RewardTransfer(ctx, opts.Caller, args[0], amount, feat); err != nil {
					return err
				}
				return s.out.Success(
					fmt.Sprintf("rewarded %s with %s", args[0], s.render(ctx, amount)),
					map[string]any{"player_id": args[0], "amount": amount, "feat": feat},
				)
			})
		},
	}

	cmd.Flags().StringVar(&feat, "feat", "", "what the reward is for")
	return cmd
}
