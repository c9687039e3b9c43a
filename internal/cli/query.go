package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewBalanceCommand creates the balance command.
func NewBalanceCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <account>",
		Short: "Print the balance of an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, s *session) error {
				balance, err := s.svc.BalanceOf(ctx, args[0])
				if err != nil {
					return err
				}
				return s.out.Success(
					fmt.Sprintf("%s %s", args[0], s.render(ctx, balance)),
					map[string]any{"account_id": args[0], "balance": balance},
				)
			})
		},
	}
}

// NewSupplyCommand creates the supply command.
func NewSupplyCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "supply",
		Short: "Print the total supply",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, s *session) error {
				supply, err := s.svc.TotalSupply(ctx)
				if err != nil {
					return err
				}
				return s.out.Success(s.render(ctx, supply), map[string]any{"total_supply": supply})
			})
		},
	}
}

// NewMetadataCommand creates the metadata command.
func NewMetadataCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "metadata",
		Short: "Print the token metadata",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, s *session) error {
				m, err := s.svc.Metadata(ctx)
				if err != nil {
					return err
				}
				return s.out.Success(fmt.Sprintf("%s (%s) spec=%s decimals=%d", m.Name, m.Symbol, m.Spec, m.Decimals), m)
			})
		},
	}
}

// NewAuditCommand creates the audit command. It exits with ExitFailure when
// the balances do not add up to the total supply.
func NewAuditCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Check that all balances add up to the total supply",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, func(ctx context.Context, s *session) error {
				report, err := s.svc.Audit(ctx)
				if err != nil {
					return err
				}
				if !report.Balanced() {
					return NewExitError(ExitFailure, fmt.Sprintf("ledger out of balance: %d accounts sum to %s, total supply is %s",
						report.Accounts, report.Sum, report.TotalSupply))
				}
				return s.out.Success(
					fmt.Sprintf("balanced: %d accounts, total supply %s", report.Accounts, report.TotalSupply),
					map[string]any{"accounts": report.Accounts, "total_supply": report.TotalSupply, "balanced": true},
				)
			})
		},
	}
}
