package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/congo-pay/ftledger/internal/config"
	"github.com/congo-pay/ftledger/internal/token"
)

// InitOptions holds flags for the init command.
type InitOptions struct {
	*RootOptions
	Genesis string
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InitOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "init --genesis <file>",
		Short: "Deploy the token from a genesis file",
		Long: `Deploy the token: the owner named in the genesis file receives the whole
initial supply. A ledger can only be initialized once.

Example:
  ftctl init --sqlite ledger.db --genesis genesis.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := config.LoadGenesis(opts.Genesis)
			if err != nil {
				return WrapExitError(ExitCommandError, "load genesis", err)
			}
			return run(cmd, opts.RootOptions, func(ctx context.Context, s *session) error {
				err := s.svc.Deploy(ctx, token.Genesis{Owner: g.Owner, TotalSupply: g.TotalSupply, Metadata: g.Metadata})
				if err != nil {
					return err
				}
				return s.out.Success(
					fmt.Sprintf("initialized %s (%s) owned by %s with supply %s", g.Metadata.Name, g.Metadata.Symbol, g.Owner, g.TotalSupply),
					map[string]any{"owner": g.Owner, "total_supply": g.TotalSupply, "metadata": g.Metadata},
				)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Genesis, "genesis", "", "genesis YAML file")
	_ = cmd.MarkFlagRequired("genesis")

	return cmd
}
