package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/congo-pay/ftledger/internal/accounts"
	"github.com/congo-pay/ftledger/internal/auth"
)

// NewTokenCommand creates the token command, which signs a bearer token for
// calling the API as account.
func NewTokenCommand(opts *RootOptions) *cobra.Command {
	var ttl time.Duration

	cmd := &cobra.Command{
		Use:   "token <account>",
		Short: "Issue an API bearer token for an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := accounts.ValidateAccountID(args[0]); err != nil {
				return WrapExitError(ExitCommandError, "invalid account", err)
			}
			tok, err := auth.NewService(opts.TokenSecret, ttl).Issue(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "issue token", err)
			}
			out := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
			return out.Success(tok.AccessToken, tok)
		},
	}

	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
