package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/congo-pay/ftledger/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	SQLitePath     string
	DatabaseURL    string
	Caller         string
	Format         string // "json" | "text"
	Display        bool
	ContractID     string
	TokenSecret    string
	StorageDeposit string
	Verbose        bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for ftctl. Flag defaults come from
// the same environment variables the API server reads.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "ftctl",
		Short: "Operate a fungible token ledger",
		Long: `ftctl reads and changes a fungible token ledger stored in SQLite or
PostgreSQL, applying the same guards as the API server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.SQLitePath != "" && opts.DatabaseURL != "" {
				return fmt.Errorf("--sqlite and --database-url are mutually exclusive")
			}
			return nil
		},
	}

	deposit := os.Getenv("STORAGE_DEPOSIT")
	if deposit == "" {
		deposit = config.DefaultStorageDeposit.String()
	}
	contractID := os.Getenv("CONTRACT_ACCOUNT_ID")
	if contractID == "" {
		contractID = config.DefaultContractID
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.SQLitePath, "sqlite", os.Getenv("SQLITE_PATH"), "SQLite database path")
	flags.StringVar(&opts.DatabaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection URL")
	flags.StringVar(&opts.Caller, "caller", "", "account the call is made as")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.BoolVar(&opts.Display, "display", false, "read and print amounts in display units")
	flags.StringVar(&opts.ContractID, "contract-id", contractID, "account the ledger service acts as")
	flags.StringVar(&opts.TokenSecret, "token-secret", os.Getenv("TOKEN_SECRET"), "secret used to sign caller tokens")
	flags.StringVar(&opts.StorageDeposit, "storage-deposit", deposit, "minimum storage deposit in raw units")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "log ledger activity to stderr")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewBalanceCommand(opts))
	cmd.AddCommand(NewSupplyCommand(opts))
	cmd.AddCommand(NewMetadataCommand(opts))
	cmd.AddCommand(NewRegisterCommand(opts))
	cmd.AddCommand(NewTransferCommand(opts))
	cmd.AddCommand(NewMintCommand(opts))
	cmd.AddCommand(NewRewardCommand(opts))
	cmd.AddCommand(NewAuditCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func requireCaller(opts *RootOptions) error {
	if opts.Caller == "" {
		return NewExitError(ExitCommandError, "--caller is required")
	}
	return nil
}
