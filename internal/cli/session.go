package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/congo-pay/ftledger/internal/accounts"
	"github.com/congo-pay/ftledger/internal/events"
	"github.com/congo-pay/ftledger/internal/infra"
	"github.com/congo-pay/ftledger/internal/ledger"
	"github.com/congo-pay/ftledger/internal/logging"
	"github.com/congo-pay/ftledger/internal/token"
)

// session is one command's view of the ledger.
type session struct {
	opts    *RootOptions
	svc     *token.Service
	backend infra.LedgerBackend
	out     *OutputFormatter
}

func openSession(ctx context.Context, cmd *cobra.Command, opts *RootOptions) (*session, error) {
	if opts.SQLitePath == "" && opts.DatabaseURL == "" {
		return nil, NewExitError(ExitCommandError, "one of --sqlite or --database-url is required")
	}
	minDeposit, err := ledger.ParseAmount(opts.StorageDeposit)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid --storage-deposit", err)
	}

	backend, err := infra.OpenLedger(ctx, opts.DatabaseURL, opts.SQLitePath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "open ledger", err)
	}

	var logOut io.Writer = io.Discard
	if opts.Verbose {
		logOut = cmd.ErrOrStderr()
	}
	logger := logging.NewWithWriter(logOut, "debug", "text")

	l := ledger.New(backend.Store, logger)
	svc := token.NewService(l, accounts.NewService(l, minDeposit, logger), events.NewLogEmitter(logger), opts.ContractID, logger)

	return &session{
		opts:    opts,
		svc:     svc,
		backend: backend,
		out:     &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()},
	}, nil
}

func (s *session) Close() error {
	return s.backend.Close()
}

// amount parses a raw amount, or a display amount when --display is set.
func (s *session) amount(ctx context.Context, raw string) (ledger.Amount, error) {
	if !s.opts.Display {
		return ledger.ParseAmount(raw)
	}
	m, err := s.svc.Metadata(ctx)
	if err != nil {
		return ledger.Amount{}, err
	}
	return m.ParseDisplay(raw)
}

// render formats an amount for text output.
func (s *session) render(ctx context.Context, a ledger.Amount) string {
	if s.opts.Display {
		if m, err := s.svc.Metadata(ctx); err == nil {
			return m.Format(a)
		}
	}
	return a.String()
}

// run opens a session, calls fn and closes the session. Errors returned by
// fn are reported through the formatter.
func run(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, s *session) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := openSession(ctx, cmd, opts)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := fn(ctx, s); err != nil {
		return s.out.Failure(err)
	}
	return nil
}
