package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"sync"
)

// Ledger owns a Store and is the only writer to it. Every mutation validates
// all of its guards against staged values and then commits a single
// Changeset, so a failed operation leaves the store untouched.
type Ledger struct {
	mu     sync.Mutex
	store  Store
	logger *slog.Logger
}

// New wraps store. The caller must not write to store directly afterwards.
func New(store Store, logger *slog.Logger) *Ledger {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Ledger{store: store, logger: logger}
}

// Initialize constructs the ledger: owner is registered with the whole
// initial supply. It fails with ErrAlreadyInitialized on an existing ledger.
func (l *Ledger) Initialize(ctx context.Context, genesis Genesis) error {
	if genesis.Owner == "" {
		return fmt.Errorf("initialize: owner is required")
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.store.Init(ctx, genesis); err != nil {
		return err
	}
	l.logger.Info("ledger initialized",
		slog.String("owner", genesis.Owner),
		slog.String("total_supply", genesis.TotalSupply.String()))
	return nil
}

// Deposit credits amount to a registered account.
func (l *Ledger) Deposit(ctx context.Context, account string, amount Amount) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	p := newPending(ctx, l.store)
	if err := p.credit(account, amount); err != nil {
		return err
	}
	return l.commit(ctx, "deposit", p.changeset())
}

// Withdraw debits amount from a registered account.
func (l *Ledger) Withdraw(ctx context.Context, account string, amount Amount) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	p := newPending(ctx, l.store)
	if err := p.debit(account, amount); err != nil {
		return err
	}
	return l.commit(ctx, "withdraw", p.changeset())
}

// Transfer moves a positive amount between two distinct registered accounts.
// Both legs are validated before either is written.
func (l *Ledger) Transfer(ctx context.Context, sender, receiver string, amount Amount) error {
	if err := requireDistinct(sender, receiver); err != nil {
		return err
	}
	if err := requirePositive(amount); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	p := newPending(ctx, l.store)
	if err := p.debit(sender, amount); err != nil {
		return err
	}
	if err := p.credit(receiver, amount); err != nil {
		return err
	}
	return l.commit(ctx, "transfer", p.changeset())
}

// Mint increases the total supply and the owner's balance by the same
// amount. Only the owner may call it.
func (l *Ledger) Mint(ctx context.Context, caller string, amount Amount) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, err := l.store.State(ctx)
	if err != nil {
		return err
	}
	if err := requireOwner(state, caller); err != nil {
		return err
	}

	newTotal, ok := state.TotalSupply.CheckedAdd(amount)
	if !ok {
		return ErrSupplyOverflow
	}

	p := newPending(ctx, l.store)
	if err := p.credit(state.Owner, amount); err != nil {
		return err
	}
	changes := p.changeset()
	changes.Supply = &SupplyChange{Previous: state.TotalSupply, Next: newTotal}
	return l.commit(ctx, "mint", changes)
}

// RewardTransfer pays amount from the owner's balance to recipient. memo is
// carried for observers and has no effect on balances.
func (l *Ledger) RewardTransfer(ctx context.Context, caller, recipient string, amount Amount, memo string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, err := l.store.State(ctx)
	if err != nil {
		return err
	}
	if err := requireOwner(state, caller); err != nil {
		return err
	}
	if err := requirePositive(amount); err != nil {
		return err
	}

	p := newPending(ctx, l.store)
	if err := p.debit(state.Owner, amount); err != nil {
		return err
	}
	if err := p.credit(recipient, amount); err != nil {
		return err
	}
	if err := l.commit(ctx, "reward_transfer", p.changeset()); err != nil {
		return err
	}
	l.logger.DebugContext(ctx, "reward memo", slog.String("recipient", recipient), slog.String("memo", memo))
	return nil
}

// Register creates a zero balance entry for account. It reports false when
// the account was already registered.
func (l *Ledger) Register(ctx context.Context, account string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.store.Register(ctx, account)
}

// Unregister removes the entry of an account whose balance is zero. The
// owner's entry always stays.
func (l *Ledger) Unregister(ctx context.Context, account string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, err := l.store.State(ctx)
	switch {
	case errors.Is(err, ErrNotInitialized):
	case err != nil:
		return err
	case state.Owner == account:
		return fmt.Errorf("%w: %s", ErrOwnerAccount, account)
	}
	return l.store.Unregister(ctx, account)
}

// IsRegistered reports whether account has a ledger entry.
func (l *Ledger) IsRegistered(ctx context.Context, account string) (bool, error) {
	_, ok, err := l.store.Balance(ctx, account)
	return ok, err
}

// BalanceOf returns the balance of account, or zero when it is not registered.
func (l *Ledger) BalanceOf(ctx context.Context, account string) (Amount, error) {
	balance, _, err := l.store.Balance(ctx, account)
	if err != nil {
		return Amount{}, err
	}
	return balance, nil
}

// TotalSupply returns the current total supply.
func (l *Ledger) TotalSupply(ctx context.Context) (Amount, error) {
	state, err := l.store.State(ctx)
	if err != nil {
		return Amount{}, err
	}
	return state.TotalSupply, nil
}

// Owner returns the privileged owner account.
func (l *Ledger) Owner(ctx context.Context) (string, error) {
	state, err := l.store.State(ctx)
	if err != nil {
		return "", err
	}
	return state.Owner, nil
}

// Metadata returns the bytes stored at construction.
func (l *Ledger) Metadata(ctx context.Context) ([]byte, error) {
	return l.store.Metadata(ctx)
}

// AuditReport compares the recorded total supply with the sum of balances.
type AuditReport struct {
	Accounts    int
	TotalSupply Amount
	Sum         *big.Int
}

// Balanced reports whether the conservation invariant holds.
func (r AuditReport) Balanced() bool {
	return r.Sum != nil && r.Sum.Cmp(r.TotalSupply.Big()) == 0
}

// Audit re-sums every balance. Operations never call it; it exists for
// operators and tests.
func (l *Ledger) Audit(ctx context.Context) (AuditReport, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, err := l.store.State(ctx)
	if err != nil {
		return AuditReport{}, err
	}
	entries, err := l.store.Accounts(ctx)
	if err != nil {
		return AuditReport{}, err
	}
	sum := new(big.Int)
	for _, e := range entries {
		sum.Add(sum, e.Balance.Big())
	}
	return AuditReport{Accounts: len(entries), TotalSupply: state.TotalSupply, Sum: sum}, nil
}

func (l *Ledger) commit(ctx context.Context, op string, changes Changeset) error {
	if len(changes.Balances) == 0 && changes.Supply == nil {
		return nil
	}
	if err := l.store.Commit(ctx, changes); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if l.logger.Enabled(ctx, slog.LevelDebug) {
		attrs := []any{slog.String("op", op)}
		for _, c := range changes.Balances {
			attrs = append(attrs, slog.Group(c.Account,
				slog.String("from", c.Previous.String()),
				slog.String("to", c.Next.String())))
		}
		if changes.Supply != nil {
			attrs = append(attrs, slog.String("total_supply", changes.Supply.Next.String()))
		}
		l.logger.DebugContext(ctx, "ledger commit", attrs...)
	}
	return nil
}
