package ledger

import (
	"context"
	"errors"
)

var (
	// ErrUnregisteredAccount occurs when a debit or credit targets an account
	// that has no ledger entry.
	ErrUnregisteredAccount = errors.New("the account is not registered")

	// ErrBalanceOverflow indicates a credit would exceed MaxAmount.
	ErrBalanceOverflow = errors.New("balance overflow")

	// ErrInsufficientBalance indicates a debit would take a balance below zero.
	ErrInsufficientBalance = errors.New("the account doesn't have enough balance")

	// ErrSupplyOverflow indicates a mint would exceed MaxAmount total supply.
	ErrSupplyOverflow = errors.New("total supply overflow")

	// ErrInvalidAmount is returned when a transfer-class operation receives zero.
	ErrInvalidAmount = errors.New("the amount should be a positive number")

	// ErrSameAccount is returned when sender and receiver are the same account.
	ErrSameAccount = errors.New("sender and receiver should be different")

	// ErrNotOwner is returned when a privileged operation is called by anyone
	// other than the owner.
	ErrNotOwner = errors.New("it is an owner only method")

	// ErrInvalidAmountFormat is returned for amounts that are not canonical
	// unsigned 128-bit decimals.
	ErrInvalidAmountFormat = errors.New("invalid amount")

	// ErrNotInitialized is returned before the ledger has been constructed.
	ErrNotInitialized = errors.New("the ledger is not initialized")

	// ErrAlreadyInitialized is returned by a second construction attempt.
	ErrAlreadyInitialized = errors.New("already initialized")

	// ErrNonZeroBalance prevents removing an entry that still holds tokens.
	ErrNonZeroBalance = errors.New("the account has a positive balance")

	// ErrOwnerAccount prevents removing the owner's entry, which Mint credits.
	ErrOwnerAccount = errors.New("the owner account cannot be unregistered")

	// ErrConcurrentModification indicates the stored values changed between
	// validation and commit. Nothing was applied.
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// State holds the ledger scalars persisted next to the balance entries.
type State struct {
	Owner       string
	TotalSupply Amount
}

// Genesis carries everything written when the ledger is constructed. The
// owner receives the whole initial supply. Metadata is stored verbatim for
// collaborators and never interpreted by the ledger.
type Genesis struct {
	Owner       string
	TotalSupply Amount
	Metadata    []byte
}

// Entry is one account balance.
type Entry struct {
	Account string
	Balance Amount
}

// BalanceChange replaces Previous with Next for one account.
type BalanceChange struct {
	Account  string
	Previous Amount
	Next     Amount
}

// SupplyChange replaces the total supply.
type SupplyChange struct {
	Previous Amount
	Next     Amount
}

// Changeset is the validated outcome of one operation. A store applies it
// entirely or not at all.
type Changeset struct {
	Balances []BalanceChange
	Supply   *SupplyChange
}

// Store defines the contract implemented by ledger backends (memory,
// PostgreSQL, SQLite). Only *Ledger writes to a Store.
type Store interface {
	Init(ctx context.Context, genesis Genesis) error
	State(ctx context.Context) (State, error)
	Metadata(ctx context.Context) ([]byte, error)
	Balance(ctx context.Context, account string) (Amount, bool, error)
	Register(ctx context.Context, account string) (bool, error)
	Unregister(ctx context.Context, account string) error
	Commit(ctx context.Context, changes Changeset) error
	Accounts(ctx context.Context) ([]Entry, error)
}
