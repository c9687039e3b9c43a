// Package token exposes the ledger as a fungible token contract: every
// method takes the calling account explicitly and committed movements are
// reported as events.
package token

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/congo-pay/ftledger/internal/accounts"
	"github.com/congo-pay/ftledger/internal/events"
	"github.com/congo-pay/ftledger/internal/ledger"
	"github.com/congo-pay/ftledger/internal/metadata"
)

// ErrPrivateMethod is returned when an internal method is called by anyone
// other than the contract account itself.
var ErrPrivateMethod = errors.New("method is private")

// Genesis is the construction input of a token.
type Genesis struct {
	Owner       string
	TotalSupply ledger.Amount
	Metadata    metadata.Metadata
}

// Service is the token contract facade.
type Service struct {
	ledger     *ledger.Ledger
	accounts   *accounts.Service
	emitter    events.Emitter
	contractID string
	logger     *slog.Logger
}

// NewService wires the facade. contractID is the account the service acts
// as; only it may call the internal methods.
func NewService(l *ledger.Ledger, acc *accounts.Service, emitter events.Emitter, contractID string, logger *slog.Logger) *Service {
	if emitter == nil {
		emitter = events.Nop{}
	}
	return &Service{ledger: l, accounts: acc, emitter: emitter, contractID: contractID, logger: logger}
}

// ContractID returns the account the service acts as.
func (s *Service) ContractID() string {
	return s.contractID
}

// Deploy constructs the token. It fails with ledger.ErrAlreadyInitialized
// when state already exists.
func (s *Service) Deploy(ctx context.Context, g Genesis) error {
	if err := accounts.ValidateAccountID(g.Owner); err != nil {
		return err
	}
	raw, err := g.Metadata.Encode()
	if err != nil {
		return err
	}
	if err := s.ledger.Initialize(ctx, ledger.Genesis{Owner: g.Owner, TotalSupply: g.TotalSupply, Metadata: raw}); err != nil {
		return err
	}
	if !g.TotalSupply.IsZero() {
		s.emit(ctx, events.Mint(g.Owner, g.TotalSupply, "new tokens are minted"))
	}
	return nil
}

// Transfer moves amount from caller to receiver. memo is only carried into
// the emitted event.
func (s *Service) Transfer(ctx context.Context, caller, receiver string, amount ledger.Amount, memo string) error {
	if err := s.ledger.Transfer(ctx, caller, receiver, amount); err != nil {
		return err
	}
	s.emit(ctx, events.Transfer(caller, receiver, amount, memo))
	return nil
}

// Mint creates amount new tokens on the owner's balance.
func (s *Service) Mint(ctx context.Context, caller string, amount ledger.Amount) error {
	if err := s.ledger.Mint(ctx, caller, amount); err != nil {
		return err
	}
	s.emit(ctx, events.Mint(caller, amount, ""))
	return nil
}

// RewardTransfer pays a player from the owner's balance. feat describes what
// the reward is for.
func (s *Service) RewardTransfer(ctx context.Context, caller, player string, amount ledger.Amount, feat string) error {
	if err := accounts.ValidateAccountID(player); err != nil {
		return err
	}
	if err := s.ledger.RewardTransfer(ctx, caller, player, amount, feat); err != nil {
		return err
	}
	s.emit(ctx, events.Transfer(caller, player, amount, feat))
	return nil
}

// Deposit credits account. Internal: only the contract account may call it.
func (s *Service) Deposit(ctx context.Context, caller, account string, amount ledger.Amount) error {
	if err := s.requireSelf(caller); err != nil {
		return err
	}
	return s.ledger.Deposit(ctx, account, amount)
}

// Withdraw debits account. Internal: only the contract account may call it.
func (s *Service) Withdraw(ctx context.Context, caller, account string, amount ledger.Amount) error {
	if err := s.requireSelf(caller); err != nil {
		return err
	}
	return s.ledger.Withdraw(ctx, account, amount)
}

// BalanceOf returns the balance of account, zero when it is not registered.
func (s *Service) BalanceOf(ctx context.Context, account string) (ledger.Amount, error) {
	return s.ledger.BalanceOf(ctx, account)
}

// TotalSupply returns the current total supply.
func (s *Service) TotalSupply(ctx context.Context) (ledger.Amount, error) {
	return s.ledger.TotalSupply(ctx)
}

// Metadata returns the metadata stored at construction.
func (s *Service) Metadata(ctx context.Context) (metadata.Metadata, error) {
	raw, err := s.ledger.Metadata(ctx)
	if err != nil {
		return metadata.Metadata{}, err
	}
	return metadata.Decode(raw)
}

// StorageDeposit registers account, or the caller when account is empty,
// paid for by the attached deposit.
func (s *Service) StorageDeposit(ctx context.Context, caller, account string, attached ledger.Amount) (accounts.Registration, error) {
	if account == "" {
		account = caller
	}
	return s.accounts.Register(ctx, account, attached)
}

// StorageBalanceOf reports the storage balance of account.
func (s *Service) StorageBalanceOf(ctx context.Context, account string) (accounts.StorageBalance, bool, error) {
	return s.accounts.StorageBalanceOf(ctx, account)
}

// StorageUnregister removes a zero balance account. Internal: only the
// contract account may call it.
func (s *Service) StorageUnregister(ctx context.Context, caller, account string) (ledger.Amount, error) {
	if err := s.requireSelf(caller); err != nil {
		return ledger.Amount{}, err
	}
	return s.accounts.Unregister(ctx, account)
}

// MinStorageDeposit returns the deposit needed to register an account.
func (s *Service) MinStorageDeposit() ledger.Amount {
	return s.accounts.MinDeposit()
}

// Audit re-sums every balance against the total supply.
func (s *Service) Audit(ctx context.Context) (ledger.AuditReport, error) {
	return s.ledger.Audit(ctx)
}

func (s *Service) requireSelf(caller string) error {
	if caller != s.contractID {
		return fmt.Errorf("%w: caller %s", ErrPrivateMethod, caller)
	}
	return nil
}

func (s *Service) emit(ctx context.Context, event events.Event) {
	if err := s.emitter.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "emit event failed", slog.String("event", event.Event), slog.Any("error", err))
	}
}
