// Package accounts decides who may hold a balance. Registration requires an
// attached storage deposit and creates the zero balance entry in the ledger.
package accounts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/congo-pay/ftledger/internal/ledger"
)

const (
	minAccountIDLen = 2
	maxAccountIDLen = 64
)

var (
	ErrInvalidAccountID    = errors.New("invalid account id")
	ErrInsufficientDeposit = errors.New("the attached deposit is less than the minimum storage balance")
)

// Separators may not lead, trail or repeat.
var accountIDPattern = regexp.MustCompile(`^(([a-z\d]+[\-_])*[a-z\d]+\.)*([a-z\d]+[\-_])*[a-z\d]+$`)

// ValidateAccountID checks the textual rules for an account identifier.
func ValidateAccountID(id string) error {
	if len(id) < minAccountIDLen || len(id) > maxAccountIDLen {
		return fmt.Errorf("%w: %q must be %d to %d characters", ErrInvalidAccountID, id, minAccountIDLen, maxAccountIDLen)
	}
	if !accountIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidAccountID, id)
	}
	return nil
}

// Registry is the part of the ledger registration needs.
type Registry interface {
	Register(ctx context.Context, account string) (bool, error)
	Unregister(ctx context.Context, account string) error
	IsRegistered(ctx context.Context, account string) (bool, error)
}

// StorageBalance reports the deposit held for an account. Available is
// always zero: the whole deposit pays for the entry.
type StorageBalance struct {
	Total     ledger.Amount `json:"total"`
	Available ledger.Amount `json:"available"`
}

// Registration is the outcome of Register.
type Registration struct {
	Account string         `json:"account_id"`
	Created bool           `json:"created"`
	Refund  ledger.Amount  `json:"refund"`
	Balance StorageBalance `json:"storage_balance"`
}

// Service registers and removes accounts.
type Service struct {
	registry   Registry
	minDeposit ledger.Amount
	logger     *slog.Logger
}

// NewService builds a registration service requiring minDeposit per account.
func NewService(registry Registry, minDeposit ledger.Amount, logger *slog.Logger) *Service {
	return &Service{registry: registry, minDeposit: minDeposit, logger: logger}
}

// MinDeposit returns the deposit needed to register one account.
func (s *Service) MinDeposit() ledger.Amount {
	return s.minDeposit
}

// Register creates a zero balance entry for account. An already registered
// account gets the whole attachment back; otherwise everything above the
// minimum deposit is refunded.
func (s *Service) Register(ctx context.Context, account string, attached ledger.Amount) (Registration, error) {
	if err := ValidateAccountID(account); err != nil {
		return Registration{}, err
	}
	reg := Registration{Account: account, Balance: StorageBalance{Total: s.minDeposit}}

	registered, err := s.registry.IsRegistered(ctx, account)
	if err != nil {
		return Registration{}, err
	}
	if registered {
		reg.Refund = attached
		return reg, nil
	}

	refund, ok := attached.CheckedSub(s.minDeposit)
	if !ok {
		return Registration{}, fmt.Errorf("%w: attached %s, required %s", ErrInsufficientDeposit, attached, s.minDeposit)
	}

	created, err := s.registry.Register(ctx, account)
	if err != nil {
		return Registration{}, err
	}
	if !created {
		reg.Refund = attached
		return reg, nil
	}

	reg.Created = true
	reg.Refund = refund
	if s.logger != nil {
		s.logger.Info("account registered", slog.String("account", account), slog.String("refund", refund.String()))
	}
	return reg, nil
}

// StorageBalanceOf reports the storage balance of a registered account.
func (s *Service) StorageBalanceOf(ctx context.Context, account string) (StorageBalance, bool, error) {
	registered, err := s.registry.IsRegistered(ctx, account)
	if err != nil || !registered {
		return StorageBalance{}, false, err
	}
	return StorageBalance{Total: s.minDeposit}, true, nil
}

// Unregister removes an account whose token balance is zero and returns the
// storage deposit to release.
func (s *Service) Unregister(ctx context.Context, account string) (ledger.Amount, error) {
	if err := s.registry.Unregister(ctx, account); err != nil {
		return ledger.Amount{}, err
	}
	if s.logger != nil {
		s.logger.Info("account unregistered", slog.String("account", account))
	}
	return s.minDeposit, nil
}
