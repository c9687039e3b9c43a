package token

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/ftledger/internal/accounts"
	"github.com/congo-pay/ftledger/internal/ledger"
	"github.com/congo-pay/ftledger/internal/metadata"
)

// StatusFor maps a service error to an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrSameAccount),
		errors.Is(err, ledger.ErrInvalidAmountFormat),
		errors.Is(err, accounts.ErrInvalidAccountID),
		errors.Is(err, metadata.ErrInvalidMetadata),
		errors.Is(err, metadata.ErrInvalidDisplayAmount):
		return http.StatusBadRequest
	case errors.Is(err, accounts.ErrInsufficientDeposit):
		return http.StatusPaymentRequired
	case errors.Is(err, ledger.ErrNotOwner), errors.Is(err, ErrPrivateMethod):
		return http.StatusForbidden
	case errors.Is(err, ledger.ErrUnregisteredAccount):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, ledger.ErrNonZeroBalance),
		errors.Is(err, ledger.ErrOwnerAccount),
		errors.Is(err, ledger.ErrConcurrentModification),
		errors.Is(err, ledger.ErrAlreadyInitialized):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrBalanceOverflow), errors.Is(err, ledger.ErrSupplyOverflow):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ledger.ErrNotInitialized):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func httpError(err error) error {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		return fiber.NewError(status, "internal error")
	}
	return fiber.NewError(status, err.Error())
}
