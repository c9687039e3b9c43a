package middleware

import (
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/ftledger/internal/ledger"
)

const (
	// AttachedDepositHeader carries the payment attached to a call in raw
	// units. An absent header means nothing is attached.
	AttachedDepositHeader = "X-Attached-Deposit"

	attachedDepositKey = "attached_deposit"
)

// OneUnit is the minimal payment some calls require.
var OneUnit = ledger.NewAmount(1)

// AttachedDeposit parses the attached deposit header.
func AttachedDeposit() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var deposit ledger.Amount
		if raw := c.Get(AttachedDepositHeader); raw != "" {
			parsed, err := ledger.ParseAmount(raw)
			if err != nil {
				return fiber.NewError(http.StatusBadRequest, fmt.Sprintf("invalid %s header", AttachedDepositHeader))
			}
			deposit = parsed
		}
		c.Locals(attachedDepositKey, deposit)
		return c.Next()
	}
}

// Deposit returns the amount stored by AttachedDeposit.
func Deposit(c *fiber.Ctx) ledger.Amount {
	deposit, _ := c.Locals(attachedDepositKey).(ledger.Amount)
	return deposit
}

// RequireExactDeposit rejects calls that do not attach exactly want.
func RequireExactDeposit(want ledger.Amount) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !Deposit(c).Equal(want) {
			return fiber.NewError(http.StatusPaymentRequired, fmt.Sprintf("requires attached deposit of exactly %s", want))
		}
		return c.Next()
	}
}

// SelfOnly admits only calls made by the contract account itself.
func SelfOnly(contractID string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if CallerID(c) != contractID {
			return fiber.NewError(http.StatusForbidden, "method is private")
		}
		return c.Next()
	}
}
