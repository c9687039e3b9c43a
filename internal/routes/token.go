package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/ftledger/internal/middleware"
	"github.com/congo-pay/ftledger/internal/token"
)

// RegisterTokenRoutes wires the token contract endpoints. signed runs before
// every state changing call and must set the caller and attached deposit.
func RegisterTokenRoutes(r fiber.Router, h *token.Handler, contractID string, signed []fiber.Handler) {
	with := func(handlers ...fiber.Handler) []fiber.Handler {
		return append(append([]fiber.Handler{}, signed...), handlers...)
	}

	ft := r.Group("/ft")
	ft.Get("/metadata", h.Metadata)
	ft.Get("/total_supply", h.TotalSupply)
	ft.Get("/balance/:account", h.BalanceOf)
	ft.Post("/transfer", with(middleware.RequireExactDeposit(middleware.OneUnit), h.Transfer)...)
	ft.Post("/mint", with(h.Mint)...)
	ft.Post("/reward", with(h.Reward)...)

	storage := r.Group("/storage")
	storage.Get("/balance/:account", h.StorageBalanceOf)
	storage.Post("/deposit", with(h.StorageDeposit)...)

	internal := r.Group("/internal")
	self := middleware.SelfOnly(contractID)
	internal.Post("/deposit", with(self, h.InternalDeposit)...)
	internal.Post("/withdraw", with(self, h.InternalWithdraw)...)
	internal.Post("/unregister", with(self, h.InternalUnregister)...)
}
