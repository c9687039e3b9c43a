package token

import (
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/ftledger/internal/ledger"
	"github.com/congo-pay/ftledger/internal/middleware"
)

// Handler exposes the token contract over HTTP. Caller and attached deposit
// come from the middleware chain.
type Handler struct {
	svc    *Service
	logger *slog.Logger
}

// NewHandler exposes svc over HTTP.
func NewHandler(svc *Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type transferRequest struct {
	ReceiverID string        `json:"receiver_id"`
	Amount     ledger.Amount `json:"amount"`
	Memo       string        `json:"memo"`
}

type mintRequest struct {
	Amount ledger.Amount `json:"amount"`
}

type rewardRequest struct {
	PlayerID string        `json:"player_id"`
	Amount   ledger.Amount `json:"amount"`
	Feat     string        `json:"feat"`
}

type accountRequest struct {
	AccountID string        `json:"account_id"`
	Amount    ledger.Amount `json:"amount"`
}

type balanceResponse struct {
	AccountID string        `json:"account_id"`
	Balance   ledger.Amount `json:"balance"`
	Display   string        `json:"display,omitempty"`
}

func (h *Handler) fail(c *fiber.Ctx, op string, err error) error {
	if h.logger != nil && StatusFor(err) == http.StatusInternalServerError {
		h.logger.Error("token call failed", slog.String("op", op), slog.String("caller", middleware.CallerID(c)), slog.Any("error", err))
	}
	return httpError(err)
}

func parseBody(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// Transfer handles ft_transfer.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	caller := middleware.CallerID(c)
	if err := h.svc.Transfer(c.UserContext(), caller, req.ReceiverID, req.Amount, req.Memo); err != nil {
		return h.fail(c, "transfer", err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"sender_id":   caller,
		"receiver_id": req.ReceiverID,
		"amount":      req.Amount,
	})
}

// Mint handles the owner only mint call.
func (h *Handler) Mint(c *fiber.Ctx) error {
	var req mintRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.svc.Mint(c.UserContext(), middleware.CallerID(c), req.Amount); err != nil {
		return h.fail(c, "mint", err)
	}
	supply, err := h.svc.TotalSupply(c.UserContext())
	if err != nil {
		return h.fail(c, "mint", err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"minted": req.Amount, "total_supply": supply})
}

// Reward handles the owner only player reward payout.
func (h *Handler) Reward(c *fiber.Ctx) error {
	var req rewardRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.svc.RewardTransfer(c.UserContext(), middleware.CallerID(c), req.PlayerID, req.Amount, req.Feat); err != nil {
		return h.fail(c, "reward", err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"player_id": req.PlayerID, "amount": req.Amount})
}

// Metadata returns the token metadata.
func (h *Handler) Metadata(c *fiber.Ctx) error {
	m, err := h.svc.Metadata(c.UserContext())
	if err != nil {
		return h.fail(c, "metadata", err)
	}
	return c.JSON(m)
}

// TotalSupply returns the total supply.
func (h *Handler) TotalSupply(c *fiber.Ctx) error {
	supply, err := h.svc.TotalSupply(c.UserContext())
	if err != nil {
		return h.fail(c, "total_supply", err)
	}
	return c.JSON(fiber.Map{"total_supply": supply})
}

// BalanceOf returns the balance of an account, zero when unregistered.
func (h *Handler) BalanceOf(c *fiber.Ctx) error {
	account := c.Params("account")
	ctx := c.UserContext()
	balance, err := h.svc.BalanceOf(ctx, account)
	if err != nil {
		return h.fail(c, "balance_of", err)
	}
	resp := balanceResponse{AccountID: account, Balance: balance}
	if m, err := h.svc.Metadata(ctx); err == nil {
		resp.Display = m.Format(balance)
	}
	return c.JSON(resp)
}

// StorageDeposit registers the account named in the body, or the caller.
func (h *Handler) StorageDeposit(c *fiber.Ctx) error {
	var req accountRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return err
		}
	}
	reg, err := h.svc.StorageDeposit(c.UserContext(), middleware.CallerID(c), req.AccountID, middleware.Deposit(c))
	if err != nil {
		return h.fail(c, "storage_deposit", err)
	}
	status := http.StatusOK
	if reg.Created {
		status = http.StatusCreated
	}
	return c.Status(status).JSON(reg)
}

// StorageBalanceOf returns the storage balance or null for unknown accounts.
func (h *Handler) StorageBalanceOf(c *fiber.Ctx) error {
	bal, ok, err := h.svc.StorageBalanceOf(c.UserContext(), c.Params("account"))
	if err != nil {
		return h.fail(c, "storage_balance_of", err)
	}
	if !ok {
		return c.JSON(nil)
	}
	return c.JSON(bal)
}

// InternalDeposit handles the self call deposit primitive.
func (h *Handler) InternalDeposit(c *fiber.Ctx) error {
	var req accountRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.svc.Deposit(c.UserContext(), middleware.CallerID(c), req.AccountID, req.Amount); err != nil {
		return h.fail(c, "deposit", err)
	}
	return h.balance(c, req.AccountID)
}

// InternalWithdraw handles the self call withdraw primitive.
func (h *Handler) InternalWithdraw(c *fiber.Ctx) error {
	var req accountRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := h.svc.Withdraw(c.UserContext(), middleware.CallerID(c), req.AccountID, req.Amount); err != nil {
		return h.fail(c, "withdraw", err)
	}
	return h.balance(c, req.AccountID)
}

// InternalUnregister removes a zero balance account.
func (h *Handler) InternalUnregister(c *fiber.Ctx) error {
	var req accountRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	released, err := h.svc.StorageUnregister(c.UserContext(), middleware.CallerID(c), req.AccountID)
	if err != nil {
		return h.fail(c, "unregister", err)
	}
	return c.JSON(fiber.Map{"account_id": req.AccountID, "released": released})
}

func (h *Handler) balance(c *fiber.Ctx, account string) error {
	balance, err := h.svc.BalanceOf(c.UserContext(), account)
	if err != nil {
		return h.fail(c, "balance_of", err)
	}
	return c.JSON(balanceResponse{AccountID: account, Balance: balance})
}
