package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CallerKey is the Locals key holding the authenticated caller account.
const CallerKey = "caller_id"

// TokenVerifier resolves a bearer token to the account that holds it.
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// Caller returns a middleware that validates the bearer token and stores the
// caller account for the handlers.
func Caller(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		caller, err := verifier.Verify(strings.TrimSpace(authz[len("Bearer "):]))
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}
		c.Locals(CallerKey, caller)
		return c.Next()
	}
}

// CallerID returns the account stored by Caller, or "".
func CallerID(c *fiber.Ctx) string {
	caller, _ := c.Locals(CallerKey).(string)
	return caller
}
