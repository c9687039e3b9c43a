package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/congo-pay/ftledger/internal/logging"
)

// RequestIDHeader carries the request identifier in both directions.
const RequestIDHeader = "X-Request-ID"

const maxRequestIDLen = 128

// RequestID reuses a well-formed client X-Request-ID or assigns a new one. The
// identifier is echoed in the response and carried in the user context, so
// ledger log lines share it with the access log.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Get(RequestIDHeader)
		if validRequestID(id) {
			id = strings.Clone(id)
		} else {
			id = uuid.NewString()
		}

		c.Set(RequestIDHeader, id)
		c.Locals(RequestIDHeader, id)
		c.SetUserContext(logging.WithRequestID(c.UserContext(), id))

		return c.Next()
	}
}

// GetRequestID returns the identifier assigned by RequestID.
func GetRequestID(c *fiber.Ctx) string {
	id, _ := c.Locals(RequestIDHeader).(string)
	return id
}

// validRequestID accepts printable ASCII without spaces, so a client value
// can be written to logs as is.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] <= ' ' || id[i] > '~' {
			return false
		}
	}
	return true
}
