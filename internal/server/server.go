package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/ftledger/internal/middleware"
	"github.com/congo-pay/ftledger/internal/routes"
)

// bodyLimit bounds request bodies; ledger calls carry a few short fields.
const bodyLimit = 64 * 1024

// Server wraps the Fiber application serving the token API.
type Server struct {
	app    *fiber.App
	addr   string
	logger *slog.Logger
}

// New builds the Fiber application and wires the routes.
func New(deps routes.Deps) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:               deps.Cfg.AppName,
		ReadTimeout:           15 * time.Second,
		WriteTimeout:          15 * time.Second,
		IdleTimeout:           time.Minute,
		BodyLimit:             bodyLimit,
		DisableStartupMessage: !deps.Cfg.IsDev(),
		ErrorHandler:          errorHandler,
	})

	if err := routes.Setup(app, deps); err != nil {
		return nil, err
	}

	return &Server{app: app, addr: deps.Cfg.Address(), logger: deps.Logger}, nil
}

// Listen serves until Shutdown is called.
func (s *Server) Listen() error {
	s.logger.Info("ledger api listening", slog.String("addr", s.addr))
	return s.app.Listen(s.addr)
}

// Shutdown stops accepting connections and waits for in-flight calls.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// errorHandler renders errors as {"error": ..., "request_id": ...}. Errors
// that are not *fiber.Error never reach the client verbatim.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}
	return c.Status(code).JSON(fiber.Map{
		"error":      message,
		"request_id": middleware.GetRequestID(c),
	})
}
