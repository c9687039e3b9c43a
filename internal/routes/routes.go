package routes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/ftledger/internal/accounts"
	"github.com/congo-pay/ftledger/internal/auth"
	"github.com/congo-pay/ftledger/internal/config"
	"github.com/congo-pay/ftledger/internal/events"
	"github.com/congo-pay/ftledger/internal/ledger"
	"github.com/congo-pay/ftledger/internal/middleware"
	"github.com/congo-pay/ftledger/internal/token"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	SQLite *sql.DB
	Cache  *redis.Client
	Store  ledger.Store
	Logger *slog.Logger

	// Genesis, when set, deploys the token on startup. An already deployed
	// token is left as is.
	Genesis *token.Genesis
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() && d.DB == nil && d.SQLite == nil {
		return fmt.Errorf("durable storage is required when APP_ENV=%s", d.Cfg.AppEnv)
	}
	if d.Store == nil {
		return fmt.Errorf("ledger store is required")
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	// Services and handlers
	led := ledger.New(d.Store, d.Logger)
	accountSvc := accounts.NewService(led, d.Cfg.StorageDeposit, d.Logger)
	emitter := events.Multi{events.NewLogEmitter(d.Logger)}
	if d.Cache != nil {
		emitter = append(emitter, events.NewRedisEmitter(d.Cache, d.Cfg.AppName+":events"))
	}
	tokenSvc := token.NewService(led, accountSvc, emitter, d.Cfg.ContractAccountID, d.Logger)
	authSvc := auth.NewService(d.Cfg.TokenSecret, d.Cfg.TokenTTL)

	if d.Genesis != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := tokenSvc.Deploy(ctx, *d.Genesis)
		switch {
		case errors.Is(err, ledger.ErrAlreadyInitialized):
			d.Logger.Info("token already deployed, genesis ignored")
		case err != nil:
			return fmt.Errorf("deploy token: %w", err)
		}
	}

	// Health
	RegisterHealthRoutes(app, d, tokenSvc)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID := middleware.GetRequestID(c)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	signed := []fiber.Handler{
		middleware.Caller(authSvc),
		middleware.AttachedDeposit(),
		middleware.RateLimit(d.Cache, d.Cfg.RateLimitPerMinute),
	}
	if d.Cache != nil {
		signed = append(signed, middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}
	RegisterTokenRoutes(api, token.NewHandler(tokenSvc, d.Logger), d.Cfg.ContractAccountID, signed)

	return nil
}
