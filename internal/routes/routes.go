package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/corebank/internal/accounts"
	"github.com/congo-pay/corebank/internal/config"
	"github.com/congo-pay/corebank/internal/customer"
	"github.com/congo-pay/corebank/internal/infra"
	"github.com/congo-pay/corebank/internal/ledger"
	"github.com/congo-pay/corebank/internal/loan"
	"github.com/congo-pay/corebank/internal/middleware"
	"github.com/congo-pay/corebank/internal/notification"
	"github.com/congo-pay/corebank/internal/transactions"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes. Without a database the
// in-memory stores back every service, which is only allowed in development.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDevelopment() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	// Health
	RegisterHealthRoutes(app, d)

	// Services and handlers
	var (
		ledgerStore  ledger.Store
		customerRepo customer.Repository
		loanRepo     loan.Repository
	)
	if d.DB != nil {
		ledgerStore = ledger.NewPostgresStore(d.DB)
		customerRepo = customer.NewPostgresRepository(d.DB)
		loanRepo = loan.NewPostgresRepository(d.DB)
	} else {
		d.Logger.Warn("no database configured, using in-memory stores")
		ledgerStore = ledger.NewInMemory()
		customerRepo = customer.NewMemoryRepository()
		loanRepo = loan.NewMemoryRepository()
	}

	retry := infra.RetryPolicy{MaxRetries: d.Cfg.MaxRetries, Backoff: d.Cfg.RetryBackoff}
	ledgerSvc := ledger.NewService(ledgerStore, retry, d.Logger)
	customerSvc := customer.NewService(customerRepo)
	accountSvc := accounts.NewService(customerSvc, ledgerSvc)
	notifier := notification.NewLoggerNotifier(d.Logger)
	transactionSvc := transactions.NewService(ledgerSvc, notifier, d.Logger)
	loanSvc := loan.NewService(loanRepo, customerSvc, retry, d.Logger)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.GetRequestID(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterCustomerRoutes(api, customer.NewHandler(customerSvc))
	RegisterAccountRoutes(api, accounts.NewHandler(accountSvc))

	var movement []fiber.Handler
	if d.Cache != nil {
		movement = append(movement, middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}
	RegisterTransactionRoutes(api, transactions.NewHandler(transactionSvc), movement...)
	RegisterLoanRoutes(api, loan.NewHandler(loanSvc))

	return nil
}
