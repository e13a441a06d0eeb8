package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/corebank/internal/transactions"
)

// RegisterTransactionRoutes mounts money movement and history endpoints. The
// given middlewares guard the POST endpoints only.
func RegisterTransactionRoutes(r fiber.Router, h *transactions.Handler, movement ...fiber.Handler) {
	g := r.Group("/transactions")
	g.Post("/deposit", chain(movement, h.Deposit)...)
	g.Post("/withdraw", chain(movement, h.Withdraw)...)
	g.Post("/transfer", chain(movement, h.Transfer)...)
	g.Get("", h.All)
	g.Get("/summary/:accNo", h.Summary)
	g.Get("/:accNo", h.History)
}

func chain(middlewares []fiber.Handler, h fiber.Handler) []fiber.Handler {
	out := make([]fiber.Handler, 0, len(middlewares)+1)
	out = append(out, middlewares...)
	return append(out, h)
}
