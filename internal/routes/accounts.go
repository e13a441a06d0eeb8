package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/corebank/internal/accounts"
)

// RegisterAccountRoutes mounts account endpoints.
func RegisterAccountRoutes(r fiber.Router, h *accounts.Handler) {
	g := r.Group("/accounts")
	g.Post("", h.Create)
	g.Get("", h.List)
	g.Get("/:accNo/reconcile", h.Reconcile)
	g.Get("/:accNo", h.Get)
	g.Put("/:accNo", h.Update)
}
