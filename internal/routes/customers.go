package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/corebank/internal/customer"
)

// RegisterCustomerRoutes mounts customer endpoints.
func RegisterCustomerRoutes(r fiber.Router, h *customer.Handler) {
	g := r.Group("/customers")
	g.Post("", h.Create)
	g.Get("", h.List)
	g.Get("/:custId", h.Get)
}
