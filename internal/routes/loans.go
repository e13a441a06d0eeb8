package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/corebank/internal/loan"
)

// RegisterLoanRoutes mounts loan endpoints.
func RegisterLoanRoutes(r fiber.Router, h *loan.Handler) {
	g := r.Group("/loans")
	g.Post("", h.Apply)
	g.Get("", h.List)
	g.Get("/status/:status", h.ByStatus)
	g.Get("/:loanNo", h.Get)
	g.Put("/:loanNo/approve", h.Approve)
	g.Get("/:loanNo/installments", h.Installments)
	g.Put("/:loanNo/installments", h.SetInstallments)
}
