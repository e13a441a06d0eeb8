package loan

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/corebank/internal/customer"
	"github.com/congo-pay/corebank/internal/infra"
)

// Handler exposes loan endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a loan HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type applyRequest struct {
	Branch       string          `json:"branch_name"`
	Amount       decimal.Decimal `json:"amount"`
	Installments int             `json:"installments"`
	CustomerID   int64           `json:"cust_id"`
}

type installmentsRequest struct {
	InstallmentsRemaining *int `json:"installments_remaining"`
}

type loanResponse struct {
	ID                    int64     `json:"loan_no"`
	Branch                string    `json:"branch_name"`
	Amount                string    `json:"amount"`
	Status                Status    `json:"status"`
	InstallmentsRemaining int       `json:"installments_remaining"`
	CustomerID            int64     `json:"cust_id"`
	CreatedAt             time.Time `json:"created_at"`
}

func toResponse(l Loan) loanResponse {
	return loanResponse{
		ID:                    l.ID,
		Branch:                l.Branch,
		Amount:                l.Amount.StringFixed(scale),
		Status:                l.Status,
		InstallmentsRemaining: l.InstallmentsRemaining,
		CustomerID:            l.CustomerID,
		CreatedAt:             l.CreatedAt,
	}
}

func toResponses(loans []Loan) []loanResponse {
	out := make([]loanResponse, 0, len(loans))
	for _, l := range loans {
		out = append(out, toResponse(l))
	}
	return out
}

// Apply records a new loan application.
func (h *Handler) Apply(c *fiber.Ctx) error {
	var req applyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	l, err := h.service.Apply(c.UserContext(), ApplyInput{
		Branch:       req.Branch,
		Amount:       req.Amount,
		Installments: req.Installments,
		CustomerID:   req.CustomerID,
	})
	if err != nil {
		return StatusError(err)
	}
	return c.Status(http.StatusCreated).JSON(toResponse(l))
}

// List returns every loan.
func (h *Handler) List(c *fiber.Ctx) error {
	loans, err := h.service.List(c.UserContext())
	if err != nil {
		return StatusError(err)
	}
	return c.Status(http.StatusOK).JSON(toResponses(loans))
}

// ByStatus returns the loans in the status named by the path.
func (h *Handler) ByStatus(c *fiber.Ctx) error {
	status, err := ParseStatus(c.Params("status"))
	if err != nil {
		return StatusError(err)
	}
	loans, err := h.service.ByStatus(c.UserContext(), status)
	if err != nil {
		return StatusError(err)
	}
	return c.Status(http.StatusOK).JSON(toResponses(loans))
}

// Get returns one loan.
func (h *Handler) Get(c *fiber.Ctx) error {
	return h.withLoan(c, h.service.Get)
}

// Approve approves a pending loan.
func (h *Handler) Approve(c *fiber.Ctx) error {
	return h.withLoan(c, h.service.Approve)
}

// Installments returns the remaining-installment counter.
func (h *Handler) Installments(c *fiber.Ctx) error {
	id, err := loanID(c)
	if err != nil {
		return err
	}
	n, err := h.service.Installments(c.UserContext(), id)
	if err != nil {
		return StatusError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"loan_no": id, "installments_remaining": n})
}

// SetInstallments overwrites the remaining-installment counter.
func (h *Handler) SetInstallments(c *fiber.Ctx) error {
	id, err := loanID(c)
	if err != nil {
		return err
	}
	var req installmentsRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.InstallmentsRemaining == nil {
		return fiber.NewError(http.StatusBadRequest, "installments_remaining is required")
	}
	l, err := h.service.SetInstallmentsRemaining(c.UserContext(), id, *req.InstallmentsRemaining)
	if err != nil {
		return StatusError(err)
	}
	return c.Status(http.StatusOK).JSON(toResponse(l))
}

func (h *Handler) withLoan(c *fiber.Ctx, fn func(ctx context.Context, id int64) (Loan, error)) error {
	id, err := loanID(c)
	if err != nil {
		return err
	}
	l, err := fn(c.UserContext(), id)
	if err != nil {
		return StatusError(err)
	}
	return c.Status(http.StatusOK).JSON(toResponse(l))
}

func loanID(c *fiber.Ctx) (int64, error) {
	id, err := c.ParamsInt("loanNo")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(http.StatusBadRequest, "invalid loan number")
	}
	return int64(id), nil
}

// StatusError maps loan errors onto HTTP errors.
func StatusError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidLoan), errors.Is(err, ErrInvalidCount),
		errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrAlreadyApproved):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrLoanNotFound), errors.Is(err, customer.ErrCustomerNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, infra.ErrConcurrencyAborted):
		return fiber.NewError(http.StatusConflict, err.Error())
	default:
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	}
}
