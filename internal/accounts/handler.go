package accounts

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/corebank/internal/customer"
	"github.com/congo-pay/corebank/internal/ledger"
)

// Handler exposes account HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds an account HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type openRequest struct {
	CustomerID     int64           `json:"cust_id"`
	CustomerName   string          `json:"cust_name"`
	CustomerStreet string          `json:"cust_street"`
	CustomerCity   string          `json:"cust_city"`
	Branch         string          `json:"branch_name"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
}

type updateRequest struct {
	Branch         *string `json:"branch_name"`
	CustomerName   *string `json:"cust_name"`
	CustomerStreet *string `json:"cust_street"`
	CustomerCity   *string `json:"cust_city"`
}

// AccountResponse is the JSON shape of an account.
type AccountResponse struct {
	ID             int64     `json:"acc_no"`
	Branch         string    `json:"branch_name"`
	Balance        string    `json:"balance"`
	OpeningBalance string    `json:"opening_balance"`
	CustomerID     int64     `json:"cust_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// ToResponse converts a ledger account to its JSON shape.
func ToResponse(a ledger.Account) AccountResponse {
	return AccountResponse{
		ID:             a.ID,
		Branch:         a.Branch,
		Balance:        a.Balance.StringFixed(ledger.Scale),
		OpeningBalance: a.OpeningBalance.StringFixed(ledger.Scale),
		CustomerID:     a.CustomerID,
		CreatedAt:      a.CreatedAt,
	}
}

type detailsResponse struct {
	AccountResponse
	Customer customer.Response `json:"customer"`
}

// Create opens an account, registering its customer when no cust_id is given.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req openRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	details, err := h.service.Open(c.UserContext(), OpenInput{
		CustomerID: req.CustomerID,
		Customer: customer.CreateInput{
			Name:   req.CustomerName,
			Street: req.CustomerStreet,
			City:   req.CustomerCity,
		},
		Branch:         req.Branch,
		OpeningBalance: req.OpeningBalance,
	})
	if err != nil {
		return StatusError(err)
	}
	return c.Status(http.StatusCreated).JSON(detailsResponse{
		AccountResponse: ToResponse(details.Account),
		Customer:        customer.ToResponse(details.Customer),
	})
}

// Get returns one account with its owner.
func (h *Handler) Get(c *fiber.Ctx) error {
	id, err := AccountID(c, "accNo")
	if err != nil {
		return err
	}
	details, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return StatusError(err)
	}
	return c.Status(http.StatusOK).JSON(detailsResponse{
		AccountResponse: ToResponse(details.Account),
		Customer:        customer.ToResponse(details.Customer),
	})
}

// Update edits the branch and owner details of an account.
func (h *Handler) Update(c *fiber.Ctx) error {
	id, err := AccountID(c, "accNo")
	if err != nil {
		return err
	}
	var req updateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	details, err := h.service.Update(c.UserContext(), id, UpdateInput{
		Branch: req.Branch,
		Customer: customer.UpdateInput{
			Name:   req.CustomerName,
			Street: req.CustomerStreet,
			City:   req.CustomerCity,
		},
	})
	if err != nil {
		return StatusError(err)
	}
	return c.Status(http.StatusOK).JSON(detailsResponse{
		AccountResponse: ToResponse(details.Account),
		Customer:        customer.ToResponse(details.Customer),
	})
}

// List returns every account.
func (h *Handler) List(c *fiber.Ctx) error {
	accts, err := h.service.List(c.UserContext())
	if err != nil {
		return StatusError(err)
	}
	out := make([]AccountResponse, 0, len(accts))
	for _, a := range accts {
		out = append(out, ToResponse(a))
	}
	return c.Status(http.StatusOK).JSON(out)
}

// Reconcile reports whether the stored balance matches the transaction log.
func (h *Handler) Reconcile(c *fiber.Ctx) error {
	id, err := AccountID(c, "accNo")
	if err != nil {
		return err
	}
	rec, err := h.service.Reconcile(c.UserContext(), id)
	if err != nil {
		return StatusError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"acc_no":           rec.AccountID,
		"opening_balance":  rec.OpeningBalance.StringFixed(ledger.Scale),
		"balance":          rec.Balance.StringFixed(ledger.Scale),
		"computed_balance": rec.Computed.StringFixed(ledger.Scale),
		"records":          rec.Records,
		"balanced":         rec.Balanced,
	})
}

// AccountID parses a positive account number from the named path parameter.
func AccountID(c *fiber.Ctx, param string) (int64, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		return 0, fiber.NewError(http.StatusBadRequest, "invalid account number")
	}
	return int64(id), nil
}

// StatusError maps ledger and customer errors onto HTTP errors.
func StatusError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInvalidOpeningBalance),
		errors.Is(err, ledger.ErrInvalidBranch),
		errors.Is(err, ledger.ErrSameAccountTransfer),
		errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrBalanceLimit),
		errors.Is(err, customer.ErrInvalidCustomer):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrAccountNotFound), errors.Is(err, customer.ErrCustomerNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrConcurrencyAborted):
		return fiber.NewError(http.StatusConflict, err.Error())
	default:
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	}
}
