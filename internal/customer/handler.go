package customer

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes customer endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a customer HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type createRequest struct {
	Name   string `json:"cust_name"`
	Street string `json:"cust_street"`
	City   string `json:"cust_city"`
}

// Response is the JSON shape of a customer.
type Response struct {
	ID        int64     `json:"cust_id"`
	Name      string    `json:"cust_name"`
	Street    string    `json:"cust_street"`
	City      string    `json:"cust_city"`
	CreatedAt time.Time `json:"created_at"`
}

// ToResponse converts a customer to its JSON shape.
func ToResponse(c Customer) Response {
	return Response{ID: c.ID, Name: c.Name, Street: c.Street, City: c.City, CreatedAt: c.CreatedAt}
}

// Create registers a customer.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	cust, err := h.service.Create(c.UserContext(), CreateInput{Name: req.Name, Street: req.Street, City: req.City})
	if err != nil {
		return StatusError(err)
	}
	return c.Status(http.StatusCreated).JSON(ToResponse(cust))
}

// Get returns one customer.
func (h *Handler) Get(c *fiber.Ctx) error {
	id, err := c.ParamsInt("custId")
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid customer id")
	}
	cust, err := h.service.Get(c.UserContext(), int64(id))
	if err != nil {
		return StatusError(err)
	}
	return c.Status(http.StatusOK).JSON(ToResponse(cust))
}

// List returns every customer.
func (h *Handler) List(c *fiber.Ctx) error {
	customers, err := h.service.List(c.UserContext())
	if err != nil {
		return StatusError(err)
	}
	out := make([]Response, 0, len(customers))
	for _, cust := range customers {
		out = append(out, ToResponse(cust))
	}
	return c.Status(http.StatusOK).JSON(out)
}

// StatusError maps customer errors onto HTTP errors.
func StatusError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidCustomer):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrCustomerNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	default:
		return fiber.NewError(http.StatusServiceUnavailable, err.Error())
	}
}
