package customer

import (
	"errors"
	"time"
)

var (
	// ErrCustomerNotFound is returned when no customer has the requested id.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrInvalidCustomer is returned when required customer fields are missing.
	ErrInvalidCustomer = errors.New("customer name is required")
)

// Customer owns accounts and loans.
type Customer struct {
	ID        int64
	Name      string
	Street    string
	City      string
	CreatedAt time.Time
}

// CreateInput captures the fields a new customer is registered with.
type CreateInput struct {
	Name   string
	Street string
	City   string
}

// UpdateInput carries the fields to change. Nil fields keep their stored value.
type UpdateInput struct {
	Name   *string
	Street *string
	City   *string
}

// Empty reports whether the input changes nothing.
func (in UpdateInput) Empty() bool {
	return in.Name == nil && in.Street == nil && in.City == nil
}
