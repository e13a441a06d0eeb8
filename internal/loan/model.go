package loan

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrLoanNotFound is returned when no loan has the requested number.
	ErrLoanNotFound = errors.New("loan not found")
	// ErrAlreadyApproved rejects approving a loan twice.
	ErrAlreadyApproved = errors.New("loan already approved")
	// ErrInvalidCount rejects a negative remaining-installment count.
	ErrInvalidCount = errors.New("installments remaining must not be negative")
	// ErrInvalidLoan rejects an application with missing or malformed terms.
	ErrInvalidLoan = errors.New("invalid loan application")
	// ErrInvalidStatus rejects an unknown status name.
	ErrInvalidStatus = errors.New("invalid loan status")
)

// Status is a loan's approval state. Pending moves to approved once and stays there.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
)

// ParseStatus resolves a stored or requested status name.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusApproved:
		return st, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

// Loan is a customer's loan and its repayment progress.
type Loan struct {
	ID                    int64
	Branch                string
	Amount                decimal.Decimal
	Status                Status
	InstallmentsRemaining int
	CustomerID            int64
	CreatedAt             time.Time
}

// ApplyInput captures the terms of a new loan application.
type ApplyInput struct {
	Branch       string
	Amount       decimal.Decimal
	Installments int
	CustomerID   int64
}
