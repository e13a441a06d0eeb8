package loan

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/corebank/internal/customer"
	"github.com/congo-pay/corebank/internal/infra"
)

const scale = 2

// maxAmount matches the NUMERIC(18,2) loan amount column.
var maxAmount = decimal.New(1, 16)

// CustomerLookup resolves the customer a loan is issued to.
type CustomerLookup interface {
	Get(ctx context.Context, id int64) (customer.Customer, error)
}

// Service manages loan applications and their repayment state.
type Service struct {
	repo      Repository
	customers CustomerLookup
	retry     infra.RetryPolicy
	logger    *slog.Logger
}

// NewService creates a loan service.
func NewService(repo Repository, customers CustomerLookup, retry infra.RetryPolicy, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, customers: customers, retry: retry, logger: logger}
}

// Apply records a pending loan for an existing customer.
func (s *Service) Apply(ctx context.Context, in ApplyInput) (Loan, error) {
	branch := strings.TrimSpace(in.Branch)
	switch {
	case branch == "":
		return Loan{}, fmt.Errorf("%w: branch name is required", ErrInvalidLoan)
	case !in.Amount.IsPositive() || !in.Amount.LessThan(maxAmount) || !in.Amount.Equal(in.Amount.Truncate(scale)):
		return Loan{}, fmt.Errorf("%w: amount must be positive, below 1e16, with at most 2 decimal places", ErrInvalidLoan)
	case in.Installments <= 0:
		return Loan{}, fmt.Errorf("%w: installments must be positive", ErrInvalidLoan)
	}
	if _, err := s.customers.Get(ctx, in.CustomerID); err != nil {
		return Loan{}, err
	}

	l, err := s.repo.Create(ctx, Loan{
		Branch:                branch,
		Amount:                in.Amount,
		Status:                StatusPending,
		InstallmentsRemaining: in.Installments,
		CustomerID:            in.CustomerID,
	})
	if err != nil {
		return Loan{}, fmt.Errorf("apply for loan: %w", err)
	}
	s.logger.Info("loan application recorded",
		slog.Int64("loan_id", l.ID),
		slog.Int64("customer_id", l.CustomerID),
		slog.String("amount", l.Amount.StringFixed(scale)),
	)
	return l, nil
}

// Get returns one loan.
func (s *Service) Get(ctx context.Context, id int64) (Loan, error) {
	return s.repo.Get(ctx, id)
}

// List returns every loan.
func (s *Service) List(ctx context.Context) ([]Loan, error) {
	return s.repo.List(ctx)
}

// ByStatus returns the loans in the given status.
func (s *Service) ByStatus(ctx context.Context, status Status) ([]Loan, error) {
	return s.repo.ListByStatus(ctx, status)
}

// Installments returns how many installments remain on a loan.
func (s *Service) Installments(ctx context.Context, id int64) (int, error) {
	l, err := s.repo.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return l.InstallmentsRemaining, nil
}
