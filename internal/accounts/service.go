package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/corebank/internal/customer"
	"github.com/congo-pay/corebank/internal/ledger"
)

// Service opens and looks up accounts together with their owning customer.
type Service struct {
	customers *customer.Service
	ledger    *ledger.Service
}

// NewService builds an account service.
func NewService(customers *customer.Service, ledger *ledger.Service) *Service {
	return &Service{customers: customers, ledger: ledger}
}

// OpenInput captures what an account is opened with. A zero CustomerID registers
// Customer first; otherwise the account is attached to that existing customer.
type OpenInput struct {
	CustomerID     int64
	Customer       customer.CreateInput
	Branch         string
	OpeningBalance decimal.Decimal
}

// Details is an account with its owner.
type Details struct {
	Account  ledger.Account
	Customer customer.Customer
}

// Open validates the account terms, resolves or registers the customer and opens
// the ledger account.
func (s *Service) Open(ctx context.Context, in OpenInput) (Details, error) {
	if err := ledger.ValidateOpening(in.Branch, in.OpeningBalance); err != nil {
		return Details{}, err
	}

	var (
		owner customer.Customer
		err   error
	)
	registered := in.CustomerID == 0
	if registered {
		owner, err = s.customers.Create(ctx, in.Customer)
	} else {
		owner, err = s.customers.Get(ctx, in.CustomerID)
	}
	if err != nil {
		return Details{}, err
	}

	acct, err := s.ledger.OpenAccount(ctx, in.Branch, owner.ID, in.OpeningBalance)
	if err != nil {
		err = fmt.Errorf("open account for customer %d: %w", owner.ID, err)
		if registered {
			// The customer was registered for this account only.
			if derr := s.customers.Delete(context.WithoutCancel(ctx), owner.ID); derr != nil {
				err = errors.Join(err, fmt.Errorf("remove customer %d: %w", owner.ID, derr))
			}
		}
		return Details{}, err
	}
	return Details{Account: acct, Customer: owner}, nil
}

// UpdateInput carries the editable account details. Nil fields are left alone;
// balances are only ever changed by ledger operations.
type UpdateInput struct {
	Branch   *string
	Customer customer.UpdateInput
}

// Update edits an account's branch and its owner's details.
func (s *Service) Update(ctx context.Context, accountID int64, in UpdateInput) (Details, error) {
	if in.Branch != nil && strings.TrimSpace(*in.Branch) == "" {
		return Details{}, ledger.ErrInvalidBranch
	}
	details, err := s.Get(ctx, accountID)
	if err != nil {
		return Details{}, err
	}
	if !in.Customer.Empty() {
		if details.Customer, err = s.customers.Update(ctx, details.Customer.ID, in.Customer); err != nil {
			return Details{}, err
		}
	}
	if in.Branch != nil {
		if details.Account, err = s.ledger.UpdateBranch(ctx, accountID, *in.Branch); err != nil {
			return Details{}, err
		}
	}
	return details, nil
}

// Get returns an account and its owner.
func (s *Service) Get(ctx context.Context, accountID int64) (Details, error) {
	acct, err := s.ledger.Account(ctx, accountID)
	if err != nil {
		return Details{}, err
	}
	owner, err := s.customers.Get(ctx, acct.CustomerID)
	if err != nil {
		return Details{}, err
	}
	return Details{Account: acct, Customer: owner}, nil
}

// List returns every account.
func (s *Service) List(ctx context.Context) ([]ledger.Account, error) {
	return s.ledger.Accounts(ctx)
}

// Reconcile checks the account's balance against its transaction log.
func (s *Service) Reconcile(ctx context.Context, accountID int64) (ledger.Reconciliation, error) {
	return s.ledger.Reconcile(ctx, accountID)
}
