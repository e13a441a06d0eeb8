package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/corebank/internal/infra"
)

// RetryPolicy bounds how often a unit of work aborted by the store is re-run.
type RetryPolicy = infra.RetryPolicy

// Service is the only writer of balances and transaction records. Every operation
// runs as one unit of work that either commits completely or leaves no trace.
type Service struct {
	store  Store
	retry  RetryPolicy
	logger *slog.Logger
}

// NewService builds a ledger service on top of the given store.
func NewService(store Store, retry RetryPolicy, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, retry: retry, logger: logger}
}

// OpenAccount creates an account whose balance starts at opening.
func (s *Service) OpenAccount(ctx context.Context, branch string, customerID int64, opening decimal.Decimal) (Account, error) {
	if err := ValidateOpening(branch, opening); err != nil {
		return Account{}, err
	}
	branch = strings.TrimSpace(branch)
	acct, err := s.store.OpenAccount(ctx, Account{Branch: branch, CustomerID: customerID, OpeningBalance: opening})
	if err != nil {
		return Account{}, fmt.Errorf("open account: %w", err)
	}
	s.logger.Info("ledger account opened",
		slog.Int64("account_id", acct.ID),
		slog.Int64("customer_id", customerID),
		slog.String("opening_balance", opening.StringFixed(Scale)),
	)
	return acct, nil
}

// UpdateBranch moves an account to another branch.
func (s *Service) UpdateBranch(ctx context.Context, id int64, branch string) (Account, error) {
	branch = strings.TrimSpace(branch)
	if branch == "" {
		return Account{}, ErrInvalidBranch
	}
	acct, err := s.store.UpdateBranch(ctx, id, branch)
	if err != nil {
		return Account{}, err
	}
	s.logger.Info("ledger account branch updated", slog.Int64("account_id", id), slog.String("branch", branch))
	return acct, nil
}

// Account returns the committed state of an account.
func (s *Service) Account(ctx context.Context, id int64) (Account, error) {
	return s.store.Account(ctx, id)
}

// Accounts lists all accounts.
func (s *Service) Accounts(ctx context.Context) ([]Account, error) {
	return s.store.Accounts(ctx)
}

// run executes fn inside a fresh unit of work, re-running it from scratch when the
// store aborts it for contention.
func (s *Service) run(ctx context.Context, op string, fn func(ctx context.Context, tx Tx) error) error {
	return s.retry.Run(ctx, func(attempt int) error {
		if attempt > 0 {
			s.logger.Warn("ledger unit of work retried", slog.String("op", op), slog.Int("attempt", attempt))
		}
		return s.once(ctx, fn)
	})
}

func (s *Service) once(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return err
	}
	// Rollback must still reach the store when ctx is what aborted us.
	defer tx.Rollback(context.WithoutCancel(ctx)) // nolint:errcheck

	if err := fn(ctx, tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// apply moves one locked account by kind's signed amount and logs it.
func apply(ctx context.Context, tx Tx, id int64, kind Kind, amount decimal.Decimal) (Mutation, error) {
	previous, err := tx.Read(ctx, id)
	if err != nil {
		return Mutation{}, err
	}
	balance, err := tx.ApplyDelta(ctx, id, kind.Signed(amount))
	if err != nil {
		return Mutation{}, err
	}
	rec, err := tx.Append(ctx, Record{AccountID: id, Kind: kind, Amount: amount})
	if err != nil {
		return Mutation{}, err
	}
	return Mutation{AccountID: id, PreviousBalance: previous, Balance: balance, Record: rec}, nil
}
