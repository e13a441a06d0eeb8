package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
)

// Deposit credits amount to the account and logs a deposit record.
func (s *Service) Deposit(ctx context.Context, accountID int64, amount decimal.Decimal) (Mutation, error) {
	return s.mutate(ctx, accountID, KindDeposit, amount)
}

// Withdraw debits amount from the account and logs a withdrawal record. It fails
// with ErrInsufficientFunds, changing nothing, when amount exceeds the balance.
func (s *Service) Withdraw(ctx context.Context, accountID int64, amount decimal.Decimal) (Mutation, error) {
	return s.mutate(ctx, accountID, KindWithdrawal, amount)
}

func (s *Service) mutate(ctx context.Context, accountID int64, kind Kind, amount decimal.Decimal) (Mutation, error) {
	if !validAmount(amount) {
		return Mutation{}, ErrInvalidAmount
	}

	var res Mutation
	err := s.run(ctx, kind.String(), func(ctx context.Context, tx Tx) error {
		if err := tx.Lock(ctx, accountID); err != nil {
			return err
		}
		var err error
		res, err = apply(ctx, tx, accountID, kind, amount)
		return err
	})
	if err != nil {
		return Mutation{}, fmt.Errorf("%s: %w", kind, err)
	}

	s.logger.Debug("ledger mutation committed",
		slog.String("kind", kind.String()),
		slog.Int64("account_id", accountID),
		slog.Int64("record_id", res.Record.ID),
		slog.String("amount", amount.StringFixed(Scale)),
	)
	return res, nil
}
