package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
)

// Transfer moves amount from one account to another. Both balance changes and the
// transfer_out/transfer_in records commit together or not at all.
//
// Both accounts are locked up front in ascending id order, independent of the
// transfer's direction, so opposite transfers between the same pair cannot
// deadlock. The insufficient-funds check happens on the locked balance, as part
// of the debit.
func (s *Service) Transfer(ctx context.Context, fromID, toID int64, amount decimal.Decimal) (TransferResult, error) {
	if !validAmount(amount) {
		return TransferResult{}, ErrInvalidAmount
	}
	if fromID == toID {
		return TransferResult{}, ErrSameAccountTransfer
	}

	var res TransferResult
	err := s.run(ctx, "transfer", func(ctx context.Context, tx Tx) error {
		if err := tx.Lock(ctx, fromID, toID); err != nil {
			return err
		}
		debit, err := apply(ctx, tx, fromID, KindTransferOut, amount)
		if err != nil {
			return err
		}
		credit, err := apply(ctx, tx, toID, KindTransferIn, amount)
		if err != nil {
			return err
		}
		res = TransferResult{Amount: amount, From: debit, To: credit}
		return nil
	})
	if err != nil {
		return TransferResult{}, fmt.Errorf("transfer %d -> %d: %w", fromID, toID, err)
	}

	s.logger.Debug("ledger transfer committed",
		slog.Int64("from_account_id", fromID),
		slog.Int64("to_account_id", toID),
		slog.Int64("debit_record_id", res.From.Record.ID),
		slog.Int64("credit_record_id", res.To.Record.ID),
		slog.String("amount", amount.StringFixed(Scale)),
	)
	return res, nil
}
