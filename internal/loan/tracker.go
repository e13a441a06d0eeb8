package loan

import (
	"context"
	"fmt"
	"log/slog"
)

// Approve moves a pending loan to approved. Approving twice fails with
// ErrAlreadyApproved and leaves the loan as it was.
func (s *Service) Approve(ctx context.Context, id int64) (Loan, error) {
	l, err := s.update(ctx, "approve", id, func(l *Loan) error {
		if l.Status == StatusApproved {
			return ErrAlreadyApproved
		}
		l.Status = StatusApproved
		return nil
	})
	if err != nil {
		return Loan{}, fmt.Errorf("approve loan %d: %w", id, err)
	}
	s.logger.Info("loan approved", slog.Int64("loan_id", id))
	return l, nil
}

// SetInstallmentsRemaining overwrites the remaining-installment counter. Any
// non-negative count is accepted.
func (s *Service) SetInstallmentsRemaining(ctx context.Context, id int64, n int) (Loan, error) {
	if n < 0 {
		return Loan{}, ErrInvalidCount
	}
	l, err := s.update(ctx, "set_installments", id, func(l *Loan) error {
		l.InstallmentsRemaining = n
		return nil
	})
	if err != nil {
		return Loan{}, fmt.Errorf("set installments of loan %d: %w", id, err)
	}
	s.logger.Debug("loan installments updated", slog.Int64("loan_id", id), slog.Int("installments_remaining", n))
	return l, nil
}

func (s *Service) update(ctx context.Context, op string, id int64, fn func(*Loan) error) (Loan, error) {
	var out Loan
	err := s.retry.Run(ctx, func(attempt int) error {
		if attempt > 0 {
			s.logger.Warn("loan update retried", slog.String("op", op), slog.Int("attempt", attempt))
		}
		var err error
		out, err = s.repo.Update(ctx, id, fn)
		return err
	})
	return out, err
}
