package transactions

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/corebank/internal/ledger"
	"github.com/congo-pay/corebank/internal/notification"
)

// Service moves money through the ledger and announces what committed.
type Service struct {
	ledger   *ledger.Service
	notifier notification.Notifier
	logger   *slog.Logger
}

// NewService constructs a transaction service. A nil notifier disables notifications.
func NewService(ledger *ledger.Service, notifier notification.Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{ledger: ledger, notifier: notifier, logger: logger}
}

// Deposit credits an account.
func (s *Service) Deposit(ctx context.Context, accountID int64, amount decimal.Decimal) (ledger.Mutation, error) {
	res, err := s.ledger.Deposit(ctx, accountID, amount)
	if err != nil {
		return ledger.Mutation{}, err
	}
	s.notify(ctx, notification.Message{
		Kind:        notification.KindDeposit,
		Destination: destination(accountID),
		Body:        fmt.Sprintf("%s deposited, balance %s", money(amount), money(res.Balance)),
	})
	return res, nil
}

// Withdraw debits an account.
func (s *Service) Withdraw(ctx context.Context, accountID int64, amount decimal.Decimal) (ledger.Mutation, error) {
	res, err := s.ledger.Withdraw(ctx, accountID, amount)
	if err != nil {
		return ledger.Mutation{}, err
	}
	s.notify(ctx, notification.Message{
		Kind:        notification.KindWithdrawal,
		Destination: destination(accountID),
		Body:        fmt.Sprintf("%s withdrawn, balance %s", money(amount), money(res.Balance)),
	})
	return res, nil
}

// Transfer moves money between two accounts.
func (s *Service) Transfer(ctx context.Context, fromID, toID int64, amount decimal.Decimal) (ledger.TransferResult, error) {
	res, err := s.ledger.Transfer(ctx, fromID, toID, amount)
	if err != nil {
		return ledger.TransferResult{}, err
	}
	s.notify(ctx, notification.Message{
		Kind:        notification.KindTransfer,
		Destination: destination(toID),
		Body:        fmt.Sprintf("You received %s from account %d", money(amount), fromID),
	})
	return res, nil
}

// History returns an account's records, newest first.
func (s *Service) History(ctx context.Context, accountID int64) ([]ledger.Record, error) {
	_, records, err := s.ledger.History(ctx, accountID)
	return records, err
}

// All returns every record, newest first.
func (s *Service) All(ctx context.Context) ([]ledger.Record, error) {
	return s.ledger.AllHistory(ctx)
}

// Summary aggregates an account's records per kind.
func (s *Service) Summary(ctx context.Context, accountID int64) (ledger.Summary, error) {
	return s.ledger.Summary(ctx, accountID)
}

// notify runs after commit; a delivery failure never undoes the money movement.
func (s *Service) notify(ctx context.Context, msg notification.Message) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		s.logger.Warn("notification failed", slog.String("kind", msg.Kind), slog.Any("error", err))
	}
}

func destination(accountID int64) string {
	return fmt.Sprintf("account:%d", accountID)
}

func money(d decimal.Decimal) string {
	return d.StringFixed(ledger.Scale)
}
