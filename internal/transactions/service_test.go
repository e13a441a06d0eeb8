package transactions

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/congo-pay/corebank/internal/ledger"
	"github.com/congo-pay/corebank/internal/logging"
	"github.com/congo-pay/corebank/internal/notification"
)

type testNotifier struct {
	sent []notification.Message
	err  error
}

func (n *testNotifier) Send(_ context.Context, msg notification.Message) error {
	n.sent = append(n.sent, msg)
	return n.err
}

func setup(t *testing.T, notifier notification.Notifier) (*Service, *ledger.Service) {
	t.Helper()
	led := ledger.NewService(ledger.NewInMemory(), ledger.RetryPolicy{MaxRetries: 1}, logging.Discard())
	return NewService(led, notifier, logging.Discard()), led
}

func open(t *testing.T, led *ledger.Service, opening int64) ledger.Account {
	t.Helper()
	acct, err := led.OpenAccount(context.Background(), "Main", 1, decimal.NewFromInt(opening))
	if err != nil {
		t.Fatalf("open account: %v", err)
	}
	return acct
}

func TestTransferNotifiesRecipient(t *testing.T) {
	notifier := &testNotifier{}
	svc, led := setup(t, notifier)
	ctx := context.Background()
	from := open(t, led, 100)
	to := open(t, led, 0)

	res, err := svc.Transfer(ctx, from.ID, to.ID, decimal.NewFromInt(40))
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if !res.From.Balance.Equal(decimal.NewFromInt(60)) || !res.To.Balance.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("unexpected balances: %+v", res)
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("expected one notification, got %d", len(notifier.sent))
	}
	if msg := notifier.sent[0]; msg.Kind != notification.KindTransfer || msg.Destination != destination(to.ID) {
		t.Fatalf("unexpected notification: %+v", msg)
	}
}

func TestFailedMovementSendsNothing(t *testing.T) {
	notifier := &testNotifier{}
	svc, led := setup(t, notifier)
	acct := open(t, led, 10)

	if _, err := svc.Withdraw(context.Background(), acct.ID, decimal.NewFromInt(11)); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if len(notifier.sent) != 0 {
		t.Fatalf("expected no notification, got %+v", notifier.sent)
	}
}

func TestNotificationFailureKeepsCommit(t *testing.T) {
	notifier := &testNotifier{err: errors.New("smtp down")}
	svc, led := setup(t, notifier)
	ctx := context.Background()
	acct := open(t, led, 0)

	if _, err := svc.Deposit(ctx, acct.ID, decimal.NewFromInt(5)); err != nil {
		t.Fatalf("deposit should succeed despite notifier failure: %v", err)
	}
	records, err := svc.History(ctx, acct.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(records) != 1 || records[0].Kind != ledger.KindDeposit {
		t.Fatalf("unexpected history: %+v", records)
	}
}

func TestNilNotifier(t *testing.T) {
	svc, led := setup(t, nil)
	acct := open(t, led, 0)
	if _, err := svc.Deposit(context.Background(), acct.ID, decimal.NewFromInt(1)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
}
