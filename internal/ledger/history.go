package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// History returns the account's records, newest first.
func (s *Service) History(ctx context.Context, accountID int64) (Account, []Record, error) {
	return s.store.ListByAccount(ctx, accountID)
}

// AllHistory returns every committed record, newest first.
func (s *Service) AllHistory(ctx context.Context) ([]Record, error) {
	return s.store.ListAll(ctx)
}

// Totals aggregates the records of one kind.
type Totals struct {
	Count  int
	Amount decimal.Decimal
}

func (t *Totals) add(amount decimal.Decimal) {
	t.Count++
	t.Amount = t.Amount.Add(amount)
}

// Summary is derived entirely from an account's records.
type Summary struct {
	Account      Account
	Deposits     Totals
	Withdrawals  Totals
	TransfersIn  Totals
	TransfersOut Totals
	Records      int
	// NetChange is the signed sum of every record.
	NetChange decimal.Decimal
}

// Summary aggregates the account's history per record kind.
func (s *Service) Summary(ctx context.Context, accountID int64) (Summary, error) {
	acct, records, err := s.store.ListByAccount(ctx, accountID)
	if err != nil {
		return Summary{}, err
	}
	sum := Summarize(records)
	sum.Account = acct
	return sum, nil
}

// Summarize folds records into per-kind totals.
func Summarize(records []Record) Summary {
	var sum Summary
	for _, rec := range records {
		switch rec.Kind {
		case KindDeposit:
			sum.Deposits.add(rec.Amount)
		case KindWithdrawal:
			sum.Withdrawals.add(rec.Amount)
		case KindTransferIn:
			sum.TransfersIn.add(rec.Amount)
		case KindTransferOut:
			sum.TransfersOut.add(rec.Amount)
		default:
			continue
		}
		sum.Records++
		sum.NetChange = sum.NetChange.Add(rec.Kind.Signed(rec.Amount))
	}
	return sum
}

// Reconciliation compares the stored balance with the one implied by the log.
type Reconciliation struct {
	AccountID      int64
	OpeningBalance decimal.Decimal
	Balance        decimal.Decimal
	Computed       decimal.Decimal
	Records        int
	Balanced       bool
}

// Reconcile recomputes OpeningBalance plus the signed sum of the account's records
// and reports whether it matches the stored balance.
func (s *Service) Reconcile(ctx context.Context, accountID int64) (Reconciliation, error) {
	acct, records, err := s.store.ListByAccount(ctx, accountID)
	if err != nil {
		return Reconciliation{}, err
	}
	sum := Summarize(records)
	computed := acct.OpeningBalance.Add(sum.NetChange)
	return Reconciliation{
		AccountID:      acct.ID,
		OpeningBalance: acct.OpeningBalance,
		Balance:        acct.Balance,
		Computed:       computed,
		Records:        sum.Records,
		Balanced:       computed.Equal(acct.Balance),
	}, nil
}
