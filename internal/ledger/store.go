package ledger

import (
	"context"
	"errors"
	"sort"

	"github.com/shopspring/decimal"
)

var (
	errAlreadyLocked = errors.New("ledger: accounts already locked in this unit of work")
	errNotLocked     = errors.New("ledger: account must be locked before applying a delta")
	errTxClosed      = errors.New("ledger: unit of work already finished")
)

// Tx is a single unit of work against the ledger. Nothing it stages is visible to
// other readers until Commit succeeds; Rollback discards everything and releases
// every lock. Rollback after Commit is a no-op.
type Tx interface {
	// Lock takes exclusive access to the given accounts in ascending id order,
	// whatever order they are passed in. It may be called once per unit of work
	// and fails with ErrAccountNotFound if any account is missing.
	Lock(ctx context.Context, ids ...int64) error
	// Read returns the balance as seen by this unit of work.
	Read(ctx context.Context, id int64) (decimal.Decimal, error)
	// ApplyDelta adds a signed delta to a locked account. It fails with
	// ErrInsufficientFunds iff the delta is negative and exceeds the balance.
	ApplyDelta(ctx context.Context, id int64, delta decimal.Decimal) (decimal.Decimal, error)
	// Append stages a record, assigning its ID and Timestamp.
	Append(ctx context.Context, rec Record) (Record, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Store is the durable ledger: account balances plus the transaction log.
// All reads return committed state only.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
	OpenAccount(ctx context.Context, acct Account) (Account, error)
	Account(ctx context.Context, id int64) (Account, error)
	Accounts(ctx context.Context) ([]Account, error)
	// UpdateBranch renames an account's branch. Balances are never touched.
	UpdateBranch(ctx context.Context, id int64, branch string) (Account, error)
	// ListByAccount returns the account and its records, newest first, from one
	// consistent snapshot.
	ListByAccount(ctx context.Context, id int64) (Account, []Record, error)
	// ListAll returns every record, newest first.
	ListAll(ctx context.Context) ([]Record, error)
}

// lockOrder returns ids deduplicated in ascending order, the one global order every
// unit of work acquires account locks in.
func lockOrder(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// newestFirst orders records by timestamp descending, then id descending.
func newestFirst(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].Timestamp.Equal(records[j].Timestamp) {
			return records[i].Timestamp.After(records[j].Timestamp)
		}
		return records[i].ID > records[j].ID
	})
}

// applyDelta holds the shared insufficient-funds and balance-limit rules.
func applyDelta(current, delta decimal.Decimal) (decimal.Decimal, error) {
	if delta.IsNegative() && delta.Abs().GreaterThan(current) {
		return current, ErrInsufficientFunds
	}
	next := current.Add(delta)
	if !next.LessThan(MaxAmount) {
		return current, ErrBalanceLimit
	}
	return next, nil
}
