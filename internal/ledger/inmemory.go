package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
)

// InMemoryStore is a concurrency-safe Store for tests and development mode.
// Every account owns a one-slot channel used as its row lock, so waiters block
// until the holder finishes (or their context ends) and are served roughly in
// arrival order.
type InMemoryStore struct {
	mu          sync.RWMutex
	accounts    map[int64]*memAccount
	records     []Record
	nextAccount int64
	nextRecord  atomic.Int64
	now         func() time.Time
}

type memAccount struct {
	Account
	lock chan struct{}
}

// NewInMemory creates an empty in-memory ledger.
func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		accounts: make(map[int64]*memAccount),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *InMemoryStore) Begin(ctx context.Context) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &memTx{store: s, balances: make(map[int64]decimal.Decimal)}, nil
}

func (s *InMemoryStore) OpenAccount(_ context.Context, acct Account) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextAccount++
	acct.ID = s.nextAccount
	acct.Balance = acct.OpeningBalance
	acct.CreatedAt = s.now()
	s.accounts[acct.ID] = &memAccount{Account: acct, lock: make(chan struct{}, 1)}
	return acct, nil
}

func (s *InMemoryStore) Account(_ context.Context, id int64) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return Account{}, fmt.Errorf("account %d: %w", id, ErrAccountNotFound)
	}
	return a.Account, nil
}

func (s *InMemoryStore) Accounts(_ context.Context) ([]Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a.Account)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *InMemoryStore) UpdateBranch(_ context.Context, id int64, branch string) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return Account{}, fmt.Errorf("account %d: %w", id, ErrAccountNotFound)
	}
	a.Branch = branch
	return a.Account, nil
}

func (s *InMemoryStore) ListByAccount(_ context.Context, id int64) (Account, []Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return Account{}, nil, fmt.Errorf("account %d: %w", id, ErrAccountNotFound)
	}
	var out []Record
	for _, rec := range s.records {
		if rec.AccountID == id {
			out = append(out, rec)
		}
	}
	newestFirst(out)
	return a.Account, out, nil
}

func (s *InMemoryStore) ListAll(_ context.Context) ([]Record, error) {
	s.mu.RLock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	s.mu.RUnlock()
	newestFirst(out)
	return out, nil
}

type memTx struct {
	store    *InMemoryStore
	held     []*memAccount
	balances map[int64]decimal.Decimal
	records  []Record
	closed   bool
}

func (t *memTx) Lock(ctx context.Context, ids ...int64) error {
	if t.closed {
		return errTxClosed
	}
	if len(t.held) > 0 {
		return errAlreadyLocked
	}

	ordered := lockOrder(ids)
	accts := make([]*memAccount, 0, len(ordered))
	t.store.mu.RLock()
	for _, id := range ordered {
		a, ok := t.store.accounts[id]
		if !ok {
			t.store.mu.RUnlock()
			return fmt.Errorf("account %d: %w", id, ErrAccountNotFound)
		}
		accts = append(accts, a)
	}
	t.store.mu.RUnlock()

	for _, a := range accts {
		select {
		case a.lock <- struct{}{}:
			t.held = append(t.held, a)
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	// Balances are only final once the lock is held.
	t.store.mu.RLock()
	for _, a := range t.held {
		t.balances[a.ID] = a.Balance
	}
	t.store.mu.RUnlock()
	return nil
}

func (t *memTx) Read(ctx context.Context, id int64) (decimal.Decimal, error) {
	if t.closed {
		return decimal.Decimal{}, errTxClosed
	}
	if bal, ok := t.balances[id]; ok {
		return bal, nil
	}
	acct, err := t.store.Account(ctx, id)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return acct.Balance, nil
}

func (t *memTx) ApplyDelta(ctx context.Context, id int64, delta decimal.Decimal) (decimal.Decimal, error) {
	if t.closed {
		return decimal.Decimal{}, errTxClosed
	}
	current, ok := t.balances[id]
	if !ok {
		if _, err := t.store.Account(ctx, id); err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.Decimal{}, errNotLocked
	}
	next, err := applyDelta(current, delta)
	if err != nil {
		return current, err
	}
	t.balances[id] = next
	return next, nil
}

func (t *memTx) Append(_ context.Context, rec Record) (Record, error) {
	if t.closed {
		return Record{}, errTxClosed
	}
	rec.ID = t.store.nextRecord.Add(1)
	rec.Timestamp = t.store.now()
	t.records = append(t.records, rec)
	return rec, nil
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.closed {
		return errTxClosed
	}
	if err := ctx.Err(); err != nil {
		t.finish()
		return err
	}

	t.store.mu.Lock()
	for _, a := range t.held {
		a.Balance = t.balances[a.ID]
	}
	t.store.records = append(t.store.records, t.records...)
	t.store.mu.Unlock()

	t.finish()
	return nil
}

func (t *memTx) Rollback(_ context.Context) error {
	if !t.closed {
		t.finish()
	}
	return nil
}

func (t *memTx) finish() {
	for i := len(t.held) - 1; i >= 0; i-- {
		<-t.held[i].lock
	}
	t.held = nil
	t.balances = nil
	t.records = nil
	t.closed = true
}
