package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/corebank/internal/infra"
)

// PostgresStore persists balances and the transaction log in PostgreSQL. Row locks
// taken with SELECT ... FOR UPDATE give per-account serializability across every
// service instance sharing the database.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed ledger store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const (
	accountColumns = `acc_no, branch_name, balance::text, opening_balance::text, cust_id, created_at`
	recordColumns  = `txn_id, acc_no, type, amount::text, date_time`
)

type rowScanner interface {
	Scan(dest ...any) error
}

// Begin opens a READ COMMITTED transaction; isolation between writers comes from
// the row locks taken in Lock.
func (s *PostgresStore) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, infra.Classify(err)
	}
	return &pgTx{tx: tx, locked: make(map[int64]decimal.Decimal)}, nil
}

// OpenAccount inserts an account whose balance starts at its opening balance.
func (s *PostgresStore) OpenAccount(ctx context.Context, acct Account) (Account, error) {
	row := s.db.QueryRow(ctx, `INSERT INTO accounts (branch_name, balance, opening_balance, cust_id)
        VALUES ($1, $2::numeric, $2::numeric, $3)
        RETURNING `+accountColumns, acct.Branch, acct.OpeningBalance.StringFixed(Scale), acct.CustomerID)
	opened, err := scanAccount(row)
	if err != nil {
		return Account{}, infra.Classify(err)
	}
	return opened, nil
}

// Account returns the committed state of one account.
func (s *PostgresStore) Account(ctx context.Context, id int64) (Account, error) {
	return accountByID(ctx, s.db, id)
}

// Accounts lists every account by ascending number.
func (s *PostgresStore) Accounts(ctx context.Context) ([]Account, error) {
	rows, err := s.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY acc_no`)
	if err != nil {
		return nil, infra.Classify(err)
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, infra.Classify(err)
		}
		out = append(out, acct)
	}
	return out, infra.Classify(rows.Err())
}

// UpdateBranch sets branch_name only. It takes the row lock briefly, so it queues
// behind any unit of work holding the account.
func (s *PostgresStore) UpdateBranch(ctx context.Context, id int64, branch string) (Account, error) {
	acct, err := scanAccount(s.db.QueryRow(ctx, `UPDATE accounts SET branch_name = $2
        WHERE acc_no = $1 RETURNING `+accountColumns, id, branch))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, fmt.Errorf("account %d: %w", id, ErrAccountNotFound)
		}
		return Account{}, infra.Classify(err)
	}
	return acct, nil
}

// ListByAccount reads the account and its history inside one read-only
// REPEATABLE READ snapshot so the balance and the records agree.
func (s *PostgresStore) ListByAccount(ctx context.Context, id int64) (Account, []Record, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return Account{}, nil, infra.Classify(err)
	}
	defer tx.Rollback(context.WithoutCancel(ctx)) // nolint:errcheck

	acct, err := accountByID(ctx, tx, id)
	if err != nil {
		return Account{}, nil, err
	}
	records, err := queryRecords(ctx, tx, `SELECT `+recordColumns+` FROM transactions
        WHERE acc_no = $1 ORDER BY date_time DESC, txn_id DESC`, id)
	if err != nil {
		return Account{}, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Account{}, nil, infra.Classify(err)
	}
	return acct, records, nil
}

// ListAll returns the whole log, newest first.
func (s *PostgresStore) ListAll(ctx context.Context) ([]Record, error) {
	return queryRecords(ctx, s.db, `SELECT `+recordColumns+` FROM transactions ORDER BY date_time DESC, txn_id DESC`)
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func accountByID(ctx context.Context, q querier, id int64) (Account, error) {
	acct, err := scanAccount(q.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE acc_no = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, fmt.Errorf("account %d: %w", id, ErrAccountNotFound)
		}
		return Account{}, infra.Classify(err)
	}
	return acct, nil
}

func queryRecords(ctx context.Context, q querier, sql string, args ...any) ([]Record, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, infra.Classify(err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, infra.Classify(err)
		}
		out = append(out, rec)
	}
	return out, infra.Classify(rows.Err())
}

func scanAccount(row rowScanner) (Account, error) {
	var (
		acct             Account
		balance, opening string
	)
	if err := row.Scan(&acct.ID, &acct.Branch, &balance, &opening, &acct.CustomerID, &acct.CreatedAt); err != nil {
		return Account{}, err
	}
	var err error
	if acct.Balance, err = decimal.NewFromString(balance); err != nil {
		return Account{}, fmt.Errorf("decode balance of account %d: %w", acct.ID, err)
	}
	if acct.OpeningBalance, err = decimal.NewFromString(opening); err != nil {
		return Account{}, fmt.Errorf("decode opening balance of account %d: %w", acct.ID, err)
	}
	acct.CreatedAt = acct.CreatedAt.UTC()
	return acct, nil
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		rec          Record
		kind, amount string
	)
	if err := row.Scan(&rec.ID, &rec.AccountID, &kind, &amount, &rec.Timestamp); err != nil {
		return Record{}, err
	}
	var err error
	if rec.Kind, err = ParseKind(kind); err != nil {
		return Record{}, err
	}
	if rec.Amount, err = decimal.NewFromString(amount); err != nil {
		return Record{}, fmt.Errorf("decode amount of record %d: %w", rec.ID, err)
	}
	rec.Timestamp = rec.Timestamp.UTC()
	return rec, nil
}

type pgTx struct {
	tx     pgx.Tx
	locked map[int64]decimal.Decimal
}

func (t *pgTx) Lock(ctx context.Context, ids ...int64) error {
	if len(t.locked) > 0 {
		return errAlreadyLocked
	}
	// One row at a time, ascending, so two units of work touching the same pair
	// always queue on the lower id first.
	for _, id := range lockOrder(ids) {
		var raw string
		if err := t.tx.QueryRow(ctx, `SELECT balance::text FROM accounts WHERE acc_no = $1 FOR UPDATE`, id).Scan(&raw); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("account %d: %w", id, ErrAccountNotFound)
			}
			return infra.Classify(err)
		}
		balance, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("decode balance of account %d: %w", id, err)
		}
		t.locked[id] = balance
	}
	return nil
}

func (t *pgTx) Read(ctx context.Context, id int64) (decimal.Decimal, error) {
	if balance, ok := t.locked[id]; ok {
		return balance, nil
	}
	var raw string
	if err := t.tx.QueryRow(ctx, `SELECT balance::text FROM accounts WHERE acc_no = $1`, id).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Decimal{}, fmt.Errorf("account %d: %w", id, ErrAccountNotFound)
		}
		return decimal.Decimal{}, infra.Classify(err)
	}
	return decimal.NewFromString(raw)
}

func (t *pgTx) ApplyDelta(ctx context.Context, id int64, delta decimal.Decimal) (decimal.Decimal, error) {
	current, ok := t.locked[id]
	if !ok {
		if _, err := t.Read(ctx, id); err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.Decimal{}, errNotLocked
	}
	if _, err := applyDelta(current, delta); err != nil {
		return current, err
	}

	var raw string
	if err := t.tx.QueryRow(ctx, `UPDATE accounts SET balance = balance + $2::numeric
        WHERE acc_no = $1 RETURNING balance::text`, id, delta.StringFixed(Scale)).Scan(&raw); err != nil {
		return current, infra.Classify(err)
	}
	next, err := decimal.NewFromString(raw)
	if err != nil {
		return current, fmt.Errorf("decode balance of account %d: %w", id, err)
	}
	t.locked[id] = next
	return next, nil
}

func (t *pgTx) Append(ctx context.Context, rec Record) (Record, error) {
	if err := t.tx.QueryRow(ctx, `INSERT INTO transactions (acc_no, type, amount, date_time)
        VALUES ($1, $2, $3::numeric, clock_timestamp())
        RETURNING txn_id, date_time`, rec.AccountID, rec.Kind.String(), rec.Amount.StringFixed(Scale)).Scan(&rec.ID, &rec.Timestamp); err != nil {
		return Record{}, infra.Classify(err)
	}
	rec.Timestamp = rec.Timestamp.UTC()
	return rec, nil
}

func (t *pgTx) Commit(ctx context.Context) error {
	return infra.Classify(t.tx.Commit(ctx))
}

func (t *pgTx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return infra.Classify(err)
	}
	return nil
}
