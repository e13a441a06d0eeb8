package loan

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/corebank/internal/infra"
)

// Repository persists loans. Update runs fn on the loan while holding it
// exclusively and stores the result only when fn succeeds.
type Repository interface {
	Create(ctx context.Context, loan Loan) (Loan, error)
	Get(ctx context.Context, id int64) (Loan, error)
	List(ctx context.Context) ([]Loan, error)
	ListByStatus(ctx context.Context, status Status) ([]Loan, error)
	Update(ctx context.Context, id int64, fn func(*Loan) error) (Loan, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed loan repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const columns = `loan_no, branch_name, amount::text, status, installments_remaining, cust_id, created_at`

// Create inserts a loan application.
func (r *PostgresRepository) Create(ctx context.Context, l Loan) (Loan, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO loans (branch_name, amount, status, installments_remaining, cust_id)
        VALUES ($1, $2::numeric, $3, $4, $5) RETURNING `+columns,
		l.Branch, l.Amount.StringFixed(scale), string(l.Status), l.InstallmentsRemaining, l.CustomerID)
	created, err := scan(row)
	if err != nil {
		return Loan{}, infra.Classify(err)
	}
	return created, nil
}

// Get fetches a loan by number.
func (r *PostgresRepository) Get(ctx context.Context, id int64) (Loan, error) {
	return get(ctx, r.db, id, "")
}

// List returns every loan by ascending number.
func (r *PostgresRepository) List(ctx context.Context) ([]Loan, error) {
	return r.query(ctx, `SELECT `+columns+` FROM loans ORDER BY loan_no`)
}

// ListByStatus returns the loans in one status.
func (r *PostgresRepository) ListByStatus(ctx context.Context, status Status) ([]Loan, error) {
	return r.query(ctx, `SELECT `+columns+` FROM loans WHERE status = $1 ORDER BY loan_no`, string(status))
}

// Update locks the loan row with SELECT ... FOR UPDATE, applies fn and writes
// the mutable fields back in the same transaction.
func (r *PostgresRepository) Update(ctx context.Context, id int64, fn func(*Loan) error) (Loan, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return Loan{}, infra.Classify(err)
	}
	defer tx.Rollback(context.WithoutCancel(ctx)) // nolint:errcheck

	l, err := get(ctx, tx, id, " FOR UPDATE")
	if err != nil {
		return Loan{}, err
	}
	if err := fn(&l); err != nil {
		return Loan{}, err
	}
	if _, err := tx.Exec(ctx, `UPDATE loans SET status = $2, installments_remaining = $3 WHERE loan_no = $1`,
		id, string(l.Status), l.InstallmentsRemaining); err != nil {
		return Loan{}, infra.Classify(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return Loan{}, infra.Classify(err)
	}
	return l, nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func get(ctx context.Context, q querier, id int64, suffix string) (Loan, error) {
	l, err := scan(q.QueryRow(ctx, `SELECT `+columns+` FROM loans WHERE loan_no = $1`+suffix, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Loan{}, fmt.Errorf("loan %d: %w", id, ErrLoanNotFound)
		}
		return Loan{}, infra.Classify(err)
	}
	return l, nil
}

func (r *PostgresRepository) query(ctx context.Context, sql string, args ...any) ([]Loan, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, infra.Classify(err)
	}
	defer rows.Close()

	var out []Loan
	for rows.Next() {
		l, err := scan(rows)
		if err != nil {
			return nil, infra.Classify(err)
		}
		out = append(out, l)
	}
	return out, infra.Classify(rows.Err())
}

func scan(row pgx.Row) (Loan, error) {
	var (
		l              Loan
		amount, status string
	)
	if err := row.Scan(&l.ID, &l.Branch, &amount, &status, &l.InstallmentsRemaining, &l.CustomerID, &l.CreatedAt); err != nil {
		return Loan{}, err
	}
	var err error
	if l.Amount, err = decimal.NewFromString(amount); err != nil {
		return Loan{}, fmt.Errorf("decode amount of loan %d: %w", l.ID, err)
	}
	if l.Status, err = ParseStatus(status); err != nil {
		return Loan{}, err
	}
	l.CreatedAt = l.CreatedAt.UTC()
	return l, nil
}
