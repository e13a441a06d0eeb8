package infra

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied idempotently on startup. Money columns are NUMERIC so amounts
// round-trip exactly; the transaction log id is an identity column, which never
// hands out the same value twice even when the inserting transaction rolls back.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS customers (
        cust_id     BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
        cust_name   TEXT NOT NULL,
        cust_street TEXT NOT NULL DEFAULT '',
        cust_city   TEXT NOT NULL DEFAULT '',
        created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE TABLE IF NOT EXISTS accounts (
        acc_no          BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
        branch_name     TEXT NOT NULL,
        balance         NUMERIC(18,2) NOT NULL CHECK (balance >= 0),
        opening_balance NUMERIC(18,2) NOT NULL CHECK (opening_balance >= 0),
        cust_id         BIGINT NOT NULL REFERENCES customers (cust_id),
        created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
	`CREATE TABLE IF NOT EXISTS transactions (
        txn_id    BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
        acc_no    BIGINT NOT NULL REFERENCES accounts (acc_no),
        type      TEXT NOT NULL CHECK (type IN ('deposit', 'withdrawal', 'transfer_out', 'transfer_in')),
        amount    NUMERIC(18,2) NOT NULL CHECK (amount > 0),
        date_time TIMESTAMPTZ NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS transactions_acc_no_date_time_idx ON transactions (acc_no, date_time DESC)`,
	`CREATE TABLE IF NOT EXISTS loans (
        loan_no                BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
        branch_name            TEXT NOT NULL,
        amount                 NUMERIC(18,2) NOT NULL CHECK (amount > 0),
        status                 TEXT NOT NULL CHECK (status IN ('pending', 'approved')),
        installments_remaining INTEGER NOT NULL CHECK (installments_remaining >= 0),
        cust_id                BIGINT NOT NULL REFERENCES customers (cust_id),
        created_at             TIMESTAMPTZ NOT NULL DEFAULT now()
    )`,
}

// Migrate creates the tables the ledger, customer and loan stores rely on.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i, err)
		}
	}
	return nil
}
