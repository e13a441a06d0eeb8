package customer

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/congo-pay/corebank/internal/infra"
)

// Repository persists customers.
type Repository interface {
	Create(ctx context.Context, customer Customer) (Customer, error)
	Get(ctx context.Context, id int64) (Customer, error)
	List(ctx context.Context) ([]Customer, error)
	// Update applies the non-nil fields of in in one statement.
	Update(ctx context.Context, id int64, in UpdateInput) (Customer, error)
	Delete(ctx context.Context, id int64) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed customer repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const columns = `cust_id, cust_name, cust_street, cust_city, created_at`

// Create inserts a customer and returns it with its assigned id.
func (r *PostgresRepository) Create(ctx context.Context, c Customer) (Customer, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO customers (cust_name, cust_street, cust_city)
        VALUES ($1, $2, $3) RETURNING `+columns, c.Name, c.Street, c.City)
	created, err := scan(row)
	if err != nil {
		return Customer{}, infra.Classify(err)
	}
	return created, nil
}

// Get fetches a customer by id.
func (r *PostgresRepository) Get(ctx context.Context, id int64) (Customer, error) {
	c, err := scan(r.db.QueryRow(ctx, `SELECT `+columns+` FROM customers WHERE cust_id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, fmt.Errorf("customer %d: %w", id, ErrCustomerNotFound)
		}
		return Customer{}, infra.Classify(err)
	}
	return c, nil
}

// List returns all customers by ascending id.
func (r *PostgresRepository) List(ctx context.Context) ([]Customer, error) {
	rows, err := r.db.Query(ctx, `SELECT `+columns+` FROM customers ORDER BY cust_id`)
	if err != nil {
		return nil, infra.Classify(err)
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		c, err := scan(rows)
		if err != nil {
			return nil, infra.Classify(err)
		}
		out = append(out, c)
	}
	return out, infra.Classify(rows.Err())
}

// Update overwrites only the columns whose input field is set.
func (r *PostgresRepository) Update(ctx context.Context, id int64, in UpdateInput) (Customer, error) {
	c, err := scan(r.db.QueryRow(ctx, `UPDATE customers SET
            cust_name = COALESCE($2, cust_name),
            cust_street = COALESCE($3, cust_street),
            cust_city = COALESCE($4, cust_city)
        WHERE cust_id = $1 RETURNING `+columns, id, in.Name, in.Street, in.City))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, fmt.Errorf("customer %d: %w", id, ErrCustomerNotFound)
		}
		return Customer{}, infra.Classify(err)
	}
	return c, nil
}

// Delete removes a customer. It fails while accounts or loans still reference it.
func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM customers WHERE cust_id = $1`, id)
	if err != nil {
		return infra.Classify(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("customer %d: %w", id, ErrCustomerNotFound)
	}
	return nil
}

func scan(row pgx.Row) (Customer, error) {
	var c Customer
	if err := row.Scan(&c.ID, &c.Name, &c.Street, &c.City, &c.CreatedAt); err != nil {
		return Customer{}, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return c, nil
}
