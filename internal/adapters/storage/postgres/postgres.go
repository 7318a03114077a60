package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"payment-gateway/internal/core/domain"
)

// Store is the PostgreSQL implementation of the PaymentStore port, the
// durable swap-in for the in-memory reference store.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a store from a DSN and verifies the connection.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Save implements the PaymentStore port. The primary key on id makes the
// uniqueness check atomic on the database side.
func (s *Store) Save(ctx context.Context, payment domain.Payment) error {
	const sql = `
		INSERT INTO payments
		    (id, status, masked_card_number, expiry_month, expiry_year, currency, amount, created_at)
		VALUES
		    ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.pool.Exec(ctx, sql,
		payment.ID,
		payment.Status,
		payment.MaskedCardNumber,
		payment.ExpiryMonth,
		payment.ExpiryYear,
		payment.Currency,
		payment.Amount,
		payment.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrDuplicatePaymentID
		}
		return fmt.Errorf("failed to save payment: %w", err)
	}

	return nil
}

// Get implements the PaymentStore port.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (domain.Payment, error) {
	const sql = `
		SELECT id, status, masked_card_number, expiry_month, expiry_year, currency, amount, created_at
		FROM payments
		WHERE id = $1
	`
	var payment domain.Payment
	err := s.pool.QueryRow(ctx, sql, id).Scan(
		&payment.ID,
		&payment.Status,
		&payment.MaskedCardNumber,
		&payment.ExpiryMonth,
		&payment.ExpiryYear,
		&payment.Currency,
		&payment.Amount,
		&payment.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Payment{}, domain.ErrPaymentNotFound
		}
		return domain.Payment{}, fmt.Errorf("failed to load payment: %w", err)
	}

	return payment, nil
}
