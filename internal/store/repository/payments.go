package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fortuna/syndicate/internal/store"
)

// PaymentRepository handles checkout transactions
type PaymentRepository struct {
	db *store.Database
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *store.Database) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create records a pending transaction for a checkout session
func (r *PaymentRepository) Create(ctx context.Context, tx store.PaymentTransaction) (*store.PaymentTransaction, error) {
	query := `
		INSERT INTO payment_transactions (session_id, user_id, user_email, amount, currency, payment_status)
		VALUES ($1, $2, $3, $4, $5, 'pending')
		RETURNING id, session_id, user_id, user_email, amount, currency, payment_status, created_at`

	out := &store.PaymentTransaction{}
	err := r.db.DB().QueryRowContext(ctx, query, tx.SessionID, tx.UserID, tx.UserEmail, tx.Amount, tx.Currency).Scan(
		&out.ID, &out.SessionID, &out.UserID, &out.UserEmail, &out.Amount, &out.Currency, &out.PaymentStatus, &out.CreatedAt,
	)
	if store.IsUniqueViolation(err) {
		return nil, fmt.Errorf("inserting transaction: %w", store.ErrDuplicate)
	}
	if err != nil {
		return nil, fmt.Errorf("inserting transaction: %w", err)
	}
	return out, nil
}

// GetBySession finds the transaction for a checkout session
func (r *PaymentRepository) GetBySession(ctx context.Context, sessionID string) (*store.PaymentTransaction, error) {
	query := `
		SELECT id, session_id, user_id, user_email, amount, currency, payment_status, created_at
		FROM payment_transactions
		WHERE session_id = $1`

	out := &store.PaymentTransaction{}
	err := r.db.DB().QueryRowContext(ctx, query, sessionID).Scan(
		&out.ID, &out.SessionID, &out.UserID, &out.UserEmail, &out.Amount, &out.Currency, &out.PaymentStatus, &out.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", sessionID, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying transaction: %w", err)
	}
	return out, nil
}

// MarkPaid moves a transaction to paid. It reports false when the transaction
// was already paid, so callers grant access exactly once.
func (r *PaymentRepository) MarkPaid(ctx context.Context, sessionID string) (bool, error) {
	res, err := r.db.DB().ExecContext(ctx, `
		UPDATE payment_transactions
		SET payment_status = 'paid'
		WHERE session_id = $1 AND payment_status <> 'paid'`, sessionID)
	if err != nil {
		return false, fmt.Errorf("marking transaction paid: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("marking transaction paid: %w", err)
	}
	return n > 0, nil
}
