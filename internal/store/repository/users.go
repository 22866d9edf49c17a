package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fortuna/syndicate/internal/store"
)

const userColumns = `id, email, name, password_hash, is_vip, is_admin,
	subscription_status, subscription_id, created_at`

// UserRepository handles user data access
type UserRepository struct {
	db *store.Database
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *store.Database) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user; an email already registered yields store.ErrDuplicate
func (r *UserRepository) Create(ctx context.Context, email, name, passwordHash string) (*store.User, error) {
	query := `
		INSERT INTO users (email, name, password_hash)
		VALUES ($1, $2, $3)
		RETURNING ` + userColumns

	user, err := scanUser(r.db.DB().QueryRowContext(ctx, query, email, name, passwordHash))
	if store.IsUniqueViolation(err) {
		return nil, fmt.Errorf("inserting user: %w", store.ErrDuplicate)
	}
	if err != nil {
		return nil, fmt.Errorf("inserting user: %w", err)
	}
	return user, nil
}

// GetByID finds a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*store.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByEmail finds a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*store.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg string) (*store.User, error) {
	user, err := scanUser(r.db.DB().QueryRowContext(ctx, query, arg))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", arg, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return user, nil
}

// SetAdmin grants the admin flag
func (r *UserRepository) SetAdmin(ctx context.Context, id string) error {
	return r.exec(ctx, `UPDATE users SET is_admin = TRUE WHERE id = $1`, id)
}

// ActivateVIP grants VIP access tied to a checkout session
func (r *UserRepository) ActivateVIP(ctx context.Context, id, subscriptionID string) error {
	return r.exec(ctx, `
		UPDATE users
		SET is_vip = TRUE, subscription_status = 'active', subscription_id = $2
		WHERE id = $1`, id, subscriptionID)
}

func (r *UserRepository) exec(ctx context.Context, query string, args ...interface{}) error {
	res, err := r.db.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user: %w", store.ErrNotFound)
	}
	return nil
}

func scanUser(row rowScanner) (*store.User, error) {
	user := &store.User{}
	err := row.Scan(
		&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.IsVIP, &user.IsAdmin,
		&user.SubscriptionStatus, &user.SubscriptionID, &user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}
