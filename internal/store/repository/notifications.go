package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fortuna/syndicate/internal/store"
)

// NotificationRepository handles notifications and push subscriptions
type NotificationRepository struct {
	db *store.Database
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *store.Database) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create stores a sent notification
func (r *NotificationRepository) Create(ctx context.Context, title, body, notificationType, sentBy string) (*store.Notification, error) {
	query := `
		INSERT INTO notifications (title, body, notification_type, sent_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, title, body, notification_type, sent_at, sent_by`

	n := &store.Notification{}
	err := r.db.DB().QueryRowContext(ctx, query, title, body, notificationType, sentBy).Scan(
		&n.ID, &n.Title, &n.Body, &n.NotificationType, &n.SentAt, &n.SentBy,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting notification: %w", err)
	}
	return n, nil
}

// Recent returns the newest notifications first
func (r *NotificationRepository) Recent(ctx context.Context, limit int) ([]*store.Notification, error) {
	query := `
		SELECT id, title, body, notification_type, sent_at, sent_by
		FROM notifications
		ORDER BY sent_at DESC
		LIMIT $1`

	rows, err := r.db.DB().QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying notifications: %w", err)
	}
	defer rows.Close()

	notifications := make([]*store.Notification, 0)
	for rows.Next() {
		n := &store.Notification{}
		if err := rows.Scan(&n.ID, &n.Title, &n.Body, &n.NotificationType, &n.SentAt, &n.SentBy); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}

// Subscribe upserts the user's push subscription
func (r *NotificationRepository) Subscribe(ctx context.Context, userID, endpoint string, keys json.RawMessage) (*store.NotificationSubscription, error) {
	if len(keys) == 0 {
		keys = json.RawMessage(`{}`)
	}

	query := `
		INSERT INTO notification_subscriptions (user_id, endpoint, keys)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET endpoint = EXCLUDED.endpoint, keys = EXCLUDED.keys, subscribed_at = NOW()
		RETURNING user_id, endpoint, keys, subscribed_at`

	sub := &store.NotificationSubscription{}
	var rawKeys []byte
	err := r.db.DB().QueryRowContext(ctx, query, userID, endpoint, string(keys)).Scan(
		&sub.UserID, &sub.Endpoint, &rawKeys, &sub.SubscribedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("upserting subscription: %w", err)
	}
	sub.Keys = rawKeys
	return sub, nil
}

// Unsubscribe removes the user's push subscription, if any
func (r *NotificationRepository) Unsubscribe(ctx context.Context, userID string) error {
	if _, err := r.db.DB().ExecContext(ctx, `DELETE FROM notification_subscriptions WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("deleting subscription: %w", err)
	}
	return nil
}

// GetSubscription returns the user's subscription or store.ErrNotFound
func (r *NotificationRepository) GetSubscription(ctx context.Context, userID string) (*store.NotificationSubscription, error) {
	query := `
		SELECT user_id, endpoint, keys, subscribed_at
		FROM notification_subscriptions
		WHERE user_id = $1`

	sub := &store.NotificationSubscription{}
	var rawKeys []byte
	err := r.db.DB().QueryRowContext(ctx, query, userID).Scan(&sub.UserID, &sub.Endpoint, &rawKeys, &sub.SubscribedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("subscription for %s: %w", userID, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying subscription: %w", err)
	}
	sub.Keys = rawKeys
	return sub, nil
}

// CountSubscribers returns the number of push subscriptions
func (r *NotificationRepository) CountSubscribers(ctx context.Context) (int, error) {
	var count int
	if err := r.db.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM notification_subscriptions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting subscribers: %w", err)
	}
	return count, nil
}
