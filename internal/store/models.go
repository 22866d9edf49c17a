package store

import (
	"encoding/json"
	"time"
)

// Bet statuses
const (
	StatusPending = "pending"
	StatusWon     = "won"
	StatusLost    = "lost"
)

// Bet is one published tip
type Bet struct {
	ID        string    `json:"id" db:"id"`
	HomeTeam  string    `json:"home_team" db:"home_team"`
	AwayTeam  string    `json:"away_team" db:"away_team"`
	League    string    `json:"league" db:"league"`
	BetType   string    `json:"bet_type" db:"bet_type"`
	Odds      float64   `json:"odds" db:"odds"`
	Stake     int       `json:"stake" db:"stake"`
	KickOff   time.Time `json:"kick_off" db:"kick_off"`
	Date      string    `json:"date" db:"date"`
	IsVIP     bool      `json:"is_vip" db:"is_vip"`
	Status    string    `json:"status" db:"status"`
	HomeScore *int      `json:"home_score,omitempty" db:"home_score"`
	AwayScore *int      `json:"away_score,omitempty" db:"away_score"`
	SourceRef *string   `json:"source_ref,omitempty" db:"source_ref"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// BetInput is the payload for creating a bet. New bets are always pending.
type BetInput struct {
	HomeTeam  string    `json:"home_team" validate:"required,max=120"`
	AwayTeam  string    `json:"away_team" validate:"required,max=120"`
	League    string    `json:"league" validate:"required,max=120"`
	BetType   string    `json:"bet_type" validate:"required,max=80"`
	Odds      float64   `json:"odds" validate:"gt=1"`
	Stake     int       `json:"stake" validate:"min=1,max=10"`
	KickOff   time.Time `json:"kick_off"`
	IsVIP     bool      `json:"is_vip"`
	SourceRef *string   `json:"source_ref,omitempty" validate:"omitempty,max=200"`
}

// BetUpdate is a partial update; nil fields are left unchanged
type BetUpdate struct {
	HomeTeam  *string    `json:"home_team,omitempty" validate:"omitempty,max=120"`
	AwayTeam  *string    `json:"away_team,omitempty" validate:"omitempty,max=120"`
	League    *string    `json:"league,omitempty" validate:"omitempty,max=120"`
	BetType   *string    `json:"bet_type,omitempty" validate:"omitempty,max=80"`
	Odds      *float64   `json:"odds,omitempty" validate:"omitempty,gt=1"`
	Stake     *int       `json:"stake,omitempty" validate:"omitempty,min=1,max=10"`
	KickOff   *time.Time `json:"kick_off,omitempty"`
	IsVIP     *bool      `json:"is_vip,omitempty"`
	Status    *string    `json:"status,omitempty" validate:"omitempty,oneof=pending won lost"`
	HomeScore *int       `json:"home_score,omitempty" validate:"omitempty,min=0"`
	AwayScore *int       `json:"away_score,omitempty" validate:"omitempty,min=0"`
}

// Empty reports whether the update changes nothing
func (u BetUpdate) Empty() bool {
	return u.HomeTeam == nil && u.AwayTeam == nil && u.League == nil && u.BetType == nil &&
		u.Odds == nil && u.Stake == nil && u.KickOff == nil && u.IsVIP == nil &&
		u.Status == nil && u.HomeScore == nil && u.AwayScore == nil
}

// User is a registered account
type User struct {
	ID                 string    `json:"id" db:"id"`
	Email              string    `json:"email" db:"email"`
	Name               string    `json:"name" db:"name"`
	PasswordHash       string    `json:"-" db:"password_hash"`
	IsVIP              bool      `json:"is_vip" db:"is_vip"`
	IsAdmin            bool      `json:"is_admin" db:"is_admin"`
	SubscriptionStatus *string   `json:"subscription_status,omitempty" db:"subscription_status"`
	SubscriptionID     *string   `json:"subscription_id,omitempty" db:"subscription_id"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
}

// Notification types
const (
	NotificationBetsLive = "bets_live"
	NotificationResults  = "results"
	NotificationCustom   = "custom"
)

// Notification is a message sent by an admin to subscribers
type Notification struct {
	ID               string    `json:"id" db:"id"`
	Title            string    `json:"title" db:"title"`
	Body             string    `json:"body" db:"body"`
	NotificationType string    `json:"notification_type" db:"notification_type"`
	SentAt           time.Time `json:"sent_at" db:"sent_at"`
	SentBy           string    `json:"sent_by" db:"sent_by"`
}

// NotificationSubscription is a browser push subscription, one per user
type NotificationSubscription struct {
	UserID       string          `json:"user_id" db:"user_id"`
	Endpoint     string          `json:"endpoint" db:"endpoint"`
	Keys         json.RawMessage `json:"keys" db:"keys"`
	SubscribedAt time.Time       `json:"subscribed_at" db:"subscribed_at"`
}

// Payment statuses
const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
)

// PaymentTransaction tracks one checkout session
type PaymentTransaction struct {
	ID            string    `json:"id" db:"id"`
	SessionID     string    `json:"session_id" db:"session_id"`
	UserID        string    `json:"user_id" db:"user_id"`
	UserEmail     string    `json:"user_email" db:"user_email"`
	Amount        int64     `json:"amount" db:"amount"` // minor units
	Currency      string    `json:"currency" db:"currency"`
	PaymentStatus string    `json:"payment_status" db:"payment_status"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}
