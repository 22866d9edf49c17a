package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/fortuna/syndicate/internal/logger"
	"github.com/fortuna/syndicate/internal/payments"
	"github.com/fortuna/syndicate/internal/store"
)

// ErrSessionNotOwned is returned when a user polls someone else's checkout
var ErrSessionNotOwned = errors.New("checkout session belongs to another user")

// CheckoutProvider creates and verifies payment sessions
type CheckoutProvider interface {
	CreateSession(ctx context.Context, req payments.SessionRequest) (*payments.Session, error)
	GetSession(ctx context.Context, id string) (*payments.Session, error)
	ParseWebhook(payload []byte, signature string) (*payments.Session, error)
}

// PaymentRepo is the transaction persistence SubscriptionService needs
type PaymentRepo interface {
	Create(ctx context.Context, tx store.PaymentTransaction) (*store.PaymentTransaction, error)
	GetBySession(ctx context.Context, sessionID string) (*store.PaymentTransaction, error)
	MarkPaid(ctx context.Context, sessionID string) (bool, error)
}

// VIPActivator grants VIP access
type VIPActivator interface {
	ActivateVIP(ctx context.Context, userID, subscriptionID string) error
}

// Checkout is returned when a session is opened
type Checkout struct {
	URL       string `json:"url"`
	SessionID string `json:"session_id"`
}

// SubscriptionService runs the VIP checkout flow
type SubscriptionService struct {
	provider CheckoutProvider
	payments PaymentRepo
	users    VIPActivator
}

// NewSubscriptionService creates a new subscription service
func NewSubscriptionService(provider CheckoutProvider, payments PaymentRepo, users VIPActivator) *SubscriptionService {
	return &SubscriptionService{provider: provider, payments: payments, users: users}
}

// CreateCheckout opens a checkout session and records it as pending
func (s *SubscriptionService) CreateCheckout(ctx context.Context, user *store.User, origin string) (*Checkout, error) {
	session, err := s.provider.CreateSession(ctx, payments.SessionRequest{
		UserID: user.ID,
		Email:  user.Email,
		Origin: origin,
	})
	if err != nil {
		return nil, err
	}

	_, err = s.payments.Create(ctx, store.PaymentTransaction{
		SessionID: session.ID,
		UserID:    user.ID,
		UserEmail: user.Email,
		Amount:    payments.VIPAmount,
		Currency:  payments.VIPCurrency,
	})
	if err != nil {
		return nil, fmt.Errorf("recording transaction: %w", err)
	}

	logger.Info(ctx).Str("user_id", user.ID).Str("session_id", session.ID).Msg("Checkout session created")
	return &Checkout{URL: session.URL, SessionID: session.ID}, nil
}

// Status polls the provider and settles the transaction once paid
func (s *SubscriptionService) Status(ctx context.Context, user *store.User, sessionID string) (*payments.Session, error) {
	tx, err := s.payments.GetBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if tx.UserID != user.ID {
		return nil, ErrSessionNotOwned
	}

	session, err := s.provider.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Paid() {
		if err := s.settle(ctx, tx); err != nil {
			return nil, err
		}
	}
	return session, nil
}

// HandleWebhook settles the transaction named by a verified provider event
func (s *SubscriptionService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	session, err := s.provider.ParseWebhook(payload, signature)
	if err != nil {
		return err
	}
	if !session.Paid() {
		return nil
	}

	tx, err := s.payments.GetBySession(ctx, session.ID)
	if err != nil {
		return err
	}
	return s.settle(ctx, tx)
}

// settle grants VIP for a paid transaction. Activation is idempotent and runs
// before the transaction is marked paid.
func (s *SubscriptionService) settle(ctx context.Context, tx *store.PaymentTransaction) error {
	if tx.PaymentStatus == store.PaymentPaid {
		return nil
	}

	if err := s.users.ActivateVIP(ctx, tx.UserID, tx.SessionID); err != nil {
		return fmt.Errorf("activating vip: %w", err)
	}

	changed, err := s.payments.MarkPaid(ctx, tx.SessionID)
	if err != nil {
		return err
	}
	if changed {
		logger.Info(ctx).Str("user_id", tx.UserID).Str("session_id", tx.SessionID).Msg("VIP activated")
	}
	return nil
}
