package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fortuna/syndicate/internal/logger"
	"github.com/fortuna/syndicate/internal/store"
)

const (
	adminNotificationLimit  = 50
	latestNotificationLimit = 10
)

// NotificationRepo is the persistence NotificationService needs
type NotificationRepo interface {
	Create(ctx context.Context, title, body, notificationType, sentBy string) (*store.Notification, error)
	Recent(ctx context.Context, limit int) ([]*store.Notification, error)
	Subscribe(ctx context.Context, userID, endpoint string, keys json.RawMessage) (*store.NotificationSubscription, error)
	Unsubscribe(ctx context.Context, userID string) error
	GetSubscription(ctx context.Context, userID string) (*store.NotificationSubscription, error)
	CountSubscribers(ctx context.Context) (int, error)
}

// NotificationPublisher appends sent notifications to a stream
type NotificationPublisher interface {
	PublishNotification(ctx context.Context, notification interface{}) error
}

// Broadcaster pushes raw messages to connected clients
type Broadcaster interface {
	Broadcast(data []byte)
}

// ChannelPoster posts text to the public channel
type ChannelPoster interface {
	PostText(ctx context.Context, text string) error
}

// SendInput is the admin send payload
type SendInput struct {
	Title            string `json:"title" validate:"required,max=120"`
	Body             string `json:"body" validate:"required,max=2000"`
	NotificationType string `json:"notification_type" validate:"omitempty,oneof=bets_live results custom"`
}

// SubscribeInput is a browser push subscription
type SubscribeInput struct {
	Endpoint string          `json:"endpoint" validate:"required,url"`
	Keys     json.RawMessage `json:"keys"`
}

// Delivery reports where a sent notification went
type Delivery struct {
	Notification *store.Notification `json:"notification"`
	Subscribers  int                 `json:"subscribers"`
	Channel      bool                `json:"posted_to_channel"`
}

// NotificationService stores notifications and fans them out
type NotificationService struct {
	repo        NotificationRepo
	stream      NotificationPublisher
	broadcaster Broadcaster
	poster      ChannelPoster
}

// NewNotificationService creates a new notification service. Any of the fan-out
// targets may be nil.
func NewNotificationService(repo NotificationRepo, stream NotificationPublisher, broadcaster Broadcaster, poster ChannelPoster) *NotificationService {
	return &NotificationService{repo: repo, stream: stream, broadcaster: broadcaster, poster: poster}
}

// Send stores the notification then delivers it to the stream, websocket
// clients and the channel. Delivery failures are logged, not returned.
func (s *NotificationService) Send(ctx context.Context, in SendInput, sentBy string) (*Delivery, error) {
	if in.NotificationType == "" {
		in.NotificationType = store.NotificationCustom
	}
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	n, err := s.repo.Create(ctx, in.Title, in.Body, in.NotificationType, sentBy)
	if err != nil {
		return nil, fmt.Errorf("storing notification: %w", err)
	}

	delivery := &Delivery{Notification: n}
	if count, err := s.repo.CountSubscribers(ctx); err == nil {
		delivery.Subscribers = count
	} else {
		logger.Warn(ctx).Err(err).Msg("Failed to count subscribers")
	}

	if s.stream != nil {
		if err := s.stream.PublishNotification(ctx, n); err != nil {
			logger.Warn(ctx).Err(err).Str("notification_id", n.ID).Msg("Failed to publish notification")
		}
	}
	if s.broadcaster != nil {
		if data, err := json.Marshal(map[string]interface{}{"type": "notification", "data": n}); err == nil {
			s.broadcaster.Broadcast(data)
		}
	}
	if s.poster != nil {
		if err := s.poster.PostText(ctx, n.Title+"\n\n"+n.Body); err != nil {
			logger.Warn(ctx).Err(err).Str("notification_id", n.ID).Msg("Failed to post notification to channel")
		} else {
			delivery.Channel = true
		}
	}

	logger.Info(ctx).
		Str("notification_id", n.ID).
		Str("type", n.NotificationType).
		Int("subscribers", delivery.Subscribers).
		Msg("Notification sent")
	return delivery, nil
}

// Subscribe stores or replaces the user's push subscription
func (s *NotificationService) Subscribe(ctx context.Context, userID string, in SubscribeInput) (*store.NotificationSubscription, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if len(in.Keys) > 0 && !json.Valid(in.Keys) {
		return nil, fmt.Errorf("%w: keys must be JSON", ErrInvalidInput)
	}
	return s.repo.Subscribe(ctx, userID, in.Endpoint, in.Keys)
}

// Unsubscribe drops the user's push subscription
func (s *NotificationService) Unsubscribe(ctx context.Context, userID string) error {
	return s.repo.Unsubscribe(ctx, userID)
}

// Subscribed reports whether the user has a push subscription
func (s *NotificationService) Subscribed(ctx context.Context, userID string) (bool, error) {
	_, err := s.repo.GetSubscription(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// History returns the admin view of sent notifications
func (s *NotificationService) History(ctx context.Context) ([]*store.Notification, error) {
	return s.repo.Recent(ctx, adminNotificationLimit)
}

// Latest returns the public feed of recent notifications
func (s *NotificationService) Latest(ctx context.Context) ([]*store.Notification, error) {
	return s.repo.Recent(ctx, latestNotificationLimit)
}

// SubscriberCount returns the number of push subscriptions
func (s *NotificationService) SubscriberCount(ctx context.Context) (int, error) {
	return s.repo.CountSubscribers(ctx)
}
