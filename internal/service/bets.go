package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/fortuna/syndicate/internal/logger"
	"github.com/fortuna/syndicate/internal/publisher"
	"github.com/fortuna/syndicate/internal/store"
	"github.com/fortuna/syndicate/internal/store/repository"
)

// Listing limits
const (
	publicListLimit = 100
	adminListLimit  = 1000
)

// ErrInvalidInput wraps request validation failures
var ErrInvalidInput = errors.New("invalid input")

var validate = validator.New()

func validateStruct(v interface{}) error {
	if err := validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// BetRepo is the bet persistence BetService needs
type BetRepo interface {
	Create(ctx context.Context, in store.BetInput) (*store.Bet, error)
	GetByID(ctx context.Context, id string) (*store.Bet, error)
	Update(ctx context.Context, id string, u store.BetUpdate) (*store.Bet, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f repository.BetFilter) ([]*store.Bet, error)
}

// BetEventPublisher receives bet writes
type BetEventPublisher interface {
	PublishBetEvent(ctx context.Context, event publisher.BetEvent) error
}

// BetService handles bet business logic. It implements importer.BetStore.
type BetService struct {
	repo   BetRepo
	cache  Cache
	events BetEventPublisher
	now    func() time.Time
}

// NewBetService creates a new bet service. cache and events may be nil.
func NewBetService(repo BetRepo, cache Cache, events BetEventPublisher) *BetService {
	if cache == nil {
		cache = noopCache{}
	}
	return &BetService{repo: repo, cache: cache, events: events, now: time.Now}
}

// Create validates and stores a pending bet
func (s *BetService) Create(ctx context.Context, in store.BetInput) (*store.Bet, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	if in.KickOff.IsZero() {
		return nil, fmt.Errorf("%w: kick_off is required", ErrInvalidInput)
	}

	bet, err := s.repo.Create(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("creating bet: %w", err)
	}

	s.written(ctx, publisher.BetCreated, bet.ID, bet)
	return bet, nil
}

// Update applies a partial update
func (s *BetService) Update(ctx context.Context, id string, u store.BetUpdate) (*store.Bet, error) {
	if err := validateStruct(u); err != nil {
		return nil, err
	}

	bet, err := s.repo.Update(ctx, id, u)
	if err != nil {
		return nil, fmt.Errorf("updating bet: %w", err)
	}

	s.written(ctx, publisher.BetUpdated, bet.ID, bet)
	return bet, nil
}

// UpdateStatus settles a bet; it is Update under the importer's name
func (s *BetService) UpdateStatus(ctx context.Context, id string, u store.BetUpdate) (*store.Bet, error) {
	return s.Update(ctx, id, u)
}

// Delete removes a bet
func (s *BetService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting bet: %w", err)
	}

	s.written(ctx, publisher.BetDeleted, id, nil)
	return nil
}

// Get returns one bet
func (s *BetService) Get(ctx context.Context, id string) (*store.Bet, error) {
	return s.repo.GetByID(ctx, id)
}

// Today returns pending bets kicking off today (UTC) for the given tier
func (s *BetService) Today(ctx context.Context, vip bool) ([]*store.Bet, error) {
	return s.repo.List(ctx, repository.BetFilter{
		Date:     s.now().UTC().Format("2006-01-02"),
		Statuses: []string{store.StatusPending},
		IsVIP:    &vip,
		Limit:    publicListLimit,
	})
}

// Results returns settled bets for the given tier, newest first
func (s *BetService) Results(ctx context.Context, vip bool) ([]*store.Bet, error) {
	return s.repo.List(ctx, repository.BetFilter{
		Statuses: []string{store.StatusWon, store.StatusLost},
		IsVIP:    &vip,
		Desc:     true,
		Limit:    publicListLimit,
	})
}

// All returns every bet for the admin view, newest first
func (s *BetService) All(ctx context.Context) ([]*store.Bet, error) {
	return s.repo.List(ctx, repository.BetFilter{Desc: true, Limit: adminListLimit})
}

// written invalidates cached stats and publishes the event. Both are best
// effort: the write already succeeded.
func (s *BetService) written(ctx context.Context, kind, id string, bet *store.Bet) {
	if err := s.cache.Delete(ctx, statsCacheKey); err != nil {
		logger.Warn(ctx).Err(err).Msg("Failed to invalidate stats cache")
	}

	if s.events == nil {
		return
	}
	event := publisher.BetEvent{Kind: kind, BetID: id}
	if bet != nil {
		event.Bet = bet
	}
	if err := s.events.PublishBetEvent(ctx, event); err != nil {
		logger.Warn(ctx).Err(err).Str("bet_id", id).Str("kind", kind).Msg("Failed to publish bet event")
	}
}
