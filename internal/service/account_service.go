package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gtmhq/gtm-advisor/internal/domain"
	"github.com/gtmhq/gtm-advisor/internal/events"
	"github.com/gtmhq/gtm-advisor/internal/repository"
)

// AccountService owns mutations of authorization-relevant user state. Every
// such mutation publishes an event so the cached snapshot gets evicted.
type AccountService struct {
	users      repository.UserRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAccountService builds the service.
func NewAccountService(users repository.UserRepository, dispatcher events.Dispatcher, logger *zap.Logger) *AccountService {
	return &AccountService{users: users, dispatcher: dispatcher, logger: logger}
}

// ChangeTier moves a user to a new subscription tier. The new quota applies
// on the user's next request.
func (s *AccountService) ChangeTier(ctx context.Context, userID string, tier domain.Tier) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	oldTier := user.Tier
	if oldTier == tier {
		return user, nil
	}

	user.Tier = tier
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventUserTierChanged,
		UserID:    user.ID,
		Timestamp: time.Now(),
		Payload:   events.TierChangedPayload{OldTier: oldTier, NewTier: tier},
	})
	return user, nil
}

// Deactivate disables an account. Outstanding tokens keep verifying
// cryptographically, but the identity resolver rejects them once the cached
// snapshot is evicted or refreshed.
func (s *AccountService) Deactivate(ctx context.Context, userID string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.Active {
		return nil
	}

	user.Active = false
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventUserDeactivated,
		UserID:    user.ID,
		Timestamp: time.Now(),
	})
	return nil
}

// IncrementUsage records one billable request against the daily counter.
func (s *AccountService) IncrementUsage(ctx context.Context, userID string) error {
	return s.users.IncrementUsage(ctx, userID, time.Now().UTC())
}

func (s *AccountService) publish(ctx context.Context, event events.Event) {
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event publish failed", zap.String("type", string(event.Type)), zap.Error(err))
	}
}
