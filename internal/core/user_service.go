package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"saastracker-backend/internal/cache"
	"saastracker-backend/internal/db"
	"saastracker-backend/internal/events"
	"saastracker-backend/internal/models"
)

// userService implements the UserService interface.
type userService struct {
	userRepo db.UserRepository
	cache    cache.Cache
	cacheTTL time.Duration
	events   events.Publisher
	now      func() time.Time
}

// NewUserService creates a new UserService instance. Reads go through userCache;
// writes invalidate it. A nil cache, publisher or clock falls back to a no-op or time.Now.
func NewUserService(userRepo db.UserRepository, userCache cache.Cache, cacheTTL time.Duration, pub events.Publisher, now func() time.Time) UserService {
	if userCache == nil {
		userCache = cache.Noop{}
	}
	if pub == nil {
		pub = events.Noop{}
	}
	if now == nil {
		now = utcNow
	}
	return &userService{userRepo: userRepo, cache: userCache, cacheTTL: cacheTTL, events: pub, now: now}
}

func utcNow() time.Time { return time.Now().UTC() }

func userCacheKey(id string) string { return "user:" + id }

func (s *userService) CreateWithClerk(ctx context.Context, req models.CreateUserRequest) (string, error) {
	if req.ClerkUserID == "" || req.Email == "" {
		return "", InvalidArgument("Missing required fields: clerkUserId and email")
	}

	now := s.now()
	user := &models.User{
		ID:          req.ClerkUserID,
		ClerkUserID: req.ClerkUserID,
		Email:       req.Email,
		FirstName:   deref(req.FirstName),
		LastName:    deref(req.LastName),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	created, err := s.create(ctx, user)
	if err != nil {
		return "", Internal("Error creating user", err)
	}
	if created {
		s.publish(ctx, events.UserCreated, user.ID, "")
	}
	return user.ID, nil
}

func (s *userService) GetWithClerk(ctx context.Context, clerkUserID string) (*models.User, error) {
	if clerkUserID == "" {
		return nil, InvalidArgument("Missing required field: clerkUserId")
	}
	user, err := s.get(ctx, clerkUserID)
	if err != nil {
		return nil, Internal("Error fetching user", err)
	}
	return user, nil
}

func (s *userService) UpdateWithClerk(ctx context.Context, req models.UpdateUserRequest) (*models.User, error) {
	if req.ClerkUserID == "" {
		return nil, InvalidArgument("Missing required field: clerkUserId")
	}
	if req.Email != nil && *req.Email == "" {
		return nil, InvalidArgument("Email cannot be empty")
	}
	patch := models.UserPatch{Email: req.Email, FirstName: req.FirstName, LastName: req.LastName}
	if patch.IsEmpty() {
		return nil, InvalidArgument("No fields to update")
	}

	if err := s.update(ctx, req.ClerkUserID, patch); err != nil {
		return nil, Internal("Error updating user", err)
	}
	s.publish(ctx, events.UserUpdated, req.ClerkUserID, "")

	user, err := s.get(ctx, req.ClerkUserID)
	if err != nil {
		return nil, Internal("Error fetching user", err)
	}
	return user, nil
}

func (s *userService) CreateForAuthUser(ctx context.Context, uid string, req models.AuthUserRequest) (*models.User, error) {
	if uid == "" {
		return nil, ErrUnauthenticated
	}

	now := s.now()
	user := &models.User{
		ID:        uid,
		Email:     req.Email,
		FirstName: deref(req.FirstName),
		LastName:  deref(req.LastName),
		CreatedAt: now,
		UpdatedAt: now,
	}
	created, err := s.create(ctx, user)
	if err != nil {
		return nil, Internal("Error creating user", err)
	}
	if !created {
		existing, err := s.get(ctx, uid)
		if err != nil {
			return nil, Internal("Error creating user", err)
		}
		return existing, nil
	}
	s.publish(ctx, events.UserCreated, uid, "")
	return user, nil
}

func (s *userService) GetForAuthUser(ctx context.Context, uid string) (*models.User, error) {
	if uid == "" {
		return nil, ErrUnauthenticated
	}
	user, err := s.get(ctx, uid)
	if err != nil {
		return nil, Internal("Error fetching user", err)
	}
	return user, nil
}

func (s *userService) SetStripeCustomerID(ctx context.Context, userID, customerID string) error {
	if err := s.update(ctx, userID, models.UserPatch{StripeCustomerID: &customerID}); err != nil {
		return Internal("Error linking billing customer", err)
	}
	return nil
}

// create reports whether the user was newly written. An existing document is not an error.
func (s *userService) create(ctx context.Context, user *models.User) (bool, error) {
	err := s.userRepo.Create(ctx, user)
	if errors.Is(err, db.ErrAlreadyExists) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *userService) get(ctx context.Context, id string) (*models.User, error) {
	key := userCacheKey(id)
	if raw, err := s.cache.Get(ctx, key); err == nil {
		var cached models.User
		if json.Unmarshal(raw, &cached) == nil {
			return &cached, nil
		}
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: user with ID '%s'", ErrUserNotFound, id)
		}
		return nil, err
	}

	if s.cacheTTL > 0 {
		if raw, err := json.Marshal(user); err == nil {
			_ = s.cache.Set(ctx, key, raw, s.cacheTTL)
		}
	}
	return user, nil
}

func (s *userService) update(ctx context.Context, id string, patch models.UserPatch) error {
	err := s.userRepo.Update(ctx, id, patch, s.now())
	_ = s.cache.Delete(ctx, userCacheKey(id))
	if errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("%w: user with ID '%s'", ErrUserNotFound, id)
	}
	return err
}

func (s *userService) publish(ctx context.Context, eventType, userID, resourceID string) {
	emit(ctx, s.events, events.Event{Type: eventType, UserID: userID, ResourceID: resourceID, OccurredAt: s.now()})
}

// emit publishes e. Delivery failures are logged by the publisher and never fail the write.
func emit(ctx context.Context, pub events.Publisher, e events.Event) {
	_ = pub.Publish(ctx, e)
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
