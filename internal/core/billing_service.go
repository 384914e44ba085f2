package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"saastracker-backend/internal/db"
	"saastracker-backend/internal/events"
	"saastracker-backend/internal/models"
)

type billingService struct {
	users    UserService
	subs     db.SubscriptionRepository
	payments PaymentProvider
	events   events.Publisher
	now      func() time.Time
}

// NewBillingService creates a BillingService over the given payment provider.
func NewBillingService(users UserService, subs db.SubscriptionRepository, payments PaymentProvider, pub events.Publisher, now func() time.Time) BillingService {
	if pub == nil {
		pub = events.Noop{}
	}
	if now == nil {
		now = utcNow
	}
	return &billingService{users: users, subs: subs, payments: payments, events: pub, now: now}
}

// CreateSubscription creates the provider customer on first use, starts a subscription
// for priceID with payment left incomplete, and mirrors it locally.
func (s *billingService) CreateSubscription(ctx context.Context, uid, priceID string) (*SubscriptionResult, error) {
	if uid == "" {
		return nil, ErrUnauthenticated
	}
	if priceID == "" {
		return nil, InvalidArgument("Missing required field: priceId")
	}

	user, err := s.users.GetForAuthUser(ctx, uid)
	if err != nil {
		return nil, Internal("Error creating subscription", err)
	}

	customerID := user.StripeCustomerID
	if customerID == "" {
		customerID, err = s.payments.CreateCustomer(ctx, user.Email, uid)
		if err != nil {
			return nil, Internal("Error creating subscription", err)
		}
		if err := s.users.SetStripeCustomerID(ctx, uid, customerID); err != nil {
			return nil, Internal("Error creating subscription", err)
		}
	}

	ps, err := s.payments.CreateSubscription(ctx, customerID, priceID)
	if err != nil {
		return nil, Internal("Error creating subscription", err)
	}

	now := s.now()
	sub := &models.Subscription{
		ID:               ps.ID,
		UserID:           uid,
		Status:           models.SubscriptionStatus(ps.Status),
		PlanID:           priceID,
		CurrentPeriodEnd: ps.CurrentPeriodEnd,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.subs.Save(ctx, sub); err != nil {
		return nil, Internal("Error creating subscription", err)
	}
	s.publish(ctx, events.SubscriptionCreated, uid, ps.ID)

	return &SubscriptionResult{SubscriptionID: ps.ID, ClientSecret: ps.ClientSecret}, nil
}

// CancelSubscription cancels the caller's first active subscription at the end of its period.
func (s *billingService) CancelSubscription(ctx context.Context, uid string) error {
	if uid == "" {
		return ErrUnauthenticated
	}

	sub, err := s.subs.FindActiveByUser(ctx, uid)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("%w: user '%s'", ErrNoActiveSubscription, uid)
		}
		return Internal("Error canceling subscription", err)
	}

	if err := s.payments.CancelAtPeriodEnd(ctx, sub.ID); err != nil {
		return Internal("Error canceling subscription", err)
	}
	if err := s.subs.UpdateStatus(ctx, sub.ID, models.SubscriptionCanceled, time.Time{}, s.now()); err != nil {
		return Internal("Error canceling subscription", err)
	}
	s.publish(ctx, events.SubscriptionCanceled, uid, sub.ID)
	return nil
}

// HandleWebhook mirrors provider-side subscription changes. Events for subscriptions that
// were never stored locally are acknowledged and ignored.
func (s *billingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	ev, err := s.payments.ParseWebhook(payload, signature)
	if err != nil {
		return Internal("Error processing webhook", err)
	}

	switch ev.Type {
	case EventSubscriptionUpdated, EventSubscriptionDeleted:
	default:
		return nil
	}
	if ev.Subscription == nil || ev.Subscription.ID == "" {
		return InvalidArgument("Webhook event carries no subscription")
	}

	stored, err := s.subs.GetByID(ctx, ev.Subscription.ID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil
		}
		return Internal("Error processing webhook", err)
	}

	status := models.SubscriptionStatus(ev.Subscription.Status)
	if ev.Type == EventSubscriptionDeleted {
		status = models.SubscriptionCanceled
	}
	if err := s.subs.UpdateStatus(ctx, stored.ID, status, ev.Subscription.CurrentPeriodEnd, s.now()); err != nil {
		return Internal("Error processing webhook", err)
	}
	s.publish(ctx, events.SubscriptionUpdated, stored.UserID, stored.ID)
	return nil
}

func (s *billingService) publish(ctx context.Context, eventType, userID, subscriptionID string) {
	emit(ctx, s.events, events.Event{Type: eventType, UserID: userID, ResourceID: subscriptionID, OccurredAt: s.now()})
}
