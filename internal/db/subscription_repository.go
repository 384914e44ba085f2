package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"saastracker-backend/internal/models"
)

const subscriptionsCollection = "subscriptions"

type firestoreSubscriptionRepository struct {
	client *firestore.Client
}

// NewFirestoreSubscriptionRepository creates a SubscriptionRepository over the subscriptions collection.
func NewFirestoreSubscriptionRepository(client *firestore.Client) SubscriptionRepository {
	return &firestoreSubscriptionRepository{client: client}
}

// Save writes the subscription under its provider id, replacing any previous document.
func (r *firestoreSubscriptionRepository) Save(ctx context.Context, sub *models.Subscription) error {
	if sub.ID == "" {
		return errors.New("subscription ID cannot be empty for Save operation")
	}
	if _, err := r.client.Collection(subscriptionsCollection).Doc(sub.ID).Set(ctx, sub); err != nil {
		return fmt.Errorf("failed to save subscription '%s': %w", sub.ID, err)
	}
	return nil
}

func (r *firestoreSubscriptionRepository) GetByID(ctx context.Context, subscriptionID string) (*models.Subscription, error) {
	docSnap, err := r.client.Collection(subscriptionsCollection).Doc(subscriptionID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("subscription '%s' not found: %w", subscriptionID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get subscription '%s': %w", subscriptionID, err)
	}
	var sub models.Subscription
	if err := docSnap.DataTo(&sub); err != nil {
		return nil, fmt.Errorf("failed to decode subscription '%s': %w", subscriptionID, err)
	}
	sub.ID = docSnap.Ref.ID
	return &sub, nil
}

// FindActiveByUser queries for the first subscription of the user whose status is active.
func (r *firestoreSubscriptionRepository) FindActiveByUser(ctx context.Context, userID string) (*models.Subscription, error) {
	iter := r.client.Collection(subscriptionsCollection).
		Where("userId", "==", userID).
		Where("status", "==", string(models.SubscriptionActive)).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if errors.Is(err, iterator.Done) {
		return nil, fmt.Errorf("no active subscription for user '%s': %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions for user '%s': %w", userID, err)
	}

	var sub models.Subscription
	if err := doc.DataTo(&sub); err != nil {
		return nil, fmt.Errorf("failed to decode subscription '%s': %w", doc.Ref.ID, err)
	}
	sub.ID = doc.Ref.ID
	return &sub, nil
}

func (r *firestoreSubscriptionRepository) UpdateStatus(ctx context.Context, subscriptionID string, st models.SubscriptionStatus, periodEnd, at time.Time) error {
	updates := []firestore.Update{
		{Path: "status", Value: string(st)},
		{Path: "updatedAt", Value: at},
	}
	if !periodEnd.IsZero() {
		updates = append(updates, firestore.Update{Path: "currentPeriodEnd", Value: periodEnd})
	}
	if _, err := r.client.Collection(subscriptionsCollection).Doc(subscriptionID).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("subscription '%s' not found: %w", subscriptionID, ErrNotFound)
		}
		return fmt.Errorf("failed to update subscription '%s': %w", subscriptionID, err)
	}
	return nil
}
