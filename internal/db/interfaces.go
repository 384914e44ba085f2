package db

import (
	"context"
	"errors"
	"time"

	"saastracker-backend/internal/models"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrAlreadyExists is returned by Create when the document id is taken.
	ErrAlreadyExists = errors.New("document already exists")
)

// UserRepository defines the interface for user data storage operations.
type UserRepository interface {
	GetByID(ctx context.Context, userID string) (*models.User, error)
	// Create stores a new user under user.ID and fails with ErrAlreadyExists if one is there.
	Create(ctx context.Context, user *models.User) error
	// Update applies patch to an existing user and sets updatedAt. Missing users yield ErrNotFound.
	Update(ctx context.Context, userID string, patch models.UserPatch, at time.Time) error
}

// ToolRepository stores the tools subcollection of a user.
type ToolRepository interface {
	Create(ctx context.Context, ownerID string, tool *models.Tool) (string, error) // Returns new tool ID
	GetByID(ctx context.Context, ownerID, toolID string) (*models.Tool, error)
	// ListByOwner returns the owner's tools, most recently updated first.
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Tool, error)
	Update(ctx context.Context, ownerID, toolID string, patch models.ToolPatch, at time.Time) error
	// Delete removes a tool. Deleting a missing tool succeeds.
	Delete(ctx context.Context, ownerID, toolID string) error
}

// SubscriptionRepository stores mirrored billing subscriptions.
type SubscriptionRepository interface {
	Save(ctx context.Context, sub *models.Subscription) error
	GetByID(ctx context.Context, subscriptionID string) (*models.Subscription, error)
	// FindActiveByUser returns the first active subscription of the user, or ErrNotFound.
	FindActiveByUser(ctx context.Context, userID string) (*models.Subscription, error)
	// UpdateStatus sets status and updatedAt; a zero periodEnd leaves currentPeriodEnd as is.
	UpdateStatus(ctx context.Context, subscriptionID string, status models.SubscriptionStatus, periodEnd, at time.Time) error
}

// Repositories groups one implementation of each repository.
type Repositories struct {
	Users         UserRepository
	Tools         ToolRepository
	Subscriptions SubscriptionRepository
}
