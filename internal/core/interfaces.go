package core

import (
	"context"
	"time"

	"saastracker-backend/internal/models"
)

// UserService defines the user operations behind the user RPCs.
type UserService interface {
	// CreateWithClerk stores a user keyed by clerkUserId. An existing record is left
	// untouched and reported as success.
	CreateWithClerk(ctx context.Context, req models.CreateUserRequest) (string, error)
	GetWithClerk(ctx context.Context, clerkUserID string) (*models.User, error)
	UpdateWithClerk(ctx context.Context, req models.UpdateUserRequest) (*models.User, error)
	// CreateForAuthUser and GetForAuthUser serve the legacy Firebase Auth RPCs, where the
	// user id is the verified token uid.
	CreateForAuthUser(ctx context.Context, uid string, req models.AuthUserRequest) (*models.User, error)
	GetForAuthUser(ctx context.Context, uid string) (*models.User, error)
	SetStripeCustomerID(ctx context.Context, userID, customerID string) error
}

// ToolService defines the SaaS tool operations of one owner.
type ToolService interface {
	Create(ctx context.Context, req models.CreateToolRequest) (string, error)
	List(ctx context.Context, ownerID string) ([]*models.Tool, error)
	Update(ctx context.Context, req models.UpdateToolRequest) (string, error)
	Delete(ctx context.Context, req models.DeleteToolRequest) (string, error)
	Summary(ctx context.Context, ownerID string) (SpendSummary, error)
}

// BillingService brokers the subscription lifecycle through the payment provider.
type BillingService interface {
	CreateSubscription(ctx context.Context, uid, priceID string) (*SubscriptionResult, error)
	CancelSubscription(ctx context.Context, uid string) error
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

// SubscriptionResult is returned to the caller after a subscription is created.
type SubscriptionResult struct {
	SubscriptionID string `json:"subscriptionId"`
	ClientSecret   string `json:"clientSecret,omitempty"`
}

// PaymentProvider is the billing provider as seen by BillingService.
type PaymentProvider interface {
	CreateCustomer(ctx context.Context, email, userID string) (string, error)
	// CreateSubscription starts a subscription in the incomplete state and returns the
	// client secret of its first payment intent when there is one.
	CreateSubscription(ctx context.Context, customerID, priceID string) (*ProviderSubscription, error)
	CancelAtPeriodEnd(ctx context.Context, subscriptionID string) error
	// ParseWebhook verifies the signature and decodes the event.
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}

// ProviderSubscription is the provider's view of a subscription.
type ProviderSubscription struct {
	ID               string
	Status           string
	CurrentPeriodEnd time.Time
	ClientSecret     string
}

// WebhookEvent is a verified provider event. Subscription is nil for event types
// that carry no subscription.
type WebhookEvent struct {
	ID           string
	Type         string
	Subscription *ProviderSubscription
}

// Webhook event types handled by BillingService.
const (
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)
