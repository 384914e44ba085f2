package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"

	"saastracker-backend/internal/core"
)

// StripeConfig configures a StripeProvider.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	// APIURL overrides the Stripe API base URL; empty means api.stripe.com.
	APIURL            string
	MaxNetworkRetries int64
	Logger            *zap.Logger
}

// StripeProvider implements core.PaymentProvider with a per-instance Stripe client.
type StripeProvider struct {
	api           *client.API
	webhookSecret string
}

// NewStripeProvider builds a Stripe client from cfg. It does not contact Stripe.
func NewStripeProvider(cfg StripeConfig) *StripeProvider {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	backendCfg := &stripe.BackendConfig{
		LeveledLogger:     log.Sugar(),
		MaxNetworkRetries: stripe.Int64(cfg.MaxNetworkRetries),
	}
	if cfg.APIURL != "" {
		backendCfg.URL = stripe.String(cfg.APIURL)
	}

	sc := &client.API{}
	sc.Init(cfg.SecretKey, &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendCfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendCfg),
	})
	return &StripeProvider{api: sc, webhookSecret: cfg.WebhookSecret}
}

// CreateCustomer creates a customer tagged with the user id.
func (p *StripeProvider) CreateCustomer(ctx context.Context, email, userID string) (string, error) {
	params := &stripe.CustomerParams{Email: stripe.String(email)}
	params.Context = ctx
	params.AddMetadata("firebaseUID", userID)

	c, err := p.api.Customers.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe: create customer: %w", err)
	}
	return c.ID, nil
}

// CreateSubscription subscribes customerID to priceID with payment_behavior=default_incomplete,
// expanding the first invoice's payment intent to surface its client secret.
func (p *StripeProvider) CreateSubscription(ctx context.Context, customerID, priceID string) (*core.ProviderSubscription, error) {
	params := &stripe.SubscriptionParams{
		Customer: stripe.String(customerID),
		Items: []*stripe.SubscriptionItemsParams{
			{Price: stripe.String(priceID)},
		},
		PaymentBehavior: stripe.String("default_incomplete"),
	}
	params.Context = ctx
	params.AddExpand("latest_invoice.payment_intent")

	sub, err := p.api.Subscriptions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create subscription: %w", err)
	}

	out := toProviderSubscription(sub)
	if sub.LatestInvoice != nil && sub.LatestInvoice.PaymentIntent != nil {
		out.ClientSecret = sub.LatestInvoice.PaymentIntent.ClientSecret
	}
	return out, nil
}

// CancelAtPeriodEnd flags the subscription to end with its current period.
func (p *StripeProvider) CancelAtPeriodEnd(ctx context.Context, subscriptionID string) error {
	params := &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(true)}
	params.Context = ctx
	if _, err := p.api.Subscriptions.Update(subscriptionID, params); err != nil {
		return fmt.Errorf("stripe: cancel subscription %s: %w", subscriptionID, err)
	}
	return nil
}

// ParseWebhook verifies the Stripe-Signature header and decodes subscription events.
func (p *StripeProvider) ParseWebhook(payload []byte, signature string) (*core.WebhookEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, p.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrWebhookSignature, err)
	}

	out := &core.WebhookEvent{ID: event.ID, Type: string(event.Type)}
	switch out.Type {
	case core.EventSubscriptionUpdated, core.EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("stripe: decode %s: %w", out.Type, err)
		}
		out.Subscription = toProviderSubscription(&sub)
	}
	return out, nil
}

func toProviderSubscription(sub *stripe.Subscription) *core.ProviderSubscription {
	out := &core.ProviderSubscription{ID: sub.ID, Status: string(sub.Status)}
	if sub.CurrentPeriodEnd > 0 {
		out.CurrentPeriodEnd = time.Unix(sub.CurrentPeriodEnd, 0).UTC()
	}
	return out
}

// Unconfigured is the provider used when no Stripe key is set. Every call fails with
// core.ErrBillingUnavailable.
type Unconfigured struct{}

func (Unconfigured) CreateCustomer(context.Context, string, string) (string, error) {
	return "", core.ErrBillingUnavailable
}

func (Unconfigured) CreateSubscription(context.Context, string, string) (*core.ProviderSubscription, error) {
	return nil, core.ErrBillingUnavailable
}

func (Unconfigured) CancelAtPeriodEnd(context.Context, string) error {
	return core.ErrBillingUnavailable
}

func (Unconfigured) ParseWebhook([]byte, string) (*core.WebhookEvent, error) {
	return nil, core.ErrBillingUnavailable
}
