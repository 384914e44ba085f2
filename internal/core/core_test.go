package core

import (
	"context"
	"errors"
	"sync"
	"time"

	"saastracker-backend/internal/cache"
)

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func ptr[T any](v T) *T { return &v }

// mapCache is an in-memory cache.Cache that counts hits.
type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
	hits int
}

func newMapCache() *mapCache { return &mapCache{data: map[string][]byte{}} }

func (c *mapCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, cache.ErrMiss
	}
	c.hits++
	return v, nil
}

func (c *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *mapCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

// fakePayments records provider calls.
type fakePayments struct {
	customers     int
	subscriptions []string // price ids
	canceled      []string
	failCreate    error
	webhook       *WebhookEvent
	webhookErr    error
}

func (f *fakePayments) CreateCustomer(_ context.Context, email, userID string) (string, error) {
	f.customers++
	return "cus_" + userID, nil
}

func (f *fakePayments) CreateSubscription(_ context.Context, customerID, priceID string) (*ProviderSubscription, error) {
	if f.failCreate != nil {
		return nil, f.failCreate
	}
	f.subscriptions = append(f.subscriptions, priceID)
	return &ProviderSubscription{
		ID:               "sub_" + customerID,
		Status:           "incomplete",
		CurrentPeriodEnd: fixedNow.AddDate(0, 1, 0),
		ClientSecret:     "pi_secret",
	}, nil
}

func (f *fakePayments) CancelAtPeriodEnd(_ context.Context, subscriptionID string) error {
	f.canceled = append(f.canceled, subscriptionID)
	return nil
}

func (f *fakePayments) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	if f.webhookErr != nil {
		return nil, f.webhookErr
	}
	return f.webhook, nil
}

var errBoom = errors.New("boom")
