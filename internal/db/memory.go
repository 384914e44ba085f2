package db

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"saastracker-backend/internal/models"
)

// MemStore is a thread-safe in-memory document store with the same semantics as the
// Firestore repositories. It backs STORE_BACKEND=memory and the service tests.
type MemStore struct {
	mu sync.RWMutex
	// users[userID], tools[ownerID][toolID], subscriptions[subscriptionID]
	users         map[string]models.User
	tools         map[string]map[string]models.Tool
	subscriptions map[string]models.Subscription
	now           func() time.Time
}

// NewMemoryStore returns an empty store. Zero timestamps are filled with the wall clock,
// mirroring Firestore server timestamps.
func NewMemoryStore() *MemStore {
	return &MemStore{
		users:         make(map[string]models.User),
		tools:         make(map[string]map[string]models.Tool),
		subscriptions: make(map[string]models.Subscription),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Repositories returns repository views over the store.
func (m *MemStore) Repositories() Repositories {
	return Repositories{
		Users:         memUsers{m},
		Tools:         memTools{m},
		Subscriptions: memSubscriptions{m},
	}
}

func (m *MemStore) stamp(t time.Time) time.Time {
	if t.IsZero() {
		return m.now()
	}
	return t
}

// --- Users ---

type memUsers struct{ m *MemStore }

func (r memUsers) GetByID(_ context.Context, userID string) (*models.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	u, ok := r.m.users[userID]
	if !ok {
		return nil, fmt.Errorf("user with ID '%s' not found: %w", userID, ErrNotFound)
	}
	return &u, nil
}

func (r memUsers) Create(_ context.Context, user *models.User) error {
	if user.ID == "" {
		return fmt.Errorf("user ID cannot be empty for Create operation")
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.users[user.ID]; ok {
		return fmt.Errorf("user with ID '%s': %w", user.ID, ErrAlreadyExists)
	}
	u := *user
	u.CreatedAt = r.m.stamp(u.CreatedAt)
	u.UpdatedAt = r.m.stamp(u.UpdatedAt)
	r.m.users[u.ID] = u
	return nil
}

func (r memUsers) Update(_ context.Context, userID string, patch models.UserPatch, at time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	u, ok := r.m.users[userID]
	if !ok {
		return fmt.Errorf("user with ID '%s' not found: %w", userID, ErrNotFound)
	}
	u = patch.Apply(u)
	u.UpdatedAt = r.m.stamp(at)
	r.m.users[userID] = u
	return nil
}

// --- Tools ---

type memTools struct{ m *MemStore }

func (r memTools) Create(_ context.Context, ownerID string, tool *models.Tool) (string, error) {
	if ownerID == "" {
		return "", fmt.Errorf("ownerID cannot be empty for Create operation")
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if r.m.tools[ownerID] == nil {
		r.m.tools[ownerID] = make(map[string]models.Tool)
	}
	tool.ID = uuid.NewString()
	t := *tool
	t.CreatedAt = r.m.stamp(t.CreatedAt)
	t.UpdatedAt = r.m.stamp(t.UpdatedAt)
	r.m.tools[ownerID][t.ID] = t
	return t.ID, nil
}

func (r memTools) GetByID(_ context.Context, ownerID, toolID string) (*models.Tool, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	t, ok := r.m.tools[ownerID][toolID]
	if !ok {
		return nil, fmt.Errorf("tool with ID '%s' not found: %w", toolID, ErrNotFound)
	}
	return &t, nil
}

func (r memTools) ListByOwner(_ context.Context, ownerID string) ([]*models.Tool, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	out := make([]*models.Tool, 0, len(r.m.tools[ownerID]))
	for _, t := range r.m.tools[ownerID] {
		t := t
		out = append(out, &t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (r memTools) Update(_ context.Context, ownerID, toolID string, patch models.ToolPatch, at time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	t, ok := r.m.tools[ownerID][toolID]
	if !ok {
		return fmt.Errorf("tool with ID '%s' not found: %w", toolID, ErrNotFound)
	}
	t = patch.Merge(t)
	t.UpdatedAt = r.m.stamp(at)
	r.m.tools[ownerID][toolID] = t
	return nil
}

func (r memTools) Delete(_ context.Context, ownerID, toolID string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if owned, ok := r.m.tools[ownerID]; ok {
		delete(owned, toolID)
	}
	return nil
}

// --- Subscriptions ---

type memSubscriptions struct{ m *MemStore }

func (r memSubscriptions) Save(_ context.Context, sub *models.Subscription) error {
	if sub.ID == "" {
		return fmt.Errorf("subscription ID cannot be empty for Save operation")
	}
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	s := *sub
	s.CreatedAt = r.m.stamp(s.CreatedAt)
	s.UpdatedAt = r.m.stamp(s.UpdatedAt)
	r.m.subscriptions[s.ID] = s
	return nil
}

func (r memSubscriptions) GetByID(_ context.Context, subscriptionID string) (*models.Subscription, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	s, ok := r.m.subscriptions[subscriptionID]
	if !ok {
		return nil, fmt.Errorf("subscription '%s' not found: %w", subscriptionID, ErrNotFound)
	}
	return &s, nil
}

// FindActiveByUser scans in document id order, as an unordered Firestore query would.
func (r memSubscriptions) FindActiveByUser(_ context.Context, userID string) (*models.Subscription, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()

	ids := make([]string, 0, len(r.m.subscriptions))
	for id := range r.m.subscriptions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		s := r.m.subscriptions[id]
		if s.UserID == userID && s.Status == models.SubscriptionActive {
			return &s, nil
		}
	}
	return nil, fmt.Errorf("no active subscription for user '%s': %w", userID, ErrNotFound)
}

func (r memSubscriptions) UpdateStatus(_ context.Context, subscriptionID string, status models.SubscriptionStatus, periodEnd, at time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	s, ok := r.m.subscriptions[subscriptionID]
	if !ok {
		return fmt.Errorf("subscription '%s' not found: %w", subscriptionID, ErrNotFound)
	}
	s.Status = status
	if !periodEnd.IsZero() {
		s.CurrentPeriodEnd = periodEnd
	}
	s.UpdatedAt = r.m.stamp(at)
	r.m.subscriptions[subscriptionID] = s
	return nil
}
