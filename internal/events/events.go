package events

import (
	"context"
	"sync"
	"time"
)

// Event types published after successful writes.
const (
	UserCreated          = "user.created"
	UserUpdated          = "user.updated"
	ToolCreated          = "tool.created"
	ToolUpdated          = "tool.updated"
	ToolDeleted          = "tool.deleted"
	SubscriptionCreated  = "subscription.created"
	SubscriptionCanceled = "subscription.canceled"
	SubscriptionUpdated  = "subscription.updated"
)

// Event is a domain event. It is serialized as JSON on the wire.
type Event struct {
	Type       string    `json:"type"`
	UserID     string    `json:"userId"`
	ResourceID string    `json:"resourceId,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Publisher delivers domain events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Noop discards every event. It is used when RABBITMQ_URL is not set.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of what has been published so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the type of each recorded event in publish order.
func (r *Recorder) Types() []string {
	evs := r.Events()
	out := make([]string, len(evs))
	for i, e := range evs {
		out[i] = e.Type
	}
	return out
}
