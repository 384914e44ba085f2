package models

import "time"

// SubscriptionStatus is the billing provider's subscription state.
// Provider states outside the constants below (e.g. "incomplete") are stored verbatim.
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
)

// Subscription mirrors a billing provider subscription in the subscriptions collection.
type Subscription struct {
	ID               string             `json:"id" firestore:"id"` // provider subscription id, also the document ID
	UserID           string             `json:"userId" firestore:"userId"`
	Status           SubscriptionStatus `json:"status" firestore:"status"`
	PlanID           string             `json:"planId" firestore:"planId"`
	CurrentPeriodEnd time.Time          `json:"currentPeriodEnd" firestore:"currentPeriodEnd"`
	CreatedAt        time.Time          `json:"createdAt" firestore:"createdAt,serverTimestamp"`
	UpdatedAt        time.Time          `json:"updatedAt" firestore:"updatedAt,serverTimestamp"`
}
