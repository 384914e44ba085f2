package models

import "time"

// User represents a user profile mirrored from the identity provider.
// The document ID is the external user id (Clerk user id or Firebase Auth UID).
type User struct {
	ID               string    `json:"id" firestore:"-"`
	ClerkUserID      string    `json:"clerkUserId,omitempty" firestore:"clerkUserId,omitempty"`
	Email            string    `json:"email" firestore:"email"`
	FirstName        string    `json:"firstName,omitempty" firestore:"firstName,omitempty"`
	LastName         string    `json:"lastName,omitempty" firestore:"lastName,omitempty"`
	StripeCustomerID string    `json:"stripeCustomerId,omitempty" firestore:"stripeCustomerId,omitempty"`
	CreatedAt        time.Time `json:"createdAt" firestore:"createdAt,serverTimestamp"`
	UpdatedAt        time.Time `json:"updatedAt" firestore:"updatedAt,serverTimestamp"`
}

// UserPatch lists the user fields an explicit update may change.
// A nil field is left untouched.
type UserPatch struct {
	Email            *string
	FirstName        *string
	LastName         *string
	StripeCustomerID *string
}

// IsEmpty reports whether the patch changes nothing.
func (p UserPatch) IsEmpty() bool {
	return p.Email == nil && p.FirstName == nil && p.LastName == nil && p.StripeCustomerID == nil
}

// Apply returns a copy of u with the patch applied.
func (p UserPatch) Apply(u User) User {
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.StripeCustomerID != nil {
		u.StripeCustomerID = *p.StripeCustomerID
	}
	return u
}
