package models

import (
	"fmt"
	"time"
)

// CreateUserRequest is the payload of userCreateWithClerk and of the plain HTTP fallback.
type CreateUserRequest struct {
	ClerkUserID string  `json:"clerkUserId"`
	Email       string  `json:"email"`
	FirstName   *string `json:"firstName,omitempty"`
	LastName    *string `json:"lastName,omitempty"`
}

// UpdateUserRequest is the payload of userUpdateWithClerk.
// Pointers distinguish fields that should be left alone from fields being cleared.
type UpdateUserRequest struct {
	ClerkUserID string  `json:"clerkUserId"`
	Email       *string `json:"email,omitempty"`
	FirstName   *string `json:"firstName,omitempty"`
	LastName    *string `json:"lastName,omitempty"`
}

// OwnerRequest carries only the owner id (get user, list tools, summary).
type OwnerRequest struct {
	ClerkUserID string `json:"clerkUserId"`
}

// AuthUserRequest is the payload of the legacy userCreate RPC; the id comes from the token.
type AuthUserRequest struct {
	Email     string  `json:"email"`
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
}

// CreateToolRequest is the payload of createSaaSTool. Numeric fields are pointers so that
// zero values can be told apart from missing ones.
type CreateToolRequest struct {
	ClerkUserID string   `json:"clerkUserId"`
	Name        string   `json:"name"`
	MonthlyCost *float64 `json:"monthlyCost"`
	Seats       *int     `json:"seats"`
	LastUsed    string   `json:"lastUsed"`
	Category    string   `json:"category,omitempty"`
	Description string   `json:"description,omitempty"`
}

// UpdateToolRequest is the payload of updateSaaSTool.
type UpdateToolRequest struct {
	ClerkUserID string   `json:"clerkUserId"`
	ToolID      string   `json:"toolId"`
	Name        *string  `json:"name,omitempty"`
	MonthlyCost *float64 `json:"monthlyCost,omitempty"`
	Seats       *int     `json:"seats,omitempty"`
	LastUsed    *string  `json:"lastUsed,omitempty"`
	Category    *string  `json:"category,omitempty"`
	Description *string  `json:"description,omitempty"`
}

// Patch converts the request into a ToolPatch, parsing lastUsed when present.
func (r UpdateToolRequest) Patch() (ToolPatch, error) {
	p := ToolPatch{
		Name:        r.Name,
		MonthlyCost: r.MonthlyCost,
		Seats:       r.Seats,
		Category:    r.Category,
		Description: r.Description,
	}
	if r.LastUsed != nil {
		t, err := ParseDate(*r.LastUsed)
		if err != nil {
			return ToolPatch{}, err
		}
		p.LastUsed = &t
	}
	return p, nil
}

// DeleteToolRequest is the payload of deleteSaaSTool.
type DeleteToolRequest struct {
	ClerkUserID string `json:"clerkUserId"`
	ToolID      string `json:"toolId"`
}

// CreateSubscriptionRequest is the payload of subscriptionCreate.
type CreateSubscriptionRequest struct {
	PriceID string `json:"priceId"`
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// ParseDate accepts an RFC 3339 timestamp or a bare calendar date as sent by a date input.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}
