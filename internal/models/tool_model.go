package models

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Category is the fixed set of tool categories offered by the front end.
type Category string

const (
	CategoryProductivity  Category = "Productivity"
	CategoryDesign        Category = "Design"
	CategoryDevelopment   Category = "Development"
	CategoryMarketing     Category = "Marketing"
	CategorySales         Category = "Sales"
	CategoryCommunication Category = "Communication"
	CategoryAnalytics     Category = "Analytics"
	CategoryFinance       Category = "Finance"
	CategoryHR            Category = "HR"
	CategoryOther         Category = "Other"
)

var categories = []Category{
	CategoryProductivity,
	CategoryDesign,
	CategoryDevelopment,
	CategoryMarketing,
	CategorySales,
	CategoryCommunication,
	CategoryAnalytics,
	CategoryFinance,
	CategoryHR,
	CategoryOther,
}

// Categories returns the category enumeration in display order.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// ParseCategory matches s against the enumeration, ignoring case.
func ParseCategory(s string) (Category, bool) {
	for _, c := range categories {
		if strings.EqualFold(string(c), strings.TrimSpace(s)) {
			return c, true
		}
	}
	return "", false
}

// Tool is a SaaS subscription tracked by a user, stored under users/{ownerId}/tools.
type Tool struct {
	ID          string    `json:"id" firestore:"-"`
	Name        string    `json:"name" firestore:"name"`
	MonthlyCost float64   `json:"monthlyCost" firestore:"monthlyCost"`
	Seats       int       `json:"seats" firestore:"seats"`
	LastUsed    time.Time `json:"lastUsed" firestore:"lastUsed"`
	Category    string    `json:"category,omitempty" firestore:"category,omitempty"`
	Description string    `json:"description,omitempty" firestore:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt" firestore:"createdAt,serverTimestamp"`
	UpdatedAt   time.Time `json:"updatedAt" firestore:"updatedAt,serverTimestamp"`
}

// ToolInput is the form data a user submits for a tool.
type ToolInput struct {
	Name        string    `json:"name"`
	MonthlyCost float64   `json:"monthlyCost"`
	Seats       int       `json:"seats"`
	LastUsed    time.Time `json:"lastUsed"`
	Category    string    `json:"category,omitempty"`
	Description string    `json:"description,omitempty"`
}

// ValidationErrors maps a field name to the reason it was rejected.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, v[f]))
	}
	return "invalid tool: " + strings.Join(parts, "; ")
}

// Validate applies the form rules checked before a tool is submitted.
func (in ToolInput) Validate() error {
	errs := ValidationErrors{}
	if strings.TrimSpace(in.Name) == "" {
		errs["name"] = "Tool name is required"
	}
	if !validCost(in.MonthlyCost) {
		errs["monthlyCost"] = "Monthly cost must be positive"
	}
	if in.Seats < 1 {
		errs["seats"] = "Number of seats must be at least 1"
	}
	if in.LastUsed.IsZero() {
		errs["lastUsed"] = "Last used date is required"
	}
	if in.Category != "" {
		if _, ok := ParseCategory(in.Category); !ok {
			errs["category"] = "Unknown category"
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// validCost reports whether c is a finite, non-negative amount.
func validCost(c float64) bool {
	return c >= 0 && !math.IsInf(c, 0)
}

// ToolPatch holds the fields of a partial tool update. Nil fields are not changed.
// An empty Category or Description clears the stored value.
type ToolPatch struct {
	Name        *string    `json:"name,omitempty"`
	MonthlyCost *float64   `json:"monthlyCost,omitempty"`
	Seats       *int       `json:"seats,omitempty"`
	LastUsed    *time.Time `json:"lastUsed,omitempty"`
	Category    *string    `json:"category,omitempty"`
	Description *string    `json:"description,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p ToolPatch) IsEmpty() bool {
	return p.Name == nil && p.MonthlyCost == nil && p.Seats == nil &&
		p.LastUsed == nil && p.Category == nil && p.Description == nil
}

// Merge overlays the patch on defaults and returns the result.
func (p ToolPatch) Merge(defaults Tool) Tool {
	out := defaults
	if p.Name != nil {
		out.Name = *p.Name
	}
	if p.MonthlyCost != nil {
		out.MonthlyCost = *p.MonthlyCost
	}
	if p.Seats != nil {
		out.Seats = *p.Seats
	}
	if p.LastUsed != nil {
		out.LastUsed = *p.LastUsed
	}
	if p.Category != nil {
		out.Category = *p.Category
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	return out
}

// Validate checks only the fields the patch sets, using the same rules as ToolInput.
func (p ToolPatch) Validate() error {
	errs := ValidationErrors{}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		errs["name"] = "Tool name is required"
	}
	if p.MonthlyCost != nil && !validCost(*p.MonthlyCost) {
		errs["monthlyCost"] = "Monthly cost must be positive"
	}
	if p.Seats != nil && *p.Seats < 1 {
		errs["seats"] = "Number of seats must be at least 1"
	}
	if p.LastUsed != nil && p.LastUsed.IsZero() {
		errs["lastUsed"] = "Last used date is required"
	}
	if p.Category != nil && *p.Category != "" {
		if _, ok := ParseCategory(*p.Category); !ok {
			errs["category"] = "Unknown category"
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
