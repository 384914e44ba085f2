package core

import (
	"fmt"
	"math"
	"time"

	"saastracker-backend/internal/models"
)

// UsageStatus buckets a tool by how recently it was used.
type UsageStatus string

const (
	UsageActive   UsageStatus = "active"   // used within 7 days
	UsageModerate UsageStatus = "moderate" // used within 30 days
	UsageInactive UsageStatus = "inactive"
)

const day = 24 * time.Hour

// DaysSince counts whole days between lastUsed and now, rounding partial days up.
func DaysSince(lastUsed, now time.Time) int {
	d := now.Sub(lastUsed)
	if d < 0 {
		d = -d
	}
	return int(math.Ceil(float64(d) / float64(day)))
}

// elapsedDays is the signed number of days from lastUsed to now, rounded with round.
// Future dates give negative values.
func elapsedDays(lastUsed, now time.Time, round func(float64) float64) int {
	return int(round(float64(now.Sub(lastUsed)) / float64(day)))
}

// UsageStatusOf classifies lastUsed relative to now.
func UsageStatusOf(lastUsed, now time.Time) UsageStatus {
	switch days := DaysSince(lastUsed, now); {
	case days <= 7:
		return UsageActive
	case days <= 30:
		return UsageModerate
	default:
		return UsageInactive
	}
}

// LastUsedLabel renders the distance to lastUsed the way the tools table shows it.
func LastUsedLabel(lastUsed, now time.Time) string {
	days := DaysSince(lastUsed, now)
	switch {
	case days == 1:
		return "1 day ago"
	case days < 30:
		return fmt.Sprintf("%d days ago", days)
	case days < 365:
		return fmt.Sprintf("%d months ago", days/30)
	default:
		return fmt.Sprintf("%d years ago", days/365)
	}
}

// ToolUsage is the per-tool row of a SpendSummary.
type ToolUsage struct {
	ToolID        string      `json:"toolId"`
	Name          string      `json:"name"`
	MonthlyCost   float64     `json:"monthlyCost"`
	Status        UsageStatus `json:"status"`
	DaysSinceUsed int         `json:"daysSinceUsed"`
	LastUsedLabel string      `json:"lastUsedLabel"`
}

// SpendSummary aggregates the spend metrics of a tool list.
type SpendSummary struct {
	ToolCount        int         `json:"toolCount"`
	TotalMonthly     float64     `json:"totalMonthly"`
	TotalYearly      float64     `json:"totalYearly"`
	TotalSeats       int         `json:"totalSeats"`
	AveragePerTool   float64     `json:"averagePerTool"`
	AveragePerSeat   float64     `json:"averagePerSeat"`
	ActiveTools      int         `json:"activeTools"`  // used within 30 whole days
	UsedThisWeek     int         `json:"usedThisWeek"` // used within 7 days
	UnusedTools      int         `json:"unusedTools"`  // not used for more than 30 days
	PotentialSavings float64     `json:"potentialSavings"`
	Tools            []ToolUsage `json:"tools"`
}

// Summarize computes the summary of tools as of now.
func Summarize(tools []*models.Tool, now time.Time) SpendSummary {
	s := SpendSummary{ToolCount: len(tools), Tools: make([]ToolUsage, 0, len(tools))}
	for _, t := range tools {
		s.TotalMonthly += t.MonthlyCost
		s.TotalSeats += t.Seats

		// The counts use signed day differences, so future dates count as recent.
		// ActiveTools truncates; the weekly and unused counts round up.
		if elapsedDays(t.LastUsed, now, math.Floor) <= 30 {
			s.ActiveTools++
		}
		switch elapsed := elapsedDays(t.LastUsed, now, math.Ceil); {
		case elapsed <= 7:
			s.UsedThisWeek++
		case elapsed > 30:
			s.UnusedTools++
			s.PotentialSavings += t.MonthlyCost
		}

		status := UsageStatusOf(t.LastUsed, now)
		s.Tools = append(s.Tools, ToolUsage{
			ToolID:        t.ID,
			Name:          t.Name,
			MonthlyCost:   t.MonthlyCost,
			Status:        status,
			DaysSinceUsed: DaysSince(t.LastUsed, now),
			LastUsedLabel: LastUsedLabel(t.LastUsed, now),
		})
	}
	s.TotalYearly = s.TotalMonthly * 12
	if s.ToolCount > 0 {
		s.AveragePerTool = s.TotalMonthly / float64(s.ToolCount)
	}
	if s.TotalSeats > 0 {
		s.AveragePerSeat = s.TotalMonthly / float64(s.TotalSeats)
	}
	return s
}
