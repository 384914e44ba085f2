package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"saastracker-backend/internal/db"
	"saastracker-backend/internal/events"
	"saastracker-backend/internal/models"
)

type toolService struct {
	toolRepo db.ToolRepository
	events   events.Publisher
	now      func() time.Time
}

// NewToolService creates a ToolService. The backend checks only that required fields are
// present; value ranges are validated by clients before submission.
func NewToolService(toolRepo db.ToolRepository, pub events.Publisher, now func() time.Time) ToolService {
	if pub == nil {
		pub = events.Noop{}
	}
	if now == nil {
		now = utcNow
	}
	return &toolService{toolRepo: toolRepo, events: pub, now: now}
}

func (s *toolService) Create(ctx context.Context, req models.CreateToolRequest) (string, error) {
	if req.ClerkUserID == "" || req.Name == "" || req.MonthlyCost == nil || req.Seats == nil || req.LastUsed == "" {
		return "", InvalidArgument("Missing required fields: clerkUserId, name, monthlyCost, seats, lastUsed")
	}
	lastUsed, err := models.ParseDate(req.LastUsed)
	if err != nil {
		return "", InvalidArgument("Invalid lastUsed date")
	}

	now := s.now()
	tool := &models.Tool{
		Name:        req.Name,
		MonthlyCost: *req.MonthlyCost,
		Seats:       *req.Seats,
		LastUsed:    lastUsed,
		Category:    req.Category,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	id, err := s.toolRepo.Create(ctx, req.ClerkUserID, tool)
	if err != nil {
		return "", Internal("Error creating SaaS tool", err)
	}
	s.publish(ctx, events.ToolCreated, req.ClerkUserID, id)
	return id, nil
}

func (s *toolService) List(ctx context.Context, ownerID string) ([]*models.Tool, error) {
	if ownerID == "" {
		return nil, InvalidArgument("Missing required field: clerkUserId")
	}
	tools, err := s.toolRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, Internal("Error fetching SaaS tools", err)
	}
	return tools, nil
}

// Update applies the provided fields. updatedAt is refreshed even when no field is given.
func (s *toolService) Update(ctx context.Context, req models.UpdateToolRequest) (string, error) {
	if req.ClerkUserID == "" || req.ToolID == "" {
		return "", InvalidArgument("Missing required fields: clerkUserId, toolId")
	}
	patch, err := req.Patch()
	if err != nil {
		return "", InvalidArgument("Invalid lastUsed date")
	}

	if err := s.toolRepo.Update(ctx, req.ClerkUserID, req.ToolID, patch, s.now()); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return "", fmt.Errorf("%w: tool '%s'", ErrToolNotFound, req.ToolID)
		}
		return "", Internal("Error updating SaaS tool", err)
	}
	s.publish(ctx, events.ToolUpdated, req.ClerkUserID, req.ToolID)
	return req.ToolID, nil
}

func (s *toolService) Delete(ctx context.Context, req models.DeleteToolRequest) (string, error) {
	if req.ClerkUserID == "" || req.ToolID == "" {
		return "", InvalidArgument("Missing required fields: clerkUserId, toolId")
	}
	if err := s.toolRepo.Delete(ctx, req.ClerkUserID, req.ToolID); err != nil {
		return "", Internal("Error deleting SaaS tool", err)
	}
	s.publish(ctx, events.ToolDeleted, req.ClerkUserID, req.ToolID)
	return req.ToolID, nil
}

func (s *toolService) Summary(ctx context.Context, ownerID string) (SpendSummary, error) {
	tools, err := s.List(ctx, ownerID)
	if err != nil {
		return SpendSummary{}, err
	}
	return Summarize(tools, s.now()), nil
}

func (s *toolService) publish(ctx context.Context, eventType, userID, toolID string) {
	emit(ctx, s.events, events.Event{Type: eventType, UserID: userID, ResourceID: toolID, OccurredAt: s.now()})
}
