package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"saastracker-backend/internal/models"
)

const toolsCollection = "tools"

// firestoreToolRepository keeps tools in the users/{ownerId}/tools subcollection.
type firestoreToolRepository struct {
	client *firestore.Client
}

// NewFirestoreToolRepository creates a new instance of firestoreToolRepository.
func NewFirestoreToolRepository(client *firestore.Client) ToolRepository {
	return &firestoreToolRepository{client: client}
}

func (r *firestoreToolRepository) tools(ownerID string) *firestore.CollectionRef {
	return r.client.Collection(usersCollection).Doc(ownerID).Collection(toolsCollection)
}

// Create adds a tool document with an auto-generated ID and sets tool.ID.
func (r *firestoreToolRepository) Create(ctx context.Context, ownerID string, tool *models.Tool) (string, error) {
	if ownerID == "" {
		return "", errors.New("ownerID cannot be empty for Create operation")
	}
	docRef := r.tools(ownerID).NewDoc()
	tool.ID = docRef.ID

	if _, err := docRef.Create(ctx, tool); err != nil {
		return "", fmt.Errorf("failed to create tool for owner '%s': %w", ownerID, err)
	}
	return docRef.ID, nil
}

// GetByID retrieves one tool of an owner.
func (r *firestoreToolRepository) GetByID(ctx context.Context, ownerID, toolID string) (*models.Tool, error) {
	if ownerID == "" || toolID == "" {
		return nil, errors.New("ownerID and toolID cannot be empty for GetByID operation")
	}
	docSnap, err := r.tools(ownerID).Doc(toolID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("tool with ID '%s' not found: %w", toolID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get tool with ID '%s': %w", toolID, err)
	}

	var tool models.Tool
	if err := docSnap.DataTo(&tool); err != nil {
		return nil, fmt.Errorf("failed to decode tool data for ID '%s': %w", toolID, err)
	}
	tool.ID = docSnap.Ref.ID
	return &tool, nil
}

// ListByOwner returns all tools of an owner ordered by updatedAt descending.
func (r *firestoreToolRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Tool, error) {
	if ownerID == "" {
		return nil, errors.New("ownerID cannot be empty for ListByOwner operation")
	}

	iter := r.tools(ownerID).OrderBy("updatedAt", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	tools := []*models.Tool{}
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate tools for owner '%s': %w", ownerID, err)
		}

		var tool models.Tool
		if err := doc.DataTo(&tool); err != nil {
			return nil, fmt.Errorf("failed to decode tool data (ID: %s) for owner '%s': %w", doc.Ref.ID, ownerID, err)
		}
		tool.ID = doc.Ref.ID
		tools = append(tools, &tool)
	}
	return tools, nil
}

// Update writes the patched fields and updatedAt. Empty category or description removes the field.
func (r *firestoreToolRepository) Update(ctx context.Context, ownerID, toolID string, patch models.ToolPatch, at time.Time) error {
	if ownerID == "" || toolID == "" {
		return errors.New("ownerID and toolID cannot be empty for Update operation")
	}

	updates := []firestore.Update{{Path: "updatedAt", Value: at}}
	if patch.Name != nil {
		updates = append(updates, firestore.Update{Path: "name", Value: *patch.Name})
	}
	if patch.MonthlyCost != nil {
		updates = append(updates, firestore.Update{Path: "monthlyCost", Value: *patch.MonthlyCost})
	}
	if patch.Seats != nil {
		updates = append(updates, firestore.Update{Path: "seats", Value: *patch.Seats})
	}
	if patch.LastUsed != nil {
		updates = append(updates, firestore.Update{Path: "lastUsed", Value: *patch.LastUsed})
	}
	updates = appendOptional(updates, "category", patch.Category)
	updates = appendOptional(updates, "description", patch.Description)

	if _, err := r.tools(ownerID).Doc(toolID).Update(ctx, updates); err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("tool with ID '%s' not found: %w", toolID, ErrNotFound)
		}
		return fmt.Errorf("failed to update tool with ID '%s': %w", toolID, err)
	}
	return nil
}

// Delete removes a tool document.
func (r *firestoreToolRepository) Delete(ctx context.Context, ownerID, toolID string) error {
	if ownerID == "" || toolID == "" {
		return errors.New("ownerID and toolID cannot be empty for Delete operation")
	}
	if _, err := r.tools(ownerID).Doc(toolID).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete tool with ID '%s': %w", toolID, err)
	}
	return nil
}
