package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"saastracker-backend/internal/models"
)

const usersCollection = "users"

// firestoreUserRepository implements the UserRepository interface using Firestore.
type firestoreUserRepository struct {
	client *firestore.Client
}

// NewFirestoreUserRepository creates a new instance of firestoreUserRepository.
func NewFirestoreUserRepository(client *firestore.Client) UserRepository {
	return &firestoreUserRepository{client: client}
}

// Create adds a new user document keyed by user.ID.
// Zero CreatedAt/UpdatedAt are filled by Firestore through the serverTimestamp tag.
func (r *firestoreUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		return errors.New("user ID cannot be empty for Create operation")
	}
	_, err := r.client.Collection(usersCollection).Doc(user.ID).Create(ctx, user)
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return fmt.Errorf("user with ID '%s': %w", user.ID, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create user with ID '%s': %w", user.ID, err)
	}
	return nil
}

// GetByID retrieves a user document by its external id.
func (r *firestoreUserRepository) GetByID(ctx context.Context, userID string) (*models.User, error) {
	if userID == "" {
		return nil, errors.New("userID cannot be empty for GetByID operation")
	}
	docSnap, err := r.client.Collection(usersCollection).Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("user with ID '%s' not found: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user with ID '%s': %w", userID, err)
	}

	var user models.User
	if err := docSnap.DataTo(&user); err != nil {
		return nil, fmt.Errorf("failed to decode user data for ID '%s': %w", userID, err)
	}
	user.ID = docSnap.Ref.ID
	return &user, nil
}

// Update writes only the patched fields. DocumentRef.Update fails with NotFound on a
// missing document, so it never creates one.
func (r *firestoreUserRepository) Update(ctx context.Context, userID string, patch models.UserPatch, at time.Time) error {
	if userID == "" {
		return errors.New("user ID cannot be empty for Update operation")
	}

	updates := []firestore.Update{{Path: "updatedAt", Value: at}}
	if patch.Email != nil {
		updates = append(updates, firestore.Update{Path: "email", Value: *patch.Email})
	}
	updates = appendOptional(updates, "firstName", patch.FirstName)
	updates = appendOptional(updates, "lastName", patch.LastName)
	updates = appendOptional(updates, "stripeCustomerId", patch.StripeCustomerID)

	_, err := r.client.Collection(usersCollection).Doc(userID).Update(ctx, updates)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("user with ID '%s' not found: %w", userID, ErrNotFound)
		}
		return fmt.Errorf("failed to update user with ID '%s': %w", userID, err)
	}
	return nil
}

// appendOptional adds an update for an omitempty field. An empty value deletes the field.
func appendOptional(updates []firestore.Update, path string, v *string) []firestore.Update {
	if v == nil {
		return updates
	}
	if *v == "" {
		return append(updates, firestore.Update{Path: path, Value: firestore.Delete})
	}
	return append(updates, firestore.Update{Path: path, Value: *v})
}
