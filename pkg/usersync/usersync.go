// Package usersync makes sure a freshly signed-in identity has exactly one user record
// in the backend, and exposes that record with a loading and error status.
package usersync

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"saastracker-backend/internal/models"
)

// Failure messages reported through Status.Error.
const (
	MsgCreateFailed     = "Failed to create user in Firebase"
	MsgUnreadable       = "User created but could not fetch user data"
	msgSyncFailedPrefix = "Failed to sync user data: "
)

// ErrNoIdentity is returned when Reconcile is called without an identity id.
var ErrNoIdentity = errors.New("usersync: identity has no id")

// Identity is the signed-in user as reported by the identity provider.
// Empty names are treated as absent.
type Identity struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
}

func (id Identity) createRequest() models.CreateUserRequest {
	req := models.CreateUserRequest{ClerkUserID: id.ID, Email: id.Email}
	if id.FirstName != "" {
		first := id.FirstName
		req.FirstName = &first
	}
	if id.LastName != "" {
		last := id.LastName
		req.LastName = &last
	}
	return req
}

// Backend is the primary transport. *client.Client satisfies it.
type Backend interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	Creator
}

// Creator creates a user record and returns its id. *client.HTTPFallback satisfies it.
type Creator interface {
	CreateUser(ctx context.Context, req models.CreateUserRequest) (string, error)
}

// Error is a failed reconciliation. Message is the text shown to the user.
type Error struct {
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// Status is the observable state of a Reconciler.
type Status struct {
	User          *models.User
	Loading       bool
	Error         string
	Authenticated bool
}

// Reconciler runs the user reconciliation protocol. Concurrent calls for the same
// identity share a single attempt; a reconciled identity is not fetched again until
// Reset.
type Reconciler struct {
	primary  Backend
	fallback Creator
	log      *zap.Logger
	flight   singleflight.Group

	mu      sync.Mutex
	current string // identity of the latest trigger
	lastID  string // identity whose record is held in user
	user    *models.User
	loading bool
	errMsg  string
}

// New returns a Reconciler. fallback may be nil, in which case a failed primary create
// is final.
func New(primary Backend, fallback Creator, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{primary: primary, fallback: fallback, log: log}
}

// Reconcile returns the stored record for id, creating it first when the lookup fails.
// It is a no-op returning the held record when id was already reconciled.
func (r *Reconciler) Reconcile(ctx context.Context, id Identity) (*models.User, error) {
	if id.ID == "" {
		return nil, ErrNoIdentity
	}

	r.mu.Lock()
	if r.lastID == id.ID && r.user != nil {
		u := r.user
		r.mu.Unlock()
		return u, nil
	}
	r.current = id.ID
	r.loading = true
	r.errMsg = ""
	r.mu.Unlock()

	// The shared attempt outlives any one caller: a caller that gives up gets ctx.Err()
	// while the attempt continues for everyone else.
	attemptCtx := context.WithoutCancel(ctx)
	started := false
	ch := r.flight.DoChan(id.ID, func() (interface{}, error) {
		started = true
		return r.run(attemptCtx, id)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared && !started {
			r.log.Debug("Joined in-flight reconciliation", zap.String("userId", id.ID))
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.User), nil
	}
}

// run performs one attempt and commits its outcome unless the identity was superseded.
func (r *Reconciler) run(ctx context.Context, id Identity) (*models.User, error) {
	user, err := r.sync(ctx, id)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.current != id.ID {
		r.log.Info("Discarding reconciliation for superseded identity", zap.String("userId", id.ID))
		if err != nil {
			return nil, err
		}
		return user, nil
	}
	r.loading = false
	if err != nil {
		r.errMsg = err.Error()
		return nil, err
	}
	r.user = user
	r.lastID = id.ID
	return user, nil
}

func (r *Reconciler) sync(ctx context.Context, id Identity) (*models.User, error) {
	log := r.log.With(zap.String("userId", id.ID))

	// Any lookup failure, not only not-found, falls through to creation.
	user, err := r.primary.GetUser(ctx, id.ID)
	if err == nil && user != nil {
		log.Info("Found existing user")
		return user, nil
	}
	log.Info("User lookup failed, creating user", zap.Error(err))

	req := id.createRequest()
	userID, err := r.primary.CreateUser(ctx, req)
	if err != nil && r.fallback != nil {
		log.Warn("Primary create failed, trying HTTP fallback", zap.Error(err))
		userID, err = r.fallback.CreateUser(ctx, req)
	}
	if err != nil {
		log.Error("Creating user failed", zap.Error(err))
		return nil, &Error{Message: msgSyncFailedPrefix + err.Error(), Err: err}
	}
	if userID == "" {
		log.Error("Create reported no user id")
		return nil, &Error{Message: MsgCreateFailed}
	}

	user, err = r.primary.GetUser(ctx, id.ID)
	if err != nil || user == nil {
		log.Error("Fetching created user failed", zap.Error(err))
		return nil, &Error{Message: MsgUnreadable, Err: err}
	}
	log.Info("Created user", zap.String("createdId", userID))
	return user, nil
}

// Status returns a snapshot of the reconciler state.
func (r *Reconciler) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Status{
		User:          r.user,
		Loading:       r.loading,
		Error:         r.errMsg,
		Authenticated: r.current != "" && r.user != nil,
	}
}

// Reset forgets the reconciled identity, e.g. on sign-out. An attempt still in flight
// finishes without updating the state.
func (r *Reconciler) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = ""
	r.lastID = ""
	r.user = nil
	r.loading = false
	r.errMsg = ""
}
