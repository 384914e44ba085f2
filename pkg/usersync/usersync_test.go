package usersync

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"saastracker-backend/internal/models"
)

var errTransport = errors.New("transport failure")

// fakeStore is a Backend over a map that records every call.
type fakeStore struct {
	mu         sync.Mutex
	users      map[string]*models.User
	gets       int
	creates    []models.CreateUserRequest
	getErr     error // returned by every GetUser when set
	createErr  error
	confirmErr error // returned by GetUser once a create happened
	gates      map[string]chan struct{} // GetUser for a gated id blocks until the gate closes
	entered    chan string              // receives the id of every GetUser call when set
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: map[string]*models.User{}}
}

func (f *fakeStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	if f.entered != nil {
		f.entered <- id
	}
	if gate, ok := f.gates[id]; ok {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.confirmErr != nil && len(f.creates) > 0 {
		return nil, f.confirmErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, errors.New("NOT_FOUND: User not found")
	}
	return u, nil
}

func (f *fakeStore) CreateUser(_ context.Context, req models.CreateUserRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, req)
	if f.createErr != nil {
		return "", f.createErr
	}
	u := &models.User{ID: req.ClerkUserID, ClerkUserID: req.ClerkUserID, Email: req.Email}
	if req.FirstName != nil {
		u.FirstName = *req.FirstName
	}
	f.users[req.ClerkUserID] = u
	return req.ClerkUserID, nil
}

func (f *fakeStore) createCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.creates)
}

// fallbackCreator writes into the primary's map so the confirmation read succeeds.
type fallbackCreator struct {
	store *fakeStore
	reqs  []models.CreateUserRequest
	err   error
}

func (f *fallbackCreator) CreateUser(_ context.Context, req models.CreateUserRequest) (string, error) {
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return "", f.err
	}
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	f.store.users[req.ClerkUserID] = &models.User{ID: req.ClerkUserID, Email: req.Email}
	return req.ClerkUserID, nil
}

var ada = Identity{ID: "user_1", Email: "ada@example.com", FirstName: "Ada"}

func TestNewIdentityIsCreatedOnce(t *testing.T) {
	store := newFakeStore()
	r := New(store, nil, zaptest.NewLogger(t))
	ctx := context.Background()

	u, err := r.Reconcile(ctx, ada)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if u.ID != "user_1" || u.FirstName != "Ada" {
		t.Errorf("record = %+v", u)
	}
	if store.createCount() != 1 || len(store.users) != 1 {
		t.Errorf("creates = %d, stored = %d", store.createCount(), len(store.users))
	}
	want := models.CreateUserRequest{ClerkUserID: "user_1", Email: "ada@example.com", FirstName: &ada.FirstName}
	if got := store.creates[0]; got.ClerkUserID != want.ClerkUserID || got.Email != want.Email || *got.FirstName != "Ada" || got.LastName != nil {
		t.Errorf("create payload = %+v", got)
	}

	st := r.Status()
	if !st.Authenticated || st.Loading || st.Error != "" || st.User != u {
		t.Errorf("status = %+v", st)
	}
}

func TestRepeatIsNoop(t *testing.T) {
	store := newFakeStore()
	r := New(store, nil, zaptest.NewLogger(t))
	ctx := context.Background()

	first, _ := r.Reconcile(ctx, ada)
	gets := store.gets
	second, err := r.Reconcile(ctx, ada)
	if err != nil || second != first {
		t.Fatalf("second Reconcile() = %+v, %v", second, err)
	}
	if store.createCount() != 1 || store.gets != gets {
		t.Errorf("repeat issued calls: creates=%d gets=%d->%d", store.createCount(), gets, store.gets)
	}
}

func TestExistingUserIsNotCreated(t *testing.T) {
	store := newFakeStore()
	store.users["user_1"] = &models.User{ID: "user_1", Email: "old@example.com"}
	r := New(store, nil, zaptest.NewLogger(t))

	u, err := r.Reconcile(context.Background(), ada)
	if err != nil || u.Email != "old@example.com" {
		t.Fatalf("Reconcile() = %+v, %v", u, err)
	}
	if store.createCount() != 0 || store.gets != 1 {
		t.Errorf("creates=%d gets=%d", store.createCount(), store.gets)
	}
}

func TestFallbackGetsIdenticalPayload(t *testing.T) {
	store := newFakeStore()
	store.createErr = errTransport
	fb := &fallbackCreator{store: store}
	r := New(store, fb, zaptest.NewLogger(t))

	u, err := r.Reconcile(context.Background(), Identity{ID: "user_2", Email: "b@example.com", LastName: "Lamarr"})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if u.ID != "user_2" {
		t.Errorf("record = %+v", u)
	}
	if len(fb.reqs) != 1 || !reflect.DeepEqual(fb.reqs[0], store.creates[0]) {
		t.Errorf("fallback payload %+v, primary payload %+v", fb.reqs, store.creates)
	}
	if st := r.Status(); st.Error != "" || !st.Authenticated {
		t.Errorf("status = %+v", st)
	}
}

func TestBothCreatesFail(t *testing.T) {
	store := newFakeStore()
	store.createErr = errTransport
	fb := &fallbackCreator{store: store, err: errors.New("HTTP error! status: 500")}
	r := New(store, fb, zaptest.NewLogger(t))

	_, err := r.Reconcile(context.Background(), ada)
	var serr *Error
	if !errors.As(err, &serr) || !strings.HasPrefix(serr.Message, "Failed to sync user data: ") {
		t.Fatalf("Reconcile() error = %v", err)
	}
	st := r.Status()
	if st.User != nil || st.Authenticated || st.Loading || st.Error != serr.Message {
		t.Errorf("status = %+v", st)
	}
}

func TestConfirmationReadFails(t *testing.T) {
	store := newFakeStore()
	store.confirmErr = errTransport
	r := New(store, nil, zaptest.NewLogger(t))

	_, err := r.Reconcile(context.Background(), ada)
	if err == nil || err.Error() != MsgUnreadable || !errors.Is(err, errTransport) {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if store.createCount() != 1 || store.gets != 2 {
		t.Errorf("creates=%d gets=%d, want 1 and 2", store.createCount(), store.gets)
	}
	if st := r.Status(); st.Error != MsgUnreadable || st.User != nil {
		t.Errorf("status = %+v", st)
	}
}

func TestEmptyCreateID(t *testing.T) {
	r := New(emptyIDBackend{}, nil, zaptest.NewLogger(t))
	if _, err := r.Reconcile(context.Background(), ada); err == nil || err.Error() != MsgCreateFailed {
		t.Errorf("Reconcile() error = %v", err)
	}
}

type emptyIDBackend struct{}

func (emptyIDBackend) GetUser(context.Context, string) (*models.User, error) {
	return nil, errTransport
}

func (emptyIDBackend) CreateUser(context.Context, models.CreateUserRequest) (string, error) {
	return "", nil
}

func TestLookupErrorFallsThroughToCreate(t *testing.T) {
	store := newFakeStore()
	store.users["user_1"] = &models.User{ID: "user_1"}
	store.getErr = errTransport
	r := New(store, nil, zaptest.NewLogger(t))

	_, err := r.Reconcile(context.Background(), ada)
	if store.createCount() != 1 {
		t.Errorf("creates = %d, want a create after a failed lookup", store.createCount())
	}
	if err == nil || err.Error() != MsgUnreadable {
		t.Errorf("Reconcile() error = %v", err)
	}
}

func TestConcurrentTriggersCreateOnce(t *testing.T) {
	store := newFakeStore()
	gate := make(chan struct{})
	store.gates = map[string]chan struct{}{ada.ID: gate}
	core, logs := observer.New(zapcore.DebugLevel)
	r := New(store, nil, zap.New(core))

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Reconcile(context.Background(), ada)
			errs <- err
		}()
	}
	close(gate)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("Reconcile() error = %v", err)
		}
	}
	if n := store.createCount(); n != 1 {
		t.Errorf("creates = %d, want 1", n)
	}
	// Only callers that joined someone else's attempt say so.
	if n := logs.FilterMessage("Joined in-flight reconciliation").Len(); n >= callers {
		t.Errorf("join logged %d times for %d callers", n, callers)
	}
}

func TestResetAndNoIdentity(t *testing.T) {
	store := newFakeStore()
	r := New(store, nil, zaptest.NewLogger(t))
	ctx := context.Background()

	if _, err := r.Reconcile(ctx, Identity{}); !errors.Is(err, ErrNoIdentity) {
		t.Errorf("Reconcile(empty) = %v", err)
	}

	_, _ = r.Reconcile(ctx, ada)
	r.Reset()
	if st := r.Status(); st.User != nil || st.Authenticated {
		t.Errorf("status after Reset = %+v", st)
	}

	gets := store.gets
	if _, err := r.Reconcile(ctx, ada); err != nil {
		t.Fatal(err)
	}
	if store.gets != gets+1 || store.createCount() != 1 {
		t.Errorf("after Reset: gets %d->%d creates %d", gets, store.gets, store.createCount())
	}
}

func TestCallerCancelDoesNotFailSharedAttempt(t *testing.T) {
	store := newFakeStore()
	gate := make(chan struct{})
	store.gates = map[string]chan struct{}{ada.ID: gate}
	store.entered = make(chan string, 4)
	r := New(store, nil, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := r.Reconcile(ctx, ada)
		first <- err
	}()
	<-store.entered
	cancel()
	if err := <-first; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller got %v, want context.Canceled", err)
	}

	second := make(chan error, 1)
	go func() {
		_, err := r.Reconcile(context.Background(), ada)
		second <- err
	}()
	close(gate)
	if err := <-second; err != nil {
		t.Fatalf("second caller got %v", err)
	}

	st := r.Status()
	if st.User == nil || st.User.ID != ada.ID || st.Error != "" || st.Loading {
		t.Errorf("status = %+v", st)
	}
	if n := store.createCount(); n != 1 {
		t.Errorf("creates = %d, want 1", n)
	}
}

func TestResetDuringAttemptDiscardsResult(t *testing.T) {
	store := newFakeStore()
	gate := make(chan struct{})
	store.gates = map[string]chan struct{}{ada.ID: gate}
	store.entered = make(chan string, 4)
	r := New(store, nil, zaptest.NewLogger(t))

	done := make(chan error, 1)
	go func() {
		_, err := r.Reconcile(context.Background(), ada)
		done <- err
	}()
	<-store.entered
	r.Reset()
	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	if st := r.Status(); st.User != nil || st.Loading || st.Authenticated || st.Error != "" {
		t.Errorf("status after discarded attempt = %+v", st)
	}
	gets := store.gets
	if _, err := r.Reconcile(context.Background(), ada); err != nil {
		t.Fatal(err)
	}
	if store.gets == gets {
		t.Error("identity was treated as reconciled after Reset")
	}
}

func TestSupersededIdentityIsDiscarded(t *testing.T) {
	grace := Identity{ID: "user_2", Email: "grace@example.com"}
	store := newFakeStore()
	gateA, gateB := make(chan struct{}), make(chan struct{})
	store.gates = map[string]chan struct{}{ada.ID: gateA, grace.ID: gateB}
	store.entered = make(chan string, 8)
	r := New(store, nil, zaptest.NewLogger(t))
	ctx := context.Background()

	doneA := make(chan error, 1)
	go func() {
		_, err := r.Reconcile(ctx, ada)
		doneA <- err
	}()
	<-store.entered

	doneB := make(chan error, 1)
	go func() {
		_, err := r.Reconcile(ctx, grace)
		doneB <- err
	}()
	<-store.entered

	close(gateA)
	if err := <-doneA; err != nil {
		t.Fatalf("Reconcile(ada) error = %v", err)
	}
	if st := r.Status(); st.User != nil || !st.Loading {
		t.Errorf("status after stale attempt = %+v, want no user and still loading", st)
	}

	close(gateB)
	if err := <-doneB; err != nil {
		t.Fatalf("Reconcile(grace) error = %v", err)
	}
	if st := r.Status(); st.User == nil || st.User.ID != grace.ID || st.Loading {
		t.Errorf("status = %+v, want grace", st)
	}
}
