package client_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	"saastracker-backend/internal/api"
	"saastracker-backend/internal/core"
	"saastracker-backend/internal/db"
	"saastracker-backend/internal/events"
	"saastracker-backend/internal/middleware"
	"saastracker-backend/internal/models"
	"saastracker-backend/internal/payment"
	"saastracker-backend/pkg/client"
)

type tokens map[string]string

func (t tokens) VerifyIDToken(_ context.Context, token string) (*auth.Token, error) {
	uid, ok := t[token]
	if !ok {
		return nil, errors.New("invalid token")
	}
	return &auth.Token{UID: uid}, nil
}

// newBackend serves the full router over the memory store and counts requests.
func newBackend(t *testing.T) (*httptest.Server, *int64) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zaptest.NewLogger(t)
	repos := db.NewMemoryStore().Repositories()
	pub := events.Noop{}
	users := core.NewUserService(repos.Users, nil, 0, pub, nil)
	router := api.NewRouter(log, "", middleware.NewAuthMiddleware(tokens{"tok": "uid_1"}, log), api.Services{
		Users:   users,
		Tools:   core.NewToolService(repos.Tools, pub, nil),
		Billing: core.NewBillingService(users, repos.Subscriptions, payment.Unconfigured{}, pub, nil),
	})

	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		router.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestUserCalls(t *testing.T) {
	srv, _ := newBackend(t)
	c := client.New(srv.URL + "/")
	ctx := context.Background()

	_, err := c.GetUser(ctx, "user_1")
	if !client.IsNotFound(err) {
		t.Fatalf("GetUser before create = %v", err)
	}

	_, err = c.CreateUser(ctx, models.CreateUserRequest{ClerkUserID: "user_1"})
	var cerr *client.Error
	if !errors.As(err, &cerr) || cerr.Status != "INVALID_ARGUMENT" || cerr.HTTPStatus != http.StatusBadRequest {
		t.Errorf("CreateUser without email = %v", err)
	}

	id, err := c.CreateUser(ctx, models.CreateUserRequest{ClerkUserID: "user_1", Email: "a@example.com"})
	if err != nil || id != "user_1" {
		t.Fatalf("CreateUser() = %q, %v", id, err)
	}
	last := "Hopper"
	u, err := c.UpdateUser(ctx, models.UpdateUserRequest{ClerkUserID: "user_1", LastName: &last})
	if err != nil || u.LastName != "Hopper" || u.Email != "a@example.com" {
		t.Errorf("UpdateUser() = %+v, %v", u, err)
	}
	u, err = c.GetUser(ctx, "user_1")
	if err != nil || u.ID != "user_1" {
		t.Errorf("GetUser() = %+v, %v", u, err)
	}
}

func TestToolCalls(t *testing.T) {
	srv, hits := newBackend(t)
	c := client.New(srv.URL)
	ctx := context.Background()
	lastUsed := time.Now().AddDate(0, 0, -5)

	before := atomic.LoadInt64(hits)
	_, err := c.CreateTool(ctx, "user_1", models.ToolInput{Name: "Zoom", MonthlyCost: 10, Seats: 0, LastUsed: lastUsed})
	var verr models.ValidationErrors
	if !errors.As(err, &verr) || verr["seats"] == "" {
		t.Errorf("seats=0 error = %v", err)
	}
	_, err = c.CreateTool(ctx, "user_1", models.ToolInput{Name: "Zoom", MonthlyCost: -1, Seats: 1, LastUsed: lastUsed})
	if !errors.As(err, &verr) || verr["monthlyCost"] == "" {
		t.Errorf("negative cost error = %v", err)
	}
	if got := atomic.LoadInt64(hits); got != before {
		t.Errorf("invalid input reached the backend (%d requests)", got-before)
	}

	id, err := c.CreateTool(ctx, "user_1", models.ToolInput{Name: "Free tier", MonthlyCost: 0, Seats: 1, LastUsed: lastUsed, Category: "Other"})
	if err != nil || id == "" {
		t.Fatalf("CreateTool(boundary) = %q, %v", id, err)
	}

	tools, err := c.ListTools(ctx, "user_1")
	if err != nil || len(tools) != 1 {
		t.Fatalf("ListTools() = %v, %v", tools, err)
	}
	if got := tools[0]; got.ID != id || got.Name != "Free tier" || got.Seats != 1 || got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Errorf("listed tool = %+v", got)
	}

	seats := 0
	if _, err := c.UpdateTool(ctx, "user_1", id, models.ToolPatch{Seats: &seats}); !errors.As(err, &verr) {
		t.Errorf("UpdateTool(seats=0) = %v", err)
	}
	seats = 4
	if got, err := c.UpdateTool(ctx, "user_1", id, models.ToolPatch{Seats: &seats}); err != nil || got != id {
		t.Errorf("UpdateTool() = %q, %v", got, err)
	}

	s, err := c.ToolsSummary(ctx, "user_1")
	if err != nil || s.ToolCount != 1 || s.TotalSeats != 4 || s.ActiveTools != 1 {
		t.Errorf("ToolsSummary() = %+v, %v", s, err)
	}

	if got, err := c.DeleteTool(ctx, "user_1", id); err != nil || got != id {
		t.Errorf("DeleteTool() = %q, %v", got, err)
	}
	if tools, _ := c.ListTools(ctx, "user_1"); len(tools) != 0 {
		t.Errorf("tools after delete = %v", tools)
	}
}

func TestSubscriptionCalls(t *testing.T) {
	srv, _ := newBackend(t)
	ctx := context.Background()

	anon := client.New(srv.URL)
	err := anon.CancelSubscription(ctx)
	var cerr *client.Error
	if !errors.As(err, &cerr) || cerr.Status != "UNAUTHENTICATED" {
		t.Errorf("anonymous cancel = %v", err)
	}

	c := client.New(srv.URL, client.WithIDToken("tok"))
	if err := c.CancelSubscription(ctx); !client.IsNotFound(err) {
		t.Errorf("cancel without subscription = %v", err)
	}

	c.SetIDToken("")
	if _, err := c.CreateSubscription(ctx, "price_1"); !errors.As(err, &cerr) || cerr.Status != "UNAUTHENTICATED" {
		t.Errorf("CreateSubscription after clearing token = %v", err)
	}
}

func TestHTTPFallback(t *testing.T) {
	srv, _ := newBackend(t)
	f := client.NewHTTPFallback(srv.URL + api.HTTPFallbackPath)
	ctx := context.Background()

	_, err := f.CreateUser(ctx, models.CreateUserRequest{Email: "a@example.com"})
	var cerr *client.Error
	if !errors.As(err, &cerr) || cerr.Status != "INVALID_ARGUMENT" || cerr.Message != "Missing required fields: clerkUserId and email" {
		t.Errorf("fallback without id = %v", err)
	}

	id, err := f.CreateUser(ctx, models.CreateUserRequest{ClerkUserID: "user_7", Email: "s@example.com"})
	if err != nil || id != "user_7" {
		t.Fatalf("fallback CreateUser() = %q, %v", id, err)
	}
	if u, err := client.New(srv.URL).GetUser(ctx, "user_7"); err != nil || u.Email != "s@example.com" {
		t.Errorf("user created through fallback = %+v, %v", u, err)
	}
}

func TestTransportError(t *testing.T) {
	srv, _ := newBackend(t)
	srv.Close()
	_, err := client.New(srv.URL).GetUser(context.Background(), "user_1")
	var cerr *client.Error
	if err == nil || errors.As(err, &cerr) {
		t.Errorf("closed server error = %v", err)
	}
}
