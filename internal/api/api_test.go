package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	"saastracker-backend/internal/core"
	"saastracker-backend/internal/db"
	"saastracker-backend/internal/events"
	"saastracker-backend/internal/middleware"
)

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type tokens map[string]string

func (t tokens) VerifyIDToken(_ context.Context, token string) (*auth.Token, error) {
	uid, ok := t[token]
	if !ok {
		return nil, errors.New("invalid token")
	}
	return &auth.Token{UID: uid, Claims: map[string]interface{}{"email": uid + "@example.com"}}, nil
}

type stubPayments struct {
	webhook    *core.WebhookEvent
	webhookErr error
}

func (stubPayments) CreateCustomer(_ context.Context, _, userID string) (string, error) {
	return "cus_" + userID, nil
}

func (stubPayments) CreateSubscription(_ context.Context, customerID, _ string) (*core.ProviderSubscription, error) {
	return &core.ProviderSubscription{ID: "sub_" + customerID, Status: "incomplete", ClientSecret: "pi_secret"}, nil
}

func (stubPayments) CancelAtPeriodEnd(context.Context, string) error { return nil }

func (p *stubPayments) ParseWebhook([]byte, string) (*core.WebhookEvent, error) {
	return p.webhook, p.webhookErr
}

type testServer struct {
	router   *gin.Engine
	repos    db.Repositories
	payments *stubPayments
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zaptest.NewLogger(t)
	repos := db.NewMemoryStore().Repositories()
	rec := &events.Recorder{}
	payments := &stubPayments{}

	users := core.NewUserService(repos.Users, nil, 0, rec, clock)
	svc := Services{
		Users:   users,
		Tools:   core.NewToolService(repos.Tools, rec, clock),
		Billing: core.NewBillingService(users, repos.Subscriptions, payments, rec, clock),
	}
	authMW := middleware.NewAuthMiddleware(tokens{"tok_1": "uid_1"}, log)
	return &testServer{
		router:   NewRouter(log, "https://app.example.com", authMW, svc),
		repos:    repos,
		payments: payments,
	}
}

type callResult struct {
	code   int
	result map[string]interface{}
	err    CallableError
}

func (s *testServer) call(t *testing.T, name, token, body string) callResult {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/rpc/"+name, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env struct {
		Result map[string]interface{} `json:"result"`
		Error  CallableError          `json:"error"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s: decode %q: %v", name, w.Body.String(), err)
	}
	return callResult{code: w.Code, result: env.Result, err: env.Error}
}

func TestCallableEnvelopeErrors(t *testing.T) {
	s := newTestServer(t)

	r := s.call(t, "noSuchFunction", "", `{"data":{}}`)
	if r.code != http.StatusNotFound || r.err.Status != "NOT_FOUND" {
		t.Errorf("unknown function: %+v", r)
	}

	r = s.call(t, "userGetWithClerk", "", `{"data":`)
	if r.code != http.StatusBadRequest || r.err.Status != "INVALID_ARGUMENT" {
		t.Errorf("malformed body: %+v", r)
	}

	r = s.call(t, "userCreateWithClerk", "", `{"data":null}`)
	if r.code != http.StatusBadRequest || r.err.Message != "Invalid request data" {
		t.Errorf("null data: %+v", r)
	}

	r = s.call(t, "userCreateWithClerk", "", `{"data":{"clerkUserId":"user_1"}}`)
	if r.code != http.StatusBadRequest || r.err.Message != "Missing required fields: clerkUserId and email" {
		t.Errorf("missing email: %+v", r)
	}
}

func TestUserRPCs(t *testing.T) {
	s := newTestServer(t)

	r := s.call(t, "userGetWithClerk", "", `{"data":{"clerkUserId":"user_1"}}`)
	if r.code != http.StatusNotFound || r.err.Status != "NOT_FOUND" || r.err.Message != "User not found" {
		t.Fatalf("get before create: %+v", r)
	}

	r = s.call(t, "userCreateWithClerk", "", `{"data":{"clerkUserId":"user_1","email":"a@example.com","firstName":"Ada"}}`)
	if r.code != http.StatusOK || r.result["success"] != true || r.result["userId"] != "user_1" {
		t.Fatalf("create: %+v", r)
	}

	r = s.call(t, "userGetWithClerk", "", `{"data":{"clerkUserId":"user_1"}}`)
	user, _ := r.result["user"].(map[string]interface{})
	if r.code != http.StatusOK || user["email"] != "a@example.com" || user["firstName"] != "Ada" {
		t.Fatalf("get: %+v", r)
	}
	if _, ok := user["lastName"]; ok {
		t.Errorf("absent lastName serialized: %v", user)
	}

	r = s.call(t, "userUpdateWithClerk", "", `{"data":{"clerkUserId":"user_1","lastName":"Lovelace"}}`)
	user, _ = r.result["user"].(map[string]interface{})
	if r.code != http.StatusOK || user["lastName"] != "Lovelace" {
		t.Errorf("update: %+v", r)
	}
}

func TestLegacyUserRPCs(t *testing.T) {
	s := newTestServer(t)

	r := s.call(t, "userCreate", "", `{"data":{}}`)
	if r.code != http.StatusUnauthorized || r.err.Status != "UNAUTHENTICATED" {
		t.Errorf("anonymous userCreate: %+v", r)
	}
	r = s.call(t, "userGet", "bogus", `{"data":null}`)
	if r.code != http.StatusUnauthorized {
		t.Errorf("bad token userGet: %+v", r)
	}

	r = s.call(t, "userCreate", "tok_1", `{"data":null}`)
	data, _ := r.result["data"].(map[string]interface{})
	if r.code != http.StatusOK || data["id"] != "uid_1" || data["email"] != "uid_1@example.com" {
		t.Fatalf("userCreate: %+v", r)
	}
	r = s.call(t, "userGet", "tok_1", `{}`)
	if r.code != http.StatusOK || r.result["success"] != true {
		t.Errorf("userGet: %+v", r)
	}
}

func TestToolRPCs(t *testing.T) {
	s := newTestServer(t)

	r := s.call(t, "createSaaSTool", "", `{"data":{"clerkUserId":"user_1","name":"Figma","monthlyCost":0,"seats":1}}`)
	if r.code != http.StatusBadRequest {
		t.Errorf("missing lastUsed: %+v", r)
	}

	r = s.call(t, "createSaaSTool", "", `{"data":{"clerkUserId":"user_1","name":"Figma","monthlyCost":45,"seats":3,"lastUsed":"2024-06-14","category":"Design"}}`)
	toolID, _ := r.result["toolId"].(string)
	if r.code != http.StatusOK || toolID == "" {
		t.Fatalf("create: %+v", r)
	}

	r = s.call(t, "getSaaSTools", "", `{"data":{"clerkUserId":"user_1"}}`)
	tools, _ := r.result["tools"].([]interface{})
	if r.code != http.StatusOK || len(tools) != 1 {
		t.Fatalf("list: %+v", r)
	}

	r = s.call(t, "getSaaSTools", "", `{"data":{"clerkUserId":"nobody"}}`)
	if tools, ok := r.result["tools"].([]interface{}); !ok || len(tools) != 0 {
		t.Errorf("empty list should be [], got %+v", r.result)
	}

	r = s.call(t, "updateSaaSTool", "", `{"data":{"clerkUserId":"user_1","toolId":"`+toolID+`","seats":5}}`)
	if r.code != http.StatusOK || r.result["toolId"] != toolID {
		t.Errorf("update: %+v", r)
	}

	r = s.call(t, "getSaaSToolsSummary", "", `{"data":{"clerkUserId":"user_1"}}`)
	summary, _ := r.result["summary"].(map[string]interface{})
	if r.code != http.StatusOK || summary["totalMonthly"] != 45.0 || summary["totalSeats"] != 5.0 || summary["totalYearly"] != 540.0 {
		t.Errorf("summary: %+v", r)
	}

	r = s.call(t, "deleteSaaSTool", "", `{"data":{"clerkUserId":"user_1","toolId":"`+toolID+`"}}`)
	if r.code != http.StatusOK || r.result["success"] != true {
		t.Errorf("delete: %+v", r)
	}
}

func TestSubscriptionRPCs(t *testing.T) {
	s := newTestServer(t)

	r := s.call(t, "subscriptionCreate", "", `{"data":{"priceId":"price_1"}}`)
	if r.code != http.StatusUnauthorized {
		t.Errorf("anonymous subscriptionCreate: %+v", r)
	}

	s.call(t, "userCreate", "tok_1", `{"data":{}}`)
	r = s.call(t, "subscriptionCreate", "tok_1", `{"data":{"priceId":"price_1"}}`)
	if r.code != http.StatusOK || r.result["subscriptionId"] != "sub_cus_uid_1" || r.result["clientSecret"] != "pi_secret" {
		t.Fatalf("subscriptionCreate: %+v", r)
	}

	r = s.call(t, "subscriptionCancel", "tok_1", `{"data":null}`)
	if r.code != http.StatusNotFound || r.err.Message != "No active subscription found" {
		t.Errorf("cancel incomplete subscription: %+v", r)
	}
}

func TestHTTPFallback(t *testing.T) {
	s := newTestServer(t)

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, HTTPFallbackPath, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		return w
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, HTTPFallbackPath, nil))
	if w.Code != http.StatusNoContent || w.Header().Get("Access-Control-Allow-Origin") != "*" || w.Body.Len() != 0 {
		t.Errorf("preflight: %d %v", w.Code, w.Header())
	}

	w = post(`{"email":"a@example.com"}`)
	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), `"error":"Missing required fields: clerkUserId and email"`) {
		t.Errorf("missing id: %d %s", w.Code, w.Body.String())
	}

	w = post(`{"clerkUserId":"user_9","email":"z@example.com"}`)
	if w.Code != http.StatusOK || w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("create: %d %s", w.Code, w.Body.String())
	}
	var res UserIDResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil || !res.Success || res.UserID != "user_9" {
		t.Errorf("create body = %s", w.Body.String())
	}
	if _, err := s.repos.Users.GetByID(context.Background(), "user_9"); err != nil {
		t.Errorf("user not stored: %v", err)
	}
}

func TestStripeWebhook(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/billing/webhooks/stripe", strings.NewReader(`{}`))
		req.Header.Set("Stripe-Signature", "t=1,v1=x")
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		return w
	}

	s.payments.webhookErr = core.ErrWebhookSignature
	if w := post(); w.Code != http.StatusBadRequest {
		t.Errorf("bad signature: %d %s", w.Code, w.Body.String())
	}

	s.call(t, "userCreate", "tok_1", `{"data":{}}`)
	s.call(t, "subscriptionCreate", "tok_1", `{"data":{"priceId":"price_1"}}`)
	s.payments.webhookErr = nil
	s.payments.webhook = &core.WebhookEvent{
		Type:         core.EventSubscriptionUpdated,
		Subscription: &core.ProviderSubscription{ID: "sub_cus_uid_1", Status: "active"},
	}
	if w := post(); w.Code != http.StatusOK {
		t.Fatalf("webhook: %d %s", w.Code, w.Body.String())
	}
	if sub, err := s.repos.Subscriptions.FindActiveByUser(ctx, "uid_1"); err != nil || sub.ID != "sub_cus_uid_1" {
		t.Fatalf("active subscription = %+v, %v", sub, err)
	}

	r := s.call(t, "subscriptionCancel", "tok_1", `{"data":null}`)
	if r.code != http.StatusOK || r.result["success"] != true {
		t.Errorf("cancel: %+v", r)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "UP") {
		t.Errorf("health: %d %s", w.Code, w.Body.String())
	}
}
