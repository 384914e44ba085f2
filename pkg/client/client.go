// Package client calls the SaaS tracker backend: the callable RPC surface under /rpc and
// the plain HTTP create-user fallback.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"saastracker-backend/internal/core"
	"saastracker-backend/internal/models"
)

const defaultTimeout = 30 * time.Second

// Error is a failure reported by the backend.
type Error struct {
	// Status is the callable status, e.g. "NOT_FOUND" or "INVALID_ARGUMENT".
	Status     string
	Message    string
	HTTPStatus int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a NOT_FOUND error from the backend.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Status == "NOT_FOUND"
}

// Option configures a Client or an HTTPFallback.
type Option func(*options)

type options struct {
	httpClient *http.Client
	idToken    string
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(h *http.Client) Option {
	return func(o *options) { o.httpClient = h }
}

// WithIDToken sends idToken as a bearer token on every call.
func WithIDToken(idToken string) Option {
	return func(o *options) { o.idToken = idToken }
}

func buildOptions(opts []Option) options {
	o := options{httpClient: &http.Client{Timeout: defaultTimeout}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Client calls the callable RPC surface. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client

	mu      sync.RWMutex
	idToken string
}

// New returns a Client for the backend at baseURL (e.g. "https://api.example.com").
func New(baseURL string, opts ...Option) *Client {
	o := buildOptions(opts)
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    o.httpClient,
		idToken: o.idToken,
	}
}

// SetIDToken replaces the bearer token; "" stops sending one.
func (c *Client) SetIDToken(idToken string) {
	c.mu.Lock()
	c.idToken = idToken
	c.mu.Unlock()
}

func (c *Client) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.idToken
}

type callableEnvelope struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// call invokes the named RPC with data and decodes its result into out.
func (c *Client) call(ctx context.Context, name string, data, out interface{}) error {
	body, err := json.Marshal(map[string]interface{}{"data": data})
	if err != nil {
		return fmt.Errorf("client: encode %s: %w", name, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rpc/"+name, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("client: build %s request: %w", name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s: %w", name, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("client: read %s response: %w", name, err)
	}
	var env callableEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &Error{Status: "INTERNAL", Message: fmt.Sprintf("unexpected response (%d): %s", resp.StatusCode, bytes.TrimSpace(raw)), HTTPStatus: resp.StatusCode}
	}
	if env.Error != nil {
		return &Error{Status: env.Error.Status, Message: env.Error.Message, HTTPStatus: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK {
		return &Error{Status: "INTERNAL", Message: http.StatusText(resp.StatusCode), HTTPStatus: resp.StatusCode}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("client: decode %s result: %w", name, err)
	}
	return nil
}

// CreateUser calls userCreateWithClerk and returns the user id.
func (c *Client) CreateUser(ctx context.Context, req models.CreateUserRequest) (string, error) {
	var res struct {
		UserID string `json:"userId"`
	}
	if err := c.call(ctx, "userCreateWithClerk", req, &res); err != nil {
		return "", err
	}
	return res.UserID, nil
}

// GetUser calls userGetWithClerk.
func (c *Client) GetUser(ctx context.Context, clerkUserID string) (*models.User, error) {
	var res struct {
		User *models.User `json:"user"`
	}
	if err := c.call(ctx, "userGetWithClerk", models.OwnerRequest{ClerkUserID: clerkUserID}, &res); err != nil {
		return nil, err
	}
	return res.User, nil
}

// UpdateUser calls userUpdateWithClerk and returns the stored record.
func (c *Client) UpdateUser(ctx context.Context, req models.UpdateUserRequest) (*models.User, error) {
	var res struct {
		User *models.User `json:"user"`
	}
	if err := c.call(ctx, "userUpdateWithClerk", req, &res); err != nil {
		return nil, err
	}
	return res.User, nil
}

type toolIDResult struct {
	ToolID string `json:"toolId"`
}

// CreateTool validates in and calls createSaaSTool. Invalid input returns
// models.ValidationErrors without contacting the backend.
func (c *Client) CreateTool(ctx context.Context, ownerID string, in models.ToolInput) (string, error) {
	if err := in.Validate(); err != nil {
		return "", err
	}
	req := models.CreateToolRequest{
		ClerkUserID: ownerID,
		Name:        in.Name,
		MonthlyCost: &in.MonthlyCost,
		Seats:       &in.Seats,
		LastUsed:    in.LastUsed.UTC().Format(time.RFC3339),
		Category:    in.Category,
		Description: in.Description,
	}
	var res toolIDResult
	if err := c.call(ctx, "createSaaSTool", req, &res); err != nil {
		return "", err
	}
	return res.ToolID, nil
}

// ListTools calls getSaaSTools. Tools come back most recently updated first.
func (c *Client) ListTools(ctx context.Context, ownerID string) ([]*models.Tool, error) {
	var res struct {
		Tools []*models.Tool `json:"tools"`
	}
	if err := c.call(ctx, "getSaaSTools", models.OwnerRequest{ClerkUserID: ownerID}, &res); err != nil {
		return nil, err
	}
	return res.Tools, nil
}

// UpdateTool validates the fields p sets and calls updateSaaSTool.
func (c *Client) UpdateTool(ctx context.Context, ownerID, toolID string, p models.ToolPatch) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	req := models.UpdateToolRequest{
		ClerkUserID: ownerID,
		ToolID:      toolID,
		Name:        p.Name,
		MonthlyCost: p.MonthlyCost,
		Seats:       p.Seats,
		Category:    p.Category,
		Description: p.Description,
	}
	if p.LastUsed != nil {
		s := p.LastUsed.UTC().Format(time.RFC3339)
		req.LastUsed = &s
	}
	var res toolIDResult
	if err := c.call(ctx, "updateSaaSTool", req, &res); err != nil {
		return "", err
	}
	return res.ToolID, nil
}

// DeleteTool calls deleteSaaSTool.
func (c *Client) DeleteTool(ctx context.Context, ownerID, toolID string) (string, error) {
	var res toolIDResult
	if err := c.call(ctx, "deleteSaaSTool", models.DeleteToolRequest{ClerkUserID: ownerID, ToolID: toolID}, &res); err != nil {
		return "", err
	}
	return res.ToolID, nil
}

// ToolsSummary calls getSaaSToolsSummary.
func (c *Client) ToolsSummary(ctx context.Context, ownerID string) (core.SpendSummary, error) {
	var res struct {
		Summary core.SpendSummary `json:"summary"`
	}
	if err := c.call(ctx, "getSaaSToolsSummary", models.OwnerRequest{ClerkUserID: ownerID}, &res); err != nil {
		return core.SpendSummary{}, err
	}
	return res.Summary, nil
}

// CreateSubscription calls subscriptionCreate. It needs an ID token.
func (c *Client) CreateSubscription(ctx context.Context, priceID string) (*core.SubscriptionResult, error) {
	var res core.SubscriptionResult
	if err := c.call(ctx, "subscriptionCreate", models.CreateSubscriptionRequest{PriceID: priceID}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// CancelSubscription calls subscriptionCancel. It needs an ID token.
func (c *Client) CancelSubscription(ctx context.Context) error {
	return c.call(ctx, "subscriptionCancel", nil, nil)
}

// HTTPFallback posts create-user requests to the plain HTTP endpoint.
type HTTPFallback struct {
	url  string
	http *http.Client
}

// NewHTTPFallback returns a fallback for the endpoint at url
// (e.g. "https://api.example.com/userCreateHttp").
func NewHTTPFallback(url string, opts ...Option) *HTTPFallback {
	return &HTTPFallback{url: url, http: buildOptions(opts).httpClient}
}

// CreateUser posts req and returns the user id.
func (f *HTTPFallback) CreateUser(ctx context.Context, req models.CreateUserRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("client: encode fallback request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("client: build fallback request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := f.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("client: fallback create user: %w", err)
	}
	defer resp.Body.Close()

	var res struct {
		Success bool   `json:"success"`
		UserID  string `json:"userId"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil && resp.StatusCode == http.StatusOK {
		return "", fmt.Errorf("client: decode fallback response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || !res.Success {
		status := "INTERNAL"
		if resp.StatusCode == http.StatusBadRequest {
			status = "INVALID_ARGUMENT"
		}
		msg := res.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", &Error{Status: status, Message: msg, HTTPStatus: resp.StatusCode}
	}
	return res.UserID, nil
}
